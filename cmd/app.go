package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lumisproject/digital-twin-project-oracle/internal/embedder"
	"github.com/lumisproject/digital-twin-project-oracle/internal/enrich"
	"github.com/lumisproject/digital-twin-project-oracle/internal/extractor"
	"github.com/lumisproject/digital-twin-project-oracle/internal/extractor/languages"
	"github.com/lumisproject/digital-twin-project-oracle/internal/index"
	"github.com/lumisproject/digital-twin-project-oracle/internal/llm"
	"github.com/lumisproject/digital-twin-project-oracle/internal/rag"
	"github.com/lumisproject/digital-twin-project-oracle/internal/store"
	"github.com/lumisproject/digital-twin-project-oracle/internal/vcs"
)

// errNoRepo is returned by commands that need a repository to index.
var errNoRepo = errors.New("no repository configured: set --repo-url, repo_url in lumis.yaml, or REPO_URL")

func newChat() (llm.Chatter, error) {
	return llm.New(llm.Config{
		Provider:    cfg.LLM.Provider,
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: float32(cfg.LLM.Temperature),
	})
}

func newEmbedder() (embedder.Embedder, error) {
	return embedder.New(embedder.Config{
		Provider: cfg.Embed.Provider,
		BaseURL:  cfg.Embed.BaseURL,
		APIKey:   cfg.Embed.APIKey,
		Model:    cfg.Embed.Model,
	})
}

func newStore() *store.FileStore {
	return store.New(cfg.MemoryDir)
}

// newIndexer wires the full pipeline. It needs both providers because every
// sync may enrich units.
func newIndexer(onProgress index.ProgressFunc) (*index.Indexer, error) {
	if cfg.RepoURL == "" {
		return nil, errNoRepo
	}
	chat, err := newChat()
	if err != nil {
		return nil, fmt.Errorf("completion provider: %w", err)
	}
	emb, err := newEmbedder()
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}

	logger := slog.Default()
	return index.New(
		index.Config{
			RepoURL:    cfg.RepoURL,
			WorkDir:    cfg.WorkDir,
			Workers:    cfg.Workers,
			OnProgress: onProgress,
		},
		vcs.New(cfg.CloneDepth),
		newStore(),
		extractor.New(languages.Default()),
		enrich.New(chat, emb, logger.With("component", "enrich")),
		logger.With("component", "index"),
	), nil
}

func newEngine() (*rag.Engine, llm.Chatter, error) {
	chat, err := newChat()
	if err != nil {
		return nil, nil, fmt.Errorf("completion provider: %w", err)
	}
	emb, err := newEmbedder()
	if err != nil {
		return nil, nil, fmt.Errorf("embedding provider: %w", err)
	}
	return rag.NewEngine(newStore(), emb, chat, cfg.TopK, slog.Default().With("component", "rag")), chat, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printResult(res *index.Result) {
	if res.UpToDate {
		fmt.Printf("Already synced at %s (%d units)\n", res.Commit, res.Units)
		return
	}
	fmt.Printf("\nDone in %s\n", res.Duration.Round(time.Millisecond))
	fmt.Printf("  Commit:  %s\n", res.Commit)
	fmt.Printf("  Files:   %d\n", res.Files)
	fmt.Printf("  Units:   %d (%d reused, %d enriched, %d dropped, %d removed)\n",
		res.Units, res.Reused, res.Enriched, res.Dropped, res.Removed)
}

// progressPrinter rewrites one terminal line per stage.
func progressPrinter() index.ProgressFunc {
	return func(stage string, done, total int) {
		fmt.Fprintf(os.Stderr, "\r%s %d/%d", stage, done, total)
		if done == total {
			fmt.Fprintln(os.Stderr)
		}
	}
}
