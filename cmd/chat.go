package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lumisproject/digital-twin-project-oracle/internal/index"
	"github.com/lumisproject/digital-twin-project-oracle/internal/llm"
	"github.com/lumisproject/digital-twin-project-oracle/internal/store"
	"github.com/lumisproject/digital-twin-project-oracle/internal/tui"
)

var flagPlain bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions about your indexed codebase",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagPlain {
			return runREPL()
		}
		return runTUI()
	},
}

func runTUI() error {
	engine, chat, err := newEngine()
	if err != nil {
		return err
	}

	tcfg := tui.Config{
		Store:  newStore(),
		Engine: engine,
		Model:  chat.Model(),
	}
	if cfg.RepoURL != "" {
		tcfg.Rebuild = func(ctx context.Context, onProgress index.ProgressFunc) (*index.Result, error) {
			idx, err := newIndexer(onProgress)
			if err != nil {
				return nil, err
			}
			return idx.Rebuild(ctx)
		}
	}
	return tui.Run(tcfg)
}

// runREPL is a line-oriented chat for terminals without full-screen support.
func runREPL() error {
	engine, _, err := newEngine()
	if err != nil {
		return err
	}

	var history []llm.Message
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("lumis chat (type /help for commands, /exit to quit)")
	fmt.Println()

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}

		switch question {
		case "/exit", "/quit":
			fmt.Println("Goodbye.")
			return nil
		case "/clear":
			history = nil
			fmt.Println("Conversation cleared.")
			continue
		case "/help":
			fmt.Println("Commands:")
			fmt.Println("  /clear  - clear conversation history")
			fmt.Println("  /exit   - quit chat")
			fmt.Println("  /help   - show this help")
			continue
		}

		fmt.Println("[Lumis is tracing the graph...]")

		ans, err := engine.Chat(context.Background(), history, question)
		if errors.Is(err, store.ErrNoKnowledge) {
			fmt.Fprintln(os.Stderr, "nothing is indexed yet; run 'lumis rebuild' first")
			continue
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		fmt.Println()
		fmt.Println(render(ans.Text))
		fmt.Println()

		// Keep last 10 turns of history.
		history = append(history,
			llm.Message{Role: llm.RoleUser, Content: question},
			llm.Message{Role: llm.RoleAssistant, Content: ans.Text},
		)
		if len(history) > 20 {
			history = history[len(history)-20:]
		}
	}

	return scanner.Err()
}

func init() {
	chatCmd.Flags().BoolVar(&flagPlain, "plain", false, "use a line-oriented prompt instead of the full-screen interface")
	rootCmd.AddCommand(chatCmd)
}
