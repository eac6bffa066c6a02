package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/lumisproject/digital-twin-project-oracle/internal/rag"
	"github.com/lumisproject/digital-twin-project-oracle/internal/server"
	"github.com/lumisproject/digital-twin-project-oracle/internal/store"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing the codebase knowledge tools",
	Args:  cobra.NoArgs,
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	engine, _, err := newEngine()
	if err != nil {
		return err
	}
	return mcpserver.ServeStdio(newMCPServer(engine, newStore()))
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// retriever is the part of the retrieval engine the tools need.
type retriever interface {
	FindContext(ctx context.Context, question string, k int) ([]rag.Block, error)
	Ask(ctx context.Context, question string) (*rag.Answer, error)
}

func newMCPServer(r retriever, st *store.FileStore) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("lumis", "1.0.0", mcpserver.WithToolCapabilities(false))

	s.AddTool(askCodebaseTool(), makeAskHandler(r))
	s.AddTool(findContextTool(), makeFindContextHandler(r))
	s.AddTool(getUnitTool(), makeGetUnitHandler(st))
	s.AddTool(listUnitsTool(), makeListUnitsHandler(st))
	s.AddTool(getSyncStatusTool(), makeSyncStatusHandler(st))
	return s
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func askCodebaseTool() mcp.Tool {
	return mcp.NewTool("ask_codebase",
		mcp.WithDescription("Answer a question about the codebase from unit summaries and their call relationships."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Natural language question, e.g. 'what breaks if I change parse_config?'"),
		),
	)
}

func findContextTool() mcp.Tool {
	return mcp.NewTool("find_context",
		mcp.WithDescription("Return the code units most similar to a query with their callers and callees, without asking the model."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language description of the code you are looking for"),
		),
		mcp.WithNumber("k",
			mcp.Description("Number of units to return (default from configuration, usually 3)"),
		),
	)
}

func getUnitTool() mcp.Tool {
	return mcp.NewTool("get_unit",
		mcp.WithDescription("Get the summary, raw calls and call graph neighbours of one unit."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Unit id in the form <relative/path>::<name>"),
		),
	)
}

func listUnitsTool() mcp.Tool {
	return mcp.NewTool("list_units",
		mcp.WithDescription("List indexed unit ids with a summary snippet."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("path_prefix",
			mcp.Description("Only list units whose file path starts with this prefix"),
		),
	)
}

func getSyncStatusTool() mcp.Tool {
	return mcp.NewTool("get_sync_status",
		mcp.WithDescription("Report the last synced commit and the number of indexed units."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
	)
}

// --- Handler factories ---

const noKnowledgeText = "Nothing is indexed yet. Run 'lumis rebuild' to build the knowledge store."

func makeAskHandler(r retriever) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question := req.GetString("question", "")
		if question == "" {
			return mcp.NewToolResultError("question is required"), nil
		}
		ans, err := r.Ask(ctx, question)
		if errors.Is(err, store.ErrNoKnowledge) {
			return mcp.NewToolResultText(noKnowledgeText), nil
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("ask failed: %v", err)), nil
		}
		return mcp.NewToolResultText(ans.Text), nil
	}
}

func makeFindContextHandler(r retriever) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		if query == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		blocks, err := r.FindContext(ctx, query, req.GetInt("k", 0))
		if errors.Is(err, store.ErrNoKnowledge) {
			return mcp.NewToolResultText(noKnowledgeText), nil
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
		return mcp.NewToolResultText(formatBlocks(query, blocks)), nil
	}
}

func makeGetUnitHandler(st *store.FileStore) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := req.GetString("id", "")
		if id == "" {
			return mcp.NewToolResultError("id is required"), nil
		}
		snap, err := st.Load()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("load store failed: %v", err)), nil
		}
		u, ok := snap.ByID()[id]
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unit %q not found; call list_units to see available ids", id)), nil
		}

		g, err := st.LoadGraph()
		if errors.Is(err, fs.ErrNotExist) {
			g = store.BuildGraph(snap.ByID())
		} else if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("load graph failed: %v", err)), nil
		}
		tr := rag.TraceOf(g, id)

		var sb strings.Builder
		fmt.Fprintf(&sb, "## %s\n\n**File:** %s\n\n%s\n\n", u.ID, u.FilePath, u.Summary)
		writeList(&sb, "Calls (raw)", u.Calls)
		writeList(&sb, "Called by", tr.Callers)
		writeList(&sb, "Calls into", tr.Callees)
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func makeListUnitsHandler(st *store.FileStore) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		prefix := req.GetString("path_prefix", "")

		snap, err := st.Load()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("load store failed: %v", err)), nil
		}

		var filtered []store.Unit
		for _, u := range snap.Units {
			if strings.HasPrefix(u.FilePath, prefix) {
				filtered = append(filtered, u)
			}
		}

		var sb strings.Builder
		if prefix != "" {
			fmt.Fprintf(&sb, "## Indexed units (%d, under %s)\n\n", len(filtered), prefix)
		} else {
			fmt.Fprintf(&sb, "## Indexed units (%d)\n\n", len(filtered))
		}
		for _, u := range filtered {
			fmt.Fprintf(&sb, "- **%s**: %s\n", u.ID, snippet(u.Summary))
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func makeSyncStatusHandler(st *store.FileStore) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, err := server.BuildStatus(st, nil)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("status failed: %v", err)), nil
		}
		commit := resp.LastCommit
		if commit == "" {
			commit = "none"
		}
		return mcp.NewToolResultText(fmt.Sprintf("Last synced commit: %s\nUnits indexed: %d", commit, resp.UnitCount)), nil
	}
}

// --- Formatting helpers ---

func formatBlocks(query string, blocks []rag.Block) string {
	if len(blocks) == 0 {
		return fmt.Sprintf("No units found for query: %q", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Context for %q (%d units)\n\n", query, len(blocks))
	for i, b := range blocks {
		fmt.Fprintf(&sb, "### %d. `%s` (score %.3f)\n\n%s\n", i+1, b.Unit.ID, b.Score, b.Unit.Summary)
		if t := b.Trace.String(); t != "" {
			sb.WriteString(strings.TrimPrefix(t, "\n"))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func writeList(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "**%s:**\n", title)
	for _, it := range items {
		fmt.Fprintf(sb, "- `%s`\n", it)
	}
	sb.WriteString("\n")
}

func snippet(s string) string {
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[:idx]
	}
	if len(s) > 120 {
		s = s[:120] + "..."
	}
	if s == "" {
		s = "(no summary)"
	}
	return s
}
