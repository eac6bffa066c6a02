package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/lumisproject/digital-twin-project-oracle/internal/rag"
	"github.com/lumisproject/digital-twin-project-oracle/internal/store"
)

var (
	flagRaw         bool
	flagShowContext bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask one question about the indexed codebase",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, _, err := newEngine()
		if err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()

		ans, err := engine.Ask(ctx, strings.Join(args, " "))
		if errors.Is(err, store.ErrNoKnowledge) {
			return fmt.Errorf("nothing is indexed in %s yet; run 'lumis rebuild' first", cfg.MemoryDir)
		}
		if err != nil {
			return err
		}

		if flagShowContext {
			fmt.Fprint(os.Stderr, rag.BuildContext(ans.Context))
		}
		fmt.Println(render(ans.Text))
		return nil
	},
}

// render formats markdown for the terminal unless --raw is set or rendering
// fails.
func render(text string) string {
	if flagRaw {
		return text
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

func init() {
	askCmd.Flags().BoolVar(&flagRaw, "raw", false, "print the answer without markdown rendering")
	askCmd.Flags().BoolVar(&flagShowContext, "show-context", false, "print the retrieved units and traces to stderr")
	rootCmd.AddCommand(askCmd)
}
