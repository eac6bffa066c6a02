package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lumisproject/digital-twin-project-oracle/internal/server"
	"github.com/lumisproject/digital-twin-project-oracle/internal/syncer"
)

var (
	flagListen      string
	flagSyncOnStart bool
	flagNoAsk       bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the webhook, status, ask and metrics endpoints",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := newIndexer(nil)
		if err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()

		logger := slog.Default()
		sy := syncer.New(ctx, idx, logger.With("component", "syncer"))

		var asker server.Asker
		if !flagNoAsk {
			engine, _, err := newEngine()
			if err != nil {
				return err
			}
			asker = engine
		}

		if flagSyncOnStart {
			if _, err := sy.Trigger(""); err != nil {
				return err
			}
		}

		addr := cfg.Listen
		if flagListen != "" {
			addr = flagListen
		}
		srv := server.New(sy, idx.Store(), asker, logger.With("component", "server"))
		err = srv.Run(ctx, addr)
		// In-flight syncs observe the cancellation and persist nothing.
		stop()
		sy.Wait()
		return err
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagListen, "listen", "", "listen address (default :5000)")
	serveCmd.Flags().BoolVar(&flagSyncOnStart, "sync-on-start", false, "sync once before the first notification arrives")
	serveCmd.Flags().BoolVar(&flagNoAsk, "no-ask", false, "do not serve POST /ask")
	rootCmd.AddCommand(serveCmd)
}
