package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lumisproject/digital-twin-project-oracle/internal/server"
)

var flagStatusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last synced commit and the number of indexed units",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := server.BuildStatus(newStore(), nil)
		if err != nil {
			return err
		}
		if flagStatusJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		}
		commit := resp.LastCommit
		if commit == "" {
			commit = "none"
		}
		fmt.Printf("Store:        %s\n", cfg.MemoryDir)
		fmt.Printf("Last commit:  %s\n", commit)
		fmt.Printf("Units:        %d\n", resp.UnitCount)
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&flagStatusJSON, "json", false, "print the status as JSON")
	rootCmd.AddCommand(statusCmd)
}
