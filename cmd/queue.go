package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sw33tLie/matchfeed/pkg/queue"
	"github.com/sw33tLie/matchfeed/pkg/scheduler"
)

const defaultServerURL = "http://127.0.0.1:8080"

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show the scrape queue of a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		serverURL, _ := cmd.Flags().GetString("server")
		client, err := newAPIClient(cmd, serverURL)
		if err != nil {
			return err
		}
		var snap queue.Snapshot
		if err := client.Get(cmd.Context(), "/api/queue", nil, &snap); err != nil {
			return err
		}
		return printJSON(snap)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last refresh of every list on a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		serverURL, _ := cmd.Flags().GetString("server")
		client, err := newAPIClient(cmd, serverURL)
		if err != nil {
			return err
		}
		statuses := map[string]*scheduler.Status{}
		if err := client.Get(cmd.Context(), "/api/status", nil, &statuses); err != nil {
			return err
		}
		return printJSON(statuses)
	},
}

func init() {
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(statusCmd)
	queueCmd.Flags().String("server", defaultServerURL, "Server URL")
	statusCmd.Flags().String("server", defaultServerURL, "Server URL")
}
