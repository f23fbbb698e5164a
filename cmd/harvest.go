package cmd

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/sw33tLie/matchfeed/internal/utils"
	"github.com/sw33tLie/matchfeed/pkg/browser"
	"github.com/sw33tLie/matchfeed/pkg/harvest"
	"github.com/sw33tLie/matchfeed/pkg/matches"
	"github.com/sw33tLie/matchfeed/pkg/scheduler"
	"github.com/sw33tLie/matchfeed/pkg/storage"
)

// harvestCmd implements: matchfeed harvest
//
//	--locale string   Site locale (default "en")
//	--view string     today or tomorrow (default "today")
//	--save            Also write the snapshot to the data store
//	--server string   Ask a running server to refresh instead of scraping here
var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Harvest one match list and print it as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return fmt.Errorf("unknown command: '%s'. See 'matchfeed harvest --help'", args[0])
		}
		lang, _ := cmd.Flags().GetString("locale")
		rawView, _ := cmd.Flags().GetString("view")
		view, err := matches.ParseView(rawView)
		if err != nil {
			return err
		}

		if serverURL, _ := cmd.Flags().GetString("server"); serverURL != "" {
			client, err := newAPIClient(cmd, serverURL)
			if err != nil {
				return err
			}
			var out scheduler.Outcome
			if err := client.Post(cmd.Context(), "/api/refresh", url.Values{"locale": {lang}, "view": {string(view)}}, &out); err != nil {
				return err
			}
			return printJSON(out)
		}

		cfg, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		save, _ := cmd.Flags().GetBool("save")
		var store *storage.Store
		if save {
			s, unlock, err := openSaveStore(cfg)
			if err != nil {
				return err
			}
			defer unlock()
			store = s
		}

		ctrl := browser.NewController(cfg.browser)
		defer ctrl.Close()

		h := harvest.New(ctrl, cfg.site, cfg.loc, cfg.harvest, utils.Log)
		res, err := h.Harvest(cmd.Context(), lang, view)
		if err != nil {
			return err
		}
		for _, w := range res.Warnings {
			utils.Log.Warn(w)
		}

		if store != nil {
			if err := store.SaveList(res.Snapshot); err != nil {
				return err
			}
			utils.Log.Infof("Saved %d matches for %s to %s", res.Snapshot.TotalMatches, res.Snapshot.DataDate, store.Dir())
		}

		verbose, _ := cmd.Flags().GetBool("verbose")
		if verbose {
			return printJSON(res)
		}
		return printJSON(res.Snapshot)
	},
}

func init() {
	rootCmd.AddCommand(harvestCmd)
	harvestCmd.Flags().String("locale", "en", "Site locale")
	harvestCmd.Flags().String("view", string(matches.ViewToday), "List to harvest: today or tomorrow")
	harvestCmd.Flags().Bool("save", false, "Write the snapshot to the data store")
	harvestCmd.Flags().BoolP("verbose", "v", false, "Print harvest metadata (iterations, warnings) with the snapshot")
	harvestCmd.Flags().String("server", "", "Trigger the refresh on a running server (e.g. http://127.0.0.1:8080)")
}
