package cmd

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/sw33tLie/matchfeed/internal/utils"
	"github.com/sw33tLie/matchfeed/pkg/browser"
	"github.com/sw33tLie/matchfeed/pkg/extract"
	"github.com/sw33tLie/matchfeed/pkg/matches"
	"github.com/sw33tLie/matchfeed/pkg/queue"
	"github.com/sw33tLie/matchfeed/pkg/storage"
)

// detailCmd implements: matchfeed detail
//
//	--id string       Match id (required)
//	--slug string     URL slug; built from --home/--away when empty
//	--date string     Data date the detail belongs to
//	--save            Also write the detail to the data store
//	--server string   Queue the scrape on a running server instead
var detailCmd = &cobra.Command{
	Use:   "detail",
	Short: "Extract one match detail page and print it as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return fmt.Errorf("unknown command: '%s'. See 'matchfeed detail --help'", args[0])
		}
		req := extract.Request{}
		req.MatchID, _ = cmd.Flags().GetString("id")
		req.Slug, _ = cmd.Flags().GetString("slug")
		req.Home, _ = cmd.Flags().GetString("home")
		req.Away, _ = cmd.Flags().GetString("away")
		req.Locale, _ = cmd.Flags().GetString("locale")
		req.DataDate, _ = cmd.Flags().GetString("date")
		if req.MatchID == "" {
			return errors.New("--id is required")
		}
		if rawView, _ := cmd.Flags().GetString("view"); rawView != "" {
			v, err := matches.ParseView(rawView)
			if err != nil {
				return err
			}
			req.View = v
		}

		if serverURL, _ := cmd.Flags().GetString("server"); serverURL != "" {
			client, err := newAPIClient(cmd, serverURL)
			if err != nil {
				return err
			}
			q := url.Values{"locale": {req.Locale}, "id": {req.MatchID}}
			for k, v := range map[string]string{"slug": req.Slug, "home": req.Home, "away": req.Away, "date": req.DataDate, "view": string(req.View)} {
				if v != "" {
					q.Set(k, v)
				}
			}
			var h queue.Handle
			if err := client.Post(cmd.Context(), "/api/scrape", q, &h); err != nil {
				return err
			}
			return printJSON(h)
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

		e := extract.New(ctrl, cfg.site, cfg.loc, cfg.extract, utils.Log)
		d, err := e.Extract(cmd.Context(), req)
		if err != nil {
			return err
		}

		if store != nil {
			if err := store.SaveDetail(d); err != nil {
				return err
			}
			utils.Log.Infof("Saved match %s to %s", d.MatchID, store.Dir())
		}
		return printJSON(d)
	},
}

func init() {
	rootCmd.AddCommand(detailCmd)
	detailCmd.Flags().String("id", "", "Match id")
	detailCmd.Flags().String("slug", "", "URL slug (default: built from --home and --away)")
	detailCmd.Flags().String("home", "", "Home team name, used for the slug")
	detailCmd.Flags().String("away", "", "Away team name, used for the slug")
	detailCmd.Flags().String("locale", "en", "Site locale")
	detailCmd.Flags().String("date", "", "Data date (YYYY-MM-DD) the detail belongs to")
	detailCmd.Flags().String("view", "", "List view the match came from: today or tomorrow")
	detailCmd.Flags().Bool("save", false, "Write the detail to the data store")
	detailCmd.Flags().String("server", "", "Queue the scrape on a running server (e.g. http://127.0.0.1:8080)")
}
