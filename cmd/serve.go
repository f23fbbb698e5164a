package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sw33tLie/matchfeed/internal/server"
	"github.com/sw33tLie/matchfeed/internal/utils"
	"github.com/sw33tLie/matchfeed/pkg/browser"
	"github.com/sw33tLie/matchfeed/pkg/extract"
	"github.com/sw33tLie/matchfeed/pkg/harvest"
	"github.com/sw33tLie/matchfeed/pkg/queue"
	"github.com/sw33tLie/matchfeed/pkg/scheduler"
	"github.com/sw33tLie/matchfeed/pkg/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the refresh scheduler, the scrape queue and the JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("listen") {
			listen, _ := cmd.Flags().GetString("listen")
			viper.Set("server.listen", listen)
		}
		noSchedule, _ := cmd.Flags().GetBool("no-schedule")

		lock, err := utils.NewDirLock(cfg.storage.Dir)
		if err != nil {
			return err
		}
		if err := lock.TryLock(); err != nil {
			return err
		}
		defer lock.Unlock()

		store, err := storage.Open(cfg.storage)
		if err != nil {
			return err
		}

		ctrl := browser.NewController(cfg.browser)
		defer ctrl.Close()

		q := queue.New(cfg.queue)
		defer q.Close()

		sched, err := scheduler.New(scheduler.Config{
			Harvester: harvest.New(ctrl, cfg.site, cfg.loc, cfg.harvest, utils.Log),
			Extractor: extract.New(ctrl, cfg.site, cfg.loc, cfg.extract, utils.Log),
			Store:     store,
			Queue:     q,
			Locales:   cfg.locales,
			Views:     cfg.views,
			Interval:  cfg.interval,
			TopN:      cfg.topN,
			Log:       utils.Log,
		})
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if noSchedule {
			utils.Log.Info("Scheduler disabled, refreshes only run when triggered through the API")
		} else {
			if err := sched.Start(ctx); err != nil {
				return err
			}
			defer sched.Stop()
		}

		srv := server.New(store, sched, q, utils.Log)
		srv.Username = viper.GetString("server.username")
		srv.Password = viper.GetString("server.password")
		return srv.Start(ctx, viper.GetString("server.listen"))
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address (overrides server.listen)")
	serveCmd.Flags().Bool("no-schedule", false, "Do not run periodic refreshes")
}
