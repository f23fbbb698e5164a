package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sw33tLie/matchfeed/internal/utils"
	"github.com/sw33tLie/matchfeed/pkg/browser"
	"github.com/sw33tLie/matchfeed/pkg/extract"
	"github.com/sw33tLie/matchfeed/pkg/harvest"
	"github.com/sw33tLie/matchfeed/pkg/matches"
	"github.com/sw33tLie/matchfeed/pkg/queue"
	"github.com/sw33tLie/matchfeed/pkg/scheduler"
	"github.com/sw33tLie/matchfeed/pkg/storage"
	"github.com/sw33tLie/matchfeed/pkg/timeutil"
	"github.com/sw33tLie/matchfeed/pkg/whttp"
)

func setDefaults() {
	viper.SetDefault("site.base_url", "")
	viper.SetDefault("site.list_path", matches.DefaultListPath)
	viper.SetDefault("site.detail_path", matches.DefaultDetailPath)
	viper.SetDefault("site.timezone", "Europe/Istanbul")

	viper.SetDefault("browser.bin", "")
	viper.SetDefault("browser.remote_url", "")
	viper.SetDefault("browser.headless", true)
	viper.SetDefault("browser.user_agent", browser.DefaultUserAgent)
	viper.SetDefault("browser.viewport_width", browser.DefaultViewportWidth)
	viper.SetDefault("browser.viewport_height", browser.DefaultViewportHeight)
	viper.SetDefault("browser.nav_timeout", browser.DefaultNavTimeout)
	viper.SetDefault("browser.tracking_hosts", []string{})

	viper.SetDefault("harvest.scroll_delay", harvest.DefaultScrollDelay)
	viper.SetDefault("harvest.max_iterations", harvest.DefaultMaxIterations)

	viper.SetDefault("queue.concurrency", queue.DefaultConcurrency)
	viper.SetDefault("queue.cooldown", queue.DefaultCooldown)

	viper.SetDefault("scheduler.interval", scheduler.DefaultInterval)
	viper.SetDefault("scheduler.top_n", scheduler.DefaultTopN)
	viper.SetDefault("scheduler.locales", []string{"en"})
	viper.SetDefault("scheduler.views", []string{string(matches.ViewToday), string(matches.ViewTomorrow)})

	viper.SetDefault("storage.dir", "")
	viper.SetDefault("storage.partition_details", false)

	viper.SetDefault("server.listen", ":8080")
	viper.SetDefault("server.username", "")
	viper.SetDefault("server.password", "")
}

// settings is the resolved configuration shared by every command.
type settings struct {
	site     matches.Site
	loc      *time.Location
	browser  browser.Config
	harvest  harvest.Options
	extract  extract.Options
	queue    queue.Options
	storage  storage.Options
	locales  []string
	views    []matches.View
	interval time.Duration
	topN     int
}

func loadSettings(cmd *cobra.Command) (*settings, error) {
	s := &settings{
		site: matches.Site{
			BaseURL:    viper.GetString("site.base_url"),
			ListPath:   viper.GetString("site.list_path"),
			DetailPath: viper.GetString("site.detail_path"),
		},
		browser: browser.Config{
			Bin:            viper.GetString("browser.bin"),
			RemoteURL:      viper.GetString("browser.remote_url"),
			Headless:       viper.GetBool("browser.headless"),
			UserAgent:      viper.GetString("browser.user_agent"),
			ViewportWidth:  viper.GetInt("browser.viewport_width"),
			ViewportHeight: viper.GetInt("browser.viewport_height"),
			NavTimeout:     viper.GetDuration("browser.nav_timeout"),
			Log:            utils.Log,
		},
		harvest: harvest.Options{
			ScrollDelay:   viper.GetDuration("harvest.scroll_delay"),
			MaxIterations: viper.GetInt("harvest.max_iterations"),
			WaitTimeout:   viper.GetDuration("browser.nav_timeout"),
		},
		extract: extract.Options{
			WaitTimeout: viper.GetDuration("browser.nav_timeout"),
		},
		queue: queue.Options{
			Concurrency: viper.GetInt("queue.concurrency"),
			Cooldown:    viper.GetDuration("queue.cooldown"),
			Log:         utils.Log,
		},
		locales:  utils.SplitList(viper.GetStringSlice("scheduler.locales")),
		interval: viper.GetDuration("scheduler.interval"),
		topN:     viper.GetInt("scheduler.top_n"),
	}
	if s.site.BaseURL == "" {
		return nil, errors.New("site.base_url is not configured (set it in the config file or MATCHFEED_SITE_BASE_URL)")
	}
	if hosts := utils.SplitList(viper.GetStringSlice("browser.tracking_hosts")); len(hosts) > 0 {
		s.browser.TrackingHosts = append(append([]string{}, browser.DefaultTrackingHosts...), hosts...)
	}
	if proxy, _ := cmd.Flags().GetString("proxy"); proxy != "" {
		s.browser.Proxy = proxy
	}

	loc, err := timeutil.LoadLocation(viper.GetString("site.timezone"))
	if err != nil {
		return nil, err
	}
	s.loc = loc

	for _, raw := range utils.SplitList(viper.GetStringSlice("scheduler.views")) {
		v, err := matches.ParseView(raw)
		if err != nil {
			return nil, fmt.Errorf("scheduler.views: %w", err)
		}
		s.views = append(s.views, v)
	}

	dir, err := utils.GetAbsDataDir(viper.GetString("storage.dir"))
	if err != nil {
		return nil, fmt.Errorf("could not resolve storage.dir: %w", err)
	}
	s.storage = storage.Options{Dir: dir, PartitionDetails: viper.GetBool("storage.partition_details")}
	return s, nil
}

// newAPIClient builds a client for a running "matchfeed serve".
func newAPIClient(cmd *cobra.Command, serverURL string) (*whttp.Client, error) {
	proxy, _ := cmd.Flags().GetString("proxy")
	return whttp.NewClient(serverURL, whttp.Options{
		Username: viper.GetString("server.username"),
		Password: viper.GetString("server.password"),
		Proxy:    proxy,
	})
}

// openSaveStore opens the data store for a one-shot --save run. It takes the
// directory lock without waiting, so a run never writes next to a serve
// process that owns the same directory.
func openSaveStore(cfg *settings) (*storage.Store, func(), error) {
	lock, err := utils.NewDirLock(cfg.storage.Dir)
	if err != nil {
		return nil, nil, err
	}
	if err := lock.TryLock(); err != nil {
		if errors.Is(err, utils.ErrLocked) {
			return nil, nil, fmt.Errorf("%w; use --server to go through the running server", err)
		}
		return nil, nil, err
	}
	store, err := storage.Open(cfg.storage)
	if err != nil {
		lock.Unlock()
		return nil, nil, err
	}
	return store, func() { lock.Unlock() }, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
