package cmd

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sw33tLie/matchfeed/internal/utils"
	"github.com/sw33tLie/matchfeed/pkg/browser"
	"github.com/sw33tLie/matchfeed/pkg/matches"
	"github.com/sw33tLie/matchfeed/pkg/storage"
)

func testCommand(proxy string) *cobra.Command {
	c := &cobra.Command{Use: "test"}
	c.Flags().String("proxy", proxy, "")
	return c
}

func TestLoadSettings(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	setDefaults()

	if _, err := loadSettings(testCommand("")); err == nil {
		t.Fatal("expected an error without site.base_url")
	}

	viper.Set("site.base_url", "https://scores.example.com")
	viper.Set("site.timezone", "Europe/Madrid")
	viper.Set("scheduler.locales", []string{"tr, en"})
	viper.Set("scheduler.views", "today")
	viper.Set("browser.tracking_hosts", []string{"ads.example.net"})
	viper.Set("queue.cooldown", "5s")
	viper.Set("storage.dir", t.TempDir())

	s, err := loadSettings(testCommand("http://127.0.0.1:3128"))
	if err != nil {
		t.Fatal(err)
	}
	if s.loc.String() != "Europe/Madrid" {
		t.Fatalf("timezone: got %s", s.loc)
	}
	if len(s.locales) != 2 || s.locales[0] != "tr" || s.locales[1] != "en" {
		t.Fatalf("locales: got %v", s.locales)
	}
	if len(s.views) != 1 || s.views[0] != matches.ViewToday {
		t.Fatalf("views: got %v", s.views)
	}
	if s.queue.Cooldown != 5*time.Second {
		t.Fatalf("cooldown: got %s", s.queue.Cooldown)
	}
	if s.browser.Proxy != "http://127.0.0.1:3128" {
		t.Fatalf("proxy: got %q", s.browser.Proxy)
	}
	if got := len(s.browser.TrackingHosts); got != len(browser.DefaultTrackingHosts)+1 {
		t.Fatalf("tracking hosts: got %d entries", got)
	}
	if s.harvest.MaxIterations != 400 || s.browser.NavTimeout != browser.DefaultNavTimeout {
		t.Fatalf("defaults not applied: %+v %+v", s.harvest, s.browser)
	}
	if s.site.ListPath != matches.DefaultListPath {
		t.Fatalf("list path: got %q", s.site.ListPath)
	}

	viper.Set("scheduler.views", "yesterday")
	if _, err := loadSettings(testCommand("")); err == nil {
		t.Fatal("expected an error for an unknown view")
	}
}

func TestOpenSaveStoreRespectsServeLock(t *testing.T) {
	cfg := &settings{storage: storage.Options{Dir: t.TempDir()}}

	held, err := utils.NewDirLock(cfg.storage.Dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := held.TryLock(); err != nil {
		t.Fatal(err)
	}
	if _, _, err := openSaveStore(cfg); !errors.Is(err, utils.ErrLocked) {
		t.Fatalf("got %v, want ErrLocked", err)
	}
	if err := held.Unlock(); err != nil {
		t.Fatal(err)
	}

	store, unlock, err := openSaveStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if store.Dir() != cfg.storage.Dir {
		t.Fatalf("dir: got %s", store.Dir())
	}
	if _, _, err := openSaveStore(cfg); !errors.Is(err, utils.ErrLocked) {
		t.Fatalf("second save run: got %v, want ErrLocked", err)
	}
	unlock()
}
