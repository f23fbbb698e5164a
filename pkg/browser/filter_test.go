package browser

import (
	"strings"
	"testing"

	"github.com/go-rod/rod/lib/proto"
)

func TestFilterDecide(t *testing.T) {
	f, err := NewFilter("https://www.example-scores.co.uk/football/today", DefaultTrackingHosts)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}

	cases := []struct {
		url   string
		kind  proto.NetworkResourceType
		allow bool
	}{
		{"https://www.example-scores.co.uk/app.js", proto.NetworkResourceTypeScript, true},
		{"https://cdn.example-scores.co.uk/logo.png", proto.NetworkResourceTypeImage, true},
		{"https://api.example-scores.co.uk/v1/list", proto.NetworkResourceTypeXHR, true},
		{"https://www.google-analytics.com/collect", proto.NetworkResourceTypeXHR, false},
		{"https://region1.google-analytics.com/g/collect", proto.NetworkResourceTypeScript, false},
		{"https://static.hotjar.com/c/hotjar.js", proto.NetworkResourceTypeScript, false},
		{"https://www.example-scores.co.uk/next", proto.NetworkResourceTypePrefetch, false},
		{"https://www.example-scores.co.uk/beacon", proto.NetworkResourceTypePing, false},
		{"https://fonts.thirdparty.net/a.woff2", proto.NetworkResourceTypeFont, false},
		{"https://img.thirdparty.net/crest.svg", proto.NetworkResourceTypeImage, false},
		{"https://styles.thirdparty.net/x.css", proto.NetworkResourceTypeStylesheet, false},
		{"https://widgets.thirdparty.net/odds.js", proto.NetworkResourceTypeScript, true},
		{"data:image/png;base64,AAAA", proto.NetworkResourceTypeImage, true},
	}
	for _, c := range cases {
		got := f.Decide(c.url, c.kind)
		if got.Allow != c.allow {
			t.Errorf("Decide(%s, %s) = %+v, want allow=%v", c.url, c.kind, got, c.allow)
		}
	}
}

func TestFilterLocalhostIsFirstParty(t *testing.T) {
	f, err := NewFilter("http://127.0.0.1:8080/", nil)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	if d := f.Decide("http://127.0.0.1:8080/crest.png", proto.NetworkResourceTypeImage); !d.Allow {
		t.Fatalf("expected same-host image to pass, got %+v", d)
	}
	if d := f.Decide("http://10.0.0.2/crest.png", proto.NetworkResourceTypeImage); d.Allow {
		t.Fatalf("expected other-host image to be blocked, got %+v", d)
	}
}

func TestHardeningScript(t *testing.T) {
	js := HardeningScript([]string{"hotjar.com", "clarity.ms"})
	if strings.Contains(js, "__BLOCKED__") {
		t.Fatal("placeholder was not substituted")
	}
	if !strings.Contains(js, `["hotjar.com","clarity.ms"]`) {
		t.Fatalf("host list missing from script")
	}
	if !strings.Contains(HardeningScript(nil), "const blocked = [];") {
		t.Fatal("nil host list should render as an empty array")
	}
}
