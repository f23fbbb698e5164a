package browser

import (
	"net"
	"net/url"
	"strings"

	"github.com/go-rod/rod/lib/proto"
	"github.com/weppos/publicsuffix-go/publicsuffix"
)

// DefaultTrackingHosts are blocked on every session regardless of type.
var DefaultTrackingHosts = []string{
	"google-analytics.com",
	"googletagmanager.com",
	"googlesyndication.com",
	"googleadservices.com",
	"doubleclick.net",
	"adservice.google.com",
	"facebook.net",
	"connect.facebook.net",
	"hotjar.com",
	"clarity.ms",
	"scorecardresearch.com",
	"criteo.com",
	"taboola.com",
	"outbrain.com",
	"segment.io",
	"amplitude.com",
	"mixpanel.com",
	"yandex.ru",
}

// Decision is the verdict for one intercepted request.
type Decision struct {
	Allow  bool
	Reason string
}

// Filter classifies outgoing requests relative to the first-party site.
type Filter struct {
	firstParty string
	tracking   []string
}

// NewFilter builds a filter whose first party is the registrable domain of target.
func NewFilter(target string, trackingHosts []string) (*Filter, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	hosts := make([]string, 0, len(trackingHosts))
	for _, h := range trackingHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			hosts = append(hosts, h)
		}
	}
	return &Filter{firstParty: registrableDomain(u.Hostname()), tracking: hosts}, nil
}

// TrackingHosts returns the blocked host list, used by the hardening script.
func (f *Filter) TrackingHosts() []string {
	return f.tracking
}

// Decide applies the blocking rules in order: tracking hosts, noise resource
// types, third-party static assets. Everything else passes.
func (f *Filter) Decide(rawURL string, kind proto.NetworkResourceType) Decision {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Decision{Allow: false, Reason: "unparseable url"}
	}
	switch u.Scheme {
	case "data", "blob", "about":
		return Decision{Allow: true, Reason: "inline"}
	}

	host := strings.ToLower(u.Hostname())
	if f.isTracking(host) {
		return Decision{Allow: false, Reason: "tracking host"}
	}

	switch kind {
	case proto.NetworkResourceTypePrefetch, proto.NetworkResourceTypePing,
		proto.NetworkResourceTypeCSPViolationReport, proto.NetworkResourceTypeOther:
		return Decision{Allow: false, Reason: "noise resource type"}
	}

	if registrableDomain(host) == f.firstParty {
		return Decision{Allow: true, Reason: "first party"}
	}

	switch kind {
	case proto.NetworkResourceTypeImage, proto.NetworkResourceTypeFont,
		proto.NetworkResourceTypeMedia, proto.NetworkResourceTypeStylesheet:
		return Decision{Allow: false, Reason: "third-party asset"}
	}
	return Decision{Allow: true, Reason: "third-party " + strings.ToLower(string(kind))}
}

func (f *Filter) isTracking(host string) bool {
	for _, t := range f.tracking {
		if host == t || strings.HasSuffix(host, "."+t) {
			return true
		}
	}
	return false
}

func registrableDomain(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" || net.ParseIP(host) != nil || !strings.Contains(host, ".") {
		return host
	}
	d, err := publicsuffix.Domain(host)
	if err != nil {
		return host
	}
	return d
}
