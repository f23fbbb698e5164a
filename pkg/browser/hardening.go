package browser

import (
	"encoding/json"
	"strings"
)

// hardeningTemplate runs before any page script. It swaps known analytics
// globals for no-op stand-ins and short-circuits fetch/XHR toward blocked hosts.
const hardeningTemplate = `(() => {
  const blocked = __BLOCKED__;
  const isBlocked = (raw) => {
    try {
      const host = new URL(raw, location.href).hostname.toLowerCase();
      return blocked.some((b) => host === b || host.endsWith("." + b));
    } catch (e) {
      return false;
    }
  };
  const noop = function () {};
  const define = (name, value) => {
    try {
      Object.defineProperty(window, name, { value, writable: false, configurable: false });
    } catch (e) {}
  };
  define("ga", noop);
  define("gtag", noop);
  define("fbq", noop);
  define("_fbq", noop);
  define("hj", noop);
  define("clarity", noop);
  define("_hmt", { push: noop });
  define("_paq", { push: noop });
  define("amplitude", { getInstance: () => ({ logEvent: noop, init: noop }) });
  define("mixpanel", { track: noop, init: noop, identify: noop });
  const layer = [];
  layer.push = noop;
  define("dataLayer", layer);

  const origFetch = window.fetch;
  if (origFetch) {
    window.fetch = function (input, init) {
      const target = typeof input === "string" ? input : (input && input.url) || "";
      if (isBlocked(target)) {
        return Promise.resolve(new Response("", { status: 204 }));
      }
      return origFetch.call(this, input, init);
    };
  }
  const origOpen = XMLHttpRequest.prototype.open;
  const origSend = XMLHttpRequest.prototype.send;
  XMLHttpRequest.prototype.open = function (method, target) {
    this.__blocked = isBlocked(String(target));
    return origOpen.apply(this, arguments);
  };
  XMLHttpRequest.prototype.send = function () {
    if (this.__blocked) {
      try { this.abort(); } catch (e) {}
      return;
    }
    return origSend.apply(this, arguments);
  };
  if (navigator.sendBeacon) {
    const origBeacon = navigator.sendBeacon.bind(navigator);
    navigator.sendBeacon = (target, data) => (isBlocked(String(target)) ? true : origBeacon(target, data));
  }
})();`

// HardeningScript renders the pre-navigation script for the given host list.
func HardeningScript(blockedHosts []string) string {
	if blockedHosts == nil {
		blockedHosts = []string{}
	}
	list, _ := json.Marshal(blockedHosts)
	return strings.Replace(hardeningTemplate, "__BLOCKED__", string(list), 1)
}
