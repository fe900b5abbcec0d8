package offline

import (
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Route is the branch of the routing policy a request falls into.
type Route int

const (
	// RoutePassThrough requests go to the network and never touch a store.
	RoutePassThrough Route = iota
	RouteNavigation
	RouteAPI
	RouteAsset
)

func (r Route) String() string {
	switch r {
	case RouteNavigation:
		return "navigation"
	case RouteAPI:
		return "api"
	case RouteAsset:
		return "asset"
	default:
		return "pass-through"
	}
}

// Classify decides which branch handles req. The checks run in a fixed
// order: exclusion filter, document bypass, malformed url, then the mode
// and path based branches.
func (c Config) Classify(req *http.Request) Route {
	if req == nil || req.URL == nil {
		return RoutePassThrough
	}
	raw := req.URL.String()
	if c.excluded(raw) {
		return RoutePassThrough
	}
	u, err := url.Parse(raw)
	if err == nil && c.bypassed(u.Path) {
		return RoutePassThrough
	}
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return RoutePassThrough
	}
	if isNavigation(req) && (req.Method == "" || req.Method == http.MethodGet) {
		return RouteNavigation
	}
	if strings.HasPrefix(u.Path, c.APIPathPrefix) {
		return RouteAPI
	}
	return RouteAsset
}

func (c Config) excluded(raw string) bool {
	lower := strings.ToLower(raw)
	for _, scheme := range c.ExcludedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	for _, host := range c.ExcludedHostSubstrings {
		if strings.Contains(raw, host) {
			return true
		}
	}
	return false
}

func (c Config) bypassed(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return false
	}
	for _, b := range c.BypassExtensions {
		if ext == b {
			return true
		}
	}
	return false
}

// isNavigation reports whether req is a top-level document load.
func isNavigation(req *http.Request) bool {
	return strings.EqualFold(req.Header.Get("Sec-Fetch-Mode"), "navigate")
}

var textMarkers = []string{"text", "javascript", "json", "css", "svg", "html"}

// isTextAsset reports whether a response with this content type and body
// may be kept in the runtime store. An absent content type is sniffed.
func isTextAsset(contentType string, body []byte) bool {
	if contentType == "" && len(body) > 0 {
		contentType = mimetype.Detect(body).String()
	}
	contentType = strings.ToLower(contentType)
	for _, m := range textMarkers {
		if strings.Contains(contentType, m) {
			return true
		}
	}
	return false
}

// isBasic reports whether resp is a same-origin, non-redirected answer to
// req, the only kind whose contents may be cached.
func isBasic(origin *url.URL, req *http.Request, resp *http.Response) bool {
	final := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL
	}
	if final.String() != req.URL.String() {
		return false
	}
	return strings.EqualFold(final.Scheme, origin.Scheme) && strings.EqualFold(final.Host, origin.Host)
}

// cacheKey identifies req in a store. GET requests use the bare URL.
func cacheKey(req *http.Request) string {
	if req.Method == "" || req.Method == http.MethodGet {
		return req.URL.String()
	}
	return req.Method + " " + req.URL.String()
}
