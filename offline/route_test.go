package offline

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cfg, err := testConfig(t).withDefaults()
	require.NoError(t, err)

	tests := []struct {
		name     string
		target   string
		navigate bool
		want     Route
	}{
		{"extension scheme", "chrome-extension://abcdef/script.js", false, RoutePassThrough},
		{"browser internal", "chrome://settings", false, RoutePassThrough},
		{"about blank", "about:blank", false, RoutePassThrough},
		{"inline data", "data:text/plain;base64,aGk=", false, RoutePassThrough},
		{"tracker", "https://www.google-analytics.com/g/collect?v=2", false, RoutePassThrough},
		{"logo service", "https://logo.clearbit.com/ibm.com", false, RoutePassThrough},
		{"resume", origin + "/kamal-resume.pdf", false, RoutePassThrough},
		{"resume navigation", origin + "/kamal-resume.pdf", true, RoutePassThrough},
		{"non http scheme", "ftp://portfolio.test/file.txt", false, RoutePassThrough},
		{"navigation", origin + "/", true, RouteNavigation},
		{"navigation deep link", origin + "/projects?tab=web", true, RouteNavigation},
		{"api", origin + "/api/projects", false, RouteAPI},
		{"api prefix only", origin + "/apis/list", false, RouteAsset},
		{"asset", origin + "/assets/js/index-abc123.js", false, RouteAsset},
		{"cross origin asset", "https://images.pexels.com/photos/1.jpeg", false, RouteAsset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.target)
			require.NoError(t, err)
			req := &http.Request{Method: http.MethodGet, URL: u, Header: make(http.Header)}
			if tt.navigate {
				req.Header.Set("Sec-Fetch-Mode", "navigate")
			}
			assert.Equal(t, tt.want, cfg.Classify(req))
		})
	}
}

func TestClassifyOnlyGETNavigates(t *testing.T) {
	cfg, err := testConfig(t).withDefaults()
	require.NoError(t, err)

	tests := []struct {
		method string
		target string
		want   Route
	}{
		{"", origin + "/about", RouteNavigation},
		{http.MethodGet, origin + "/about", RouteNavigation},
		{http.MethodPost, origin + "/about", RouteAsset},
		{http.MethodPost, origin + "/api/contact", RouteAPI},
		{http.MethodPost, origin + "/resume.pdf", RoutePassThrough},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.target)
		require.NoError(t, err)
		req := &http.Request{Method: tt.method, URL: u, Header: make(http.Header)}
		req.Header.Set("Sec-Fetch-Mode", "navigate")
		assert.Equal(t, tt.want, cfg.Classify(req), tt.method+" "+tt.target)
	}
}

func TestIsTextAsset(t *testing.T) {
	for _, ct := range []string{
		"text/plain",
		"text/html; charset=utf-8",
		"application/javascript",
		"text/javascript",
		"application/json",
		"application/manifest+json",
		"text/css",
		"image/svg+xml",
	} {
		assert.True(t, isTextAsset(ct, nil), ct)
	}
	for _, ct := range []string{
		"image/png",
		"image/jpeg",
		"font/woff2",
		"application/pdf",
		"application/octet-stream",
	} {
		assert.False(t, isTextAsset(ct, nil), ct)
	}
	assert.False(t, isTextAsset("", nil))
}

func TestIsBasic(t *testing.T) {
	o, _ := url.Parse(origin)
	req, _ := http.NewRequest(http.MethodGet, origin+"/a.js", nil)

	assert.True(t, isBasic(o, req, &http.Response{Request: req}))
	assert.True(t, isBasic(o, req, &http.Response{}))

	redirected, _ := http.NewRequest(http.MethodGet, origin+"/b.js", nil)
	assert.False(t, isBasic(o, req, &http.Response{Request: redirected}))

	foreign, _ := http.NewRequest(http.MethodGet, "https://cdn.example.com/a.js", nil)
	assert.False(t, isBasic(o, foreign, &http.Response{Request: foreign}))
}

func TestCacheKey(t *testing.T) {
	plain, _ := http.NewRequest(http.MethodGet, origin+"/api/x?q=1", nil)
	post, _ := http.NewRequest(http.MethodPost, origin+"/api/x?q=1", nil)
	assert.Equal(t, origin+"/api/x?q=1", cacheKey(plain))
	assert.Equal(t, "POST "+origin+"/api/x?q=1", cacheKey(post))
}

func TestBypassExtensionsNormalized(t *testing.T) {
	cfg := testConfig(t)
	cfg.BypassExtensions = []string{"PDF", " .docx "}
	cfg, err := cfg.withDefaults()
	require.NoError(t, err)
	assert.Equal(t, []string{".pdf", ".docx"}, cfg.BypassExtensions)
}
