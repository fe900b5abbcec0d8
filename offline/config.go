package offline

import (
	"fmt"
	"net/url"
	"strings"
)

// Config holds everything the controller needs to know about the site it
// fronts. Origin is the only required field; the rest fall back to Default.
type Config struct {
	Origin *url.URL

	ShellVersion   string
	RuntimeVersion string

	// ShellResources are root-relative URLs fetched at install time.
	ShellResources []string
	// RootDocument is served for navigation requests.
	RootDocument string
	APIPathPrefix string

	ExcludedSchemes        []string
	ExcludedHostSubstrings []string
	BypassExtensions       []string

	// RuntimeMaxEntries caps the runtime store. Zero disables eviction.
	RuntimeMaxEntries int
}

// Default returns the settings used by the portfolio site.
func Default() Config {
	return Config{
		ShellVersion:   "static-v1",
		RuntimeVersion: "dynamic-v1",
		ShellResources: []string{
			"/",
			"/index.html",
			"/manifest.json",
			"/logo.svg",
		},
		RootDocument:  "/index.html",
		APIPathPrefix: "/api/",
		ExcludedSchemes: []string{
			"chrome-extension://",
			"moz-extension://",
			"chrome://",
			"about:",
			"data:",
			"blob:",
		},
		ExcludedHostSubstrings: []string{
			"logo.clearbit.com",
			"google-analytics",
		},
		BypassExtensions:  []string{".pdf"},
		RuntimeMaxEntries: 500,
	}
}

// withDefaults fills zero fields from Default and validates the result.
func (c Config) withDefaults() (Config, error) {
	d := Default()
	if c.Origin == nil || c.Origin.Scheme == "" || c.Origin.Host == "" {
		return c, fmt.Errorf("origin must be an absolute url")
	}
	if c.ShellVersion == "" {
		c.ShellVersion = d.ShellVersion
	}
	if c.RuntimeVersion == "" {
		c.RuntimeVersion = d.RuntimeVersion
	}
	if c.ShellVersion == c.RuntimeVersion {
		return c, fmt.Errorf("shell and runtime versions must differ, both are %q", c.ShellVersion)
	}
	if c.ShellResources == nil {
		c.ShellResources = d.ShellResources
	}
	if c.RootDocument == "" {
		c.RootDocument = d.RootDocument
	}
	if c.APIPathPrefix == "" {
		c.APIPathPrefix = d.APIPathPrefix
	}
	if c.ExcludedSchemes == nil {
		c.ExcludedSchemes = d.ExcludedSchemes
	}
	if c.ExcludedHostSubstrings == nil {
		c.ExcludedHostSubstrings = d.ExcludedHostSubstrings
	}
	if c.BypassExtensions == nil {
		c.BypassExtensions = d.BypassExtensions
	}
	if c.RuntimeMaxEntries < 0 {
		return c, fmt.Errorf("runtime max entries must not be negative")
	}
	exts := make([]string, 0, len(c.BypassExtensions))
	for _, ext := range c.BypassExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	c.BypassExtensions = exts
	return c, nil
}

// resolve turns a root-relative path into an absolute URL on the origin.
func (c Config) resolve(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return c.Origin.String() + path
	}
	return c.Origin.ResolveReference(ref).String()
}
