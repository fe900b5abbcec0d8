package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kkpolisetty/portfolio/offline"
)

var errStoreInUse = errors.New("cache store is in use by the active controller")

// StoreInfo describes one named cache store for the admin API.
type StoreInfo struct {
	Name    string `json:"name"`
	Entries int    `json:"entries"`
	Active  bool   `json:"active"`
}

// edge is the caching proxy in front of the origin site. Every proxied
// request goes through the current offline.Controller; a new version is
// rolled out with Upgrade.
type edge struct {
	origin  *url.URL
	base    offline.Config
	storage offline.CacheStorage
	network http.RoundTripper
	log     *zap.Logger

	mu      sync.Mutex
	current atomic.Pointer[offline.Controller]
	retired []*offline.Controller

	proxy *httputil.ReverseProxy
}

func newEdge(base offline.Config, storage offline.CacheStorage, network http.RoundTripper, log *zap.Logger) *edge {
	if network == nil {
		network = http.DefaultTransport
	}
	e := &edge{
		origin:  base.Origin,
		base:    base,
		storage: storage,
		network: network,
		log:     log.Named("edge"),
	}
	e.proxy = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(e.origin)
			pr.SetXForwarded()
		},
		Transport: e,
		ErrorLog:  zap.NewStdLog(e.log),
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			e.log.Warn("Upstream unavailable", zap.String("url", r.URL.String()), zap.Error(err))
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("Upstream unavailable"))
		},
	}
	return e
}

// Start installs and activates the configured cache versions.
func (e *edge) Start(ctx context.Context) error {
	return e.Upgrade(ctx, e.base.ShellVersion, e.base.RuntimeVersion)
}

// Upgrade rolls out a controller for the given store versions. The running
// controller keeps serving until the new one is active, and a failed
// install leaves it in place.
func (e *edge) Upgrade(ctx context.Context, shell, runtime string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg := e.base
	cfg.ShellVersion = shell
	cfg.RuntimeVersion = runtime
	next, err := offline.New(cfg, e.storage, e.network, e.log)
	if err != nil {
		return err
	}
	if err := next.Install(ctx); err != nil {
		return fmt.Errorf("install %s/%s: %w", shell, runtime, err)
	}
	if err := next.Activate(ctx); err != nil {
		return fmt.Errorf("activate %s/%s: %w", shell, runtime, err)
	}

	if prev := e.current.Swap(next); prev != nil {
		prev.Supersede()
		e.retired = append(e.retired, prev)
		go e.release(prev)
	}
	e.log.Info("Cache versions activated", zap.String("shell", shell), zap.String("runtime", runtime))
	return nil
}

// release drops a superseded controller once its pending writes finish.
func (e *edge) release(c *offline.Controller) {
	c.Wait()
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, r := range e.retired {
		if r == c {
			e.retired = append(e.retired[:i], e.retired[i+1:]...)
			return
		}
	}
}

// Controller returns the active controller, or nil before Start.
func (e *edge) Controller() *offline.Controller {
	return e.current.Load()
}

// RoundTrip implements http.RoundTripper for the reverse proxy.
func (e *edge) RoundTrip(req *http.Request) (*http.Response, error) {
	if c := e.current.Load(); c != nil {
		return c.RoundTrip(req)
	}
	return e.network.RoundTrip(req)
}

func (e *edge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.proxy.ServeHTTP(w, r)
}

// Stores lists every cache store with its entry count.
func (e *edge) Stores(ctx context.Context) ([]StoreInfo, error) {
	names, err := e.storage.Keys(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	active := e.activeStores()
	infos := make([]StoreInfo, 0, len(names))
	for _, name := range names {
		store, err := e.storage.Open(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("open store %s: %w", name, err)
		}
		n, err := store.Len(ctx)
		if err != nil {
			return nil, fmt.Errorf("count store %s: %w", name, err)
		}
		infos = append(infos, StoreInfo{Name: name, Entries: n, Active: active[name]})
	}
	return infos, nil
}

// DeleteStore removes a store that the active controller does not use.
func (e *edge) DeleteStore(ctx context.Context, name string) error {
	if e.activeStores()[name] {
		return errStoreInUse
	}
	deleted, err := e.storage.Delete(ctx, name)
	if err != nil {
		return err
	}
	if !deleted {
		return offline.ErrStoreNotFound
	}
	e.log.Info("Deleted cache store", zap.String("store", name))
	return nil
}

func (e *edge) activeStores() map[string]bool {
	c := e.current.Load()
	if c == nil {
		return nil
	}
	cfg := c.Config()
	return map[string]bool{cfg.ShellVersion: true, cfg.RuntimeVersion: true}
}

// Wait blocks until every controller has flushed its background writes.
func (e *edge) Wait() {
	e.mu.Lock()
	controllers := append([]*offline.Controller{}, e.retired...)
	e.mu.Unlock()
	if c := e.current.Load(); c != nil {
		controllers = append(controllers, c)
	}
	for _, c := range controllers {
		c.Wait()
	}
}

func newEdgeRouter(e *edge, admin *adminHandler, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log.Named("edge")))
	admin.register(r)
	r.NoRoute(gin.WrapH(e))
	return r
}

// offlineConfig maps the cache settings onto the controller config. Unset
// lists fall back to offline.Default.
func offlineConfig(cfg CacheConfig, origin string) (offline.Config, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return offline.Config{}, fmt.Errorf("parse edge origin: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return offline.Config{}, fmt.Errorf("edge origin %q must be an absolute url", origin)
	}

	oc := offline.Default()
	oc.Origin = u
	if cfg.ShellVersion != "" {
		oc.ShellVersion = cfg.ShellVersion
	}
	if cfg.RuntimeVersion != "" {
		oc.RuntimeVersion = cfg.RuntimeVersion
	}
	if len(cfg.ShellResources) > 0 {
		oc.ShellResources = cfg.ShellResources
	}
	if cfg.RootDocument != "" {
		oc.RootDocument = cfg.RootDocument
	}
	if cfg.APIPathPrefix != "" {
		oc.APIPathPrefix = cfg.APIPathPrefix
	}
	if cfg.ExcludedHosts != nil {
		oc.ExcludedHostSubstrings = cfg.ExcludedHosts
	}
	if cfg.BypassExtensions != nil {
		oc.BypassExtensions = cfg.BypassExtensions
	}
	oc.RuntimeMaxEntries = cfg.RuntimeMaxEntries
	return oc, nil
}

// openCacheStorage opens the configured backend. The caller closes it.
func openCacheStorage(ctx context.Context, cfg CacheConfig, rc RedisConfig) (offline.CacheStorage, error) {
	switch cfg.Backend {
	case "", "memory":
		return offline.NewMemoryStorage(), nil
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create cache dir: %w", err)
			}
		}
		s, err := offline.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		s, err := offline.DialRedis(ctx, rc.Addr, rc.Password, rc.DB, rc.Prefix)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
}
