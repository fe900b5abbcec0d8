// Package offline implements the caching controller that sits between the
// portfolio pages and the network. It precaches the app shell, purges
// stores left behind by older versions and routes every request through a
// navigation, network-first or cache-first policy so the site keeps working
// when the origin cannot be reached.
package offline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// ErrInvalidState is returned when a lifecycle step is triggered out of order.
var ErrInvalidState = errors.New("invalid controller state")

// State is the controller lifecycle state.
type State int

const (
	StateParsed State = iota
	StateInstalling
	StateInstalled
	StateActivating
	StateActive
	// StateRedundant controllers were superseded or failed to install and
	// only forward requests.
	StateRedundant
)

func (s State) String() string {
	switch s {
	case StateParsed:
		return "parsed"
	case StateInstalling:
		return "installing"
	case StateInstalled:
		return "installed"
	case StateActivating:
		return "activating"
	case StateActive:
		return "active"
	case StateRedundant:
		return "redundant"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

const writeTimeout = 10 * time.Second

// Controller is an http.RoundTripper that answers requests from its cache
// stores or from network according to the routing policy in Config.
type Controller struct {
	cfg     Config
	storage CacheStorage
	network http.RoundTripper
	log     *zap.Logger

	mu      sync.RWMutex
	state   State
	shell   Store
	runtime Store

	writes conc.WaitGroup
}

// New builds a controller in the parsed state. A nil network uses
// http.DefaultTransport and a nil logger discards output.
func New(cfg Config, storage CacheStorage, network http.RoundTripper, log *zap.Logger) (*Controller, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, fmt.Errorf("offline config: %w", err)
	}
	if storage == nil {
		return nil, fmt.Errorf("offline config: cache storage is required")
	}
	if network == nil {
		network = http.DefaultTransport
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		cfg:     cfg,
		storage: storage,
		network: network,
		log:     log.With(zap.String("shell", cfg.ShellVersion), zap.String("runtime", cfg.RuntimeVersion)),
	}, nil
}

func (c *Controller) Config() Config { return c.cfg }

func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.log.Debug("Controller state changed", zap.Stringer("state", s))
}

// Install opens the stores for this version and precaches the shell
// resources. A resource that cannot be fetched is logged and skipped.
func (c *Controller) Install(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateParsed {
		c.mu.Unlock()
		return fmt.Errorf("install from %s: %w", c.state, ErrInvalidState)
	}
	c.state = StateInstalling
	c.mu.Unlock()

	shell, err := c.storage.Open(ctx, c.cfg.ShellVersion)
	if err != nil {
		c.setState(StateRedundant)
		return fmt.Errorf("open shell store: %w", err)
	}
	runtime, err := c.storage.Open(ctx, c.cfg.RuntimeVersion)
	if err != nil {
		c.setState(StateRedundant)
		return fmt.Errorf("open runtime store: %w", err)
	}

	cached := 0
	for _, resource := range c.cfg.ShellResources {
		if err := ctx.Err(); err != nil {
			c.setState(StateRedundant)
			return err
		}
		if err := c.precache(ctx, shell, resource); err != nil {
			c.log.Warn("Static caching failed", zap.String("resource", resource), zap.Error(err))
			continue
		}
		cached++
	}

	c.mu.Lock()
	c.shell, c.runtime = shell, runtime
	c.state = StateInstalled
	c.mu.Unlock()
	c.log.Info("Controller installed",
		zap.Int("shellResources", len(c.cfg.ShellResources)),
		zap.Int("cached", cached))
	return nil
}

func (c *Controller) precache(ctx context.Context, shell Store, resource string) error {
	target := c.cfg.resolve(resource)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	resp, err := c.network.RoundTrip(req)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	entry, err := capture(resp)
	if err != nil {
		return err
	}
	return shell.Put(ctx, cacheKey(req), entry)
}

// Activate deletes every store that belongs to neither active version and
// starts routing requests.
func (c *Controller) Activate(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateInstalled {
		c.mu.Unlock()
		return fmt.Errorf("activate from %s: %w", c.state, ErrInvalidState)
	}
	c.state = StateActivating
	c.mu.Unlock()

	names, err := c.storage.Keys(ctx)
	if err != nil {
		c.setState(StateInstalled)
		return fmt.Errorf("list stores: %w", err)
	}
	for _, name := range names {
		if name == c.cfg.ShellVersion || name == c.cfg.RuntimeVersion {
			continue
		}
		if _, err := c.storage.Delete(ctx, name); err != nil {
			c.setState(StateInstalled)
			return fmt.Errorf("delete store %s: %w", name, err)
		}
		c.log.Info("Deleted orphaned cache store", zap.String("store", name))
	}

	c.setState(StateActive)
	return nil
}

// Supersede retires the controller. Pending writes are left to finish.
func (c *Controller) Supersede() {
	c.setState(StateRedundant)
}

// Wait blocks until every background cache write has finished.
func (c *Controller) Wait() {
	c.writes.Wait()
}

// RoundTrip implements http.RoundTripper.
func (c *Controller) RoundTrip(req *http.Request) (*http.Response, error) {
	if c.State() != StateActive {
		return c.network.RoundTrip(req)
	}
	switch c.cfg.Classify(req) {
	case RouteNavigation:
		return c.navigate(req)
	case RouteAPI:
		return c.networkFirst(req)
	case RouteAsset:
		return c.cacheFirst(req)
	default:
		return c.network.RoundTrip(req)
	}
}

func (c *Controller) navigate(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	rootKey := c.cfg.resolve(c.cfg.RootDocument)
	if e := c.match(ctx, rootKey); e != nil {
		return e.Response(req), nil
	}

	resp, err := c.fetch(req)
	if err == nil && resp.StatusCode == http.StatusOK {
		err = c.keep(req, resp)
	}
	if err != nil {
		if e := c.match(ctx, rootKey); e != nil {
			return e.Response(req), nil
		}
		c.log.Warn("Navigation failed with no cached document", zap.String("url", req.URL.String()), zap.Error(err))
		return offlineResponse(req), nil
	}
	return resp, nil
}

func (c *Controller) networkFirst(req *http.Request) (*http.Response, error) {
	resp, err := c.fetch(req)
	if err == nil && resp.StatusCode == http.StatusOK {
		err = c.keep(req, resp)
	}
	if err != nil {
		if e := c.matchRequest(req); e != nil {
			return e.Response(req), nil
		}
		return nil, err
	}
	return resp, nil
}

func (c *Controller) cacheFirst(req *http.Request) (*http.Response, error) {
	if e := c.matchRequest(req); e != nil {
		return e.Response(req), nil
	}

	resp, err := c.fetch(req)
	if err != nil {
		c.log.Warn("Fetch failed", zap.String("url", req.URL.String()), zap.Error(err))
		return offlineResponse(req), nil
	}
	if resp.StatusCode != http.StatusOK || !isBasic(c.cfg.Origin, req, resp) {
		return resp, nil
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !isTextAsset(contentType, nil) {
		return resp, nil
	}
	entry, err := capture(resp)
	if err != nil {
		c.log.Warn("Fetch failed", zap.String("url", req.URL.String()), zap.Error(err))
		return offlineResponse(req), nil
	}
	if isTextAsset(contentType, entry.Body) {
		c.write(req, entry)
	}
	return resp, nil
}

func (c *Controller) fetch(req *http.Request) (*http.Response, error) {
	resp, err := c.network.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("no response for %s", req.URL)
	}
	return resp, nil
}

// keep copies a successful response into the runtime store.
func (c *Controller) keep(req *http.Request, resp *http.Response) error {
	if req.Method != http.MethodGet && req.Method != "" {
		return nil
	}
	entry, err := capture(resp)
	if err != nil {
		return err
	}
	c.write(req, entry)
	return nil
}

// write stores entry in the background, detached from the request's
// cancellation. Failures are only logged.
func (c *Controller) write(req *http.Request, entry *Entry) {
	if req.Method != http.MethodGet && req.Method != "" {
		return
	}
	c.mu.RLock()
	runtime := c.runtime
	c.mu.RUnlock()
	key := cacheKey(req)
	parent := context.WithoutCancel(req.Context())

	c.writes.Go(func() {
		ctx, cancel := context.WithTimeout(parent, writeTimeout)
		defer cancel()
		if err := runtime.Put(ctx, key, entry); err != nil {
			c.log.Debug("Cache write failed", zap.String("key", key), zap.Error(err))
			return
		}
		if c.cfg.RuntimeMaxEntries > 0 {
			n, err := runtime.Evict(ctx, c.cfg.RuntimeMaxEntries)
			if err != nil {
				c.log.Debug("Cache eviction failed", zap.Error(err))
			} else if n > 0 {
				c.log.Debug("Evicted runtime entries", zap.Int("count", n))
			}
		}
	})
}

func (c *Controller) matchRequest(req *http.Request) *Entry {
	if req.Method != http.MethodGet && req.Method != "" {
		return nil
	}
	return c.match(req.Context(), cacheKey(req))
}

// match looks key up in the shell store, then the runtime store. Lookup
// errors count as misses.
func (c *Controller) match(ctx context.Context, key string) *Entry {
	c.mu.RLock()
	stores := []Store{c.shell, c.runtime}
	c.mu.RUnlock()
	for _, s := range stores {
		if s == nil {
			continue
		}
		e, err := s.Match(ctx, key)
		if err != nil {
			c.log.Debug("Cache lookup failed", zap.String("store", s.Name()), zap.String("key", key), zap.Error(err))
			continue
		}
		if e != nil {
			return e
		}
	}
	return nil
}
