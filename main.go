package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	cfg, err := loadConfig(viper.New())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("Server stopped", zap.Error(err))
	}
}

func run(cfg *Config, log *zap.Logger) error {
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	owner := cfg.SMTP.To
	if owner == "" {
		owner = cfg.Site.OwnerEmail
	}
	contact := &contactService{
		mailer:     newSMTPMailer(cfg.SMTP),
		owner:      cfg.Site.Owner,
		ownerEmail: owner,
		log:        log.Named("contact"),
	}

	site := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           newSiteRouter(cfg.Site, contact, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	servers := []*http.Server{site}
	errc := make(chan error, 2)
	serve := func(name string, srv *http.Server) {
		log.Info("Starting server", zap.String("server", name), zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("%s server: %w", name, err)
		}
	}
	go serve("site", site)

	var e *edge
	if cfg.Edge.Enabled {
		storage, err := openCacheStorage(ctx, cfg.Cache, cfg.Redis)
		if err != nil {
			return fmt.Errorf("open cache storage: %w", err)
		}
		defer storage.Close()

		origin := cfg.Edge.Origin
		if origin == "" {
			origin = "http://127.0.0.1:" + cfg.Server.Port
		}
		oc, err := offlineConfig(cfg.Cache, origin)
		if err != nil {
			return err
		}
		e = newEdge(oc, storage, nil, log)
		if err := waitForOrigin(ctx, origin+"/healthz"); err != nil {
			log.Warn("Origin not ready, shell precache may be incomplete", zap.Error(err))
		}
		if err := e.Start(ctx); err != nil {
			return fmt.Errorf("start edge: %w", err)
		}

		admin, err := newAdminHandler(cfg.Admin, e, log)
		if err != nil {
			return fmt.Errorf("admin: %w", err)
		}
		edgeSrv := &http.Server{
			Addr:              ":" + cfg.Edge.Port,
			Handler:           newEdgeRouter(e, admin, log),
			ReadHeaderTimeout: 10 * time.Second,
		}
		servers = append(servers, edgeSrv)
		go serve("edge", edgeSrv)
	}

	select {
	case <-ctx.Done():
		log.Info("Shutting down servers")
	case err := <-errc:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server forced to shutdown", zap.String("addr", srv.Addr), zap.Error(err))
		}
	}
	if e != nil {
		e.Wait()
	}
	log.Info("Servers exited")
	return nil
}

// waitForOrigin polls url until it answers or five seconds pass.
func waitForOrigin(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			resp.Body.Close()
			return nil
		}
		select {
		case <-ctx.Done():
			return err
		case <-ticker.C:
		}
	}
}
