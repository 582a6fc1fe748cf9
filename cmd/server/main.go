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

	"admin-console/internal/config"
	"admin-console/internal/factory"
	"admin-console/internal/handler"
	"admin-console/internal/util"

	"golang.org/x/sync/errgroup"
)

const (
	janitorInterval = time.Minute
	shutdownTimeout = 30 * time.Second
)

// listener is one server plus how to start it.
type listener struct {
	name  string
	srv   *http.Server
	serve func(*http.Server) error
}

func main() {
	f, err := factory.NewFactory()
	if err != nil {
		util.Fatal("Failed to initialize factory", util.ErrorField(err))
	}
	defer f.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, f); err != nil {
		util.Error("Admin console stopped with error", util.ErrorField(err))
		f.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, f *factory.Factory) error {
	cfg := f.Config()
	logStartupHealth(ctx, f)

	router := setupRouter(f)
	go f.ServiceFactory().LoginService().RunJanitor(ctx, janitorInterval)

	listeners := buildListeners(f, cfg, router)

	g, gctx := errgroup.WithContext(ctx)
	for _, l := range listeners {
		l := l
		g.Go(func() error {
			util.Info("Listening", util.String("listener", l.name), util.String("address", l.srv.Addr))
			if err := l.serve(l.srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("%s listener: %w", l.name, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		util.Info("Shutting down listeners")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, l := range listeners {
			if err := l.srv.Shutdown(shutdownCtx); err != nil {
				util.Error("Failed to shutdown listener gracefully", util.String("listener", l.name), util.ErrorField(err))
			}
		}
		return nil
	})

	util.Info("Admin console started",
		util.String("environment", cfg.Environment),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.String("upstream", cfg.Upstream.BaseURL),
	)
	return g.Wait()
}

func logStartupHealth(ctx context.Context, f *factory.Factory) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for backend, err := range f.HealthCheck(ctx) {
		util.Warn("Backend unhealthy at startup", util.String("backend", backend), util.ErrorField(err))
	}
}

// setupRouter creates the HTTP router with all handlers using Chi
func setupRouter(f *factory.Factory) http.Handler {
	cfg := f.Config()
	serviceFactory := f.ServiceFactory()
	logger := util.Named("http")
	loginHandler := handler.NewLoginHandler(serviceFactory.LoginService(), cfg.Login.LoginRedirectURL, logger)
	adminHandler := handler.NewAdminHandler(serviceFactory.AdminService(), loginHandler, cfg, logger)
	return handler.NewRouter(cfg, loginHandler, adminHandler, logger)
}

// buildListeners returns plain HTTP when TLS is off, HTTPS on the TLS port
// otherwise, and in production with autocert the ACME challenge server on
// :80 next to HTTPS on :443.
func buildListeners(f *factory.Factory, cfg *config.Config, router http.Handler) []listener {
	newServer := func(addr string, h http.Handler) *http.Server {
		return &http.Server{
			Addr:         addr,
			Handler:      h,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		}
	}
	serveHTTP := func(s *http.Server) error { return s.ListenAndServe() }
	// certificates come from TLSConfig.GetCertificate
	serveTLS := func(s *http.Server) error { return s.ListenAndServeTLS("", "") }

	if !cfg.Server.EnableTLS {
		util.Warn("TLS is disabled", util.Int("port", cfg.Server.Port))
		return []listener{{name: "http", srv: newServer(cfg.GetServerAddress(), router), serve: serveHTTP}}
	}

	tlsManager := f.TLSManager()
	if cfg.IsProduction() && cfg.Server.AutoCert {
		acme := tlsManager.GetAutocertManager()
		if acme == nil {
			util.Fatal("AutoCert manager is not available in production")
		}
		https := newServer(":443", router)
		https.TLSConfig = tlsManager.GetTLSConfig()
		return []listener{
			{name: "acme", srv: newServer(":80", acme.HTTPHandler(nil)), serve: serveHTTP},
			{name: "https", srv: https, serve: serveTLS},
		}
	}

	https := newServer(fmt.Sprintf(":%d", cfg.Server.TLSPort), router)
	https.TLSConfig = tlsManager.GetTLSConfig()
	return []listener{{name: "https", srv: https, serve: serveTLS}}
}
