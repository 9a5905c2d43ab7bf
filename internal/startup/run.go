package startup

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/omarluq/storefront/internal/cache"
	"github.com/omarluq/storefront/internal/config"
	"github.com/omarluq/storefront/internal/di"
	"github.com/omarluq/storefront/internal/discovery"
	"github.com/omarluq/storefront/internal/health"
	"github.com/omarluq/storefront/internal/ratelimit"
	"github.com/omarluq/storefront/internal/shutdown"
	"github.com/omarluq/storefront/internal/web"
)

// ShutdownTimeout bounds the graceful stop after the run context ends.
const ShutdownTimeout = 30 * time.Second

// Run listens on the configured address and serves until ctx ends.
func (s *Startup) Run(ctx context.Context) error {
	if err := s.require(PipelineConfigured); err != nil {
		return err
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("startup: listen on %s: %w", s.cfg.Server.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the server on ln with the config watcher, health checker and
// discovery alongside, blocks until ctx ends, then stops everything in
// reverse start order.
func (s *Startup) Serve(ctx context.Context, ln net.Listener) error {
	if err := s.advance(PipelineConfigured, Running); err != nil {
		_ = ln.Close()
		return err
	}

	hooks := shutdown.NewHooks(s.log)
	root := s.container.Root()

	c, err := di.Resolve[cache.Cache](root)
	if err != nil {
		_ = ln.Close()
		return err
	}
	hooks.Add("cache", func(context.Context) error { return c.Close() })
	hooks.Add("container", s.container.ShutdownWithContext)

	if err := s.startDiscovery(ctx, hooks); err != nil {
		s.log.Warn().Err(err).Msg("discovery unavailable")
	}
	if err := s.startWatcher(ctx, hooks); err != nil {
		s.log.Warn().Err(err).Str("path", s.configPath).Msg("config hot reload disabled")
	}

	srv := web.NewServer(web.ServerOptions{
		Addr:         ln.Addr().String(),
		TLSCertFile:  s.cfg.Server.TLSCertFile,
		TLSKeyFile:   s.cfg.Server.TLSKeyFile,
		WriteTimeout: s.cfg.Server.GetTimeoutOption().OrEmpty(),
		EnableHTTP2:  s.cfg.Server.EnableHTTP2,
	}, s.handler)
	hooks.Add("http server", srv.Shutdown)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	s.log.Info().
		Str("listen", ln.Addr().String()).
		Str("environment", s.cfg.Environment).
		Bool("tls", s.cfg.Server.TLSEnabled()).
		Msg("storefront started")

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
		if runErr != nil {
			s.log.Error().Err(runErr).Msg("server stopped unexpectedly")
		}
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()
	s.log.Info().Msg("shutting down")
	if err := hooks.Run(stopCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// startDiscovery announces this instance, schedules registry refreshes and
// probes the known instances.
func (s *Startup) startDiscovery(ctx context.Context, hooks *shutdown.Hooks) error {
	root := s.container.Root()
	client, err := di.Resolve[discovery.Client](root)
	if err != nil {
		return err
	}
	checker, err := di.Resolve[*health.Checker](root)
	if err != nil {
		return err
	}

	probe := s.cfg.Health.Probe
	probeClient := &http.Client{Timeout: probe.Timeout()}
	for _, inst := range client.All() {
		checker.Register(health.NewHTTPProbe(inst.Key(), inst.URL, probe.ProbePath(), probeClient))
	}
	checker.Start()
	hooks.Add("health checker", func(context.Context) error {
		checker.Stop()
		return nil
	})

	if client.Mode() == discovery.ModeDisabled {
		return nil
	}
	if err := client.Register(ctx); err != nil {
		return fmt.Errorf("register instance: %w", err)
	}

	sched := discovery.NewScheduler(s.log.With().Str("component", "discovery_scheduler").Logger())
	if err := discovery.ScheduleRefresh(sched, &s.cfg.Discovery, client); err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}
	sched.Start()
	hooks.Add("discovery scheduler", func(ctx context.Context) error {
		sched.Stop(ctx)
		return nil
	})
	return nil
}

// startWatcher hot-reloads the app settings, log level and sign-in limit.
func (s *Startup) startWatcher(ctx context.Context, hooks *shutdown.Hooks) error {
	if s.configPath == "" {
		return nil
	}
	w, err := config.NewWatcher(s.configPath, config.WithWatcherLogger(s.log))
	if err != nil {
		return err
	}
	limiter, _ := di.Resolve[ratelimit.Limiter](s.container.Root())

	w.OnReload(func(next *config.Config) error {
		s.runtime.Store(next)
		zerolog.SetGlobalLevel(next.Logging.ParseLevel())
		if kl, ok := limiter.(*ratelimit.KeyedLimiter); ok {
			kl.SetLimit(next.Identity.SignInPerMinute)
		}
		s.log.Info().Str("site", next.AppSettings.SiteName).Msg("configuration reloaded")
		return nil
	})
	go func() {
		if err := w.Watch(ctx); err != nil {
			s.log.Warn().Err(err).Msg("config watcher stopped")
		}
	}()
	hooks.Add("config watcher", func(context.Context) error { return w.Close() })
	return nil
}
