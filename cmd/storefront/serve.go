package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/omarluq/storefront/internal/applog"
	"github.com/omarluq/storefront/internal/config"
	"github.com/omarluq/storefront/internal/di"
	"github.com/omarluq/storefront/internal/shutdown"
	"github.com/omarluq/storefront/internal/startup"
	"github.com/omarluq/storefront/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the storefront web server",
	Long: `Start the storefront: build the service container, compose the request
pipeline and serve until SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// loadConfig reads the dotenv file then the config file.
func loadConfig() (*config.Config, string, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, "", err
	}
	path := cfgFile
	if path == "" {
		path = config.FindConfigFile()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to load config")
		return err
	}

	logger, closer, err := applog.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = closer.Close() }()
	log.Logger = logger
	applog.Configure(logger, cfg.Logging.ParseLevel())

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go func() {
		sig, err := shutdown.Wait(ctx, shutdown.Signals...)
		if err != nil {
			logger.Error().Err(err).Msg("signal watch failed")
		}
		if sig != nil {
			logger.Info().Str("signal", sig.String()).Msg("stopping")
		}
		cancel()
	}()

	return serve(ctx, cfg, path, logger)
}

func serve(ctx context.Context, cfg *config.Config, path string, logger zerolog.Logger) error {
	s := startup.New(cfg, logger, startup.WithConfigPath(path))
	if err := s.ConfigureServices(ctx, di.NewServiceCollection()); err != nil {
		logger.Error().Err(err).Msg("failed to configure services")
		return err
	}
	if err := s.Configure(web.NewPipeline()); err != nil {
		_ = s.Container().Shutdown()
		return err
	}
	if err := s.Run(ctx); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
