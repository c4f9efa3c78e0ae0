package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/skybi/ticketdesk/internal/backend"
	"github.com/skybi/ticketdesk/internal/config"
	"github.com/skybi/ticketdesk/internal/storage"
	"github.com/skybi/ticketdesk/internal/storage/cache"
	"github.com/skybi/ticketdesk/internal/storage/inmem"
	"github.com/skybi/ticketdesk/internal/storage/postgres"
	"github.com/skybi/ticketdesk/internal/storage/redis"
	"github.com/skybi/ticketdesk/internal/task"
	"github.com/skybi/ticketdesk/internal/web"
)

func main() {
	// Set up zerolog to use pretty printing
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out: os.Stderr,
	})
	log.Info().Msg("starting up...")

	// Load the application configuration
	log.Info().Msg("loading configuration...")
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("could not load the configuration")
	}
	if cfg.IsEnvProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Debug().Str("config", fmt.Sprintf("%+v", cfg)).Msg("")

	// Initialize the session storage driver
	log.Info().Str("driver", cfg.SessionStorage).Msg("initializing session storage...")
	driver := newStorageDriver(cfg)
	if err := driver.Initialize(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("could not initialize the session storage")
	}
	defer driver.Close()

	// Schedule a task that purges expired sessions
	sweepingTask := task.NewRepeating(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		n, err := driver.Sessions().TerminateExpired(ctx)
		if err != nil {
			log.Error().Err(err).Msg("could not terminate expired sessions")
		} else if n > 0 {
			log.Info().Int("amount", n).Msg("terminated expired sessions")
		}
	}, time.Minute)
	sweepingTask.Start()
	defer sweepingTask.Stop(false)

	// Create the backend API client
	client, err := backend.New(cfg.BackendURL, backend.WithTimeout(cfg.BackendTimeout))
	if err != nil {
		log.Fatal().Err(err).Msg("could not create the backend API client")
	}

	// Start up the web frontend
	log.Info().Str("address", cfg.ListenAddress).Str("backend", client.BaseURL()).Msg("starting up the web frontend...")
	service := &web.Service{
		Config:   cfg,
		Sessions: driver.Sessions(),
		Backend:  client,
	}
	serviceErrs := make(chan error, 1)
	go func() {
		if err := service.Startup(); err != nil {
			serviceErrs <- err
		}
	}()
	defer func() {
		log.Info().Msg("shutting down the web frontend...")
		service.Shutdown()
	}()

	log.Info().Msg("done!")
	defer log.Info().Msg("shutting down...")

	// Wait for the application to be terminated
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	select {
	case <-shutdown:
	case err := <-serviceErrs:
		log.Error().Err(err).Msg("the web frontend raised an unexpected error")
	}
}

func newStorageDriver(cfg *config.Config) storage.Driver {
	var driver storage.Driver
	switch cfg.SessionStorage {
	case config.StorageRedis:
		driver = redis.New(cfg.RedisURL)
	case config.StoragePostgres:
		driver = postgres.New(cfg.PostgresDSN)
	default:
		driver = inmem.New()
	}
	if cfg.SessionCacheTTL > 0 && cfg.SessionStorage != config.StorageInmem {
		driver = cache.New(driver, cfg.SessionCacheTTL)
	}
	return driver
}
