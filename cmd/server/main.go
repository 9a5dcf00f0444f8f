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

	"github.com/woozymasta/rfegps/internal/config"
	"github.com/woozymasta/rfegps/internal/location"
	"github.com/woozymasta/rfegps/internal/logger"
	"github.com/woozymasta/rfegps/internal/provider"
	"github.com/woozymasta/rfegps/internal/route"
	"github.com/woozymasta/rfegps/internal/server"
	"github.com/woozymasta/rfegps/internal/state"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string        `short:"c" long:"config"  env:"CONFIG_FILE"      description:"Path to configuration file"          default:"config.yaml"`
	Addr       string        `short:"a" long:"addr"    env:"LISTEN_ADDRESS"   description:"Address to listen on"                default:"0.0.0.0"`
	Port       int           `short:"p" long:"port"    env:"LISTEN_PORT"      description:"Port to listen on"                   default:"8080"`
	Timeout    time.Duration `short:"t" long:"timeout" env:"PROVIDER_TIMEOUT" description:"Provider call timeout (overrides config)"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Setup Logging
	opts.Logger.Setup()

	// Load Config
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if opts.Timeout > 0 {
		cfg.Providers.Timeout = opts.Timeout
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// State loop owns every mutation of the shared state
	loop := state.NewLoop(64)
	go loop.Run(ctx)
	store := state.NewStore(loop, *cfg.Region, cfg.WeatherHint)

	sensor, err := location.FromConfig(cfg.Location)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create location sensor")
	}
	feed, _ := sensor.(*location.FeedSensor)

	// A failed start leaves the default region in place
	_ = location.NewSource(sensor, store).Start(ctx)

	client := provider.NewHTTPClient(cfg.Providers.Timeout)
	geocoder, directions, err := provider.FromConfig(cfg.Providers, client)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create providers")
	}

	orch := route.New(store, geocoder, directions,
		route.WithTimeout(cfg.Providers.Timeout),
		route.WithContext(ctx),
	)

	srvCtx, err := server.NewServerContext(cfg.Title, store, orch, feed)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build web page")
	}

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           srvCtx.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		orch.Cancel()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown failed")
		}
	}()

	log.Info().
		Str("addr", listenAddr).
		Str("sensor", sensor.Name()).
		Str("geocoder", geocoder.Name()).
		Str("directions", directions.Name()).
		Dur("timeout", cfg.Providers.Timeout).
		Msg("Web server started")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}

	log.Info().Msg("Web server stopped")
}
