package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/woozymasta/rfegps/internal/config"
	"github.com/woozymasta/rfegps/internal/geo"
	"github.com/woozymasta/rfegps/internal/logger"
	"github.com/woozymasta/rfegps/internal/mapview"
	"github.com/woozymasta/rfegps/internal/provider"
	"github.com/woozymasta/rfegps/internal/route"
	"github.com/woozymasta/rfegps/internal/state"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config"  env:"CONFIG_FILE" description:"Path to configuration file" default:"config.yaml"`
	From       string `short:"s" long:"from"    description:"Origin as \"lat,lon\" (defaults to the configured region center)"`
	To         string `short:"d" long:"to"      description:"Free-text destination" required:"true"`
	Output     string `short:"o" long:"out"     description:"GeoJSON output file path. Writes to stdout if empty"`
	Format     string `short:"f" long:"format"  description:"Output format" choice:"json" choice:"yaml" default:"json"`
	Preview    string `short:"p" long:"preview" description:"Write a WebP route preview to this path"`
	Size       int    `long:"preview-size"      description:"Preview size in pixels" default:"512"`
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

	opts.Logger.Setup()

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	region := *cfg.Region
	if opts.From != "" {
		origin, err := geo.ParseCoordinate(opts.From)
		if err != nil {
			log.Fatal().Err(err).Str("from", opts.From).Msg("Invalid origin")
		}
		region.Center = origin
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := state.NewLoop(16)
	go loop.Run(ctx)
	store := state.NewStore(loop, region, cfg.WeatherHint)

	client := provider.NewHTTPClient(cfg.Providers.Timeout)
	geocoder, directions, err := provider.FromConfig(cfg.Providers, client)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create providers")
	}

	orch := route.New(store, geocoder, directions, route.WithTimeout(cfg.Providers.Timeout))

	r, err := orch.SubmitDestination(ctx, opts.To)
	if err != nil {
		log.Error().
			Err(err).
			Str("kind", route.Kind(err)).
			Str("destination", opts.To).
			Msg("Route lookup failed")
		os.Exit(1)
	}

	snap, err := store.Snapshot(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read state")
	}

	var dest geo.Coordinate
	switch {
	case snap.Destination != nil:
		dest = *snap.Destination
	case len(r.Polyline) > 0:
		dest = r.Polyline[len(r.Polyline)-1]
	default:
		log.Error().Str("destination", opts.To).Msg("Route has no geometry")
		os.Exit(1)
	}

	log.Info().
		Str("eta", snap.ETA).
		Float64("distance", r.Distance).
		Int("points", len(r.Polyline)).
		Msg("Route found")

	fmt.Fprintln(os.Stderr, snap.ETA)

	if opts.Preview != "" {
		if err := writePreview(opts.Preview, r, opts.Size); err != nil {
			log.Fatal().Err(err).Str("path", opts.Preview).Msg("Failed to write preview")
		}
	}

	fc := geo.RouteFeatureCollection(r, region.Center, dest)

	var outputData []byte
	if opts.Format == "yaml" {
		outputData, err = yaml.Marshal(fc)
	} else {
		outputData, err = json.MarshalIndent(fc, "", "  ")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to marshal route")
	}

	if opts.Output == "" {
		fmt.Println(string(outputData))
		return
	}

	if err := os.WriteFile(opts.Output, outputData, 0644); err != nil {
		log.Fatal().Err(err).Str("path", opts.Output).Msg("Failed to write route")
	}
}

func writePreview(path string, r geo.Route, size int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	opts := mapview.DefaultPreviewOptions
	opts.Size = size
	if err := mapview.EncodePreview(f, r, opts); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}
