package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/woozymasta/rfegps/internal/geo"
	"github.com/woozymasta/rfegps/internal/location"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

type Options struct {
	Input  string `short:"i" long:"in" description:"Input track file (YAML or GeoJSON). Reads from stdin if empty"`
	Output string `short:"o" long:"out" description:"Output file path. Writes to stdout if empty"`
	Format string `short:"f" long:"format" description:"Output format" choice:"json" choice:"yaml" default:"json"`
	Bounds bool   `short:"b" long:"bounds" description:"Print the track length and bounding region to stderr"`
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

	// Read Input
	var inputData []byte
	var err error

	if opts.Input != "" {
		inputData, err = os.ReadFile(opts.Input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading input file: %v\n", err)
			os.Exit(1)
		}
	} else {
		inputData, err = io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", err)
			os.Exit(1)
		}
	}

	track, err := location.ParseTrack(inputData)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing track: %v\n", err)
		os.Exit(1)
	}

	if opts.Bounds {
		if b, ok := geo.BoundsOf(track.Points); ok {
			r := b.Region(0)
			fmt.Fprintf(os.Stderr, "Track %q: %d points, %.0f m, center %s, span %.5f x %.5f\n",
				track.Name, len(track.Points), geo.Length(track.Points),
				r.Center, r.Span.LatitudeDelta, r.Span.LongitudeDelta)
		}
	}

	fc := track.FeatureCollection()

	// marshal
	var outputData []byte
	if opts.Format == "yaml" {
		outputData, err = yaml.Marshal(fc)
	} else {
		outputData, err = json.MarshalIndent(fc, "", "  ")
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling data: %v\n", err)
		os.Exit(1)
	}

	if opts.Output != "" {
		err = os.WriteFile(opts.Output, outputData, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Successfully converted %d points to %s (format: %s)\n", len(track.Points), opts.Output, opts.Format)
	} else {
		fmt.Println(string(outputData))
	}
}
