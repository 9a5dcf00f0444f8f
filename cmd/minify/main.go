package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/woozymasta/rfegps/internal/mapview"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Title  string `short:"t" long:"title" description:"Page title" default:"Ride Forecast"`
	OutDir string `short:"o" long:"out"   description:"Output directory" default:"dist"`
}

// Writes the rendered and minified page for static hosting.
func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	page, err := mapview.BuildPage(opts.Title)
	if err != nil {
		log.Fatal("error build page:", err)
	}

	if err := os.MkdirAll(opts.OutDir, 0755); err != nil {
		log.Fatal(err)
	}

	err = os.WriteFile(filepath.Join(opts.OutDir, "index.html"), page.Index, 0644)
	if err != nil {
		log.Fatal(err)
	}

	err = os.WriteFile(filepath.Join(opts.OutDir, "favicon.svg"), page.Favicon, 0644)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("minify done: %d bytes\n", len(page.Index))
}
