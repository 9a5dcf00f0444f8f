package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/rfegps/internal/geo"
	"github.com/woozymasta/rfegps/internal/location"
	"github.com/woozymasta/rfegps/internal/mapview"
	"github.com/woozymasta/rfegps/internal/state"
)

// Submitter runs the destination pipeline.
type Submitter interface {
	SubmitDestination(ctx context.Context, text string) (geo.Route, error)
	SubmitAsync(text string)
}

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Store     *state.Store
	Submitter Submitter
	// Feed is nil unless the feed sensor is configured.
	Feed *location.FeedSensor

	Title   string
	Page    *mapview.Page
	Preview mapview.PreviewOptions

	// SyncTimeout bounds ?wait=true destination requests.
	SyncTimeout time.Duration
}

// NewServerContext initializes the context and renders the web page.
func NewServerContext(title string, store *state.Store, submitter Submitter, feed *location.FeedSensor) (*ServerContext, error) {
	page, err := mapview.BuildPage(title)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("title", title).
		Int("index_bytes", len(page.Index)).
		Bool("location_feed", feed != nil).
		Msg("Server context initialized successfully")

	return &ServerContext{
		Store:       store,
		Submitter:   submitter,
		Feed:        feed,
		Title:       title,
		Page:        page,
		Preview:     mapview.DefaultPreviewOptions,
		SyncTimeout: 30 * time.Second,
	}, nil
}

// Handler returns the routed and logged HTTP handler.
func (s *ServerContext) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/state", s.HandleState)
	mux.HandleFunc("GET /api/events", s.HandleEvents)
	mux.HandleFunc("POST /api/destination", s.HandleDestination)
	mux.HandleFunc("POST /api/location", s.HandleLocation)
	mux.HandleFunc("GET /api/route.geojson", s.HandleRouteGeoJSON)
	mux.HandleFunc("GET /api/route.webp", s.HandleRoutePreview)
	mux.HandleFunc("GET /favicon.svg", s.HandleFavicon)
	mux.HandleFunc("GET /favicon.ico", s.HandleFavicon)
	mux.HandleFunc("GET /", s.HandleIndex)

	return RequestLogger(mux)
}
