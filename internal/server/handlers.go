// Package server handles HTTP requests and middleware.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/rfegps/internal/geo"
	"github.com/woozymasta/rfegps/internal/location"
	"github.com/woozymasta/rfegps/internal/mapview"
	"github.com/woozymasta/rfegps/internal/route"
	"github.com/woozymasta/rfegps/internal/state"
)

const maxRequestBody = 1 << 20

type destinationRequest struct {
	Destination string `json:"destination"`
}

type locationRequest struct {
	Authorized *bool            `json:"authorized,omitempty"`
	Error      string           `json:"error,omitempty"`
	Locations  []geo.Coordinate `json:"locations,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// HandleState serves the current view model.
func (s *ServerContext) HandleState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Store.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err, "")
		return
	}
	writeJSON(w, http.StatusOK, mapview.Build(snap, s.Title))
}

// HandleDestination is the "Go" action. By default the pipeline runs in the
// background and the request returns 202; with ?wait=true it runs inline.
func (s *ServerContext) HandleDestination(w http.ResponseWriter, r *http.Request) {
	var req destinationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err), "")
		return
	}
	if strings.TrimSpace(req.Destination) == "" {
		writeError(w, http.StatusBadRequest, errors.New("destination is required"), "")
		return
	}

	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if !wait {
		s.Submitter.SubmitAsync(req.Destination)
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.SyncTimeout)
	defer cancel()

	if _, err := s.Submitter.SubmitDestination(ctx, req.Destination); err != nil {
		status := http.StatusUnprocessableEntity
		kind := route.Kind(err)
		switch kind {
		case route.KindSuperseded:
			status = http.StatusConflict
		case route.KindGeocodeProviderError, route.KindRouteProviderError:
			status = http.StatusBadGateway
		}
		writeError(w, status, err, kind)
		return
	}

	s.HandleState(w, r)
}

// HandleLocation receives fixes, permission changes and errors from a client
// acting as the position sensor.
func (s *ServerContext) HandleLocation(w http.ResponseWriter, r *http.Request) {
	if s.Feed == nil {
		writeError(w, http.StatusConflict, errors.New("location feed is not enabled"), "")
		return
	}

	var req locationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err), "")
		return
	}

	ctx := r.Context()

	if req.Authorized != nil {
		auth := location.Denied
		if *req.Authorized {
			auth = location.Authorized
		}
		if err := s.Feed.SetAuthorization(ctx, auth); err != nil {
			writeError(w, http.StatusServiceUnavailable, err, "")
			return
		}
	}

	if req.Error != "" {
		if err := s.Feed.Fail(ctx, errors.New(req.Error)); err != nil {
			writeError(w, http.StatusServiceUnavailable, err, "")
			return
		}
	}

	if err := s.Feed.Push(ctx, req.Locations); err != nil {
		if errors.Is(err, location.ErrPermissionDenied) {
			writeError(w, http.StatusForbidden, err, route.KindPermissionDenied)
			return
		}
		writeError(w, http.StatusServiceUnavailable, err, "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRouteGeoJSON serves the current route as a GeoJSON feature collection.
func (s *ServerContext) HandleRouteGeoJSON(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.routeSnapshot(w, r)
	if !ok {
		return
	}

	line := snap.Route.Polyline
	dest := line[len(line)-1]
	if snap.Destination != nil {
		dest = *snap.Destination
	}

	w.Header().Set("Content-Type", "application/geo+json")
	_ = json.NewEncoder(w).Encode(geo.RouteFeatureCollection(*snap.Route, line[0], dest))
}

// HandleRoutePreview serves a WebP rendering of the current route.
func (s *ServerContext) HandleRoutePreview(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.routeSnapshot(w, r)
	if !ok {
		return
	}

	etag := fmt.Sprintf(`"route-%x"`, snap.Version)
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	var buf bytes.Buffer
	if err := mapview.EncodePreview(&buf, *snap.Route, s.Preview); err != nil {
		log.Error().Err(err).Msg("Failed to render route preview")
		writeError(w, http.StatusInternalServerError, err, "")
		return
	}

	w.Header().Set("Content-Type", "image/webp")
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(buf.Bytes())
}

// HandleEvents streams view model updates as server-sent events.
func (s *ServerContext) HandleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"), "")
		return
	}

	updates := make(chan state.Snapshot, 1)
	cancel := s.Store.Subscribe(func(snap state.Snapshot) {
		// keep only the newest snapshot for slow readers
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- snap:
		default:
		}
	})
	defer cancel()

	snap, err := s.Store.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err, "")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := s.writeEvent(w, snap); err != nil {
		return
	}
	flusher.Flush()

	last := snap.Version
	for {
		select {
		case <-r.Context().Done():
			return
		case snap = <-updates:
		}
		if snap.Version <= last {
			continue
		}
		last = snap.Version

		if err := s.writeEvent(w, snap); err != nil {
			return
		}
		flusher.Flush()
	}
}

func (s *ServerContext) writeEvent(w http.ResponseWriter, snap state.Snapshot) error {
	data, err := json.Marshal(mapview.Build(snap, s.Title))
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode event")
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\ndata: %s\n\n", snap.Version, data)
	return err
}

// HandleFavicon serves the site favicon.
func (s *ServerContext) HandleFavicon(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(s.Page.Favicon)
}

// HandleIndex serves the main HTML application.
func (s *ServerContext) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	etag := fmt.Sprintf(`"%x"`, len(s.Page.Index))

	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")
	_, _ = w.Write(s.Page.Index)
}

// routeSnapshot returns the current state, or writes 404 when there is no route.
func (s *ServerContext) routeSnapshot(w http.ResponseWriter, r *http.Request) (state.Snapshot, bool) {
	snap, err := s.Store.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err, "")
		return snap, false
	}
	if snap.Route == nil || len(snap.Route.Polyline) == 0 {
		writeError(w, http.StatusNotFound, errors.New("no route"), "")
		return snap, false
	}
	return snap, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error, kind string) {
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}
