package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"playout/internal/catalog"
	"playout/internal/duration"
	"playout/internal/schedule"
)

type mediaRequest struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Kind         string `json:"kind"`
	Duration     string `json:"duration"`
	DurationMs   int64  `json:"duration_ms"`
	SourceURL    string `json:"source_url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

func (s *Server) handleListMedia(w http.ResponseWriter, r *http.Request) {
	if s.media == nil {
		writeError(w, http.StatusNotImplemented, "media library not configured")
		return
	}
	assets, err := s.media.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if assets == nil {
		assets = []catalog.MediaAsset{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"media": assets})
}

func (s *Server) handleAddMedia(w http.ResponseWriter, r *http.Request) {
	if s.media == nil {
		writeError(w, http.StatusNotImplemented, "media library not configured")
		return
	}
	var body mediaRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	asset := catalog.MediaAsset{
		ID:           strings.TrimSpace(body.ID),
		Title:        strings.TrimSpace(body.Title),
		DurationMs:   body.DurationMs,
		SourceURL:    strings.TrimSpace(body.SourceURL),
		ThumbnailURL: strings.TrimSpace(body.ThumbnailURL),
		Active:       true,
	}
	if asset.Title == "" {
		s.writeServiceError(w, r, &schedule.ValidationError{Field: "title", Message: "title is required"})
		return
	}
	kind, err := catalog.ParseMediaKind(body.Kind)
	if err != nil {
		s.writeServiceError(w, r, &schedule.ValidationError{Field: "kind", Message: err.Error()})
		return
	}
	asset.Kind = kind
	if body.Duration != "" {
		ms, err := duration.ParseHMS(body.Duration)
		if err != nil {
			s.writeServiceError(w, r, &schedule.ValidationError{Field: "duration", Message: err.Error()})
			return
		}
		asset.DurationMs = ms
	}
	if asset.DurationMs < 0 {
		s.writeServiceError(w, r, &schedule.ValidationError{Field: "duration", Message: "duration must not be negative"})
		return
	}
	if asset.ID == "" {
		asset.ID = s.newID()
	}

	added, err := s.media.Add(r.Context(), asset)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handleGetMedia(w http.ResponseWriter, r *http.Request) {
	if s.media == nil {
		writeError(w, http.StatusNotImplemented, "media library not configured")
		return
	}
	asset, err := s.media.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

// handleTraceMedia runs every duration strategy for an asset without
// writing anything back.
func (s *Server) handleTraceMedia(w http.ResponseWriter, r *http.Request) {
	if s.media == nil || s.tracer == nil {
		writeError(w, http.StatusNotImplemented, "duration tracing not configured")
		return
	}
	asset, err := s.media.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	entries, err := s.tracer.Trace(r.Context(), duration.Reference{Asset: &asset, URL: asset.SourceURL})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"media": asset, "strategies": entries})
}
