package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"playout/internal/duration"
	"playout/internal/schedule"
)

type scheduleRequest struct {
	MediaID    string `json:"media_id"`
	URL        string `json:"url"`
	Title      string `json:"title"`
	Duration   string `json:"duration"`
	DurationMs int64  `json:"duration_ms"`
	Start      string `json:"start"`
	Replace    bool   `json:"replace"`
}

type dayResponse struct {
	ChannelID string          `json:"channel_id"`
	Date      schedule.Date   `json:"date"`
	Items     []schedule.Item `json:"items"`
}

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := s.svc.Channels(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"channels": channels})
}

func (s *Server) handleListDay(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channel")
	date, err := schedule.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	items, err := s.svc.ListDay(r.Context(), channelID, date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if r.URL.Query().Get("order") == "position" {
		schedule.SortByPosition(items)
	}
	if items == nil {
		items = []schedule.Item{}
	}
	writeJSON(w, http.StatusOK, dayResponse{ChannelID: channelID, Date: date, Items: items})
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	date, err := schedule.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var body scheduleRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	cmd := schedule.ScheduleCommand{
		ChannelID: chi.URLParam(r, "channel"),
		Date:      date,
		Media: schedule.MediaRef{
			MediaID:    strings.TrimSpace(body.MediaID),
			URL:        strings.TrimSpace(body.URL),
			Title:      strings.TrimSpace(body.Title),
			DurationMs: body.DurationMs,
		},
		Slot:    schedule.Auto(),
		Replace: body.Replace,
	}
	if body.Duration != "" {
		ms, err := duration.ParseHMS(body.Duration)
		if err != nil {
			s.writeServiceError(w, r, &schedule.ValidationError{Field: "duration", Message: err.Error()})
			return
		}
		cmd.Media.DurationMs = ms
	}
	if start := strings.TrimSpace(body.Start); start != "" && !strings.EqualFold(start, "auto") {
		at, err := schedule.ParseTimeOfDay(start)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		cmd.Slot = schedule.At(at)
	}

	placement, err := s.svc.Schedule(r.Context(), cmd)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, placement)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMoveItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Start string `json:"start"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	start, err := schedule.ParseTimeOfDay(body.Start)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	item, err := s.svc.Move(r.Context(), schedule.MoveCommand{ItemID: chi.URLParam(r, "id"), Start: start})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleReorderItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Direction string `json:"direction"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	item, err := s.svc.Reorder(r.Context(), schedule.ReorderCommand{
		ItemID:    chi.URLParam(r, "id"),
		Direction: schedule.Direction(strings.ToLower(strings.TrimSpace(body.Direction))),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	item, err := s.svc.SetStatus(r.Context(), chi.URLParam(r, "id"), schedule.Status(strings.TrimSpace(body.Status)))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}
