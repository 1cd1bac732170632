package api

import (
	"errors"
	"net/http"
	"strings"

	"playout/internal/schedule"
)

type duplicateRequest struct {
	Mode        string `json:"mode"`
	ItemID      string `json:"item_id"`
	ChannelID   string `json:"channel_id"`
	Date        string `json:"date"`
	TargetDate  string `json:"target_date"`
	TargetStart string `json:"target_start"`
	Resolution  string `json:"resolution"`
}

func (req duplicateRequest) command() (schedule.DuplicateCommand, error) {
	cmd := schedule.DuplicateCommand{
		Mode:      schedule.Mode(strings.ToLower(strings.TrimSpace(req.Mode))),
		ItemID:    strings.TrimSpace(req.ItemID),
		ChannelID: strings.TrimSpace(req.ChannelID),
	}
	var err error
	if req.Date != "" {
		if cmd.Date, err = schedule.ParseDate(req.Date); err != nil {
			return cmd, err
		}
	}
	if req.TargetDate != "" {
		if cmd.TargetDate, err = schedule.ParseDate(req.TargetDate); err != nil {
			return cmd, err
		}
	}
	if req.TargetStart != "" {
		start, err := schedule.ParseTimeOfDay(req.TargetStart)
		if err != nil {
			return cmd, err
		}
		cmd.TargetStart = &start
	}
	if cmd.Resolution, err = schedule.ParseResolution(req.Resolution); err != nil {
		return cmd, err
	}
	return cmd, nil
}

func (s *Server) handleDuplicate(w http.ResponseWriter, r *http.Request) {
	var body duplicateRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	cmd, err := body.command()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	result, err := s.svc.Duplicate(r.Context(), cmd)
	var partial *schedule.PartialBatchFailure
	switch {
	case errors.As(err, &partial):
		writeJSON(w, http.StatusMultiStatus, map[string]any{
			"error":  partial.Error(),
			"result": result,
		})
	case err != nil:
		s.writeServiceError(w, r, err)
	case result.Pending:
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     "duplication conflicts with existing items; choose replace or skip",
			"pending":   true,
			"conflicts": result.Conflicts,
		})
	default:
		writeJSON(w, http.StatusOK, result)
	}
}
