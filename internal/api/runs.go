package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-loadsynth/internal/audit"
	"github.com/nerrad567/gray-logic-loadsynth/internal/runlog"
)

// maxListLimit caps the limit query parameter.
const maxListLimit = 1000

// handleListRuns returns logged runs, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing runs failed", "error", err)
		writeInternalError(w, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

// handleGetRun returns one run header.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.runs.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeRunError(w, err, "failed to get run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleRunStats returns the per-activity and per-appliance statistics.
func (s *Server) handleRunStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.runs.Stats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeRunError(w, err, "failed to get run statistics")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleRunOccurrences returns placed occurrences, filtered by the user,
// activity and day query parameters.
func (s *Server) handleRunOccurrences(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := runlog.OccurrenceFilter{
		User:     q.Get("user"),
		Activity: q.Get("activity"),
	}

	var err error
	if filter.Limit, err = parseLimit(r); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if v := q.Get("day"); v != "" {
		day, convErr := strconv.Atoi(v)
		if convErr != nil || day < 0 {
			writeBadRequest(w, "day must be a non-negative integer")
			return
		}
		filter.Day = &day
	}

	occurrences, err := s.runs.Occurrences(r.Context(), chi.URLParam(r, "id"), filter)
	if err != nil {
		s.writeRunError(w, err, "failed to list occurrences")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"occurrences": occurrences,
		"count":       len(occurrences),
	})
}

// handleDeleteRun removes a run and everything recorded for it.
func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.runs.DeleteRun(r.Context(), id); err != nil {
		s.writeRunError(w, err, "failed to delete run")
		return
	}
	s.logger.Info("run deleted", "run_id", id, "subject", subject(r))

	if s.audit != nil {
		entry := &audit.Entry{
			Action:  audit.ActionRunDeleted,
			RunID:   id,
			Subject: subject(r),
			Source:  audit.SourceAPI,
			Details: map[string]any{"request_id": r.Context().Value(ctxKeyRequestID)},
		}
		if err := s.audit.Record(r.Context(), entry); err != nil {
			s.logger.Error("recording audit entry failed", "run_id", id, "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListAudit returns audit entries, newest first, filtered by the
// action and run_id query parameters.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeNotFound(w, "audit log not enabled")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{Action: q.Get("action"), RunID: q.Get("run_id")}

	var err error
	if filter.Limit, err = parseLimit(r); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if v := q.Get("offset"); v != "" {
		if filter.Offset, err = strconv.Atoi(v); err != nil || filter.Offset < 0 {
			writeBadRequest(w, "offset must be a non-negative integer")
			return
		}
	}

	res, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing audit entries failed", "error", err)
		writeInternalError(w, "failed to list audit entries")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) writeRunError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, runlog.ErrRunNotFound) {
		writeNotFound(w, "run not found")
		return
	}
	s.logger.Error(message, "error", err)
	writeInternalError(w, message)
}

var errBadLimit = errors.New("limit must be an integer between 1 and 1000")

// parseLimit reads the limit query parameter; 0 means the repository default.
func parseLimit(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(v)
	if err != nil || limit < 1 || limit > maxListLimit {
		return 0, errBadLimit
	}
	return limit, nil
}
