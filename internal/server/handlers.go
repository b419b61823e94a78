package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/homedeskhq/homedesk/internal/repository"
)

// actionRequest is the body of POST /recurring-tasks.
type actionRequest struct {
	Action string `json:"action"`
	TaskID string `json:"taskId,omitempty"`
}

// completeData mirrors the wire shape of a completion response.
type completeData struct {
	Success    bool       `json:"success"`
	NextTaskID *uuid.UUID `json:"nextTaskId,omitempty"`
}

func (s *Server) handleRecurringTasks(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch req.Action {
	case "process":
		s.handleProcess(w, r)
	case "complete":
		s.handleComplete(w, r, req.TaskID)
	default:
		writeJSONError(w, http.StatusBadRequest, "unknown action")
	}
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.Process(r.Context())
	if err != nil {
		s.logger.Error("process run failed", slog.Any("err", err))
		writeJSONError(w, http.StatusInternalServerError, "failed to process recurring tasks")
		return
	}
	writeJSON(w, http.StatusOK, response{OK: true, Data: result})
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request, taskID string) {
	if taskID == "" {
		writeJSONError(w, http.StatusBadRequest, "taskId is required")
		return
	}
	id, err := uuid.Parse(taskID)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid taskId")
		return
	}

	result, err := s.engine.CompleteInstance(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "Task not found")
			return
		}
		s.logger.Error("complete failed", slog.String("task", taskID), slog.Any("err", err))
		writeJSONError(w, http.StatusInternalServerError, "failed to complete task")
		return
	}

	if result.GenerationError != "" {
		// Completion committed; the missing next instance is only logged.
		s.logger.Warn("next instance not created",
			slog.String("task", taskID), slog.String("err", result.GenerationError))
	}

	writeJSON(w, http.StatusOK, response{OK: true, Data: completeData{
		Success:    result.Success,
		NextTaskID: result.NextTaskID,
	}})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, response{OK: true, Data: map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	}})
}
