package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/agentfleet/dispatcher/internal/agent"
	"github.com/agentfleet/dispatcher/internal/orchestrator"
	"github.com/agentfleet/dispatcher/internal/registry"
	"github.com/agentfleet/dispatcher/internal/store"
	"github.com/agentfleet/dispatcher/pkg/api"
)

// Server exposes the dispatcher over HTTP.
type Server struct {
	registry *registry.Registry
	orch     *orchestrator.Orchestrator
	archive  *store.TaskArchive
}

func NewServer(reg *registry.Registry, orch *orchestrator.Orchestrator, archive *store.TaskArchive) *Server {
	return &Server{
		registry: reg,
		orch:     orch,
		archive:  archive,
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/tasks", s.submitTaskHandler).Methods(http.MethodPost)
	r.HandleFunc("/tasks/{id}", s.getTaskHandler).Methods(http.MethodGet)
	r.HandleFunc("/route", s.routeHandler).Methods(http.MethodPost)
	r.HandleFunc("/delegate", s.delegateHandler).Methods(http.MethodPost)
	r.HandleFunc("/status", s.statusHandler).Methods(http.MethodGet)
	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, api.ErrorResponse{Error: msg})
}

func (s *Server) submitTaskHandler(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	target, ok := s.registry.Get(req.AgentID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown agent "+req.AgentID)
		return
	}

	task := agent.NewTask(req.Type, req.Parameters)
	task.Priority = req.Priority
	target.Submit(task)

	writeJSON(w, http.StatusCreated, api.SubmitTaskResponse{
		TaskID:    task.ID,
		AgentID:   target.ID(),
		Status:    string(task.Status()),
		CreatedAt: time.Now(),
	})
}

func (s *Server) getTaskHandler(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusServiceUnavailable, "task archive not configured")
		return
	}

	taskID := mux.Vars(r)["id"]
	record, err := s.archive.GetTask(r.Context(), taskID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read task record")
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "unknown task "+taskID)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) routeHandler(w http.ResponseWriter, r *http.Request) {
	var req api.RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	result, err := s.orch.Route(r.Context(), req.Text, req.Parameters)
	if err != nil {
		var noAgent *orchestrator.NoAgentAvailableError
		if errors.As(err, &noAgent) {
			writeJSON(w, http.StatusServiceUnavailable, api.ErrorResponse{
				Error: noAgent.Error(),
				Classification: &api.Classification{
					Category:   noAgent.Classification.Category,
					Confidence: noAgent.Classification.Confidence,
					Reason:     noAgent.Classification.Reason,
					Indicators: noAgent.Classification.Indicators,
				},
			})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, api.RouteResponse{
		RoutedTo:   result.RoutedTo,
		TaskID:     result.TaskID,
		Category:   result.Category,
		Confidence: result.Confidence,
		Reason:     result.Reason,
	})
}

func (s *Server) delegateHandler(w http.ResponseWriter, r *http.Request) {
	var req api.DelegateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	task := agent.NewTask(req.Type, req.Parameters)
	snap, err := s.orch.Delegate(r.Context(), task, req.AgentID)
	if err != nil {
		var notFound *orchestrator.AgentNotFoundError
		var notReady *orchestrator.AgentNotReadyError
		switch {
		case errors.As(err, &notFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.As(err, &notReady):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, api.DelegateResponse{
		TaskID:      snap.ID,
		AgentID:     req.AgentID,
		Status:      string(snap.Status),
		Result:      snap.Result,
		Error:       snap.Error,
		ModelUsed:   snap.ModelUsed,
		ExecutionMs: snap.ExecutionMs,
	})
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.SystemStatus())
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.HealthStatus{
		Service:   "dispatcher",
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}
