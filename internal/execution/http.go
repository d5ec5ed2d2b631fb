package execution

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/sitepipe/internal/ir"
)

type reportRequest struct {
	Outcome ir.Outcome `json:"outcome"`
	Detail  string     `json:"detail,omitempty"`
}

type executionResponse struct {
	Execution ir.ExecutionRecord  `json:"execution"`
	Events    []ir.ExecutionEvent `json:"events,omitempty"`
	Error     *errorBody          `json:"error,omitempty"`
}

type errorBody struct {
	Code    ir.ExecutionErrorCode `json:"code"`
	Message string                `json:"message"`
}

// Routes returns a standalone HTTP handler serving only the executor routes.
func (t *Tracker) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	t.Handle(router)
	return router
}

// Handle registers the executor routes on router:
//
//	GET  /executions/{id}
//	POST /executions/{id}/actions/{action}
func (t *Tracker) Handle(router chi.Router) {
	router.Get("/executions/{id}", t.handleGet)
	router.Post("/executions/{id}/actions/{action}", t.handleReport)
}

func (t *Tracker) handleGet(w http.ResponseWriter, req *http.Request) {
	rec, events, ok := t.Snapshot(chi.URLParam(req, "id"))
	if !ok {
		http.Error(w, "unknown execution", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, executionResponse{Execution: rec, Events: events})
}

func (t *Tracker) handleReport(w http.ResponseWriter, req *http.Request) {
	var body reportRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, "malformed report", http.StatusBadRequest)
		return
	}

	id, action := chi.URLParam(req, "id"), chi.URLParam(req, "action")
	rec, err := t.Report(req.Context(), id, action, body.Outcome, body.Detail)
	if err == nil {
		writeJSON(w, http.StatusOK, executionResponse{Execution: rec})
		return
	}

	var ee *ir.ExecutionError
	if !errors.As(err, &ee) {
		http.Error(w, "report failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, statusFor(ee.Code), executionResponse{
		Execution: rec,
		Error:     &errorBody{Code: ee.Code, Message: ee.Message},
	})
}

func statusFor(code ir.ExecutionErrorCode) int {
	switch code {
	case ir.ErrCodeActionFailed:
		return http.StatusOK
	case ir.ErrCodeUnknownExecution:
		return http.StatusNotFound
	case ir.ErrCodeStageNotEligible, ir.ErrCodeAlreadyTerminal:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
