package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/go-github/v74/github"

	"github.com/roach88/sitepipe/internal/ir"
)

// Starter begins a pipeline execution at its entry action.
type Starter interface {
	Start(ctx context.Context, pipeline, entryAction, commit string) (string, error)
}

// Receiver accepts signed push webhooks and starts the matching pipeline.
type Receiver struct {
	mu       sync.RWMutex
	triggers map[string]ir.Trigger // by target pipeline
	starter  Starter
	logger   *slog.Logger
}

// NewReceiver returns a receiver starting executions through starter.
// A nil logger uses slog.Default().
func NewReceiver(starter Starter, logger *slog.Logger) *Receiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Receiver{
		triggers: make(map[string]ir.Trigger),
		starter:  starter,
		logger:   logger,
	}
}

// Register makes t reachable at /webhooks/{t.TargetPipeline}.
func (r *Receiver) Register(t ir.Trigger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggers[t.TargetPipeline] = t
}

func (r *Receiver) lookup(pipeline string) (ir.Trigger, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.triggers[pipeline]
	return t, ok
}

// Routes returns a standalone HTTP handler serving only the webhook route.
func (r *Receiver) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	r.Handle(router)
	return router
}

// Handle registers POST /webhooks/{pipeline} on router.
func (r *Receiver) Handle(router chi.Router) {
	router.Post("/webhooks/{pipeline}", r.handlePush)
}

type startResponse struct {
	ExecutionID string `json:"execution_id"`
	Pipeline    string `json:"pipeline"`
	Action      string `json:"action"`
}

func (r *Receiver) handlePush(w http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "pipeline")
	t, ok := r.lookup(name)
	if !ok {
		http.Error(w, "unknown pipeline", http.StatusNotFound)
		return
	}

	payload, err := github.ValidatePayloadFromBody(
		req.Header.Get("Content-Type"),
		req.Body,
		req.Header.Get(github.SHA256SignatureHeader),
		t.Secret.Reveal(),
	)
	if err != nil {
		r.logger.Warn("rejected webhook", "pipeline", name, "error", err)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	event, err := github.ParseWebHook(github.WebHookType(req), payload)
	if err != nil {
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}
	push, ok := event.(*github.PushEvent)
	if !ok {
		r.logger.Debug("ignored webhook event", "pipeline", name, "type", github.WebHookType(req))
		w.WriteHeader(http.StatusNoContent)
		return
	}

	ref := push.GetRef()
	if !Matches(t, ref) {
		r.logger.Debug("ignored push", "pipeline", name, "ref", ref)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	commit := push.GetAfter()
	if commit == "" {
		commit = push.GetHeadCommit().GetID()
	}

	id, err := r.starter.Start(req.Context(), t.TargetPipeline, t.TargetAction, commit)
	if err != nil {
		r.logger.Error("start failed", "pipeline", name, "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, context.Canceled) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, "start failed", status)
		return
	}

	r.logger.Info("pipeline started", "pipeline", name, "execution_id", id, "ref", ref, "commit", commit)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(startResponse{ExecutionID: id, Pipeline: t.TargetPipeline, Action: t.TargetAction})
}
