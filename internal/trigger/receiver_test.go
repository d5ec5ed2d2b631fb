package trigger

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sitepipe/internal/ir"
)

const testSecret = "hook-secret"

type startCall struct {
	pipeline, action, commit string
}

type fakeStarter struct {
	mu    sync.Mutex
	calls []startCall
	err   error
}

func (f *fakeStarter) Start(_ context.Context, pipeline, action, commit string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.calls = append(f.calls, startCall{pipeline, action, commit})
	return "exec-1", nil
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func newTestReceiver(t *testing.T, starter Starter) (*Receiver, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	r := NewReceiver(starter, slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))

	hook, err := NewWebhook("website-dev-webhook", testPipeline(t), "refs/heads/{branch}", "dev", ir.NewSecret(testSecret))
	require.NoError(t, err)
	r.Register(hook)
	return r, &logs
}

func post(t *testing.T, h http.Handler, path, event string, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", event)
	if signature != "" {
		req.Header.Set("X-Hub-Signature-256", signature)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func pushBody(ref, after string) []byte {
	b, _ := json.Marshal(map[string]any{"ref": ref, "after": after})
	return b
}

func TestReceiverStartsMatchingPush(t *testing.T) {
	starter := &fakeStarter{}
	r, logs := newTestReceiver(t, starter)

	body := pushBody("refs/heads/dev", "abc123")
	rec := post(t, r.Routes(), "/webhooks/website-dev-pipeline", "push", body, sign(body))

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp startResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "exec-1", resp.ExecutionID)
	assert.Equal(t, "Checkout", resp.Action)

	require.Len(t, starter.calls, 1)
	assert.Equal(t, startCall{"website-dev-pipeline", "Checkout", "abc123"}, starter.calls[0])

	assert.NotContains(t, logs.String(), testSecret)
}

func TestReceiverIgnoresOtherBranches(t *testing.T) {
	starter := &fakeStarter{}
	r, _ := newTestReceiver(t, starter)

	body := pushBody("refs/heads/master", "abc123")
	rec := post(t, r.Routes(), "/webhooks/website-dev-pipeline", "push", body, sign(body))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, starter.calls)
}

func TestReceiverIgnoresNonPushEvents(t *testing.T) {
	starter := &fakeStarter{}
	r, _ := newTestReceiver(t, starter)

	body := []byte(`{"zen":"Keep it logically awesome."}`)
	rec := post(t, r.Routes(), "/webhooks/website-dev-pipeline", "ping", body, sign(body))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, starter.calls)
}

func TestReceiverRejectsBadSignature(t *testing.T) {
	starter := &fakeStarter{}
	r, logs := newTestReceiver(t, starter)

	body := pushBody("refs/heads/dev", "abc123")
	tampered := pushBody("refs/heads/dev", "evil")

	rec := post(t, r.Routes(), "/webhooks/website-dev-pipeline", "push", tampered, sign(body))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(t, r.Routes(), "/webhooks/website-dev-pipeline", "push", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Empty(t, starter.calls)
	assert.NotContains(t, logs.String(), testSecret)
}

func TestReceiverUnknownPipeline(t *testing.T) {
	r, _ := newTestReceiver(t, &fakeStarter{})

	body := pushBody("refs/heads/dev", "abc123")
	rec := post(t, r.Routes(), "/webhooks/nope", "push", body, sign(body))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReceiverMalformedPayload(t *testing.T) {
	r, _ := newTestReceiver(t, &fakeStarter{})

	body := []byte(`{"ref": 42`)
	rec := post(t, r.Routes(), "/webhooks/website-dev-pipeline", "push", body, sign(body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReceiverStartFailure(t *testing.T) {
	r, _ := newTestReceiver(t, &fakeStarter{err: errors.New("store unavailable")})

	body := pushBody("refs/heads/dev", "abc123")
	rec := post(t, r.Routes(), "/webhooks/website-dev-pipeline", "push", body, sign(body))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestReceiverMethodNotAllowed(t *testing.T) {
	r, _ := newTestReceiver(t, &fakeStarter{})

	req := httptest.NewRequest(http.MethodGet, "/webhooks/website-dev-pipeline", nil)
	rec := httptest.NewRecorder()
	r.Routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	_, _ = io.Copy(io.Discard, rec.Body)
}
