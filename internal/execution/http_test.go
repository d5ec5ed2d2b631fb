package execution

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sitepipe/internal/ir"
	"github.com/roach88/sitepipe/internal/topology"
)

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, executionResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp executionResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	}
	return rec, resp
}

func TestHTTPReportAndGet(t *testing.T) {
	tr, def := newTestTracker(t, nil)
	id, err := tr.Start(context.Background(), def.Pipeline.Name, topology.ActionCheckout, "abc123")
	require.NoError(t, err)
	h := tr.Routes()

	rec, resp := do(t, h, http.MethodPost, "/executions/"+id+"/actions/Checkout", `{"outcome":"Success"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ir.StateRunning, resp.Execution.State)
	assert.Nil(t, resp.Error)

	rec, resp = do(t, h, http.MethodGet, "/executions/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, resp.Execution.ID)
	assert.Len(t, resp.Events, 5)
	build, _ := tr.runs[id].StageState(topology.StageBuild)
	assert.Equal(t, ir.StateRunning, build)
}

func TestHTTPReportStatuses(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   ir.ExecutionErrorCode
	}{
		{"not eligible", "/executions/exec-1/actions/Deploy", `{"outcome":"Success"}`, http.StatusConflict, ir.ErrCodeStageNotEligible},
		{"unknown action", "/executions/exec-1/actions/Approve", `{"outcome":"Success"}`, http.StatusUnprocessableEntity, ir.ErrCodeUnknownAction},
		{"invalid outcome", "/executions/exec-1/actions/Checkout", `{"outcome":"Maybe"}`, http.StatusUnprocessableEntity, ir.ErrCodeInvalidOutcome},
		{"unknown execution", "/executions/exec-9/actions/Checkout", `{"outcome":"Success"}`, http.StatusNotFound, ir.ErrCodeUnknownExecution},
		{"failure", "/executions/exec-1/actions/Checkout", `{"outcome":"Failure","detail":"boom"}`, http.StatusOK, ir.ErrCodeActionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, def := newTestTracker(t, nil)
			_, err := tr.Start(context.Background(), def.Pipeline.Name, topology.ActionCheckout, "")
			require.NoError(t, err)

			rec, resp := do(t, tr.Routes(), http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestHTTPMalformedReport(t *testing.T) {
	tr, _ := newTestTracker(t, nil)
	rec, _ := do(t, tr.Routes(), http.MethodPost, "/executions/exec-1/actions/Checkout", `{"outcome":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTPUnknownExecutionGet(t *testing.T) {
	tr, _ := newTestTracker(t, nil)
	rec, _ := do(t, tr.Routes(), http.MethodGet, "/executions/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
