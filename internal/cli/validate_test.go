package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidStack(t *testing.T) {
	t.Setenv("SITEPIPE_WEBHOOK_SECRET", testSecret)

	out, err := execute(t, "validate", "testdata/dev.cue")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Stack valid")
}

func TestValidateValidStackJSON(t *testing.T) {
	t.Setenv("SITEPIPE_WEBHOOK_SECRET", testSecret)

	out, err := execute(t, "--format", "json", "validate", "testdata/dev.cue")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]any{"valid": true}, resp.Data)
}

func TestValidateReportsEveryError(t *testing.T) {
	t.Setenv("SITEPIPE_WEBHOOK_SECRET", "")

	out, err := execute(t, "validate", "testdata/incomplete.cue")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed with 3 error(s)")

	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "platform.account")
	assert.Contains(t, out, "content_store")
	assert.Contains(t, out, "source.secret_env")
}

func TestValidateErrorsJSON(t *testing.T) {
	t.Setenv("SITEPIPE_WEBHOOK_SECRET", testSecret)

	out, err := execute(t, "--format", "json", "validate", "testdata/incomplete.cue")
	require.Error(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Valid  bool `json:"valid"`
			Errors []struct {
				Field string `json:"field"`
				Code  string `json:"code"`
			} `json:"errors"`
		} `json:"data"`
		Error *CLIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 2)
	assert.Equal(t, "platform.account", resp.Data.Errors[0].Field)
	assert.Equal(t, "E202", resp.Data.Errors[0].Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E202", resp.Error.Code)
}

func TestValidateMissingFile(t *testing.T) {
	out, err := execute(t, "validate", "/nonexistent/stack.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Contains(t, out, "not found")
}

func TestValidateCompileError(t *testing.T) {
	out, err := execute(t, "validate", "testdata/unknown_field.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeCompile)
	assert.Contains(t, out, "projetc")
}
