package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"dev_happy_path", "dev_build_fails"} {
		t.Run(name, func(t *testing.T) {
			result, err := RunWithGolden(t, loadScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestSnapshotOfIgnoredPush(t *testing.T) {
	result, err := Run(loadScenario(t, "dev_other_branch"))
	require.NoError(t, err)

	snap := Snapshot("dev_other_branch", result)
	assert.Empty(t, snap.ExecutionID)
	assert.NotNil(t, snap.Trace)
}
