package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd_Use(t *testing.T) {
	assert.Equal(t, "version", versionCmd.Use)
}

func TestVersionCmd_Executes(t *testing.T) {
	originalVersion := version
	version = "test-version-1.0.0"
	defer func() { version = originalVersion }()

	out, err := executeCommand(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "refindex version test-version-1.0.0")
}

func TestVersionCmd_DoesNotOpenServices(t *testing.T) {
	ts := setupTestServices(t)

	_, err := executeCommand(t, "version")

	require.NoError(t, err)
	assert.Empty(t, ts.opened)
	assert.Zero(t, ts.ingest.loads)
}
