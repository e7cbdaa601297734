package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", DebugLevel},
		{"DEBUG", DebugLevel},
		{"warning", WarnLevel},
		{"warn", WarnLevel},
		{"error", ErrorLevel},
		{"", InfoLevel},
		{"verbose", InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestWithRunFields(t *testing.T) {
	var buf bytes.Buffer
	_, err := Init(Config{Level: InfoLevel, JSONOutput: true, Output: &buf})
	require.NoError(t, err)

	logger := WithRun("run-1", "/dev/sdb", "xfs")
	logger.Info().Msg("formatted")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "run-1", line["run_id"])
	assert.Equal(t, "/dev/sdb", line["device"])
	assert.Equal(t, "xfs", line["filesystem"])
	assert.Equal(t, "formatted", line["message"])
}

func TestInitTeesToFile(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "fsbench.log")

	closer, err := Init(Config{Level: WarnLevel, Output: &console, File: path})
	require.NoError(t, err)

	logger := WithComponent("matrix")
	logger.Info().Msg("dropped below warn")
	logger.Warn().Msg("pair failed")
	require.NoError(t, closer())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &line))
	assert.Equal(t, "pair failed", line["message"])
	assert.Equal(t, "matrix", line["component"])
	assert.Contains(t, console.String(), "pair failed")
	assert.NotContains(t, console.String(), "dropped")
}

func TestInitBadLogFile(t *testing.T) {
	_, err := Init(Config{File: filepath.Join(t.TempDir(), "missing", "fsbench.log")})
	assert.Error(t, err)
}
