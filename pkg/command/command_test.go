package command

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRun(t *testing.T) {
	e := NewExec(0)
	out, err := e.Run(context.Background(), "sh", "-c", "echo hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))
}

func TestExecRunFailureCarriesOutput(t *testing.T) {
	e := NewExec(0)
	_, err := e.Run(context.Background(), "sh", "-c", "echo boom >&2; exit 3")
	require.Error(t, err)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Contains(t, exitErr.Output, "boom")
	assert.Contains(t, err.Error(), "boom")
}

func TestExecStream(t *testing.T) {
	var buf bytes.Buffer
	e := NewExec(0)
	err := e.Stream(context.Background(), &buf, "sh", "-c", "echo partial; exit 1")
	require.Error(t, err)
	assert.Equal(t, "partial\n", buf.String())
}

func TestFakeLongestPrefixWins(t *testing.T) {
	f := NewFake().
		On("zpool", "generic", nil).
		On("zpool list", "", errors.New("no such pool"))

	_, err := f.Run(context.Background(), "zpool", "list", "-H", "tank")
	assert.Error(t, err)

	out, err := f.Run(context.Background(), "zpool", "status")
	require.NoError(t, err)
	assert.Equal(t, "generic", string(out))

	assert.Equal(t, 2, f.Count("zpool"))
	assert.True(t, f.Called("zpool status"))
}
