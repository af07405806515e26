package executor

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testExecutor(t *testing.T) *Executor {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	return New(WithShell("/bin/sh"))
}

func TestRun_CapturesOutput(t *testing.T) {
	e := testExecutor(t)
	res, err := e.Run(context.Background(), Request{Command: "echo hello"})
	require.NoError(t, err)

	assert.Equal(t, "hello\n", res.Stdout)
	assert.Empty(t, res.Stderr)
	assert.Equal(t, 0, res.ExitCode)
	assert.False(t, res.TimedOut)
	assert.False(t, res.Truncated)
}

func TestRun_SeparatesStderr(t *testing.T) {
	e := testExecutor(t)
	res, err := e.Run(context.Background(), Request{Command: "echo oops 1>&2"})
	require.NoError(t, err)

	assert.Empty(t, res.Stdout)
	assert.Equal(t, "oops\n", res.Stderr)
}

func TestRun_NonZeroExitIsNotAnError(t *testing.T) {
	e := testExecutor(t)
	res, err := e.Run(context.Background(), Request{Command: "exit 3"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
}

func TestRun_TruncatesAtCap(t *testing.T) {
	e := testExecutor(t)
	res, err := e.Run(context.Background(), Request{
		Command:   "printf '%01000d' 7",
		MaxOutput: 100,
	})
	require.NoError(t, err)

	assert.True(t, res.Truncated)
	assert.True(t, strings.HasSuffix(res.Stdout, TruncationMarker))
	assert.Len(t, res.Stdout, 100+len(TruncationMarker))
}

func TestRun_Timeout(t *testing.T) {
	e := testExecutor(t)
	start := time.Now()
	res, err := e.Run(context.Background(), Request{
		Command: "sleep 5",
		Timeout: 100 * time.Millisecond,
	})
	require.NoError(t, err)

	assert.True(t, res.TimedOut)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestRun_WorkDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	e := New(WithShell("/bin/sh"), WithWorkDir(dir))
	res, err := e.Run(context.Background(), Request{Command: "pwd"})
	require.NoError(t, err)
	assert.Equal(t, dir, strings.TrimSpace(res.Stdout))
}

func TestRun_Background(t *testing.T) {
	e := testExecutor(t)
	start := time.Now()
	res, err := e.Run(context.Background(), Request{
		Command:    "sleep 2",
		Background: true,
	})
	require.NoError(t, err)

	assert.True(t, res.Background)
	assert.NotZero(t, res.PID)
	assert.Less(t, time.Since(start), time.Second)
}

func TestCapOutput(t *testing.T) {
	out, truncated := capOutput("abcdef", 0)
	assert.Equal(t, "abcdef", out)
	assert.False(t, truncated)

	out, truncated = capOutput("abcdef", 4)
	assert.Equal(t, "abcd"+TruncationMarker, out)
	assert.True(t, truncated)
}
