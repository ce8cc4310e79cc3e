package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldtops/fieldhand/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExecuteCapturesOutput(t *testing.T) {
	e := NewExecutor(testLogger())

	result, err := e.Execute(context.Background(), Command{Text: "echo hello"})
	require.NoError(t, err)

	assert.Equal(t, "hello", result.Output)
	assert.Equal(t, "echo hello", result.Command)
	assert.Nil(t, result.ExitCode)
	assert.False(t, result.Start.IsZero())
	assert.False(t, result.End.Before(result.Start))
	assert.GreaterOrEqual(t, result.Duration, time.Duration(0))
}

func TestExecuteCollapsesCarriageReturns(t *testing.T) {
	e := NewExecutor(testLogger())

	result, err := e.Execute(context.Background(), Command{Text: `printf 'A\rB\n'`})
	require.NoError(t, err)
	assert.Equal(t, "B", result.Output)
}

func TestExecuteMergesStderr(t *testing.T) {
	e := NewExecutor(testLogger())

	result, err := e.Execute(context.Background(), Command{Text: "echo out; echo err >&2"})
	require.NoError(t, err)
	assert.Equal(t, "out\nerr", result.Output)
}

func TestExecuteNonZeroExit(t *testing.T) {
	e := NewExecutor(testLogger())

	result, err := e.Execute(context.Background(), Command{Text: "exit 7"})
	require.Error(t, err)

	var cmdErr *domain.CommandError
	require.ErrorAs(t, err, &cmdErr)
	require.NotNil(t, cmdErr.Result.ExitCode)
	assert.Equal(t, 7, *cmdErr.Result.ExitCode)
	assert.Empty(t, cmdErr.Result.Output)
	assert.NotEmpty(t, cmdErr.Traceback)

	require.NotNil(t, result.ExitCode)
	assert.Equal(t, 7, *result.ExitCode)
	assert.False(t, result.End.IsZero())
}

func TestExecuteFailureKeepsOutput(t *testing.T) {
	e := NewExecutor(testLogger())

	_, err := e.Execute(context.Background(), Command{Text: "echo partial; exit 1"})

	var cmdErr *domain.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "partial", cmdErr.Result.Output)
}

func TestExecuteWritesInput(t *testing.T) {
	e := NewExecutor(testLogger())

	result, err := e.Execute(context.Background(), Command{Text: "cat", Input: "hello\n"})
	require.NoError(t, err)
	assert.Equal(t, "hello", result.Output)
}

func TestExecuteRawOutput(t *testing.T) {
	e := NewExecutor(testLogger())

	result, err := e.Execute(context.Background(), Command{Text: `printf 'A\rB\n'`, Raw: true})
	require.NoError(t, err)
	assert.Equal(t, "A\rB", result.Output)
}

func TestExecuteRunsInDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker.txt"), []byte("x"), 0o644))

	e := NewExecutor(testLogger())
	result, err := e.Execute(context.Background(), Command{Text: "ls", Directory: dir})
	require.NoError(t, err)

	assert.Equal(t, "marker.txt", result.Output)
	assert.Equal(t, dir, result.Directory)
}

func TestExecuteBadDirectoryIsPlainError(t *testing.T) {
	e := NewExecutor(testLogger())

	_, err := e.Execute(context.Background(), Command{
		Text:      "true",
		Directory: filepath.Join(t.TempDir(), "does-not-exist"),
	})
	require.Error(t, err)

	var cmdErr *domain.CommandError
	assert.False(t, errors.As(err, &cmdErr))
}
