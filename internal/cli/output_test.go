package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitError(t *testing.T) {
	t.Run("message only", func(t *testing.T) {
		err := NewExitError(ExitCommandError, "bad input")
		assert.Equal(t, "bad input", err.Error())
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("wrapped error", func(t *testing.T) {
		inner := errors.New("disk full")
		err := WrapExitError(ExitCommandError, "write failed", inner)
		assert.Equal(t, "write failed: disk full", err.Error())
		assert.ErrorIs(t, err, inner)
	})

	t.Run("wrapped exit code survives fmt.Errorf", func(t *testing.T) {
		err := fmt.Errorf("context: %w", NewExitError(ExitCommandError, "inner"))
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("plain error defaults to failure", func(t *testing.T) {
		assert.Equal(t, ExitFailure, GetExitCode(errors.New("boom")))
	})
}

func TestOutputFormatterSuccess(t *testing.T) {
	t.Run("json envelope", func(t *testing.T) {
		var buf bytes.Buffer
		f := &OutputFormatter{Format: "json", Writer: &buf}

		require.NoError(t, f.Success(map[string]int{"batches": 3}))

		var resp CLIResponse
		require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Nil(t, resp.Error)
	})

	t.Run("text passthrough", func(t *testing.T) {
		var buf bytes.Buffer
		f := &OutputFormatter{Format: "text", Writer: &buf}

		require.NoError(t, f.Success("done"))
		assert.Equal(t, "done\n", buf.String())
	})
}

func TestOutputFormatterError(t *testing.T) {
	t.Run("json envelope carries code", func(t *testing.T) {
		var buf bytes.Buffer
		f := &OutputFormatter{Format: "json", Writer: &buf}

		require.NoError(t, f.Error(ErrCodeNotFound, "no such file", nil))

		var resp CLIResponse
		require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
		assert.Equal(t, "error", resp.Status)
		require.NotNil(t, resp.Error)
		assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
		assert.Equal(t, "no such file", resp.Error.Message)
	})

	t.Run("text shows code and message", func(t *testing.T) {
		var buf bytes.Buffer
		f := &OutputFormatter{Format: "text", Writer: &buf}

		require.NoError(t, f.Error(ErrCodeSchemaFailed, "batch 0 invalid", nil))
		assert.Equal(t, "Error [E006]: batch 0 invalid\n", buf.String())
	})

	t.Run("text details only when verbose", func(t *testing.T) {
		var quiet, loud bytes.Buffer

		f := &OutputFormatter{Format: "text", Writer: &quiet}
		require.NoError(t, f.Error(ErrCodeGeneric, "oops", "ctx"))
		assert.NotContains(t, quiet.String(), "ctx")

		f = &OutputFormatter{Format: "text", Writer: &loud, Verbose: true}
		require.NoError(t, f.Error(ErrCodeGeneric, "oops", "ctx"))
		assert.Contains(t, loud.String(), "ctx")
	})
}

func TestVerboseLog(t *testing.T) {
	t.Run("silent when not verbose", func(t *testing.T) {
		var buf bytes.Buffer
		f := &OutputFormatter{Format: "text", Writer: &buf}
		f.VerboseLog("hidden %d", 1)
		assert.Empty(t, buf.String())
	})

	t.Run("prefers err writer", func(t *testing.T) {
		var out, errOut bytes.Buffer
		f := &OutputFormatter{Format: "json", Writer: &out, ErrWriter: &errOut, Verbose: true}
		f.VerboseLog("loaded %d batches", 2)
		assert.Empty(t, out.String())
		assert.Equal(t, "loaded 2 batches\n", errOut.String())
	})
}
