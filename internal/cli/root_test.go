package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes the root command with args and captures output.
func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootRejectsInvalidFormat(t *testing.T) {
	_, _, err := runCLI(t, "list", "--db", "x.db", "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRootAcceptsValidFormats(t *testing.T) {
	for _, format := range ValidFormats {
		t.Run(format, func(t *testing.T) {
			_, _, err := runCLI(t, "--format", format, "--help")
			assert.NoError(t, err)
		})
	}
}

func TestRootHelpListsSubcommands(t *testing.T) {
	stdout, _, err := runCLI(t, "--help")
	require.NoError(t, err)
	for _, sub := range []string{"import", "list", "parse", "diff"} {
		assert.Contains(t, stdout, sub)
	}
}
