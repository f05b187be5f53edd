package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCmd_RejectsPositionalArgs(t *testing.T) {
	// "--versioning False" leaves "False" behind as a positional argument
	assert.Error(t, rootCmd.Args(rootCmd, []string{"False"}))
	assert.NoError(t, rootCmd.Args(rootCmd, nil))
}

func TestRootCmd_PositionalArgFailsBeforeRun(t *testing.T) {
	rootCmd.SetArgs([]string{"--endpoint", "localhost:9000", "--out", "preset.json", "--versioning", "False"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	assert.ErrorContains(t, err, "unknown command")
}
