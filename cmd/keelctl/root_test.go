package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amengaji/Keel/internal/core"
)

func TestRootCommands(t *testing.T) {
	cmd := newRootCmd()
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"types", "template", "preview", "commit", "history"})
}

func TestPreviewRequiresArgs(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"preview", "cadets"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg(s)")
}

func TestDescribe(t *testing.T) {
	err := describe(core.ErrUnknownImport)
	assert.True(t, errors.Is(err, core.ErrUnknownImport))
	assert.Contains(t, err.Error(), core.MapError(core.ErrUnknownImport).Code)
}

func TestExitErrorUnwraps(t *testing.T) {
	err := &exitError{code: 2, err: core.ErrTooManyImports}
	assert.ErrorIs(t, err, core.ErrTooManyImports)
}
