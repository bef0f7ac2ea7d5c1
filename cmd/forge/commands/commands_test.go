package commands_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/cmd/forge/commands"
)

func TestCLI_Version(t *testing.T) {
	cli := commands.New(nil)
	cli.SetArgs([]string{"version"})

	err := cli.Execute(context.Background())
	assert.NoError(t, err)
}

func TestCLI_BuildRequiresTarget(t *testing.T) {
	cli := commands.New(nil)
	cli.SetArgs([]string{"build"})

	err := cli.Execute(context.Background())
	require.Error(t, err)
}

func TestCLI_UnknownCommand(t *testing.T) {
	cli := commands.New(nil)
	cli.SetArgs([]string{"bogus"})

	err := cli.Execute(context.Background())
	require.Error(t, err)
}
