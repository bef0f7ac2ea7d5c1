package buildsystem_test

import (
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/buildsystem"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func TestLookupBuiltinTool(t *testing.T) {
	for _, name := range []string{"shell", "phony", "clang", "mkdir"} {
		tool := buildsystem.LookupBuiltinTool(name)
		require.NotNil(t, tool, "tool %q", name)
		assert.Equal(t, name, tool.Name())
		assert.Nil(t, tool.CreateCustomCommand(domain.CustomTaskKey("x", nil)))
		assert.Error(t, tool.ConfigureAttribute("bogus", "1"))
	}

	assert.Nil(t, buildsystem.LookupBuiltinTool("swiftc"))
}

func TestShellCommand_Configure(t *testing.T) {
	tool := buildsystem.LookupBuiltinTool("shell")
	cmd := tool.CreateCommand("c1")

	// A scalar args string wraps into a shell invocation.
	require.NoError(t, cmd.ConfigureAttribute("args", "echo hi"))
	assert.Equal(t, `/bin/sh -c "echo hi"`, cmd.VerboseDescription())

	// A list is used verbatim.
	require.NoError(t, cmd.ConfigureAttributeList("args", []string{"echo", "hi"}))
	assert.Equal(t, "echo hi", cmd.VerboseDescription())

	assert.Error(t, cmd.ConfigureAttributeList("args", nil))
	require.NoError(t, cmd.ConfigureAttributeMap("env", map[string]string{"A": "1"}))
	assert.Error(t, cmd.ConfigureAttribute("bogus", "x"))
	assert.True(t, cmd.ShouldShowStatus())
}

func TestPhonyCommand_SuppressesStatus(t *testing.T) {
	tool := buildsystem.LookupBuiltinTool("phony")
	cmd := tool.CreateCommand("p")

	assert.False(t, cmd.ShouldShowStatus())
	assert.Equal(t, "p", cmd.ShortDescription())
}

func TestClangCommand_Configure(t *testing.T) {
	tool := buildsystem.LookupBuiltinTool("clang")
	cmd := tool.CreateCommand("cc")

	require.NoError(t, cmd.ConfigureAttribute("args", "cc -c main.c"))
	require.NoError(t, cmd.ConfigureAttribute("deps", "main.d"))
	assert.Error(t, cmd.ConfigureAttribute("bogus", "x"))
	assert.Equal(t, "cc -c main.c", cmd.VerboseDescription())
}

func TestMkdirCommand_Configure(t *testing.T) {
	tool := buildsystem.LookupBuiltinTool("mkdir")
	cmd := tool.CreateCommand("mk")

	out := buildsystem.NewNode("gen", false)
	require.NoError(t, cmd.ConfigureOutputs([]*buildsystem.Node{out}))
	assert.Equal(t, "mkdir gen", cmd.VerboseDescription())

	assert.Error(t, cmd.ConfigureOutputs(nil))
	assert.Error(t, cmd.ConfigureOutputs([]*buildsystem.Node{
		buildsystem.NewNode("a", false), buildsystem.NewNode("b", false),
	}))
	assert.Error(t, cmd.ConfigureOutputs([]*buildsystem.Node{buildsystem.NewNode("<v>", false)}))
	assert.Error(t, cmd.ConfigureInputs([]*buildsystem.Node{buildsystem.NewNode("in", false)}))
}

func TestShellCommand_IsResultValid(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tool := buildsystem.LookupBuiltinTool("shell")
	cmd := tool.CreateCommand("c1")
	require.NoError(t, cmd.ConfigureAttributeList("args", []string{"touch", "out"}))

	out := buildsystem.NewNode("out", false)
	require.NoError(t, cmd.ConfigureOutputs([]*buildsystem.Node{out}))

	info := domain.FileInfo{Device: 1, Inode: 2, Mode: 0o644, Size: 3,
		ModTime: domain.FileTimestamp{Seconds: 4, Nanoseconds: 5}}

	fsys := mocks.NewMockFileSystem(ctrl)
	fsys.EXPECT().GetFileInfo("out").Return(info).AnyTimes()

	// Non-success kinds are never valid.
	assert.False(t, cmd.IsResultValid(fsys, domain.FailedCommandValue()))
	assert.False(t, cmd.IsResultValid(fsys, domain.TargetValue()))

	// A wrong signature is never valid, regardless of outputs.
	stale := domain.SuccessfulCommandValue([]domain.FileInfo{info}, 12345)
	assert.False(t, cmd.IsResultValid(fsys, stale))
}

func TestShellCommand_IsResultValid_OutputChanged(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tool := buildsystem.LookupBuiltinTool("shell")
	cmd := tool.CreateCommand("c1")
	require.NoError(t, cmd.ConfigureAttributeList("args", []string{"touch", "out"}))
	out := buildsystem.NewNode("out", false)
	require.NoError(t, cmd.ConfigureOutputs([]*buildsystem.Node{out}))

	// The output has been deleted since the prior run.
	fsys := mocks.NewMockFileSystem(ctrl)
	fsys.EXPECT().GetFileInfo("out").Return(domain.FileInfo{}).AnyTimes()

	// The prior value carries the command's current signature (no inputs,
	// output "out", argv "touch out", NUL separated), so only the deleted
	// output can invalidate it.
	signature := xxhash.Sum64String("\x00out\x00\x00touch\x00out\x00")
	recorded := domain.FileInfo{Device: 1, Inode: 2, Size: 3}
	prior := domain.SuccessfulCommandValue([]domain.FileInfo{recorded}, signature)
	assert.False(t, cmd.IsResultValid(fsys, prior))
}

func TestCommand_ResultForOutput(t *testing.T) {
	tool := buildsystem.LookupBuiltinTool("shell")
	cmd := tool.CreateCommand("c1")
	out := buildsystem.NewNode("out", false)
	require.NoError(t, cmd.ConfigureOutputs([]*buildsystem.Node{out}))

	info := domain.FileInfo{Device: 9, Inode: 9, Size: 9}
	success := domain.SuccessfulCommandValue([]domain.FileInfo{info}, 7)

	assert.Equal(t, domain.ExistingInputValue(info), cmd.ResultForOutput(out, success))
	assert.Equal(t, domain.FailedInputValue(), cmd.ResultForOutput(out, domain.FailedCommandValue()))
	assert.Equal(t, domain.FailedInputValue(), cmd.ResultForOutput(out, domain.SkippedCommandValue()))
}
