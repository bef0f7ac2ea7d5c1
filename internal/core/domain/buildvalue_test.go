package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/core/domain"
)

func sampleInfo(seed uint64) domain.FileInfo {
	return domain.FileInfo{
		Device: seed,
		Inode:  seed + 1,
		Mode:   0o644,
		Size:   seed * 10,
		ModTime: domain.FileTimestamp{
			Seconds:     int64(seed * 100),
			Nanoseconds: uint32(seed),
		},
	}
}

func TestBuildValue_RoundTrip(t *testing.T) {
	values := []domain.BuildValue{
		domain.InvalidValue(),
		domain.VirtualInputValue(),
		domain.ExistingInputValue(sampleInfo(7)),
		domain.MissingInputValue(),
		domain.FailedInputValue(),
		domain.SuccessfulCommandValue([]domain.FileInfo{sampleInfo(1), sampleInfo(2)}, 0xdeadbeef),
		domain.SuccessfulCommandValue(nil, 42),
		domain.FailedCommandValue(),
		domain.SkippedCommandValue(),
		domain.TargetValue(),
	}

	for _, value := range values {
		decoded, err := domain.DecodeBuildValue(value.Encode())
		require.NoError(t, err)
		assert.Equal(t, value, decoded)
	}
}

func TestBuildValue_DecodeMalformed(t *testing.T) {
	cases := [][]byte{
		nil,
		{},
		// Existing input with missing, then truncated, file info.
		{byte(domain.ValueKindExistingInput)},
		{byte(domain.ValueKindExistingInput), 1, 2, 3},
		// Successful command with a missing signature, then a dangling count.
		{byte(domain.ValueKindSuccessfulCommand)},
		{byte(domain.ValueKindSuccessfulCommand), 0, 0, 0, 0, 0, 0, 0, 0, 3, 0},
		{0xff},
	}

	for _, data := range cases {
		_, err := domain.DecodeBuildValue(data)
		assert.Error(t, err)
	}
}

func TestBuildValue_OutputInfo(t *testing.T) {
	info := sampleInfo(3)
	value := domain.SuccessfulCommandValue([]domain.FileInfo{info, sampleInfo(4)}, 1)

	assert.Equal(t, info, value.OutputInfo())
	assert.Equal(t, sampleInfo(4), value.NthOutputInfo(1))
	assert.True(t, value.NthOutputInfo(5).IsMissing())
	assert.True(t, domain.TargetValue().OutputInfo().IsMissing())
}

func TestFileInfo_Missing(t *testing.T) {
	assert.True(t, domain.FileInfo{}.IsMissing())
	assert.False(t, sampleInfo(1).IsMissing())
}
