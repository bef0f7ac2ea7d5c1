package domain

import (
	"encoding/binary"

	"go.trai.ch/zerr"
)

// ValueKind discriminates build outcomes.
type ValueKind uint8

const (
	// ValueKindInvalid is never a valid cached outcome; it forces dependents
	// to rebuild.
	ValueKindInvalid ValueKind = iota
	// ValueKindVirtualInput marks a non-filesystem node as present.
	ValueKindVirtualInput
	// ValueKindExistingInput carries the stat fingerprint of a leaf file.
	ValueKindExistingInput
	// ValueKindMissingInput marks a leaf file as absent.
	ValueKindMissingInput
	// ValueKindFailedInput marks a node that could not be produced.
	ValueKindFailedInput
	// ValueKindSuccessfulCommand carries the output fingerprints and the
	// command signature of a completed command.
	ValueKindSuccessfulCommand
	// ValueKindFailedCommand marks a command that ran and failed.
	ValueKindFailedCommand
	// ValueKindSkippedCommand marks a command skipped due to cancellation.
	ValueKindSkippedCommand
	// ValueKindTarget is the marker outcome of a target task.
	ValueKindTarget
)

// BuildValue is the tagged outcome cached per BuildKey.
type BuildValue struct {
	Kind      ValueKind
	Outputs   []FileInfo
	Signature uint64
}

// InvalidValue makes the rebuild-forcing outcome.
func InvalidValue() BuildValue { return BuildValue{Kind: ValueKindInvalid} }

// VirtualInputValue makes the abstract "exists" marker.
func VirtualInputValue() BuildValue { return BuildValue{Kind: ValueKindVirtualInput} }

// ExistingInputValue makes the outcome of observing a present leaf file.
func ExistingInputValue(info FileInfo) BuildValue {
	return BuildValue{Kind: ValueKindExistingInput, Outputs: []FileInfo{info}}
}

// MissingInputValue makes the outcome of observing an absent leaf file.
func MissingInputValue() BuildValue { return BuildValue{Kind: ValueKindMissingInput} }

// FailedInputValue makes the outcome of a node that could not be produced.
func FailedInputValue() BuildValue { return BuildValue{Kind: ValueKindFailedInput} }

// SuccessfulCommandValue makes the outcome of a command run, capturing one
// fingerprint per declared output plus the command signature.
func SuccessfulCommandValue(outputs []FileInfo, signature uint64) BuildValue {
	return BuildValue{Kind: ValueKindSuccessfulCommand, Outputs: outputs, Signature: signature}
}

// FailedCommandValue makes the outcome of a command that ran and failed.
func FailedCommandValue() BuildValue { return BuildValue{Kind: ValueKindFailedCommand} }

// SkippedCommandValue makes the outcome of a command skipped by cancellation.
func SkippedCommandValue() BuildValue { return BuildValue{Kind: ValueKindSkippedCommand} }

// TargetValue makes the marker outcome for targets.
func TargetValue() BuildValue { return BuildValue{Kind: ValueKindTarget} }

// OutputInfo returns the fingerprint of the sole output. Valid only for
// ExistingInput values and single-output commands.
func (v BuildValue) OutputInfo() FileInfo {
	if len(v.Outputs) == 0 {
		return FileInfo{}
	}
	return v.Outputs[0]
}

// NthOutputInfo returns the fingerprint of the i-th declared output.
func (v BuildValue) NthOutputInfo(i int) FileInfo {
	if i < 0 || i >= len(v.Outputs) {
		return FileInfo{}
	}
	return v.Outputs[i]
}

// Encode serializes the value as a leading kind byte plus kind-specific
// payload. The layout is the on-disk contract for the cache database.
func (v BuildValue) Encode() []byte {
	switch v.Kind {
	case ValueKindExistingInput:
		buf := make([]byte, 0, 1+fileInfoEncodedSize)
		buf = append(buf, byte(v.Kind))
		return appendFileInfo(buf, v.OutputInfo())
	case ValueKindSuccessfulCommand:
		buf := make([]byte, 0, 1+8+2+len(v.Outputs)*fileInfoEncodedSize)
		buf = append(buf, byte(v.Kind))
		buf = binary.LittleEndian.AppendUint64(buf, v.Signature)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(v.Outputs)))
		for _, info := range v.Outputs {
			buf = appendFileInfo(buf, info)
		}
		return buf
	default:
		return []byte{byte(v.Kind)}
	}
}

// DecodeBuildValue parses an encoded value.
func DecodeBuildValue(data []byte) (BuildValue, error) {
	if len(data) == 0 {
		return BuildValue{}, zerr.New("empty build value")
	}
	kind := ValueKind(data[0])
	rest := data[1:]
	switch kind {
	case ValueKindInvalid, ValueKindVirtualInput, ValueKindMissingInput,
		ValueKindFailedInput, ValueKindFailedCommand, ValueKindSkippedCommand,
		ValueKindTarget:
		return BuildValue{Kind: kind}, nil
	case ValueKindExistingInput:
		info, ok := decodeFileInfo(rest)
		if !ok {
			return BuildValue{}, zerr.New("truncated file info in build value")
		}
		return ExistingInputValue(info), nil
	case ValueKindSuccessfulCommand:
		if len(rest) < 10 {
			return BuildValue{}, zerr.New("truncated command value")
		}
		signature := binary.LittleEndian.Uint64(rest[0:8])
		count := int(binary.LittleEndian.Uint16(rest[8:10]))
		rest = rest[10:]
		if len(rest) != count*fileInfoEncodedSize {
			return BuildValue{}, zerr.With(zerr.New("malformed command value"), "outputs", count)
		}
		var outputs []FileInfo
		if count > 0 {
			outputs = make([]FileInfo, count)
		}
		for i := range outputs {
			info, _ := decodeFileInfo(rest[i*fileInfoEncodedSize:])
			outputs[i] = info
		}
		return SuccessfulCommandValue(outputs, signature), nil
	default:
		return BuildValue{}, zerr.With(zerr.New("unknown build value kind"), "kind", int(kind))
	}
}
