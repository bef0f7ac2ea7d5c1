// Package domain contains the core data model for the build system: keys,
// values, file fingerprints and the cache schema version.
package domain

import (
	"encoding/binary"
	"fmt"
)

// KeyKind discriminates the space of buildable entities.
type KeyKind uint8

const (
	// KeyKindUnknown marks a key that could not be decoded.
	KeyKindUnknown KeyKind = iota
	// KeyKindCommand identifies a command by name.
	KeyKindCommand
	// KeyKindCustomTask identifies a client-defined task by name and payload.
	KeyKindCustomTask
	// KeyKindNode identifies a node by name.
	KeyKindNode
	// KeyKindTarget identifies a target by name.
	KeyKindTarget
)

// Wire tags. These are the stable on-disk contract and must never change.
const (
	keyTagCommand    = 'C'
	keyTagCustomTask = 'X'
	keyTagNode       = 'N'
	keyTagTarget     = 'T'
)

// MaxNameLength bounds names embedded in keys and values.
const MaxNameLength = 1<<16 - 1

// BuildKey is the tagged identity of a buildable entity. It is the sole
// identity used for caching and cycle detection.
type BuildKey struct {
	Kind    KeyKind
	Name    string
	Payload []byte
}

// CommandKey makes a key identifying the command with the given name.
func CommandKey(name string) BuildKey {
	return BuildKey{Kind: KeyKindCommand, Name: name}
}

// CustomTaskKey makes a key identifying a client-defined task.
func CustomTaskKey(name string, payload []byte) BuildKey {
	return BuildKey{Kind: KeyKindCustomTask, Name: name, Payload: payload}
}

// NodeKey makes a key identifying the node with the given name.
func NodeKey(name string) BuildKey {
	return BuildKey{Kind: KeyKindNode, Name: name}
}

// TargetKey makes a key identifying the target with the given name.
func TargetKey(name string) BuildKey {
	return BuildKey{Kind: KeyKindTarget, Name: name}
}

// Encode serializes the key as a self-describing byte sequence: a leading
// kind tag followed by the kind-specific payload.
func (k BuildKey) Encode() []byte {
	switch k.Kind {
	case KeyKindCommand:
		return appendTagged(keyTagCommand, k.Name)
	case KeyKindNode:
		return appendTagged(keyTagNode, k.Name)
	case KeyKindTarget:
		return appendTagged(keyTagTarget, k.Name)
	case KeyKindCustomTask:
		buf := make([]byte, 0, 3+len(k.Name)+len(k.Payload))
		buf = append(buf, keyTagCustomTask)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(k.Name)))
		buf = append(buf, k.Name...)
		buf = append(buf, k.Payload...)
		return buf
	default:
		return []byte{0}
	}
}

func appendTagged(tag byte, name string) []byte {
	buf := make([]byte, 0, 1+len(name))
	buf = append(buf, tag)
	buf = append(buf, name...)
	return buf
}

// DecodeBuildKey parses an encoded key. Malformed input yields a key of
// KeyKindUnknown; the rule factory treats that as fatal.
func DecodeBuildKey(data []byte) BuildKey {
	if len(data) == 0 {
		return BuildKey{}
	}
	switch data[0] {
	case keyTagCommand:
		return CommandKey(string(data[1:]))
	case keyTagNode:
		return NodeKey(string(data[1:]))
	case keyTagTarget:
		return TargetKey(string(data[1:]))
	case keyTagCustomTask:
		if len(data) < 3 {
			return BuildKey{}
		}
		nameLen := int(binary.LittleEndian.Uint16(data[1:3]))
		if len(data) < 3+nameLen {
			return BuildKey{}
		}
		name := string(data[3 : 3+nameLen])
		var payload []byte
		if rest := data[3+nameLen:]; len(rest) > 0 {
			payload = append(payload, rest...)
		}
		return CustomTaskKey(name, payload)
	default:
		return BuildKey{}
	}
}

// Describe renders the key for diagnostics, e.g. cycle reports.
func (k BuildKey) Describe() string {
	switch k.Kind {
	case KeyKindCommand:
		return fmt.Sprintf("command '%s'", k.Name)
	case KeyKindCustomTask:
		return fmt.Sprintf("custom task '%s'", k.Name)
	case KeyKindNode:
		return fmt.Sprintf("node '%s'", k.Name)
	case KeyKindTarget:
		return fmt.Sprintf("target '%s'", k.Name)
	default:
		return "((unknown))"
	}
}
