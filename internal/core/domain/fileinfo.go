package domain

import (
	"encoding/binary"
	"io/fs"
)

// FileTimestamp is a second/nanosecond pair with exact equality.
type FileTimestamp struct {
	Seconds     int64
	Nanoseconds uint32
}

// FileInfo is a compact stat fingerprint of a file. Two FileInfos compare
// equal iff every field matches; any difference invalidates cached results
// that embed the fingerprint.
type FileInfo struct {
	Device  uint64
	Inode   uint64
	Mode    uint32
	Size    uint64
	ModTime FileTimestamp
}

// IsMissing reports whether this is the "file absent" sentinel. The zero
// value is the sentinel; a real stat never produces all-zero fields.
func (fi FileInfo) IsMissing() bool {
	return fi == FileInfo{}
}

// IsDirectory reports whether the fingerprint describes a directory.
func (fi FileInfo) IsDirectory() bool {
	return fs.FileMode(fi.Mode).IsDir()
}

const fileInfoEncodedSize = 8 + 8 + 4 + 8 + 8 + 4

func appendFileInfo(buf []byte, fi FileInfo) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, fi.Device)
	buf = binary.LittleEndian.AppendUint64(buf, fi.Inode)
	buf = binary.LittleEndian.AppendUint32(buf, fi.Mode)
	buf = binary.LittleEndian.AppendUint64(buf, fi.Size)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(fi.ModTime.Seconds))
	buf = binary.LittleEndian.AppendUint32(buf, fi.ModTime.Nanoseconds)
	return buf
}

func decodeFileInfo(data []byte) (FileInfo, bool) {
	if len(data) < fileInfoEncodedSize {
		return FileInfo{}, false
	}
	return FileInfo{
		Device: binary.LittleEndian.Uint64(data[0:8]),
		Inode:  binary.LittleEndian.Uint64(data[8:16]),
		Mode:   binary.LittleEndian.Uint32(data[16:20]),
		Size:   binary.LittleEndian.Uint64(data[20:28]),
		ModTime: FileTimestamp{
			Seconds:     int64(binary.LittleEndian.Uint64(data[28:36])),
			Nanoseconds: binary.LittleEndian.Uint32(data[36:40]),
		},
	}, true
}
