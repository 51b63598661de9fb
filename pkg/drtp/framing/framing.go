// Package framing implements the fixed 32-byte filename header prepended
// to the first payload chunk of a transfer.
package framing

import (
	"bytes"

	"github.com/rvento/drtp/internal/drtperr"
)

// NameSize is the fixed, null-padded filename field length.
const NameSize = 32

// EncodeName null-pads filename to NameSize bytes. The caller (the CLI's
// argument validator) is responsible for rejecting names longer than
// NameSize before this is called.
func EncodeName(filename string) ([]byte, error) {
	b := []byte(filename)
	if len(b) > NameSize {
		return nil, drtperr.New(drtperr.MalformedPacket, "filename exceeds 32 bytes")
	}
	out := make([]byte, NameSize)
	copy(out, b)
	return out, nil
}

// Prepend builds the first chunk: the 32-byte filename frame followed by
// up to len(firstChunk) bytes of file content.
func Prepend(filename string, firstChunk []byte) ([]byte, error) {
	frame, err := EncodeName(filename)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, NameSize+len(firstChunk))
	out = append(out, frame...)
	out = append(out, firstChunk...)
	return out, nil
}

// Strip splits a reassembled byte stream into (filename, file contents),
// trimming the null padding from the 32-byte frame.
func Strip(stream []byte) (filename string, contents []byte, err error) {
	if len(stream) < NameSize {
		return "", nil, drtperr.New(drtperr.MalformedPacket, "reassembled stream shorter than filename frame")
	}
	name := bytes.TrimRight(stream[:NameSize], "\x00")
	return string(name), stream[NameSize:], nil
}
