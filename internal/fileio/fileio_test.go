package fileio

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rvento/drtp/pkg/drtp/framing"
)

func TestChunkEmptyFileProducesFilenameFrameThenEOFSentinel(t *testing.T) {
	chunks, err := Chunk("empty.bin", nil, 1472)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	require.Len(t, chunks[0], framing.NameSize)
	require.Empty(t, chunks[1])
}

func TestChunkReassemblesExactly(t *testing.T) {
	window := 100
	chunkSize := window - 12
	data := bytes.Repeat([]byte("x"), chunkSize*3+7)

	chunks, err := Chunk("report.bin", data, window)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	var reassembled []byte
	for _, c := range chunks {
		reassembled = append(reassembled, c...)
	}
	name, body, err := framing.Strip(reassembled)
	require.NoError(t, err)
	require.Equal(t, "report.bin", name)
	require.Equal(t, data, body)

	// last element is the empty EOF sentinel chunk
	require.Empty(t, chunks[len(chunks)-1])
	// no chunk other than the last exceeds window-12 bytes
	for _, c := range chunks[:len(chunks)-1] {
		require.LessOrEqual(t, len(c), chunkSize)
	}
}

func TestChunkRejectsWindowTooSmall(t *testing.T) {
	_, err := Chunk("f", []byte("x"), 12+framing.NameSize)
	require.Error(t, err)
}

func TestWriteFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteFile(dir, "out.txt", []byte("hello")))
	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)
}
