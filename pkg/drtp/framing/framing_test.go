package framing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrependStripRoundTrip(t *testing.T) {
	content := []byte("the quick brown fox")
	wire, err := Prepend("report.txt", content)
	require.NoError(t, err)
	require.Len(t, wire, NameSize+len(content))

	name, body, err := Strip(wire)
	require.NoError(t, err)
	require.Equal(t, "report.txt", name)
	require.Equal(t, content, body)
}

func TestPrependEmptyFile(t *testing.T) {
	wire, err := Prepend("empty.bin", nil)
	require.NoError(t, err)
	require.Len(t, wire, NameSize)

	name, body, err := Strip(wire)
	require.NoError(t, err)
	require.Equal(t, "empty.bin", name)
	require.Empty(t, body)
}

func TestEncodeNameRejectsTooLong(t *testing.T) {
	_, err := EncodeName(strings.Repeat("a", NameSize+1))
	require.Error(t, err)
}

func TestEncodeNameExactFit(t *testing.T) {
	name := strings.Repeat("a", NameSize)
	b, err := EncodeName(name)
	require.NoError(t, err)
	require.Equal(t, []byte(name), b)
}

func TestStripRejectsShortStream(t *testing.T) {
	_, _, err := Strip(make([]byte, NameSize-1))
	require.Error(t, err)
}
