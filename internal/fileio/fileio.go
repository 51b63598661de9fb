// Package fileio is the external collaborator handling file open/read/write
// and chunk construction. The core (pkg/drtp/...) never imports this
// package — it only ever sees the ordered chunk list this package builds,
// and the byte stream the Receiver Engine hands back.
package fileio

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/rvento/drtp/pkg/drtp/framing"
	"github.com/rvento/drtp/pkg/drtp/packet"
)

// ReadFile reads the whole file to memory — DRTP transfers exactly one file
// per connection, so streaming isn't required.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read input file")
	}
	return data, nil
}

// WriteFile persists the received file to <dir>/<filename>.
func WriteFile(dir, filename string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create save directory")
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "write output file")
	}
	return nil
}

// Chunk splits file content into the ordered chunk list the Sender Engine
// consumes: the first chunk carries the 32-byte filename frame and
// window-12-32 bytes of content, later chunks carry window-12 bytes, and
// the list ends with an empty-chunk EOF sentinel. The sentinel is sent as
// an ordinary zero-length data packet; the receivers end the data phase
// on FIN, not on this chunk.
func Chunk(filename string, data []byte, window int) ([][]byte, error) {
	chunkSize := window - packet.HeaderSize
	firstSize := chunkSize - framing.NameSize
	if firstSize <= 0 {
		return nil, errors.New("window too small to fit filename frame and any payload")
	}

	var chunks [][]byte
	n := len(data)
	take := firstSize
	if take > n {
		take = n
	}
	first, err := framing.Prepend(filename, data[:take])
	if err != nil {
		return nil, err
	}
	chunks = append(chunks, first)
	offset := take

	for offset < n {
		end := offset + chunkSize
		if end > n {
			end = n
		}
		chunks = append(chunks, append([]byte(nil), data[offset:end]...))
		offset = end
	}

	chunks = append(chunks, []byte{}) // empty chunk marks end of file
	return chunks, nil
}
