// Package integration exercises the Sender Engine, Receiver Engine and
// Connection Manager together over real loopback UDP sockets.
package integration

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rvento/drtp/internal/fileio"
	"github.com/rvento/drtp/pkg/drtp/connection"
	"github.com/rvento/drtp/pkg/drtp/framing"
	"github.com/rvento/drtp/pkg/drtp/receiver"
	"github.com/rvento/drtp/pkg/drtp/sender"
	"github.com/rvento/drtp/pkg/drtp/strategy"
	"github.com/rvento/drtp/pkg/drtp/transport"
)

type transferOutcome struct {
	senderResult   sender.Result
	receiverResult receiver.Result
	senderErr      error
	receiverErr    error
}

// runTransfer drives one full connection lifecycle: handshake, data
// transfer under the given strategy and sender/receiver options, and
// close.
func runTransfer(t *testing.T, st strategy.Kind, window int, chunks [][]byte, sOpts sender.Options, rOpts receiver.Options) transferOutcome {
	t.Helper()
	// window here is the wire/chunking window (packet size in bytes); it
	// only seeds the strategy's sliding-window packet count when the caller
	// hasn't set one explicitly.
	if sOpts.Window == 0 {
		sOpts.Window = window
	}
	if rOpts.Window == 0 {
		rOpts.Window = window
	}

	srvEp, err := transport.Listen("127.0.0.1", 0)
	require.NoError(t, err)
	defer srvEp.Close()
	port := srvEp.LocalAddr().Port

	ctx := context.Background()
	var wg sync.WaitGroup
	var out transferOutcome

	wg.Add(1)
	go func() {
		defer wg.Done()
		srvState, err := connection.OpenServer(ctx, srvEp, st, 5*time.Second)
		if err != nil {
			out.receiverErr = err
			return
		}
		out.receiverResult, out.receiverErr = receiver.Run(ctx, srvState, rOpts)
		if out.receiverErr == nil {
			out.receiverErr = connection.CloseResponder(srvState, out.receiverResult.Fin)
		}
	}()

	cliEp, err := transport.Dial("127.0.0.1", port)
	require.NoError(t, err)
	defer cliEp.Close()

	cliState, err := connection.OpenClient(ctx, cliEp, uint16(window), st)
	require.NoError(t, err)

	out.senderResult, out.senderErr = sender.Run(ctx, cliState, chunks, sOpts)
	require.NoError(t, out.senderErr)
	require.NoError(t, connection.CloseInitiator(ctx, cliState))

	wg.Wait()
	return out
}

func buildChunks(t *testing.T, filename string, content []byte, window int) [][]byte {
	t.Helper()
	chunks, err := fileio.Chunk(filename, content, window)
	require.NoError(t, err)
	return chunks
}

var strategies = []strategy.Kind{strategy.StopAndWait, strategy.GoBackN, strategy.SelectiveRepeat}

// TestEndToEndNoLoss verifies that for all three strategies, the
// reassembled byte stream equals the source file exactly, with no
// duplicated or out-of-order bytes.
func TestEndToEndNoLoss(t *testing.T) {
	window := 100
	content := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 40)

	for _, st := range strategies {
		st := st
		t.Run(st.String(), func(t *testing.T) {
			chunks := buildChunks(t, "fox.txt", content, window)
			out := runTransfer(t, st, window, chunks, sender.Options{}, receiver.Options{})
			require.NoError(t, out.receiverErr)

			name, body, err := framing.Strip(out.receiverResult.Payload)
			require.NoError(t, err)
			require.Equal(t, "fox.txt", name)
			require.Equal(t, content, body)
			require.Equal(t, len(content), len(body))
		})
	}
}

// TestEndToEndEmptyFile verifies a zero-byte file still round-trips: the
// filename frame and an immediate EOF sentinel are enough to complete a
// transfer.
func TestEndToEndEmptyFile(t *testing.T) {
	window := 100
	for _, st := range strategies {
		st := st
		t.Run(st.String(), func(t *testing.T) {
			chunks := buildChunks(t, "empty.bin", nil, window)
			out := runTransfer(t, st, window, chunks, sender.Options{}, receiver.Options{})
			require.NoError(t, out.receiverErr)

			name, body, err := framing.Strip(out.receiverResult.Payload)
			require.NoError(t, err)
			require.Equal(t, "empty.bin", name)
			require.Empty(t, body)
		})
	}
}

// TestSenderSkipOnceStillCompletes drops one data packet's first
// transmission and checks that all three strategies recover via timeout
// and retransmit, still producing a bit-exact file.
func TestSenderSkipOnceStillCompletes(t *testing.T) {
	window := 60
	content := bytes.Repeat([]byte("0123456789"), 30)

	for _, st := range strategies {
		st := st
		t.Run(st.String(), func(t *testing.T) {
			chunks := buildChunks(t, "f.bin", content, window)
			require.Greater(t, len(chunks), 3)
			out := runTransfer(t, st, window, chunks,
				sender.Options{SkipOnce: true, SkipIdx: 2},
				receiver.Options{})
			require.NoError(t, out.receiverErr)
			require.Greater(t, out.senderResult.Retransmits, 0)

			_, body, err := framing.Strip(out.receiverResult.Payload)
			require.NoError(t, err)
			require.Equal(t, content, body)
		})
	}
}

// TestReceiverSkipAckOnceStillCompletes drops one ACK's first transmission
// and checks that the sender still retransmits the unacked chunk and the
// transfer completes.
func TestReceiverSkipAckOnceStillCompletes(t *testing.T) {
	window := 60
	content := bytes.Repeat([]byte("abcdefghij"), 30)

	for _, st := range strategies {
		st := st
		t.Run(st.String(), func(t *testing.T) {
			chunks := buildChunks(t, "g.bin", content, window)
			require.Greater(t, len(chunks), 3)
			out := runTransfer(t, st, window, chunks,
				sender.Options{},
				receiver.Options{SkipAckOnce: true, SkipAckIdx: 2})
			require.NoError(t, out.receiverErr)
			require.Greater(t, out.senderResult.Retransmits, 0)

			_, body, err := framing.Strip(out.receiverResult.Payload)
			require.NoError(t, err)
			require.Equal(t, content, body)
		})
	}
}

// TestGBNRetransmitsWholeWindowOnDrop checks the defining GBN behavior:
// losing one packet forces a resend of every packet from the drop point
// onward in that window, not just the lost one.
func TestGBNRetransmitsWholeWindowOnDrop(t *testing.T) {
	window := 60
	content := bytes.Repeat([]byte("z"), 200) // several windows worth at W=5

	chunks := buildChunks(t, "w.bin", content, window)
	out := runTransfer(t, strategy.GoBackN, window, chunks,
		sender.Options{Window: 5, SkipOnce: true, SkipIdx: 2},
		receiver.Options{})
	require.NoError(t, out.receiverErr)
	// dropping chunk index 2 inside the first window of 5 forces a resend
	// of indices 2,3,4 (3 packets) at minimum.
	require.GreaterOrEqual(t, out.senderResult.Retransmits, 3)

	_, body, err := framing.Strip(out.receiverResult.Payload)
	require.NoError(t, err)
	require.Equal(t, content, body)
}

// TestSRRetransmitsOnlyDroppedPacket checks the defining SR behavior: a
// dropped chunk is retransmitted by itself, not the whole window around it.
func TestSRRetransmitsOnlyDroppedPacket(t *testing.T) {
	window := 60
	content := bytes.Repeat([]byte("z"), 200)

	chunks := buildChunks(t, "w.bin", content, window)
	out := runTransfer(t, strategy.SelectiveRepeat, window, chunks,
		sender.Options{Window: 5, SkipOnce: true, SkipIdx: 2},
		receiver.Options{})
	require.NoError(t, out.receiverErr)
	require.Equal(t, 1, out.senderResult.Retransmits)

	_, body, err := framing.Strip(out.receiverResult.Payload)
	require.NoError(t, err)
	require.Equal(t, content, body)
}
