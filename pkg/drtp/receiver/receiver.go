// Package receiver implements the Receiver Engine: accept inbound data
// packets, emit ACKs per strategy, and reassemble an ordered payload
// stream.
package receiver

import (
	"context"
	"time"

	"github.com/rvento/drtp/pkg/drtp/connection"
	"github.com/rvento/drtp/pkg/drtp/packet"
	"github.com/rvento/drtp/pkg/drtp/strategy"
)

// idleReceiveTimeout bounds how long a single blocking Receive call waits
// before the engine re-checks ctx cancellation; it is not a protocol-level
// timeout — only the sender ever retransmits on timeout, the receiver has
// no retransmission logic of its own.
const idleReceiveTimeout = 5 * time.Second

// Options configures a single Run call, mirroring sender.Options.
type Options struct {
	Window      int
	SkipAckOnce bool
	SkipAckIdx  int // zero-based index, among ACKs this receiver sends, to drop
}

// Result carries the reassembled byte stream (filename frame still
// attached — framing.Strip is the caller's job) plus the FIN packet that
// ended the data phase, so the caller can hand it straight to
// connection.CloseResponder.
type Result struct {
	Payload       []byte
	BytesReceived int
	Elapsed       time.Duration
	Fin           packet.Packet
}

type ackSkipper struct {
	idx       int
	armed     bool
	sent      int
	triggered bool
}

func newAckSkipper(opts Options) *ackSkipper {
	return &ackSkipper{idx: opts.SkipAckIdx, armed: opts.SkipAckOnce}
}

// shouldSkip reports whether the ACK about to be sent is the one
// configured one-shot drop, and advances the internal ACK counter.
func (s *ackSkipper) shouldSkip() bool {
	skip := s.armed && !s.triggered && s.sent == s.idx
	s.sent++
	if skip {
		s.triggered = true
	}
	return skip
}

// Run dispatches to the strategy recorded on conn, the same tagged-variant
// dispatch the sender uses.
func Run(ctx context.Context, conn *connection.State, opts Options) (Result, error) {
	start := time.Now()
	var (
		res Result
		err error
	)
	switch conn.Strategy {
	case strategy.StopAndWait:
		res, err = runStopAndWait(ctx, conn, opts)
	case strategy.GoBackN:
		res, err = runGoBackN(ctx, conn, opts)
	case strategy.SelectiveRepeat:
		res, err = runSelectiveRepeat(ctx, conn, opts)
	default:
		panic("receiver: unknown strategy kind")
	}
	res.Elapsed = time.Since(start)
	return res, err
}
