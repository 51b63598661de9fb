// Package sender implements the Sender Engine: given an ordered chunk list
// and an established connection, drive one of the three retransmission
// strategies until every chunk is acknowledged.
package sender

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rvento/drtp/pkg/drtp/connection"
	"github.com/rvento/drtp/pkg/drtp/strategy"
)

// Options configures a single Run call: the deterministic loss-simulation
// fault injector used by test-mode runs, and, for GBN/SR, the sliding
// window size.
type Options struct {
	Window   int
	SkipOnce bool
	SkipIdx  int // zero-based index into chunks of the transmission to drop
}

// Result summarizes a completed transfer. The engine itself never computes
// throughput or prints a summary — cmd/drtp derives both from these
// counters after Run returns.
type Result struct {
	BytesSent   int
	Retransmits int
	Elapsed     time.Duration
}

// skipper implements the single deterministic drop test-mode loss
// simulation needs: exactly one transmission, at a fixed chunk index, on
// its first attempt, is suppressed without notifying the peer and without
// perturbing sequence numbering elsewhere.
type skipper struct {
	index     int
	armed     bool
	triggered bool
}

func newSkipper(opts Options) *skipper {
	return &skipper{index: opts.SkipIdx, armed: opts.SkipOnce}
}

// shouldSkip reports whether this exact transmission must be dropped.
// attempt == 0 means "first time this chunk is being sent"; retransmits
// (attempt > 0) are never skipped, so the fault only ever costs one round
// trip and the transfer still completes.
func (s *skipper) shouldSkip(chunkIdx, attempt int) bool {
	if !s.armed || s.triggered {
		return false
	}
	if chunkIdx == s.index && attempt == 0 {
		s.triggered = true
		return true
	}
	return false
}

// Run dispatches to the strategy recorded on conn at connection-establish
// time, switching once instead of comparing strategy names in the hot path.
func Run(ctx context.Context, conn *connection.State, chunks [][]byte, opts Options) (Result, error) {
	start := time.Now()
	var (
		res Result
		err error
	)
	switch conn.Strategy {
	case strategy.StopAndWait:
		res, err = runStopAndWait(ctx, conn, chunks, opts)
	case strategy.GoBackN:
		res, err = runGoBackN(ctx, conn, chunks, opts)
	case strategy.SelectiveRepeat:
		res, err = runSelectiveRepeat(ctx, conn, chunks, opts)
	default:
		panic("sender: unknown strategy kind")
	}
	res.Elapsed = time.Since(start)
	return res, err
}

func chunkLen(b []byte) uint32 { return uint32(len(b)) }

func msDuration(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }

func logWith(conn *connection.State, fields logrus.Fields) *logrus.Entry {
	return conn.Log.WithFields(fields)
}
