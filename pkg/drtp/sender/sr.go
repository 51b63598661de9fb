package sender

import (
	"context"

	"github.com/rvento/drtp/internal/drtperr"
	"github.com/rvento/drtp/pkg/drtp/connection"
	"github.com/rvento/drtp/pkg/drtp/metrics"
	"github.com/rvento/drtp/pkg/drtp/packet"
	"github.com/rvento/drtp/pkg/drtp/strategy"
)

// runSelectiveRepeat keeps per-chunk acked bits within the current window
// and only resends what's still missing on timeout — the property that
// distinguishes it from GBN's whole-window resend.
func runSelectiveRepeat(ctx context.Context, conn *connection.State, chunks [][]byte, opts Options) (Result, error) {
	n := len(chunks)
	w := opts.Window
	if w <= 0 {
		w = strategy.DefaultWindow
	}
	skip := newSkipper(opts)
	var result Result

	seqOf := make([]uint32, n)
	expectedAckOf := make([]uint32, n)
	seq := conn.Seq
	for i, c := range chunks {
		seqOf[i] = seq
		expectedAckOf[i] = seq + chunkLen(c)
		seq += chunkLen(c)
	}
	attempted := make([]int, n)
	acked := make([]bool, n)
	timeout := msDuration(strategy.DefaultTimeout)

	base := 0
	for base < n {
		windowEnd := base + w
		if windowEnd > n {
			windowEnd = n
		}

		for {
			if ctx.Err() != nil {
				return result, drtperr.Wrap(drtperr.UserCancel, ctx.Err(), "send cancelled")
			}
			pending := 0
			for i := base; i < windowEnd; i++ {
				if acked[i] {
					continue
				}
				pending++
				wire := packet.Encode(seqOf[i], conn.Ack, 0, conn.Window, chunks[i])
				if !skip.shouldSkip(i, attempted[i]) {
					if err := conn.Endpoint.Send(wire); err != nil {
						return result, err
					}
					metrics.PacketsSent.WithLabelValues("client", conn.Strategy.String(), "data").Inc()
				}
				if attempted[i] > 0 {
					result.Retransmits++
					metrics.Retransmits.WithLabelValues(conn.Strategy.String()).Inc()
				}
				attempted[i]++
			}
			metrics.WindowOccupancy.WithLabelValues(conn.Strategy.String()).Set(float64(pending))
			if pending == 0 {
				break // everything in [base, windowEnd) already acked
			}

			timedOut := false
			for {
				p, _, err := conn.Endpoint.Receive(timeout)
				if err != nil {
					if derr, ok := err.(*drtperr.Error); ok && derr.Kind == drtperr.Timeout {
						metrics.Timeouts.WithLabelValues(conn.Strategy.String()).Inc()
						timedOut = true
						break
					}
					if derr, ok := err.(*drtperr.Error); ok && derr.Kind == drtperr.MalformedPacket {
						continue // malformed datagram: drop it and keep waiting
					}
					return result, err
				}
				if !p.IsACK() {
					continue
				}
				allAcked := true
				for i := base; i < windowEnd; i++ {
					if !acked[i] && expectedAckOf[i] == p.Ack {
						acked[i] = true
						result.BytesSent += len(chunks[i])
					}
					if !acked[i] {
						allAcked = false
					}
				}
				if allAcked {
					break
				}
			}
			if timedOut {
				continue // resend only what's still unacked in this window
			}
			break // all acked in this window
		}
		base = windowEnd
	}
	if n > 0 {
		conn.Seq = seqOf[n-1] + chunkLen(chunks[n-1])
	}
	return result, nil
}
