package sender

import (
	"context"

	"github.com/rvento/drtp/internal/drtperr"
	"github.com/rvento/drtp/pkg/drtp/connection"
	"github.com/rvento/drtp/pkg/drtp/metrics"
	"github.com/rvento/drtp/pkg/drtp/packet"
	"github.com/rvento/drtp/pkg/drtp/strategy"
)

const gbnTimeoutMS = strategy.DefaultTimeout

// runGoBackN maintains a sliding window of up to W in-flight chunks. A
// timeout retransmits the whole current window from base; the receiver's
// contract of dropping out-of-order packets silently (no ACK) is what
// makes that the correct recovery.
func runGoBackN(ctx context.Context, conn *connection.State, chunks [][]byte, opts Options) (Result, error) {
	n := len(chunks)
	w := opts.Window
	if w <= 0 {
		w = strategy.DefaultWindow
	}
	skip := newSkipper(opts)
	var result Result

	seqOf := make([]uint32, n)
	seq := conn.Seq
	for i, c := range chunks {
		seqOf[i] = seq
		seq += chunkLen(c)
	}
	attempted := make([]int, n)

	timeout := msDuration(gbnTimeoutMS)
	base := 0
	for base < n {
		if ctx.Err() != nil {
			return result, drtperr.Wrap(drtperr.UserCancel, ctx.Err(), "send cancelled")
		}
		windowEnd := base + w
		if windowEnd > n {
			windowEnd = n
		}
		for i := base; i < windowEnd; i++ {
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
		metrics.WindowOccupancy.WithLabelValues(conn.Strategy.String()).Set(float64(windowEnd - base))

		expectedAck := seqOf[base] + chunkLen(chunks[base])
		timedOut := false
		for base < windowEnd {
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
			if p.IsACK() && p.Ack >= expectedAck {
				result.BytesSent += len(chunks[base])
				base++
				if base < windowEnd {
					expectedAck = seqOf[base] + chunkLen(chunks[base])
				}
				continue
			}
			// duplicate or lesser ACK: ignored.
		}
		if timedOut {
			continue // re-enter the outer loop: window is rebuilt from base
		}
	}
	if n > 0 {
		conn.Seq = seqOf[n-1] + chunkLen(chunks[n-1])
	}
	return result, nil
}
