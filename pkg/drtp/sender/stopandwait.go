package sender

import (
	"time"

	"context"

	"github.com/rvento/drtp/internal/drtperr"
	"github.com/rvento/drtp/pkg/drtp/connection"
	"github.com/rvento/drtp/pkg/drtp/metrics"
	"github.com/rvento/drtp/pkg/drtp/packet"
)

// runStopAndWait sends one chunk at a time, waiting for its exact ACK
// before advancing. The timeout starts at 4×RTT measured during the
// handshake and is resampled to 4×RTT of each successful round trip, so it
// tracks the path instead of staying fixed.
func runStopAndWait(ctx context.Context, conn *connection.State, chunks [][]byte, opts Options) (Result, error) {
	skip := newSkipper(opts)
	timeout := conn.StopAndWaitTimeout()
	var result Result

	for i, chunk := range chunks {
		sentSeq := conn.Seq
		expectedAck := sentSeq + chunkLen(chunk)
		wire := packet.Encode(sentSeq, conn.Ack, 0, conn.Window, chunk)

		attempt := 0
		for {
			if ctx.Err() != nil {
				return result, drtperr.Wrap(drtperr.UserCancel, ctx.Err(), "send cancelled")
			}
			sendStart := time.Now()
			if !skip.shouldSkip(i, attempt) {
				if err := conn.Endpoint.Send(wire); err != nil {
					return result, err
				}
				metrics.PacketsSent.WithLabelValues("client", conn.Strategy.String(), "data").Inc()
				logWith(conn, map[string]interface{}{"chunk": i, "seq": sentSeq, "attempt": attempt}).Debug("sent data packet")
			} else {
				logWith(conn, map[string]interface{}{"chunk": i}).Debug("test-mode: dropped transmission")
			}
			if attempt > 0 {
				result.Retransmits++
				metrics.Retransmits.WithLabelValues(conn.Strategy.String()).Inc()
			}

			p, _, err := conn.Endpoint.Receive(timeout)
			if err != nil {
				if derr, ok := err.(*drtperr.Error); ok && derr.Kind == drtperr.Timeout {
					metrics.Timeouts.WithLabelValues(conn.Strategy.String()).Inc()
					attempt++
					continue
				}
				if derr, ok := err.(*drtperr.Error); ok && derr.Kind == drtperr.MalformedPacket {
					attempt++ // malformed datagram: drop it and retransmit, as for a stale ACK
					continue
				}
				return result, err
			}
			logWith(conn, map[string]interface{}{"chunk": i, "ack": p.Ack, "expected": expectedAck}).Debug("received ack")
			if p.IsACK() && p.Ack == expectedAck {
				rtt := time.Since(sendStart)
				timeout = 4 * rtt
				if timeout <= 0 {
					timeout = conn.StopAndWaitTimeout()
				}
				conn.Seq = expectedAck
				result.BytesSent += len(chunk)
				break
			}
			// any other ACK value is stale: retransmit the current chunk.
			attempt++
		}
	}
	return result, nil
}
