package receiver

import (
	"context"

	"github.com/rvento/drtp/internal/drtperr"
	"github.com/rvento/drtp/pkg/drtp/connection"
	"github.com/rvento/drtp/pkg/drtp/metrics"
	"github.com/rvento/drtp/pkg/drtp/packet"
)

// runGoBackN accepts only the next expected seq and drops anything else
// silently — no ACK — so a gap reliably forces the sender's timeout and a
// full-window resend, the classic GBN invariant.
func runGoBackN(ctx context.Context, conn *connection.State, opts Options) (Result, error) {
	ackSkip := newAckSkipper(opts)
	var result Result
	nextExpected := conn.Ack

	for {
		if ctx.Err() != nil {
			return result, drtperr.Wrap(drtperr.UserCancel, ctx.Err(), "receive cancelled")
		}
		p, _, err := conn.Endpoint.Receive(idleReceiveTimeout)
		if err != nil {
			if derr, ok := err.(*drtperr.Error); ok && (derr.Kind == drtperr.Timeout || derr.Kind == drtperr.MalformedPacket) {
				continue
			}
			return result, err
		}
		metrics.PacketsReceived.WithLabelValues("server", conn.Strategy.String(), "data").Inc()

		if p.IsFIN() {
			result.Fin = p
			return result, nil
		}

		if p.Seq == nextExpected {
			result.Payload = append(result.Payload, p.Payload...)
			result.BytesReceived += len(p.Payload)
			nextExpected = p.Seq + packetLen(p)
			ackWire := packet.Encode(conn.Seq, nextExpected, packet.FlagACK, conn.Window, nil)
			if !ackSkip.shouldSkip() {
				if err := conn.Endpoint.Send(ackWire); err != nil {
					return result, err
				}
				metrics.PacketsSent.WithLabelValues("server", conn.Strategy.String(), "ack").Inc()
			}
			continue
		}
		// out-of-order: drop silently, no ACK — forces sender timeout + resend.
	}
}
