package receiver

import (
	"context"

	"github.com/rvento/drtp/internal/drtperr"
	"github.com/rvento/drtp/pkg/drtp/connection"
	"github.com/rvento/drtp/pkg/drtp/metrics"
	"github.com/rvento/drtp/pkg/drtp/packet"
)

// runStopAndWait accepts one in-order chunk at a time. Duplicates or
// packets that don't match the next expected step get the last ACK resent
// unchanged — the sender's cumulative ACK matching tolerates that without
// extra bookkeeping here.
func runStopAndWait(ctx context.Context, conn *connection.State, opts Options) (Result, error) {
	ackSkip := newAckSkipper(opts)
	var result Result
	expectedSeq := conn.Ack
	var lastAckWire []byte
	haveLastAck := false

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

		if p.Seq == expectedSeq {
			result.Payload = append(result.Payload, p.Payload...)
			result.BytesReceived += len(p.Payload)
			newAck := p.Seq + packetLen(p)
			ackWire := packet.Encode(conn.Seq, newAck, packet.FlagACK, conn.Window, nil)
			expectedSeq = newAck
			if !ackSkip.shouldSkip() {
				if err := conn.Endpoint.Send(ackWire); err != nil {
					return result, err
				}
				metrics.PacketsSent.WithLabelValues("server", conn.Strategy.String(), "ack").Inc()
			}
			lastAckWire, haveLastAck = ackWire, true
			continue
		}

		// Out-of-order or duplicate: re-send the last ACK unchanged.
		if haveLastAck && !ackSkip.shouldSkip() {
			if err := conn.Endpoint.Send(lastAckWire); err != nil {
				return result, err
			}
		}
	}
}

func packetLen(p packet.Packet) uint32 { return uint32(len(p.Payload)) }
