package receiver

import (
	"context"
	"sort"

	"github.com/rvento/drtp/internal/drtperr"
	"github.com/rvento/drtp/pkg/drtp/connection"
	"github.com/rvento/drtp/pkg/drtp/metrics"
	"github.com/rvento/drtp/pkg/drtp/packet"
	"github.com/rvento/drtp/pkg/drtp/strategy"
)

type srEntry struct {
	seq     uint32
	payload []byte
}

// runSelectiveRepeat buffers out-of-order arrivals up to the window size
// and flushes them in seq order once the buffer fills or FIN arrives.
// Because the sender never has more than W chunks in flight, a buffer of
// size W is always enough to restore order before flushing.
func runSelectiveRepeat(ctx context.Context, conn *connection.State, opts Options) (Result, error) {
	ackSkip := newAckSkipper(opts)
	var result Result
	w := opts.Window
	if w <= 0 {
		w = strategy.DefaultWindow
	}

	acked := make(map[uint32]bool)
	var buffer []srEntry

	flush := func() {
		sort.Slice(buffer, func(i, j int) bool { return buffer[i].seq < buffer[j].seq })
		for _, e := range buffer {
			result.Payload = append(result.Payload, e.payload...)
			result.BytesReceived += len(e.payload)
		}
		buffer = buffer[:0]
	}

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
			flush()
			result.Fin = p
			return result, nil
		}

		ackWire := packet.Encode(conn.Seq, p.Seq+packetLen(p), packet.FlagACK, conn.Window, nil)
		if acked[p.Seq] {
			// Duplicate: re-ACK to help the sender, don't re-buffer.
			if !ackSkip.shouldSkip() {
				if err := conn.Endpoint.Send(ackWire); err != nil {
					return result, err
				}
			}
			continue
		}

		acked[p.Seq] = true
		buffer = append(buffer, srEntry{seq: p.Seq, payload: p.Payload})
		if !ackSkip.shouldSkip() {
			if err := conn.Endpoint.Send(ackWire); err != nil {
				return result, err
			}
			metrics.PacketsSent.WithLabelValues("server", conn.Strategy.String(), "ack").Inc()
		}

		if len(buffer) >= w {
			flush()
		}
	}
}
