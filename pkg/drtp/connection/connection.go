// Package connection implements the Connection Manager: the three-way
// handshake that opens a DRTP connection and the two-way FIN/FIN-ACK
// exchange that closes it.
package connection

import (
	"context"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rvento/drtp/internal/drtperr"
	"github.com/rvento/drtp/pkg/drtp/log"
	"github.com/rvento/drtp/pkg/drtp/metrics"
	"github.com/rvento/drtp/pkg/drtp/packet"
	"github.com/rvento/drtp/pkg/drtp/strategy"
	"github.com/rvento/drtp/pkg/drtp/transport"
)

// ServerAdvertisedWindow is the fixed value the server overrides its SYN+ACK
// window with: the project's chosen MTU-fit packet size.
const ServerAdvertisedWindow uint16 = strategy.DefaultWireWindow

// HandshakeRetries bounds how many SYN transmissions the client (and
// SYN+ACK transmissions the server), the first send included, make before
// failing with HandshakeTimeout.
const HandshakeRetries = 5

// HandshakeAttemptTimeout is how long the client waits for a SYN+ACK before
// retransmitting SYN.
const HandshakeAttemptTimeout = 1 * time.Second

// State is the per-connection bookkeeping the Connection Manager creates
// at handshake and the Sender/Receiver engines mutate thereafter. No state
// is shared across connections.
type State struct {
	Endpoint *transport.Endpoint
	Seq      uint32
	Ack      uint32
	Window   uint16
	Strategy strategy.Kind
	// RTT seeds the Stop-and-Wait timeout (4×RTT); GBN/SR ignore it and
	// use strategy.DefaultTimeout instead.
	RTT time.Duration
	Log *logrus.Entry
}

// StopAndWaitTimeout returns the 4×RTT initial retransmission timeout,
// resampled by the sender after each successful ACK.
func (s *State) StopAndWaitTimeout() time.Duration {
	if s.RTT <= 0 {
		return 4 * time.Second
	}
	return 4 * s.RTT
}

func randomISN() uint32 {
	return rand.Uint32()
}

// OpenClient performs the initiator side of the three-way handshake:
// SYN → SYN+ACK → ACK.
func OpenClient(ctx context.Context, ep *transport.Endpoint, window uint16, st strategy.Kind) (*State, error) {
	logger := log.Conn("client")
	isn := randomISN()
	synWire := packet.EncodePacket(packet.Packet{Seq: isn, Ack: 0, Flags: packet.FlagSYN, Window: window})

	var synAck packet.Packet
	firstSend := time.Now()
	attempt := 0
	for {
		if ctx.Err() != nil {
			return nil, drtperr.Wrap(drtperr.UserCancel, ctx.Err(), "handshake cancelled")
		}
		if attempt == 0 {
			firstSend = time.Now()
		}
		if err := ep.Send(synWire); err != nil {
			return nil, err
		}
		metrics.PacketsSent.WithLabelValues("client", st.String(), "syn").Inc()
		logger.WithField("attempt", attempt+1).Debug("sent SYN")

		p, _, err := ep.Receive(HandshakeAttemptTimeout)
		if err == nil && p.IsSYN() && p.IsACK() {
			synAck = p
			break
		}
		if err != nil {
			derr, ok := err.(*drtperr.Error)
			if !ok || (derr.Kind != drtperr.Timeout && derr.Kind != drtperr.MalformedPacket) {
				return nil, err
			}
			if derr.Kind == drtperr.Timeout {
				metrics.Timeouts.WithLabelValues(st.String()).Inc()
			}
		}
		attempt++
		if attempt >= HandshakeRetries {
			return nil, drtperr.New(drtperr.HandshakeTimeout, "no SYN+ACK after handshake retry budget")
		}
	}
	rtt := time.Since(firstSend)
	metrics.RTT.Observe(rtt.Seconds())

	localAck := synAck.Seq + 1
	localSeq := synAck.Ack
	ackWire := packet.EncodePacket(packet.Packet{Seq: localSeq, Ack: localAck, Flags: packet.FlagACK, Window: window})
	if err := ep.Send(ackWire); err != nil {
		return nil, err
	}
	metrics.PacketsSent.WithLabelValues("client", st.String(), "ack").Inc()

	logger.WithFields(logrus.Fields{"rtt_ms": rtt.Milliseconds(), "seq": localSeq, "ack": localAck}).Info("handshake established")
	return &State{Endpoint: ep, Seq: localSeq, Ack: localAck, Window: window, Strategy: st, RTT: rtt, Log: logger}, nil
}

// OpenServer performs the responder side of the three-way handshake: wait
// for SYN, reply SYN+ACK, wait for the final ACK whose ack == ISN+1.
func OpenServer(ctx context.Context, ep *transport.Endpoint, st strategy.Kind, acceptTimeout time.Duration) (*State, error) {
	logger := log.Conn("server")
	for {
		if ctx.Err() != nil {
			return nil, drtperr.Wrap(drtperr.UserCancel, ctx.Err(), "accept cancelled")
		}
		p, addr, err := ep.Receive(acceptTimeout)
		if err != nil {
			if derr, ok := err.(*drtperr.Error); ok && (derr.Kind == drtperr.Timeout || derr.Kind == drtperr.MalformedPacket) {
				continue
			}
			return nil, err
		}
		if !p.IsSYN() || p.IsACK() {
			continue // not an initial SYN; drop and keep listening
		}
		ep.SetPeer(addr)
		metrics.PacketsReceived.WithLabelValues("server", st.String(), "syn").Inc()

		isn := randomISN()
		peerAck := p.Seq + 1
		synAckWire := packet.EncodePacket(packet.Packet{
			Seq: isn, Ack: peerAck, Flags: packet.FlagSYN | packet.FlagACK, Window: ServerAdvertisedWindow,
		})

		for attempt := 0; ; attempt++ {
			if err := ep.Send(synAckWire); err != nil {
				return nil, err
			}
			metrics.PacketsSent.WithLabelValues("server", st.String(), "syn_ack").Inc()

			final, _, err := ep.Receive(HandshakeAttemptTimeout)
			if err != nil {
				if derr, ok := err.(*drtperr.Error); ok && derr.Kind == drtperr.Timeout {
					metrics.Timeouts.WithLabelValues(st.String()).Inc()
					if attempt+1 >= HandshakeRetries {
						return nil, drtperr.New(drtperr.HandshakeTimeout, "no final ACK after handshake retry budget")
					}
					continue
				}
				continue // any other receive error (e.g. a malformed datagram): resend SYN+ACK and wait again
			}
			if final.IsACK() && !final.IsSYN() && final.Ack == isn+1 {
				metrics.PacketsReceived.WithLabelValues("server", st.String(), "ack").Inc()
				logger.WithFields(logrus.Fields{"seq": isn + 1, "ack": peerAck}).Info("handshake established")
				return &State{
					Endpoint: ep, Seq: isn + 1, Ack: peerAck, Window: ServerAdvertisedWindow,
					Strategy: st, RTT: 0, Log: logger,
				}, nil
			}
			// The first ACK with ack == isn+1 ends the handshake above.
			// Anything else (a retransmitted SYN, an early data packet)
			// leaves the state untouched; the loop resends SYN+ACK and
			// waits again.
		}
	}
}

// CloseInitiator sends FIN and waits for FIN+ACK, retransmitting FIN on
// anything else.
func CloseInitiator(ctx context.Context, s *State) error {
	finWire := packet.EncodePacket(packet.Packet{Seq: s.Seq, Ack: s.Ack, Flags: packet.FlagFIN, Window: s.Window})
	for {
		if ctx.Err() != nil {
			return drtperr.Wrap(drtperr.UserCancel, ctx.Err(), "close cancelled")
		}
		if err := s.Endpoint.Send(finWire); err != nil {
			return err
		}
		p, _, err := s.Endpoint.Receive(HandshakeAttemptTimeout)
		if err != nil {
			if derr, ok := err.(*drtperr.Error); ok && (derr.Kind == drtperr.Timeout || derr.Kind == drtperr.MalformedPacket) {
				continue
			}
			return err
		}
		if p.IsFIN() && p.IsACK() {
			s.Log.Info("connection closed")
			return nil
		}
		// any non-FIN+ACK: retransmit FIN (loop continues)
	}
}

// CloseResponder replies FIN+ACK exactly once to peerFin, the FIN the
// caller has already received; it does not receive anything itself.
func CloseResponder(s *State, peerFin packet.Packet) error {
	reply := packet.EncodePacket(packet.Packet{Seq: s.Seq, Ack: peerFin.Seq + 1, Flags: packet.FlagFIN | packet.FlagACK, Window: s.Window})
	if err := s.Endpoint.Send(reply); err != nil {
		return err
	}
	s.Log.Info("connection closed")
	return nil
}
