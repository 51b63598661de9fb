// Package transport wraps a UDP socket as the datagram endpoint the engine
// reads and writes DRTP packets on.
//
// A receive deadline is modeled explicitly here and surfaces as a
// *drtperr.Error with Kind == drtperr.Timeout — no raw net.Error ever
// crosses into the connection/sender/receiver packages. A timeout never
// closes or recreates the socket; the caller just calls Receive again.
package transport

import (
	"net"
	"time"

	"github.com/rvento/drtp/internal/drtperr"
	"github.com/rvento/drtp/pkg/drtp/packet"
)

// maxDatagram is large enough for any window size DRTP is configured with
// in practice; it only bounds the read buffer, not the protocol.
const maxDatagram = 65535

// Endpoint is a single connection's exclusive owner of a UDP socket; no
// locks are needed because no state is shared across connections.
type Endpoint struct {
	conn      *net.UDPConn
	peer      *net.UDPAddr
	connected bool // true for Dial: the socket is pre-connected, WriteToUDP is invalid on it
}

// Dial opens a client-side endpoint bound to a specific peer.
func Dial(ip string, port int) (*Endpoint, error) {
	addr := &net.UDPAddr{IP: net.ParseIP(ip), Port: port}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, drtperr.Wrap(drtperr.SocketFailure, err, "dial udp")
	}
	return &Endpoint{conn: conn, peer: addr, connected: true}, nil
}

// Listen opens a server-side endpoint bound to a local address. The peer is
// unknown until the first packet is received; call SetPeer with the
// handshake's SYN source address once learned.
func Listen(ip string, port int) (*Endpoint, error) {
	addr := &net.UDPAddr{IP: net.ParseIP(ip), Port: port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, drtperr.Wrap(drtperr.SocketFailure, err, "listen udp")
	}
	return &Endpoint{conn: conn}, nil
}

// SetPeer pins the endpoint to a specific remote address, used by the
// server once it has learned the client's address from the initial SYN.
func (e *Endpoint) SetPeer(addr *net.UDPAddr) {
	e.peer = addr
}

// Peer returns the endpoint's current remote address, or nil if unknown.
func (e *Endpoint) Peer() *net.UDPAddr {
	return e.peer
}

// LocalAddr returns the endpoint's bound local address, useful for
// discovering the ephemeral port chosen when a caller binds to port 0.
func (e *Endpoint) LocalAddr() *net.UDPAddr {
	return e.conn.LocalAddr().(*net.UDPAddr)
}

// Send transmits a pre-encoded wire packet to the endpoint's pinned peer.
// UDP writes don't block waiting for the peer, so the caller's retransmit
// loop is free to manage its own timing.
func (e *Endpoint) Send(wire []byte) error {
	var err error
	switch {
	case e.connected:
		// WriteToUDP is invalid on an already-connected socket (Dial).
		_, err = e.conn.Write(wire)
	case e.peer != nil:
		_, err = e.conn.WriteToUDP(wire, e.peer)
	default:
		_, err = e.conn.Write(wire)
	}
	if err != nil {
		return drtperr.Wrap(drtperr.SocketFailure, err, "send")
	}
	return nil
}

// Receive blocks for at most deadline waiting for one datagram, decodes it,
// and returns the sender's address. A deadline elapsing returns a
// *drtperr.Error with Kind == drtperr.Timeout, the sentinel the engine's
// strategies match on to trigger a retransmit.
func (e *Endpoint) Receive(deadline time.Duration) (packet.Packet, *net.UDPAddr, error) {
	if err := e.conn.SetReadDeadline(time.Now().Add(deadline)); err != nil {
		return packet.Packet{}, nil, drtperr.Wrap(drtperr.SocketFailure, err, "set read deadline")
	}
	buf := make([]byte, maxDatagram)
	n, addr, err := e.conn.ReadFromUDP(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return packet.Packet{}, nil, drtperr.New(drtperr.Timeout, "receive deadline elapsed")
		}
		return packet.Packet{}, nil, drtperr.Wrap(drtperr.SocketFailure, err, "receive")
	}
	p, err := packet.Decode(buf[:n])
	if err != nil {
		// MalformedPacket is recovered locally: drop and let the caller
		// loop back into Receive for the next datagram.
		return packet.Packet{}, addr, err
	}
	return p, addr, nil
}

// Close releases the underlying socket.
func (e *Endpoint) Close() error {
	return e.conn.Close()
}
