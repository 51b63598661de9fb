// Package packet implements the DRTP wire format: a fixed 12-byte header
// (seq, ack, flags, window, all network byte order) followed by payload.
//
// The codec is purely functional and stateless, mirroring the teacher's
// WriteUint32LE/ReadUint24LE style in pkg/raknet/protocol.go, adapted from
// RakNet's little-endian 24-bit fields to DRTP's big-endian 32/16-bit ones.
package packet

import (
	"encoding/binary"

	"github.com/rvento/drtp/internal/drtperr"
)

// HeaderSize is the fixed length of a DRTP packet header in bytes.
const HeaderSize = 12

// Flag bits packed into the header's 16-bit flags field.
const (
	FlagRST uint16 = 1 << 0
	FlagFIN uint16 = 1 << 1
	FlagACK uint16 = 1 << 2
	FlagSYN uint16 = 1 << 3
)

// Packet is the decoded in-memory form of a DRTP datagram.
type Packet struct {
	Seq     uint32
	Ack     uint32
	Flags   uint16
	Window  uint16
	Payload []byte
}

func (p Packet) IsSYN() bool { return p.Flags&FlagSYN != 0 }
func (p Packet) IsACK() bool { return p.Flags&FlagACK != 0 }
func (p Packet) IsFIN() bool { return p.Flags&FlagFIN != 0 }
func (p Packet) IsRST() bool { return p.Flags&FlagRST != 0 }

// SetFlags packs the four control bits into the 16-bit flags field.
func SetFlags(syn, ack, fin, rst bool) uint16 {
	var f uint16
	if syn {
		f |= FlagSYN
	}
	if ack {
		f |= FlagACK
	}
	if fin {
		f |= FlagFIN
	}
	if rst {
		f |= FlagRST
	}
	return f
}

// ParseFlags unpacks the 16-bit flags field into its four control bits.
func ParseFlags(flags uint16) (syn, ack, fin, rst bool) {
	return flags&FlagSYN != 0, flags&FlagACK != 0, flags&FlagFIN != 0, flags&FlagRST != 0
}

// Encode packs a header and payload into wire bytes, network byte order.
func Encode(seq, ack uint32, flags, window uint16, payload []byte) []byte {
	buf := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], seq)
	binary.BigEndian.PutUint32(buf[4:8], ack)
	binary.BigEndian.PutUint16(buf[8:10], flags)
	binary.BigEndian.PutUint16(buf[10:12], window)
	copy(buf[HeaderSize:], payload)
	return buf
}

// EncodePacket is a convenience wrapper around Encode for a Packet value.
func EncodePacket(p Packet) []byte {
	return Encode(p.Seq, p.Ack, p.Flags, p.Window, p.Payload)
}

// Decode unpacks wire bytes into a Packet. It fails with MalformedPacket if
// data is shorter than the fixed header.
func Decode(data []byte) (Packet, error) {
	if len(data) < HeaderSize {
		return Packet{}, drtperr.New(drtperr.MalformedPacket, "packet shorter than 12-byte header")
	}
	p := Packet{
		Seq:    binary.BigEndian.Uint32(data[0:4]),
		Ack:    binary.BigEndian.Uint32(data[4:8]),
		Flags:  binary.BigEndian.Uint16(data[8:10]),
		Window: binary.BigEndian.Uint16(data[10:12]),
	}
	if len(data) > HeaderSize {
		p.Payload = append([]byte(nil), data[HeaderSize:]...)
	}
	return p, nil
}
