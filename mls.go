// Package mls implements the cryptographic core of the Messaging Layer
// Security protocol: the ciphersuite registry, HPKE base-mode encryption,
// MLS-labelled signatures, the key-schedule KDF helpers, and the TLS
// presentation-language wire formats they share.
//
// Higher MLS machinery (ratchet tree, key schedule epochs, handshake and
// welcome/commit processing) is built on top of this package and lives
// elsewhere.
package mls

import (
	"fmt"

	"golang.org/x/crypto/cryptobyte"
)

// decodeErrorf builds a TLS decode error that unwraps to ErrDecode.
func decodeErrorf(format string, args ...interface{}) error {
	args = append(args, ErrDecode)
	return fmt.Errorf("mls: "+format+": %w", args...)
}

// Bounds of the MLS variable-length integer: two prefix bits select a 1, 2
// or 4 byte encoding, leaving 6, 14 or 30 bits for the value.
const (
	varintMax1 = 1<<6 - 1
	varintMax2 = 1<<14 - 1
	varintMax4 = 1<<30 - 1
)

// readVarint decodes a variable-length integer, insisting on the shortest
// possible encoding.
func readVarint(s *cryptobyte.String) (uint32, error) {
	var first uint8
	if !s.ReadUint8(&first) {
		return 0, decodeErrorf("truncated varint")
	}

	v := uint32(first & 0x3F)
	switch first >> 6 {
	case 0:
		return v, nil
	case 1:
		var b uint8
		if !s.ReadUint8(&b) {
			return 0, decodeErrorf("truncated varint")
		}
		v = v<<8 | uint32(b)
		if v <= varintMax1 {
			return 0, decodeErrorf("varint %d is not minimally encoded", v)
		}
		return v, nil
	case 2:
		var rest []byte
		if !s.ReadBytes(&rest, 3) {
			return 0, decodeErrorf("truncated varint")
		}
		v = v<<24 | uint32(rest[0])<<16 | uint32(rest[1])<<8 | uint32(rest[2])
		if v <= varintMax2 {
			return 0, decodeErrorf("varint %d is not minimally encoded", v)
		}
		return v, nil
	default:
		return 0, decodeErrorf("invalid varint prefix")
	}
}

func writeVarint(b *cryptobyte.Builder, n uint32) {
	switch {
	case n <= varintMax1:
		b.AddUint8(uint8(n))
	case n <= varintMax2:
		b.AddUint16(uint16(n) | 0x4000)
	case n <= varintMax4:
		b.AddUint32(n | 0x80000000)
	default:
		b.SetError(fmt.Errorf("mls: varint value %d exceeds 30 bits", n))
	}
}

// readOpaque decodes a variable-length byte vector.
func readOpaque(s *cryptobyte.String) ([]byte, error) {
	n, err := readVarint(s)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	if !s.CopyBytes(out) {
		return nil, decodeErrorf("opaque vector length %d exceeds remaining input", n)
	}
	return out, nil
}

func writeOpaque(b *cryptobyte.Builder, value []byte) {
	if uint64(len(value)) > varintMax4 {
		b.SetError(fmt.Errorf("mls: opaque vector of %d bytes does not fit a varint", len(value)))
		return
	}
	writeVarint(b, uint32(len(value)))
	b.AddBytes(value)
}

// readVector decodes a length-prefixed vector, handing the framed contents
// to f one element at a time until they are consumed.
func readVector(s *cryptobyte.String, f func(*cryptobyte.String) error) error {
	contents, err := readOpaque(s)
	if err != nil {
		return err
	}
	ss := cryptobyte.String(contents)
	for !ss.Empty() {
		if err := f(&ss); err != nil {
			return err
		}
	}
	return nil
}

// writeVector frames n elements written by f behind a varint length prefix.
// The length is not known up front, so the elements go through a scratch
// builder first.
func writeVector(b *cryptobyte.Builder, n int, f func(*cryptobyte.Builder, int)) {
	var content cryptobyte.Builder
	for i := 0; i < n; i++ {
		f(&content, i)
	}
	raw, err := content.Bytes()
	if err != nil {
		b.SetError(err)
		return
	}
	writeOpaque(b, raw)
}

// readOptional decodes the one-byte presence tag of an optional value.
func readOptional(s *cryptobyte.String) (bool, error) {
	var tag uint8
	if !s.ReadUint8(&tag) {
		return false, decodeErrorf("truncated optional")
	}
	if tag > 1 {
		return false, decodeErrorf("invalid optional tag %d", tag)
	}
	return tag == 1, nil
}

func writeOptional(b *cryptobyte.Builder, present bool) {
	tag := uint8(0)
	if present {
		tag = 1
	}
	b.AddUint8(tag)
}

// Unmarshaler is implemented by types that decode themselves from the TLS
// presentation language.
type Unmarshaler interface {
	unmarshal(*cryptobyte.String) error
}

// Marshaler is implemented by types that encode themselves into the TLS
// presentation language.
type Marshaler interface {
	marshal(*cryptobyte.Builder)
}

// Unmarshal decodes a complete TLS-serialized value. Trailing bytes after
// the top-level decode are an error. Failures unwrap to ErrDecode.
func Unmarshal(raw []byte, v Unmarshaler) error {
	s := cryptobyte.String(raw)
	if err := v.unmarshal(&s); err != nil {
		return err
	}
	if !s.Empty() {
		return decodeErrorf("%d trailing bytes after %T", len(s), v)
	}
	return nil
}

// Marshal encodes a value into the TLS presentation language.
func Marshal(v Marshaler) ([]byte, error) {
	var b cryptobyte.Builder
	v.marshal(&b)
	return b.Bytes()
}
