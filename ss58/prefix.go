package ss58

import "fmt"

// narrowLimit is the first value of the leading byte that selects the two byte prefix form.
const narrowLimit = 64

// reservedLimit is the first value of the leading byte in the reserved two byte range.
const reservedLimit = 128

// maxNetworkID is the largest network id representable by the two byte prefix form.
const maxNetworkID = 16383

// Prefix is the network identifier at the start of a decoded address.
// It is either a NarrowPrefix (one byte) or a WidePrefix (two bytes).
type Prefix interface {
	Bytes() []byte
	Len() int
	NetworkID() uint16
	Reserved() bool
	String() string
	isPrefix()
}

// NarrowPrefix is a one byte prefix covering networks 0 to 63.
type NarrowPrefix byte

// WidePrefix is a two byte prefix; its first byte is always >= 64.
// A first byte of 128 or above is in the reserved range and names no network.
type WidePrefix [2]byte

func (p NarrowPrefix) Bytes() []byte     { return []byte{byte(p)} }
func (p NarrowPrefix) Len() int          { return 1 }
func (p NarrowPrefix) NetworkID() uint16 { return uint16(p) }
func (p NarrowPrefix) Reserved() bool    { return false }
func (p NarrowPrefix) String() string    { return fmt.Sprintf("narrow(%d)", byte(p)) }
func (NarrowPrefix) isPrefix()           {}

func (p WidePrefix) Bytes() []byte { return []byte{p[0], p[1]} }
func (p WidePrefix) Len() int      { return 2 }

// NetworkID reverses the bit packing done by PrefixForNetwork:
// the low 6 bits of the first byte and the top 2 bits of the second byte carry
// the low byte of the id, the low 6 bits of the second byte carry the high bits.
// The result is meaningless when Reserved reports true.
func (p WidePrefix) NetworkID() uint16 {
	lower := (p[0]&0x3f)<<2 | p[1]>>6
	upper := p[1] & 0x3f
	return uint16(lower) | uint16(upper)<<8
}

// Reserved reports whether the first byte is in the reserved 128..255 range.
func (p WidePrefix) Reserved() bool {
	return p[0] >= reservedLimit
}

func (p WidePrefix) String() string {
	return fmt.Sprintf("wide(%#02x%02x)", p[0], p[1])
}

func (WidePrefix) isPrefix() {}

// NewPrefix wraps raw prefix bytes in the matching variant.
// One byte must be below 64, two bytes must start at 64 or above.
func NewPrefix(b []byte) (Prefix, error) {
	switch len(b) {
	case 1:
		if b[0] >= narrowLimit {
			return nil, &InvalidInputError{
				Field:  "prefix",
				Reason: fmt.Sprintf("one byte prefix must be below %d, got %d", narrowLimit, b[0]),
			}
		}
		return NarrowPrefix(b[0]), nil
	case 2:
		if b[0] < narrowLimit {
			return nil, &InvalidInputError{
				Field:  "prefix",
				Reason: fmt.Sprintf("two byte prefix must start at %d or above, got %d", narrowLimit, b[0]),
			}
		}
		return WidePrefix{b[0], b[1]}, nil
	}
	return nil, &InvalidInputError{
		Field:    "prefix",
		Expected: "1 or 2 bytes",
		Actual:   len(b),
	}
}

// PrefixForNetwork returns the canonical prefix for a network id.
func PrefixForNetwork(id uint16) (Prefix, error) {
	if id < narrowLimit {
		return NarrowPrefix(byte(id)), nil
	}
	if id > maxNetworkID {
		return nil, &InvalidInputError{
			Field:  "network",
			Reason: fmt.Sprintf("network id %d is above %d", id, maxNetworkID),
		}
	}
	first := byte((id&0x00fc)>>2) | 0x40
	second := byte(id>>8) | byte((id&0x0003)<<6)
	return WidePrefix{first, second}, nil
}

// splitPrefix picks the prefix branch from the leading byte of a decoded address.
func splitPrefix(data []byte) Prefix {
	if data[0] < narrowLimit {
		return NarrowPrefix(data[0])
	}
	var w WidePrefix
	copy(w[:], data[:2])
	return w
}
