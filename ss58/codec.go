package ss58

import (
	"bytes"
	"encoding/hex"
	"strings"

	"github.com/decred/base58"
	"golang.org/x/crypto/blake2b"
)

const (
	// PublicKeyLen is the size of the account id carried by an address.
	PublicKeyLen = 32
	// ChecksumLen is the number of digest bytes kept as checksum.
	ChecksumLen = 2

	alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
)

var checksumTag = []byte("SS58PRE")

// PublicKey is the raw 32 byte account id.
type PublicKey [PublicKeyLen]byte

// Hex returns the key as 0x prefixed lowercase hex.
func (k PublicKey) Hex() string {
	return "0x" + hex.EncodeToString(k[:])
}

func (k PublicKey) String() string { return k.Hex() }

// Checksum is the truncated blake2b digest appended to an address.
type Checksum [ChecksumLen]byte

// DecodedAddress is an address split into its fields.
// A value returned by Decode always carries a verified checksum.
type DecodedAddress struct {
	Prefix    Prefix
	PublicKey PublicKey
	Checksum  Checksum
}

// ComputeChecksum returns the first two bytes of blake2b-512("SS58PRE" || prefix || key).
func ComputeChecksum(prefix Prefix, key PublicKey) Checksum {
	h, _ := blake2b.New512(nil)
	h.Write(checksumTag)
	h.Write(prefix.Bytes())
	h.Write(key[:])
	var c Checksum
	copy(c[:], h.Sum(nil))
	return c
}

// ValidAlphabet checks that s is non empty and only uses Base58 characters.
func ValidAlphabet(s string) error {
	if s == "" {
		return &DecodeError{}
	}
	for i, r := range s {
		if r > 0x7f || strings.IndexByte(alphabet, byte(r)) < 0 {
			return &DecodeError{Address: s, Char: r, Position: i}
		}
	}
	return nil
}

// Decode parses an SS58 address and verifies its checksum.
func Decode(address string) (DecodedAddress, error) {
	if err := ValidAlphabet(address); err != nil {
		return DecodedAddress{}, err
	}
	// non empty valid input always decodes to at least one byte
	data := base58.Decode(address)

	prefix := splitPrefix(data)
	expected := prefix.Len() + PublicKeyLen + ChecksumLen
	if len(data) != expected {
		return DecodedAddress{}, &MalformedAddressError{Address: address, Expected: expected, Actual: len(data)}
	}

	var d DecodedAddress
	d.Prefix = prefix
	copy(d.PublicKey[:], data[prefix.Len():prefix.Len()+PublicKeyLen])
	copy(d.Checksum[:], data[prefix.Len()+PublicKeyLen:])

	want := ComputeChecksum(prefix, d.PublicKey)
	if !bytes.Equal(want[:], d.Checksum[:]) {
		return DecodedAddress{}, &ChecksumMismatchError{Address: address, Expected: want, Actual: d.Checksum}
	}
	return d, nil
}

// DecodePublicKey returns the verified public key of an address.
func DecodePublicKey(address string) (PublicKey, error) {
	d, err := Decode(address)
	if err != nil {
		return PublicKey{}, err
	}
	return d.PublicKey, nil
}

// DecodeHex returns the verified public key of an address as 0x prefixed hex.
func DecodeHex(address string) (string, error) {
	k, err := DecodePublicKey(address)
	if err != nil {
		return "", err
	}
	return k.Hex(), nil
}

// ToPub32 converts an address to its public key, either as a 0x hex string
// (asHex) or as a 32 byte slice.
func ToPub32(address string, asHex bool) (any, error) {
	k, err := DecodePublicKey(address)
	if err != nil {
		return nil, err
	}
	if asHex {
		return k.Hex(), nil
	}
	return k[:], nil
}

// EncodeKey builds the address of key on the network identified by prefix.
func EncodeKey(key PublicKey, prefix Prefix) string {
	sum := ComputeChecksum(prefix, key)
	buf := make([]byte, 0, prefix.Len()+PublicKeyLen+ChecksumLen)
	buf = append(buf, prefix.Bytes()...)
	buf = append(buf, key[:]...)
	buf = append(buf, sum[:]...)
	return base58.Encode(buf)
}

// Encode is EncodeKey for raw byte slices. The key must be 32 bytes and the
// prefix 1 or 2 bytes.
func Encode(publicKey []byte, prefix []byte) (string, error) {
	if len(publicKey) != PublicKeyLen {
		return "", &InvalidInputError{Field: "public key", Expected: "32 bytes", Actual: len(publicKey)}
	}
	p, err := NewPrefix(prefix)
	if err != nil {
		return "", err
	}
	var k PublicKey
	copy(k[:], publicKey)
	return EncodeKey(k, p), nil
}
