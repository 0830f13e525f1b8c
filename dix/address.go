package dix

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/pierreaubert/dotaddr/ss58"
	"github.com/tidwall/gjson"
)

// A decoded address is at most 36 bytes, which never takes more than 50
// characters. Leading zero bytes encode as '1' so there is no useful lower bound.
const maxAddressLen = 50

func AddHex(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	if strings.HasPrefix(s, "0x") {
		return s
	}
	return strings.ToLower("0x" + s)
}

func TrimHex(s string) string {
	return strings.TrimPrefix(s, "0x")
}

func BytesToHex(b []byte) string {
	c := make([]byte, hex.EncodedLen(len(b)))
	hex.Encode(c, b)
	return string(c)
}

func HexToBytes(s string) ([]byte, error) {
	b, err := hex.DecodeString(TrimHex(strings.TrimSpace(s)))
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", s, err)
	}
	return b, nil
}

// ParsePublicKey reads a 0x prefixed (or bare) 64 character hex key.
func ParsePublicKey(s string) (ss58.PublicKey, error) {
	var k ss58.PublicKey
	b, err := HexToBytes(s)
	if err != nil {
		return k, err
	}
	if len(b) != ss58.PublicKeyLen {
		return k, fmt.Errorf("public key must be %d bytes, got %d", ss58.PublicKeyLen, len(b))
	}
	copy(k[:], b)
	return k, nil
}

// IsValidAddress reports whether addr is an SS58 address with a valid checksum.
func IsValidAddress(addr string) bool {
	if addr == "" || len(addr) > maxAddressLen {
		return false
	}
	_, err := ss58.Decode(addr)
	return err == nil
}

// ExtractAddresses walks a JSON document and returns, in order of first
// appearance, every distinct object key or string value that is a valid SS58 address.
func ExtractAddresses(doc []byte) ([]string, error) {
	if len(doc) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(doc) {
		return nil, fmt.Errorf("error parsing JSON document")
	}

	seen := make(map[string]struct{})
	addresses := make([]string, 0)

	check := func(candidate string) {
		if _, ok := seen[candidate]; ok {
			return
		}
		if IsValidAddress(candidate) {
			seen[candidate] = struct{}{}
			addresses = append(addresses, candidate)
		}
	}

	var walk func(r gjson.Result)
	walk = func(r gjson.Result) {
		switch {
		case r.IsArray() || r.IsObject():
			r.ForEach(func(key, value gjson.Result) bool {
				// keys are only set when iterating an object
				if key.Type == gjson.String {
					check(key.String())
				}
				walk(value)
				return true
			})
		case r.Type == gjson.String:
			check(r.String())
		}
	}
	walk(gjson.ParseBytes(doc))

	return addresses, nil
}
