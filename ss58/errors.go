package ss58

import "fmt"

// DecodeError reports text that is not valid Base58.
type DecodeError struct {
	Address  string
	Char     rune
	Position int
}

func (e *DecodeError) Error() string {
	if e.Address == "" {
		return "ss58: empty address"
	}
	return fmt.Sprintf("ss58: invalid base58 character %q at position %d in %q", e.Char, e.Position, e.Address)
}

// MalformedAddressError reports a decoded payload whose length does not match
// the prefix branch selected by its first byte.
type MalformedAddressError struct {
	Address  string
	Expected int
	Actual   int
}

func (e *MalformedAddressError) Error() string {
	return fmt.Sprintf("ss58: malformed address %q: expected %d decoded bytes, got %d", e.Address, e.Expected, e.Actual)
}

// ChecksumMismatchError reports an address whose embedded checksum differs
// from the recomputed one.
type ChecksumMismatchError struct {
	Address  string
	Expected Checksum
	Actual   Checksum
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("ss58: invalid checksum for %q: expected %x, got %x", e.Address, e.Expected[:], e.Actual[:])
}

// InvalidInputError reports encoder arguments of the wrong shape.
type InvalidInputError struct {
	Field    string
	Expected string
	Actual   int
	Reason   string
}

func (e *InvalidInputError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("ss58: invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("ss58: invalid %s: expected %s, got %d bytes", e.Field, e.Expected, e.Actual)
}
