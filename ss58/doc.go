// Package ss58 decodes and encodes SS58 addresses, the Base58 account
// format used by Substrate chains.
//
// A decoded address is prefix || public key || checksum where the prefix is
// one byte when the first decoded byte is below 64 and two bytes otherwise,
// the public key is 32 bytes and the checksum is the first two bytes of
// blake2b-512("SS58PRE" || prefix || public key).
//
// All functions are pure and safe for concurrent use.
package ss58
