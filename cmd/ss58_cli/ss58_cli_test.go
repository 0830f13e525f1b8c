package main

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/pierreaubert/dotaddr/ss58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	known         = "5ETsYe7MLH6Mf9xAMgrLhYL2K1fQXBzn7g7bFHXRgFP3FZvT"
	knownPubHex   = "0x6a23ba551f3d2e342e9c4d03098fae3b0185b831b50ac71ce4b496b1694abb56"
	alicePubHex   = "0xd43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
	aliceReserved = "2TZTyL6J4KN8AFEohicTes34B3iTyfap5G2q3XHBLjeEku5FiV"
)

func TestRunDecode(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"-address", known}, &out))
	assert.Equal(t, knownPubHex+"\n", out.String())

	out.Reset()
	require.NoError(t, run([]string{"-address", known, "-hex=false"}, &out))
	assert.Equal(t, knownPubHex[2:], hex.EncodeToString(out.Bytes()))

	out.Reset()
	require.NoError(t, run([]string{"-address", known, "-v"}, &out))
	assert.Contains(t, out.String(), "Network:  substrate (42)")
	assert.Contains(t, out.String(), "Checksum: d9ac")
}

func TestRunDecodeReservedPrefix(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"-address", aliceReserved, "-v"}, &out))
	assert.Contains(t, out.String(), "Network:  reserved\n")
	assert.NotContains(t, out.String(), "polkadot")
	assert.Contains(t, out.String(), alicePubHex)
}

func TestRunDecodeErrors(t *testing.T) {
	var out bytes.Buffer

	err := run([]string{"-address", "5ETsYe7MLH6Mf9xAMgrLhYL2K1fQXBzn7g7bFHXRgFP3FZv0"}, &out)
	var decErr *ss58.DecodeError
	assert.ErrorAs(t, err, &decErr)

	err = run([]string{"-address", "5ETsYe7MLH6Mf9xAMgrLhYL2K1fQXBzn7g7bFHXRgFP3FZvU"}, &out)
	assert.Error(t, err)

	assert.Empty(t, out.String())
}

func TestRunEncode(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{name: "default network", args: []string{"-pubkey", alicePubHex}, expected: "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"},
		{name: "by name", args: []string{"-pubkey", alicePubHex, "-network", "polkadot"}, expected: "15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5"},
		{name: "by id", args: []string{"-pubkey", alicePubHex, "-prefix", "2"}, expected: "HNZata7iMYWmk5RvZRTiAsSDhV8366zq2YGb3tLH5Upf74F"},
		{name: "known vector", args: []string{"-pubkey", knownPubHex}, expected: known},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, run(tt.args, &out))
			assert.Equal(t, tt.expected+"\n", out.String())
		})
	}
}

func TestRunUsage(t *testing.T) {
	var out bytes.Buffer
	assert.ErrorContains(t, run(nil, &out), "please provide")
	assert.ErrorContains(t, run([]string{"-address", known, "-pubkey", alicePubHex}, &out), "either")
	assert.ErrorContains(t, run([]string{"-pubkey", "0x1234"}, &out), "32 bytes")
	assert.ErrorContains(t, run([]string{"-pubkey", alicePubHex, "-network", "nowhere"}, &out), "unknown network")
}
