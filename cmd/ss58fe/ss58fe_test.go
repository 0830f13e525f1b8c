package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pierreaubert/dotaddr/dix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice          = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	aliceCorrupted = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQZ"
	alicePolkadot  = "15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5"
	aliceKusama    = "HNZata7iMYWmk5RvZRTiAsSDhV8366zq2YGb3tLH5Upf74F"
	alicePubHex    = "0xd43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
	known          = "5ETsYe7MLH6Mf9xAMgrLhYL2K1fQXBzn7g7bFHXRgFP3FZvT"
	knownPubHex    = "0x6a23ba551f3d2e342e9c4d03098fae3b0185b831b50ac71ce4b496b1694abb56"
	aliceReserved  = "2TZTyL6J4KN8AFEohicTes34B3iTyfap5G2q3XHBLjeEku5FiV"
)

func newTestBook(t *testing.T) *dix.SQLDatabase {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	book := dix.NewSQLDatabaseWithDB(db, "sqlite3")
	t.Cleanup(func() { book.Close() })
	require.NoError(t, book.CreateTable())
	return book
}

func get(t *testing.T, f *Frontend, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	f.Handler().ServeHTTP(rr, req)
	return rr
}

func TestHandleDecode(t *testing.T) {
	f := NewFrontend(nil, "")

	rr := get(t, f, "/decode?address="+known)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp AddressResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, known, resp.Address)
	assert.Equal(t, "substrate", resp.Network)
	require.NotNil(t, resp.NetworkID)
	assert.Equal(t, uint16(42), *resp.NetworkID)
	assert.False(t, resp.Reserved)
	assert.Equal(t, "0x2a", resp.Prefix)
	assert.Equal(t, knownPubHex, resp.PublicKey)
	assert.Equal(t, "0xd9ac", resp.Checksum)

	rr = get(t, f, "/decode?address="+alicePolkadot)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "polkadot", resp.Network)
	assert.Equal(t, "0x00", resp.Prefix)
	assert.Equal(t, alicePubHex, resp.PublicKey)
}

func TestHandleDecodeReservedPrefix(t *testing.T) {
	f := NewFrontend(nil, "")

	rr := get(t, f, "/decode?address="+aliceReserved)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp AddressResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "reserved", resp.Network)
	assert.True(t, resp.Reserved)
	assert.Nil(t, resp.NetworkID)
	assert.Equal(t, "0xc000", resp.Prefix)
	assert.Equal(t, alicePubHex, resp.PublicKey)
	assert.Equal(t, "0x68de", resp.Checksum)
}

func TestHandleDecodeErrors(t *testing.T) {
	f := NewFrontend(nil, "")

	tests := []struct {
		name   string
		target string
		status int
		kind   string
	}{
		{"checksum", "/decode?address=" + aliceCorrupted, http.StatusBadRequest, "checksum_mismatch"},
		{"alphabet", "/decode?address=0GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY", http.StatusBadRequest, "decode_error"},
		{"truncated", "/decode?address=3dkVYR9mSa6XKLDeagDbDMTzBQJxf", http.StatusBadRequest, "malformed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := get(t, f, tt.target)
			assert.Equal(t, tt.status, rr.Code)
			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, tt.kind, resp.Kind)
			assert.NotEmpty(t, resp.Error)
		})
	}

	rr := get(t, f, "/decode")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req := httptest.NewRequest(http.MethodPost, "/decode?address="+alice, nil)
	rr = httptest.NewRecorder()
	f.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHandleEncode(t *testing.T) {
	f := NewFrontend(nil, "")

	tests := []struct {
		name    string
		target  string
		address string
		network string
	}{
		{"default", "/encode?pubkey=" + alicePubHex, alice, "substrate"},
		{"by name", "/encode?pubkey=" + alicePubHex + "&network=polkadot", alicePolkadot, "polkadot"},
		{"by id", "/encode?pubkey=" + alicePubHex + "&prefix=2", aliceKusama, "kusama"},
		{"bare hex", "/encode?pubkey=" + alicePubHex[2:] + "&network=Kusama", aliceKusama, "kusama"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := get(t, f, tt.target)
			require.Equal(t, http.StatusOK, rr.Code)
			var resp AddressResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, tt.address, resp.Address)
			assert.Equal(t, tt.network, resp.Network)
			assert.Equal(t, alicePubHex, resp.PublicKey)
		})
	}

	rr := get(t, f, "/encode?pubkey="+knownPubHex)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp AddressResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, known, resp.Address)
	assert.Equal(t, "0xd9ac", resp.Checksum)
}

func TestHandleEncodeErrors(t *testing.T) {
	f := NewFrontend(nil, "")

	for _, target := range []string{
		"/encode",
		"/encode?pubkey=0x1234",
		"/encode?pubkey=zz",
		"/encode?pubkey=" + alicePubHex + "&network=nowhere",
		"/encode?pubkey=" + alicePubHex + "&prefix=abc",
		"/encode?pubkey=" + alicePubHex + "&prefix=16384",
	} {
		rr := get(t, f, target)
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
	}
}

func TestHandleLookup(t *testing.T) {
	ctx := context.Background()
	book := newTestBook(t)
	require.NoError(t, book.Save(ctx, []dix.Record{
		{Address: alice, Network: 42, PublicKey: alicePubHex},
		{Address: alicePolkadot, Network: 0, PublicKey: alicePubHex},
	}))
	f := NewFrontend(book, "")

	rr := get(t, f, "/lookup?address="+alice)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp LookupResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Records, 1)
	assert.Equal(t, uint16(42), resp.Records[0].Network)

	rr = get(t, f, "/lookup?pubkey="+alicePubHex)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Records, 2)
	assert.Equal(t, alicePolkadot, resp.Records[0].Address)
	assert.Equal(t, alice, resp.Records[1].Address)

	rr = get(t, f, "/lookup?address="+aliceKusama)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = get(t, f, "/lookup?address="+aliceCorrupted)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = get(t, f, "/lookup")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleLookupWithoutBook(t *testing.T) {
	f := NewFrontend(nil, "")
	rr := get(t, f, "/lookup?address="+alice)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestHandleNetworks(t *testing.T) {
	f := NewFrontend(nil, "")
	rr := get(t, f, "/networks")
	require.Equal(t, http.StatusOK, rr.Code)

	var networks map[string]uint16
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&networks))
	assert.Equal(t, uint16(0), networks["polkadot"])
	assert.Equal(t, uint16(2), networks["kusama"])
}

func TestMetricsEndpoint(t *testing.T) {
	f := NewFrontend(nil, "")
	get(t, f, "/decode?address="+alice)

	rr := get(t, f, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "dotaddr_conversions_total")

	stats := f.metricsHandler.GetStats()
	assert.GreaterOrEqual(t, stats.BucketsStats[0].Count, 1)
}

func TestFrontendStartStop(t *testing.T) {
	f := NewFrontend(nil, "127.0.0.1:0")
	done := make(chan struct{})
	errCh := make(chan error, 1)
	go func() { errCh <- f.Start(done) }()
	close(done)
	assert.NoError(t, <-errCh)
}
