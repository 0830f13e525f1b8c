package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/pierreaubert/dotaddr/dix"
	"github.com/pierreaubert/dotaddr/ss58"
)

type AddressResponse struct {
	Address   string `json:"address"`
	Network   string  `json:"network"`
	NetworkID *uint16 `json:"network_id,omitempty"`
	Reserved  bool    `json:"reserved,omitempty"`
	Prefix    string  `json:"prefix"`
	PublicKey string  `json:"public_key"`
	Checksum  string  `json:"checksum"`
}

// networkID is nil for reserved prefixes, which name no network.
func networkID(p ss58.Prefix) *uint16 {
	if p.Reserved() {
		return nil
	}
	id := p.NetworkID()
	return &id
}

type LookupResponse struct {
	Records []dix.Record `json:"records"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: dix.Outcome(err)})
}

func (f *Frontend) handleDecode(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	var err error
	defer func() {
		f.metricsHandler.RecordLatency(startTime, 1, err)
		dix.ObserveConversion("decode", startTime, err)
	}()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	address := r.URL.Query().Get("address")
	if address == "" {
		http.Error(w, "Missing address parameter", http.StatusBadRequest)
		return
	}

	d, err := ss58.Decode(address)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusOK, AddressResponse{
		Address:   address,
		Network:   dix.PrefixName(d.Prefix),
		NetworkID: networkID(d.Prefix),
		Reserved:  d.Prefix.Reserved(),
		Prefix:    dix.AddHex(dix.BytesToHex(d.Prefix.Bytes())),
		PublicKey: d.PublicKey.Hex(),
		Checksum:  dix.AddHex(dix.BytesToHex(d.Checksum[:])),
	})
}

func (f *Frontend) handleEncode(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	var err error
	defer func() {
		f.metricsHandler.RecordLatency(startTime, 1, err)
		dix.ObserveConversion("encode", startTime, err)
	}()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	key, err := dix.ParsePublicKey(query.Get("pubkey"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	id := -1
	if s := query.Get("prefix"); s != "" {
		id, err = strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	prefix, err := dix.ResolvePrefix(query.Get("network"), id)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	address := ss58.EncodeKey(key, prefix)
	checksum := ss58.ComputeChecksum(prefix, key)
	writeJSON(w, http.StatusOK, AddressResponse{
		Address:   address,
		Network:   dix.PrefixName(prefix),
		NetworkID: networkID(prefix),
		Prefix:    dix.AddHex(dix.BytesToHex(prefix.Bytes())),
		PublicKey: key.Hex(),
		Checksum:  dix.AddHex(dix.BytesToHex(checksum[:])),
	})
}

func (f *Frontend) handleLookup(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	var err error
	defer func() {
		f.metricsHandler.RecordLatency(startTime, 1, err)
	}()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if f.book == nil {
		http.Error(w, "Address book disabled", http.StatusServiceUnavailable)
		return
	}

	query := r.URL.Query()
	var records []dix.Record
	switch {
	case query.Get("address") != "":
		address := query.Get("address")
		if _, err = ss58.Decode(address); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		var record dix.Record
		record, err = f.book.Lookup(r.Context(), address)
		if errors.Is(err, dix.ErrNotFound) {
			err = nil
			http.Error(w, "Address not found", http.StatusNotFound)
			return
		}
		records = []dix.Record{record}
	case query.Get("pubkey") != "":
		var key ss58.PublicKey
		if key, err = dix.ParsePublicKey(query.Get("pubkey")); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		records, err = f.book.LookupPublicKey(r.Context(), key.Hex())
	default:
		http.Error(w, "Missing address or pubkey parameter", http.StatusBadRequest)
		return
	}

	if err != nil {
		log.Printf("Error reading address book: %v", err)
		http.Error(w, "Error reading address book", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, LookupResponse{Records: records})
}

func (f *Frontend) handleNetworks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	networks := make(map[string]uint16)
	for _, name := range dix.Networks() {
		id, _ := dix.LookupNetwork(name)
		networks[name] = id
	}
	writeJSON(w, http.StatusOK, networks)
}
