package accessmint

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// AccessSeries describes one content-specific access credential line: the
// registered zero-decimal token that proves purchase, the derived authority
// allowed to mint it, and the monotonically increasing issuance counter.
// Created once per (creator, content, nonce); only Grant mutates it, and only
// by incrementing TotalIssued.
type AccessSeries struct {
	ID            [32]byte
	Creator       [20]byte
	ContentID     [32]byte
	Issuer        [20]byte // credential issuer identity (derived address)
	IssuerSymbol  string   // token registry symbol for the credential
	Authority     [20]byte // mint authority, derived, no private key
	AuthorityBump uint8
	Nonce         uint64
	TotalIssued   uint64
	CreatedAt     int64
}

// Clone returns a copy of the series record.
func (s *AccessSeries) Clone() *AccessSeries {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}

// CredentialSymbol derives the token-registry symbol for a series ID. The
// symbol only needs to be unique per series; collisions are rejected by the
// token registry at initialisation.
func CredentialSymbol(id [32]byte) string {
	return "ACS-" + strings.ToUpper(hex.EncodeToString(id[:6]))
}

// SanitizeSeries validates the supplied series record and returns a clone.
func SanitizeSeries(s *AccessSeries) (*AccessSeries, error) {
	if s == nil {
		return nil, fmt.Errorf("nil access series")
	}
	clone := s.Clone()
	clone.IssuerSymbol = strings.ToUpper(strings.TrimSpace(clone.IssuerSymbol))
	if clone.IssuerSymbol == "" {
		return nil, fmt.Errorf("access series issuer symbol required")
	}
	return clone, nil
}
