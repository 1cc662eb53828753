package rpc

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"accesspay/crypto"
)

// parseAddress decodes a bech32 "apy" address into its 20-byte form.
func parseAddress(value string) ([20]byte, error) {
	var out [20]byte
	decoded, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return out, err
	}
	copy(out[:], decoded.Bytes())
	return out, nil
}

// parseHash decodes a 32-byte hex identifier, with or without 0x prefix.
func parseHash(value string) ([32]byte, error) {
	var out [32]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return out, fmt.Errorf("invalid hex identifier: %w", err)
	}
	if len(decoded) != 32 {
		return out, fmt.Errorf("identifier must be 32 bytes, got %d", len(decoded))
	}
	copy(out[:], decoded)
	return out, nil
}

// parseAmount parses a decimal base-unit amount.
func parseAmount(value string) (uint64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("amount required")
	}
	amount, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", value)
	}
	return amount, nil
}

func formatAddress(addr [20]byte) string {
	return crypto.NewAddress(crypto.APYPrefix, addr[:]).String()
}

func formatHash(id [32]byte) string {
	return "0x" + hex.EncodeToString(id[:])
}

func formatAmount(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// decodeParams unmarshals the single positional object parameter every
// accesspay method takes.
func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("expected exactly one parameter object")
	}
	return json.Unmarshal(req.Params[0], out)
}

func invalidParams(w http.ResponseWriter, id interface{}, code int, err error) {
	writeError(w, http.StatusBadRequest, id, code, "invalid params", err.Error())
}
