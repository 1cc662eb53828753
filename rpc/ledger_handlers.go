package rpc

import (
	"net/http"
	"strings"
)

const (
	codeLedgerInvalidParams = -32051
	codeLedgerInternal      = -32055
)

type balanceParams struct {
	Address string `json:"address"`
	Asset   string `json:"asset,omitempty"`
}

type balanceResult struct {
	Address string `json:"address"`
	Asset   string `json:"asset,omitempty"`
	Balance string `json:"balance"`
}

type tokensResult struct {
	Tokens []string `json:"tokens"`
}

type eventJSON struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

func (s *Server) handleLedgerBalance(w http.ResponseWriter, req *RPCRequest) {
	var params balanceParams
	if err := decodeParams(req, &params); err != nil {
		invalidParams(w, req.ID, codeLedgerInvalidParams, err)
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		invalidParams(w, req.ID, codeLedgerInvalidParams, err)
		return
	}
	asset := strings.TrimSpace(params.Asset)
	if asset == "" {
		balance, err := s.node.Balance(addr)
		if err != nil {
			writeError(w, http.StatusInternalServerError, req.ID, codeLedgerInternal, err.Error(), nil)
			return
		}
		writeResult(w, req.ID, balanceResult{Address: params.Address, Balance: balance.String()})
		return
	}
	balance, err := s.node.TokenBalance(addr, asset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeLedgerInternal, err.Error(), nil)
		return
	}
	writeResult(w, req.ID, balanceResult{Address: params.Address, Asset: strings.ToUpper(asset), Balance: balance.String()})
}

func (s *Server) handleLedgerTokens(w http.ResponseWriter, req *RPCRequest) {
	tokens, err := s.node.Tokens()
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeLedgerInternal, err.Error(), nil)
		return
	}
	writeResult(w, req.ID, tokensResult{Tokens: tokens})
}

func (s *Server) handleLedgerEvents(w http.ResponseWriter, req *RPCRequest) {
	events := s.node.Events()
	out := make([]eventJSON, 0, len(events))
	for _, evt := range events {
		if evt == nil {
			continue
		}
		out = append(out, eventJSON{Type: evt.Type, Attributes: evt.Attributes})
	}
	writeResult(w, req.ID, out)
}
