package rpc

import (
	"errors"
	"net/http"

	"accesspay/native/accessmint"
	"accesspay/native/authority"
	"accesspay/native/escrow"
	"accesspay/native/split"
)

const (
	codeEscrowInvalidParams = -32021
	codeEscrowNotFound      = -32022
	codeEscrowForbidden     = -32023
	codeEscrowConflict      = -32024
	codeEscrowInternal      = -32025
)

type escrowOpenParams struct {
	Buyer     string `json:"buyer"`
	Creator   string `json:"creator"`
	ContentID string `json:"contentId"`
	Price     string `json:"price"`
	Asset     string `json:"asset,omitempty"`
	Nonce     uint64 `json:"nonce"`
}

type escrowIDParams struct {
	ID string `json:"id"`
}

type escrowSettleParams struct {
	ID            string   `json:"id"`
	Payer         string   `json:"payer"`
	Amount        string   `json:"amount"`
	SeriesID      string   `json:"seriesId"`
	SplitID       string   `json:"splitId"`
	PayoutTargets []string `json:"payoutTargets"`
}

type escrowCancelParams struct {
	ID     string `json:"id"`
	Caller string `json:"caller"`
}

type purchaseJSON struct {
	ID         string `json:"id"`
	Buyer      string `json:"buyer"`
	Creator    string `json:"creator"`
	ContentID  string `json:"contentId"`
	Price      string `json:"price"`
	Asset      string `json:"asset,omitempty"`
	AmountPaid string `json:"amountPaid"`
	Credential string `json:"credential,omitempty"`
	CreatedAt  int64  `json:"createdAt"`
	Nonce      uint64 `json:"nonce"`
	Status     string `json:"status"`
	Vault      string `json:"vault"`
	VaultBump  uint8  `json:"vaultBump"`
}

func purchaseToJSON(p *escrow.Purchase) *purchaseJSON {
	if p == nil {
		return nil
	}
	out := &purchaseJSON{
		ID:         formatHash(p.ID),
		Buyer:      formatAddress(p.Buyer),
		Creator:    formatAddress(p.Creator),
		ContentID:  formatHash(p.ContentID),
		Price:      formatAmount(p.Price),
		Asset:      p.PaymentAsset,
		AmountPaid: formatAmount(p.AmountPaid),
		CreatedAt:  p.CreatedAt,
		Nonce:      p.Nonce,
		Status:     p.Status.String(),
		Vault:      formatAddress(p.Vault),
		VaultBump:  p.VaultBump,
	}
	if len(p.IssuedCredential) == 20 {
		var issuer [20]byte
		copy(issuer[:], p.IssuedCredential)
		out.Credential = formatAddress(issuer)
	}
	return out
}

func writeEscrowError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, escrow.ErrPurchaseNotFound),
		errors.Is(err, accessmint.ErrSeriesNotFound),
		errors.Is(err, split.ErrSplitNotFound):
		writeError(w, http.StatusNotFound, id, codeEscrowNotFound, err.Error(), nil)
	case errors.Is(err, escrow.ErrInvalidBuyer),
		errors.Is(err, authority.ErrInvalidAuthority),
		errors.Is(err, authority.ErrCapabilityConsumed),
		errors.Is(err, accessmint.ErrInvalidMintAuthority),
		errors.Is(err, accessmint.ErrInvalidIssuer):
		writeError(w, http.StatusForbidden, id, codeEscrowForbidden, err.Error(), nil)
	case errors.Is(err, escrow.ErrEscrowAlreadyCompleted),
		errors.Is(err, escrow.ErrEscrowAlreadyCancelled),
		errors.Is(err, escrow.ErrInvalidEscrowStatus),
		errors.Is(err, escrow.ErrPurchaseExists),
		errors.Is(err, escrow.ErrInsufficientFunds),
		errors.Is(err, split.ErrInsufficientFunds):
		writeError(w, http.StatusConflict, id, codeEscrowConflict, err.Error(), nil)
	case errors.Is(err, escrow.ErrInvalidPrice),
		errors.Is(err, escrow.ErrInvalidContentID),
		errors.Is(err, escrow.ErrInvalidAsset),
		errors.Is(err, escrow.ErrInvalidPaymentAmount),
		errors.Is(err, escrow.ErrInvalidCreator),
		errors.Is(err, escrow.ErrNumericalOverflow),
		errors.Is(err, split.ErrNumericalOverflow),
		errors.Is(err, split.ErrInvalidRecipient),
		errors.Is(err, split.ErrInvalidCollaborator),
		errors.Is(err, accessmint.ErrNumericalOverflow):
		writeError(w, http.StatusBadRequest, id, codeEscrowInvalidParams, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, id, codeEscrowInternal, err.Error(), nil)
	}
}

func (s *Server) handleEscrowOpen(w http.ResponseWriter, req *RPCRequest) {
	var params escrowOpenParams
	if err := decodeParams(req, &params); err != nil {
		invalidParams(w, req.ID, codeEscrowInvalidParams, err)
		return
	}
	buyer, err := parseAddress(params.Buyer)
	if err != nil {
		invalidParams(w, req.ID, codeEscrowInvalidParams, err)
		return
	}
	creator, err := parseAddress(params.Creator)
	if err != nil {
		invalidParams(w, req.ID, codeEscrowInvalidParams, err)
		return
	}
	contentID, err := parseHash(params.ContentID)
	if err != nil {
		invalidParams(w, req.ID, codeEscrowInvalidParams, err)
		return
	}
	price, err := parseAmount(params.Price)
	if err != nil {
		invalidParams(w, req.ID, codeEscrowInvalidParams, err)
		return
	}
	purchase, err := s.node.EscrowOpen(buyer, creator, contentID, price, params.Asset, params.Nonce)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, purchaseToJSON(purchase))
}

func (s *Server) handleEscrowGet(w http.ResponseWriter, req *RPCRequest) {
	var params escrowIDParams
	if err := decodeParams(req, &params); err != nil {
		invalidParams(w, req.ID, codeEscrowInvalidParams, err)
		return
	}
	id, err := parseHash(params.ID)
	if err != nil {
		invalidParams(w, req.ID, codeEscrowInvalidParams, err)
		return
	}
	purchase, err := s.node.EscrowGet(id)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, purchaseToJSON(purchase))
}

func (s *Server) handleEscrowSettle(w http.ResponseWriter, req *RPCRequest) {
	var params escrowSettleParams
	if err := decodeParams(req, &params); err != nil {
		invalidParams(w, req.ID, codeEscrowInvalidParams, err)
		return
	}
	id, err := parseHash(params.ID)
	if err != nil {
		invalidParams(w, req.ID, codeEscrowInvalidParams, err)
		return
	}
	payer, err := parseAddress(params.Payer)
	if err != nil {
		invalidParams(w, req.ID, codeEscrowInvalidParams, err)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		invalidParams(w, req.ID, codeEscrowInvalidParams, err)
		return
	}
	seriesID, err := parseHash(params.SeriesID)
	if err != nil {
		invalidParams(w, req.ID, codeEscrowInvalidParams, err)
		return
	}
	splitID, err := parseHash(params.SplitID)
	if err != nil {
		invalidParams(w, req.ID, codeEscrowInvalidParams, err)
		return
	}
	targets := make([][20]byte, len(params.PayoutTargets))
	for i, raw := range params.PayoutTargets {
		target, err := parseAddress(raw)
		if err != nil {
			invalidParams(w, req.ID, codeEscrowInvalidParams, err)
			return
		}
		targets[i] = target
	}
	purchase, err := s.node.EscrowSettle(id, payer, amount, seriesID, splitID, targets)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, purchaseToJSON(purchase))
}

func (s *Server) handleEscrowCancel(w http.ResponseWriter, req *RPCRequest) {
	var params escrowCancelParams
	if err := decodeParams(req, &params); err != nil {
		invalidParams(w, req.ID, codeEscrowInvalidParams, err)
		return
	}
	id, err := parseHash(params.ID)
	if err != nil {
		invalidParams(w, req.ID, codeEscrowInvalidParams, err)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		invalidParams(w, req.ID, codeEscrowInvalidParams, err)
		return
	}
	if err := s.node.EscrowCancel(id, caller); err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"cancelled": true})
}
