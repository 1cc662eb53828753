package rpc

import (
	"errors"
	"net/http"

	"accesspay/native/accessmint"
)

const (
	codeAccessInvalidParams = -32031
	codeAccessNotFound      = -32032
	codeAccessConflict      = -32034
	codeAccessInternal      = -32035
)

type accessInitializeParams struct {
	Creator   string `json:"creator"`
	ContentID string `json:"contentId"`
	Nonce     uint64 `json:"nonce"`
}

type accessGetParams struct {
	ID string `json:"id"`
}

type accessSeriesJSON struct {
	ID            string `json:"id"`
	Creator       string `json:"creator"`
	ContentID     string `json:"contentId"`
	Issuer        string `json:"issuer"`
	IssuerSymbol  string `json:"issuerSymbol"`
	Authority     string `json:"authority"`
	AuthorityBump uint8  `json:"authorityBump"`
	Nonce         uint64 `json:"nonce"`
	TotalIssued   uint64 `json:"totalIssued"`
	CreatedAt     int64  `json:"createdAt"`
}

func seriesToJSON(s *accessmint.AccessSeries) *accessSeriesJSON {
	if s == nil {
		return nil
	}
	return &accessSeriesJSON{
		ID:            formatHash(s.ID),
		Creator:       formatAddress(s.Creator),
		ContentID:     formatHash(s.ContentID),
		Issuer:        formatAddress(s.Issuer),
		IssuerSymbol:  s.IssuerSymbol,
		Authority:     formatAddress(s.Authority),
		AuthorityBump: s.AuthorityBump,
		Nonce:         s.Nonce,
		TotalIssued:   s.TotalIssued,
		CreatedAt:     s.CreatedAt,
	}
}

func writeAccessError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, accessmint.ErrSeriesNotFound):
		writeError(w, http.StatusNotFound, id, codeAccessNotFound, err.Error(), nil)
	case errors.Is(err, accessmint.ErrSeriesExists):
		writeError(w, http.StatusConflict, id, codeAccessConflict, err.Error(), nil)
	case errors.Is(err, accessmint.ErrInvalidCreator),
		errors.Is(err, accessmint.ErrInvalidContentID),
		errors.Is(err, accessmint.ErrInvalidBuyer):
		writeError(w, http.StatusBadRequest, id, codeAccessInvalidParams, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, id, codeAccessInternal, err.Error(), nil)
	}
}

func (s *Server) handleAccessInitialize(w http.ResponseWriter, req *RPCRequest) {
	var params accessInitializeParams
	if err := decodeParams(req, &params); err != nil {
		invalidParams(w, req.ID, codeAccessInvalidParams, err)
		return
	}
	creator, err := parseAddress(params.Creator)
	if err != nil {
		invalidParams(w, req.ID, codeAccessInvalidParams, err)
		return
	}
	contentID, err := parseHash(params.ContentID)
	if err != nil {
		invalidParams(w, req.ID, codeAccessInvalidParams, err)
		return
	}
	series, err := s.node.AccessInitialize(creator, contentID, params.Nonce)
	if err != nil {
		writeAccessError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, seriesToJSON(series))
}

func (s *Server) handleAccessGet(w http.ResponseWriter, req *RPCRequest) {
	var params accessGetParams
	if err := decodeParams(req, &params); err != nil {
		invalidParams(w, req.ID, codeAccessInvalidParams, err)
		return
	}
	id, err := parseHash(params.ID)
	if err != nil {
		invalidParams(w, req.ID, codeAccessInvalidParams, err)
		return
	}
	series, err := s.node.AccessGet(id)
	if err != nil {
		writeAccessError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, seriesToJSON(series))
}
