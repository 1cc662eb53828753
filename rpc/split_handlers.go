package rpc

import (
	"errors"
	"net/http"

	"accesspay/native/split"
)

const (
	codeSplitInvalidParams = -32041
	codeSplitNotFound      = -32042
	codeSplitConflict      = -32044
	codeSplitInternal      = -32045
)

type collaboratorParams struct {
	Address  string `json:"address"`
	ShareBps uint16 `json:"shareBps"`
}

type splitInitializeParams struct {
	Creator        string               `json:"creator"`
	ContentID      string               `json:"contentId"`
	PlatformFeeBps uint16               `json:"platformFeeBps"`
	Treasury       string               `json:"treasury"`
	Collaborators  []collaboratorParams `json:"collaborators"`
	Nonce          uint64               `json:"nonce"`
}

type splitGetParams struct {
	ID string `json:"id"`
}

type collaboratorJSON struct {
	Address  string `json:"address"`
	ShareBps uint16 `json:"shareBps"`
}

type splitJSON struct {
	ID                string             `json:"id"`
	ContentID         string             `json:"contentId"`
	Creator           string             `json:"creator"`
	PlatformFeeBps    uint16             `json:"platformFeeBps"`
	PlatformTreasury  string             `json:"platformTreasury"`
	Collaborators     []collaboratorJSON `json:"collaborators"`
	LastDistributedAt int64              `json:"lastDistributedAt"`
	Nonce             uint64             `json:"nonce"`
	Vault             string             `json:"vault"`
	VaultBump         uint8              `json:"vaultBump"`
}

func splitToJSON(cfg *split.Config) *splitJSON {
	if cfg == nil {
		return nil
	}
	collabs := make([]collaboratorJSON, len(cfg.Collaborators))
	for i, collab := range cfg.Collaborators {
		collabs[i] = collaboratorJSON{Address: formatAddress(collab.Identity), ShareBps: collab.ShareBps}
	}
	return &splitJSON{
		ID:                formatHash(cfg.ID),
		ContentID:         formatHash(cfg.ContentID),
		Creator:           formatAddress(cfg.Creator),
		PlatformFeeBps:    cfg.PlatformFeeBps,
		PlatformTreasury:  formatAddress(cfg.PlatformTreasury),
		Collaborators:     collabs,
		LastDistributedAt: cfg.LastDistributedAt,
		Nonce:             cfg.Nonce,
		Vault:             formatAddress(cfg.Vault),
		VaultBump:         cfg.VaultBump,
	}
}

func writeSplitError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, split.ErrSplitNotFound):
		writeError(w, http.StatusNotFound, id, codeSplitNotFound, err.Error(), nil)
	case errors.Is(err, split.ErrSplitExists):
		writeError(w, http.StatusConflict, id, codeSplitConflict, err.Error(), nil)
	case errors.Is(err, split.ErrInvalidCreator),
		errors.Is(err, split.ErrInvalidContentID),
		errors.Is(err, split.ErrInvalidPlatformFee),
		errors.Is(err, split.ErrInvalidShareDistribution),
		errors.Is(err, split.ErrTooManyCollaborators),
		errors.Is(err, split.ErrInvalidCollaborator),
		errors.Is(err, split.ErrInvalidRecipient):
		writeError(w, http.StatusBadRequest, id, codeSplitInvalidParams, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, id, codeSplitInternal, err.Error(), nil)
	}
}

func (s *Server) handleSplitInitialize(w http.ResponseWriter, req *RPCRequest) {
	var params splitInitializeParams
	if err := decodeParams(req, &params); err != nil {
		invalidParams(w, req.ID, codeSplitInvalidParams, err)
		return
	}
	creator, err := parseAddress(params.Creator)
	if err != nil {
		invalidParams(w, req.ID, codeSplitInvalidParams, err)
		return
	}
	contentID, err := parseHash(params.ContentID)
	if err != nil {
		invalidParams(w, req.ID, codeSplitInvalidParams, err)
		return
	}
	treasury, err := parseAddress(params.Treasury)
	if err != nil {
		invalidParams(w, req.ID, codeSplitInvalidParams, err)
		return
	}
	collaborators := make([]split.Collaborator, len(params.Collaborators))
	for i, collab := range params.Collaborators {
		identity, err := parseAddress(collab.Address)
		if err != nil {
			invalidParams(w, req.ID, codeSplitInvalidParams, err)
			return
		}
		collaborators[i] = split.Collaborator{Identity: identity, ShareBps: collab.ShareBps}
	}
	cfg, err := s.node.SplitInitialize(creator, contentID, params.PlatformFeeBps, treasury, collaborators, params.Nonce)
	if err != nil {
		writeSplitError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, splitToJSON(cfg))
}

func (s *Server) handleSplitGet(w http.ResponseWriter, req *RPCRequest) {
	var params splitGetParams
	if err := decodeParams(req, &params); err != nil {
		invalidParams(w, req.ID, codeSplitInvalidParams, err)
		return
	}
	id, err := parseHash(params.ID)
	if err != nil {
		invalidParams(w, req.ID, codeSplitInvalidParams, err)
		return
	}
	cfg, err := s.node.SplitGet(id)
	if err != nil {
		writeSplitError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, splitToJSON(cfg))
}
