package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"accesspay/core"
	"accesspay/crypto"
	"accesspay/storage"
)

type rpcFixture struct {
	server *Server
	router http.Handler
	token  string

	buyer    string
	creator  string
	treasury string
	collabA  string
	collabB  string
	content  string
}

func bech(b byte) string {
	raw := make([]byte, 20)
	raw[19] = b
	return crypto.NewAddress(crypto.APYPrefix, raw).String()
}

func newRPCFixture(t *testing.T, token string) *rpcFixture {
	t.Helper()
	node, err := core.NewNode(storage.NewMemDB())
	require.NoError(t, err)
	node.SetNowFunc(func() int64 { return 42 })

	f := &rpcFixture{
		server:   NewServer(node, token, 0),
		token:    token,
		buyer:    bech(0x01),
		creator:  bech(0x02),
		treasury: bech(0x03),
		collabA:  bech(0x0a),
		collabB:  bech(0x0b),
		content:  "0xaa00000000000000000000000000000000000000000000000000000000000000",
	}
	f.router = f.server.Router()

	var buyerRaw [20]byte
	buyerRaw[19] = 0x01
	require.NoError(t, node.Credit(buyerRaw, big.NewInt(1_000_000)))
	return f
}

func (f *rpcFixture) call(t *testing.T, method string, params interface{}) (*httptest.ResponseRecorder, RPCResponse) {
	t.Helper()
	payload := map[string]interface{}{
		"jsonrpc": jsonRPCVersion,
		"method":  method,
		"id":      1,
	}
	if params != nil {
		payload["params"] = []interface{}{params}
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var resp RPCResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func (f *rpcFixture) mustResult(t *testing.T, method string, params interface{}, out interface{}) {
	t.Helper()
	rec, resp := f.call(t, method, params)
	require.Nil(t, resp.Error, "method %s: %+v", method, resp.Error)
	require.Equal(t, http.StatusOK, rec.Code)
	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func (f *rpcFixture) setupSettlement(t *testing.T) (purchaseID, seriesID, splitID string) {
	t.Helper()
	var purchase purchaseJSON
	f.mustResult(t, "escrow_open", map[string]interface{}{
		"buyer":     f.buyer,
		"creator":   f.creator,
		"contentId": f.content,
		"price":     "1000000",
		"nonce":     1,
	}, &purchase)

	var series accessSeriesJSON
	f.mustResult(t, "access_initialize", map[string]interface{}{
		"creator":   f.creator,
		"contentId": f.content,
		"nonce":     1,
	}, &series)

	var cfg splitJSON
	f.mustResult(t, "split_initialize", map[string]interface{}{
		"creator":        f.creator,
		"contentId":      f.content,
		"platformFeeBps": 250,
		"treasury":       f.treasury,
		"collaborators": []map[string]interface{}{
			{"address": f.collabA, "shareBps": 500},
			{"address": f.collabB, "shareBps": 300},
		},
		"nonce": 1,
	}, &cfg)
	return purchase.ID, series.ID, cfg.ID
}

func TestRPCSettlementFlow(t *testing.T) {
	f := newRPCFixture(t, "")
	purchaseID, seriesID, splitID := f.setupSettlement(t)

	var settled purchaseJSON
	f.mustResult(t, "escrow_settle", map[string]interface{}{
		"id":            purchaseID,
		"payer":         f.buyer,
		"amount":        "1000000",
		"seriesId":      seriesID,
		"splitId":       splitID,
		"payoutTargets": []string{f.collabA, f.collabB},
	}, &settled)
	require.Equal(t, "completed", settled.Status)
	require.Equal(t, "1000000", settled.AmountPaid)
	require.NotEmpty(t, settled.Credential)

	var creatorBalance balanceResult
	f.mustResult(t, "ledger_balance", map[string]interface{}{"address": f.creator}, &creatorBalance)
	require.Equal(t, "895000", creatorBalance.Balance)

	var treasuryBalance balanceResult
	f.mustResult(t, "ledger_balance", map[string]interface{}{"address": f.treasury}, &treasuryBalance)
	require.Equal(t, "25000", treasuryBalance.Balance)

	var events []eventJSON
	f.mustResult(t, "ledger_events", map[string]interface{}{}, &events)
	require.NotEmpty(t, events)
}

func TestRPCSettleWrongAmount(t *testing.T) {
	f := newRPCFixture(t, "")
	purchaseID, seriesID, splitID := f.setupSettlement(t)

	rec, resp := f.call(t, "escrow_settle", map[string]interface{}{
		"id":            purchaseID,
		"payer":         f.buyer,
		"amount":        "999999",
		"seriesId":      seriesID,
		"splitId":       splitID,
		"payoutTargets": []string{f.collabA, f.collabB},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeEscrowInvalidParams, resp.Error.Code)
}

func TestRPCCancel(t *testing.T) {
	f := newRPCFixture(t, "")
	purchaseID, _, _ := f.setupSettlement(t)

	var result map[string]bool
	f.mustResult(t, "escrow_cancel", map[string]interface{}{"id": purchaseID, "caller": f.buyer}, &result)
	require.True(t, result["cancelled"])

	rec, resp := f.call(t, "escrow_get", map[string]interface{}{"id": purchaseID})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, codeEscrowNotFound, resp.Error.Code)
}

func TestRPCCancelWrongCaller(t *testing.T) {
	f := newRPCFixture(t, "")
	purchaseID, _, _ := f.setupSettlement(t)

	rec, resp := f.call(t, "escrow_cancel", map[string]interface{}{"id": purchaseID, "caller": f.creator})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, codeEscrowForbidden, resp.Error.Code)
}

func TestRPCAuthToken(t *testing.T) {
	f := newRPCFixture(t, "secret-token")

	// Correct token is accepted.
	var tokens tokensResult
	f.mustResult(t, "ledger_tokens", map[string]interface{}{}, &tokens)

	// Missing token is rejected.
	body := []byte(fmt.Sprintf(`{"jsonrpc":%q,"method":"ledger_tokens","id":1,"params":[{}]}`, jsonRPCVersion))
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong token is rejected.
	req = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRPCMethodNotFound(t *testing.T) {
	f := newRPCFixture(t, "")
	rec, resp := f.call(t, "escrow_unknown", map[string]interface{}{})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestRPCInvalidParams(t *testing.T) {
	f := newRPCFixture(t, "")

	rec, resp := f.call(t, "escrow_get", map[string]interface{}{"id": "not-hex"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, codeEscrowInvalidParams, resp.Error.Code)

	rec, resp = f.call(t, "escrow_get", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, codeEscrowInvalidParams, resp.Error.Code)

	rec, resp = f.call(t, "ledger_balance", map[string]interface{}{"address": "nope"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, codeLedgerInvalidParams, resp.Error.Code)
}

func TestRPCRateLimit(t *testing.T) {
	node, err := core.NewNode(storage.NewMemDB())
	require.NoError(t, err)
	server := NewServer(node, "", 1)
	router := server.Router()

	body := []byte(fmt.Sprintf(`{"jsonrpc":%q,"method":"ledger_tokens","id":1,"params":[{}]}`, jsonRPCVersion))
	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)))
	require.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestRPCHealthz(t *testing.T) {
	f := newRPCFixture(t, "")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
