package accessmint

import (
	"bytes"
	"errors"
	"math"
	"math/big"
	"testing"

	"accesspay/native/authority"
)

type mockState struct {
	series          map[[32]byte]*AccessSeries
	tokens          map[string]uint8
	mintAuthorities map[string][]byte
	balances        map[string]*big.Int
}

func newMockState() *mockState {
	return &mockState{
		series:          make(map[[32]byte]*AccessSeries),
		tokens:          make(map[string]uint8),
		mintAuthorities: make(map[string][]byte),
		balances:        make(map[string]*big.Int),
	}
}

func balanceKey(addr []byte, symbol string) string {
	return symbol + "/" + string(addr)
}

func (m *mockState) AccessSeriesPut(s *AccessSeries) error {
	m.series[s.ID] = s.Clone()
	return nil
}

func (m *mockState) AccessSeriesGet(id [32]byte) (*AccessSeries, bool, error) {
	s, ok := m.series[id]
	if !ok {
		return nil, false, nil
	}
	return s.Clone(), true, nil
}

func (m *mockState) RegisterToken(symbol, name string, decimals uint8) error {
	if _, ok := m.tokens[symbol]; ok {
		return errors.New("token already registered")
	}
	m.tokens[symbol] = decimals
	return nil
}

func (m *mockState) SetTokenMintAuthority(symbol string, mintAuthority []byte) error {
	m.mintAuthorities[symbol] = append([]byte(nil), mintAuthority...)
	return nil
}

func (m *mockState) TokenMintAuthority(symbol string) ([]byte, error) {
	return append([]byte(nil), m.mintAuthorities[symbol]...), nil
}

func (m *mockState) TokenBalance(addr []byte, symbol string) (*big.Int, error) {
	if bal, ok := m.balances[balanceKey(addr, symbol)]; ok {
		return new(big.Int).Set(bal), nil
	}
	return big.NewInt(0), nil
}

func (m *mockState) SetTokenBalance(addr []byte, symbol string, amount *big.Int) error {
	m.balances[balanceKey(addr, symbol)] = new(big.Int).Set(amount)
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *mockState) {
	t.Helper()
	state := newMockState()
	engine := NewEngine()
	engine.SetState(state)
	engine.SetNowFunc(func() int64 { return 42 })
	return engine, state
}

func testCreator() [20]byte {
	var addr [20]byte
	addr[19] = 0x01
	return addr
}

func testContent() [32]byte {
	var id [32]byte
	id[0] = 0xaa
	return id
}

func TestInitializeRegistersSeriesAndToken(t *testing.T) {
	engine, state := newTestEngine(t)
	creator := testCreator()
	content := testContent()

	series, err := engine.Initialize(creator, content, 7)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if series.ID != SeriesID(creator, content, 7) {
		t.Fatalf("unexpected series id")
	}
	if series.TotalIssued != 0 {
		t.Fatalf("expected zero issuance, got %d", series.TotalIssued)
	}
	if series.CreatedAt != 42 {
		t.Fatalf("expected pinned timestamp, got %d", series.CreatedAt)
	}
	decimals, ok := state.tokens[series.IssuerSymbol]
	if !ok {
		t.Fatalf("credential token not registered")
	}
	if decimals != 0 {
		t.Fatalf("credential token must be zero-decimal, got %d", decimals)
	}
	if !authority.Verify(series.Authority, authority.NamespaceAccessAuthority, creator[:], content[:], nonceBytes(7)) {
		t.Fatalf("mint authority does not match canonical derivation")
	}
	stored := state.mintAuthorities[series.IssuerSymbol]
	if !bytes.Equal(stored, series.Authority[:]) {
		t.Fatalf("registry mint authority mismatch")
	}
}

func TestInitializeValidation(t *testing.T) {
	engine, _ := newTestEngine(t)

	if _, err := engine.Initialize([20]byte{}, testContent(), 0); !errors.Is(err, ErrInvalidCreator) {
		t.Fatalf("expected ErrInvalidCreator, got %v", err)
	}
	if _, err := engine.Initialize(testCreator(), [32]byte{}, 0); !errors.Is(err, ErrInvalidContentID) {
		t.Fatalf("expected ErrInvalidContentID, got %v", err)
	}
}

func TestInitializeRejectsDuplicate(t *testing.T) {
	engine, _ := newTestEngine(t)
	creator := testCreator()
	content := testContent()

	if _, err := engine.Initialize(creator, content, 3); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := engine.Initialize(creator, content, 3); !errors.Is(err, ErrSeriesExists) {
		t.Fatalf("expected ErrSeriesExists, got %v", err)
	}
	// A fresh nonce yields a distinct series.
	if _, err := engine.Initialize(creator, content, 4); err != nil {
		t.Fatalf("initialize with new nonce: %v", err)
	}
}

func TestGrantIssuesOneUnit(t *testing.T) {
	engine, state := newTestEngine(t)
	creator := testCreator()
	content := testContent()
	var buyer [20]byte
	buyer[0] = 0x02

	series, err := engine.Initialize(creator, content, 1)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	updated, err := engine.Grant(series.ID, buyer)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if updated.TotalIssued != 1 {
		t.Fatalf("expected counter 1, got %d", updated.TotalIssued)
	}
	bal, err := state.TokenBalance(buyer[:], series.IssuerSymbol)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("expected balance 1, got %s", bal)
	}

	// Second grant to the same buyer still succeeds and accumulates; the
	// once-per-purchase guard lives in the settlement layer.
	if _, err := engine.Grant(series.ID, buyer); err != nil {
		t.Fatalf("second grant: %v", err)
	}
	bal, _ = state.TokenBalance(buyer[:], series.IssuerSymbol)
	if bal.Cmp(big.NewInt(2)) != 0 {
		t.Fatalf("expected balance 2, got %s", bal)
	}
}

func TestGrantValidation(t *testing.T) {
	engine, _ := newTestEngine(t)
	series, err := engine.Initialize(testCreator(), testContent(), 1)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if _, err := engine.Grant(series.ID, [20]byte{}); !errors.Is(err, ErrInvalidBuyer) {
		t.Fatalf("expected ErrInvalidBuyer, got %v", err)
	}
	var missing [32]byte
	missing[5] = 0x99
	var buyer [20]byte
	buyer[0] = 0x02
	if _, err := engine.Grant(missing, buyer); !errors.Is(err, ErrSeriesNotFound) {
		t.Fatalf("expected ErrSeriesNotFound, got %v", err)
	}
}

func TestGrantRejectsTamperedAuthority(t *testing.T) {
	engine, state := newTestEngine(t)
	series, err := engine.Initialize(testCreator(), testContent(), 1)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	var buyer [20]byte
	buyer[0] = 0x02

	// Corrupt the stored record: its authority no longer matches the
	// canonical derivation, so minting must refuse.
	tampered := series.Clone()
	tampered.Authority[0] ^= 0xff
	if err := state.AccessSeriesPut(tampered); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := engine.Grant(series.ID, buyer); !errors.Is(err, ErrInvalidMintAuthority) {
		t.Fatalf("expected ErrInvalidMintAuthority, got %v", err)
	}

	// Restore the record but corrupt the token registry entry instead.
	if err := state.AccessSeriesPut(series); err != nil {
		t.Fatalf("put: %v", err)
	}
	rogue := make([]byte, 20)
	rogue[3] = 0x44
	if err := state.SetTokenMintAuthority(series.IssuerSymbol, rogue); err != nil {
		t.Fatalf("set mint authority: %v", err)
	}
	if _, err := engine.Grant(series.ID, buyer); !errors.Is(err, ErrInvalidIssuer) {
		t.Fatalf("expected ErrInvalidIssuer, got %v", err)
	}
}

func TestGrantCounterOverflow(t *testing.T) {
	engine, state := newTestEngine(t)
	series, err := engine.Initialize(testCreator(), testContent(), 1)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	saturated := series.Clone()
	saturated.TotalIssued = math.MaxUint64
	if err := state.AccessSeriesPut(saturated); err != nil {
		t.Fatalf("put: %v", err)
	}
	var buyer [20]byte
	buyer[0] = 0x02
	if _, err := engine.Grant(series.ID, buyer); !errors.Is(err, ErrNumericalOverflow) {
		t.Fatalf("expected ErrNumericalOverflow, got %v", err)
	}
	// No unit minted on the failed path.
	bal, _ := state.TokenBalance(buyer[:], series.IssuerSymbol)
	if bal.Sign() != 0 {
		t.Fatalf("expected zero balance after overflow, got %s", bal)
	}
}
