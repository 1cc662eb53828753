package accessmint

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"math/big"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"accesspay/core/events"
	"accesspay/core/types"
	"accesspay/native/authority"
)

var errNilState = errors.New("accessmint engine: state not configured")

type engineState interface {
	AccessSeriesPut(*AccessSeries) error
	AccessSeriesGet(id [32]byte) (*AccessSeries, bool, error)
	RegisterToken(symbol, name string, decimals uint8) error
	SetTokenMintAuthority(symbol string, mintAuthority []byte) error
	TokenMintAuthority(symbol string) ([]byte, error)
	TokenBalance(addr []byte, symbol string) (*big.Int, error)
	SetTokenBalance(addr []byte, symbol string, amount *big.Int) error
}

type accessEvent struct {
	evt *types.Event
}

func (e accessEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e accessEvent) Event() *types.Event { return e.evt }

// Engine owns access-credential issuance: one zero-decimal token per content
// series, mintable only under the series' derived authority.
type Engine struct {
	state   engineState
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine constructs an access-mint engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(accessEvent{evt: evt})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func nonceBytes(nonce uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], nonce)
	return buf[:]
}

// SeriesID computes the deterministic identifier of an access series.
func SeriesID(creator [20]byte, contentID [32]byte, nonce uint64) [32]byte {
	var id [32]byte
	copy(id[:], ethcrypto.Keccak256([]byte(authority.NamespaceAccessSeries), creator[:], contentID[:], nonceBytes(nonce)))
	return id
}

// Initialize creates the series record and registers the underlying
// credential issuer with zero decimal places, its mint authority fixed to the
// deterministic derivation for (creator, content, nonce).
func (e *Engine) Initialize(creator [20]byte, contentID [32]byte, nonce uint64) (*AccessSeries, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if creator == ([20]byte{}) {
		return nil, ErrInvalidCreator
	}
	if contentID == ([32]byte{}) {
		return nil, ErrInvalidContentID
	}
	id := SeriesID(creator, contentID, nonce)
	if _, ok, err := e.state.AccessSeriesGet(id); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrSeriesExists
	}
	mintAuthority, bump, err := authority.Derive(authority.NamespaceAccessAuthority, creator[:], contentID[:], nonceBytes(nonce))
	if err != nil {
		return nil, err
	}
	issuer, _, err := authority.Derive(authority.NamespaceCredential, id[:])
	if err != nil {
		return nil, err
	}
	symbol := CredentialSymbol(id)
	if err := e.state.RegisterToken(symbol, "Access Credential", 0); err != nil {
		return nil, err
	}
	if err := e.state.SetTokenMintAuthority(symbol, mintAuthority[:]); err != nil {
		return nil, err
	}
	series := &AccessSeries{
		ID:            id,
		Creator:       creator,
		ContentID:     contentID,
		Issuer:        issuer,
		IssuerSymbol:  symbol,
		Authority:     mintAuthority,
		AuthorityBump: bump,
		Nonce:         nonce,
		TotalIssued:   0,
		CreatedAt:     e.now(),
	}
	if err := e.state.AccessSeriesPut(series); err != nil {
		return nil, err
	}
	e.emit(NewSeriesCreatedEvent(series))
	return series.Clone(), nil
}

// Get returns a copy of the stored series.
func (e *Engine) Get(id [32]byte) (*AccessSeries, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	series, ok, err := e.state.AccessSeriesGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSeriesNotFound
	}
	return series.Clone(), nil
}

// Grant issues exactly one credential unit to the buyer's holding, creating
// the holding on first issuance. The mint authority is rederived and checked
// against both the series record and the token registry before any balance
// moves; the issuance counter increments with checked arithmetic. There is no
// duplicate-issuance guard per buyer here: the settlement orchestrator calls
// Grant at most once per purchase lifecycle.
func (e *Engine) Grant(id [32]byte, buyer [20]byte) (*AccessSeries, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if buyer == ([20]byte{}) {
		return nil, ErrInvalidBuyer
	}
	series, ok, err := e.state.AccessSeriesGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSeriesNotFound
	}
	expected, err := authority.DeriveWithBump(authority.NamespaceAccessAuthority, series.AuthorityBump, series.Creator[:], series.ContentID[:], nonceBytes(series.Nonce))
	if err != nil {
		return nil, ErrInvalidMintAuthority
	}
	if expected != series.Authority {
		return nil, ErrInvalidMintAuthority
	}
	registered, err := e.state.TokenMintAuthority(series.IssuerSymbol)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(registered, series.Authority[:]) {
		return nil, ErrInvalidIssuer
	}
	if series.TotalIssued == math.MaxUint64 {
		return nil, ErrNumericalOverflow
	}
	balance, err := e.state.TokenBalance(buyer[:], series.IssuerSymbol)
	if err != nil {
		return nil, err
	}
	if err := e.state.SetTokenBalance(buyer[:], series.IssuerSymbol, new(big.Int).Add(balance, big.NewInt(1))); err != nil {
		return nil, err
	}
	series.TotalIssued++
	if err := e.state.AccessSeriesPut(series); err != nil {
		return nil, err
	}
	e.emit(NewGrantedEvent(series, buyer))
	return series.Clone(), nil
}
