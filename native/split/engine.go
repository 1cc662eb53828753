package split

import (
	"encoding/binary"
	"errors"
	"math/big"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"accesspay/core/events"
	"accesspay/core/types"
	"accesspay/native/authority"
)

var errNilState = errors.New("split engine: state not configured")

type engineState interface {
	SplitPut(*Config) error
	SplitGet(id [32]byte) (*Config, bool, error)
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
	TokenExists(symbol string) bool
	TokenBalance(addr []byte, symbol string) (*big.Int, error)
	SetTokenBalance(addr []byte, symbol string, amount *big.Int) error
}

type splitEvent struct {
	evt *types.Event
}

func (e splitEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e splitEvent) Event() *types.Event { return e.evt }

// Engine owns revenue-split configurations and the exact-arithmetic
// distribution routine that partitions a paid amount among the platform
// treasury, the collaborators, and the creator.
type Engine struct {
	state   engineState
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine creates a split engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
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
	e.emitter.Emit(splitEvent{evt: evt})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func isZeroAddress(addr [20]byte) bool {
	return addr == [20]byte{}
}

// ConfigID computes the deterministic identifier of a split configuration.
func ConfigID(creator [20]byte, contentID [32]byte, nonce uint64) [32]byte {
	var nonceLE [8]byte
	binary.LittleEndian.PutUint64(nonceLE[:], nonce)
	var id [32]byte
	copy(id[:], ethcrypto.Keccak256([]byte(authority.NamespaceSplit), creator[:], contentID[:], nonceLE[:]))
	return id
}

// Initialize registers the revenue split schedule for a piece of content.
// Share validation runs over the constructed record so validation and storage
// are effectively atomic: nothing is persisted unless the invariant holds.
func (e *Engine) Initialize(creator [20]byte, contentID [32]byte, platformFeeBps uint16, treasury [20]byte, collaborators []Collaborator, nonce uint64) (*Config, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if isZeroAddress(creator) {
		return nil, ErrInvalidCreator
	}
	if contentID == ([32]byte{}) {
		return nil, ErrInvalidContentID
	}
	if platformFeeBps > MaxPlatformFeeBps {
		return nil, ErrInvalidPlatformFee
	}
	if len(collaborators) > MaxCollaborators {
		return nil, ErrTooManyCollaborators
	}
	if isZeroAddress(treasury) {
		return nil, ErrInvalidRecipient
	}
	for _, collab := range collaborators {
		if isZeroAddress(collab.Identity) {
			return nil, ErrInvalidCollaborator
		}
	}
	id := ConfigID(creator, contentID, nonce)
	if _, ok, err := e.state.SplitGet(id); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrSplitExists
	}
	vault, bump, err := authority.Derive(authority.NamespaceDistributionVault, id[:])
	if err != nil {
		return nil, err
	}
	// The vault address is publicly derivable from (creator, content, nonce).
	// A payout party aliasing it would receive distributions from itself, so
	// the config is rejected outright.
	if treasury == vault {
		return nil, ErrInvalidRecipient
	}
	for _, collab := range collaborators {
		if collab.Identity == vault {
			return nil, ErrInvalidCollaborator
		}
	}
	cfg := &Config{
		ID:                id,
		ContentID:         contentID,
		Creator:           creator,
		PlatformFeeBps:    platformFeeBps,
		PlatformTreasury:  treasury,
		Collaborators:     append([]Collaborator(nil), collaborators...),
		LastDistributedAt: e.now(),
		Nonce:             nonce,
		Vault:             vault,
		VaultBump:         bump,
	}
	if err := cfg.ValidateShares(); err != nil {
		return nil, err
	}
	if err := e.state.SplitPut(cfg); err != nil {
		return nil, err
	}
	e.emit(NewCreatedEvent(cfg))
	return cfg.Clone(), nil
}

// Get returns a copy of the stored configuration.
func (e *Engine) Get(id [32]byte) (*Config, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	cfg, ok, err := e.state.SplitGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSplitNotFound
	}
	return cfg.Clone(), nil
}

// Distribute partitions totalAmount held in the distribution custody across
// the platform treasury, the collaborators in stored order, and the creator
// remainder. payoutTargets must mirror the stored collaborator list exactly.
// Transfers run platform first, then collaborators, then creator; any failure
// aborts the whole call with no partial state retained by the enclosing
// atomic unit. The custody capability is consumed up front so the vault
// cannot be debited twice through the same proof.
func (e *Engine) Distribute(id [32]byte, custody *authority.Capability, totalAmount uint64, asset string, payoutTargets [][20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	cfg, ok, err := e.state.SplitGet(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSplitNotFound
	}
	if len(payoutTargets) != len(cfg.Collaborators) {
		return ErrInvalidRecipient
	}
	for i, collab := range cfg.Collaborators {
		if payoutTargets[i] != collab.Identity {
			return ErrInvalidCollaborator
		}
	}
	if custody == nil {
		return authority.ErrInvalidAuthority
	}
	if err := custody.Consume(cfg.Vault); err != nil {
		return err
	}
	platformAmt, collabAmts, creatorAmt, err := cfg.Amounts(totalAmount)
	if err != nil {
		return err
	}
	if platformAmt > 0 {
		if err := e.transfer(cfg.Vault, cfg.PlatformTreasury, asset, platformAmt); err != nil {
			return err
		}
	}
	for i, amt := range collabAmts {
		if amt == 0 {
			continue
		}
		if err := e.transfer(cfg.Vault, payoutTargets[i], asset, amt); err != nil {
			return err
		}
	}
	if creatorAmt > 0 {
		if err := e.transfer(cfg.Vault, cfg.Creator, asset, creatorAmt); err != nil {
			return err
		}
	}
	cfg.LastDistributedAt = e.now()
	if err := e.state.SplitPut(cfg); err != nil {
		return err
	}
	e.emit(NewDistributedEvent(cfg, totalAmount, platformAmt, creatorAmt))
	return nil
}

func (e *Engine) transfer(from, to [20]byte, asset string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	amt := new(big.Int).SetUint64(amount)
	if asset == "" {
		fromAcc, err := e.state.GetAccount(from[:])
		if err != nil {
			return err
		}
		fromAcc = types.EnsureAccount(fromAcc)
		if fromAcc.Balance.Cmp(amt) < 0 {
			return ErrInsufficientFunds
		}
		// A self transfer leaves the balance unchanged. Loading the account a
		// second time here would let the credit overwrite the debit.
		if from == to {
			return nil
		}
		toAcc, err := e.state.GetAccount(to[:])
		if err != nil {
			return err
		}
		toAcc = types.EnsureAccount(toAcc)
		fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amt)
		toAcc.Balance = new(big.Int).Add(toAcc.Balance, amt)
		if err := e.state.PutAccount(from[:], fromAcc); err != nil {
			return err
		}
		return e.state.PutAccount(to[:], toAcc)
	}
	if !e.state.TokenExists(asset) {
		return ErrInvalidRecipient
	}
	fromBal, err := e.state.TokenBalance(from[:], asset)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amt) < 0 {
		return ErrInsufficientFunds
	}
	if from == to {
		return nil
	}
	toBal, err := e.state.TokenBalance(to[:], asset)
	if err != nil {
		return err
	}
	if err := e.state.SetTokenBalance(from[:], asset, new(big.Int).Sub(fromBal, amt)); err != nil {
		return err
	}
	return e.state.SetTokenBalance(to[:], asset, new(big.Int).Add(toBal, amt))
}
