package escrow

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

var errNilState = errors.New("escrow engine: state not configured")

type engineState interface {
	PurchasePut(*Purchase) error
	PurchaseGet(id [32]byte) (*Purchase, bool, error)
	PurchaseDelete(id [32]byte) error
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
	TokenExists(symbol string) bool
	TokenBalance(addr []byte, symbol string) (*big.Int, error)
	SetTokenBalance(addr []byte, symbol string, amount *big.Int) error
}

type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e escrowEvent) Event() *types.Event { return e.evt }

// Engine owns the purchase lifecycle: opening an escrowed purchase, taking
// payment into custody, releasing funds on settlement and refunding on
// cancellation. It never splits revenue or mints credentials itself; the
// settlement composer drives those engines against the same state.
type Engine struct {
	state   engineState
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine creates an escrow engine with a no-op emitter.
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

// SetNowFunc overrides the time source used by the engine.
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
	e.emitter.Emit(escrowEvent{evt: evt})
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

// PurchaseID computes the deterministic identifier of a purchase.
func PurchaseID(buyer [20]byte, contentID [32]byte, nonce uint64) [32]byte {
	var id [32]byte
	copy(id[:], ethcrypto.Keccak256([]byte(authority.NamespaceEscrow), buyer[:], contentID[:], nonceBytes(nonce)))
	return id
}

// statusGuard maps a terminal status to its dedicated error. Only Initialized
// purchases pass.
func statusGuard(p *Purchase) error {
	switch p.Status {
	case PurchaseInitialized:
		return nil
	case PurchaseCompleted:
		return ErrEscrowAlreadyCompleted
	case PurchaseCancelled:
		return ErrEscrowAlreadyCancelled
	default:
		return ErrInvalidEscrowStatus
	}
}

// Open records a new purchase in the Initialized state. No funds move; the
// custody vault address is derived from the purchase ID so every participant
// can recompute it.
func (e *Engine) Open(buyer, creator [20]byte, contentID [32]byte, price uint64, asset string, nonce uint64) (*Purchase, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if buyer == ([20]byte{}) {
		return nil, ErrInvalidBuyer
	}
	if creator == ([20]byte{}) {
		return nil, ErrInvalidCreator
	}
	if contentID == ([32]byte{}) {
		return nil, ErrInvalidContentID
	}
	if price == 0 {
		return nil, ErrInvalidPrice
	}
	asset = NormalizeAsset(asset)
	if asset != "" && !e.state.TokenExists(asset) {
		return nil, ErrInvalidAsset
	}
	id := PurchaseID(buyer, contentID, nonce)
	if _, ok, err := e.state.PurchaseGet(id); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrPurchaseExists
	}
	vault, bump, err := authority.Derive(authority.NamespaceVault, id[:])
	if err != nil {
		return nil, err
	}
	purchase := &Purchase{
		ID:           id,
		Buyer:        buyer,
		Creator:      creator,
		ContentID:    contentID,
		Price:        price,
		PaymentAsset: asset,
		CreatedAt:    e.now(),
		Nonce:        nonce,
		Status:       PurchaseInitialized,
		Vault:        vault,
		VaultBump:    bump,
	}
	if err := e.state.PurchasePut(purchase); err != nil {
		return nil, err
	}
	e.emit(NewOpenedEvent(purchase))
	return purchase.Clone(), nil
}

// Get returns a copy of the stored purchase.
func (e *Engine) Get(id [32]byte) (*Purchase, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	purchase, ok, err := e.state.PurchaseGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPurchaseNotFound
	}
	return purchase.Clone(), nil
}

// AcceptPayment moves the exact purchase price from the payer into the
// custody vault and records the paid amount. The payer must be the recorded
// buyer and the amount must equal the price to the unit; anything else is
// rejected with no funds moved.
func (e *Engine) AcceptPayment(id [32]byte, payer [20]byte, amount uint64) (*Purchase, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	purchase, ok, err := e.state.PurchaseGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPurchaseNotFound
	}
	if err := statusGuard(purchase); err != nil {
		return nil, err
	}
	if payer != purchase.Buyer {
		return nil, ErrInvalidBuyer
	}
	if amount != purchase.Price {
		return nil, ErrInvalidPaymentAmount
	}
	if err := e.transfer(purchase.Buyer, purchase.Vault, purchase.PaymentAsset, amount); err != nil {
		return nil, err
	}
	purchase.AmountPaid = amount
	if err := e.state.PurchasePut(purchase); err != nil {
		return nil, err
	}
	e.emit(NewPaidEvent(purchase))
	return purchase.Clone(), nil
}

// Cancel refunds the held amount to the buyer and removes the purchase
// record. Only the buyer may cancel, and only while the purchase is still
// Initialized; a settled purchase stays settled.
func (e *Engine) Cancel(id [32]byte, caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	purchase, ok, err := e.state.PurchaseGet(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPurchaseNotFound
	}
	if err := statusGuard(purchase); err != nil {
		return err
	}
	if caller != purchase.Buyer {
		return ErrInvalidBuyer
	}
	if purchase.AmountPaid > 0 {
		custody, err := authority.Authorize(authority.NamespaceVault, purchase.VaultBump, id[:])
		if err != nil {
			return err
		}
		if err := custody.Consume(purchase.Vault); err != nil {
			return err
		}
		if err := e.transfer(purchase.Vault, purchase.Buyer, purchase.PaymentAsset, purchase.AmountPaid); err != nil {
			return err
		}
	}
	purchase.Status = PurchaseCancelled
	if err := e.state.PurchaseDelete(id); err != nil {
		return err
	}
	e.emit(NewCancelledEvent(purchase))
	return nil
}

// releaseToDistribution drains the custody vault into the distribution vault
// under a consumed capability. Used by the settlement composer only.
func (e *Engine) releaseToDistribution(purchase *Purchase, custody *authority.Capability, distributionVault [20]byte) error {
	if custody == nil {
		return authority.ErrInvalidAuthority
	}
	if err := custody.Consume(purchase.Vault); err != nil {
		return err
	}
	return e.transfer(purchase.Vault, distributionVault, purchase.PaymentAsset, purchase.AmountPaid)
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
		return ErrInvalidAsset
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
