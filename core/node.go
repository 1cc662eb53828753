package core

import (
	"fmt"
	"math/big"
	"sync"

	"accesspay/core/events"
	"accesspay/core/state"
	"accesspay/core/types"
	"accesspay/native/accessmint"
	"accesspay/native/escrow"
	"accesspay/native/split"
	"accesspay/observability"
	"accesspay/observability/metrics"
	"accesspay/storage"
)

// attributedEvent is implemented by the engine event wrappers, exposing the
// structured payload behind the emitter interface.
type attributedEvent interface {
	Event() *types.Event
}

// meteredEmitter counts every emission before handing it to the ring buffer.
type meteredEmitter struct {
	next events.Emitter
}

func (m meteredEmitter) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	observability.Events().RecordEvent(evt.EventType())
	if m.next != nil {
		m.next.Emit(evt)
	}
}

// Node owns the settlement ledger: one journaled state manager, the three
// business engines wired to it, and a mutex serialising atomic units. Every
// public operation runs as one unit; an error at any step aborts the journal
// so no partial settlement ever reaches the database.
type Node struct {
	mu sync.Mutex

	db      storage.Database
	state   *state.Manager
	ring    *events.Ring
	metrics *metrics.SettlementMetrics

	escrowEngine *escrow.Engine
	accessEngine *accessmint.Engine
	splitEngine  *split.Engine
	settlement   *escrow.Settlement
}

// NewNode wires a node over the provided database.
func NewNode(db storage.Database) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("core: database required")
	}
	manager := state.NewManager(db)
	ring := events.NewRing(1024)
	emitter := meteredEmitter{next: ring}

	escrowEngine := escrow.NewEngine()
	escrowEngine.SetState(manager)
	escrowEngine.SetEmitter(emitter)

	accessEngine := accessmint.NewEngine()
	accessEngine.SetState(manager)
	accessEngine.SetEmitter(emitter)

	splitEngine := split.NewEngine()
	splitEngine.SetState(manager)
	splitEngine.SetEmitter(emitter)

	return &Node{
		db:           db,
		state:        manager,
		ring:         ring,
		metrics:      metrics.Settlement(),
		escrowEngine: escrowEngine,
		accessEngine: accessEngine,
		splitEngine:  splitEngine,
		settlement:   escrow.NewSettlement(escrowEngine, accessEngine, splitEngine),
	}, nil
}

// SetNowFunc overrides the time source of all engines, for deterministic
// tests.
func (n *Node) SetNowFunc(now func() int64) {
	n.escrowEngine.SetNowFunc(now)
	n.accessEngine.SetNowFunc(now)
	n.splitEngine.SetNowFunc(now)
}

// run executes fn as one atomic unit: commit on success, abort on error.
func (n *Node) run(fn func() error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := fn(); err != nil {
		n.state.Abort()
		return err
	}
	return n.state.Commit()
}

// AccessInitialize creates a credential series for a piece of content.
func (n *Node) AccessInitialize(creator [20]byte, contentID [32]byte, nonce uint64) (*accessmint.AccessSeries, error) {
	var series *accessmint.AccessSeries
	err := n.run(func() error {
		var err error
		series, err = n.accessEngine.Initialize(creator, contentID, nonce)
		return err
	})
	if err != nil {
		return nil, err
	}
	return series, nil
}

// SplitInitialize registers the revenue split schedule for a piece of content.
func (n *Node) SplitInitialize(creator [20]byte, contentID [32]byte, platformFeeBps uint16, treasury [20]byte, collaborators []split.Collaborator, nonce uint64) (*split.Config, error) {
	var cfg *split.Config
	err := n.run(func() error {
		var err error
		cfg, err = n.splitEngine.Initialize(creator, contentID, platformFeeBps, treasury, collaborators, nonce)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// EscrowOpen opens a purchase in the Initialized state.
func (n *Node) EscrowOpen(buyer, creator [20]byte, contentID [32]byte, price uint64, asset string, nonce uint64) (*escrow.Purchase, error) {
	var purchase *escrow.Purchase
	err := n.run(func() error {
		var err error
		purchase, err = n.escrowEngine.Open(buyer, creator, contentID, price, asset, nonce)
		return err
	})
	if err != nil {
		return nil, err
	}
	n.metrics.RecordPurchaseOpened()
	return purchase, nil
}

// EscrowSettle runs the composed settlement: payment into custody, credential
// issuance and revenue distribution, all in one atomic unit.
func (n *Node) EscrowSettle(purchaseID [32]byte, payer [20]byte, amount uint64, seriesID, splitID [32]byte, payoutTargets [][20]byte) (*escrow.Purchase, error) {
	var (
		purchase *escrow.Purchase
		cfg      *split.Config
	)
	err := n.run(func() error {
		var err error
		cfg, err = n.splitEngine.Get(splitID)
		if err != nil {
			return err
		}
		purchase, err = n.settlement.Settle(purchaseID, payer, amount, seriesID, splitID, payoutTargets)
		return err
	})
	if err != nil {
		n.metrics.RecordSettlement("failure", 0)
		return nil, err
	}
	n.metrics.RecordSettlement("success", amount)
	if platform, collabs, creator, amtErr := cfg.Amounts(amount); amtErr == nil {
		n.metrics.RecordDistribution("platform", platform)
		for _, share := range collabs {
			n.metrics.RecordDistribution("collaborator", share)
		}
		n.metrics.RecordDistribution("creator", creator)
	}
	return purchase, nil
}

// EscrowCancel refunds the buyer and closes the purchase record.
func (n *Node) EscrowCancel(purchaseID [32]byte, caller [20]byte) error {
	err := n.run(func() error {
		return n.escrowEngine.Cancel(purchaseID, caller)
	})
	if err != nil {
		return err
	}
	n.metrics.RecordCancellation()
	return nil
}

// RegisterToken registers a payment asset in the token registry.
func (n *Node) RegisterToken(symbol, name string, decimals uint8) error {
	return n.run(func() error {
		return n.state.RegisterToken(symbol, name, decimals)
	})
}

// Credit adds amount to an account's native balance. Used by genesis funding
// and tests; not exposed over RPC.
func (n *Node) Credit(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("core: credit amount must be non-negative")
	}
	return n.run(func() error {
		account, err := n.state.GetAccount(addr[:])
		if err != nil {
			return err
		}
		account = types.EnsureAccount(account)
		account.Balance = new(big.Int).Add(account.Balance, amount)
		return n.state.PutAccount(addr[:], account)
	})
}

// EscrowGet returns a purchase by ID.
func (n *Node) EscrowGet(id [32]byte) (*escrow.Purchase, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.escrowEngine.Get(id)
}

// AccessGet returns a credential series by ID.
func (n *Node) AccessGet(id [32]byte) (*accessmint.AccessSeries, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.accessEngine.Get(id)
}

// SplitGet returns a split configuration by ID.
func (n *Node) SplitGet(id [32]byte) (*split.Config, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.splitEngine.Get(id)
}

// Balance returns the native balance of an account.
func (n *Node) Balance(addr [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	account, err := n.state.GetAccount(addr[:])
	if err != nil {
		return nil, err
	}
	return types.EnsureAccount(account).Balance, nil
}

// TokenBalance returns the balance of an account for a registered token.
func (n *Node) TokenBalance(addr [20]byte, symbol string) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.TokenBalance(addr[:], symbol)
}

// Tokens lists the registered token symbols.
func (n *Node) Tokens() ([]string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.TokenList()
}

// Events returns the structured payloads of the most recent ledger events,
// oldest first.
func (n *Node) Events() []*types.Event {
	recent := n.ring.Recent()
	out := make([]*types.Event, 0, len(recent))
	for _, evt := range recent {
		if attributed, ok := evt.(attributedEvent); ok {
			out = append(out, attributed.Event())
		}
	}
	return out
}
