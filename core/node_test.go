package core

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"accesspay/native/escrow"
	"accesspay/native/split"
	"accesspay/storage"
)

type nodeFixture struct {
	node *Node

	buyer    [20]byte
	creator  [20]byte
	treasury [20]byte
	collabA  [20]byte
	collabB  [20]byte
	content  [32]byte

	purchaseID [32]byte
	seriesID   [32]byte
	splitID    [32]byte
	targets    [][20]byte
}

func newNodeFixture(t *testing.T) *nodeFixture {
	t.Helper()
	node, err := NewNode(storage.NewMemDB())
	require.NoError(t, err)
	node.SetNowFunc(func() int64 { return 42 })

	f := &nodeFixture{node: node}
	f.buyer[19] = 0x01
	f.creator[19] = 0x02
	f.treasury[19] = 0x03
	f.collabA[19] = 0x0a
	f.collabB[19] = 0x0b
	f.content[0] = 0xaa
	f.targets = [][20]byte{f.collabA, f.collabB}

	require.NoError(t, node.Credit(f.buyer, big.NewInt(1_000_000)))

	purchase, err := node.EscrowOpen(f.buyer, f.creator, f.content, 1_000_000, "", 1)
	require.NoError(t, err)
	f.purchaseID = purchase.ID

	series, err := node.AccessInitialize(f.creator, f.content, 1)
	require.NoError(t, err)
	f.seriesID = series.ID

	cfg, err := node.SplitInitialize(f.creator, f.content, 250, f.treasury, []split.Collaborator{
		{Identity: f.collabA, ShareBps: 500},
		{Identity: f.collabB, ShareBps: 300},
	}, 1)
	require.NoError(t, err)
	f.splitID = cfg.ID
	return f
}

func (f *nodeFixture) balance(t *testing.T, addr [20]byte) uint64 {
	t.Helper()
	bal, err := f.node.Balance(addr)
	require.NoError(t, err)
	return bal.Uint64()
}

func TestNodeSettlementEndToEnd(t *testing.T) {
	f := newNodeFixture(t)

	settled, err := f.node.EscrowSettle(f.purchaseID, f.buyer, 1_000_000, f.seriesID, f.splitID, f.targets)
	require.NoError(t, err)
	require.Equal(t, escrow.PurchaseCompleted, settled.Status)

	require.Equal(t, uint64(0), f.balance(t, f.buyer))
	require.Equal(t, uint64(25_000), f.balance(t, f.treasury))
	require.Equal(t, uint64(50_000), f.balance(t, f.collabA))
	require.Equal(t, uint64(30_000), f.balance(t, f.collabB))
	require.Equal(t, uint64(895_000), f.balance(t, f.creator))

	series, err := f.node.AccessGet(f.seriesID)
	require.NoError(t, err)
	require.Equal(t, uint64(1), series.TotalIssued)
	credential, err := f.node.TokenBalance(f.buyer, series.IssuerSymbol)
	require.NoError(t, err)
	require.Equal(t, int64(1), credential.Int64())
}

func TestNodeSettleFailureLeavesNoTrace(t *testing.T) {
	f := newNodeFixture(t)

	_, err := f.node.EscrowSettle(f.purchaseID, f.buyer, 999_999, f.seriesID, f.splitID, f.targets)
	require.ErrorIs(t, err, escrow.ErrInvalidPaymentAmount)

	// Buyer untouched, nothing issued, purchase still open.
	require.Equal(t, uint64(1_000_000), f.balance(t, f.buyer))
	purchase, err := f.node.EscrowGet(f.purchaseID)
	require.NoError(t, err)
	require.Equal(t, escrow.PurchaseInitialized, purchase.Status)
	series, err := f.node.AccessGet(f.seriesID)
	require.NoError(t, err)
	require.Zero(t, series.TotalIssued)
}

func TestNodeSettleIsTerminal(t *testing.T) {
	f := newNodeFixture(t)
	_, err := f.node.EscrowSettle(f.purchaseID, f.buyer, 1_000_000, f.seriesID, f.splitID, f.targets)
	require.NoError(t, err)

	_, err = f.node.EscrowSettle(f.purchaseID, f.buyer, 1_000_000, f.seriesID, f.splitID, f.targets)
	require.ErrorIs(t, err, escrow.ErrEscrowAlreadyCompleted)
	require.ErrorIs(t, f.node.EscrowCancel(f.purchaseID, f.buyer), escrow.ErrEscrowAlreadyCompleted)
}

func TestNodeCancelClosesPurchase(t *testing.T) {
	f := newNodeFixture(t)
	require.NoError(t, f.node.EscrowCancel(f.purchaseID, f.buyer))

	_, err := f.node.EscrowGet(f.purchaseID)
	require.ErrorIs(t, err, escrow.ErrPurchaseNotFound)
	require.Equal(t, uint64(1_000_000), f.balance(t, f.buyer))

	// The identifier can be reopened after closing.
	_, err = f.node.EscrowOpen(f.buyer, f.creator, f.content, 1_000_000, "", 1)
	require.NoError(t, err)
}

func TestNodeTokenRegistryAndAssets(t *testing.T) {
	f := newNodeFixture(t)
	require.NoError(t, f.node.RegisterToken("usdx", "Test Dollar", 6))
	tokens, err := f.node.Tokens()
	require.NoError(t, err)
	require.Contains(t, tokens, "USDX")
	// The settlement fixture already registered the credential token.
	require.Len(t, tokens, 2)

	// Opening a purchase in an unregistered asset fails.
	_, err = f.node.EscrowOpen(f.buyer, f.creator, f.content, 100, "NOPE", 9)
	require.ErrorIs(t, err, escrow.ErrInvalidAsset)

	_, err = f.node.EscrowOpen(f.buyer, f.creator, f.content, 100, "usdx", 9)
	require.NoError(t, err)
}

func TestNodeEventsSurfaceSettlementTrail(t *testing.T) {
	f := newNodeFixture(t)
	_, err := f.node.EscrowSettle(f.purchaseID, f.buyer, 1_000_000, f.seriesID, f.splitID, f.targets)
	require.NoError(t, err)

	evts := f.node.Events()
	require.NotEmpty(t, evts)
	seen := make(map[string]bool)
	for _, evt := range evts {
		seen[evt.Type] = true
	}
	require.True(t, seen[escrow.EventTypePurchaseOpened])
	require.True(t, seen[escrow.EventTypePurchasePaid])
	require.True(t, seen[escrow.EventTypePurchaseCompleted])
	require.True(t, seen[split.EventTypeSplitDistributed])
}

func TestNodePersistsAcrossRestart(t *testing.T) {
	db := storage.NewMemDB()
	node, err := NewNode(db)
	require.NoError(t, err)
	var creator, buyer [20]byte
	creator[19] = 0x02
	buyer[19] = 0x01
	var contentID [32]byte
	contentID[0] = 0xaa

	purchase, err := node.EscrowOpen(buyer, creator, contentID, 500, "", 1)
	require.NoError(t, err)

	// A fresh node over the same database sees the committed purchase.
	reopened, err := NewNode(db)
	require.NoError(t, err)
	loaded, err := reopened.EscrowGet(purchase.ID)
	require.NoError(t, err)
	require.Equal(t, purchase, loaded)
}
