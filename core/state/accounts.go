package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"accesspay/core/types"
)

// GetAccount loads the account stored at addr. Unknown addresses resolve to a
// fresh zero-balance account rather than an error so custody vaults can be
// credited without prior setup.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	if len(addr) == 0 {
		return nil, fmt.Errorf("state: account address required")
	}
	data, err := m.get(accountKey(addr))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return types.EnsureAccount(nil), nil
	}
	account := new(types.Account)
	if err := rlp.DecodeBytes(data, account); err != nil {
		return nil, fmt.Errorf("state: decode account: %w", err)
	}
	return types.EnsureAccount(account), nil
}

// PutAccount journals the account record for addr.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	if len(addr) == 0 {
		return fmt.Errorf("state: account address required")
	}
	encoded, err := rlp.EncodeToBytes(types.EnsureAccount(account))
	if err != nil {
		return fmt.Errorf("state: encode account: %w", err)
	}
	return m.put(accountKey(addr), encoded)
}
