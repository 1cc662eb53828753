package types

import "math/big"

// Account holds the native-coin balance and replay nonce for a single
// 20-byte address. Token balances (payment assets and access credentials)
// live in the state manager's token ledger, keyed by (address, symbol).
type Account struct {
	Nonce   uint64   `json:"nonce"`
	Balance *big.Int `json:"balance"`
}

// EnsureAccount returns a usable account value, replacing nil accounts and
// nil balances with zeroed equivalents.
func EnsureAccount(acc *Account) *Account {
	if acc == nil {
		return &Account{Balance: big.NewInt(0)}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}
