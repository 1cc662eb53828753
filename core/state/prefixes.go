package state

import ethcrypto "github.com/ethereum/go-ethereum/crypto"

var (
	purchasePrefix = []byte("purchase:")
	splitPrefix    = []byte("split:")
	seriesPrefix   = []byte("series:")
	accountPrefix  = []byte("account:")
	tokenPrefix    = []byte("token:")
	balancePrefix  = []byte("balance:")
	tokenListKey   = ethcrypto.Keccak256([]byte("token-list"))
)

func prefixedKey(prefix []byte, suffix []byte) []byte {
	buf := make([]byte, len(prefix)+len(suffix))
	copy(buf, prefix)
	copy(buf[len(prefix):], suffix)
	return buf
}

func purchaseKey(id [32]byte) []byte { return prefixedKey(purchasePrefix, id[:]) }
func splitKey(id [32]byte) []byte    { return prefixedKey(splitPrefix, id[:]) }
func seriesKey(id [32]byte) []byte   { return prefixedKey(seriesPrefix, id[:]) }
func accountKey(addr []byte) []byte  { return prefixedKey(accountPrefix, addr) }

func tokenMetadataKey(symbol string) []byte {
	return prefixedKey(tokenPrefix, []byte(symbol))
}

func balanceKey(addr []byte, symbol string) []byte {
	buf := make([]byte, len(balancePrefix)+len(symbol)+1+len(addr))
	copy(buf, balancePrefix)
	copy(buf[len(balancePrefix):], symbol)
	buf[len(balancePrefix)+len(symbol)] = ':'
	copy(buf[len(balancePrefix)+len(symbol)+1:], addr)
	return buf
}
