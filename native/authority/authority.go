package authority

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrInvalidAuthority signals that a caller-supplied address does not
	// match its claimed derivation. Always fatal to the enclosing operation.
	ErrInvalidAuthority = errors.New("authority: derivation mismatch")
	// ErrCapabilityConsumed signals reuse of a single-use capability.
	ErrCapabilityConsumed = errors.New("authority: capability already consumed")
	// ErrNoBump signals that no valid bump exists for the field tuple. With a
	// 256-value search space this is practically unreachable but callers must
	// still handle it.
	ErrNoBump = errors.New("authority: no valid bump for derivation")
)

// Namespaces understood by the settlement protocol. Derivations under these
// tags produce custody and authority addresses with no corresponding private
// key.
const (
	NamespaceEscrow            = "escrow"
	NamespaceVault             = "vault"
	NamespaceSplit             = "split"
	NamespaceDistributionVault = "distribution_vault"
	NamespaceAccessSeries      = "access_series"
	NamespaceAccessAuthority   = "access_mint_authority"
	NamespaceCredential        = "credential"
)

// domainTag separates authority derivations from every other keccak use in
// the ledger, guaranteeing derived addresses cannot collide with key-held
// accounts (which hash public keys, not tagged tuples).
const domainTag = "accesspay/authority/v1"

// reservedMarker excludes a slice of the digest space from valid derivations
// so the bump is a real disambiguator: candidates whose digest starts with
// this byte are skipped and the next lower bump is tried.
const reservedMarker = 0xff

func digest(namespace string, fields [][]byte, bump uint8) [32]byte {
	size := len(domainTag) + 1 + len(namespace) + 1
	for _, f := range fields {
		size += 2 + len(f)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, domainTag...)
	buf = append(buf, 0x00)
	buf = append(buf, namespace...)
	for _, f := range fields {
		var l [2]byte
		binary.BigEndian.PutUint16(l[:], uint16(len(f)))
		buf = append(buf, l[:]...)
		buf = append(buf, f...)
	}
	buf = append(buf, bump)
	var h [32]byte
	copy(h[:], ethcrypto.Keccak256(buf))
	return h
}

func addressFromDigest(h [32]byte) [20]byte {
	var addr [20]byte
	copy(addr[:], h[12:])
	return addr
}

// Derive computes the deterministic address for a namespace and ordered field
// tuple, together with the disambiguating bump. The search starts at bump 255
// and walks downward until a digest outside the reserved space is found, so
// every participant rederives the same (address, bump) pair.
func Derive(namespace string, fields ...[]byte) ([20]byte, uint8, error) {
	if namespace == "" {
		return [20]byte{}, 0, fmt.Errorf("authority: namespace required")
	}
	for i := 255; i >= 0; i-- {
		bump := uint8(i)
		h := digest(namespace, fields, bump)
		if h[0] == reservedMarker {
			continue
		}
		return addressFromDigest(h), bump, nil
	}
	return [20]byte{}, 0, ErrNoBump
}

// DeriveWithBump recomputes the address for a known bump. It fails when the
// bump lands in the reserved digest space or does not match the canonical
// derivation for the tuple.
func DeriveWithBump(namespace string, bump uint8, fields ...[]byte) ([20]byte, error) {
	canonical, canonicalBump, err := Derive(namespace, fields...)
	if err != nil {
		return [20]byte{}, err
	}
	if bump != canonicalBump {
		return [20]byte{}, ErrInvalidAuthority
	}
	return canonical, nil
}

// Verify reports whether the candidate address matches the canonical
// derivation for the namespace and field tuple.
func Verify(candidate [20]byte, namespace string, fields ...[]byte) bool {
	derived, _, err := Derive(namespace, fields...)
	if err != nil {
		return false
	}
	return derived == candidate
}

// Capability is a non-transferable, single-use proof that an operation was
// authorized by the owner of a derivation. It stands in for a cryptographic
// signature when the paying account has no private key.
type Capability struct {
	namespace string
	fields    [][]byte
	bump      uint8
	address   [20]byte

	mu       sync.Mutex
	consumed bool
}

// Authorize produces a capability for the given derivation. The bump must be
// the canonical one recorded at derivation time; a stale or forged bump fails
// ErrInvalidAuthority.
func Authorize(namespace string, bump uint8, fields ...[]byte) (*Capability, error) {
	addr, err := DeriveWithBump(namespace, bump, fields...)
	if err != nil {
		return nil, err
	}
	copied := make([][]byte, len(fields))
	for i, f := range fields {
		copied[i] = append([]byte(nil), f...)
	}
	return &Capability{
		namespace: namespace,
		fields:    copied,
		bump:      bump,
		address:   addr,
	}, nil
}

// Address returns the derived address this capability speaks for.
func (c *Capability) Address() [20]byte {
	if c == nil {
		return [20]byte{}
	}
	return c.address
}

// Consume checks the capability against the expected custody address and
// marks it spent. A second call, or a call with a mismatched address, fails.
func (c *Capability) Consume(expected [20]byte) error {
	if c == nil {
		return ErrInvalidAuthority
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.consumed {
		return ErrCapabilityConsumed
	}
	if c.address != expected {
		return ErrInvalidAuthority
	}
	if !Verify(c.address, c.namespace, c.fields...) {
		return ErrInvalidAuthority
	}
	c.consumed = true
	return nil
}
