package authority

import (
	"bytes"
	"errors"
	"testing"
)

func TestDeriveDeterministic(t *testing.T) {
	creator := bytes.Repeat([]byte{0x11}, 20)
	content := bytes.Repeat([]byte{0x22}, 32)

	addr1, bump1, err := Derive(NamespaceAccessAuthority, creator, content)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	addr2, bump2, err := Derive(NamespaceAccessAuthority, creator, content)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if addr1 != addr2 || bump1 != bump2 {
		t.Fatalf("derivation not deterministic: %x/%d vs %x/%d", addr1, bump1, addr2, bump2)
	}
	if addr1 == ([20]byte{}) {
		t.Fatalf("derived zero address")
	}
}

func TestDeriveSeparatesNamespacesAndFields(t *testing.T) {
	creator := bytes.Repeat([]byte{0x11}, 20)
	content := bytes.Repeat([]byte{0x22}, 32)

	a, _, err := Derive(NamespaceVault, creator, content)
	if err != nil {
		t.Fatalf("derive vault: %v", err)
	}
	b, _, err := Derive(NamespaceDistributionVault, creator, content)
	if err != nil {
		t.Fatalf("derive distribution vault: %v", err)
	}
	if a == b {
		t.Fatalf("namespaces must not collide")
	}

	// Length-prefixed fields: ("ab","c") and ("a","bc") must differ.
	x, _, err := Derive(NamespaceVault, []byte("ab"), []byte("c"))
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	y, _, err := Derive(NamespaceVault, []byte("a"), []byte("bc"))
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if x == y {
		t.Fatalf("field boundaries must be preserved in the derivation")
	}
}

func TestVerify(t *testing.T) {
	fields := [][]byte{[]byte("content"), []byte("nonce")}
	addr, _, err := Derive(NamespaceSplit, fields...)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if !Verify(addr, NamespaceSplit, fields...) {
		t.Fatalf("expected verification to pass")
	}
	var other [20]byte
	other[0] = 0x01
	if Verify(other, NamespaceSplit, fields...) {
		t.Fatalf("expected verification to fail for foreign address")
	}
	if Verify(addr, NamespaceVault, fields...) {
		t.Fatalf("expected verification to fail for wrong namespace")
	}
}

func TestCapabilitySingleUse(t *testing.T) {
	field := bytes.Repeat([]byte{0x33}, 32)
	addr, bump, err := Derive(NamespaceVault, field)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	cap, err := Authorize(NamespaceVault, bump, field)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if cap.Address() != addr {
		t.Fatalf("capability address mismatch")
	}
	if err := cap.Consume(addr); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if err := cap.Consume(addr); !errors.Is(err, ErrCapabilityConsumed) {
		t.Fatalf("expected second consume to fail, got %v", err)
	}
}

func TestCapabilityAddressMismatch(t *testing.T) {
	field := bytes.Repeat([]byte{0x44}, 32)
	_, bump, err := Derive(NamespaceVault, field)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	cap, err := Authorize(NamespaceVault, bump, field)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	var wrong [20]byte
	wrong[19] = 0xEE
	if err := cap.Consume(wrong); !errors.Is(err, ErrInvalidAuthority) {
		t.Fatalf("expected ErrInvalidAuthority, got %v", err)
	}
	// The failed consume must not spend the capability.
	if err := cap.Consume(cap.Address()); err != nil {
		t.Fatalf("consume after mismatch: %v", err)
	}
}

func TestAuthorizeRejectsWrongBump(t *testing.T) {
	field := bytes.Repeat([]byte{0x55}, 32)
	_, bump, err := Derive(NamespaceVault, field)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	wrongBump := bump - 1
	if _, err := Authorize(NamespaceVault, wrongBump, field); !errors.Is(err, ErrInvalidAuthority) {
		t.Fatalf("expected ErrInvalidAuthority for wrong bump, got %v", err)
	}
}
