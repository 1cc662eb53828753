package split

import "fmt"

const (
	// MaxPlatformFeeBps caps the platform fee at 10%.
	MaxPlatformFeeBps = 1000
	// MaxCollaborators bounds the collaborator list.
	MaxCollaborators = 10
	// TotalBps is the basis-point denominator: 10000 bps = 100%.
	TotalBps = 10000
)

// Collaborator is one entry of the ordered revenue-share list.
type Collaborator struct {
	Identity [20]byte
	ShareBps uint16
}

// Config is the per-content revenue split schedule: a platform fee, an
// ordered collaborator list, and the creator receiving the exact remainder.
// Shares and the collaborator list are immutable after creation; only the
// distribution routine touches LastDistributedAt.
type Config struct {
	ID                [32]byte
	ContentID         [32]byte
	Creator           [20]byte
	PlatformFeeBps    uint16
	PlatformTreasury  [20]byte
	Collaborators     []Collaborator
	LastDistributedAt int64
	Nonce             uint64
	Vault             [20]byte // distribution custody, derived from ID
	VaultBump         uint8
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Collaborators = append([]Collaborator(nil), c.Collaborators...)
	return &clone
}

// ValidateShares checks the invariant platformFee + Σ shares <= 10000 over
// the constructed record, so validation and storage are effectively atomic.
func (c *Config) ValidateShares() error {
	if c == nil {
		return fmt.Errorf("nil split config")
	}
	total := uint32(c.PlatformFeeBps)
	for _, collab := range c.Collaborators {
		total += uint32(collab.ShareBps)
	}
	if total > TotalBps {
		return ErrInvalidShareDistribution
	}
	return nil
}
