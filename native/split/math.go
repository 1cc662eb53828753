package split

import "math/bits"

// checkedShare computes floor(total * bps / 10000) with an overflow-checked
// multiplication, matching u64 semantics: the product itself must fit in 64
// bits even when the final quotient would.
func checkedShare(total uint64, bps uint16) (uint64, error) {
	hi, lo := bits.Mul64(total, uint64(bps))
	if hi != 0 {
		return 0, ErrNumericalOverflow
	}
	return lo / TotalBps, nil
}

func checkedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrNumericalOverflow
	}
	return a - b, nil
}

// Amounts partitions a paid total into the platform share, the per-
// collaborator shares in stored order, and the creator remainder. Every
// rounding loss lands in the creator amount, so the parts always sum to the
// exact total.
func (c *Config) Amounts(total uint64) (platform uint64, collabs []uint64, creator uint64, err error) {
	if c == nil {
		return 0, nil, 0, ErrSplitNotFound
	}
	platform, err = checkedShare(total, c.PlatformFeeBps)
	if err != nil {
		return 0, nil, 0, err
	}
	remaining, err := checkedSub(total, platform)
	if err != nil {
		return 0, nil, 0, err
	}
	collabs = make([]uint64, len(c.Collaborators))
	for i, collab := range c.Collaborators {
		share, shareErr := checkedShare(total, collab.ShareBps)
		if shareErr != nil {
			return 0, nil, 0, shareErr
		}
		remaining, shareErr = checkedSub(remaining, share)
		if shareErr != nil {
			return 0, nil, 0, shareErr
		}
		collabs[i] = share
	}
	return platform, collabs, remaining, nil
}
