package craft

import modelpkg "autocraft.ai/internal/sim/world/kernel/model"

// Pool is the available count per item type across a set of source snapshots.
// It is read-only once built.
type Pool map[string]int

// BuildPool sums every non-empty stack of every snapshot. Empty markers and
// non-positive counts are skipped.
func BuildPool(snaps ...[]modelpkg.ItemStack) Pool {
	p := Pool{}
	for _, slots := range snaps {
		for _, s := range slots {
			if s.IsEmpty() {
				continue
			}
			p[s.Item] += s.Count
		}
	}
	return p
}

// Get returns the count for item; absent entries are 0.
func (p Pool) Get(item string) int { return p[item] }

