package craft

import (
	"sort"

	modelpkg "autocraft.ai/internal/sim/world/kernel/model"
)

// Container is one container taking part in an attempt. Snapshot returns a
// frozen copy of its slots; Commit applies slot changes and persists them.
// Commit is never called for an aborted attempt.
type Container interface {
	Snapshot() []modelpkg.ItemStack
	Commit(changes []modelpkg.SlotChange)
}

// StackInfo supplies per-item stacking rules.
type StackInfo interface {
	MaxStack(item string) int
	EmptyCounterpart(item string) string
}

type Outcome struct {
	RecipeID   string
	Output     modelpkg.ItemStack
	Byproducts []modelpkg.ItemStack
	Removed    map[string]int
}

// Attempt deposits result and any empty counterparts into output and removes
// used from sources, in that order of checks, on private copies of every
// container. Containers are committed only when every step succeeded.
// A nil items fails with ErrNoStackInfo before anything is read.
func Attempt(output Container, result modelpkg.ItemStack, used Used, sources []Container, items StackInfo) (Outcome, error) {
	if items == nil {
		return Outcome{}, ErrNoStackInfo
	}
	if output == nil {
		return Outcome{}, ErrNoOutput
	}
	if len(sources) == 0 {
		return Outcome{}, ErrNoSources
	}
	if result.IsEmpty() || len(used) == 0 {
		return Outcome{}, ErrNoRecipeMatch
	}

	outBefore := output.Snapshot()
	outAfter := modelpkg.CloneSlots(outBefore)

	byproducts := Byproducts(used, items)
	if left := AddItem(outAfter, result.Item, result.Count, items.MaxStack(result.Item)); left > 0 {
		return Outcome{}, ErrOutputFull
	}
	for _, bp := range byproducts {
		if left := AddItem(outAfter, bp.Item, bp.Count, items.MaxStack(bp.Item)); left > 0 {
			return Outcome{}, ErrOutputFull
		}
	}

	srcBefore := make([][]modelpkg.ItemStack, len(sources))
	srcAfter := make([][]modelpkg.ItemStack, len(sources))
	for i, src := range sources {
		srcBefore[i] = src.Snapshot()
		srcAfter[i] = modelpkg.CloneSlots(srcBefore[i])
	}
	for _, item := range sortedItems(used) {
		owed := used[item]
		for i := range srcAfter {
			if owed == 0 {
				break
			}
			owed = RemoveItem(srcAfter[i], item, owed)
		}
		if owed > 0 {
			return Outcome{}, ErrInsufficientIngredients
		}
	}

	output.Commit(modelpkg.DiffSlots(outBefore, outAfter))
	for i, src := range sources {
		src.Commit(modelpkg.DiffSlots(srcBefore[i], srcAfter[i]))
	}

	removed := make(map[string]int, len(used))
	for item, n := range used {
		removed[item] = n
	}
	return Outcome{Output: result, Byproducts: byproducts, Removed: removed}, nil
}

// Byproducts returns the empty counterparts produced by consuming used, one per
// consumed unit, merged per counterpart type in sorted ingredient order.
func Byproducts(used Used, items StackInfo) []modelpkg.ItemStack {
	if items == nil {
		return nil
	}
	var out []modelpkg.ItemStack
	index := map[string]int{}
	for _, item := range sortedItems(used) {
		cp := items.EmptyCounterpart(item)
		if modelpkg.IsEmptyItem(cp) || used[item] <= 0 {
			continue
		}
		if i, ok := index[cp]; ok {
			out[i].Count += used[item]
			continue
		}
		index[cp] = len(out)
		out = append(out, modelpkg.ItemStack{Item: cp, Count: used[item]})
	}
	return out
}

// AddItem inserts n of item into slots, topping up same-type stacks first and
// then filling empty slots. It returns the count that did not fit.
func AddItem(slots []modelpkg.ItemStack, item string, n, maxStack int) int {
	if n <= 0 {
		return 0
	}
	if maxStack <= 0 {
		maxStack = 1
	}
	for i := range slots {
		if n == 0 {
			return 0
		}
		s := &slots[i]
		if s.IsEmpty() || s.Item != item || s.Count >= maxStack {
			continue
		}
		take := min(maxStack-s.Count, n)
		s.Count += take
		n -= take
	}
	for i := range slots {
		if n == 0 {
			return 0
		}
		if !slots[i].IsEmpty() {
			continue
		}
		take := min(maxStack, n)
		slots[i] = modelpkg.ItemStack{Item: item, Count: take}
		n -= take
	}
	return n
}

// RemoveItem takes up to n of item from slots in slot order and returns what is still owed.
func RemoveItem(slots []modelpkg.ItemStack, item string, n int) int {
	for i := range slots {
		if n <= 0 {
			return 0
		}
		s := &slots[i]
		if s.IsEmpty() || s.Item != item {
			continue
		}
		take := min(s.Count, n)
		s.Count -= take
		n -= take
		if s.Count == 0 {
			slots[i] = modelpkg.ItemStack{}
		}
	}
	if n < 0 {
		return 0
	}
	return n
}

// HasSpace reports whether one more unit of item fits into slots.
func HasSpace(slots []modelpkg.ItemStack, item string, maxStack int) bool {
	for _, s := range slots {
		if s.IsEmpty() {
			return true
		}
		if s.Item == item && s.Count < maxStack {
			return true
		}
	}
	return false
}

func sortedItems(used Used) []string {
	out := make([]string, 0, len(used))
	for item := range used {
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}
