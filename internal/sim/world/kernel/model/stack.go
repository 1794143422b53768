package model

// ItemAir is the empty-slot marker used by the block and item catalogs.
const ItemAir = "AIR"

// ItemStack is a quantity of one item type held in a single slot.
type ItemStack struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

func IsEmptyItem(item string) bool { return item == "" || item == ItemAir }

func (s ItemStack) IsEmpty() bool { return IsEmptyItem(s.Item) || s.Count <= 0 }

// SlotChange replaces one slot of a container. An empty Stack clears the slot.
type SlotChange struct {
	Slot  int       `json:"slot"`
	Stack ItemStack `json:"stack"`
}

// CloneSlots returns a deep copy of slots with empty slots normalized to the zero stack.
func CloneSlots(slots []ItemStack) []ItemStack {
	out := make([]ItemStack, len(slots))
	for i, s := range slots {
		if s.IsEmpty() {
			continue
		}
		out[i] = s
	}
	return out
}

// DiffSlots lists the slots of next that differ from prev. Both must have the same length.
func DiffSlots(prev, next []ItemStack) []SlotChange {
	var out []SlotChange
	for i := range next {
		var before ItemStack
		if i < len(prev) && !prev[i].IsEmpty() {
			before = prev[i]
		}
		after := next[i]
		if after.IsEmpty() {
			after = ItemStack{}
		}
		if before != after {
			out = append(out, SlotChange{Slot: i, Stack: after})
		}
	}
	return out
}
