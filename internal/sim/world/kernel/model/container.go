package model

import (
	"sort"

	"autocraft.ai/internal/sim/world/logic/ids"
)

// Container is the authoritative slot inventory for blocks like HOPPER/CHEST.
// It is included in snapshots.
type Container struct {
	Type  string
	Pos   Vec3i
	Slots []ItemStack
}

func NewContainer(typ string, pos Vec3i, slots int) *Container {
	if slots < 0 {
		slots = 0
	}
	return &Container{Type: typ, Pos: pos, Slots: make([]ItemStack, slots)}
}

func (c *Container) ID() string { return ContainerID(c.Type, c.Pos) }

func ContainerID(typ string, pos Vec3i) string {
	return ids.BlockID(typ, pos.X, pos.Y, pos.Z)
}

func ParseContainerID(id string) (typ string, pos Vec3i, ok bool) {
	typ, x, y, z, ok := ids.ParseBlockID(id)
	if !ok {
		return "", Vec3i{}, false
	}
	return typ, Vec3i{X: x, Y: y, Z: z}, true
}

// Snapshot returns a frozen copy of the current slots.
func (c *Container) Snapshot() []ItemStack { return CloneSlots(c.Slots) }

// Apply replaces the listed slots. Out-of-range slots are ignored.
func (c *Container) Apply(changes []SlotChange) {
	for _, ch := range changes {
		if ch.Slot < 0 || ch.Slot >= len(c.Slots) {
			continue
		}
		if ch.Stack.IsEmpty() {
			c.Slots[ch.Slot] = ItemStack{}
			continue
		}
		c.Slots[ch.Slot] = ch.Stack
	}
}

// Count returns the total number of item held across all slots.
func (c *Container) Count(item string) int {
	n := 0
	for _, s := range c.Slots {
		if !s.IsEmpty() && s.Item == item {
			n += s.Count
		}
	}
	return n
}

// Totals returns item -> count over all non-empty slots.
func (c *Container) Totals() map[string]int {
	out := map[string]int{}
	for _, s := range c.Slots {
		if s.IsEmpty() {
			continue
		}
		out[s.Item] += s.Count
	}
	return out
}

// InventoryList returns the totals as stacks sorted by item id.
func (c *Container) InventoryList() []ItemStack {
	totals := c.Totals()
	out := make([]ItemStack, 0, len(totals))
	for item, n := range totals {
		out = append(out, ItemStack{Item: item, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item < out[j].Item })
	return out
}
