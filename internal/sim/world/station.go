package world

import (
	"autocraft.ai/internal/sim/craft"
	modelpkg "autocraft.ai/internal/sim/world/kernel/model"
)

// worldContainer binds a world container to one craft attempt.
type worldContainer struct {
	c *modelpkg.Container
}

func (wc *worldContainer) Snapshot() []ItemStack { return wc.c.Snapshot() }

func (wc *worldContainer) Commit(changes []modelpkg.SlotChange) {
	wc.c.Apply(changes)
}

// triggerEdges runs one attempt for every crafting table next to each rising position.
func (w *World) triggerEdges(nowTick uint64, rising []Vec3i) {
	for _, p := range rising {
		for _, face := range modelpkg.Faces {
			t := p.Add(face)
			if w.blockAt(t) != BlockCraftingTable {
				continue
			}
			w.runStation(nowTick, t)
		}
	}
}

// resolveStation inspects the six neighbours of the table at t.
//
// The station needs a hopper, an air block and a chest among them. The first
// chest in face order is the output. The target is shown by the first frame in
// an adjacent air block that hangs on the table and holds an item. Sources are
// the hoppers whose facing points at the table, in face order; the list may be
// empty.
func (w *World) resolveStation(t Vec3i) (craft.Station, error) {
	var (
		hasHopper bool
		hasAir    bool
		output    *modelpkg.Container
	)
	for _, face := range modelpkg.Faces {
		n := t.Add(face)
		switch w.blockAt(n) {
		case BlockHopper:
			hasHopper = true
		case BlockAir:
			hasAir = true
		case BlockChest:
			if output == nil {
				output = w.containers[n]
			}
		}
	}
	if !hasHopper {
		return craft.Station{}, craft.ErrNoSources
	}
	if output == nil {
		return craft.Station{}, craft.ErrNoOutput
	}
	if !hasAir {
		return craft.Station{}, craft.ErrNoTarget
	}

	target := ""
	for _, face := range modelpkg.Faces {
		n := t.Add(face)
		if w.blockAt(n) != BlockAir {
			continue
		}
		if f := w.frameAt(n); f != nil && f.Attached == t && !modelpkg.IsEmptyItem(f.Item) {
			target = f.Item
			break
		}
	}
	if target == "" {
		return craft.Station{}, craft.ErrNoTarget
	}

	var sources []craft.Container
	for _, face := range modelpkg.Faces {
		n := t.Add(face)
		if w.blockAt(n) != BlockHopper {
			continue
		}
		if n.Add(w.facing[n]) != t {
			continue
		}
		if c := w.containers[n]; c != nil {
			sources = append(sources, &worldContainer{c: c})
		}
	}
	// Output room and an empty source list are checked by craft.Craft, in that order.
	return craft.Station{
		Target:  target,
		Output:  &worldContainer{c: output},
		Sources: sources,
	}, nil
}

func (w *World) runStation(nowTick uint64, t Vec3i) {
	st, err := w.resolveStation(t)
	var out craft.Outcome
	if err == nil {
		out, err = craft.Craft(st, w.catalogs.Recipes, w.catalogs.Items)
	}
	w.recordAttempt(nowTick, t, st, out, err)
}
