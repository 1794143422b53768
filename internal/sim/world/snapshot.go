package world

import (
	"fmt"
	"sort"

	"autocraft.ai/internal/persistence/snapshot"
	modelpkg "autocraft.ai/internal/sim/world/kernel/model"
)

func sortVecs(ps []Vec3i) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].X != ps[j].X {
			return ps[i].X < ps[j].X
		}
		if ps[i].Y != ps[j].Y {
			return ps[i].Y < ps[j].Y
		}
		return ps[i].Z < ps[j].Z
	})
}

func sortedKeys[V any](m map[Vec3i]V) []Vec3i {
	out := make([]Vec3i, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sortVecs(out)
	return out
}

// ExportSnapshot captures the world at nowTick. Every section is sorted by position.
func (w *World) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: 1,
			WorldID: w.cfg.ID,
			Tick:    nowTick,
		},
		TickRate:           w.cfg.TickRateHz,
		SnapshotEveryTicks: w.cfg.SnapshotEveryTicks,
		HopperSlots:        w.cfg.HopperSlots,
		ChestSlots:         w.cfg.ChestSlots,
		ItemsDigest:        w.catalogs.Items.Digest,
		RecipesDigest:      w.catalogs.Recipes.Digest,
		Counters: snapshot.CountersV1{
			Attempts:  w.attempts.Load(),
			Committed: w.committed.Load(),
		},
	}

	for _, p := range sortedKeys(w.blocks) {
		b := snapshot.BlockV1{Pos: p.ToArray(), Block: w.blocks[p]}
		if f, ok := w.facing[p]; ok {
			b.Facing = f.ToArray()
		}
		snap.Blocks = append(snap.Blocks, b)
	}
	for _, p := range sortedKeys(w.containers) {
		c := w.containers[p]
		cv := snapshot.ContainerV1{Type: c.Type, Pos: p.ToArray(), Slots: make([]snapshot.ItemStack, len(c.Slots))}
		for i, s := range c.Slots {
			if s.IsEmpty() {
				continue
			}
			cv.Slots[i] = snapshot.ItemStack{Item: s.Item, Count: s.Count}
		}
		snap.Containers = append(snap.Containers, cv)
	}
	for _, p := range sortedKeys(w.frames) {
		f := w.frames[p]
		snap.Frames = append(snap.Frames, snapshot.FrameV1{Pos: p.ToArray(), Attached: f.Attached.ToArray(), Item: f.Item})
	}
	for _, p := range sortedKeys(w.switches) {
		snap.Switches = append(snap.Switches, snapshot.SwitchV1{Pos: p.ToArray(), Level: w.switches[p]})
	}
	return snap
}

// ImportSnapshot replaces the world state with snap. Power levels are recomputed
// without triggering crafts. Must be called before Run.
func (w *World) ImportSnapshot(snap snapshot.SnapshotV1) error {
	if snap.Header.Version != 1 {
		return fmt.Errorf("unsupported snapshot version: %d", snap.Header.Version)
	}
	if snap.Header.WorldID != "" && snap.Header.WorldID != w.cfg.ID {
		return fmt.Errorf("snapshot world id mismatch: world=%s snap=%s", w.cfg.ID, snap.Header.WorldID)
	}

	blocks := map[Vec3i]string{}
	facing := map[Vec3i]Vec3i{}
	for _, b := range snap.Blocks {
		p := modelpkg.FromArray(b.Pos)
		if b.Block == "" || b.Block == BlockAir {
			continue
		}
		blocks[p] = b.Block
		if b.Block == BlockHopper {
			f := modelpkg.FromArray(b.Facing)
			if !modelpkg.IsFace(f) {
				return fmt.Errorf("hopper at %v: invalid facing %v", b.Pos, b.Facing)
			}
			facing[p] = f
		}
	}

	containers := map[Vec3i]*modelpkg.Container{}
	for _, cv := range snap.Containers {
		p := modelpkg.FromArray(cv.Pos)
		if blocks[p] != cv.Type || !isContainerBlock(cv.Type) {
			return fmt.Errorf("container %s at %v has no matching block", cv.Type, cv.Pos)
		}
		c := modelpkg.NewContainer(cv.Type, p, len(cv.Slots))
		for i, s := range cv.Slots {
			if modelpkg.IsEmptyItem(s.Item) || s.Count <= 0 {
				continue
			}
			c.Slots[i] = ItemStack{Item: s.Item, Count: s.Count}
		}
		containers[p] = c
	}
	for p, b := range blocks {
		if _, ok := containers[p]; ok || !isContainerBlock(b) {
			continue
		}
		n := w.cfg.ChestSlots
		if b == BlockHopper {
			n = w.cfg.HopperSlots
		}
		containers[p] = modelpkg.NewContainer(b, p, n)
	}

	frames := map[Vec3i]*Frame{}
	for _, fv := range snap.Frames {
		p := modelpkg.FromArray(fv.Pos)
		frames[p] = &Frame{Pos: p, Attached: modelpkg.FromArray(fv.Attached), Item: fv.Item}
	}
	switches := map[Vec3i]int{}
	for _, sv := range snap.Switches {
		p := modelpkg.FromArray(sv.Pos)
		if blocks[p] != BlockSwitch {
			continue
		}
		switches[p] = sv.Level
	}

	w.blocks = blocks
	w.facing = facing
	w.containers = containers
	w.frames = frames
	w.switches = switches
	w.power = map[Vec3i]int{}
	w.direct = map[Vec3i]int{}
	w.attempts.Store(snap.Counters.Attempts)
	w.committed.Store(snap.Counters.Committed)
	w.tick.Store(snap.Header.Tick + 1)

	if seeds := sortedKeys(switches); len(seeds) > 0 {
		_ = w.repower(seeds...)
	}
	return nil
}

// ExportFinalSnapshot captures the state after the last completed tick.
// Call it only once Run has returned.
func (w *World) ExportFinalSnapshot() snapshot.SnapshotV1 {
	t := w.tick.Load()
	if t > 0 {
		t--
	}
	return w.ExportSnapshot(t)
}
