package world

import (
	"autocraft.ai/internal/sim/world/logic/power"
)

// blockAt returns the block at pos; unset positions are AIR.
func (w *World) blockAt(pos Vec3i) string {
	if b, ok := w.blocks[pos]; ok {
		return b
	}
	return BlockAir
}

func (w *World) setBlock(pos Vec3i, b string) {
	if b == "" || b == BlockAir {
		delete(w.blocks, pos)
		return
	}
	w.blocks[pos] = b
}

// frameAt returns the frame occupying pos, if any.
func (w *World) frameAt(pos Vec3i) *Frame { return w.frames[pos] }

// powerEnv adapts the world to the signal network.
type powerEnv struct{ w *World }

func (e powerEnv) BlockName(p power.Pos) string { return e.w.blockAt(fromPowerPos(p)) }
func (e powerEnv) SwitchLevel(p power.Pos) int  { return e.w.switches[fromPowerPos(p)] }

func toPowerPos(v Vec3i) power.Pos   { return power.Pos{X: v.X, Y: v.Y, Z: v.Z} }
func fromPowerPos(p power.Pos) Vec3i { return Vec3i{X: p.X, Y: p.Y, Z: p.Z} }

// powerAt returns the level at pos: the cached conductor level or a direct level.
func (w *World) powerAt(pos Vec3i) int {
	if lvl, ok := w.power[pos]; ok {
		return lvl
	}
	return w.direct[pos]
}

// repower recomputes the conductor network around seeds, updates the cache and
// returns the positions whose level rose from 0, sorted.
func (w *World) repower(seeds ...Vec3i) []Vec3i {
	env := powerEnv{w: w}
	ps := make([]power.Pos, 0, len(seeds))
	for _, s := range seeds {
		ps = append(ps, toPowerPos(s))
	}
	nodes := power.Network(env, ps, w.cfg.MaxPowerNodes)

	before := make(map[power.Pos]int, len(nodes))
	for _, n := range nodes {
		before[n] = w.power[fromPowerPos(n)]
	}
	after := power.Levels(env, nodes, w.cfg.MaxPowerNodes)

	// Seeds that stopped being conductors lose their cached level.
	for _, s := range seeds {
		if !power.IsConductor(w.blockAt(s)) {
			delete(w.power, s)
		}
	}
	for p, lvl := range after {
		if lvl > 0 {
			w.power[fromPowerPos(p)] = lvl
		} else {
			delete(w.power, fromPowerPos(p))
		}
	}

	edges := power.RisingEdges(before, after)
	out := make([]Vec3i, 0, len(edges))
	for _, p := range edges {
		out = append(out, fromPowerPos(p))
	}
	return out
}
