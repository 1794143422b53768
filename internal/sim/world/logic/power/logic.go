package power

import "sort"

type Pos struct {
	X int
	Y int
	Z int
}

// Env exposes the blocks the signal network is built from.
// SWITCH blocks are sources with their own level; WIRE blocks carry the
// highest level of any SWITCH they connect to.
type Env interface {
	BlockName(Pos) string
	SwitchLevel(Pos) int
}

var faceDirs = []Pos{
	{X: 0, Y: 0, Z: -1},
	{X: 1, Y: 0, Z: 0},
	{X: 0, Y: 0, Z: 1},
	{X: -1, Y: 0, Z: 0},
	{X: 0, Y: 1, Z: 0},
	{X: 0, Y: -1, Z: 0},
}

func IsConductor(name string) bool { return name == "SWITCH" || name == "WIRE" }

// Network returns every SWITCH/WIRE position connected to the seeds, sorted by position.
// Seeds that are not conductors still contribute their conducting neighbours.
// The search stops growing after maxNodes positions.
func Network(env Env, seeds []Pos, maxNodes int) []Pos {
	if env == nil || len(seeds) == 0 || maxNodes <= 0 {
		return nil
	}
	visited := map[Pos]bool{}
	q := make([]Pos, 0, len(seeds))
	push := func(p Pos) {
		if visited[p] || len(visited) >= maxNodes {
			return
		}
		if !IsConductor(env.BlockName(p)) {
			return
		}
		visited[p] = true
		q = append(q, p)
	}
	for _, s := range seeds {
		push(s)
		for _, d := range faceDirs {
			push(Pos{X: s.X + d.X, Y: s.Y + d.Y, Z: s.Z + d.Z})
		}
	}
	for len(q) > 0 {
		p := q[0]
		q = q[1:]
		// Switches are sources, they do not relay power between wires.
		if env.BlockName(p) != "WIRE" {
			continue
		}
		for _, d := range faceDirs {
			push(Pos{X: p.X + d.X, Y: p.Y + d.Y, Z: p.Z + d.Z})
		}
	}
	out := make([]Pos, 0, len(visited))
	for p := range visited {
		out = append(out, p)
	}
	SortPositions(out)
	return out
}

// Levels computes the level of each conductor in nodes.
func Levels(env Env, nodes []Pos, maxNodes int) map[Pos]int {
	out := make(map[Pos]int, len(nodes))
	for _, p := range nodes {
		out[p] = Level(env, p, maxNodes)
	}
	return out
}

// Level returns the signal level at pos: a switch's own level, or for a wire
// the maximum level of the switches reachable through connected wires.
func Level(env Env, pos Pos, maxNodes int) int {
	switch env.BlockName(pos) {
	case "SWITCH":
		return clamp(env.SwitchLevel(pos))
	case "WIRE":
	default:
		return 0
	}

	best := 0
	visited := map[Pos]bool{pos: true}
	q := []Pos{pos}
	for len(q) > 0 && len(visited) <= maxNodes {
		p := q[0]
		q = q[1:]
		for _, d := range faceDirs {
			np := Pos{X: p.X + d.X, Y: p.Y + d.Y, Z: p.Z + d.Z}
			if visited[np] {
				continue
			}
			switch env.BlockName(np) {
			case "SWITCH":
				visited[np] = true
				if lvl := clamp(env.SwitchLevel(np)); lvl > best {
					best = lvl
				}
			case "WIRE":
				visited[np] = true
				q = append(q, np)
			}
		}
	}
	return best
}

// RisingEdges returns the positions whose level went from 0 to a positive value, sorted.
func RisingEdges(before, after map[Pos]int) []Pos {
	var out []Pos
	for p, lvl := range after {
		if lvl > 0 && before[p] == 0 {
			out = append(out, p)
		}
	}
	SortPositions(out)
	return out
}

func SortPositions(ps []Pos) {
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

func clamp(lvl int) int {
	if lvl < 0 {
		return 0
	}
	if lvl > 15 {
		return 15
	}
	return lvl
}
