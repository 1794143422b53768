package power

import "testing"

type fakeEnv struct {
	blocks   map[Pos]string
	switches map[Pos]int
}

func (e fakeEnv) BlockName(p Pos) string {
	if b, ok := e.blocks[p]; ok {
		return b
	}
	return "AIR"
}

func (e fakeEnv) SwitchLevel(p Pos) int { return e.switches[p] }

func line() fakeEnv {
	return fakeEnv{
		blocks: map[Pos]string{
			{X: 0}: "SWITCH",
			{X: 1}: "WIRE",
			{X: 2}: "WIRE",
			{X: 4}: "WIRE",
		},
		switches: map[Pos]int{},
	}
}

func TestLevel_WireCarriesSwitchLevel(t *testing.T) {
	env := line()
	if got := Level(env, Pos{X: 2}, 64); got != 0 {
		t.Fatalf("unpowered wire level=%d", got)
	}
	env.switches[Pos{X: 0}] = 20
	if got := Level(env, Pos{X: 2}, 64); got != 15 {
		t.Fatalf("wire level=%d, want clamped 15", got)
	}
	if got := Level(env, Pos{X: 4}, 64); got != 0 {
		t.Fatalf("disconnected wire level=%d", got)
	}
}

func TestNetwork_StopsAtDisconnectedWire(t *testing.T) {
	got := Network(line(), []Pos{{X: 0}}, 64)
	if len(got) != 3 || got[0] != (Pos{X: 0}) || got[2] != (Pos{X: 2}) {
		t.Fatalf("Network=%v", got)
	}
}

func TestRisingEdges(t *testing.T) {
	before := map[Pos]int{{X: 1}: 0, {X: 2}: 3}
	after := map[Pos]int{{X: 1}: 5, {X: 2}: 7, {X: 3}: 1, {X: 4}: 0}
	got := RisingEdges(before, after)
	if len(got) != 2 || got[0] != (Pos{X: 1}) || got[1] != (Pos{X: 3}) {
		t.Fatalf("RisingEdges=%v", got)
	}
}
