package world

import (
	"encoding/json"
	"sort"

	"autocraft.ai/internal/protocol"
	"autocraft.ai/internal/sim/craft"
	"autocraft.ai/internal/sim/world/logic/ids"
)

// AttemptLogger receives every craft attempt, committed or not. Implemented in internal/persistence/*.
type AttemptLogger interface {
	WriteAttempt(entry AttemptEntry) error
}

type AttemptEntry struct {
	AttemptID  string         `json:"attempt_id"`
	WorldID    string         `json:"world_id"`
	Tick       uint64         `json:"tick"`
	StationID  string         `json:"station_id"`
	Pos        [3]int         `json:"pos"`
	Target     string         `json:"target,omitempty"`
	RecipeID   string         `json:"recipe_id,omitempty"`
	Committed  bool           `json:"committed"`
	Code       string         `json:"code,omitempty"`
	Output     *ItemStack     `json:"output,omitempty"`
	Byproducts []ItemStack    `json:"byproducts,omitempty"`
	Removed    map[string]int `json:"removed,omitempty"`

	// Containers the station resolved to; empty when resolution failed early.
	OutputID  string   `json:"output_id,omitempty"`
	SourceIDs []string `json:"source_ids,omitempty"`
}

// Stats counts attempts over the world's lifetime, including restored counters.
type Stats struct {
	Attempts  uint64 `json:"attempts"`
	Committed uint64 `json:"committed"`
}

// Stats is safe to call from any goroutine.
func (w *World) Stats() Stats {
	return Stats{Attempts: w.attempts.Load(), Committed: w.committed.Load()}
}

func (w *World) recordAttempt(nowTick uint64, pos Vec3i, st craft.Station, out craft.Outcome, err error) AttemptEntry {
	e := AttemptEntry{
		AttemptID: w.newID(),
		WorldID:   w.cfg.ID,
		Tick:      nowTick,
		StationID: ids.StationIDAt(pos.X, pos.Y, pos.Z),
		Pos:       pos.ToArray(),
		Target:    st.Target,
		RecipeID:  out.RecipeID,
		Committed: err == nil,
		Code:      craft.ReasonCode(err),
	}
	if wc, ok := st.Output.(*worldContainer); ok {
		e.OutputID = wc.c.ID()
	}
	for _, src := range st.Sources {
		if wc, ok := src.(*worldContainer); ok {
			e.SourceIDs = append(e.SourceIDs, wc.c.ID())
		}
	}
	if err == nil {
		o := out.Output
		e.Output = &o
		e.Byproducts = out.Byproducts
		e.Removed = out.Removed
		w.committed.Add(1)
	}
	w.attempts.Add(1)

	for _, l := range w.attemptLoggers {
		if lerr := l.WriteAttempt(e); lerr != nil {
			w.logger.Printf("attempt log: %v", lerr)
		}
	}
	if e.Committed {
		w.logger.Printf("craft %s tick=%d recipe=%s output=%dx%s", e.StationID, nowTick, e.RecipeID, e.Output.Count, e.Output.Item)
	}

	b, merr := json.Marshal(craftMsgFor(e))
	if merr != nil {
		w.logger.Printf("encode CRAFT: %v", merr)
		return e
	}
	w.broadcast(b)
	return e
}

func craftMsgFor(e AttemptEntry) protocol.CraftMsg {
	m := protocol.CraftMsg{
		Type:            protocol.TypeCraft,
		ProtocolVersion: protocol.Version,
		Tick:            e.Tick,
		AttemptID:       e.AttemptID,
		StationID:       e.StationID,
		Target:          e.Target,
		Committed:       e.Committed,
		Code:            e.Code,
		RecipeID:        e.RecipeID,
		Removed:         e.Removed,
	}
	if e.Output != nil {
		m.Output = &protocol.ItemStack{Item: e.Output.Item, Count: e.Output.Count}
	}
	for _, bp := range e.Byproducts {
		m.Byproducts = append(m.Byproducts, protocol.ItemStack{Item: bp.Item, Count: bp.Count})
	}
	return m
}

// RemovedList returns e.Removed as stacks sorted by item id.
func (e AttemptEntry) RemovedList() []ItemStack {
	out := make([]ItemStack, 0, len(e.Removed))
	for item, n := range e.Removed {
		out = append(out, ItemStack{Item: item, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item < out[j].Item })
	return out
}
