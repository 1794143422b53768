package world

import (
	"encoding/json"
	"fmt"

	"autocraft.ai/internal/protocol"
	"autocraft.ai/internal/sim/craft"
	modelpkg "autocraft.ai/internal/sim/world/kernel/model"
)

// actHandler applies one ACT and returns the ack code ("" on success) and message.
type actHandler func(w *World, env ActionEnvelope, nowTick uint64) (code string, message string)

var actDispatch = map[string]actHandler{
	protocol.ActPlaceBlock: handlePlaceBlock,
	protocol.ActBreakBlock: handleBreakBlock,
	protocol.ActPutItems:   handlePutItems,
	protocol.ActTakeItems:  handleTakeItems,
	protocol.ActSetFrame:   handleSetFrame,
	protocol.ActSetPower:   handleSetPower,
	protocol.ActInspect:    handleInspect,
}

func (w *World) applyAct(nowTick uint64, env ActionEnvelope) {
	code, msg := protocol.ErrBadRequest, "unknown act kind"
	if h := actDispatch[env.Act.Kind]; h != nil {
		code, msg = h(w, env, nowTick)
	}
	w.sendJSON(env.SessionID, ackFor(nowTick, env.Act.ActID, code, msg))
}

func ackFor(tick uint64, ref string, code string, message string) protocol.AckMsg {
	if !protocol.IsKnownCode(code) {
		code = protocol.ErrInternal
		if message == "" {
			message = "unknown error code"
		}
	}
	return protocol.AckMsg{
		Type:            protocol.TypeAck,
		ProtocolVersion: protocol.Version,
		AckFor:          ref,
		Accepted:        code == "",
		Code:            code,
		Message:         message,
		ServerTick:      tick,
	}
}

func (w *World) sendJSON(sessionID string, v any) {
	if sessionID == "" {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		w.logger.Printf("encode message for %s: %v", sessionID, err)
		return
	}
	w.send(sessionID, b)
}

func handlePlaceBlock(w *World, env ActionEnvelope, nowTick uint64) (string, string) {
	act := env.Act
	pos := modelpkg.FromArray(act.Pos)
	if act.Block == "" || act.Block == BlockAir {
		return protocol.ErrBadRequest, "missing block"
	}
	if !isHostBlock(act.Block) && !w.catalogs.Items.Has(act.Block) {
		return protocol.ErrBadRequest, fmt.Sprintf("unknown block %q", act.Block)
	}
	if w.blockAt(pos) != BlockAir || w.frameAt(pos) != nil {
		return protocol.ErrConflict, "position occupied"
	}
	if act.Block == BlockHopper {
		f := modelpkg.FromArray(act.Facing)
		if !modelpkg.IsFace(f) {
			return protocol.ErrBadRequest, "hopper needs a unit facing"
		}
		w.facing[pos] = f
	}

	w.setBlock(pos, act.Block)
	switch act.Block {
	case BlockHopper:
		w.containers[pos] = modelpkg.NewContainer(BlockHopper, pos, w.cfg.HopperSlots)
	case BlockChest:
		w.containers[pos] = modelpkg.NewContainer(BlockChest, pos, w.cfg.ChestSlots)
	case BlockSwitch:
		w.switches[pos] = 0
	}
	if act.Block == BlockSwitch || act.Block == BlockWire {
		w.triggerEdges(nowTick, w.repower(pos))
	}
	return "", ""
}

func handleBreakBlock(w *World, env ActionEnvelope, nowTick uint64) (string, string) {
	pos := modelpkg.FromArray(env.Act.Pos)
	b := w.blockAt(pos)
	if b == BlockAir {
		return protocol.ErrInvalidTarget, "no block at position"
	}

	dropped := 0
	if c := w.containers[pos]; c != nil {
		for _, s := range c.InventoryList() {
			dropped += s.Count
		}
		delete(w.containers, pos)
	}
	for fp, f := range w.frames {
		if f.Attached == pos {
			delete(w.frames, fp)
		}
	}
	delete(w.facing, pos)
	delete(w.switches, pos)
	w.setBlock(pos, BlockAir)

	if b == BlockSwitch || b == BlockWire {
		w.triggerEdges(nowTick, w.repower(pos))
	}
	if dropped > 0 {
		return "", fmt.Sprintf("dropped %d items", dropped)
	}
	return "", ""
}

func (w *World) itemCountArgs(act ActMsg) (*modelpkg.Container, string, string) {
	c := w.containers[modelpkg.FromArray(act.Pos)]
	if c == nil {
		return nil, protocol.ErrInvalidTarget, "no container at position"
	}
	if modelpkg.IsEmptyItem(act.Item) || !w.catalogs.Items.Has(act.Item) {
		return nil, protocol.ErrBadRequest, fmt.Sprintf("unknown item %q", act.Item)
	}
	if act.Count <= 0 {
		return nil, protocol.ErrBadRequest, "count must be > 0"
	}
	return c, "", ""
}

// handlePutItems inserts the whole count or nothing.
func handlePutItems(w *World, env ActionEnvelope, _ uint64) (string, string) {
	c, code, msg := w.itemCountArgs(env.Act)
	if c == nil {
		return code, msg
	}
	before := c.Snapshot()
	after := modelpkg.CloneSlots(before)
	if left := craft.AddItem(after, env.Act.Item, env.Act.Count, w.catalogs.Items.MaxStack(env.Act.Item)); left > 0 {
		return protocol.ErrConflict, fmt.Sprintf("container full (%d would not fit)", left)
	}
	c.Apply(modelpkg.DiffSlots(before, after))
	return "", ""
}

// handleTakeItems removes the whole count or nothing.
func handleTakeItems(w *World, env ActionEnvelope, _ uint64) (string, string) {
	c, code, msg := w.itemCountArgs(env.Act)
	if c == nil {
		return code, msg
	}
	before := c.Snapshot()
	after := modelpkg.CloneSlots(before)
	if owed := craft.RemoveItem(after, env.Act.Item, env.Act.Count); owed > 0 {
		return protocol.ErrConflict, fmt.Sprintf("container holds %d fewer than requested", owed)
	}
	c.Apply(modelpkg.DiffSlots(before, after))
	return "", ""
}

// handleSetFrame hangs, changes or removes (empty item) the frame at pos.
func handleSetFrame(w *World, env ActionEnvelope, _ uint64) (string, string) {
	act := env.Act
	pos := modelpkg.FromArray(act.Pos)
	if modelpkg.IsEmptyItem(act.Item) {
		if w.frameAt(pos) == nil {
			return protocol.ErrInvalidTarget, "no frame at position"
		}
		delete(w.frames, pos)
		return "", ""
	}
	if !w.catalogs.Items.Has(act.Item) {
		return protocol.ErrBadRequest, fmt.Sprintf("unknown item %q", act.Item)
	}
	if w.blockAt(pos) != BlockAir {
		return protocol.ErrConflict, "frame position must be air"
	}
	attached := modelpkg.FromArray(act.Attached)
	if !modelpkg.IsFace(Vec3i{X: attached.X - pos.X, Y: attached.Y - pos.Y, Z: attached.Z - pos.Z}) {
		return protocol.ErrBadRequest, "frame must be attached to a neighbouring block"
	}
	if w.blockAt(attached) == BlockAir {
		return protocol.ErrInvalidTarget, "nothing to hang the frame on"
	}
	w.frames[pos] = &Frame{Pos: pos, Attached: attached, Item: act.Item}
	return "", ""
}

func handleSetPower(w *World, env ActionEnvelope, nowTick uint64) (string, string) {
	pos := modelpkg.FromArray(env.Act.Pos)
	lvl := env.Act.Power
	if lvl < 0 || lvl > 15 {
		return protocol.ErrBadRequest, "power must be in 0..15"
	}
	switch w.blockAt(pos) {
	case BlockWire:
		return protocol.ErrInvalidTarget, "wire level follows its switches"
	case BlockSwitch:
		w.switches[pos] = lvl
		w.triggerEdges(nowTick, w.repower(pos))
	default:
		prev := w.direct[pos]
		if lvl > 0 {
			w.direct[pos] = lvl
		} else {
			delete(w.direct, pos)
		}
		if prev == 0 && lvl > 0 {
			w.triggerEdges(nowTick, []Vec3i{pos})
		}
	}
	return "", ""
}

func handleInspect(w *World, env ActionEnvelope, _ uint64) (string, string) {
	pos := modelpkg.FromArray(env.Act.Pos)
	res := protocol.InspectResultMsg{
		Type:            protocol.TypeInspectResult,
		ProtocolVersion: protocol.Version,
		AckFor:          env.Act.ActID,
		Pos:             env.Act.Pos,
		Block:           w.blockAt(pos),
		Power:           w.powerAt(pos),
	}
	if f, ok := w.facing[pos]; ok {
		res.Facing = f.ToArray()
	}
	if f := w.frameAt(pos); f != nil {
		res.Frame = f.Item
	}
	if c := w.containers[pos]; c != nil {
		res.Slots = toProtoStacks(c.Snapshot())
	}
	w.sendJSON(env.SessionID, res)
	return "", ""
}

func toProtoStacks(in []ItemStack) []protocol.ItemStack {
	out := make([]protocol.ItemStack, len(in))
	for i, s := range in {
		if s.IsEmpty() {
			continue
		}
		out[i] = protocol.ItemStack{Item: s.Item, Count: s.Count}
	}
	return out
}
