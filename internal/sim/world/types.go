package world

import (
	"autocraft.ai/internal/protocol"
)

type ActMsg = protocol.ActMsg

// Host block names.
const (
	BlockAir           = "AIR"
	BlockCraftingTable = "CRAFTING_TABLE"
	BlockHopper        = "HOPPER"
	BlockChest         = "CHEST"
	BlockSwitch        = "SWITCH"
	BlockWire          = "WIRE"
)

// Frame is an item frame occupying an AIR position and hung on the block at Attached.
type Frame struct {
	Pos      Vec3i
	Attached Vec3i
	Item     string
}

func isContainerBlock(b string) bool { return b == BlockHopper || b == BlockChest }

func isHostBlock(b string) bool {
	switch b {
	case BlockCraftingTable, BlockHopper, BlockChest, BlockSwitch, BlockWire:
		return true
	}
	return false
}
