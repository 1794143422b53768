package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello         = "HELLO"
	TypeWelcome       = "WELCOME"
	TypeAct           = "ACT"
	TypeAck           = "ACK"
	TypeCraft         = "CRAFT"
	TypeInspectResult = "INSPECT_RESULT"
)

// Act kinds.
const (
	ActPlaceBlock = "PLACE_BLOCK"
	ActBreakBlock = "BREAK_BLOCK"
	ActPutItems   = "PUT_ITEMS"
	ActTakeItems  = "TAKE_ITEMS"
	ActSetFrame   = "SET_FRAME"
	ActSetPower   = "SET_POWER"
	ActInspect    = "INSPECT"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
