package protocol

type ItemStack struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
	MaxQueue        int    `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	WorldID         string         `json:"world_id"`
	Tick            uint64         `json:"tick"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type CatalogDigests struct {
	ItemsDigest   string `json:"items_digest"`
	ItemCount     int    `json:"item_count"`
	RecipesDigest string `json:"recipes_digest"`
	RecipeCount   int    `json:"recipe_count"`
	TuningDigest  string `json:"tuning_digest,omitempty"`
}

// ACT (client -> server): one world edit or query.
type ActMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ActID           string `json:"act_id"`
	Kind            string `json:"kind"`

	Pos      [3]int `json:"pos"`
	Block    string `json:"block,omitempty"`
	Facing   [3]int `json:"facing,omitempty"`
	Attached [3]int `json:"attached,omitempty"`
	Item     string `json:"item,omitempty"`
	Count    int    `json:"count,omitempty"`
	Power    int    `json:"power,omitempty"`
}

// ACK (server -> client)
type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AckFor          string `json:"ack_for"`
	Accepted        bool   `json:"accepted"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	ServerTick      uint64 `json:"server_tick,omitempty"`
}

// CRAFT (server -> client): outcome of one station trigger.
type CraftMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	Tick            uint64         `json:"tick"`
	AttemptID       string         `json:"attempt_id"`
	StationID       string         `json:"station_id"`
	Target          string         `json:"target,omitempty"`
	Committed       bool           `json:"committed"`
	Code            string         `json:"code,omitempty"`
	RecipeID        string         `json:"recipe_id,omitempty"`
	Output          *ItemStack     `json:"output,omitempty"`
	Byproducts      []ItemStack    `json:"byproducts,omitempty"`
	Removed         map[string]int `json:"removed,omitempty"`
}

// INSPECT_RESULT (server -> client)
type InspectResultMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	AckFor          string      `json:"ack_for"`
	Pos             [3]int      `json:"pos"`
	Block           string      `json:"block"`
	Facing          [3]int      `json:"facing,omitempty"`
	Power           int         `json:"power,omitempty"`
	Frame           string      `json:"frame,omitempty"`
	Slots           []ItemStack `json:"slots,omitempty"`
}
