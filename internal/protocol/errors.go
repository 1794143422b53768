package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Action layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrInvalidTarget = "E_INVALID_TARGET"
	ErrConflict      = "E_CONFLICT"
	ErrInternal      = "E_INTERNAL"

	// Craft outcomes.
	ErrNoSources  = "E_NO_SOURCES"
	ErrNoOutput   = "E_NO_OUTPUT"
	ErrNoTarget   = "E_NO_TARGET"
	ErrNoRecipe   = "E_NO_RECIPE"
	ErrOutputFull = "E_OUTPUT_FULL"
	ErrNoResource = "E_NO_RESOURCE"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadRequest:      {},
	ErrInvalidTarget:   {},
	ErrConflict:        {},
	ErrInternal:        {},
	ErrNoSources:       {},
	ErrNoOutput:        {},
	ErrNoTarget:        {},
	ErrNoRecipe:        {},
	ErrOutputFull:      {},
	ErrNoResource:      {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
