package craft

import (
	"errors"

	"autocraft.ai/internal/protocol"
)

// Every failure below is an ordinary "no craft this tick" outcome.
var (
	ErrNoSources               = errors.New("craft: no source containers")
	ErrNoOutput                = errors.New("craft: no output container")
	ErrNoTarget                = errors.New("craft: no target item")
	ErrNoRecipeMatch           = errors.New("craft: no satisfiable recipe")
	ErrOutputFull              = errors.New("craft: output container full")
	ErrInsufficientIngredients = errors.New("craft: insufficient ingredients")
)

// ErrNoStackInfo is a caller bug, not an outcome; it maps to E_INTERNAL.
var ErrNoStackInfo = errors.New("craft: nil stack info")

// ReasonCode maps a craft error to its protocol code. A nil error maps to "".
func ReasonCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoSources):
		return protocol.ErrNoSources
	case errors.Is(err, ErrNoOutput):
		return protocol.ErrNoOutput
	case errors.Is(err, ErrNoTarget):
		return protocol.ErrNoTarget
	case errors.Is(err, ErrNoRecipeMatch):
		return protocol.ErrNoRecipe
	case errors.Is(err, ErrOutputFull):
		return protocol.ErrOutputFull
	case errors.Is(err, ErrInsufficientIngredients):
		return protocol.ErrNoResource
	default:
		return protocol.ErrInternal
	}
}
