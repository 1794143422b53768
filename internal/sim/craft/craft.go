// Package craft matches recipes against pooled container contents and moves
// the exact ingredients from source containers into an output container.
// It keeps no state between calls.
package craft

import modelpkg "autocraft.ai/internal/sim/world/kernel/model"

// Station is one resolved crafting attempt: the target shown on the station,
// the output container, and the source containers in removal order.
type Station struct {
	Target  string
	Output  Container
	Sources []Container
}

// Craft runs pool, match and allocation for one trigger of s. A nil items
// fails with ErrNoStackInfo.
func Craft(s Station, reg Registry, items StackInfo) (Outcome, error) {
	if items == nil {
		return Outcome{}, ErrNoStackInfo
	}
	if s.Output == nil {
		return Outcome{}, ErrNoOutput
	}
	if modelpkg.IsEmptyItem(s.Target) {
		return Outcome{}, ErrNoTarget
	}
	// At least one unit of the target must fit before the sources are read.
	if !HasSpace(s.Output.Snapshot(), s.Target, items.MaxStack(s.Target)) {
		return Outcome{}, ErrOutputFull
	}
	if len(s.Sources) == 0 {
		return Outcome{}, ErrNoSources
	}

	snaps := make([][]modelpkg.ItemStack, 0, len(s.Sources))
	for _, src := range s.Sources {
		snaps = append(snaps, src.Snapshot())
	}
	pool := BuildPool(snaps...)
	if len(pool) == 0 {
		return Outcome{}, ErrNoRecipeMatch
	}

	res, err := Match(s.Target, pool, reg)
	if err != nil {
		return Outcome{}, err
	}
	out, err := Attempt(s.Output, res.Output, res.Used, s.Sources, items)
	out.RecipeID = res.RecipeID
	return out, err
}
