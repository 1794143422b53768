package craft

import (
	"autocraft.ai/internal/sim/catalogs"
	modelpkg "autocraft.ai/internal/sim/world/kernel/model"
)

// Registry answers "all recipes producing item", in a stable declared order.
type Registry interface {
	RecipesFor(item string) []catalogs.RecipeDef
}

// Used is the exact per-type consumption of one matched recipe.
type Used map[string]int

type Result struct {
	RecipeID string
	Output   modelpkg.ItemStack
	Used     Used
}

// Match returns the first recipe for target, in registry order, that the pool
// can satisfy. It does not search for a cheaper or less wasteful candidate.
func Match(target string, pool Pool, reg Registry) (Result, error) {
	if modelpkg.IsEmptyItem(target) {
		return Result{}, ErrNoTarget
	}
	if reg == nil {
		return Result{}, ErrNoRecipeMatch
	}
	for _, r := range reg.RecipesFor(target) {
		var (
			used Used
			ok   bool
		)
		switch r.Kind {
		case catalogs.KindShaped:
			used, ok = matchShaped(r, pool)
		case catalogs.KindShapeless:
			used, ok = matchShapeless(r, pool)
		default:
			continue
		}
		// A recipe that consumes nothing is never craftable here.
		if !ok || len(used) == 0 {
			continue
		}
		return Result{
			RecipeID: r.RecipeID,
			Output:   modelpkg.ItemStack{Item: r.Output.Item, Count: r.Output.Amount()},
			Used:     used,
		}, nil
	}
	return Result{}, ErrNoRecipeMatch
}

// matchShaped walks the shape row by row and fails as soon as one type is over-committed.
// Characters missing from the key and AIR cells are unused cells.
func matchShaped(r catalogs.RecipeDef, pool Pool) (Used, bool) {
	used := Used{}
	for _, row := range r.Shape {
		for _, c := range row {
			ing, ok := r.Key[string(c)]
			if !ok || modelpkg.IsEmptyItem(ing.Item) {
				continue
			}
			n := used[ing.Item] + ing.Amount()
			if n > pool.Get(ing.Item) {
				return nil, false
			}
			used[ing.Item] = n
		}
	}
	return used, true
}

// matchShapeless assigns each choice slot the first acceptable type that still
// has a unit left. The assignment is greedy and never revisits earlier slots,
// so a craftable pool can be reported as unmatched when choice sets overlap.
func matchShapeless(r catalogs.RecipeDef, pool Pool) (Used, bool) {
	used := Used{}
	for _, choice := range r.Choices {
		picked := false
		for _, item := range choice {
			if modelpkg.IsEmptyItem(item) {
				continue
			}
			if used[item]+1 > pool.Get(item) {
				continue
			}
			used[item]++
			picked = true
			break
		}
		if !picked {
			return nil, false
		}
	}
	return used, true
}
