package catalogs

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/agnivade/levenshtein"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const (
	KindShaped    = "SHAPED"
	KindShapeless = "SHAPELESS"

	// FallbackMaxStack applies when neither the item nor the catalog sets a limit.
	FallbackMaxStack = 64
)

type Catalogs struct {
	Items   ItemCatalog
	Recipes RecipeCatalog
}

type ItemCatalog struct {
	Palette []string
	Defs    map[string]ItemDef
	Digest  string

	// DefaultMaxStack is used for items without max_stack.
	DefaultMaxStack int
}

type ItemDef struct {
	ID               string `json:"id"`
	Kind             string `json:"kind,omitempty"`
	MaxStack         int    `json:"max_stack,omitempty"`
	EmptyCounterpart string `json:"empty_counterpart,omitempty"`
}

func (c ItemCatalog) MaxStack(item string) int {
	if d, ok := c.Defs[item]; ok && d.MaxStack > 0 {
		return d.MaxStack
	}
	if c.DefaultMaxStack > 0 {
		return c.DefaultMaxStack
	}
	return FallbackMaxStack
}

// EmptyCounterpart returns the item left behind when item is consumed, e.g. BUCKET for WATER_BUCKET.
func (c ItemCatalog) EmptyCounterpart(item string) string {
	return c.Defs[item].EmptyCounterpart
}

func (c ItemCatalog) Has(item string) bool {
	_, ok := c.Defs[item]
	return ok
}

// RecipeCatalog keeps recipes in declaration order; matching is first-fit over that order.
type RecipeCatalog struct {
	Ordered []RecipeDef
	ByID    map[string]RecipeDef
	Digest  string

	byOutput map[string][]int
}

type RecipeDef struct {
	RecipeID string               `json:"recipe_id"`
	Kind     string               `json:"kind"`
	Shape    []string             `json:"shape,omitempty"`
	Key      map[string]ItemCount `json:"key,omitempty"`
	Choices  [][]string           `json:"choices,omitempty"`
	Output   ItemCount            `json:"output"`
}

type ItemCount struct {
	Item  string `json:"item"`
	Count int    `json:"count,omitempty"`
}

// Amount returns the declared count, treating an unset count as 1.
func (ic ItemCount) Amount() int {
	if ic.Count <= 0 {
		return 1
	}
	return ic.Count
}

// RecipesFor returns the recipes producing item, in declaration order.
func (c RecipeCatalog) RecipesFor(item string) []RecipeDef {
	idx := c.byOutput[item]
	if len(idx) == 0 {
		return nil
	}
	out := make([]RecipeDef, 0, len(idx))
	for _, i := range idx {
		out = append(out, c.Ordered[i])
	}
	return out
}

func NewItemCatalog(defs []ItemDef) (ItemCatalog, error) {
	out := ItemCatalog{Defs: map[string]ItemDef{}}
	for _, d := range defs {
		if d.ID == "" {
			return out, fmt.Errorf("empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return out, fmt.Errorf("duplicate id %q", d.ID)
		}
		out.Defs[d.ID] = d
	}
	for _, d := range defs {
		if d.EmptyCounterpart != "" && !out.Has(d.EmptyCounterpart) {
			return out, fmt.Errorf("item %q: %s", d.ID, unknownItem(d.EmptyCounterpart, out))
		}
	}
	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out.Palette = ids
	return out, nil
}

// NewRecipeCatalog indexes defs by id and output. When items has definitions,
// every referenced item must exist in it.
func NewRecipeCatalog(defs []RecipeDef, items ItemCatalog) (RecipeCatalog, error) {
	out := RecipeCatalog{
		Ordered:  make([]RecipeDef, 0, len(defs)),
		ByID:     map[string]RecipeDef{},
		byOutput: map[string][]int{},
	}
	for _, r := range defs {
		if r.RecipeID == "" {
			return out, fmt.Errorf("empty recipe_id")
		}
		if _, dup := out.ByID[r.RecipeID]; dup {
			return out, fmt.Errorf("duplicate recipe_id %q", r.RecipeID)
		}
		if err := checkRecipe(r, items); err != nil {
			return out, fmt.Errorf("recipe %q: %w", r.RecipeID, err)
		}
		out.ByID[r.RecipeID] = r
		out.byOutput[r.Output.Item] = append(out.byOutput[r.Output.Item], len(out.Ordered))
		out.Ordered = append(out.Ordered, r)
	}
	return out, nil
}

func checkRecipe(r RecipeDef, items ItemCatalog) error {
	known := func(item string) error {
		if item == "AIR" || len(items.Defs) == 0 || items.Has(item) {
			return nil
		}
		return fmt.Errorf("%s", unknownItem(item, items))
	}
	if r.Output.Item == "" || r.Output.Item == "AIR" {
		return fmt.Errorf("missing output item")
	}
	if err := known(r.Output.Item); err != nil {
		return err
	}
	switch r.Kind {
	case KindShaped:
		if len(r.Shape) == 0 {
			return fmt.Errorf("shaped recipe without shape")
		}
		keys := make([]string, 0, len(r.Key))
		for k := range r.Key {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := known(r.Key[k].Item); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
		}
	case KindShapeless:
		if len(r.Choices) == 0 {
			return fmt.Errorf("shapeless recipe without choices")
		}
		for i, choice := range r.Choices {
			if len(choice) == 0 {
				return fmt.Errorf("choice %d is empty", i)
			}
			for _, item := range choice {
				if err := known(item); err != nil {
					return fmt.Errorf("choice %d: %w", i, err)
				}
			}
		}
	default:
		return fmt.Errorf("unsupported kind %q", r.Kind)
	}
	return nil
}

func unknownItem(item string, items ItemCatalog) string {
	if hint := closestItem(item, items.Palette); hint != "" {
		return fmt.Sprintf("unknown item %q (did you mean %q?)", item, hint)
	}
	return fmt.Sprintf("unknown item %q", item)
}

func closestItem(item string, palette []string) string {
	best, bestDist := "", -1
	for _, cand := range palette {
		dist := levenshtein.ComputeDistance(item, cand)
		if dist > hintLimit(len(cand)) {
			continue
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = cand, dist
		}
	}
	return best
}

func hintLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}

// Load reads items.json and recipes.json from configDir.
func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	if err := loadRecipes(filepath.Join(configDir, "recipes.json"), c.Items, &c.Recipes); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadItems(path string, out *ItemCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := validate("items.schema.json", raw); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	cat, err := NewItemCatalog(defs)
	if err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	cat.Digest = sha256Hex(raw)
	*out = cat
	return nil
}

func loadRecipes(path string, items ItemCatalog, out *RecipeCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := validate("recipes.schema.json", raw); err != nil {
		return fmt.Errorf("recipes.json: %w", err)
	}
	var defs []RecipeDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("recipes.json: %w", err)
	}
	cat, err := NewRecipeCatalog(defs, items)
	if err != nil {
		return fmt.Errorf("recipes.json: %w", err)
	}
	cat.Digest = sha256Hex(raw)
	*out = cat
	return nil
}

const schemaBaseURL = "https://autocraft.ai/schemas/"

func compileSchema(name string) (*jsonschema.Schema, error) {
	b, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		return nil, fmt.Errorf("reading embedded schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaBaseURL+name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	return c.Compile(schemaBaseURL + name)
}

func validate(schemaName string, raw []byte) error {
	s, err := compileSchema(schemaName)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return s.Validate(doc)
}
