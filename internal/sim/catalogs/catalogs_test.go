package catalogs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_RepoConfigs(t *testing.T) {
	cats, err := Load(filepath.Join("..", "..", "..", "configs"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cats.Items.Digest == "" || cats.Recipes.Digest == "" {
		t.Fatalf("expected digests, got items=%q recipes=%q", cats.Items.Digest, cats.Recipes.Digest)
	}
	torches := cats.Recipes.RecipesFor("TORCH")
	if len(torches) != 2 || torches[0].RecipeID != "torch" || torches[1].RecipeID != "torch_charcoal" {
		t.Fatalf("RecipesFor(TORCH) order: %+v", torches)
	}
	if got := cats.Items.EmptyCounterpart("WATER_BUCKET"); got != "BUCKET" {
		t.Fatalf("WATER_BUCKET counterpart=%q", got)
	}
}

func TestItemCatalog_MaxStack(t *testing.T) {
	items, err := NewItemCatalog([]ItemDef{{ID: "CAKE", MaxStack: 1}, {ID: "PLANK"}})
	if err != nil {
		t.Fatalf("NewItemCatalog: %v", err)
	}
	if got := items.MaxStack("CAKE"); got != 1 {
		t.Fatalf("CAKE max=%d", got)
	}
	if got := items.MaxStack("PLANK"); got != FallbackMaxStack {
		t.Fatalf("PLANK max=%d", got)
	}
	items.DefaultMaxStack = 16
	if got := items.MaxStack("UNKNOWN"); got != 16 {
		t.Fatalf("UNKNOWN max=%d", got)
	}
}

func TestNewRecipeCatalog_UnknownItemHint(t *testing.T) {
	items, err := NewItemCatalog([]ItemDef{{ID: "PLANK"}, {ID: "STICK"}})
	if err != nil {
		t.Fatalf("NewItemCatalog: %v", err)
	}
	_, err = NewRecipeCatalog([]RecipeDef{{
		RecipeID: "stick",
		Kind:     KindShaped,
		Shape:    []string{"P", "P"},
		Key:      map[string]ItemCount{"P": {Item: "PLANKS"}},
		Output:   ItemCount{Item: "STICK", Count: 4},
	}}, items)
	if err == nil {
		t.Fatalf("expected unknown item error")
	}
	if !strings.Contains(err.Error(), `did you mean "PLANK"`) {
		t.Fatalf("expected hint in error, got %v", err)
	}
}

func TestNewRecipeCatalog_RejectsDuplicateAndBadKind(t *testing.T) {
	out := ItemCount{Item: "STICK"}
	if _, err := NewRecipeCatalog([]RecipeDef{
		{RecipeID: "a", Kind: KindShapeless, Choices: [][]string{{"PLANK"}}, Output: out},
		{RecipeID: "a", Kind: KindShapeless, Choices: [][]string{{"PLANK"}}, Output: out},
	}, ItemCatalog{}); err == nil {
		t.Fatalf("expected duplicate recipe_id error")
	}
	if _, err := NewRecipeCatalog([]RecipeDef{
		{RecipeID: "b", Kind: "SMELT", Output: out},
	}, ItemCatalog{}); err == nil {
		t.Fatalf("expected unsupported kind error")
	}
}

func TestLoad_SchemaRejectsMissingShape(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("items.json", `[{"id":"PLANK"},{"id":"STICK"}]`)
	write("recipes.json", `[{"recipe_id":"stick","kind":"SHAPED","key":{"P":{"item":"PLANK"}},"output":{"item":"STICK","count":4}}]`)

	_, err := Load(dir)
	if err == nil {
		t.Fatalf("expected schema validation error")
	}
	if !strings.HasPrefix(err.Error(), "recipes.json:") {
		t.Fatalf("expected recipes.json prefix, got %v", err)
	}
}

func TestAmountDefaultsToOne(t *testing.T) {
	if got := (ItemCount{Item: "PLANK"}).Amount(); got != 1 {
		t.Fatalf("Amount=%d", got)
	}
	if got := (ItemCount{Item: "PLANK", Count: 3}).Amount(); got != 3 {
		t.Fatalf("Amount=%d", got)
	}
}
