package indexdb

import (
	"context"
	"path/filepath"
	"testing"

	"autocraft.ai/internal/persistence/snapshot"
	"autocraft.ai/internal/sim/catalogs"
	"autocraft.ai/internal/sim/tuning"
	"autocraft.ai/internal/sim/world"
)

func TestSQLiteIndex_AttemptsAndSnapshots(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index", "world.sqlite")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}

	station := "CRAFTING_TABLE@0,0,0"
	entries := []world.AttemptEntry{
		{AttemptID: "a1", WorldID: "W", Tick: 1, StationID: station, Target: "STICK", RecipeID: "stick", Committed: true,
			Output: &world.ItemStack{Item: "STICK", Count: 4}, Removed: map[string]int{"PLANK": 2}},
		{AttemptID: "a2", WorldID: "W", Tick: 2, StationID: station, Target: "STICK", Code: "E_NO_RECIPE"},
		{AttemptID: "a3", WorldID: "W", Tick: 3, StationID: "CRAFTING_TABLE@5,0,0", Target: "CAKE", Code: "E_NO_SOURCES"},
		{AttemptID: "a4", WorldID: "W", Tick: 4, StationID: station, Target: "STICK", Code: "E_NO_RECIPE"},
	}
	for _, e := range entries {
		if err := idx.WriteAttempt(e); err != nil {
			t.Fatalf("WriteAttempt: %v", err)
		}
	}
	idx.RecordSnapshot("/data/snapshots/W/10.snap.zst", snapshot.SnapshotV1{Header: snapshot.Header{Version: 1, WorldID: "W", Tick: 10}})
	idx.RecordSnapshot("/data/snapshots/W/20.snap.zst", snapshot.SnapshotV1{Header: snapshot.Header{Version: 1, WorldID: "W", Tick: 20}})
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Writes after close are ignored.
	_ = idx.WriteAttempt(world.AttemptEntry{AttemptID: "late"})

	idx, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()
	ctx := context.Background()

	counts, err := idx.CountByCode(ctx)
	if err != nil {
		t.Fatalf("CountByCode: %v", err)
	}
	if counts["OK"] != 1 || counts["E_NO_RECIPE"] != 2 || counts["E_NO_SOURCES"] != 1 {
		t.Fatalf("counts=%v", counts)
	}

	got, err := idx.StationAttempts(ctx, station, 2)
	if err != nil {
		t.Fatalf("StationAttempts: %v", err)
	}
	if len(got) != 2 || got[0].AttemptID != "a4" || got[1].AttemptID != "a2" {
		t.Fatalf("station attempts: %+v", got)
	}
	if _, err := idx.StationAttempts(ctx, "CHEST@0,0,1", 10); err == nil {
		t.Fatalf("expected error for a non-station id")
	}

	p, tick, err := idx.LatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if tick != 20 || p != "/data/snapshots/W/20.snap.zst" {
		t.Fatalf("latest snapshot: %s %d", p, tick)
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqAttempt, attempt: world.AttemptEntry{Tick: 1}}

	_ = s.WriteAttempt(world.AttemptEntry{Tick: 2})
	s.RecordSnapshot("/tmp/2.snap.zst", snapshot.SnapshotV1{})

	st := s.Stats()
	if st.DropAttemptTotal != 1 {
		t.Fatalf("DropAttemptTotal=%d want=1", st.DropAttemptTotal)
	}
	if st.DropSnapshotTotal != 1 {
		t.Fatalf("DropSnapshotTotal=%d want=1", st.DropSnapshotTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_UpsertCatalogs(t *testing.T) {
	configDir := filepath.Join("..", "..", "..", "configs")
	cats, err := catalogs.Load(configDir)
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "world.sqlite"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer idx.Close()

	if err := idx.UpsertCatalogs(configDir, cats, tuning.Defaults()); err != nil {
		t.Fatalf("UpsertCatalogs: %v", err)
	}
	var digest string
	if err := idx.db.QueryRow(`SELECT digest FROM catalogs WHERE name='recipes'`).Scan(&digest); err != nil {
		t.Fatalf("query recipes row: %v", err)
	}
	if digest != cats.Recipes.Digest {
		t.Fatalf("recipes digest=%s want %s", digest, cats.Recipes.Digest)
	}
	var n int
	if err := idx.db.QueryRow(`SELECT COUNT(*) FROM catalogs`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 4 {
		t.Fatalf("catalog rows=%d want 4", n)
	}
}
