package main

import (
	"os"
	"path/filepath"
	"testing"

	"autocraft.ai/internal/persistence/indexdb"
	"autocraft.ai/internal/persistence/snapshot"
)

func TestLatestSnapshot_PicksHighestTick(t *testing.T) {
	worldDir := t.TempDir()
	dir := filepath.Join(worldDir, "snapshots")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"900.snap.zst", "3000.snap.zst", "12.snap.zst", "junk.snap.zst", "4000.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if got, want := latestSnapshot(worldDir), snapshotPath(worldDir, 3000); got != want {
		t.Fatalf("latestSnapshot=%q want %q", got, want)
	}
}

func TestLatestSnapshot_NoDir(t *testing.T) {
	if got := latestSnapshot(t.TempDir()); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestResumeSnapshot_PrefersIndexedSnapshot(t *testing.T) {
	worldDir := t.TempDir()
	indexed := snapshotPath(worldDir, 50)
	snap := snapshot.SnapshotV1{Header: snapshot.Header{Version: 1, WorldID: "W", Tick: 50}}
	if err := snapshot.WriteSnapshot(indexed, snap); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	// A newer file the index does not know about.
	if err := os.WriteFile(snapshotPath(worldDir, 90), nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	dbPath := filepath.Join(worldDir, "index", "world.sqlite")
	idx, err := indexdb.OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	idx.RecordSnapshot(indexed, snap)
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	idx, err = indexdb.OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()

	if got := resumeSnapshot(idx, worldDir, "W"); got != indexed {
		t.Fatalf("resumeSnapshot=%q want %q", got, indexed)
	}
	// Another world's index entry is ignored in favour of the dir scan.
	if got, want := resumeSnapshot(idx, worldDir, "OTHER"), snapshotPath(worldDir, 90); got != want {
		t.Fatalf("resumeSnapshot(OTHER)=%q want %q", got, want)
	}
	if got, want := resumeSnapshot(nil, worldDir, "W"), snapshotPath(worldDir, 90); got != want {
		t.Fatalf("resumeSnapshot(nil)=%q want %q", got, want)
	}
}
