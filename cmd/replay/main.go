package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"autocraft.ai/internal/persistence/indexdb"
	persistlog "autocraft.ai/internal/persistence/log"
	"autocraft.ai/internal/persistence/snapshot"
	"autocraft.ai/internal/sim/catalogs"
	"autocraft.ai/internal/sim/world"
)

func main() {
	var (
		snapPath  = flag.String("snapshot", "", "path to .snap.zst (optional)")
		worldDir  = flag.String("world_dir", "", "world dir containing attempts/ (optional)")
		configDir = flag.String("configs", "", "config directory; when set the snapshot is loaded into a world to check it")
		fromTick  = flag.Uint64("from_tick", 0, "only count attempts at or after this tick")
		toTick    = flag.Uint64("to_tick", 0, "only count attempts at or before this tick (0 = no limit)")
		indexPath = flag.String("index", "", "world.sqlite to query (optional)")
		stationID = flag.String("station", "", "with -index: list this station's latest attempts")
		limit     = flag.Int("limit", 20, "with -station: max attempts to list")
	)
	flag.Parse()

	if *snapPath == "" && *worldDir == "" && *indexPath == "" {
		fmt.Fprintln(os.Stderr, "need -snapshot, -world_dir and/or -index")
		os.Exit(2)
	}

	if *indexPath != "" {
		if err := printIndex(os.Stdout, *indexPath, *stationID, *limit); err != nil {
			fmt.Fprintln(os.Stderr, "index:", err)
			os.Exit(1)
		}
	}

	if *snapPath != "" {
		snap, err := snapshot.ReadSnapshot(*snapPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read snapshot:", err)
			os.Exit(1)
		}
		items := 0
		for _, c := range snap.Containers {
			for _, s := range c.Slots {
				items += s.Count
			}
		}
		fmt.Printf("snapshot v%d world=%s tick=%d blocks=%d containers=%d items=%d frames=%d switches=%d attempts=%d committed=%d\n",
			snap.Header.Version, snap.Header.WorldID, snap.Header.Tick,
			len(snap.Blocks), len(snap.Containers), items, len(snap.Frames), len(snap.Switches),
			snap.Counters.Attempts, snap.Counters.Committed)

		if *configDir != "" {
			if err := checkImport(*configDir, snap); err != nil {
				fmt.Fprintln(os.Stderr, "import snapshot:", err)
				os.Exit(1)
			}
			fmt.Println("snapshot import ok")
		}
	}

	if *worldDir == "" {
		return
	}
	files, err := persistlog.AttemptFiles(*worldDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list attempts:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no attempt logs found in", *worldDir)
		os.Exit(1)
	}

	var sum summary
	for _, path := range files {
		entries, err := persistlog.ReadAttempts(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read attempts:", err)
			os.Exit(1)
		}
		for _, e := range entries {
			if e.Tick < *fromTick || (*toTick != 0 && e.Tick > *toTick) {
				continue
			}
			sum.add(e)
		}
	}
	sum.print()
}

func checkImport(configDir string, snap snapshot.SnapshotV1) error {
	cats, err := catalogs.Load(configDir)
	if err != nil {
		return err
	}
	if snap.ItemsDigest != cats.Items.Digest || snap.RecipesDigest != cats.Recipes.Digest {
		fmt.Println("warning: catalogs differ from the ones the snapshot was taken with")
	}
	w, err := world.New(world.WorldConfig{
		ID:                 snap.Header.WorldID,
		TickRateHz:         snap.TickRate,
		SnapshotEveryTicks: snap.SnapshotEveryTicks,
		HopperSlots:        snap.HopperSlots,
		ChestSlots:         snap.ChestSlots,
	}, cats)
	if err != nil {
		return err
	}
	return w.ImportSnapshot(snap)
}

type summary struct {
	total     int
	committed int
	byCode    map[string]int
	crafted   map[string]int
	stations  map[string]struct{}
	firstTick uint64
	lastTick  uint64
}

func (s *summary) add(e world.AttemptEntry) {
	if s.byCode == nil {
		s.byCode = map[string]int{}
		s.crafted = map[string]int{}
		s.stations = map[string]struct{}{}
		s.firstTick = e.Tick
	}
	s.total++
	s.stations[e.StationID] = struct{}{}
	if e.Tick < s.firstTick {
		s.firstTick = e.Tick
	}
	if e.Tick > s.lastTick {
		s.lastTick = e.Tick
	}
	if e.Committed {
		s.committed++
		s.byCode["OK"]++
		if e.Output != nil {
			s.crafted[e.Output.Item] += e.Output.Count
		}
		return
	}
	s.byCode[e.Code]++
}

func (s *summary) print() {
	if s.total == 0 {
		fmt.Println("attempts: none in range")
		return
	}
	fmt.Printf("attempts=%d committed=%d stations=%d ticks=%d..%d\n", s.total, s.committed, len(s.stations), s.firstTick, s.lastTick)
	for _, k := range sortedKeys(s.byCode) {
		fmt.Printf("  code %-14s %d\n", k, s.byCode[k])
	}
	for _, k := range sortedKeys(s.crafted) {
		fmt.Printf("  crafted %-20s %d\n", k, s.crafted[k])
	}
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// printIndex reports what the sqlite read model holds: attempts per code, the
// newest recorded snapshot and, when stationID is set, that station's history.
func printIndex(out io.Writer, path, stationID string, limit int) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		return err
	}
	defer idx.Close()
	ctx := context.Background()

	counts, err := idx.CountByCode(ctx)
	if err != nil {
		return fmt.Errorf("count by code: %w", err)
	}
	fmt.Fprintf(out, "index %s\n", path)
	for _, k := range sortedKeys(counts) {
		fmt.Fprintf(out, "  code %-14s %d\n", k, counts[k])
	}

	snapPath, tick, err := idx.LatestSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("latest snapshot: %w", err)
	}
	if snapPath == "" {
		fmt.Fprintln(out, "  latest snapshot: none")
	} else if h, err := snapshot.ReadHeader(snapPath); err != nil {
		fmt.Fprintf(out, "  latest snapshot tick=%d %s (unreadable: %v)\n", tick, snapPath, err)
	} else {
		fmt.Fprintf(out, "  latest snapshot tick=%d world=%s %s\n", h.Tick, h.WorldID, snapPath)
	}

	if stationID == "" {
		return nil
	}
	entries, err := idx.StationAttempts(ctx, stationID, limit)
	if err != nil {
		return fmt.Errorf("station attempts: %w", err)
	}
	fmt.Fprintf(out, "  station %s: %d attempts\n", stationID, len(entries))
	for _, e := range entries {
		status := e.Code
		if e.Committed {
			status = "OK"
		}
		line := fmt.Sprintf("    tick=%d %s target=%s", e.Tick, status, e.Target)
		if e.Output != nil {
			line += fmt.Sprintf(" output=%dx%s", e.Output.Count, e.Output.Item)
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
