package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"autocraft.ai/internal/persistence/indexdb"
	persistlog "autocraft.ai/internal/persistence/log"
	"autocraft.ai/internal/persistence/snapshot"
	"autocraft.ai/internal/sim/catalogs"
	"autocraft.ai/internal/sim/tuning"
	"autocraft.ai/internal/sim/world"
	"autocraft.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "listen address")
		worldID    = flag.String("world", "world_1", "world id")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite attempt index")
		snapPath   = flag.String("snapshot", "", "resume from this .snap.zst")
		loadLatest = flag.Bool("load_latest_snapshot", true, "resume from the newest snapshot in the world dir")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	if err := os.MkdirAll(filepath.Join(worldDir, "snapshots"), 0o755); err != nil {
		logger.Fatalf("world dir: %v", err)
	}

	cfg := world.ConfigFromTuning(*worldID, tune)
	cfg.Logger = log.New(os.Stdout, "[world] ", log.LstdFlags|log.Lmicroseconds)
	w, err := world.New(cfg, cats)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}

	// Optional read model; never consulted by the world loop.
	var idx *indexdb.SQLiteIndex
	if !*disableDB && tune.IndexEnabled {
		idx, err = indexdb.OpenSQLite(filepath.Join(worldDir, "index", "world.sqlite"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index: upsert catalogs: %v", err)
		}
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = resumeSnapshot(idx, worldDir, *worldID)
	}
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.ItemsDigest != cats.Items.Digest || snap.RecipesDigest != cats.Recipes.Digest {
			logger.Printf("catalogs changed since snapshot %s", filepath.Base(snapshotToLoad))
		}
		if err := w.ImportSnapshot(snap); err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		logger.Printf("resumed from snapshot=%s tick=%d", filepath.Base(snapshotToLoad), w.CurrentTick())
	}

	if idx != nil {
		w.AddAttemptLogger(idx)
	}

	attemptLog := persistlog.NewAttemptLogger(worldDir)
	defer attemptLog.Close()
	w.AddAttemptLogger(attemptLog)

	ctx, cancel := signalContext()
	defer cancel()

	snapCh := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snapCh)
	writeSnap := func(snap snapshot.SnapshotV1) {
		path := snapshotPath(worldDir, snap.Header.Tick)
		if err := snapshot.WriteSnapshot(path, snap); err != nil {
			logger.Printf("snapshot write: %v", err)
			return
		}
		if idx != nil {
			idx.RecordSnapshot(path, snap)
		}
	}
	snapDone := make(chan struct{})
	go func() {
		defer close(snapDone)
		for {
			select {
			case snap := <-snapCh:
				writeSnap(snap)
			case <-ctx.Done():
				return
			}
		}
	}()

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	wsServer := ws.NewServer(w, log.New(os.Stdout, "[ws] ", log.LstdFlags|log.Lmicroseconds))
	wsServer.TuningDigest = tune.Digest()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		st := w.Stats()

		fmt.Fprintf(rw, "# HELP autocraft_world_tick Current world tick.\n")
		fmt.Fprintf(rw, "# TYPE autocraft_world_tick gauge\n")
		fmt.Fprintf(rw, "autocraft_world_tick{world=%q} %d\n", *worldID, w.CurrentTick())

		fmt.Fprintf(rw, "# HELP autocraft_craft_attempts_total Craft attempts, committed or not.\n")
		fmt.Fprintf(rw, "# TYPE autocraft_craft_attempts_total counter\n")
		fmt.Fprintf(rw, "autocraft_craft_attempts_total{world=%q} %d\n", *worldID, st.Attempts)

		fmt.Fprintf(rw, "# HELP autocraft_craft_committed_total Committed craft attempts.\n")
		fmt.Fprintf(rw, "# TYPE autocraft_craft_committed_total counter\n")
		fmt.Fprintf(rw, "autocraft_craft_committed_total{world=%q} %d\n", *worldID, st.Committed)

		if idx != nil {
			is := idx.Stats()
			fmt.Fprintf(rw, "# HELP autocraft_index_queue_depth Index writer backlog.\n")
			fmt.Fprintf(rw, "# TYPE autocraft_index_queue_depth gauge\n")
			fmt.Fprintf(rw, "autocraft_index_queue_depth{world=%q} %d\n", *worldID, is.QueueDepth)

			fmt.Fprintf(rw, "# HELP autocraft_index_dropped_total Index writes dropped because the queue was full.\n")
			fmt.Fprintf(rw, "# TYPE autocraft_index_dropped_total counter\n")
			fmt.Fprintf(rw, "autocraft_index_dropped_total{world=%q,kind=%q} %d\n", *worldID, "attempt", is.DropAttemptTotal)
			fmt.Fprintf(rw, "autocraft_index_dropped_total{world=%q,kind=%q} %d\n", *worldID, "snapshot", is.DropSnapshotTotal)
		}
	})
	mux.HandleFunc("/v1/ws", wsServer.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s world=%s tick=%d", *addr, *worldID, w.CurrentTick())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	<-worldDone
	<-snapDone
	final := w.ExportFinalSnapshot()
	writeSnap(final)
	logger.Printf("final snapshot tick=%d", final.Header.Tick)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func snapshotPath(worldDir string, tick uint64) string {
	return filepath.Join(worldDir, "snapshots", fmt.Sprintf("%d.snap.zst", tick))
}

// resumeSnapshot prefers the newest snapshot recorded in the index, provided the
// file is still readable and belongs to worldID, and falls back to scanning the
// snapshots dir.
func resumeSnapshot(idx *indexdb.SQLiteIndex, worldDir, worldID string) string {
	if idx != nil {
		path, _, err := idx.LatestSnapshot(context.Background())
		if err == nil && path != "" {
			if h, err := snapshot.ReadHeader(path); err == nil && h.WorldID == worldID {
				return path
			}
		}
	}
	return latestSnapshot(worldDir)
}

func latestSnapshot(worldDir string) string {
	dir := filepath.Join(worldDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}
