package world

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"autocraft.ai/internal/persistence/snapshot"
	"autocraft.ai/internal/sim/catalogs"
	"autocraft.ai/internal/sim/tuning"
	modelpkg "autocraft.ai/internal/sim/world/kernel/model"
)

type Vec3i = modelpkg.Vec3i
type ItemStack = modelpkg.ItemStack

type WorldConfig struct {
	ID                 string
	TickRateHz         int
	SnapshotEveryTicks int
	HopperSlots        int
	ChestSlots         int
	MaxPowerNodes      int

	// DefaultMaxStack applies to items whose definition has no max_stack.
	DefaultMaxStack int

	// Logger may be nil.
	Logger *log.Logger
}

// ConfigFromTuning fills a WorldConfig from tuning.yaml values.
func ConfigFromTuning(id string, t tuning.Tuning) WorldConfig {
	return WorldConfig{
		ID:                 id,
		TickRateHz:         t.TickRateHz,
		SnapshotEveryTicks: t.SnapshotEveryTicks,
		HopperSlots:        t.HopperSlots,
		ChestSlots:         t.ChestSlots,
		MaxPowerNodes:      t.MaxPowerNodes,
		DefaultMaxStack:    t.DefaultMaxStack,
	}
}

// World is a single-threaded authoritative block world hosting crafting stations.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg      WorldConfig
	catalogs *catalogs.Catalogs
	logger   *log.Logger

	tick atomic.Uint64

	blocks     map[Vec3i]string
	facing     map[Vec3i]Vec3i
	containers map[Vec3i]*modelpkg.Container
	frames     map[Vec3i]*Frame
	switches   map[Vec3i]int

	// power caches the computed level of every powered conductor.
	power map[Vec3i]int
	// direct holds levels set on non-conductor positions.
	direct map[Vec3i]int

	clients map[string]*clientState

	inbox       chan ActionEnvelope
	subscribe   chan SubscribeRequest
	unsubscribe chan string
	stop        chan struct{}

	attemptLoggers []AttemptLogger
	snapshotSink   chan<- snapshot.SnapshotV1

	// Read by Stats from other goroutines.
	attempts  atomic.Uint64
	committed atomic.Uint64

	newID func() string
}

type clientState struct {
	Out chan []byte
}

// ActionEnvelope is one ACT received from a session.
type ActionEnvelope struct {
	SessionID string
	Act       ActMsg
}

type SubscribeRequest struct {
	SessionID string
	Out       chan []byte
}

func New(cfg WorldConfig, cats *catalogs.Catalogs) (*World, error) {
	if cats == nil {
		return nil, fmt.Errorf("world: catalogs required")
	}
	if cfg.ID == "" {
		cfg.ID = "WORKSHOP"
	}
	d := tuning.Defaults()
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = d.TickRateHz
	}
	if cfg.HopperSlots <= 0 {
		cfg.HopperSlots = d.HopperSlots
	}
	if cfg.ChestSlots <= 0 {
		cfg.ChestSlots = d.ChestSlots
	}
	if cfg.MaxPowerNodes <= 0 {
		cfg.MaxPowerNodes = d.MaxPowerNodes
	}
	if cfg.DefaultMaxStack <= 0 {
		cfg.DefaultMaxStack = d.DefaultMaxStack
	}
	// The world keeps its own copy so the stack default does not leak into the caller's catalogs.
	own := *cats
	own.Items.DefaultMaxStack = cfg.DefaultMaxStack

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &World{
		cfg:         cfg,
		catalogs:    &own,
		logger:      logger,
		blocks:      map[Vec3i]string{},
		facing:      map[Vec3i]Vec3i{},
		containers:  map[Vec3i]*modelpkg.Container{},
		frames:      map[Vec3i]*Frame{},
		switches:    map[Vec3i]int{},
		power:       map[Vec3i]int{},
		direct:      map[Vec3i]int{},
		clients:     map[string]*clientState{},
		inbox:       make(chan ActionEnvelope, 1024),
		subscribe:   make(chan SubscribeRequest, 64),
		unsubscribe: make(chan string, 64),
		stop:        make(chan struct{}),
		newID:       uuid.NewString,
	}, nil
}

func (w *World) AddAttemptLogger(l AttemptLogger) {
	if l != nil {
		w.attemptLoggers = append(w.attemptLoggers, l)
	}
}

func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World) Inbox() chan<- ActionEnvelope       { return w.inbox }
func (w *World) Subscribe() chan<- SubscribeRequest { return w.subscribe }
func (w *World) Unsubscribe() chan<- string         { return w.unsubscribe }
func (w *World) Catalogs() *catalogs.Catalogs       { return w.catalogs }
func (w *World) CurrentTick() uint64                { return w.tick.Load() }
func (w *World) Stop()                              { close(w.stop) }

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pending []ActionEnvelope
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.subscribe:
			w.handleSubscribe(req)
		case id := <-w.unsubscribe:
			delete(w.clients, id)
		case env := <-w.inbox:
			pending = append(pending, env)
		case <-ticker.C:
			w.step(pending)
			pending = pending[:0]
		}
	}
}

func (w *World) handleSubscribe(req SubscribeRequest) {
	if req.SessionID == "" || req.Out == nil {
		return
	}
	w.clients[req.SessionID] = &clientState{Out: req.Out}
}

// step applies actions in inbox order, then advances the tick.
func (w *World) step(actions []ActionEnvelope) {
	nowTick := w.tick.Load()
	for _, env := range actions {
		w.applyAct(nowTick, env)
	}
	w.tick.Add(1)

	if w.snapshotSink != nil && w.cfg.SnapshotEveryTicks > 0 && nowTick > 0 && nowTick%uint64(w.cfg.SnapshotEveryTicks) == 0 {
		snap := w.ExportSnapshot(nowTick)
		select {
		case w.snapshotSink <- snap:
		default:
			w.logger.Printf("snapshot sink full; skipped tick=%d", nowTick)
		}
	}
}

// StepOnce advances the world by a single tick using the same ordering as Run
// and returns the tick the actions were applied at.
func (w *World) StepOnce(actions []ActionEnvelope) uint64 {
	tick := w.tick.Load()
	w.step(actions)
	return tick
}

// send delivers b to one session, dropping it if the session is slow.
func (w *World) send(sessionID string, b []byte) {
	c := w.clients[sessionID]
	if c == nil {
		return
	}
	select {
	case c.Out <- b:
	default:
	}
}

func (w *World) broadcast(b []byte) {
	for _, c := range w.clients {
		select {
		case c.Out <- b:
		default:
		}
	}
}
