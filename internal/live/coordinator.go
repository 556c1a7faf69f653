package live

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/homelink-core/internal/bridges"
	"github.com/nerrad567/homelink-core/internal/infrastructure/logging"
	"github.com/nerrad567/homelink-core/internal/snapshot"
)

// Broadcaster fans state deltas out to every connection attached to a
// bridge. The WebSocket hub implements it.
type Broadcaster interface {
	BroadcastState(bridgeID string, deltas []snapshot.Delta)
}

// SourceResolver is the narrow view of the bridge selector the coordinator
// needs.
type SourceResolver interface {
	Source(bridgeID string) (bridges.Source, error)
}

// Mirror republishes state deltas to an external transport. Optional.
type Mirror interface {
	PublishState(bridgeID string, deltas []snapshot.Delta)
}

// MetricWriter records numeric device state for history. Optional,
// non-blocking.
type MetricWriter interface {
	WriteDeviceMetric(deviceID, field string, value float64)
}

// task is one bridge's polling loop. prev is guarded by the coordinator
// mutex; a task whose pointer is no longer in the tasks map is dead and
// must not publish results.
type task struct {
	bridgeID string
	cancel   context.CancelFunc
	prev     *snapshot.Snapshot
}

// Coordinator owns the polling tasks. It wraps the registry so that
// first-subscriber and last-subscriber edges start and stop tasks under a
// single lock.
type Coordinator struct {
	registry    *Registry
	sources     SourceResolver
	broadcaster Broadcaster
	mirror      Mirror
	metrics     MetricWriter
	logger      *logging.Logger

	pollInterval time.Duration
	fetchTimeout time.Duration

	mu     sync.Mutex
	tasks  map[string]*task
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// CoordinatorDeps carries the coordinator's collaborators. Mirror and
// Metrics may be nil.
type CoordinatorDeps struct {
	Registry     *Registry
	Sources      SourceResolver
	Broadcaster  Broadcaster
	Mirror       Mirror
	Metrics      MetricWriter
	Logger       *logging.Logger
	PollInterval time.Duration
	FetchTimeout time.Duration
}

// NewCoordinator creates a coordinator. Call Close to stop all tasks.
func NewCoordinator(deps CoordinatorDeps) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		registry:     deps.Registry,
		sources:      deps.Sources,
		broadcaster:  deps.Broadcaster,
		mirror:       deps.Mirror,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
		pollInterval: deps.PollInterval,
		fetchTimeout: deps.FetchTimeout,
		tasks:        make(map[string]*task),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Attach subscribes a connection to a bridge, starting its polling task if
// this is the first subscriber. A connection already attached to another
// bridge is moved, and the old task stopped if it became empty.
func (c *Coordinator) Attach(connID, bridgeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	isFirst, moved := c.registry.Attach(connID, bridgeID)
	if moved != nil && moved.IsLast {
		c.stopLocked(moved.BridgeID)
	}
	if isFirst {
		c.startLocked(bridgeID)
	}
}

// Detach unsubscribes a connection, stopping the bridge's polling task if
// it was the last subscriber. Safe to call for unknown connections.
func (c *Coordinator) Detach(connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if res := c.registry.Detach(connID); res != nil && res.IsLast {
		c.stopLocked(res.BridgeID)
	}
}

// Active reports whether a polling task currently exists for a bridge.
func (c *Coordinator) Active(bridgeID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.tasks[bridgeID]
	return ok
}

// Cached returns the most recent snapshot held by a bridge's polling task,
// or nil if there is no task or it has not completed a poll yet.
func (c *Coordinator) Cached(bridgeID string) *snapshot.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tasks[bridgeID]; ok {
		return t.prev
	}
	return nil
}

// InitialSnapshot returns the state a newly attached connection should
// receive: the task's cached snapshot when available, otherwise a direct
// bounded fetch. A direct fetch is not cached; the task owns the cache.
func (c *Coordinator) InitialSnapshot(ctx context.Context, bridgeID string) (*snapshot.Snapshot, error) {
	if snap := c.Cached(bridgeID); snap != nil {
		return snap, nil
	}

	src, err := c.sources.Source(bridgeID)
	if err != nil {
		return nil, err
	}
	fctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	if !src.IsConnected() {
		if err := src.Connect(fctx); err != nil {
			return nil, bridges.WrapUpstream(bridgeID, err)
		}
	}
	snap, err := src.Snapshot(fctx)
	if err != nil {
		return nil, bridges.WrapUpstream(bridgeID, err)
	}
	return snap, nil
}

// Close stops every polling task and waits for their goroutines to exit.
func (c *Coordinator) Close() {
	c.cancel()

	c.mu.Lock()
	for bridgeID := range c.tasks {
		delete(c.tasks, bridgeID)
	}
	c.mu.Unlock()

	c.wg.Wait()
}

// startLocked launches a polling task. Caller holds c.mu.
func (c *Coordinator) startLocked(bridgeID string) {
	if _, exists := c.tasks[bridgeID]; exists {
		return
	}

	ctx, cancel := context.WithCancel(c.ctx)
	t := &task{bridgeID: bridgeID, cancel: cancel}
	c.tasks[bridgeID] = t

	c.logger.Info("polling started", "bridge_id", bridgeID, "interval", c.pollInterval)

	c.wg.Add(1)
	go c.run(ctx, t)
}

// stopLocked cancels a bridge's task and removes it from the map. The
// removal is what invalidates any poll still in flight. Caller holds c.mu.
func (c *Coordinator) stopLocked(bridgeID string) {
	t, ok := c.tasks[bridgeID]
	if !ok {
		return
	}
	t.cancel()
	delete(c.tasks, bridgeID)
	c.logger.Info("polling stopped", "bridge_id", bridgeID)
}

// run is a task's goroutine: one immediate poll, then fixed-interval
// ticks. Polls are synchronous, so one bridge never has two in flight.
func (c *Coordinator) run(ctx context.Context, t *task) {
	defer c.wg.Done()

	c.poll(ctx, t)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.poll(ctx, t)
		}
	}
}

// poll fetches one snapshot, diffs it against the task's previous one and
// publishes the deltas. Failures leave the previous snapshot untouched.
func (c *Coordinator) poll(ctx context.Context, t *task) {
	src, err := c.sources.Source(t.bridgeID)
	if err != nil {
		c.logger.Warn("poll skipped, source unavailable", "bridge_id", t.bridgeID, "error", err)
		return
	}

	fctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	if !src.IsConnected() {
		if err := src.Connect(fctx); err != nil {
			uerr := bridges.WrapUpstream(t.bridgeID, err)
			c.logger.Warn("bridge connect failed", "bridge_id", t.bridgeID, "timeout", uerr.Timeout, "error", err)
			return
		}
	}

	snap, err := src.Snapshot(fctx)
	if err != nil {
		uerr := bridges.WrapUpstream(t.bridgeID, err)
		c.logger.Warn("poll failed", "bridge_id", t.bridgeID, "timeout", uerr.Timeout, "error", err)
		return
	}

	c.mu.Lock()
	if c.tasks[t.bridgeID] != t {
		// Task was stopped while the fetch was in flight; discard.
		c.mu.Unlock()
		return
	}
	deltas := snapshot.Diff(t.prev, snap)
	t.prev = snap
	c.mu.Unlock()

	if len(deltas) == 0 {
		return
	}

	c.logger.Debug("state changed", "bridge_id", t.bridgeID, "deltas", len(deltas))
	c.broadcaster.BroadcastState(t.bridgeID, deltas)

	if c.mirror != nil {
		c.mirror.PublishState(t.bridgeID, deltas)
	}
	if c.metrics != nil {
		c.writeTelemetry(deltas)
	}
}

// writeTelemetry records numeric fields from device deltas.
func (c *Coordinator) writeTelemetry(deltas []snapshot.Delta) {
	for _, d := range deltas {
		if d.Kind != snapshot.KindDevice {
			continue
		}
		rd, ok := d.Payload.(snapshot.RoomDevice)
		if !ok {
			continue
		}

		on := 0.0
		if rd.Device.On {
			on = 1
		}
		c.metrics.WriteDeviceMetric(rd.Device.ID, "on", on)
		c.metrics.WriteDeviceMetric(rd.Device.ID, "brightness", float64(rd.Device.Brightness))
	}
}
