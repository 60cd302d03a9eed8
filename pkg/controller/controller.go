// Package controller mediates between a realtime conversational session and
// the tools it may invoke.
//
// A Controller owns the per-session state: the registration flag, the
// diagnostic log and the current tool outcome. All of that state is touched
// only by one scheduler goroutine started with Run. Inbound events, timer
// expiries and HTTP completions are queued to it as tasks, so handlers never
// need locks and never block one another.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-toolcall/pkg/catalog"
	"github.com/teslashibe/go-toolcall/pkg/predict"
	"github.com/teslashibe/go-toolcall/pkg/realtime"
	"github.com/teslashibe/go-toolcall/pkg/recorder"
	"github.com/teslashibe/go-toolcall/pkg/toolcall"
)

// Predictor answers a foreign worker enquiry.
type Predictor interface {
	Predict(ctx context.Context, req predict.Request) (*predict.Response, error)
}

// Snapshot is a consistent copy of controller state.
type Snapshot struct {
	SessionID  string            `json:"session_id"`
	Active     bool              `json:"active"`
	Registered bool              `json:"registered"`
	Processed  int               `json:"processed_events"`
	Outcome    *toolcall.Outcome `json:"outcome,omitempty"`
	Logs       []recorder.Entry  `json:"logs"`
}

// Controller is a session controller. Create with New and start with Run.
type Controller struct {
	cfg       *Config
	transport realtime.Transport
	catalog   *catalog.Catalog
	predictor Predictor
	rec       *recorder.Recorder
	logger    *slog.Logger

	inbox   chan func()
	done    chan struct{}
	running atomic.Bool

	// ctx is cancelled when Run returns.
	ctx    context.Context
	cancel context.CancelFunc

	// Scheduler-owned state.
	sessionID  string
	active     bool
	registered bool
	oldest     *realtime.SessionEvent
	processed  int
	outcome    *toolcall.Outcome
	seq        uint64
	generation uint64
	pending    map[uint64]func()
	nextTask   uint64

	snapMu    sync.RWMutex
	snap      Snapshot
	listeners map[int]func(Snapshot)
	nextLst   int
}

// New creates an active controller that writes to transport.
func New(transport realtime.Transport, opts ...Option) (*Controller, error) {
	if transport == nil {
		return nil, ErrMissingTransport
	}

	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = DefaultInboxSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cfg:       cfg,
		transport: transport,
		catalog:   cfg.Catalog,
		predictor: cfg.Predictor,
		rec:       recorder.New(cfg.LogCapacity),
		logger:    cfg.Logger.With("component", "controller"),
		inbox:     make(chan func(), cfg.InboxSize),
		done:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
		sessionID: uuid.NewString(),
		active:    true,
		pending:   make(map[uint64]func()),
		listeners: make(map[int]func(Snapshot)),
	}
	c.publish()
	return c, nil
}

// Recorder exposes the diagnostic log for subscription.
func (c *Controller) Recorder() *recorder.Recorder {
	return c.rec
}

// Catalog returns the registered tool catalog.
func (c *Controller) Catalog() *catalog.Catalog {
	return c.catalog
}

// Run executes queued tasks until ctx is cancelled. Pending timers are
// stopped and in-flight enquiries are cancelled when it returns.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	c.logger.Info("controller started", "session_id", c.sessionID, "tools", c.catalog.Names())
	defer func() {
		c.cancel()
		for id, stop := range c.pending {
			stop()
			delete(c.pending, id)
		}
		close(c.done)
		c.logger.Info("controller stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case task := <-c.inbox:
			c.execute(task)
		}
	}
}

// Done is closed after Run returns.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Ingest queues newly arrived events in arrival order.
func (c *Controller) Ingest(events ...realtime.SessionEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch := append([]realtime.SessionEvent(nil), events...)
	return c.post(func() {
		for i := range batch {
			c.handleEvent(batch[i])
		}
	})
}

// ObserveFeed queues a whole newest-first feed. Only events beyond those
// already processed in this session are handled. A feed shorter than the
// processed count is treated as a new feed and handled in full.
func (c *Controller) ObserveFeed(feed []realtime.SessionEvent) error {
	snapshot := append([]realtime.SessionEvent(nil), feed...)
	return c.post(func() {
		if len(snapshot) < c.processed {
			c.logger.Warn("event feed shrank, replaying", "feed", len(snapshot), "processed", c.processed)
			c.processed = 0
			c.oldest = nil
		}
		fresh := len(snapshot) - c.processed
		for i := fresh - 1; i >= 0; i-- {
			c.handleEvent(snapshot[i])
		}
	})
}

// Activate starts a new session. It is a no-op when already active.
func (c *Controller) Activate() error {
	return c.post(c.activate)
}

// Deactivate ends the session: the registration flag, the current outcome
// and the diagnostic log are reset and a single "Session Reset" entry is
// recorded.
func (c *Controller) Deactivate() error {
	return c.post(c.deactivate)
}

// Sync waits until every task queued before it has run.
func (c *Controller) Sync(ctx context.Context) error {
	ch := make(chan struct{})
	if err := c.post(func() { close(ch) }); err != nil {
		return err
	}
	select {
	case <-ch:
		return nil
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the state as of the last completed task.
func (c *Controller) Snapshot() Snapshot {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snap
}

// OnChange registers fn to receive a Snapshot after every task that ran.
// fn runs on the scheduler goroutine and must not block. The returned
// function unregisters it.
func (c *Controller) OnChange(fn func(Snapshot)) (cancel func()) {
	c.snapMu.Lock()
	id := c.nextLst
	c.nextLst++
	c.listeners[id] = fn
	c.snapMu.Unlock()

	return func() {
		c.snapMu.Lock()
		delete(c.listeners, id)
		c.snapMu.Unlock()
	}
}

// post queues fn for the scheduler. It blocks while the inbox is full.
func (c *Controller) post(fn func()) error {
	select {
	case <-c.done:
		return ErrStopped
	default:
	}
	select {
	case c.inbox <- fn:
		return nil
	case <-c.done:
		return ErrStopped
	}
}

// execute runs one task and publishes the resulting state. A panicking task
// is logged and does not stop the scheduler.
func (c *Controller) execute(task func()) {
	func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("task panicked", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			}
		}()
		task()
	}()
	c.publish()
}

func (c *Controller) publish() {
	snap := Snapshot{
		SessionID:  c.sessionID,
		Active:     c.active,
		Registered: c.registered,
		Processed:  c.processed,
		Outcome:    c.outcome.Clone(),
		Logs:       c.rec.Entries(),
	}

	c.snapMu.Lock()
	c.snap = snap
	listeners := make([]func(Snapshot), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.snapMu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

func (c *Controller) activate() {
	if c.active {
		return
	}
	c.active = true
	c.sessionID = uuid.NewString()
	c.processed = 0
	c.oldest = nil
	c.logger.Info("session activated", "session_id", c.sessionID)
}

func (c *Controller) deactivate() {
	prev := c.sessionID
	c.active = false
	c.registered = false
	c.outcome = nil
	c.oldest = nil
	c.processed = 0
	c.generation++

	if c.cfg.CancelOnReset {
		for id, stop := range c.pending {
			stop()
			delete(c.pending, id)
		}
	}

	c.rec.Reset()
	c.rec.Append(recorder.CategorySessionReset, map[string]any{
		"session_id": prev,
		"reason":     "session deactivated",
	})
	c.logger.Info("session deactivated", "session_id", prev)
}

// send writes one client event, bounded by SendTimeout.
func (c *Controller) send(ev realtime.ClientEvent) error {
	ctx := c.ctx
	if c.cfg.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.SendTimeout)
		defer cancel()
	}
	return c.transport.SendClientEvent(ctx, ev)
}

// track remembers a cancel hook for pending work and returns its key.
func (c *Controller) track(stop func()) uint64 {
	c.nextTask++
	c.pending[c.nextTask] = stop
	return c.nextTask
}

func (c *Controller) untrack(id uint64) {
	delete(c.pending, id)
}

func (c *Controller) now() time.Time {
	return time.Now().UTC()
}
