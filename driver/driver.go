// Package driver is the concurrent collaborator that serializes calls
// into a single-threaded frag.Engine: it owns the mutex and the
// goroutine the engine itself is forbidden from having — a tick loop —
// and routes the link's receive and status callbacks through that same
// mutex.
package driver

import (
	"sync"
	"time"

	"github.com/ghendry/fragtp/frag"
	"github.com/ghendry/fragtp/link"
)

// Driver binds an Engine to a Link, serializing ReceiveFragment,
// Transmit and Tick behind one mutex, since the engine itself carries
// no locking of its own and requires its caller to serialize.
type Driver struct {
	mu     sync.Mutex
	engine *frag.Engine
	link   link.Link

	tickInterval time.Duration
	stopped      chan struct{}
	wg           sync.WaitGroup
}

// New builds a Driver for engine over lk, wiring the link's receive and
// status callbacks into the engine. engine must already have been built
// with a Sink that delivers to lk — see Bind for the common case of
// constructing both together.
func New(engine *frag.Engine, lk link.Link, tickInterval time.Duration) *Driver {
	d := &Driver{
		engine:       engine,
		link:         lk,
		tickInterval: tickInterval,
		stopped:      make(chan struct{}),
	}
	lk.OnReceive(d.onReceive)
	lk.OnStatus(d.onStatus)
	return d
}

// Bind constructs the engine, wraps app's sink so fragments reach lk
// (through holdoff if non-nil), and wires the link's callbacks,
// returning a ready Driver. Call Start to begin the periodic tick loop.
func Bind(cfg frag.Config, clock frag.Clock, lk link.Link, app frag.Sink, holdoff *HoldoffLimiter, tickInterval time.Duration) *Driver {
	cfg.MaxFragmentSize = lk.MaxDataSize()
	sink := newLinkSink(lk, holdoff, app)
	engine := frag.NewEngine(cfg, clock, sink)
	return New(engine, lk, tickInterval)
}

func (d *Driver) onReceive(f frag.Fragment) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.engine.ReceiveFragment(f)
}

func (d *Driver) onStatus(s frag.InterfaceStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.engine.UpdateInterfaceStatus(s)
}

// Transmit queues payload for delivery to destination.
func (d *Driver) Transmit(destination frag.Address, payload []byte) frag.Metadata {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.Transmit(destination, payload)
}

// SetTracer installs t as the engine's tracing hook.
func (d *Driver) SetTracer(t frag.Tracer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.engine.SetTracer(t)
}

// Snapshot returns a diagnostic dump of the engine's tables.
func (d *Driver) Snapshot() frag.Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.DebugSnapshot()
}

// Start launches the periodic tick loop in a background goroutine.
func (d *Driver) Start() {
	d.wg.Add(1)
	go d.tickLoop()
}

func (d *Driver) tickLoop() {
	defer d.wg.Done()
	ticker := time.NewTicker(d.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stopped:
			return
		case <-ticker.C:
			d.mu.Lock()
			d.engine.Tick()
			d.mu.Unlock()
		}
	}
}

// Stop halts the tick loop and waits for it to exit.
func (d *Driver) Stop() {
	close(d.stopped)
	d.wg.Wait()
}
