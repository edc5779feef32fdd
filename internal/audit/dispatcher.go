package audit

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

const defaultCriticalWait = 50 * time.Millisecond

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops ordinary events on a full buffer instead of blocking.
	DropIfFull bool
	// Critical names event types that wait up to CriticalWait for room
	// before being dropped, even with DropIfFull.
	Critical     []string
	CriticalWait time.Duration
}

// Dispatcher asynchronously forwards audit events to a sink.
//
// Session events come in two volumes: guard denials and refreshes arrive on
// every request, revocations and invalid tokens are rare and matter more.
// The dispatcher therefore drops per type and lets critical types wait.
type Dispatcher struct {
	cfg      Config
	sink     Sink
	critical map[string]struct{}
	ch       chan Event
	done     chan struct{}
	wg       sync.WaitGroup

	dropped   atomic.Uint64
	delivered atomic.Uint64
	dropMu    sync.Mutex
	dropsBy   map[string]uint64

	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts a dispatcher, or returns nil when cfg is disabled. A
// nil *Dispatcher is valid and drops everything.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.CriticalWait <= 0 {
		cfg.CriticalWait = defaultCriticalWait
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:      cfg,
		sink:     sink,
		critical: make(map[string]struct{}, len(cfg.Critical)),
		ch:       make(chan Event, cfg.BufferSize),
		done:     make(chan struct{}),
		dropsBy:  make(map[string]uint64),
	}
	for _, t := range cfg.Critical {
		d.critical[t] = struct{}{}
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.deliver(event)
		case <-d.done:
			for {
				select {
				case event := <-d.ch:
					d.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(event Event) {
	d.sink.Emit(context.Background(), event)
	d.delivered.Add(1)
}

// Emit queues event.
//
// Ordinary events under DropIfFull are dropped at once on a full buffer.
// Critical events wait up to CriticalWait, then drop. Without DropIfFull
// every event blocks until there is room, ctx ends, or the dispatcher
// closes.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	select {
	case d.ch <- event:
		return
	case <-d.done:
		return
	default:
	}

	if d.cfg.DropIfFull {
		if _, ok := d.critical[event.EventType]; !ok {
			d.drop(event.EventType)
			return
		}
		timer := time.NewTimer(d.cfg.CriticalWait)
		defer timer.Stop()
		select {
		case d.ch <- event:
		case <-d.done:
		case <-ctx.Done():
			d.drop(event.EventType)
		case <-timer.C:
			d.drop(event.EventType)
		}
		return
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
		d.drop(event.EventType)
	case <-d.done:
	}
}

func (d *Dispatcher) drop(eventType string) {
	d.dropped.Add(1)
	d.dropMu.Lock()
	d.dropsBy[eventType]++
	d.dropMu.Unlock()
}

// Close drains buffered events into the sink, then closes the sink if it
// is an io.Closer.
func (d *Dispatcher) Close() error {
	if d == nil {
		return nil
	}
	var err error
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
		if c, ok := d.sink.(io.Closer); ok {
			err = c.Close()
		}
	})
	return err
}

// Dropped reports the total number of dropped events.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// DroppedByType returns a copy of the drop counts keyed by event type.
func (d *Dispatcher) DroppedByType() map[string]uint64 {
	out := make(map[string]uint64)
	if d == nil {
		return out
	}
	d.dropMu.Lock()
	defer d.dropMu.Unlock()
	for t, n := range d.dropsBy {
		out[t] = n
	}
	return out
}

// Delivered reports how many events reached the sink.
func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}
