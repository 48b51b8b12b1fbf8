package watcher

import (
	"sync"
	"time"
)

// DebouncedEvent represents a batched file system event.
type DebouncedEvent struct {
	Path string
	Op   EventOp
}

// EventOp represents the type of file system operation.
type EventOp int

const (
	OpCreate EventOp = iota
	OpWrite
	OpRemove
	OpRename
)

func (op EventOp) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Debouncer collects file system events and emits them in one batch after a
// quiet period. Events for the same path within the window collapse into the
// latest one.
type Debouncer struct {
	interval time.Duration
	events   map[string]DebouncedEvent
	mu       sync.Mutex
	timer    *time.Timer
	stopped  bool
	done     chan struct{}
	sending  sync.WaitGroup
	output   chan []DebouncedEvent
}

// NewDebouncer creates a debouncer with the specified quiet interval.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		events:   make(map[string]DebouncedEvent),
		done:     make(chan struct{}),
		output:   make(chan []DebouncedEvent, 16),
	}
}

// Output returns the channel that receives batched events.
func (d *Debouncer) Output() <-chan []DebouncedEvent {
	return d.output
}

// Add adds an event to the debounce window and restarts the quiet period.
func (d *Debouncer) Add(path string, op EventOp) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.events[path] = DebouncedEvent{Path: path, Op: op}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.flush)
}

// Stop discards pending events and closes the output channel once no
// batch is in flight.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.events = nil
	close(d.done)
	d.mu.Unlock()

	d.sending.Wait()
	close(d.output)
}

// flush sends the accumulated events to the output channel and resets the
// buffer. The send happens outside the lock so a consumer may call Add while
// the output is full.
func (d *Debouncer) flush() {
	d.mu.Lock()
	if d.stopped || len(d.events) == 0 {
		d.mu.Unlock()
		return
	}

	batch := make([]DebouncedEvent, 0, len(d.events))
	for _, event := range d.events {
		batch = append(batch, event)
	}
	d.events = make(map[string]DebouncedEvent)
	d.sending.Add(1)
	d.mu.Unlock()

	defer d.sending.Done()
	select {
	case d.output <- batch:
	case <-d.done:
	}
}
