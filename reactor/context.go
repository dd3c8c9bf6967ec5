package reactor

import mapset "github.com/deckarep/golang-set/v2"

// ReactiveContext is one independent reactive graph: its own
// current-observer stack, hidden flag, batch depth, pending queue, and
// cell registry. The distilled spec describes these as process-wide
// singletons; this rendition threads a *ReactiveContext through every
// call instead (mirroring how the teacher threads *ReactiveContext
// through pkg/flimsy's CreateSignal/CreateEffect/Batch/Untrack), so
// that independent graphs — and tests — don't share state.
//
// ReactiveContext is single-threaded cooperative, like the spec it
// implements: every method assumes it is called from one goroutine at
// a time. It does not synchronize itself and is not safe for
// concurrent use from multiple goroutines.
type ReactiveContext struct {
	registry *registry
	wrappers map[uintptr]*Reactor

	stack  []*Observer
	hidden bool

	batchDepth int
	pending    []*Observer
	pendingSet mapset.Set[*Observer]
	draining   bool
}

// NewReactiveContext constructs an empty reactive graph.
func NewReactiveContext() *ReactiveContext {
	return &ReactiveContext{
		registry:   newRegistry(),
		wrappers:   map[uintptr]*Reactor{},
		pendingSet: mapset.NewSet[*Observer](),
	}
}

func (rc *ReactiveContext) push(o *Observer) {
	rc.stack = append(rc.stack, o)
}

func (rc *ReactiveContext) pop() {
	rc.stack = rc.stack[:len(rc.stack)-1]
}

func (rc *ReactiveContext) current() *Observer {
	if len(rc.stack) == 0 {
		return nil
	}
	return rc.stack[len(rc.stack)-1]
}

// trackingObserver returns the observer that a read should subscribe
// to, or nil if reads are currently non-subscribing (no observer
// running, or inside Hide).
func (rc *ReactiveContext) trackingObserver() *Observer {
	if rc.hidden {
		return nil
	}
	return rc.current()
}

func (rc *ReactiveContext) enqueue(o *Observer) {
	if rc.pendingSet.Add(o) {
		rc.pending = append(rc.pending, o)
	}
}

// enqueueCell enqueues every observer subscribed to key without
// draining. Used by Reactor.notifyChange to collect every cell a
// single write affects (value, Has, OwnKeys) before draining once, so
// that an observer subscribed to more than one of those cells still
// runs exactly once (see drainIfReady).
func (rc *ReactiveContext) enqueueCell(key cellKey) {
	for _, o := range rc.registry.collect(key) {
		rc.enqueue(o)
	}
}

// drainIfReady drains the pending queue, outside a batch and outside
// an already-running drain, returning the aggregated error. It
// returns nil without draining if the caller is inside a batch or
// inside an observer body that a drain is running — the outer
// batch/drain will pick these observers up.
func (rc *ReactiveContext) drainIfReady() error {
	if rc.batchDepth == 0 && !rc.draining {
		return rc.drain()
	}
	return nil
}

// drain pops observers off the pending queue front-to-back, running
// each idle one exactly once, until the queue is empty. Errors from
// every failed observer are collected and, if more than one occurred,
// aggregated into a *CompositeError (§8). drain is entered only through
// drainIfReady, which skips it while rc.draining is set, so writes and
// Batch calls made by the observer bodies it runs leave their
// observers on this drain's queue; the flag's previous value is
// restored on return.
func (rc *ReactiveContext) drain() error {
	prev := rc.draining
	rc.draining = true
	defer func() { rc.draining = prev }()

	var errs []error
	for len(rc.pending) > 0 {
		o := rc.pending[0]
		rc.pending = rc.pending[1:]
		rc.pendingSet.Remove(o)

		if o.state != StateIdle {
			continue
		}
		if _, err := o.run(); err != nil {
			errs = append(errs, err)
		}
	}
	return newCompositeError(errs)
}

// Hide runs fn with dependency tracking suppressed: reads performed
// inside fn do not create subscriptions. Writes inside fn still
// trigger observers normally — the reference behavior tracks reads
// only (§11, Open Question 1). Hide restores the previous hidden state
// even if fn panics, and returns fn's result.
func Hide(rc *ReactiveContext, fn func() (any, error)) (any, error) {
	prev := rc.hidden
	rc.hidden = true
	defer func() { rc.hidden = prev }()
	return fn()
}

// Batch defers notifications produced by writes inside fn until the
// outermost Batch call returns, so that observers affected by several
// writes run at most once instead of once per write. Nested batches
// compose: only the outermost drains the queue. Batch returns fn's
// result; if fn also produced an error, that error wins over any
// error surfaced by the drain, though the drain still runs so pending
// observers converge either way.
//
// The commit path goes through drainIfReady rather than calling drain
// directly: if this Batch call is itself running inside an observer
// body that an outer drain is in the middle of running, rc.draining is
// already true and drainIfReady correctly defers to that outer drain
// instead of starting an independent nested one that would aggregate
// its errors separately from the write that triggered the outer drain.
func Batch(rc *ReactiveContext, fn func() (any, error)) (result any, err error) {
	rc.batchDepth++
	defer func() {
		rc.batchDepth--
		if rc.batchDepth == 0 {
			if derr := rc.drainIfReady(); derr != nil && err == nil {
				err = derr
			}
		}
	}()
	result, err = fn()
	return
}

// Shuck returns the source value behind a *Reactor wrapper, or value
// unchanged if it is not a wrapper.
func Shuck(value any) any {
	r, ok := value.(*Reactor)
	if !ok {
		return value
	}
	return r.shuck()
}

// CellInfo describes one occupied cell in a ReactiveContext's registry,
// for diagnostic tools like cmd/reactorctl inspect.
type CellInfo struct {
	Label       string
	Kind        string
	Subscribers int
}

// InspectCells snapshots every cell in rc's registry that currently has
// at least one subscriber. Order is unspecified; callers that need a
// stable order should sort the result.
func InspectCells(rc *ReactiveContext) []CellInfo {
	keys := rc.registry.keys()
	out := make([]CellInfo, 0, len(keys))
	for _, key := range keys {
		out = append(out, CellInfo{
			Label:       key.label(),
			Kind:        key.kind.String(),
			Subscribers: rc.registry.subscriberCount(key),
		})
	}
	return out
}
