package reactor

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// cellEntry tracks the subscribers of one cell. order preserves
// subscription-insertion order (the distilled spec requires delivery
// in insertion order, a guarantee Go's own map iteration does not
// give); set mirrors the same membership for O(1) dedup checks on
// subscribe/unsubscribe, the same role the teacher's mapset.Set plays
// for an observer's own dependency back-pointers below.
type cellEntry struct {
	order []*Observer
	set   mapset.Set[*Observer]
}

// registry is the Cell Registry: for each cellKey it keeps the set of
// observers currently subscribed, plus the inverse index on each
// observer (observer.deps) that lets an observer tear itself down in
// one pass. It is not safe for concurrent use, matching the rest of
// the package (see ReactiveContext's doc comment).
type registry struct {
	cells map[cellKey]*cellEntry
}

func newRegistry() *registry {
	return &registry{cells: map[cellKey]*cellEntry{}}
}

// subscribe adds the bidirectional edge between key and o.
func (r *registry) subscribe(o *Observer, key cellKey) {
	entry, ok := r.cells[key]
	if !ok {
		entry = &cellEntry{set: mapset.NewSet[*Observer]()}
		r.cells[key] = entry
	}
	if entry.set.Add(o) {
		entry.order = append(entry.order, o)
	}
	o.deps.Add(key)
}

// unsubscribeAll removes o from every cell it was subscribed to and
// clears its dependency set. Called before every re-run and on Stop.
func (r *registry) unsubscribeAll(o *Observer) {
	for key := range o.deps.Iter() {
		r.unsubscribeOne(o, key)
	}
	o.deps.Clear()
}

func (r *registry) unsubscribeOne(o *Observer, key cellKey) {
	entry, ok := r.cells[key]
	if !ok || !entry.set.Contains(o) {
		return
	}
	entry.set.Remove(o)
	for i, sub := range entry.order {
		if sub == o {
			entry.order = append(entry.order[:i], entry.order[i+1:]...)
			break
		}
	}
	if entry.set.Cardinality() == 0 {
		delete(r.cells, key)
	}
}

// collect returns a snapshot of the observers subscribed to key in
// subscription-insertion order, so that iterating over it is safe
// even if a drained observer mutates its own subscriptions
// mid-iteration.
func (r *registry) collect(key cellKey) []*Observer {
	entry, ok := r.cells[key]
	if !ok {
		return nil
	}
	snapshot := make([]*Observer, len(entry.order))
	copy(snapshot, entry.order)
	return snapshot
}

// forget drops every cell belonging to source. Go has no WeakMap
// equivalent in the standard library, so unlike the distilled spec's
// reference implementation this registry needs an explicit call to
// release a source's cells instead of relying on garbage collection
// of weak keys (see DESIGN.md).
func (r *registry) forget(source uintptr) {
	for key := range r.cells {
		if key.source == source {
			delete(r.cells, key)
		}
	}
}

// subscriberCount is used by cmd/reactorctl inspect to render the
// cell-registry graph without exposing the registry's internals.
func (r *registry) subscriberCount(key cellKey) int {
	entry, ok := r.cells[key]
	if !ok {
		return 0
	}
	return entry.set.Cardinality()
}

// keys returns every cellKey currently holding at least one
// subscriber, for cmd/reactorctl inspect.
func (r *registry) keys() []cellKey {
	out := make([]cellKey, 0, len(r.cells))
	for key := range r.cells {
		out = append(out, key)
	}
	return out
}
