package reactor

import (
	"context"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
)

// Observer is a callable record whose body is re-run whenever any cell
// it last read changes. See §5.4 of SPEC_FULL.md.
type Observer struct {
	rc    *ReactiveContext
	body  ObserverFunc
	state ObserverState
	value any

	// deps is the inverse index of every cell this observer is
	// currently subscribed to, used by registry.unsubscribeAll.
	deps mapset.Set[cellKey]

	boundCtx  context.Context
	boundArgs []any
}

// NewObserver constructs an Observer wrapping body. It does not run
// body; call Start or Run to do that.
func NewObserver(rc *ReactiveContext, body ObserverFunc) (*Observer, error) {
	if body == nil {
		return nil, fmt.Errorf("reactor.NewObserver: %w", ErrNotCallable)
	}
	return &Observer{
		rc:       rc,
		body:     body,
		state:    StateStopped,
		deps:     mapset.NewSet[cellKey](),
		boundCtx: context.Background(),
	}, nil
}

// Value returns the last value returned by a successful run. It is
// nil until the first run completes.
func (o *Observer) Value() any { return o.value }

// State reports the observer's current lifecycle state.
func (o *Observer) State() ObserverState { return o.state }

// Execute returns the currently bound body.
func (o *Observer) Execute() ObserverFunc { return o.body }

// SetExecute atomically stops, replaces the body, and restarts the
// observer, triggering an immediate run so the new body's dependencies
// populate (§5.4 redefinition semantics).
func (o *Observer) SetExecute(body ObserverFunc) error {
	if body == nil {
		return fmt.Errorf("reactor.Observer.SetExecute: %w", ErrNotCallable)
	}
	o.Stop()
	o.body = body
	return o.Start()
}

// Run captures ctx/args as the most recent invocation and runs the
// body under dependency tracking, returning its result.
func (o *Observer) Run(ctx context.Context, args ...any) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	o.boundCtx = ctx
	o.boundArgs = args
	return o.run()
}

// Start transitions a stopped observer to idle and triggers one run
// using the most recent ctx/args. It is idempotent if the observer is
// already idle or running; starting an already-active observer never
// multiplies runs (scenario 10).
func (o *Observer) Start() error {
	if o.state != StateStopped {
		return nil
	}
	o.state = StateIdle
	// The triggering run is not wrapped in Hide. Starting an inner
	// observer from within an outer one's body does not subscribe the
	// outer observer to the inner one's cells, because run() pushes o
	// onto the stack before invoking the body, so o is the
	// subscription target for every read during this run. Hide would
	// additionally suppress o's tracking of its own dependencies.
	_, err := o.run()
	return err
}

// Stop deactivates the observer and clears its subscriptions. It is
// idempotent.
func (o *Observer) Stop() {
	if o.state == StateStopped {
		return
	}
	o.rc.registry.unsubscribeAll(o)
	o.state = StateStopped
}

// run is the atomic run procedure of §5.4: mark running, clear prior
// subscriptions, push onto the current-observer stack, invoke the
// body, pop, mark idle, update value.
func (o *Observer) run() (any, error) {
	o.state = StateRunning
	o.rc.registry.unsubscribeAll(o)
	o.rc.push(o)
	defer func() {
		o.rc.pop()
		if o.state == StateRunning {
			o.state = StateIdle
		}
	}()

	value, err := o.body(o.boundCtx, o.boundArgs...)
	if err != nil {
		// A partial run may have registered some subscriptions before
		// failing; discard them, they don't reflect a value the
		// observer actually finished computing (§5.4).
		o.rc.registry.unsubscribeAll(o)
		return nil, err
	}
	o.value = value
	return value, nil
}
