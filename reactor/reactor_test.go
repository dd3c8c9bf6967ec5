package reactor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reactorgraph/reactor/reactor"
)

type account struct {
	Foo string
	Bar *inner
}

type inner struct {
	Baz string
}

func observe(t *testing.T, rc *reactor.ReactiveContext, body func() (any, error)) *reactor.Observer {
	t.Helper()
	o, err := reactor.NewObserver(rc, func(ctx context.Context, args ...any) (any, error) {
		return body()
	})
	require.NoError(t, err)
	_, err = o.Run(context.Background())
	require.NoError(t, err)
	return o
}

// scenario 1: basic propagation.
func TestBasicPropagation(t *testing.T) {
	rc := reactor.NewReactiveContext()
	r, err := reactor.New(rc, &account{Foo: "bar"})
	require.NoError(t, err)

	counter := 0
	var tracker string
	observe(t, rc, func() (any, error) {
		counter++
		v, err := r.Get("Foo")
		if err != nil {
			return nil, err
		}
		tracker = v.(string)
		return nil, nil
	})

	assert.Equal(t, 1, counter)
	assert.Equal(t, "bar", tracker)

	require.NoError(t, r.Set("Foo", "mux"))
	assert.Equal(t, 2, counter)
	assert.Equal(t, "mux", tracker)
}

// scenario 2: nested reactivity.
func TestNestedReactivity(t *testing.T) {
	rc := reactor.NewReactiveContext()
	r, err := reactor.New(rc, &account{Bar: &inner{Baz: "baz"}})
	require.NoError(t, err)

	runs := 0
	var tracker string
	observe(t, rc, func() (any, error) {
		runs++
		barAny, err := r.Get("Bar")
		if err != nil {
			return nil, err
		}
		bar := barAny.(*reactor.Reactor)
		v, err := bar.Get("Baz")
		if err != nil {
			return nil, err
		}
		tracker = v.(string)
		return nil, nil
	})

	assert.Equal(t, "baz", tracker)

	barAny, err := r.Get("Bar")
	require.NoError(t, err)
	bar := barAny.(*reactor.Reactor)
	require.NoError(t, bar.Set("Baz", "moo"))

	assert.Equal(t, "moo", tracker)
	assert.Equal(t, 2, runs)
}

// scenario 3: no-op write.
func TestNoOpWrite(t *testing.T) {
	rc := reactor.NewReactiveContext()
	r, err := reactor.New(rc, &account{Foo: "bar"})
	require.NoError(t, err)

	counter := 0
	observe(t, rc, func() (any, error) {
		counter++
		_, err := r.Get("Foo")
		return nil, err
	})
	assert.Equal(t, 1, counter)

	require.NoError(t, r.Set("Foo", "bar"))
	assert.Equal(t, 1, counter)
}

// scenario 4: batch coalesce.
func TestBatchCoalesce(t *testing.T) {
	rc := reactor.NewReactiveContext()
	r, err := reactor.New(rc, &account{Foo: "a"})
	require.NoError(t, err)

	runs := 0
	var tracker string
	observe(t, rc, func() (any, error) {
		runs++
		v, err := r.Get("Foo")
		if err != nil {
			return nil, err
		}
		tracker = v.(string)
		return nil, nil
	})
	assert.Equal(t, 1, runs)

	_, err = reactor.Batch(rc, func() (any, error) {
		if err := r.Set("Foo", "a"); err != nil {
			return nil, err
		}
		if err := r.Set("Foo", "b"); err != nil {
			return nil, err
		}
		if err := r.Set("Foo", "c"); err != nil {
			return nil, err
		}
		return nil, nil
	})
	require.NoError(t, err)

	assert.Equal(t, 2, runs)
	assert.Equal(t, "c", tracker)
}

// scenario 5: hide escape.
func TestHideEscape(t *testing.T) {
	rc := reactor.NewReactiveContext()
	type wrapper struct {
		Outer string
		Inner string
	}
	r, err := reactor.New(rc, &wrapper{Outer: "o1", Inner: "i1"})
	require.NoError(t, err)

	runs := 0
	observe(t, rc, func() (any, error) {
		runs++
		if _, err := r.Get("Outer"); err != nil {
			return nil, err
		}
		_, err := reactor.Hide(rc, func() (any, error) {
			return r.Get("Inner")
		})
		return nil, err
	})
	assert.Equal(t, 1, runs)

	require.NoError(t, r.Set("Inner", "i2"))
	assert.Equal(t, 1, runs, "hidden read must not create a subscription")

	require.NoError(t, r.Set("Outer", "o2"))
	assert.Equal(t, 2, runs)
}

// scenario 6: composite error.
func TestCompositeError(t *testing.T) {
	rc := reactor.NewReactiveContext()
	r, err := reactor.New(rc, &struct{ Value int }{Value: 1})
	require.NoError(t, err)

	failIfOver1 := func() (any, error) {
		v, err := r.Get("Value")
		if err != nil {
			return nil, err
		}
		if v.(int) > 1 {
			return nil, errors.New("boom")
		}
		return nil, nil
	}

	o1, err := reactor.NewObserver(rc, func(ctx context.Context, args ...any) (any, error) { return failIfOver1() })
	require.NoError(t, err)
	_, err = o1.Run(context.Background())
	require.NoError(t, err)

	o2, err := reactor.NewObserver(rc, func(ctx context.Context, args ...any) (any, error) { return failIfOver1() })
	require.NoError(t, err)
	_, err = o2.Run(context.Background())
	require.NoError(t, err)

	err = r.Set("Value", 2)
	require.Error(t, err)

	var ce *reactor.CompositeError
	require.True(t, errors.As(err, &ce))
	assert.Len(t, ce.Errors, 2)
}

// scenario 7: chained flatten.
func TestChainedFlatten(t *testing.T) {
	rc := reactor.NewReactiveContext()
	r, err := reactor.New(rc, &struct {
		Foo         string
		Passthrough string
	}{Foo: "ok"})
	require.NoError(t, err)

	// A writes Passthrough = Foo whenever Foo changes.
	a, err := reactor.NewObserver(rc, func(ctx context.Context, args ...any) (any, error) {
		v, err := r.Get("Foo")
		if err != nil {
			return nil, err
		}
		return nil, r.Set("Passthrough", v)
	})
	require.NoError(t, err)
	_, err = a.Run(context.Background())
	require.NoError(t, err)

	failOnFoo := func() (any, error) {
		v, err := r.Get("Foo")
		if err != nil {
			return nil, err
		}
		if v.(string) == "error" {
			return nil, errors.New("foo failed")
		}
		return nil, nil
	}
	failOnPassthrough := func() (any, error) {
		v, err := r.Get("Passthrough")
		if err != nil {
			return nil, err
		}
		if v.(string) == "error" {
			return nil, errors.New("passthrough failed")
		}
		return nil, nil
	}

	for _, body := range []func() (any, error){failOnFoo, failOnFoo, failOnPassthrough, failOnPassthrough} {
		body := body
		o, err := reactor.NewObserver(rc, func(ctx context.Context, args ...any) (any, error) { return body() })
		require.NoError(t, err)
		_, err = o.Run(context.Background())
		require.NoError(t, err)
	}

	err = r.Set("Foo", "error")
	require.Error(t, err)

	var ce *reactor.CompositeError
	require.True(t, errors.As(err, &ce))
	assert.Len(t, ce.Errors, 4)
}

// scenario 8: host-object compatibility (the Go analogue of wrapping
// a JS Map: here, a map[string]any and a slice both expose container
// semantics through Get/Has/OwnKeys/Append without the caller ever
// needing to think about the wrapper).
func TestHostObjectCompatibility(t *testing.T) {
	rc := reactor.NewReactiveContext()

	m := map[string]any{}
	rm, err := reactor.New(rc, m)
	require.NoError(t, err)

	// maps have no "Len" virtual key, only slices do (see OwnKeys);
	// an absent map key just reads back as nil, like a missing JS
	// property.
	size, err := rm.Get("Len")
	require.NoError(t, err)
	assert.Nil(t, size)

	keys := rm.OwnKeys()
	assert.Empty(t, keys)

	s := &[]int{1, 2, 3}
	rs, err := reactor.New(rc, s)
	require.NoError(t, err)

	length, err := rs.Get("Len")
	require.NoError(t, err)
	assert.Equal(t, 3, length)

	require.NoError(t, rs.Append(4))
	length, err = rs.Get("Len")
	require.NoError(t, err)
	assert.Equal(t, 4, length)

	shucked := reactor.Shuck(rs).(*[]int)
	assert.Equal(t, []int{1, 2, 3, 4}, *shucked)
}

// scenario 9: HAS/OWN_KEYS suppression.
func TestHasSuppression(t *testing.T) {
	rc := reactor.NewReactiveContext()
	m := map[string]any{"foo": "baz"}
	r, err := reactor.New(rc, m)
	require.NoError(t, err)

	runs := 0
	observe(t, rc, func() (any, error) {
		runs++
		r.Has("foo")
		return nil, nil
	})
	assert.Equal(t, 1, runs)

	require.NoError(t, r.Set("foo", "different-value"))
	assert.Equal(t, 1, runs, "existence of foo did not change")
}

// scenario 10: start idempotence.
func TestStartIdempotence(t *testing.T) {
	rc := reactor.NewReactiveContext()
	runs := 0
	o, err := reactor.NewObserver(rc, func(ctx context.Context, args ...any) (any, error) {
		runs++
		return nil, nil
	})
	require.NoError(t, err)

	require.NoError(t, o.Start())
	require.NoError(t, o.Start())
	require.NoError(t, o.Start())
	assert.Equal(t, 1, runs)
}

// Canonical identity: reactor.New(s) returns the same wrapper for the
// same source, and Shuck(r) recovers s.
func TestCanonicalIdentity(t *testing.T) {
	rc := reactor.NewReactiveContext()
	s := &account{Foo: "x"}

	r1, err := reactor.New(rc, s)
	require.NoError(t, err)
	r2, err := reactor.New(rc, s)
	require.NoError(t, err)

	assert.Same(t, r1, r2)
	assert.Same(t, s, reactor.Shuck(r1))
	assert.Same(t, s, reactor.Shuck(s))
}

// Dependency replacement: a cell read on one run but not the next no
// longer triggers the observer.
func TestDependencyReplacement(t *testing.T) {
	rc := reactor.NewReactiveContext()
	r, err := reactor.New(rc, &struct {
		UseA bool
		A    int
		B    int
	}{UseA: true, A: 1, B: 100})
	require.NoError(t, err)

	runs := 0
	observe(t, rc, func() (any, error) {
		runs++
		useA, err := r.Get("UseA")
		if err != nil {
			return nil, err
		}
		if useA.(bool) {
			_, err = r.Get("A")
		} else {
			_, err = r.Get("B")
		}
		return nil, err
	})
	assert.Equal(t, 1, runs)

	require.NoError(t, r.Set("UseA", false))
	assert.Equal(t, 2, runs)

	// A is no longer a dependency; changing it must not re-run.
	require.NoError(t, r.Set("A", 2))
	assert.Equal(t, 2, runs)

	// B is now a dependency.
	require.NoError(t, r.Set("B", 200))
	assert.Equal(t, 3, runs)
}

// Construction errors are typed.
func TestConstructionErrors(t *testing.T) {
	rc := reactor.NewReactiveContext()

	_, err := reactor.New(rc, 42)
	require.ErrorIs(t, err, reactor.ErrNotAnObject)

	_, err = reactor.NewObserver(rc, nil)
	require.ErrorIs(t, err, reactor.ErrNotCallable)
}

// Stopping an observer removes it from all cells and prevents further
// runs until Start().
func TestStopRemovesSubscriptions(t *testing.T) {
	rc := reactor.NewReactiveContext()
	r, err := reactor.New(rc, &struct{ Value int }{Value: 1})
	require.NoError(t, err)

	runs := 0
	o, err := reactor.NewObserver(rc, func(ctx context.Context, args ...any) (any, error) {
		runs++
		_, err := r.Get("Value")
		return nil, err
	})
	require.NoError(t, err)
	_, err = o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, runs)

	o.Stop()
	require.NoError(t, r.Set("Value", 2))
	assert.Equal(t, 1, runs, "stopped observer must not re-run")

	require.NoError(t, o.Start())
	assert.Equal(t, 2, runs)

	require.NoError(t, r.Set("Value", 3))
	assert.Equal(t, 3, runs)
}
