package reactor

import (
	"context"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// keyKind discriminates the three flavors of access-key a cell can be
// subscribed under: a plain value read, an existence check, or the
// own-key enumeration.
type keyKind uint8

const (
	keyValue keyKind = iota
	keyHas
	keyOwnKeys
)

// cellKey identifies a single subscribable cell: a source object (by
// pointer identity), an access kind, and, for value/Has cells, the
// property name. OwnKeys cells carry an empty name.
type cellKey struct {
	source uintptr
	kind   keyKind
	name   string
	hash   uint64
}

// newCellKey builds a cellKey, computing its hash the same way the
// teacher builds its SYMBOL_ERRORS constant (xxhash.Sum64String over a
// discriminated string) and storing it on the key. label() does not
// use the hash; it renders from the (pointer, kind, name) triple.
func newCellKey(source uintptr, kind keyKind, name string) cellKey {
	var prefix string
	switch kind {
	case keyValue:
		prefix = "v:"
	case keyHas:
		prefix = "h:"
	case keyOwnKeys:
		prefix = "k:"
	}
	label := strconv.FormatUint(uint64(source), 16) + ":" + prefix + name
	return cellKey{source: source, kind: kind, name: name, hash: xxhash.Sum64String(label)}
}

// label renders a short human-readable identifier for a cell, used by
// cmd/reactorctl inspect.
func (k cellKey) label() string {
	addr := "0x" + strconv.FormatUint(uint64(k.source), 16)
	switch k.kind {
	case keyHas:
		return addr + " has(" + k.name + ")"
	case keyOwnKeys:
		return addr + " ownKeys()"
	default:
		return addr + "." + k.name
	}
}

func (k keyKind) String() string {
	switch k {
	case keyValue:
		return "value"
	case keyHas:
		return "has"
	case keyOwnKeys:
		return "ownKeys"
	default:
		return "unknown"
	}
}

// ObserverFunc is the body of an Observer. It receives the this-like
// arguments captured at the most recent invocation and returns whatever
// value the body wants recorded, plus any error.
type ObserverFunc func(ctx context.Context, args ...any) (any, error)

// ObserverState mirrors the {idle, running, stopped} states of §3 of
// the spec.
type ObserverState uint8

const (
	StateStopped ObserverState = iota
	StateIdle
	StateRunning
)

func (s ObserverState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}
