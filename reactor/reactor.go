package reactor

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
)

type sourceKind uint8

const (
	kindStruct sourceKind = iota
	kindMap
	kindSlice
)

// Reactor is a transparent wrapper over a struct pointer, a
// string-keyed map, or a slice pointer that intercepts structural
// access (§5.1); pointers to arrays are rejected by New. Go has no Proxy-equivalent trap
// mechanism, so "transparent" here means "goes through Get/Set/Has/
// Delete/OwnKeys" rather than "looks like an ordinary field
// expression" — cmd/reactorctl codegen closes that gap for a fixed
// struct shape by emitting typed accessor methods over these same
// calls (see SPEC_FULL.md §2).
type Reactor struct {
	rc   *ReactiveContext
	orig any
	kind sourceKind
	ptr  uintptr

	// elem is the addressable reflect.Value used for field/index
	// access: the dereferenced struct or slice for pointer sources,
	// or the map value itself (maps are already reference types in
	// Go, so no pointer indirection is needed to mutate them).
	elem reflect.Value
}

// New wraps x, returning the existing wrapper if x is already wrapped
// under this context (identity stability, §4). A nil x wraps a fresh
// empty map[string]any, mirroring the distilled spec's "absent ->
// {}" default constructor argument.
func New(rc *ReactiveContext, x any) (*Reactor, error) {
	if x == nil {
		x = map[string]any{}
	}

	v := reflect.ValueOf(x)
	var (
		kind sourceKind
		elem reflect.Value
		ptr  uintptr
	)

	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("reactor.New: %w: map keys must be strings", ErrNotAnObject)
		}
		if v.IsNil() {
			return nil, fmt.Errorf("reactor.New: %w: nil map", ErrNotAnObject)
		}
		kind, elem, ptr = kindMap, v, v.Pointer()

	case reflect.Ptr:
		if v.IsNil() {
			return nil, fmt.Errorf("reactor.New: %w: nil pointer", ErrNotAnObject)
		}
		ptr = v.Pointer()
		target := v.Elem()
		switch target.Kind() {
		case reflect.Struct:
			kind, elem = kindStruct, target
		case reflect.Slice:
			kind, elem = kindSlice, target
		default:
			return nil, fmt.Errorf("reactor.New: %w: pointer to %s", ErrNotAnObject, target.Kind())
		}

	default:
		return nil, fmt.Errorf("reactor.New: %w: %s", ErrNotAnObject, v.Kind())
	}

	if existing, ok := rc.wrappers[ptr]; ok {
		return existing, nil
	}

	r := &Reactor{rc: rc, orig: x, kind: kind, ptr: ptr, elem: elem}
	rc.wrappers[ptr] = r
	return r, nil
}

func (r *Reactor) shuck() any { return r.orig }

func (r *Reactor) track(kind keyKind, name string) {
	if o := r.rc.trackingObserver(); o != nil {
		r.rc.registry.subscribe(o, newCellKey(r.ptr, kind, name))
	}
}

// Get resolves key, subscribing the currently running (non-hidden)
// observer, if any, and wraps the result if it is itself an object
// this package knows how to wrap.
func (r *Reactor) Get(key string) (any, error) {
	r.track(keyValue, key)

	raw, err := r.rawGet(key)
	if err != nil {
		return nil, err
	}
	return r.maybeWrap(raw), nil
}

func (r *Reactor) rawGet(key string) (any, error) {
	switch r.kind {
	case kindStruct:
		fv, err := r.structField(key)
		if err != nil {
			return nil, err
		}
		return fv.Interface(), nil

	case kindMap:
		mv := r.elem.MapIndex(reflect.ValueOf(key))
		if !mv.IsValid() {
			return nil, nil
		}
		return mv.Interface(), nil

	case kindSlice:
		if key == "Len" {
			return r.elem.Len(), nil
		}
		idx, err := sliceIndex(key, r.elem.Len())
		if err != nil {
			return nil, err
		}
		return r.elem.Index(idx).Interface(), nil
	}
	panic("unreachable")
}

func (r *Reactor) structField(key string) (reflect.Value, error) {
	fv := r.elem.FieldByName(key)
	if !fv.IsValid() {
		return reflect.Value{}, fmt.Errorf("reactor: field %q: %w", key, ErrUnknownKey)
	}
	sf, _ := r.elem.Type().FieldByName(key)
	if sf.PkgPath != "" {
		return reflect.Value{}, fmt.Errorf("reactor: field %q: %w", key, ErrUnknownKey)
	}
	return fv, nil
}

func sliceIndex(key string, length int) (int, error) {
	idx, err := strconv.Atoi(key)
	if err != nil || idx < 0 || idx >= length {
		return 0, fmt.Errorf("reactor: index %q: %w", key, ErrUnknownKey)
	}
	return idx, nil
}

// maybeWrap returns a nested Reactor for a value this package knows
// how to wrap (a struct pointer, a string-keyed map, or a slice
// pointer); anything else, including plain (non-pointer) embedded
// structs, is returned as-is. Value-type embedded structs cannot be
// wrapped: Go passes them by value, so there is no stable pointer
// identity to key the canonical mapping on.
func (r *Reactor) maybeWrap(value any) any {
	if value == nil {
		return value
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Map:
		if wrapped, err := New(r.rc, value); err == nil {
			return wrapped
		}
	case reflect.Ptr:
		if !v.IsNil() && (v.Elem().Kind() == reflect.Struct || v.Elem().Kind() == reflect.Slice) {
			if wrapped, err := New(r.rc, value); err == nil {
				return wrapped
			}
		}
	}
	return value
}

// Set assigns newValue to key. It returns the write's own error (an
// unknown or unexported field, an out-of-range slice index) or, if
// the write succeeds and is not inside a batch or a nested drain, the
// aggregated error from the drain it triggers (§5.1, §8).
func (r *Reactor) Set(key string, newValue any) error {
	oldValue, _ := r.rawGet(key)

	existedBefore := r.hasRaw(key)
	keysBefore := r.ownKeysRaw()

	if err := r.rawSet(key, newValue); err != nil {
		return err
	}

	existedAfter := r.hasRaw(key)
	keysAfter := r.ownKeysRaw()
	effective, _ := r.rawGet(key)

	if reflect.DeepEqual(oldValue, effective) && existedBefore == existedAfter && sameStringSet(keysBefore, keysAfter) {
		return nil
	}

	return r.notifyChange(key, existedBefore != existedAfter, !sameStringSet(keysBefore, keysAfter))
}

func (r *Reactor) rawSet(key string, newValue any) error {
	switch r.kind {
	case kindStruct:
		fv, err := r.structField(key)
		if err != nil {
			return err
		}
		if !fv.CanSet() {
			return fmt.Errorf("reactor: field %q: %w", key, ErrNotWritable)
		}
		fv.Set(coerce(newValue, fv.Type()))
		return nil

	case kindMap:
		r.elem.SetMapIndex(reflect.ValueOf(key), coerce(newValue, r.elem.Type().Elem()))
		return nil

	case kindSlice:
		idx, err := sliceIndex(key, r.elem.Len())
		if err != nil {
			return err
		}
		r.elem.Index(idx).Set(coerce(newValue, r.elem.Type().Elem()))
		return nil
	}
	panic("unreachable")
}

// coerce lets callers pass an untyped literal (e.g. 150 for a float64
// field) the way a dynamically typed caller would; it falls back to a
// direct reflect.ValueOf when the value already matches.
func coerce(value any, target reflect.Type) reflect.Value {
	if value == nil {
		return reflect.Zero(target)
	}
	v := reflect.ValueOf(value)
	if v.Type().ConvertibleTo(target) && (v.Type() == target || v.Type().Kind() == target.Kind() || (isNumeric(v.Type().Kind()) && isNumeric(target.Kind()))) {
		return v.Convert(target)
	}
	return v
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// Has reports whether key exists, subscribing the current observer to
// the Has(key) cell.
func (r *Reactor) Has(key string) bool {
	r.track(keyHas, key)
	return r.hasRaw(key)
}

func (r *Reactor) hasRaw(key string) bool {
	switch r.kind {
	case kindStruct:
		_, err := r.structField(key)
		return err == nil
	case kindMap:
		return r.elem.MapIndex(reflect.ValueOf(key)).IsValid()
	case kindSlice:
		if key == "Len" {
			return true
		}
		_, err := sliceIndex(key, r.elem.Len())
		return err == nil
	}
	panic("unreachable")
}

// Delete removes key. Struct fields have a fixed shape at compile
// time and cannot be deleted (ErrFixedShape); map entries behave like
// Go's builtin delete.
func (r *Reactor) Delete(key string) error {
	if r.kind == kindStruct {
		return fmt.Errorf("reactor: field %q: %w", key, ErrFixedShape)
	}
	if r.kind == kindSlice {
		return fmt.Errorf("reactor: index %q: %w", key, ErrFixedShape)
	}

	existedBefore := r.hasRaw(key)
	if !existedBefore {
		return nil
	}
	oldValue, _ := r.rawGet(key)
	keysBefore := r.ownKeysRaw()

	r.elem.SetMapIndex(reflect.ValueOf(key), reflect.Value{})

	keysAfter := r.ownKeysRaw()
	_ = oldValue
	return r.notifyChange(key, true, !sameStringSet(keysBefore, keysAfter))
}

// OwnKeys returns the own-key enumeration, subscribing the current
// observer to the OwnKeys cell. Struct sources return exported field
// names in declaration order, matching the original's insertion-order
// guarantee. Map sources return keys sorted lexicographically: Go
// deliberately randomizes map iteration order, so sorted order is the
// only deterministic choice available (§11, Open Question 3). Slice
// sources return numeric indices as strings, plus "Len".
func (r *Reactor) OwnKeys() []string {
	r.track(keyOwnKeys, "")
	return r.ownKeysRaw()
}

func (r *Reactor) ownKeysRaw() []string {
	switch r.kind {
	case kindStruct:
		t := r.elem.Type()
		keys := make([]string, 0, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			if t.Field(i).PkgPath == "" {
				keys = append(keys, t.Field(i).Name)
			}
		}
		return keys

	case kindMap:
		keys := make([]string, 0, r.elem.Len())
		for _, k := range r.elem.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return keys

	case kindSlice:
		n := r.elem.Len()
		keys := make([]string, n+1)
		for i := 0; i < n; i++ {
			keys[i] = strconv.Itoa(i)
		}
		keys[n] = "Len"
		return keys
	}
	panic("unreachable")
}

// Append grows a slice-backed Reactor in place, the Go analogue of
// Array.prototype.push flowing through the set/deleteProperty traps
// (§5.1 point 4): the real backing slice is mutated, and the value and
// Has cells of each new index, the Len cell, and the OwnKeys cell are
// notified.
func (r *Reactor) Append(values ...any) error {
	if r.kind != kindSlice {
		return fmt.Errorf("reactor: Append: %w", ErrNotAnObject)
	}
	lenBefore := r.elem.Len()
	keysBefore := r.ownKeysRaw()
	elemType := r.elem.Type().Elem()
	for _, value := range values {
		r.elem.Set(reflect.Append(r.elem, coerce(value, elemType)))
	}
	keysAfter := r.ownKeysRaw()
	if sameStringSet(keysBefore, keysAfter) {
		return nil
	}
	for i := lenBefore; i < r.elem.Len(); i++ {
		r.rc.enqueueCell(newCellKey(r.ptr, keyValue, strconv.Itoa(i)))
		r.rc.enqueueCell(newCellKey(r.ptr, keyHas, strconv.Itoa(i)))
	}
	return r.notifyChange("Len", false, true)
}

// notifyChange enqueues (and, outside a batch, drains) the cells
// whose observable projection changed: the value cell always, the
// Has(key) cell only if existence changed, and the OwnKeys cell only
// if the key set changed (§5.1).
func (r *Reactor) notifyChange(key string, existenceChanged, keysChanged bool) error {
	r.rc.enqueueCell(newCellKey(r.ptr, keyValue, key))
	if existenceChanged {
		r.rc.enqueueCell(newCellKey(r.ptr, keyHas, key))
	}
	if keysChanged {
		r.rc.enqueueCell(newCellKey(r.ptr, keyOwnKeys, ""))
	}
	return r.rc.drainIfReady()
}

func sameStringSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, k := range a {
		seen[k]++
	}
	for _, k := range b {
		seen[k]--
	}
	for _, n := range seen {
		if n != 0 {
			return false
		}
	}
	return true
}
