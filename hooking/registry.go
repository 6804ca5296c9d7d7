package hooking

import (
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
)

// ErrEntryPointNotFound is returned when a name does not match any entry
// point of a registry.
var ErrEntryPointNotFound = errors.New("entry point not found")

// ErrCastMismatch is returned when an entry point is fetched as a type that
// does not match its calling convention.
var ErrCastMismatch = errors.New("calling convention mismatch")

// A Handle is the stable index of an entry point in its Registry.
type Handle int

// A Registry owns a set of entry points and hands out handles for them.
// Entries are never removed, so handles stay valid for the registry's whole
// lifetime. A Registry is safe to read from other goroutines.
type Registry struct {
	mu        sync.RWMutex
	entries   []EntryPoint
	nameIndex map[string]Handle
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		nameIndex: make(map[string]Handle),
	}
}

// Add registers an entry point and returns its handle.
func (r *Registry) Add(ep EntryPoint) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := ep.Name()
	if _, ok := r.nameIndex[name]; ok {
		panic("entry point " + name + " already registered")
	}

	h := Handle(len(r.entries))
	r.entries = append(r.entries, ep)
	r.nameIndex[name] = h

	r.bindIfNeeded(ep, h)

	return h
}

// At returns the entry point behind a handle. Handles are not checked; they
// must come from Add or HandleFor.
func (r *Registry) At(h Handle) EntryPoint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.entries[h]
}

// HandleFor returns the handle of the named entry point.
func (r *Registry) HandleFor(name string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.nameIndex[name]
	return h, ok
}

// Lookup returns the named entry point.
func (r *Registry) Lookup(name string) (EntryPoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.nameIndex[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryPointNotFound, name)
	}

	return r.entries[h], nil
}

// Replace puts a new entry point behind an existing handle. The new entry
// point must carry the same name.
func (r *Registry) Replace(h Handle, ep EntryPoint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.entries[h]
	if old.Name() != ep.Name() {
		log.Panicf("cannot replace entry point %s with %s",
			old.Name(), ep.Name())
	}

	r.entries[h] = ep
	r.bindIfNeeded(ep, h)
}

// Len returns the number of entry points registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// EntryPoints returns the entry points in registration order.
func (r *Registry) EntryPoints() []EntryPoint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.entries)
}

// RemoveOwner removes every hook added by the owner from every entry point
// and returns how many hooks were removed.
func (r *Registry) RemoveOwner(owner string) int {
	removed := 0
	for _, ep := range r.EntryPoints() {
		removed += ep.RemoveByOwner(owner)
	}

	return removed
}

func (r *Registry) bindIfNeeded(ep EntryPoint, h Handle) {
	if p, ok := ep.(*PairEntryPoint); ok && p.CastType() == CastConstruct {
		p.bind(r, h)
	}
}

// Register inserts a hook into the named entry point. The hook's function
// type must match the calling convention of the entry point.
func Register[F any](r *Registry, epName string, policy Policy, hook Hook[F]) error {
	ep, err := r.Lookup(epName)
	if err != nil {
		return err
	}

	list, ok := ep.(interface {
		Insert(policy Policy, hook Hook[F]) error
	})
	if !ok {
		return fmt.Errorf("%w: hook %s does not fit %s entry point %s",
			ErrCastMismatch, hook.Name, ep.CastType(), epName)
	}

	return list.Insert(policy, hook)
}
