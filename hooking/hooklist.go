package hooking

import (
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
)

// ErrDuplicateHook is returned when a hook name is already used in an entry
// point. The existing hook is kept.
var ErrDuplicateHook = errors.New("duplicated hook")

// ErrHookNotFound is returned when an edit names a hook that does not exist.
var ErrHookNotFound = errors.New("hook not found")

// Policy selects where Insert places a hook.
type Policy int

// Insertion policies.
const (
	// Append adds the hook after every ordinary hook, but before the hooks
	// pinned last.
	Append Policy = iota
	// AppendAlwaysLast adds the hook at the very end and keeps it there.
	AppendAlwaysLast
	// Prepend adds the hook before every ordinary hook, but after the hooks
	// pinned first.
	Prepend
	// PrependAlwaysFirst adds the hook at the very front and keeps it there.
	PrependAlwaysFirst
)

// A HookList is the ordered hook storage shared by every entry point type.
//
// Hooks are kept in one slice made of three segments: the hooks pinned first,
// the ordinary hooks, and the hooks pinned last. A HookList may be read from
// other goroutines while it is edited; dispatch runs over a snapshot.
type HookList[F any] struct {
	name     string
	castType CastType

	mu       sync.RWMutex
	hooks    []Hook[F]
	numFirst int
	numLast  int
}

func (l *HookList[F]) init(name string, castType CastType) {
	l.name = name
	l.castType = castType
}

// Name returns the name of the entry point.
func (l *HookList[F]) Name() string {
	return l.name
}

// CastType returns the calling convention of the entry point.
func (l *HookList[F]) CastType() CastType {
	return l.castType
}

// NumHooks returns the number of hooks registered.
func (l *HookList[F]) NumHooks() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.hooks)
}

// Hooks returns a copy of the hooks in dispatch order.
func (l *HookList[F]) Hooks() []Hook[F] {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return slices.Clone(l.hooks)
}

// hookAt returns the i-th hook in dispatch order.
func (l *HookList[F]) hookAt(i int) (Hook[F], bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if i >= len(l.hooks) {
		return Hook[F]{}, false
	}

	return l.hooks[i], true
}

// HookInfos describes the hooks in dispatch order.
func (l *HookList[F]) HookInfos() []HookInfo {
	l.mu.RLock()
	defer l.mu.RUnlock()

	infos := make([]HookInfo, len(l.hooks))
	for i, h := range l.hooks {
		infos[i] = HookInfo{Name: h.Name, Owner: h.Owner, Pin: l.pinAt(i)}
	}

	return infos
}

// HookNames returns the hook names in dispatch order.
func (l *HookList[F]) HookNames() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, len(l.hooks))
	for i, h := range l.hooks {
		names[i] = h.Name
	}

	return names
}

// HasHook tells if a hook with the given name is registered.
func (l *HookList[F]) HasHook(name string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.indexOf(name) >= 0
}

// Insert adds a hook following the given policy.
func (l *HookList[F]) Insert(policy Policy, hook Hook[F]) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.indexOf(hook.Name) >= 0 {
		log.Printf("entry point %s: hook %s (added by %q) already registered, "+
			"keeping the existing one", l.name, hook.Name, hook.Owner)

		return fmt.Errorf("%w: %s in %s", ErrDuplicateHook, hook.Name, l.name)
	}

	switch policy {
	case Append:
		l.hooks = slices.Insert(l.hooks, len(l.hooks)-l.numLast, hook)
	case AppendAlwaysLast:
		l.hooks = append(l.hooks, hook)
		l.numLast++
	case Prepend:
		l.hooks = slices.Insert(l.hooks, l.numFirst, hook)
	case PrependAlwaysFirst:
		l.hooks = slices.Insert(l.hooks, 0, hook)
		l.numFirst++
	default:
		log.Panicf("unknown insertion policy %d", policy)
	}

	return nil
}

// Append adds an ordinary hook after the existing ordinary hooks.
func (l *HookList[F]) Append(name string, fn F, owner string) error {
	return l.Insert(Append, Hook[F]{Name: name, Func: fn, Owner: owner})
}

// Prepend adds an ordinary hook before the existing ordinary hooks.
func (l *HookList[F]) Prepend(name string, fn F, owner string) error {
	return l.Insert(Prepend, Hook[F]{Name: name, Func: fn, Owner: owner})
}

// AppendAlwaysLast pins a hook at the end of the entry point.
func (l *HookList[F]) AppendAlwaysLast(name string, fn F, owner string) error {
	return l.Insert(AppendAlwaysLast, Hook[F]{Name: name, Func: fn, Owner: owner})
}

// PrependAlwaysFirst pins a hook at the front of the entry point.
func (l *HookList[F]) PrependAlwaysFirst(
	name string,
	fn F,
	owner string,
) error {
	return l.Insert(
		PrependAlwaysFirst,
		Hook[F]{Name: name, Func: fn, Owner: owner},
	)
}

// Replace swaps the function of an existing hook, keeping its position. The
// hook is renamed to newName unless newName is empty.
func (l *HookList[F]) Replace(
	oldName, newName string,
	fn F,
	owner string,
) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(oldName)
	if i < 0 {
		return fmt.Errorf("%w: %s in %s", ErrHookNotFound, oldName, l.name)
	}

	if newName == "" {
		newName = oldName
	}

	if newName != oldName && l.indexOf(newName) >= 0 {
		return fmt.Errorf("%w: %s in %s", ErrDuplicateHook, newName, l.name)
	}

	l.hooks[i] = Hook[F]{
		Name:  newName,
		Func:  fn,
		Owner: owner,
		Ref:   l.hooks[i].Ref,
	}

	return nil
}

// Remove deletes the hook with the given name.
func (l *HookList[F]) Remove(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(name)
	if i < 0 {
		return fmt.Errorf("%w: %s in %s", ErrHookNotFound, name, l.name)
	}

	l.removeAt(i)

	return nil
}

// RemoveByOwner deletes every hook added by the owner and returns how many
// were removed.
func (l *HookList[F]) RemoveByOwner(owner string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0

	for i := len(l.hooks) - 1; i >= 0; i-- {
		if l.hooks[i].Owner == owner {
			l.removeAt(i)
			removed++
		}
	}

	return removed
}

// Purge deletes every hook.
func (l *HookList[F]) Purge() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.hooks = nil
	l.numFirst = 0
	l.numLast = 0
}

func (l *HookList[F]) removeAt(i int) {
	switch l.pinAt(i) {
	case PinnedFirst:
		l.numFirst--
	case PinnedLast:
		l.numLast--
	}

	l.hooks = slices.Delete(l.hooks, i, i+1)
}

func (l *HookList[F]) pinAt(i int) Pin {
	switch {
	case i < l.numFirst:
		return PinnedFirst
	case i >= len(l.hooks)-l.numLast:
		return PinnedLast
	default:
		return Unpinned
	}
}

func (l *HookList[F]) indexOf(name string) int {
	for i, h := range l.hooks {
		if h.Name == name {
			return i
		}
	}

	return -1
}

func (l *HookList[F]) hookErr(hookName string, err error) error {
	return fmt.Errorf("entry point %s, hook %s: %w", l.name, hookName, err)
}
