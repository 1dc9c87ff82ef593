package world

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/isrecalpear/quantum-space-buddies/pkg/axlog"
)

var (
	ErrNotFound  = errors.New("world object not found")
	ErrWrongType = errors.New("world object has unexpected type")
)

// Registry assigns ids in registration order. Ids are never reused until
// Clear.
type Registry struct {
	mu       sync.RWMutex
	objects  map[int]Object
	next     int
	expected int

	readying atomic.Int64
	logger   axlog.Logger
}

func NewRegistry(logger axlog.Logger) *Registry {
	return &Registry{
		objects: make(map[int]Object),
		logger:  axlog.OrDiscard(logger),
	}
}

// Register assigns the next id to obj and calls its Init.
func (r *Registry) Register(obj Object) int {
	r.mu.Lock()
	id := r.next
	r.next++
	r.objects[id] = obj
	r.mu.Unlock()

	if b, ok := obj.(binder); ok {
		b.bind(r, id)
	}
	obj.Init()

	r.logger.Debug("world object registered", "object", r.LogName(id))
	return id
}

func (r *Registry) Get(id int) (Object, error) {
	r.mu.RLock()
	obj, ok := r.objects[id]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return obj, nil
}

// Get returns the object with id as a T.
func Get[T any](r *Registry, id int) (T, error) {
	var zero T
	obj, err := r.Get(id)
	if err != nil {
		return zero, err
	}
	t, ok := obj.(T)
	if !ok {
		return zero, fmt.Errorf("%w: id %d is %T", ErrWrongType, id, obj)
	}
	return t, nil
}

// Remove calls OnRemoval and forgets the object. The id is not reused.
func (r *Registry) Remove(id int) error {
	r.mu.Lock()
	obj, ok := r.objects[id]
	delete(r.objects, id)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	obj.OnRemoval()
	return nil
}

// Clear removes every object and restarts ids and readiness from zero.
func (r *Registry) Clear() {
	objs := r.Objects()

	r.mu.Lock()
	clear(r.objects)
	r.next = 0
	r.expected = 0
	r.mu.Unlock()
	r.readying.Store(0)

	for _, obj := range objs {
		obj.OnRemoval()
	}
}

// ==================================================================
// Readiness
// ==================================================================

func (r *Registry) MarkDelayedReady() {
	r.readying.Add(1)
}

// FinishDelayedReady undoes one MarkDelayedReady. The counter never goes
// below zero.
func (r *Registry) FinishDelayedReady() {
	for {
		n := r.readying.Load()
		if n <= 0 {
			r.logger.Warn("finish delayed ready without matching mark")
			return
		}
		if r.readying.CompareAndSwap(n, n-1) {
			return
		}
	}
}

// SetExpectedCount sets how many objects must be registered before
// AllReady can report true.
func (r *Registry) SetExpectedCount(n int) {
	r.mu.Lock()
	r.expected = n
	r.mu.Unlock()
}

func (r *Registry) Readying() int {
	return int(r.readying.Load())
}

// AllReady reports whether no object is still becoming ready and the
// expected count has been registered.
func (r *Registry) AllReady() bool {
	if r.readying.Load() != 0 {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objects) >= r.expected
}

// ==================================================================
// Queries
// ==================================================================

// Objects returns the live objects ordered by id.
func (r *Registry) Objects() []Object {
	r.mu.RLock()
	ids := make([]int, 0, len(r.objects))
	for id := range r.objects {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	objs := make([]Object, len(ids))
	for i, id := range ids {
		objs[i] = r.objects[id]
	}
	r.mu.RUnlock()
	return objs
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objects)
}

// LogName formats an object as "id:Type (name)".
func (r *Registry) LogName(id int) string {
	obj, err := r.Get(id)
	if err != nil {
		return fmt.Sprintf("%d:<missing>", id)
	}

	typ := fmt.Sprintf("%T", obj)
	typ = strings.TrimPrefix(typ, "*")
	if i := strings.LastIndexByte(typ, '.'); i >= 0 {
		typ = typ[i+1:]
	}

	name := "<unnamed>"
	if n, ok := obj.(Named); ok {
		name = n.Name()
	}
	return fmt.Sprintf("%d:%s (%s)", id, typ, name)
}
