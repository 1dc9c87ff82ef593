// Package world tracks the objects whose state is shared between peers. Every
// object gets a dense id from a Registry; the id is the same on every peer
// that registers the same objects in the same order.
package world

// Object is implemented by every world object variant.
type Object interface {
	// Init runs once, right after the object has its id.
	Init()
	// OnRemoval runs when the object leaves the registry.
	OnRemoval()
	IsReady() bool
}

// Base is embedded by variants to carry the registry-assigned id.
type Base struct {
	id       int
	registry *Registry
}

func (b *Base) bind(r *Registry, id int) {
	b.registry = r
	b.id = id
}

func (b *Base) ObjectID() int {
	return b.id
}

// Registry returns the registry the object belongs to, or nil before
// registration.
func (b *Base) Registry() *Registry {
	return b.registry
}

func (b *Base) Init() {}

func (b *Base) OnRemoval() {}

func (b *Base) IsReady() bool {
	return b.registry != nil
}

// MarkDelayedReady tells the registry this object is not ready yet.
func (b *Base) MarkDelayedReady() {
	if b.registry != nil {
		b.registry.MarkDelayedReady()
	}
}

func (b *Base) FinishDelayedReady() {
	if b.registry != nil {
		b.registry.FinishDelayedReady()
	}
}

type binder interface {
	bind(r *Registry, id int)
}

// Named objects report a display name used in LogName.
type Named interface {
	Name() string
}
