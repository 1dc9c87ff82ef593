package world

import (
	"errors"
	"sync"
	"testing"
)

type dummy struct {
	Base
	name    string
	inits   int
	removed int
}

func (p *dummy) Init()        { p.inits++ }
func (p *dummy) OnRemoval()   { p.removed++ }
func (p *dummy) Name() string { return p.name }

type other struct {
	Base
}

// TestRegisterDenseIDs tests ids are assigned densely in registration order.
func TestRegisterDenseIDs(t *testing.T) {
	r := NewRegistry(nil)
	objects := make([]*dummy, 5)
	for i := range objects {
		objects[i] = &dummy{}
		if id := r.Register(objects[i]); id != i {
			t.Fatalf("Register #%d got id %d", i, id)
		}
	}

	for i, p := range objects {
		if p.ObjectID() != i || p.Registry() != r {
			t.Errorf("dummy %d bound to id %d", i, p.ObjectID())
		}
		if p.inits != 1 {
			t.Errorf("dummy %d Init called %d times", i, p.inits)
		}
	}

	if err := r.Remove(2); err != nil {
		t.Fatal(err)
	}
	if objects[2].removed != 1 {
		t.Error("OnRemoval not called")
	}
	if id := r.Register(&dummy{}); id != 5 {
		t.Fatalf("removed id reused, got %d", id)
	}

	r.Clear()
	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", r.Len())
	}
	if id := r.Register(&dummy{}); id != 0 {
		t.Fatalf("expected ids to restart after Clear, got %d", id)
	}
}

// TestGet tests lookups by id and by type.
func TestGet(t *testing.T) {
	r := NewRegistry(nil)
	p := &dummy{name: "slot"}
	id := r.Register(p)
	r.Register(&other{})

	got, err := Get[*dummy](r, id)
	if err != nil || got != p {
		t.Fatalf("Get[*dummy] = %v, %v", got, err)
	}
	if _, err := Get[*dummy](r, 1); !errors.Is(err, ErrWrongType) {
		t.Fatalf("expected ErrWrongType, got %v", err)
	}
	if _, err := r.Get(42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if name := r.LogName(id); name != "0:dummy (slot)" {
		t.Errorf("LogName = %q", name)
	}
}

// TestAllReady tests the delayed-ready counter and expected count.
func TestAllReady(t *testing.T) {
	r := NewRegistry(nil)
	r.SetExpectedCount(2)

	a := &dummy{}
	r.Register(a)
	if r.AllReady() {
		t.Fatal("ready before expected count")
	}

	a.MarkDelayedReady()
	b := &dummy{}
	r.Register(b)
	b.MarkDelayedReady()
	if r.AllReady() {
		t.Fatal("ready with objects still readying")
	}

	a.FinishDelayedReady()
	if r.AllReady() {
		t.Fatal("ready with one object still readying")
	}
	b.FinishDelayedReady()
	if !r.AllReady() {
		t.Fatal("expected ready once the counter returns to zero")
	}

	r.FinishDelayedReady()
	if r.Readying() != 0 || !r.AllReady() {
		t.Fatal("unmatched finish should not drive the counter negative")
	}
}

// TestDelayedReadyConcurrent tests unmatched finishes never cancel marks
// made by other goroutines.
func TestDelayedReadyConcurrent(t *testing.T) {
	r := NewRegistry(nil)

	const marks, strays = 50, 20
	var wg sync.WaitGroup
	for i := 0; i < marks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.MarkDelayedReady()
		}()
	}
	for i := 0; i < strays; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.FinishDelayedReady()
		}()
	}
	wg.Wait()

	if n := r.Readying(); n < marks-strays || n > marks {
		t.Fatalf("readying %d, want between %d and %d", n, marks-strays, marks)
	}
	for r.Readying() > 0 {
		r.FinishDelayedReady()
	}
	r.FinishDelayedReady()
	if r.Readying() != 0 {
		t.Fatalf("readying %d after extra finish", r.Readying())
	}
}
