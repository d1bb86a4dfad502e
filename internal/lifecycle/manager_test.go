package lifecycle

import (
	"errors"
	"testing"
)

type fakeCloser struct {
	err    error
	closed bool
}

func (f *fakeCloser) Close() error {
	f.closed = true
	return f.err
}

func TestCloseClosesResourcesInReverseOrder(t *testing.T) {
	m := NewManager()
	var order []string
	m.RegisterFunc("first", func() error { order = append(order, "first"); return nil })
	m.RegisterFunc("second", func() error { order = append(order, "second"); return nil })
	m.RegisterFunc("third", func() error { order = append(order, "third"); return nil })

	if err := m.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"third", "second", "first"}
	if len(order) != len(want) {
		t.Fatalf("expected %d closes, got %d", len(want), len(order))
	}
	for i, name := range want {
		if order[i] != name {
			t.Errorf("expected close order[%d]=%s, got %s", i, name, order[i])
		}
	}
}

func TestCloseReturnsFirstErrorButClosesAllResources(t *testing.T) {
	m := NewManager()
	a := &fakeCloser{err: errors.New("a failed")}
	b := &fakeCloser{err: errors.New("b failed")}
	c := &fakeCloser{}

	m.Register("a", a)
	m.Register("b", b)
	m.Register("c", c)

	err := m.Close()
	if err == nil {
		t.Fatal("expected an aggregated error to be returned")
	}
	if err.Error() != "b failed" {
		t.Errorf("expected the first error encountered during LIFO teardown (b, closed before a), got %v", err)
	}
	if !a.closed || !b.closed || !c.closed {
		t.Error("expected every registered resource to be closed despite earlier failures")
	}
}

func TestCloseOnEmptyManagerReturnsNil(t *testing.T) {
	m := NewManager()
	if err := m.Close(); err != nil {
		t.Fatalf("expected nil for an empty manager, got %v", err)
	}
}
