package realtime

import (
	"testing"
)

type fakeConn struct {
	events []Event
	closed bool
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	if e, ok := v.(Event); ok {
		f.events = append(f.events, e)
	}
	return nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func TestRegistry_RegisterLookupUnregister(t *testing.T) {
	r := NewRegistry()
	c1 := &fakeConn{}

	r.Register("u1", c1)
	if got := r.Lookup("u1"); got != c1 {
		t.Fatalf("Lookup returned %v, want the registered conn", got)
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}

	r.Unregister(c1)
	if got := r.Lookup("u1"); got != nil {
		t.Fatalf("expected nil after unregister, got %v", got)
	}
	if r.Len() != 0 {
		t.Fatalf("Len = %d, want 0", r.Len())
	}
}

func TestRegistry_ReplacementClosesPrevious(t *testing.T) {
	r := NewRegistry()
	old := &fakeConn{}
	newer := &fakeConn{}

	r.Register("u1", old)
	r.Register("u1", newer)

	if !old.closed {
		t.Fatal("previous connection should be closed on replacement")
	}
	if got := r.Lookup("u1"); got != newer {
		t.Fatalf("Lookup returned %v, want the replacement conn", got)
	}

	// a late disconnect of the old socket must not evict the new one
	r.Unregister(old)
	if got := r.Lookup("u1"); got != newer {
		t.Fatal("stale unregister evicted the current connection")
	}
}

func TestRegistry_IsolatedPerUser(t *testing.T) {
	r := NewRegistry()
	a := &fakeConn{}
	b := &fakeConn{}
	r.Register("userA", a)
	r.Register("userB", b)

	if r.Lookup("userA") != a || r.Lookup("userB") != b {
		t.Fatal("registry mixed up users")
	}

	r.Unregister(a)
	if r.Lookup("userB") != b {
		t.Fatal("unregistering userA's conn must not affect userB")
	}
}
