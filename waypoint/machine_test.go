package waypoint

import "testing"

var testEdges = Edges{
	"ready":        {"tell", "show"},
	"show":         {"confirm"},
	"tell":         {"confirm"},
	"confirm":      {"accomplished"},
	"accomplished": {},
}

func TestGotoAllowed(t *testing.T) {
	m := New("ready", testEdges)
	if err := m.Goto("tell"); err != nil {
		t.Fatalf("ready -> tell: %v", err)
	}
	if m.State() != "tell" {
		t.Fatalf("state = %q, want tell", m.State())
	}
	if err := m.Goto("confirm"); err != nil {
		t.Fatalf("tell -> confirm: %v", err)
	}
	if err := m.Goto("accomplished"); err != nil {
		t.Fatalf("confirm -> accomplished: %v", err)
	}
}

func TestGotoIllegalLeavesStateUnchanged(t *testing.T) {
	m := New("ready", testEdges)
	if err := m.Goto("accomplished"); err == nil {
		t.Fatal("expected illegal transition error")
	}
	if m.State() != "ready" {
		t.Fatalf("state changed after illegal transition: %q", m.State())
	}
}

func TestGotoFromTerminalState(t *testing.T) {
	m := New("accomplished", testEdges)
	if err := m.Goto("ready"); err == nil {
		t.Fatal("expected illegal transition error from terminal state")
	}
}

func TestIs(t *testing.T) {
	m := New("ready", testEdges)
	if !m.Is("ready") {
		t.Fatal("Is(ready) = false")
	}
	if m.Is("tell") {
		t.Fatal("Is(tell) = true before transition")
	}
}
