package lifecycle

import "testing"

func TestClientAcceptFlow(t *testing.T) {
	c := NewClient()
	result, err := c.BeginStart()
	if err != nil {
		t.Fatalf("BeginStart: %v", err)
	}
	if err := c.ResolveAccept(); err != nil {
		t.Fatalf("ResolveAccept: %v", err)
	}
	if c.State() != "accept" {
		t.Fatalf("state = %q, want accept", c.State())
	}
	if got := <-result; got != Accepted {
		t.Errorf("outcome = %v, want Accepted", got)
	}
	if err := c.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if c.State() != "accomplished" {
		t.Fatalf("state = %q, want accomplished", c.State())
	}
}

func TestClientRefuseFlow(t *testing.T) {
	c := NewClient()
	result, err := c.BeginStart()
	if err != nil {
		t.Fatalf("BeginStart: %v", err)
	}
	if err := c.ResolveRefuse(); err != nil {
		t.Fatalf("ResolveRefuse: %v", err)
	}
	if got := <-result; got != Refused {
		t.Errorf("outcome = %v, want Refused", got)
	}
	if c.State() != "accomplished" {
		t.Fatalf("state = %q, want accomplished", c.State())
	}
}

func TestClientBusyFlow(t *testing.T) {
	c := NewClient()
	result, err := c.BeginStart()
	if err != nil {
		t.Fatalf("BeginStart: %v", err)
	}
	if err := c.ResolveBusy(); err != nil {
		t.Fatalf("ResolveBusy: %v", err)
	}
	if got := <-result; got != Busy {
		t.Errorf("outcome = %v, want Busy", got)
	}
}

func TestClientDoneAfterAccept(t *testing.T) {
	c := NewClient()
	result, err := c.BeginStart()
	if err != nil {
		t.Fatalf("BeginStart: %v", err)
	}
	if err := c.ResolveAccept(); err != nil {
		t.Fatalf("ResolveAccept: %v", err)
	}
	<-result
	if err := c.ResolveDone(); err != nil {
		t.Fatalf("ResolveDone: %v", err)
	}
	if c.State() != "done" {
		t.Fatalf("state = %q, want done", c.State())
	}
	if err := c.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
}

func TestClientResolveTwiceFails(t *testing.T) {
	c := NewClient()
	if _, err := c.BeginStart(); err != nil {
		t.Fatalf("BeginStart: %v", err)
	}
	if err := c.ResolveAccept(); err != nil {
		t.Fatalf("ResolveAccept: %v", err)
	}
	if err := c.ResolveRefuse(); err == nil {
		t.Fatal("expected error resolving an already-resolved session")
	}
}

func TestServerStartAcceptFinish(t *testing.T) {
	s := NewServer()
	if err := s.BeginStart(); err != nil {
		t.Fatalf("BeginStart: %v", err)
	}
	if err := s.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if s.State() != "accomplished" {
		t.Fatalf("state = %q, want accomplished", s.State())
	}
}

func TestServerDoneThenFinish(t *testing.T) {
	s := NewServer()
	if err := s.BeginStart(); err != nil {
		t.Fatalf("BeginStart: %v", err)
	}
	if err := s.MarkDone(); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	if err := s.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
}
