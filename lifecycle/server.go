package lifecycle

import (
	"sync"

	"github.com/nwaples/wirelink/waypoint"
)

var serverEdges = waypoint.Edges{
	"ready":        {"start"},
	"start":        {"finish", "done"},
	"done":         {"finish"},
	"finish":       {"accomplished"},
	"accomplished": {},
}

// Server is the session-responder's lifecycle machine: it answers the
// initiator's Start with Accept, Refuse, or Busy, and waits for the
// initiator's Finish.
type Server struct {
	mu      sync.Mutex
	machine *waypoint.Machine
}

// NewServer returns a Server lifecycle machine starting in "ready".
func NewServer() *Server {
	return &Server{machine: waypoint.New("ready", serverEdges)}
}

// State returns the machine's current state label.
func (s *Server) State() string { return s.machine.State() }

// BeginStart transitions ready -> start, recording that a session has been
// opened (refuse/busy dispositions do not advance this machine further since
// no session persists past them).
func (s *Server) BeginStart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Goto("start")
}

// MarkDone transitions start -> done, recording that this side has nothing
// more to offer and has emitted DonePacket.
func (s *Server) MarkDone() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Goto("done")
}

// Finish transitions to "finish" then "accomplished" on receipt of the
// initiator's FinishPacket.
func (s *Server) Finish() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.machine.Goto("finish"); err != nil {
		return err
	}
	return s.machine.Goto("accomplished")
}
