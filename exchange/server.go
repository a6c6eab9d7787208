package exchange

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/nwaples/wirelink/packet"
	"github.com/nwaples/wirelink/waypoint"
)

var serverEdges = waypoint.Edges{
	"ready":        {"show", "tell"},
	"show":         {"tell"},
	"tell":         {"accomplished"},
	"accomplished": {},
}

// Check decides whether a proposed value is acceptable, returning the code
// carried back to the proposer in the Confirm reply.
type Check func(value []byte) packet.ConfirmCode

// Server coordinates a value the peer proposes to, or requests from, this
// side's named state.
type Server struct {
	mu      sync.Mutex
	machine *waypoint.Machine
	check   Check
	value   []byte
	cond    *sync.Cond
	pending bool
}

// NewServer returns a Server exchange machine starting in "ready". check may
// be nil, in which case proposed values draw NoComment and are never committed.
func NewServer(check Check) *Server {
	s := &Server{machine: waypoint.New("ready", serverEdges), check: check}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// State returns the machine's current state label.
func (s *Server) State() string { return s.machine.State() }

// BeginShow transitions ready -> show, recording that this side has been
// asked to push its current value for the state.
func (s *Server) BeginShow() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Goto("show")
}

// AwaitOwnTell transitions show -> tell, immediately before replying to the
// peer's Show with our own Tell of the current value.
func (s *Server) AwaitOwnTell() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Goto("tell")
}

// BeginTell runs check against value, transitions ready -> tell, commits
// value only if check returns Yes, and transitions tell -> accomplished. With
// no check installed the reply is always NoComment and nothing is committed.
// It returns the ConfirmCode to reply with.
func (s *Server) BeginTell(value []byte) (packet.ConfirmCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.machine.Goto("tell"); err != nil {
		return packet.NoComment, err
	}
	code := packet.NoComment
	if s.check != nil {
		code = s.check(value)
	}
	if code == packet.Yes {
		s.value = value
		s.pending = true
		s.cond.Broadcast()
	}
	if err := s.machine.Goto("accomplished"); err != nil {
		return code, err
	}
	return code, nil
}

// ResolveConfirm transitions tell -> accomplished after this side's own Tell
// (sent in reply to the peer's Show) has been acknowledged by the peer's Confirm.
func (s *Server) ResolveConfirm() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.machine.Is("tell") {
		return errors.Wrap(ErrNotInFlight, "resolve confirm")
	}
	return s.machine.Goto("accomplished")
}

// Value returns the most recently accepted value and whether one has ever
// been accepted.
func (s *Server) Value() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.pending
}

// Wait blocks until a value has been accepted, or the machine reaches
// "accomplished" with one already set, or done is closed.
func (s *Server) Wait(done <-chan struct{}) ([]byte, bool) {
	ch := make(chan struct{})
	go func() {
		s.mu.Lock()
		for !s.pending {
			s.cond.Wait()
		}
		s.mu.Unlock()
		close(ch)
	}()
	select {
	case <-ch:
		return s.Value()
	case <-done:
		return nil, false
	}
}
