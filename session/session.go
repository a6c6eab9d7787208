// Package session implements the per-handler session store: allocation,
// lookup, and teardown of sessions, each carrying a side-specific lifecycle
// machine and the per-state exchange machines scoped to it.
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/nwaples/wirelink/exchange"
	"github.com/nwaples/wirelink/lifecycle"
)

// Role distinguishes which side of a handler a session belongs to: the
// initiator (Client) or the responder (Server). It governs which lifecycle
// machine variant the session carries.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

// Session is a single (type, id) conversation scoped to one handler range.
// The originator is always the finalizer: a client-role session issues Start
// and Finish; a server-role session only answers and waits for Finish.
type Session struct {
	Type uint64
	ID   uuid.UUID
	Role Role

	ClientLifecycle *lifecycle.Client
	ServerLifecycle *lifecycle.Server

	mu            sync.Mutex
	values        map[string][]byte
	clientStates  map[string]*exchange.Client
	serverStates  map[string]*exchange.Server
	checks        map[string]exchange.Check
}

// NewClientSession returns a session in the initiator role, carrying a
// Client lifecycle machine.
func NewClientSession(typ uint64, id uuid.UUID, checks map[string]exchange.Check) *Session {
	return &Session{
		Type:            typ,
		ID:              id,
		Role:            RoleClient,
		ClientLifecycle: lifecycle.NewClient(),
		values:          make(map[string][]byte),
		clientStates:    make(map[string]*exchange.Client),
		serverStates:    make(map[string]*exchange.Server),
		checks:          checks,
	}
}

// NewServerSession returns a session in the responder role, carrying a
// Server lifecycle machine.
func NewServerSession(typ uint64, id uuid.UUID, checks map[string]exchange.Check) *Session {
	return &Session{
		Type:            typ,
		ID:              id,
		Role:            RoleServer,
		ServerLifecycle: lifecycle.NewServer(),
		values:          make(map[string][]byte),
		clientStates:    make(map[string]*exchange.Client),
		serverStates:    make(map[string]*exchange.Server),
		checks:          checks,
	}
}

// Value returns the last value committed for state within this session.
func (s *Session) Value(state string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[state]
	return v, ok
}

// SetValue commits value for state within this session.
func (s *Session) SetValue(state string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[state] = value
}

// ClientState returns this session's Client exchange machine for state,
// creating it on first use.
func (s *Session) ClientState(state string) *exchange.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.clientStates[state]
	if !ok {
		m = exchange.NewClient()
		s.clientStates[state] = m
	}
	return m
}

// ServerState returns this session's Server exchange machine for state,
// creating it (with the state's registered check predicate, if any) on
// first use.
func (s *Session) ServerState(state string) *exchange.Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.serverStates[state]
	if !ok {
		m = exchange.NewServer(s.checks[state])
		s.serverStates[state] = m
	}
	return m
}
