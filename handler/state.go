package handler

import (
	"sync"

	"github.com/nwaples/wirelink/exchange"
)

// stateStore holds the handler-scoped named states: those exchanged outside
// any session. Session-scoped states live on the *session.Session instead
// (see session.Session.ClientState/ServerState); the two are kept separate
// because their lifetimes differ (handler lifetime vs. session lifetime).
type stateStore struct {
	mu       sync.Mutex
	values   map[string][]byte
	clientEx map[string]*exchange.Client
	serverEx map[string]*exchange.Server
	checks   map[string]exchange.Check
}

func newStateStore(checks map[string]exchange.Check) *stateStore {
	return &stateStore{
		values:   make(map[string][]byte),
		clientEx: make(map[string]*exchange.Client),
		serverEx: make(map[string]*exchange.Server),
		checks:   checks,
	}
}

func (s *stateStore) Value(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[name]
	return v, ok
}

func (s *stateStore) SetValue(name string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = value
}

func (s *stateStore) ClientState(name string) *exchange.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.clientEx[name]
	if !ok {
		m = exchange.NewClient()
		s.clientEx[name] = m
	}
	return m
}

func (s *stateStore) ServerState(name string) *exchange.Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.serverEx[name]
	if !ok {
		m = exchange.NewServer(s.checks[name])
		s.serverEx[name] = m
	}
	return m
}
