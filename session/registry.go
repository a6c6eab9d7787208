package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/nwaples/wirelink/exchange"
)

// Sentinel errors returned by Registry operations. Callers map these to
// wire-level dispositions (BusyPacket, RefusePacket) rather than matching
// error strings.
var (
	ErrMaxSessions  = errors.New("session: handler at max sessions")
	ErrIDInUse      = errors.New("session: id already in use")
	ErrUnknownType  = errors.New("session: type not known to this handler")
	ErrNotFound     = errors.New("session: no such session")
)

// Prepare is consulted by ProcessStart before a server-role session is
// admitted; returning an error refuses the session.
type Prepare func(typ uint64, id uuid.UUID) error

// Registry is a handler's session store: one map, one counter, one mutex,
// enforcing the max_sesh cap and the monotonically increasing allocation
// order required of a session initiator.
type Registry struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	counter  uint64
	max      int
	checks   map[string]exchange.Check
	prepare  Prepare
	known    map[uint64]bool
}

// NewRegistry returns an empty Registry enforcing max concurrent sessions.
// checks supplies the per-state check predicates new sessions' Server
// exchange machines are built with. known lists the session types this
// handler recognizes; prepare may be nil to admit every known type.
func NewRegistry(max int, known []uint64, checks map[string]exchange.Check, prepare Prepare) *Registry {
	k := make(map[uint64]bool, len(known))
	for _, t := range known {
		k[t] = true
	}
	return &Registry{
		sessions: make(map[uuid.UUID]*Session),
		max:      max,
		checks:   checks,
		prepare:  prepare,
		known:    k,
	}
}

// nextID returns a fresh UUID with a process-local monotonically increasing
// counter embedded in its low 8 bytes, so per-handler allocation order
// (invariant I7) survives while the wire representation stays UUID.
func (r *Registry) nextID() uuid.UUID {
	r.counter++
	id := uuid.New()
	c := r.counter
	for i := 15; i >= 8; i-- {
		id[i] = byte(c)
		c >>= 8
	}
	return id
}

// Open allocates a fresh client-role session of typ and registers it. It is
// the initiator-side counterpart of ProcessStart.
func (r *Registry) Open(typ uint64) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sessions) >= r.max {
		return nil, ErrMaxSessions
	}
	id := r.nextID()
	s := NewClientSession(typ, id, r.checks)
	r.sessions[id] = s
	return s, nil
}

// ProcessStart admits a server-role session requested by the peer's
// StartPacket, enforcing, in order: the max_sesh cap, id uniqueness and type
// recognition, then the prepare hook.
func (r *Registry) ProcessStart(typ uint64, id uuid.UUID) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions) >= r.max {
		return nil, ErrMaxSessions
	}
	if _, exists := r.sessions[id]; exists {
		return nil, ErrIDInUse
	}
	if !r.known[typ] {
		return nil, ErrUnknownType
	}
	if r.prepare != nil {
		if err := r.prepare(typ, id); err != nil {
			return nil, errors.Wrap(err, "session prepare refused")
		}
	}

	s := NewServerSession(typ, id, r.checks)
	r.sessions[id] = s
	return s, nil
}

// Get returns the session with id, or ErrNotFound.
func (r *Registry) Get(id uuid.UUID) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Remove deletes the session with id, if present.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len reports the number of currently open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
