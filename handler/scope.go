package handler

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/nwaples/wirelink/lifecycle"
	"github.com/nwaples/wirelink/session"
)

// Scope is a scoped acquisition of a running session: Context opens it and
// syncs its states; Close always issues Finish exactly once, on every exit
// path (success, error, or cancellation), the explicit-defer analogue of a
// context-manager-scoped session.
type Scope struct {
	h       *Handler
	Session *session.Session
	once    sync.Once
	err     error
}

// Close issues Finish for the scope's session, idempotently.
func (s *Scope) Close() error {
	s.once.Do(func() {
		s.err = s.h.FinishSession(s.Session)
	})
	return s.err
}

// Context opens a client-role session of seshType, syncs every state in
// states, and returns a Scope the caller must Close. If any state fails to
// reach YES, the session is torn down and ErrSessionNoSync is returned.
func (h *Handler) Context(ctx context.Context, seshType uint64, states []string) (*Scope, error) {
	sess, outcome, err := h.OpenSession(ctx, seshType)
	if err != nil {
		return nil, err
	}
	if outcome != lifecycle.Accepted {
		return nil, errors.Errorf("handler: session open resolved to %s", outcome)
	}

	ok, err := h.Sync(ctx, states, sess)
	if err != nil {
		h.registry.Remove(sess.ID)
		return nil, err
	}
	if !ok {
		_ = h.FinishSession(sess)
		return nil, ErrSessionNoSync
	}
	return &Scope{h: h, Session: sess}, nil
}
