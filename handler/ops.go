package handler

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/nwaples/wirelink/lifecycle"
	"github.com/nwaples/wirelink/packet"
	"github.com/nwaples/wirelink/session"
)

// host returns the exchange host for sesh, or the handler-scoped store if
// sesh is nil.
func (h *Handler) host(sesh *session.Session) exchangeHost {
	if sesh == nil {
		return h.states
	}
	return sesh
}

func seshIdentity(sesh *session.Session) (uint64, uuid.UUID) {
	if sesh == nil {
		return 0, uuid.Nil
	}
	return sesh.Type, sesh.ID
}

// QuestionState requests the peer's current value for state, serialized per
// (state, session) by an enquiry lock so at most one question is ever in
// flight for that key.
func (h *Handler) QuestionState(ctx context.Context, state string, sesh *session.Session) ([]byte, error) {
	code, ok := h.codeOf(state)
	if !ok {
		return nil, errors.Errorf("handler: unknown state %q", state)
	}
	seshType, seshID := seshIdentity(sesh)

	key := enquiryKey{state: state, sesh: seshID}
	lock := h.enquiryLock(key)
	lock.Lock()
	defer lock.Unlock()

	ch := make(chan []byte, 1)
	h.pending.Store(key, ch)
	defer h.pending.Delete(key)

	if err := h.send(packet.TypeEnquiry, &packet.Enquiry{State: code, SeshType: seshType, SeshID: seshID}); err != nil {
		return nil, err
	}
	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		return nil, ErrClosed
	}
}

// TellState proposes value for state to the peer, resolving to the peer's
// ConfirmCode. The exchange machine transitions ready -> tell -> confirm ->
// accomplished.
func (h *Handler) TellState(ctx context.Context, state string, value []byte, sesh *session.Session) (packet.ConfirmCode, error) {
	code, ok := h.codeOf(state)
	if !ok {
		return packet.NoComment, errors.Errorf("handler: unknown state %q", state)
	}
	seshType, seshID := seshIdentity(sesh)

	ce := h.host(sesh).ClientState(state)
	done, err := ce.BeginTell()
	if err != nil {
		return packet.NoComment, err
	}
	if err := h.send(packet.TypeTell, &packet.Tell{State: code, Value: value, SeshType: seshType, SeshID: seshID}); err != nil {
		return packet.NoComment, err
	}
	select {
	case ans := <-done:
		return ans, nil
	case <-ctx.Done():
		return packet.NoComment, ctx.Err()
	case <-h.done:
		return packet.NoComment, ErrClosed
	}
}

// ShowState asks the peer to push its current value for state via Tell,
// returning that value once delivered.
func (h *Handler) ShowState(ctx context.Context, state string, sesh *session.Session) ([]byte, error) {
	code, ok := h.codeOf(state)
	if !ok {
		return nil, errors.Errorf("handler: unknown state %q", state)
	}
	seshType, seshID := seshIdentity(sesh)

	ce := h.host(sesh).ClientState(state)
	done, err := ce.BeginShow()
	if err != nil {
		return nil, err
	}
	if err := h.send(packet.TypeShow, &packet.Show{State: code, SeshType: seshType, SeshID: seshID}); err != nil {
		return nil, err
	}
	select {
	case <-done:
		return ce.ShowValue(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		return nil, ErrClosed
	}
}

// Sync tells every named state in states to the peer using its locally held
// value, returning true iff every state returned YES. All states are told
// even after the first non-YES result.
func (h *Handler) Sync(ctx context.Context, states []string, sesh *session.Session) (bool, error) {
	host := h.host(sesh)
	all := true
	for _, st := range states {
		value, _ := host.Value(st)
		code, err := h.TellState(ctx, st, value, sesh)
		if err != nil {
			return false, err
		}
		if code != packet.Yes {
			all = false
		}
	}
	return all, nil
}

// OpenSession allocates a client-role session of typ, issues Start, and
// awaits the server's disposition.
func (h *Handler) OpenSession(ctx context.Context, typ uint64) (*session.Session, lifecycle.Outcome, error) {
	sess, err := h.registry.Open(typ)
	if err != nil {
		return nil, 0, err
	}
	result, err := sess.ClientLifecycle.BeginStart()
	if err != nil {
		h.registry.Remove(sess.ID)
		return nil, 0, err
	}
	start := &packet.Start{}
	start.SeshType, start.SeshID = typ, sess.ID
	if err := h.send(packet.TypeStart, start); err != nil {
		h.registry.Remove(sess.ID)
		return nil, 0, err
	}

	select {
	case outcome := <-result:
		if outcome != lifecycle.Accepted {
			h.registry.Remove(sess.ID)
		}
		return sess, outcome, nil
	case <-ctx.Done():
		h.registry.Remove(sess.ID)
		return nil, 0, ctx.Err()
	case <-h.done:
		return nil, 0, ErrClosed
	}
}

// FinishSession issues Finish for sess, a session this side opened, and
// removes it from the registry.
func (h *Handler) FinishSession(sess *session.Session) error {
	finish := &packet.Finish{}
	finish.SeshType, finish.SeshID = sess.Type, sess.ID
	err := h.send(packet.TypeFinish, finish)
	if ferr := sess.ClientLifecycle.Finish(); ferr != nil && err == nil {
		err = ferr
	}
	h.registry.Remove(sess.ID)
	return err
}

// SessionDone marks sess (a session this side is responding to) as having
// nothing more to do, emitting DonePacket.
func (h *Handler) SessionDone(sess *session.Session) error {
	if err := sess.ServerLifecycle.MarkDone(); err != nil {
		return err
	}
	done := &packet.Done{}
	done.SeshType, done.SeshID = sess.Type, sess.ID
	return h.send(packet.TypeDone, done)
}

