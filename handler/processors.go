package handler

import (
	"github.com/pkg/errors"

	"github.com/nwaples/wirelink/packet"
	"github.com/nwaples/wirelink/session"
)

var absentValue = []byte("?")

func isAbsent(v []byte) bool { return len(v) == 1 && v[0] == '?' }

func processEnquiry(h *Handler, p packet.Packet) error {
	e := p.(*packet.Enquiry)
	value := absentValue
	if name, ok := h.nameOf(e.State); ok {
		if host, err := h.hostFor(e.SeshType, e.SeshID); err == nil {
			if v, ok := host.Value(name); ok {
				value = v
			}
		}
	}
	return h.send(packet.TypeResponse, &packet.Response{
		State: e.State, Value: value, SeshType: e.SeshType, SeshID: e.SeshID,
	})
}

func processResponse(h *Handler, p packet.Packet) error {
	r := p.(*packet.Response)
	name, ok := h.nameOf(r.State)
	if !ok {
		return nil
	}
	if host, err := h.hostFor(r.SeshType, r.SeshID); err == nil {
		host.SetValue(name, r.Value)
	}
	key := enquiryKey{state: name, sesh: r.SeshID}
	if v, ok := h.pending.Load(key); ok {
		ch := v.(chan []byte)
		select {
		case ch <- r.Value:
		default:
		}
	}
	return nil
}

func processTell(h *Handler, p packet.Packet) error {
	t := p.(*packet.Tell)
	name, ok := h.nameOf(t.State)
	if !ok {
		return h.send(packet.TypeConfirm, &packet.Confirm{
			Proposal: t.State, Answer: packet.NoComment, SeshType: t.SeshType, SeshID: t.SeshID,
		})
	}
	host, err := h.hostFor(t.SeshType, t.SeshID)
	if err != nil {
		return err
	}

	ce := host.ClientState(name)
	if ce.State() == "show" {
		// This Tell is the peer's reply to a Show we issued for this state.
		if isAbsent(t.Value) {
			return ce.ResolveShow(nil, packet.NoComment)
		}
		if err := ce.ResolveShow(t.Value, packet.NoComment); err != nil {
			return err
		}
		host.SetValue(name, t.Value)
		return nil
	}

	if isAbsent(t.Value) {
		return h.send(packet.TypeConfirm, &packet.Confirm{
			Proposal: t.State, Answer: packet.NoComment, SeshType: t.SeshType, SeshID: t.SeshID,
		})
	}

	se := host.ServerState(name)
	code, err := se.BeginTell(t.Value)
	if err != nil {
		return err
	}
	if code == packet.Yes {
		host.SetValue(name, t.Value)
	}
	return h.send(packet.TypeConfirm, &packet.Confirm{
		Proposal: t.State, Answer: code, SeshType: t.SeshType, SeshID: t.SeshID,
	})
}

func processShow(h *Handler, p packet.Packet) error {
	s := p.(*packet.Show)
	name, ok := h.nameOf(s.State)
	if !ok {
		return h.send(packet.TypeTell, &packet.Tell{
			State: s.State, Value: absentValue, SeshType: s.SeshType, SeshID: s.SeshID,
		})
	}
	host, err := h.hostFor(s.SeshType, s.SeshID)
	if err != nil {
		return err
	}

	se := host.ServerState(name)
	if err := se.BeginShow(); err != nil {
		return err
	}
	if err := se.AwaitOwnTell(); err != nil {
		return err
	}

	value, ok := host.Value(name)
	if !ok {
		value = absentValue
	}
	return h.send(packet.TypeTell, &packet.Tell{
		State: s.State, Value: value, SeshType: s.SeshType, SeshID: s.SeshID,
	})
}

func processConfirm(h *Handler, p packet.Packet) error {
	c := p.(*packet.Confirm)
	name, ok := h.nameOf(c.Proposal)
	if !ok {
		if c.Answer == packet.NoComment {
			return nil
		}
		return errors.New("handler: confirm for unknown state")
	}
	host, err := h.hostFor(c.SeshType, c.SeshID)
	if err != nil {
		return err
	}

	ce := host.ClientState(name)
	if ce.State() == "tell" {
		return ce.ResolveConfirm(c.Answer)
	}
	se := host.ServerState(name)
	if se.State() == "tell" {
		return se.ResolveConfirm()
	}
	return errors.New("handler: confirm for state not awaiting a reply")
}

func processStart(h *Handler, p packet.Packet) error {
	s := p.(*packet.Start)
	sess, err := h.registry.ProcessStart(s.SeshType, s.SeshID)
	if err != nil {
		if errors.Is(err, session.ErrMaxSessions) {
			busy := &packet.Busy{}
			busy.SeshType, busy.SeshID = s.SeshType, s.SeshID
			return h.send(packet.TypeBusy, busy)
		}
		refuse := &packet.Refuse{}
		refuse.SeshType, refuse.SeshID = s.SeshType, s.SeshID
		return h.send(packet.TypeRefuse, refuse)
	}
	if err := sess.ServerLifecycle.BeginStart(); err != nil {
		return err
	}
	accept := &packet.Accept{}
	accept.SeshType, accept.SeshID = s.SeshType, s.SeshID
	return h.send(packet.TypeAccept, accept)
}

func processFinish(h *Handler, p packet.Packet) error {
	f := p.(*packet.Finish)
	sess, err := h.registry.Get(f.SeshID)
	if err != nil {
		return err
	}
	if sess.Type != f.SeshType {
		h.registry.Remove(sess.ID)
		return errors.Wrap(ErrSeshTypeMismatch, "finish")
	}
	if err := sess.ServerLifecycle.Finish(); err != nil {
		return err
	}
	h.registry.Remove(f.SeshID)
	return nil
}

func processAccept(h *Handler, p packet.Packet) error {
	a := p.(*packet.Accept)
	sess, err := h.registry.Get(a.SeshID)
	if err != nil {
		return err
	}
	if sess.Type != a.SeshType {
		h.registry.Remove(sess.ID)
		return errors.Wrap(ErrSeshTypeMismatch, "accept")
	}
	return sess.ClientLifecycle.ResolveAccept()
}

func processRefuse(h *Handler, p packet.Packet) error {
	r := p.(*packet.Refuse)
	sess, err := h.registry.Get(r.SeshID)
	if err != nil {
		return err
	}
	if err := sess.ClientLifecycle.ResolveRefuse(); err != nil {
		return err
	}
	h.registry.Remove(r.SeshID)
	return nil
}

func processBusy(h *Handler, p packet.Packet) error {
	b := p.(*packet.Busy)
	sess, err := h.registry.Get(b.SeshID)
	if err != nil {
		return err
	}
	if err := sess.ClientLifecycle.ResolveBusy(); err != nil {
		return err
	}
	h.registry.Remove(b.SeshID)
	return nil
}

func processDone(h *Handler, p packet.Packet) error {
	d := p.(*packet.Done)
	sess, err := h.registry.Get(d.SeshID)
	if err != nil {
		return err
	}
	return sess.ClientLifecycle.ResolveDone()
}

func processUnknown(h *Handler, p packet.Packet) error {
	return nil
}

func processError(h *Handler, p packet.Packet) error {
	return nil
}
