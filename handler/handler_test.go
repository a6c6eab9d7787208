package handler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nwaples/wirelink/lifecycle"
	"github.com/nwaples/wirelink/packet"
	"github.com/nwaples/wirelink/session"
)

// loopback forwards SendPacket calls from one Handler straight into another's
// Enqueue, simulating a protocol multiplexer for a single shared range.
type loopback struct {
	peer *Handler
}

func (l *loopback) SendPacket(pktType uint16, level byte, p packet.Packet) error {
	buf, err := p.Marshal(nil)
	if err != nil {
		return err
	}
	return l.peer.Enqueue(byte(pktType), buf)
}

// recorder is a Transport that just records every packet it is asked to
// send, for asserting that no wire reply was emitted.
type recorder struct {
	frames []packet.Packet
}

func (r *recorder) SendPacket(pktType uint16, level byte, p packet.Packet) error {
	r.frames = append(r.frames, p)
	return nil
}

func newPair(t *testing.T, states []StateDef) (client, server *Handler) {
	t.Helper()
	clientTransport := &loopback{}
	serverTransport := &loopback{}

	client = New(clientTransport, Config{
		Role:              session.RoleClient,
		QueueSize:         16,
		MaxSessions:       4,
		KnownSessionTypes: []uint64{1},
		States:            states,
	})
	server = New(serverTransport, Config{
		Role:              session.RoleServer,
		QueueSize:         16,
		MaxSessions:       4,
		KnownSessionTypes: []uint64{1},
		States:            states,
	})
	clientTransport.peer = server
	serverTransport.peer = client

	go client.Run()
	go server.Run()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, server
}

func TestQuestionStateRoundTrip(t *testing.T) {
	states := []StateDef{{Name: "greeting", Code: 1}}
	client, server := newPair(t, states)
	server.states.SetValue("greeting", []byte("hello"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got, err := client.QuestionState(ctx, "greeting", nil)
	if err != nil {
		t.Fatalf("QuestionState: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q, want hello", got)
	}
}

func TestQuestionStateUnknownOnPeer(t *testing.T) {
	states := []StateDef{{Name: "greeting", Code: 1}}
	client, _ := newPair(t, states)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got, err := client.QuestionState(ctx, "greeting", nil)
	if err != nil {
		t.Fatalf("QuestionState: %v", err)
	}
	if string(got) != "?" {
		t.Fatalf("got %q, want ?", got)
	}
}

func TestTellStateAccepted(t *testing.T) {
	states := []StateDef{{Name: "mode", Code: 2, Check: func(v []byte) packet.ConfirmCode {
		if string(v) == "ok" {
			return packet.Yes
		}
		return packet.No
	}}}
	client, server := newPair(t, states)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	code, err := client.TellState(ctx, "mode", []byte("ok"), nil)
	if err != nil {
		t.Fatalf("TellState: %v", err)
	}
	if code != packet.Yes {
		t.Fatalf("code = %v, want Yes", code)
	}
	time.Sleep(10 * time.Millisecond)
	v, ok := server.states.Value("mode")
	if !ok || string(v) != "ok" {
		t.Errorf("server value = %q, ok=%v", v, ok)
	}
}

func TestTellStateRefused(t *testing.T) {
	states := []StateDef{{Name: "mode", Code: 2, Check: func(v []byte) packet.ConfirmCode {
		return packet.No
	}}}
	client, _ := newPair(t, states)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	code, err := client.TellState(ctx, "mode", []byte("bad"), nil)
	if err != nil {
		t.Fatalf("TellState: %v", err)
	}
	if code != packet.No {
		t.Fatalf("code = %v, want No", code)
	}
}

func TestShowStateRoundTrip(t *testing.T) {
	states := []StateDef{{Name: "greeting", Code: 1}}
	client, server := newPair(t, states)
	server.states.SetValue("greeting", []byte("hi"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got, err := client.ShowState(ctx, "greeting", nil)
	if err != nil {
		t.Fatalf("ShowState: %v", err)
	}
	if string(got) != "hi" {
		t.Fatalf("got %q, want hi", got)
	}
}

func TestSessionOpenSyncFinish(t *testing.T) {
	states := []StateDef{{Name: "mode", Code: 2, Check: func(v []byte) packet.ConfirmCode { return packet.Yes }}}
	client, server := newPair(t, states)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	scope, err := client.Context(ctx, 1, []string{"mode"})
	if err != nil {
		t.Fatalf("Context: %v", err)
	}
	if scope.Session == nil {
		t.Fatal("expected non-nil session")
	}
	if err := scope.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Close is idempotent.
	if err := scope.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if server.registry.Len() != 0 {
		t.Errorf("server sessions = %d, want 0 after finish", server.registry.Len())
	}
}

func TestSessionBusyWhenAtMax(t *testing.T) {
	states := []StateDef{}
	clientTransport := &loopback{}
	serverTransport := &loopback{}
	client := New(clientTransport, Config{Role: session.RoleClient, QueueSize: 16, MaxSessions: 1, KnownSessionTypes: []uint64{1}, States: states})
	server := New(serverTransport, Config{Role: session.RoleServer, QueueSize: 16, MaxSessions: 1, KnownSessionTypes: []uint64{1}, States: states})
	clientTransport.peer = server
	serverTransport.peer = client
	go client.Run()
	go server.Run()
	defer client.Close()
	defer server.Close()

	// Fill the server's only slot directly so the next Start is refused with Busy.
	if _, err := server.registry.ProcessStart(1, uuid.New()); err != nil {
		t.Fatalf("ProcessStart: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, outcome, err := client.OpenSession(ctx, 1)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	if outcome != lifecycle.Busy {
		t.Fatalf("outcome = %v, want Busy", outcome)
	}
}

func TestFinishSeshTypeMismatchReportsProtocolErrorAndDropsSession(t *testing.T) {
	rec := &recorder{}
	var gotErr error
	server := New(rec, Config{
		Role:              session.RoleServer,
		QueueSize:         16,
		MaxSessions:       4,
		KnownSessionTypes: []uint64{1, 2},
		OnProtocolError:   func(err error) { gotErr = err },
	})
	go server.Run()
	defer server.Close()

	sess, err := server.registry.ProcessStart(1, uuid.New())
	if err != nil {
		t.Fatalf("ProcessStart: %v", err)
	}

	finish := &packet.Finish{}
	finish.SeshType, finish.SeshID = 2, sess.ID // wrong type for this session id
	buf, err := finish.Marshal(nil)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := server.Enqueue(packet.TypeFinish, buf); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for gotErr == nil && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if gotErr == nil {
		t.Fatal("expected OnProtocolError to fire")
	}
	if len(rec.frames) != 0 {
		t.Fatalf("expected no wire reply for a session-type mismatch, got %d frame(s)", len(rec.frames))
	}
	if _, err := server.registry.Get(sess.ID); err == nil {
		t.Fatal("expected mismatched session to be dropped from the registry")
	}
}
