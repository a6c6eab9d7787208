package protocol

import (
	"net"
	"testing"
	"time"

	"github.com/nwaples/wirelink/handler"
	"github.com/nwaples/wirelink/packet"
	"github.com/nwaples/wirelink/session"
	"github.com/nwaples/wirelink/wire"
)

// recorder is a harmless handler.Transport that just records frames, used
// wherever a test's Handler goroutine might actually process a packet and
// reply (a nil Transport would panic on send).
type recorder struct {
	frames [][]byte
}

func (r *recorder) SendPacket(pktType uint16, level byte, p packet.Packet) error {
	body, err := p.Marshal(nil)
	if err != nil {
		return err
	}
	r.frames = append(r.frames, append(wire.WriteHeader(make([]byte, 0, wire.HeaderLen+len(body)), wire.Header{
		Type: pktType, Length: uint32(wire.HeaderLen + len(body)), Level: level,
	}), body...))
	return nil
}

func frame(t *testing.T, pktType uint16, level byte, p packet.Packet) []byte {
	t.Helper()
	body, err := p.Marshal(nil)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return append(wire.WriteHeader(make([]byte, 0, wire.HeaderLen+len(body)), wire.Header{
		Type: pktType, Length: uint32(wire.HeaderLen + len(body)), Level: level,
	}), body...)
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// readFrame reads exactly one framed packet off conn with a short deadline,
// for asserting on replies a Protocol emits over its net.Conn.
func readFrame(t *testing.T, conn net.Conn) wire.Header {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	hdrBuf := make([]byte, wire.HeaderLen)
	if _, err := readFull(conn, hdrBuf); err != nil {
		t.Fatalf("read header: %v", err)
	}
	hdr, err := wire.ReadHeader(hdrBuf)
	if err != nil {
		t.Fatalf("decode header: %v", err)
	}
	body := make([]byte, int(hdr.Length)-wire.HeaderLen)
	if _, err := readFull(conn, body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return hdr
}

func newServerHandler(t *testing.T, queueSize int, states []handler.StateDef) (*handler.Handler, *recorder) {
	t.Helper()
	rec := &recorder{}
	h := handler.New(rec, handler.Config{
		Role:              session.RoleServer,
		RangeBase:         0,
		QueueSize:         queueSize,
		MaxSessions:       4,
		KnownSessionTypes: []uint64{1},
		States:            states,
	})
	return h, rec
}

func TestDataReceivedSingleFrame(t *testing.T) {
	h, _ := newServerHandler(t, 16, []handler.StateDef{{Name: "greeting", Code: 1}})
	go h.Run()
	t.Cleanup(h.Close)
	p := New(nil, Config{Ranges: map[int]*handler.Handler{1: h}})

	buf := frame(t, uint16(packet.TypeEnquiry), 0, &packet.Enquiry{State: 1})
	consumed, err := p.DataReceived(buf)
	if err != nil {
		t.Fatalf("DataReceived: %v", err)
	}
	if consumed != len(buf) {
		t.Fatalf("consumed = %d, want %d", consumed, len(buf))
	}
}

func TestDataReceivedPartialThenComplete(t *testing.T) {
	h, _ := newServerHandler(t, 16, []handler.StateDef{{Name: "greeting", Code: 1}})
	go h.Run()
	t.Cleanup(h.Close)
	p := New(nil, Config{Ranges: map[int]*handler.Handler{1: h}})

	buf := frame(t, uint16(packet.TypeEnquiry), 0, &packet.Enquiry{State: 1})

	consumed, err := p.DataReceived(buf[:wire.HeaderLen+1])
	if err != nil {
		t.Fatalf("DataReceived partial: %v", err)
	}
	if consumed != 0 {
		t.Fatalf("consumed = %d, want 0 for a partial frame", consumed)
	}

	consumed, err = p.DataReceived(buf)
	if err != nil {
		t.Fatalf("DataReceived full: %v", err)
	}
	if consumed != len(buf) {
		t.Fatalf("consumed = %d, want %d", consumed, len(buf))
	}
}

func TestDataReceivedTwoFramesAtOnce(t *testing.T) {
	h, _ := newServerHandler(t, 16, []handler.StateDef{{Name: "greeting", Code: 1}})
	go h.Run()
	t.Cleanup(h.Close)
	p := New(nil, Config{Ranges: map[int]*handler.Handler{1: h}})

	f1 := frame(t, uint16(packet.TypeEnquiry), 0, &packet.Enquiry{State: 1})
	f2 := frame(t, uint16(packet.TypeEnquiry), 0, &packet.Enquiry{State: 1})
	buf := append(append([]byte{}, f1...), f2...)

	consumed, err := p.DataReceived(buf)
	if err != nil {
		t.Fatalf("DataReceived: %v", err)
	}
	if consumed != len(buf) {
		t.Fatalf("consumed = %d, want %d", consumed, len(buf))
	}
}

func TestRouteUnregisteredRangeRepliesUnknown(t *testing.T) {
	local, remote := net.Pipe()
	defer local.Close()
	defer remote.Close()

	p := New(local, Config{Ranges: map[int]*handler.Handler{}})
	go p.writeLoop()
	defer p.Close()

	// Range 3 (pkt_type 256..383) is unregistered; a non-reserved local code
	// there is simply unrecognized and draws an UnknownPacket reply.
	buf := frame(t, 256, 0, &packet.Enquiry{State: 1})
	go p.DataReceived(buf)

	hdr := readFrame(t, remote)
	if wire.LocalType(hdr.Type) != wire.UnknownLocal {
		t.Fatalf("reply local type = %d, want UnknownLocal", wire.LocalType(hdr.Type))
	}
}

func TestRouteUnregisteredRangeAttackNoReply(t *testing.T) {
	local, remote := net.Pipe()
	defer local.Close()
	defer remote.Close()

	var gotErr error
	p := New(local, Config{
		Ranges:   map[int]*handler.Handler{},
		OnAttack: func(err error) { gotErr = err },
	})
	go p.writeLoop()
	defer p.Close()

	// Range 3 is unregistered; feeding it a reserved local code (Unknown,
	// here) is the attempted-attack case: no wire reply, only the hook fires.
	attackType := uint16(256 + int(wire.UnknownLocal))
	buf := frame(t, attackType, 0, &packet.Unknown{Type: 9, Level: 0})

	if _, err := p.DataReceived(buf); err != nil {
		t.Fatalf("DataReceived: %v", err)
	}
	if gotErr == nil {
		t.Fatal("expected OnAttack to fire")
	}

	remote.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	one := make([]byte, 1)
	if _, err := remote.Read(one); err == nil {
		t.Fatal("expected no reply bytes after an attempted attack")
	}
}

func TestRouteQueueFullRepliesBusy(t *testing.T) {
	local, remote := net.Pipe()
	defer local.Close()
	defer remote.Close()

	// Capacity 1, never drained by Run: the first Enqueue fills it, the
	// second (driven by DataReceived below) finds it full.
	h, _ := newServerHandler(t, 1, nil)
	defer h.Close()
	if err := h.Enqueue(byte(packet.TypeEnquiry), nil); err != nil {
		t.Fatalf("priming Enqueue: %v", err)
	}

	p := New(local, Config{Ranges: map[int]*handler.Handler{1: h}})
	go p.writeLoop()
	defer p.Close()

	buf := frame(t, uint16(packet.TypeEnquiry), 0, &packet.Enquiry{State: 1})
	go p.DataReceived(buf)

	hdr := readFrame(t, remote)
	if wire.LocalType(hdr.Type) != wire.ErrorLocal {
		t.Fatalf("reply local type = %d, want ErrorLocal", wire.LocalType(hdr.Type))
	}
}
