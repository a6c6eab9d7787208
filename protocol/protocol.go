// Package protocol implements the multiplexer binding one transport
// connection to a set of handler.Handler instances, one per packet-type
// range: it frames and deframes the wire header, routes bodies to the
// owning range's bounded queue, and emits UnknownPacket/ErrorPacket replies
// per the routing rules (including the attack-avoidance guard on I6).
package protocol

import (
	"io"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/nwaples/wirelink/handler"
	"github.com/nwaples/wirelink/packet"
	"github.com/nwaples/wirelink/wire"
)

// writeRequest is a request to write one framed packet, mirroring the
// single-writer-goroutine pattern used to serialize all net.Conn.Write calls.
type writeRequest struct {
	data []byte
	ec   chan error
}

// Config configures a Protocol at construction.
type Config struct {
	// Ranges maps a 1-based range index to the Handler that owns it.
	Ranges map[int]*handler.Handler
	Logger logrus.FieldLogger
	// OnAttack is called (without a wire reply, per I6) when an
	// unregistered range is fed a reserved Unknown/Error local code, just
	// before the connection is closed. The error is logged and the
	// connection closed whether or not OnAttack is set.
	OnAttack func(err error)
}

// Protocol binds one net.Conn, frames/deframes it, and routes decoded bodies
// to the handler owning the packet's range.
type Protocol struct {
	nc       net.Conn
	ranges   map[int]*handler.Handler
	logger   logrus.FieldLogger
	onAttack func(err error)

	wc   chan writeRequest
	done chan struct{}
	once sync.Once

	mu  sync.Mutex
	err error
}

// New binds nc and starts no goroutines yet; call Serve to begin processing.
// cfg.Ranges may be nil or partial; use AddRange to register handlers that
// need the Protocol itself as their handler.Transport.
func New(nc net.Conn, cfg Config) *Protocol {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	ranges := cfg.Ranges
	if ranges == nil {
		ranges = make(map[int]*handler.Handler)
	}
	return &Protocol{
		nc:       nc,
		ranges:   ranges,
		logger:   logger,
		onAttack: cfg.OnAttack,
		wc:       make(chan writeRequest),
		done:     make(chan struct{}),
	}
}

// AddRange registers h as the owner of range ri. It must be called before
// Serve starts the range's consumer goroutine.
func (p *Protocol) AddRange(ri int, h *handler.Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ranges[ri] = h
}

// SendPacket marshals p and writes a framed packet of pktType/level through
// the single writer goroutine. It satisfies handler.Transport.
func (p *Protocol) SendPacket(pktType uint16, level byte, pkt packet.Packet) error {
	if p.nc == nil {
		return ErrNoTransport
	}
	body, err := pkt.Marshal(nil)
	if err != nil {
		return err
	}
	frame := wire.WriteHeader(make([]byte, 0, wire.HeaderLen+len(body)), wire.Header{
		Type:   pktType,
		Length: uint32(wire.HeaderLen + len(body)),
		Level:  level,
	})
	frame = append(frame, body...)

	req := writeRequest{data: frame, ec: make(chan error, 1)}
	select {
	case p.wc <- req:
		return <-req.ec
	case <-p.done:
		return ErrNoTransport
	}
}

func (p *Protocol) writeLoop() {
	for {
		select {
		case req := <-p.wc:
			_, err := p.nc.Write(req.data)
			req.ec <- err
			if err != nil {
				p.setErr(err)
				p.Close()
				return
			}
		case <-p.done:
			return
		}
	}
}

func (p *Protocol) setErr(err error) {
	p.mu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.mu.Unlock()
}

// Err returns the first unexpected error observed on the connection, if any.
func (p *Protocol) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// DataReceived peels as many complete frames as are present at the front of
// buf, routing each to its owning range, and returns how many bytes were
// consumed. Callers own the remainder of buf (buf[consumed:]).
func (p *Protocol) DataReceived(buf []byte) (consumed int, err error) {
	for {
		rest := buf[consumed:]
		if len(rest) < wire.HeaderLen {
			return consumed, nil
		}
		hdr, herr := wire.ReadHeader(rest)
		if herr != nil {
			return consumed, herr
		}
		if int(hdr.Length) < wire.HeaderLen {
			p.replyMalformed(hdr)
			consumed += wire.HeaderLen
			continue
		}
		if len(rest) < int(hdr.Length) {
			return consumed, nil
		}
		body := rest[wire.HeaderLen:hdr.Length]
		p.route(hdr, body)
		consumed += int(hdr.Length)
	}
}

func (p *Protocol) route(hdr wire.Header, body []byte) {
	ri := wire.RangeIndex(hdr.Type)
	local := wire.LocalType(hdr.Type)

	h, ok := p.ranges[ri]
	if !ok {
		if wire.IsReservedLocal(local) {
			p.handleAttack(ri, local)
			return
		}
		p.replyUnknown(ri, hdr)
		return
	}

	if err := h.Enqueue(local, body); err != nil {
		p.replyBusy(ri, hdr)
	}
}

func (p *Protocol) handleAttack(ri int, local byte) {
	err := attackError(ri, local)
	p.logger.WithError(err).Error("protocol: attempted attack detected")
	if p.onAttack != nil {
		p.onAttack(err)
	}
	p.setErr(err)
	p.Close()
}

func (p *Protocol) replyUnknown(ri int, hdr wire.Header) {
	pktType := wire.RangeBase(ri) + uint16(wire.UnknownLocal)
	_ = p.SendPacket(pktType, hdr.Level, &packet.Unknown{
		Type: uint64(hdr.Type), Level: uint64(hdr.Level), Process: 0,
	})
}

func (p *Protocol) replyMalformed(hdr wire.Header) {
	ri := wire.RangeIndex(hdr.Type)
	if _, ok := p.ranges[ri]; !ok {
		return
	}
	pktType := wire.RangeBase(ri) + uint16(wire.ErrorLocal)
	_ = p.SendPacket(pktType, hdr.Level, &packet.Error{
		Type: uint64(hdr.Type), Level: uint64(hdr.Level), Process: 0, Error: packet.Malformed,
	})
}

func (p *Protocol) replyBusy(ri int, hdr wire.Header) {
	pktType := wire.RangeBase(ri) + uint16(wire.ErrorLocal)
	_ = p.SendPacket(pktType, hdr.Level, &packet.Error{
		Type: uint64(hdr.Type), Level: uint64(hdr.Level), Process: 0, Error: packet.Busy,
	})
}

// Serve drives the connection: one goroutine per handler range, the write
// loop, and a blocking read loop that accumulates bytes and peels frames via
// DataReceived until the connection closes.
func (p *Protocol) Serve() error {
	for _, h := range p.ranges {
		go h.Run()
	}
	go p.writeLoop()

	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 4096)
	for {
		n, err := p.nc.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
			consumed, derr := p.DataReceived(buf)
			if derr != nil {
				p.setErr(derr)
				p.Close()
				return derr
			}
			buf = buf[:copy(buf, buf[consumed:])]
		}
		if err != nil {
			if err != io.EOF {
				p.setErr(err)
			}
			p.Close()
			return p.Err()
		}
		select {
		case <-p.done:
			return p.Err()
		default:
		}
	}
}

// Close idempotently stops the read/write loops, closes every handler
// (injecting its termination sentinel and joining its consumer), and closes
// the transport.
func (p *Protocol) Close() error {
	p.once.Do(func() {
		close(p.done)
		for _, h := range p.ranges {
			h.Close()
		}
		if p.nc != nil {
			if err := p.nc.Close(); err != nil {
				p.setErr(err)
			}
		}
	})
	return p.Err()
}
