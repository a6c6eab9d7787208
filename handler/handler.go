// Package handler implements a single packet-type range's processing
// pipeline: a bounded single-consumer queue, packet dispatch gated by the
// handler's role, the public question/tell/show/sync/session operations, and
// the named-state and session stores those operations mutate.
package handler

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nwaples/wirelink/exchange"
	"github.com/nwaples/wirelink/packet"
	"github.com/nwaples/wirelink/session"
)

// Transport is the subset of protocol.Protocol a Handler needs to emit
// packets. Defining it here (rather than importing package protocol, which
// imports package handler) avoids an import cycle.
type Transport interface {
	SendPacket(pktType uint16, level byte, p packet.Packet) error
}

// Mode classifies how a named state's value is agreed on.
type Mode int

const (
	ModeFact Mode = iota
	ModeOnce
	ModeMediate
	ModeCheck
)

// StateDef declares one named state this handler knows about: its wire code,
// agreement mode, and (for CHECK-style states) the predicate a proposed
// value must satisfy to be accepted.
type StateDef struct {
	Name  string
	Code  uint64
	Mode  Mode
	Check exchange.Check
}

// Config configures a Handler at construction.
type Config struct {
	Role              session.Role
	RangeBase         uint16 // absolute pkt_type of local code 0 for this handler's range
	Level             byte   // pkt_level stamped on outgoing packets
	QueueSize         int
	MaxSessions       int
	KnownSessionTypes []uint64
	States            []StateDef
	Prepare           session.Prepare
	Logger            logrus.FieldLogger
	// OnProtocolError is called for failures that are reported to the host
	// only and never placed on the wire (e.g. ErrSeshTypeMismatch). If nil,
	// the error is just logged.
	OnProtocolError func(err error)
}

type queueItem struct {
	localType byte
	body      []byte
}

type enquiryKey struct {
	state string
	sesh  uuid.UUID
}

// Handler processes every packet in one handler's 128-wide range: a single
// goroutine consuming a bounded queue, dispatching by local packet type and
// Role, driving the named-state and session machines, and replying through
// Transport.
type Handler struct {
	cfg       Config
	transport Transport
	logger    logrus.FieldLogger
	registry  *session.Registry
	states    *stateStore

	byName map[string]StateDef
	byCode map[uint64]StateDef

	enquiryLocks sync.Map // enquiryKey -> *sync.Mutex
	pending      sync.Map // enquiryKey -> chan []byte

	dispatch map[byte]processorEntry

	queue chan *queueItem
	done  chan struct{}
	wg    sync.WaitGroup

	silentMu sync.Mutex
	silent   bool
}

// New constructs a Handler bound to transport, ready to have its queue
// serviced by a call to Run in its own goroutine.
func New(transport Transport, cfg Config) *Handler {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 16
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	checks := make(map[string]exchange.Check, len(cfg.States))
	byName := make(map[string]StateDef, len(cfg.States))
	byCode := make(map[uint64]StateDef, len(cfg.States))
	for _, sd := range cfg.States {
		checks[sd.Name] = sd.Check
		byName[sd.Name] = sd
		byCode[sd.Code] = sd
	}

	h := &Handler{
		cfg:       cfg,
		transport: transport,
		logger:    logger,
		registry:  session.NewRegistry(cfg.MaxSessions, cfg.KnownSessionTypes, checks, cfg.Prepare),
		states:    newStateStore(checks),
		byName:    byName,
		byCode:    byCode,
		queue:     make(chan *queueItem, cfg.QueueSize),
		done:      make(chan struct{}),
	}
	h.dispatch = buildDispatch(cfg.Role)
	return h
}

// Enqueue accepts one incoming range-local packet for processing. It
// reports ErrQueueFull (mapped by the caller to ErrorCode::BUSY) if the
// bounded queue has no room.
func (h *Handler) Enqueue(localType byte, body []byte) error {
	select {
	case h.queue <- &queueItem{localType: localType, body: body}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run services the handler's queue until Close is called. It is meant to be
// invoked in its own goroutine.
func (h *Handler) Run() {
	h.wg.Add(1)
	defer h.wg.Done()
	for {
		select {
		case item := <-h.queue:
			if item == nil {
				return
			}
			h.process(item)
		case <-h.done:
			return
		}
	}
}

// Close injects the termination sentinel and waits for Run to return.
func (h *Handler) Close() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
	select {
	case h.queue <- nil:
	default:
	}
	h.wg.Wait()
}

func (h *Handler) process(item *queueItem) {
	entry, ok := h.dispatch[item.localType]
	if !ok {
		h.emitUnknown(uint64(item.localType))
		return
	}

	silent := item.localType == unknownLocal || item.localType == errorLocal
	if silent {
		h.silentMu.Lock()
		h.silent = true
		h.silentMu.Unlock()
		defer func() {
			h.silentMu.Lock()
			h.silent = false
			h.silentMu.Unlock()
		}()
	}

	pkt := entry.New()
	if err := pkt.Unmarshal(item.body); err != nil {
		h.emitError(uint64(item.localType), packet.Malformed)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			h.logger.WithField("panic", r).Error("handler: processor panicked")
			h.emitError(uint64(item.localType), packet.Unexpected)
		}
	}()

	if err := entry.Process(h, pkt); err != nil {
		if errors.Is(err, ErrSeshTypeMismatch) {
			h.reportProtocolError(err)
			return
		}
		h.logger.WithError(err).WithField("local_type", item.localType).Warn("handler: processor failed")
		h.emitError(uint64(item.localType), packet.Unexpected)
	}
}

// reportProtocolError surfaces a failure to the host only; it is never
// placed on the wire.
func (h *Handler) reportProtocolError(err error) {
	h.logger.WithError(err).Error("handler: protocol error")
	if h.cfg.OnProtocolError != nil {
		h.cfg.OnProtocolError(err)
	}
}

func (h *Handler) isSilent() bool {
	h.silentMu.Lock()
	defer h.silentMu.Unlock()
	return h.silent
}

func (h *Handler) emitUnknown(localType uint64) {
	if h.isSilent() {
		return
	}
	pkt := &packet.Unknown{Type: uint64(h.cfg.RangeBase) + localType, Level: uint64(h.cfg.Level), Process: 0}
	h.sendLocal(unknownLocal, pkt)
}

func (h *Handler) emitError(localType uint64, code packet.ErrorCode) {
	if h.isSilent() {
		return
	}
	pkt := &packet.Error{Type: uint64(h.cfg.RangeBase) + localType, Level: uint64(h.cfg.Level), Process: 0, Error: code}
	h.sendLocal(errorLocal, pkt)
}

func (h *Handler) sendLocal(local byte, p packet.Packet) {
	pktType := h.cfg.RangeBase + uint16(local)
	if err := h.transport.SendPacket(pktType, h.cfg.Level, p); err != nil {
		h.logger.WithError(err).Warn("handler: send failed")
	}
}

func (h *Handler) send(local byte, p packet.Packet) error {
	pktType := h.cfg.RangeBase + uint16(local)
	return h.transport.SendPacket(pktType, h.cfg.Level, p)
}

func (h *Handler) enquiryLock(key enquiryKey) *sync.Mutex {
	v, _ := h.enquiryLocks.LoadOrStore(key, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// hostFor returns the exchange host (handler-scoped store, or the named
// session's own store) for the given session id, plus its session type.
func (h *Handler) hostFor(seshType uint64, seshID uuid.UUID) (exchangeHost, error) {
	if seshID == uuid.Nil {
		return h.states, nil
	}
	s, err := h.registry.Get(seshID)
	if err != nil {
		return nil, err
	}
	if s.Type != seshType {
		return nil, errors.Wrap(ErrSeshTypeMismatch, "hostFor")
	}
	return s, nil
}

// exchangeHost is satisfied by both *stateStore (handler-scoped states) and
// *session.Session (session-scoped states).
type exchangeHost interface {
	ClientState(name string) *exchange.Client
	ServerState(name string) *exchange.Server
	Value(name string) ([]byte, bool)
	SetValue(name string, value []byte)
}

func (h *Handler) nameOf(code uint64) (string, bool) {
	sd, ok := h.byCode[code]
	return sd.Name, ok
}

func (h *Handler) codeOf(name string) (uint64, bool) {
	sd, ok := h.byName[name]
	return sd.Code, ok
}

// Registry exposes the handler's session registry for the protocol layer
// and tests.
func (h *Handler) Registry() *session.Registry { return h.registry }
