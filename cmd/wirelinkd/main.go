// Command wirelinkd is a minimal demo server: it listens for connections and
// serves a single example packet-type range exposing one CHECK-mode named
// state, "greeting", that always accepts whatever value a client proposes.
package main

import (
	"flag"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/nwaples/wirelink/handler"
	"github.com/nwaples/wirelink/packet"
	"github.com/nwaples/wirelink/protocol"
	"github.com/nwaples/wirelink/session"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8719", "address to listen on")
	queueSize := flag.Int("queue-size", 64, "per-range bounded queue size")
	maxSessions := flag.Int("max-sessions", 16, "maximum concurrent sessions per connection")
	flag.Parse()

	logger := logrus.StandardLogger()

	l, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.WithError(err).Fatal("wirelinkd: listen")
	}
	logger.WithField("addr", l.Addr()).Info("wirelinkd: listening")

	srv := &protocol.Server{
		Logger: logger,
		ServeConn: func(nc net.Conn) {
			serveConn(nc, logger, *queueSize, *maxSessions)
		},
	}
	if err := srv.Serve(l); err != nil {
		logger.WithError(err).Fatal("wirelinkd: serve")
	}
}

func serveConn(nc net.Conn, logger logrus.FieldLogger, queueSize, maxSessions int) {
	connLogger := logger.WithField("remote_addr", nc.RemoteAddr())

	states := []handler.StateDef{
		{
			Name: "greeting",
			Code: 1,
			Mode: handler.ModeCheck,
			Check: func(value []byte) packet.ConfirmCode {
				connLogger.WithField("value", string(value)).Info("wirelinkd: greeting proposed")
				return packet.Yes
			},
		},
	}

	p := protocol.New(nc, protocol.Config{
		Logger: connLogger,
		OnAttack: func(err error) {
			connLogger.WithError(err).Warn("wirelinkd: closing connection after attempted attack")
		},
	})

	h := handler.New(p, handler.Config{
		Role:              session.RoleServer,
		RangeBase:         0,
		QueueSize:         queueSize,
		MaxSessions:       maxSessions,
		KnownSessionTypes: []uint64{1},
		States:            states,
		Logger:            connLogger,
	})
	p.AddRange(1, h)

	if err := p.Serve(); err != nil {
		connLogger.WithError(err).Info("wirelinkd: connection closed")
	}
}
