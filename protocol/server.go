package protocol

import (
	"net"
	"time"

	"github.com/sirupsen/logrus"
)

// ServeConn is run on each incoming connection a Server accepts. It must
// arrange for the connection to be closed when it returns (typically by
// calling (*Protocol).Serve, whose return closes the net.Conn).
type ServeConn func(net.Conn)

// Server accepts connections on a net.Listener and hands each to ServeConn
// in its own goroutine, backing off on Accept errors that report Timeout().
type Server struct {
	ServeConn ServeConn
	Logger    logrus.FieldLogger
}

// Serve accepts connections on l until Accept returns an error that is not a
// timeout.
func (srv *Server) Serve(l net.Listener) error {
	logger := srv.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	defer l.Close()
	var tempDelay time.Duration
	for {
		c, err := l.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else {
					tempDelay *= 2
				}
				if max := time.Second; tempDelay > max {
					tempDelay = max
				}
				logger.WithError(err).Warnf("protocol: accept error, retrying in %s", tempDelay)
				time.Sleep(tempDelay)
				continue
			}
			return err
		}
		tempDelay = 0
		go srv.ServeConn(c)
	}
}
