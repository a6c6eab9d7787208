// Package lifecycle implements the per-session start/finish machines: a
// Client variant for the session initiator/finalizer and a Server variant for
// the session responder.
package lifecycle

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/nwaples/wirelink/waypoint"
)

// Outcome is the terminal disposition of a session delivered to the
// initiator once the server has responded to its Start.
type Outcome int

const (
	Accepted Outcome = iota
	Busy
	Refused
	Done
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Refused:
		return "refused"
	case Busy:
		return "busy"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

var clientEdges = waypoint.Edges{
	"ready":        {"start"},
	"start":        {"accept", "refuse", "done", "busy"},
	"accept":       {"finish", "done"},
	"done":         {"finish"},
	"refuse":       {"accomplished"},
	"busy":         {"accomplished"},
	"finish":       {"accomplished"},
	"accomplished": {},
}

// ErrAlreadyResolved is returned when a resolving call arrives after the
// session's one-shot result has already been delivered.
var ErrAlreadyResolved = errors.New("lifecycle: already resolved")

// Client is the session-initiator's lifecycle machine: it issues Start and
// is the only side permitted to issue Finish.
type Client struct {
	mu      sync.Mutex
	machine *waypoint.Machine
	result  chan Outcome
}

// NewClient returns a Client lifecycle machine starting in "ready".
func NewClient() *Client {
	return &Client{machine: waypoint.New("ready", clientEdges)}
}

// State returns the machine's current state label.
func (c *Client) State() string { return c.machine.State() }

// BeginStart transitions ready -> start and returns the channel that will
// receive the server's disposition.
func (c *Client) BeginStart() (<-chan Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.machine.Goto("start"); err != nil {
		return nil, err
	}
	c.result = make(chan Outcome, 1)
	return c.result, nil
}

// ResolveAccept transitions start -> accept, waking the BeginStart waiter
// with Accepted.
func (c *Client) ResolveAccept() error { return c.resolve("accept", Accepted) }

// ResolveRefuse transitions start -> refuse -> accomplished, waking the
// BeginStart waiter with Refused.
func (c *Client) ResolveRefuse() error {
	if err := c.resolve("refuse", Refused); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Goto("accomplished")
}

// ResolveBusy transitions start -> busy -> accomplished, waking the
// BeginStart waiter with Busy.
func (c *Client) ResolveBusy() error {
	if err := c.resolve("busy", Busy); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Goto("accomplished")
}

// ResolveDone transitions start -> done (or accept -> done), waking the
// BeginStart waiter with Done if it had not yet been woken by Accept.
func (c *Client) ResolveDone() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.machine.Goto("done"); err != nil {
		return err
	}
	if c.result != nil {
		select {
		case c.result <- Done:
			close(c.result)
			c.result = nil
		default:
		}
	}
	return nil
}

func (c *Client) resolve(state string, outcome Outcome) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return errors.Wrap(ErrAlreadyResolved, state)
	}
	if err := c.machine.Goto(state); err != nil {
		return err
	}
	c.result <- outcome
	close(c.result)
	c.result = nil
	return nil
}

// Finish transitions to "finish" then "accomplished"; only the initiator may
// call it, matching the protocol rule that the initiator is always the
// finalizer.
func (c *Client) Finish() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.machine.Goto("finish"); err != nil {
		return err
	}
	return c.machine.Goto("accomplished")
}
