// Package exchange implements the per-named-state value-exchange machines: a
// Client variant for operations this side initiates (TellState/ShowState) and
// a Server variant for operations the peer initiates toward this side.
package exchange

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/nwaples/wirelink/packet"
	"github.com/nwaples/wirelink/waypoint"
)

var clientEdges = waypoint.Edges{
	"ready":        {"tell", "show"},
	"show":         {"confirm"},
	"tell":         {"confirm"},
	"confirm":      {"accomplished"},
	"accomplished": {},
}

// ErrNotInFlight is returned when a resolving call arrives with no matching
// outstanding request to resolve.
var ErrNotInFlight = errors.New("exchange: no request in flight")

// Client coordinates a value this side proposes (Tell) or requests
// (Show) of one named state held by the peer.
type Client struct {
	mu        sync.Mutex
	machine   *waypoint.Machine
	done      chan packet.ConfirmCode
	showValue []byte
}

// NewClient returns a Client exchange machine starting in "ready".
func NewClient() *Client {
	return &Client{machine: waypoint.New("ready", clientEdges)}
}

// State returns the machine's current state label.
func (c *Client) State() string { return c.machine.State() }

// BeginTell transitions ready -> tell and returns the channel that will
// receive the peer's answer once ResolveConfirm is called.
func (c *Client) BeginTell() (<-chan packet.ConfirmCode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.machine.Goto("tell"); err != nil {
		return nil, err
	}
	c.done = make(chan packet.ConfirmCode, 1)
	return c.done, nil
}

// BeginShow transitions ready -> show, anticipating a Tell reply from the peer.
func (c *Client) BeginShow() (<-chan packet.ConfirmCode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.machine.Goto("show"); err != nil {
		return nil, err
	}
	c.done = make(chan packet.ConfirmCode, 1)
	return c.done, nil
}

// ResolveConfirm completes an in-flight tell (tell -> confirm -> accomplished),
// waking the waiter started by BeginTell with answer.
func (c *Client) ResolveConfirm(answer packet.ConfirmCode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.machine.Is("tell") {
		return errors.Wrap(ErrNotInFlight, "resolve confirm")
	}
	if err := c.machine.Goto("confirm"); err != nil {
		return err
	}
	if err := c.machine.Goto("accomplished"); err != nil {
		return err
	}
	c.done <- answer
	close(c.done)
	return nil
}

// ResolveShow completes an in-flight show (show -> confirm -> accomplished)
// with the value pushed back by the peer's reply Tell, waking the waiter
// started by BeginShow.
func (c *Client) ResolveShow(value []byte, answer packet.ConfirmCode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.machine.Is("show") {
		return errors.Wrap(ErrNotInFlight, "resolve show")
	}
	if err := c.machine.Goto("confirm"); err != nil {
		return err
	}
	if err := c.machine.Goto("accomplished"); err != nil {
		return err
	}
	c.showValue = value
	c.done <- answer
	close(c.done)
	return nil
}

// ShowValue returns the value most recently delivered by ResolveShow.
func (c *Client) ShowValue() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.showValue
}
