// Package guard decides whether a portal view may render for the current session.
package guard

import (
	"sync"

	"github.com/internhub/portal/internal/user"
)

// State is the outcome of a route check
type State int

// Route check states
const (
	Loading State = iota
	Unauthenticated
	Forbidden
	Authorized
)

// String returns the state name
func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case Authorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// Decide is the route decision: no account or an expired token is
// Unauthenticated, no shared role is Forbidden, anything else is Authorized.
func Decide(account *user.Account, expired bool, allowed user.RoleSet) State {
	if account == nil || expired {
		return Unauthenticated
	}
	if !account.RoleSet().Intersects(allowed) {
		return Forbidden
	}
	return Authorized
}

// Check is a one-shot route check. It starts in Loading and is resolved
// exactly once; later resolutions are ignored.
type Check struct {
	mu      sync.Mutex
	state   State
	account *user.Account
	done    chan struct{}
}

// NewCheck creates a check in the Loading state
func NewCheck() *Check {
	return &Check{state: Loading, done: make(chan struct{})}
}

// Resolve settles the check and returns its final state
func (c *Check) Resolve(account *user.Account, expired bool, allowed user.RoleSet) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Loading {
		return c.state
	}
	c.state = Decide(account, expired, allowed)
	if c.state == Authorized {
		c.account = account
	}
	close(c.done)
	return c.state
}

// State returns the current state
func (c *Check) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Account returns the authorized account, or nil unless the check is Authorized
func (c *Check) Account() *user.Account {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.account
}

// Done is closed once the check is resolved
func (c *Check) Done() <-chan struct{} {
	return c.done
}
