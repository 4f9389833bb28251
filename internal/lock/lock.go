// Package lock implements the card's four-digit combination lock.
//
// A Controller starts LOCKED with a random combination that never equals the
// target. Turning the tumblers until the combination matches moves it to
// UNLOCKING immediately; after a fixed delay it becomes UNLOCKED and the
// unlocked callback fires exactly once. There is no way back to LOCKED.
package lock

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/starford/keepsake/internal/apperr"
)

// Digits is the number of tumblers on the lock.
const Digits = 4

// DefaultDelay is the pause between UNLOCKING and UNLOCKED.
const DefaultDelay = 700 * time.Millisecond

// Combination is the ordered digit sequence shown on the tumblers.
type Combination [Digits]int

// String renders the combination as a digit string, e.g. "1023".
func (c Combination) String() string {
	b := make([]byte, Digits)
	for i, d := range c {
		b[i] = byte('0' + d)
	}
	return string(b)
}

// ParseCode parses a string of exactly four ASCII digits.
func ParseCode(s string) (Combination, error) {
	var c Combination
	if len(s) != Digits {
		return c, fmt.Errorf("%w: code must have %d digits, got %q", apperr.ErrInvalidArgument, Digits, s)
	}
	for i := 0; i < Digits; i++ {
		if s[i] < '0' || s[i] > '9' {
			return c, fmt.Errorf("%w: code contains non-digit %q", apperr.ErrInvalidArgument, s[i])
		}
		c[i] = int(s[i] - '0')
	}
	return c, nil
}

// Timer is a pending one-shot callback.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

// IntN returns a uniformly random int in [0, n).
type IntN func(n int) int

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Option configures a Controller.
type Option func(*Controller)

// WithDelay sets the UNLOCKING → UNLOCKED delay.
func WithDelay(d time.Duration) Option {
	return func(c *Controller) { c.delay = d }
}

// WithRand sets the digit source used for the initial combination.
func WithRand(fn IntN) Option {
	return func(c *Controller) { c.intN = fn }
}

// WithAfterFunc replaces the scheduler used for the delayed unlock.
func WithAfterFunc(fn AfterFunc) Option {
	return func(c *Controller) { c.afterFunc = fn }
}

// OnUnlocking registers a callback run when the combination first matches.
func OnUnlocking(fn func()) Option {
	return func(c *Controller) { c.onUnlocking = fn }
}

// OnUnlocked registers the callback run once the unlock delay has elapsed.
func OnUnlocked(fn func()) Option {
	return func(c *Controller) { c.onUnlocked = fn }
}

// Controller owns a combination and its lock state. It is safe for concurrent use;
// callbacks are invoked without holding the internal mutex.
type Controller struct {
	mu          sync.Mutex
	target      Combination
	combo       Combination
	state       State
	delay       time.Duration
	intN        IntN
	afterFunc   AfterFunc
	timer       Timer
	disposed    bool
	onUnlocking func()
	onUnlocked  func()
}

// New creates a LOCKED controller for target with a random starting combination.
func New(target Combination, opts ...Option) *Controller {
	c := &Controller{
		target:    target,
		state:     Locked,
		delay:     DefaultDelay,
		intN:      rand.IntN,
		afterFunc: realAfterFunc,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.combo = randomCombination(target, c.intN)
	return c
}

// randomCombination draws digits until the result differs from target.
func randomCombination(target Combination, intN IntN) Combination {
	for {
		var c Combination
		for i := range c {
			c[i] = intN(10)
		}
		if c != target {
			return c
		}
	}
}

// Increment turns the tumbler at pos up by one, wrapping 9 to 0.
func (c *Controller) Increment(pos int) {
	c.turn(pos, 1)
}

// Decrement turns the tumbler at pos down by one, wrapping 0 to 9.
func (c *Controller) Decrement(pos int) {
	c.turn(pos, -1)
}

func (c *Controller) turn(pos, delta int) {
	if pos < 0 || pos >= Digits {
		panic(fmt.Sprintf("lock: tumbler position %d out of range [0,%d)", pos, Digits))
	}

	c.mu.Lock()
	if c.state != Locked || c.disposed {
		c.mu.Unlock()
		return
	}
	c.combo[pos] = (c.combo[pos] + delta + 10) % 10
	if c.combo != c.target {
		c.mu.Unlock()
		return
	}

	c.state = Unlocking
	cb := c.onUnlocking
	c.mu.Unlock()

	// The timer is armed only once the unlocking callback has returned, so
	// observers always see unlocking before unlocked.
	if cb != nil {
		cb()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Unlocking && !c.disposed {
		c.timer = c.afterFunc(c.delay, c.finishUnlock)
	}
}

func (c *Controller) finishUnlock() {
	c.mu.Lock()
	if c.state != Unlocking || c.disposed {
		c.mu.Unlock()
		return
	}
	c.state = Unlocked
	c.timer = nil
	cb := c.onUnlocked
	c.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// Combination returns a copy of the current combination.
func (c *Controller) Combination() Combination {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.combo
}

// State returns the current lock state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Dispose cancels a pending unlock and turns every later call into a no-op.
// The unlocked callback never fires after Dispose returns.
func (c *Controller) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disposed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
