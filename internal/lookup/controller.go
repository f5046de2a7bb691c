package lookup

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Fetcher is the outbound half of a lookup. *Client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, city string) (*Response, error)
}

// Controller runs lookup cycles and owns the single DisplayState cell.
// Only the most recently submitted lookup may change the state; completions
// of superseded lookups are dropped.
type Controller struct {
	fetcher Fetcher
	log     *slog.Logger
	now     func() time.Time

	mu        sync.Mutex
	state     DisplayState
	seq       uint64
	cancel    context.CancelFunc
	observers []func(DisplayState)

	inflight sync.WaitGroup
}

// NewController constructs a Controller in the Idle state.
func NewController(fetcher Fetcher, log *slog.Logger) *Controller {
	return NewControllerWithClock(fetcher, log, time.Now)
}

// NewControllerWithClock constructs a Controller with a custom clock (used in tests).
func NewControllerWithClock(fetcher Fetcher, log *slog.Logger, now func() time.Time) *Controller {
	return &Controller{
		fetcher: fetcher,
		log:     log,
		now:     now,
		state:   Idle{},
	}
}

// State returns the current display state.
func (c *Controller) State() DisplayState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn to be called on every state transition, in order.
// fn runs while the controller is locked and must not call back into it.
func (c *Controller) Subscribe(fn func(DisplayState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// Submit starts a lookup for rawInput. Blank input is ignored and Submit
// returns false. Otherwise the state is Loading by the time Submit returns
// and the request runs in the background.
func (c *Controller) Submit(ctx context.Context, rawInput string) bool {
	q, ok := ParseQuery(rawInput)
	if !ok {
		return false
	}

	reqCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.seq++
	seq := c.seq
	c.cancel = cancel
	c.setLocked(Loading{Query: q})
	c.inflight.Add(1)
	c.mu.Unlock()

	c.log.Debug("lookup dispatched", "city", string(q), "seq", seq)
	go c.dispatch(reqCtx, cancel, seq, q)
	return true
}

// Wait blocks until every dispatched lookup has resolved.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

func (c *Controller) dispatch(ctx context.Context, cancel context.CancelFunc, seq uint64, q Query) {
	defer c.inflight.Done()
	defer cancel()

	resp, err := c.fetcher.Fetch(ctx, string(q))

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		c.log.Debug("discarding superseded lookup", "city", string(q), "seq", seq, "latest", c.seq)
		return
	}
	c.cancel = nil

	c.setLocked(c.reduce(q, resp, err))
}

// reduce turns a fetch outcome into the next display state.
func (c *Controller) reduce(q Query, resp *Response, err error) DisplayState {
	switch {
	case errors.Is(err, ErrNotFound):
		c.log.Info("lookup not found", "city", string(q))
		return Failed{Kind: NotFound}
	case err != nil:
		c.log.Warn("lookup failed", "city", string(q), "err", err)
		return Failed{Kind: Unavailable}
	case resp == nil:
		c.log.Warn("lookup returned no response", "city", string(q))
		return Failed{Kind: Unavailable}
	}

	c.log.Debug("lookup succeeded", "city", string(q), "server_retrieved_at", resp.ServerRetrievedAt)
	return Success{Result: LookupResult{
		City:        resp.City,
		Reading:     resp.Reading,
		RetrievedAt: c.now(),
	}}
}

// setLocked must be called with c.mu held.
func (c *Controller) setLocked(s DisplayState) {
	c.state = s
	for _, fn := range c.observers {
		fn(s)
	}
}
