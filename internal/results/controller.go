package results

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/kiranshivaraju/eveview/internal/backend"
	"github.com/kiranshivaraju/eveview/internal/credential"
	"github.com/kiranshivaraju/eveview/internal/metrics"
	"github.com/kiranshivaraju/eveview/internal/query"
)

// ErrClosed is returned by operations on a closed Controller.
var ErrClosed = errors.New("results controller closed")

const outcomeSuccess = "success"

// Controller turns query state changes into list requests and keeps the
// status of the most recently submitted one. Safe for concurrent use.
//
// Lock order: mu before the lifecycle's own mutex.
type Controller struct {
	lister  backend.Lister
	session credential.SessionHandler
	life    *Lifecycle

	mu      sync.Mutex
	draft   query.Filters
	applied query.State
	issued  bool
	status  Status
	changed chan struct{}
	closed  bool

	wg sync.WaitGroup
}

// NewController creates an idle controller. session may be nil.
func NewController(ctx context.Context, lister backend.Lister, session credential.SessionHandler) *Controller {
	applied := query.Default()
	return &Controller{
		lister:  lister,
		session: session,
		life:    NewLifecycle(ctx),
		applied: applied,
		status:  idle(applied),
		changed: make(chan struct{}),
	}
}

// SetQueryState issues a request for state unless it equals the last
// committed or pending state. It reports whether a request was issued.
func (c *Controller) SetQueryState(state query.State) (bool, error) {
	if err := state.Validate(); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, ErrClosed
	}
	c.draft = state.Filters
	return c.setQueryStateLocked(state, metrics.TriggerQuery), nil
}

// SetFilters edits the draft filters. It never issues a request; see Search.
func (c *Controller) SetFilters(f query.Filters) error {
	if err := query.Default().WithFilters(f).Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.draft = f
	return nil
}

// Search applies the draft filters from the first page.
func (c *Controller) Search() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, ErrClosed
	}
	state := c.applied.WithFilters(c.draft).WithPage(query.DefaultPage, c.applied.Limit)
	return c.setQueryStateLocked(state, metrics.TriggerSearch), nil
}

// ChangePage replaces the pagination of the applied state and always issues
// a request. Draft filter edits are not applied.
func (c *Controller) ChangePage(page, limit int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	state := c.applied.WithPage(page, limit)
	if err := state.Validate(); err != nil {
		return err
	}
	c.issueLocked(state, metrics.TriggerPage)
	return nil
}

// ClearFilters resets draft and applied state to query.Default.
func (c *Controller) ClearFilters() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, ErrClosed
	}
	c.draft = query.Filters{}
	return c.setQueryStateLocked(query.Default(), metrics.TriggerClear), nil
}

// Refresh re-issues the applied state.
func (c *Controller) Refresh() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.issueLocked(c.applied, metrics.TriggerRefresh)
	return nil
}

// refreshIf re-issues the applied state when cond holds for the current status.
func (c *Controller) refreshIf(cond func(Status) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !cond(c.status) {
		return false
	}
	c.issueLocked(c.applied, metrics.TriggerRefresh)
	return true
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Controller) Draft() query.Filters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

func (c *Controller) Applied() query.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applied
}

// Await blocks until the status is settled or ctx is done, and returns the
// latest status either way.
func (c *Controller) Await(ctx context.Context) (Status, error) {
	for {
		c.mu.Lock()
		st, ch := c.status, c.changed
		c.mu.Unlock()

		if st.Settled() {
			return st, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return st, ctx.Err()
		}
	}
}

// Close cancels the live request and waits for in-flight dispatches to return.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.life.Close()
	if !c.status.Settled() {
		c.setStatusLocked(idle(c.applied))
	}
	c.mu.Unlock()

	c.wg.Wait()
}

func (c *Controller) setQueryStateLocked(state query.State, trigger string) bool {
	if c.issued && c.applied.Equal(state) {
		return false
	}
	c.issueLocked(state, trigger)
	return true
}

func (c *Controller) issueLocked(state query.State, trigger string) {
	c.applied = state
	c.issued = true
	c.setStatusLocked(loading(state))

	t := c.life.Submit(state)
	metrics.IncreaseFetchRequests(trigger)
	slog.Debug("issuing results request",
		"request_id", t.ID.String(),
		"seq", t.Seq,
		"trigger", trigger,
		"page", state.Page,
		"limit", state.Limit,
	)

	c.wg.Add(1)
	go c.dispatch(t)
}

func (c *Controller) dispatch(t *Token) {
	defer c.wg.Done()

	start := time.Now()
	ctx := backend.WithRequestID(t.Context(), t.ID.String())
	resp, err := c.lister.ListResults(ctx, t.State)
	if err == nil && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		err = &backend.StatusError{StatusCode: resp.StatusCode, Message: resp.Message}
	}

	if err != nil && t.Superseded() {
		slog.Debug("superseded request finished", "request_id", t.ID.String(), "seq", t.Seq)
		return
	}

	var expired bool
	c.mu.Lock()
	committed := c.life.Resolve(t, func() {
		elapsed := time.Since(start).Seconds()
		if err == nil {
			c.setStatusLocked(succeeded(t.State, resp.Page))
			metrics.ObserveFetchOutcome(outcomeSuccess, elapsed)
			return
		}

		ce := Classify(err)
		metrics.ObserveFetchOutcome(string(ce.Kind), elapsed)
		if ce.Kind == KindCancelled {
			c.setStatusLocked(idle(t.State))
			return
		}
		c.setStatusLocked(failed(t.State, ce))
		expired = ce.Kind == KindUnauthorized
		slog.Warn("results request failed",
			"request_id", t.ID.String(),
			"kind", string(ce.Kind),
			"error", err,
		)
	})
	c.mu.Unlock()

	if !committed {
		slog.Debug("dropping stale response", "request_id", t.ID.String(), "seq", t.Seq)
		return
	}
	if expired && c.session != nil {
		c.session.SessionExpired(context.WithoutCancel(t.Context()))
	}
}

func (c *Controller) setStatusLocked(s Status) {
	c.status = s
	close(c.changed)
	c.changed = make(chan struct{})
}
