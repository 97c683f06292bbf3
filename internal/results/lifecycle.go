package results

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/eveview/internal/metrics"
	"github.com/kiranshivaraju/eveview/internal/query"
)

// Token identifies one outbound request. It is created by Lifecycle.Submit and
// stays valid until it is superseded or resolved.
type Token struct {
	ID    uuid.UUID
	Seq   uint64
	State query.State

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	superseded bool
}

// Context is cancelled once the token is superseded or its lifecycle closes.
func (t *Token) Context() context.Context {
	return t.ctx
}

// Superseded reports whether a newer Submit cancelled this token.
func (t *Token) Superseded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.superseded
}

func (t *Token) supersede() {
	t.mu.Lock()
	t.superseded = true
	t.mu.Unlock()
	t.cancel()
}

// Lifecycle owns the single live request slot.
type Lifecycle struct {
	mu     sync.Mutex
	parent context.Context
	seq    uint64
	live   *Token
}

// NewLifecycle creates a Lifecycle whose tokens derive from parent.
func NewLifecycle(parent context.Context) *Lifecycle {
	return &Lifecycle{parent: parent}
}

// Submit cancels the live token, if any, and returns its replacement.
func (l *Lifecycle) Submit(state query.State) *Token {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.live != nil {
		l.live.supersede()
		metrics.IncreaseFetchSuperseded()
	}

	l.seq++
	ctx, cancel := context.WithCancel(l.parent)
	t := &Token{
		ID:     uuid.New(),
		Seq:    l.seq,
		State:  state,
		ctx:    ctx,
		cancel: cancel,
	}
	l.live = t
	return t
}

// Resolve returns true iff t is the live token. In that case the slot is
// cleared and commit, when non-nil, runs before any other Submit can proceed.
// Resolving a stale or already resolved token drops the outcome.
func (l *Lifecycle) Resolve(t *Token, commit func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if t == nil || l.live != t {
		return false
	}
	l.live = nil
	if commit != nil {
		commit()
	}
	t.cancel()
	return true
}

// Live returns the live token, or nil.
func (l *Lifecycle) Live() *Token {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.live
}

// Close cancels the live token. Its outcome can no longer be committed.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.live != nil {
		l.live.cancel()
		l.live = nil
	}
}
