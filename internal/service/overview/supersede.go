package overview

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrSuperseded is returned when a newer computation for the same key replaced this one.
var ErrSuperseded = errors.New("computation superseded by a newer request")

// Superseder tracks the latest computation per key. Starting a new one cancels the previous.
type Superseder struct {
	mu      sync.Mutex
	current map[string]*Token
}

// NewSuperseder creates an empty tracker.
func NewSuperseder() *Superseder {
	return &Superseder{current: make(map[string]*Token)}
}

// Token identifies one computation.
type Token struct {
	ID     string
	key    string
	ctx    context.Context
	cancel context.CancelFunc
	owner  *Superseder
}

// Begin registers a computation for key, cancelling any in-flight one, and returns a context
// that is cancelled when a newer computation begins or Done is called.
func (s *Superseder) Begin(ctx context.Context, key string) (context.Context, *Token) {
	cctx, cancel := context.WithCancel(ctx)
	tok := &Token{ID: uuid.NewString(), key: key, ctx: cctx, cancel: cancel, owner: s}

	s.mu.Lock()
	if prev, ok := s.current[key]; ok {
		prev.cancel()
	}
	s.current[key] = tok
	s.mu.Unlock()

	return cctx, tok
}

// Latest reports whether tok is still the newest computation for its key and not cancelled.
func (t *Token) Latest() bool {
	if t.ctx.Err() != nil {
		return false
	}
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	return t.owner.current[t.key] == t
}

// Apply runs fn only if the token is still the latest, holding the lock so no newer
// computation can start applying concurrently.
func (t *Token) Apply(fn func()) error {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.ctx.Err() != nil || t.owner.current[t.key] != t {
		return ErrSuperseded
	}
	fn()
	return nil
}

// Done releases the token.
func (t *Token) Done() {
	t.owner.mu.Lock()
	if t.owner.current[t.key] == t {
		delete(t.owner.current, t.key)
	}
	t.owner.mu.Unlock()
	t.cancel()
}
