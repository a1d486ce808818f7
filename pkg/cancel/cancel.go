// Package cancel provides generation-based cooperative cancellation.
//
// A Source owns a monotonically increasing generation counter. A Token
// captures the generation of its Source (and of every ancestor Source) at
// creation time and reports cancelled as soon as any of those counters has
// moved on. Cancelling a Source therefore invalidates every Token taken from
// it, or from any of its children, before the bump. Tokens taken after the
// bump are live again.
//
// Each job gets its own Source via NewJob, so cancelling one job leaves the
// others running; CancelAll bumps the process-wide root and reaches every
// outstanding token.
package cancel

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrCancelled is returned by operations that stopped because their token tripped
var ErrCancelled = errors.New("operation cancelled")

// Source owns a cancel generation
type Source struct {
	gen    atomic.Uint64
	parent *Source
}

var root = &Source{}

// NewJob creates a per-job source under the process-wide root
func NewJob() *Source {
	return root.Child()
}

// CancelAll invalidates every token created from a NewJob source so far
func CancelAll() {
	root.Cancel()
}

// Child creates a source whose tokens are also invalidated when s is cancelled
func (s *Source) Child() *Source {
	return &Source{parent: s}
}

// Cancel bumps the generation
func (s *Source) Cancel() {
	s.gen.Add(1)
}

// Token captures the current generation of s and its ancestors
func (s *Source) Token() Token {
	var marks []mark
	for src := s; src != nil; src = src.parent {
		marks = append(marks, mark{src: src, gen: src.gen.Load()})
	}
	return Token{marks: marks}
}

type mark struct {
	src *Source
	gen uint64
}

// Token is a cancellation snapshot. The zero Token is never cancelled.
type Token struct {
	marks []mark
	ctx   context.Context
}

// Never returns a token that is never cancelled
func Never() Token {
	return Token{}
}

// IsZero reports whether t is bound to neither a source nor a context
func (t Token) IsZero() bool {
	return len(t.marks) == 0 && t.ctx == nil
}

// WithContext returns a copy of t that is also cancelled when ctx is done
func (t Token) WithContext(ctx context.Context) Token {
	t.ctx = ctx
	return t
}

// IsCancelled reports whether any captured generation has advanced
func (t Token) IsCancelled() bool {
	for _, m := range t.marks {
		if m.src.gen.Load() != m.gen {
			return true
		}
	}
	if t.ctx != nil && t.ctx.Err() != nil {
		return true
	}
	return false
}

// Err returns ErrCancelled once the token has tripped, nil otherwise
func (t Token) Err() error {
	if t.IsCancelled() {
		return ErrCancelled
	}
	return nil
}
