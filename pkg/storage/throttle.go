package storage

import (
	"context"
	"io"
	"sync"
	"time"
)

// Limiter is a token bucket shared by every copy of a backend
type Limiter struct {
	bytesPerSecond int64
	mu             sync.Mutex
	tokens         int64     // Available tokens (bytes)
	lastUpdate     time.Time // Last time tokens were updated
	bucketSize     int64     // Maximum tokens (burst size)
}

// NewLimiter creates a limiter; a non-positive rate means unlimited and returns nil
func NewLimiter(bytesPerSecond int64) *Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}

	// one second of data, never below 64KB so small limits still move whole buffers
	bucketSize := bytesPerSecond
	if bucketSize < 65536 {
		bucketSize = 65536
	}

	return &Limiter{
		bytesPerSecond: bytesPerSecond,
		tokens:         bucketSize,
		lastUpdate:     time.Now(),
		bucketSize:     bucketSize,
	}
}

// wait blocks until n tokens are available or ctx is done
func (l *Limiter) wait(ctx context.Context, n int64) error {
	for {
		l.mu.Lock()
		l.refill()
		if l.tokens >= n {
			l.tokens -= n
			l.mu.Unlock()
			return nil
		}

		deficit := n - l.tokens
		delay := time.Duration(float64(deficit) / float64(l.bytesPerSecond) * float64(time.Second))
		if delay < time.Millisecond {
			delay = time.Millisecond
		}
		l.mu.Unlock()

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// refill must be called with the lock held
func (l *Limiter) refill() {
	now := time.Now()
	add := int64(float64(now.Sub(l.lastUpdate)) / float64(time.Second) * float64(l.bytesPerSecond))
	if add > 0 {
		l.tokens += add
		if l.tokens > l.bucketSize {
			l.tokens = l.bucketSize
		}
		l.lastUpdate = now
	}
}

// throttledReader checks ctx between reads and optionally applies a Limiter
type throttledReader struct {
	ctx     context.Context
	reader  io.Reader
	limiter *Limiter
}

func newThrottledReader(ctx context.Context, r io.Reader, limiter *Limiter) io.Reader {
	return &throttledReader{ctx: ctx, reader: r, limiter: limiter}
}

func (r *throttledReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}

	if r.limiter != nil {
		if int64(len(p)) > r.limiter.bucketSize {
			p = p[:r.limiter.bucketSize]
		}
		if err := r.limiter.wait(r.ctx, int64(len(p))); err != nil {
			return 0, err
		}
	}

	return r.reader.Read(p)
}
