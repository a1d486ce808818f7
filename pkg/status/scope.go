package status

import "sync"

// Completer is anything that can be completed with a message
type Completer interface {
	Complete(message string)
}

// ResultScope completes a reporter exactly once however the enclosing
// function returns:
//
//	scope := status.NewResultScope(r)
//	defer scope.Close()
type ResultScope struct {
	r       Completer
	once    sync.Once
	mu      sync.Mutex
	message string
}

// NewResultScope guards r
func NewResultScope(r Completer) *ResultScope {
	return &ResultScope{r: r}
}

// SetMessage sets the completion message used by Close
func (s *ResultScope) SetMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Close completes the reporter; later calls do nothing
func (s *ResultScope) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		msg := s.message
		s.mu.Unlock()
		s.r.Complete(msg)
	})
}
