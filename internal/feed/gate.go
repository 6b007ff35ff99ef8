package feed

import "sync"

// Gate admits one page load at a time per client key. A load that arrives
// while the previous one for the same key is still running is refused, not
// queued.
type Gate struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewGate() *Gate {
	return &Gate{inFlight: make(map[string]struct{})}
}

// Acquire returns ok=false when key already has a load in flight. Otherwise
// the caller must call release when done.
func (g *Gate) Acquire(key string) (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.inFlight[key]; busy {
		return nil, false
	}
	g.inFlight[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inFlight, key)
			g.mu.Unlock()
		})
	}, true
}
