package renderworker

import "sync"

// Gate keeps the latest-wins contract between a consumer and a session.
// Each request gets a fresh id from Issue; a result is accepted only if
// its id is still the latest issued one. Requests are never cancelled, so
// stale results are expected and dropped here.
type Gate struct {
	mu     sync.Mutex
	latest int64
	result RenderResult
	has    bool
}

// Issue returns the next request id. Ids start at 1 and only grow.
func (g *Gate) Issue() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.latest++
	return g.latest
}

// LatestID returns the most recently issued id, or 0.
func (g *Gate) LatestID() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.latest
}

// Offer retains r and reports true iff r.ID is the latest issued id.
func (g *Gate) Offer(r RenderResult) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if r.ID == 0 || r.ID != g.latest {
		return false
	}
	g.result = r
	g.has = true
	return true
}

// Latest returns the last accepted result.
func (g *Gate) Latest() (RenderResult, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.result, g.has
}
