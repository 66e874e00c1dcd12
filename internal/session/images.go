package session

import "sync"

// imageStore holds persistent images: payloads registered ahead of time and
// served to every render in place of a fetch.
type imageStore struct {
	mu     sync.RWMutex
	images map[string][]byte
}

func newImageStore(seed map[string][]byte) *imageStore {
	s := &imageStore{images: make(map[string][]byte, len(seed))}
	for src, data := range seed {
		s.images[src] = data
	}
	return s
}

func (s *imageStore) put(src string, data []byte) {
	s.mu.Lock()
	s.images[src] = data
	s.mu.Unlock()
}

func (s *imageStore) clear() {
	s.mu.Lock()
	s.images = make(map[string][]byte)
	s.mu.Unlock()
}

// snapshot returns a copy of the store for one render.
func (s *imageStore) snapshot() map[string][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]byte, len(s.images))
	for src, data := range s.images {
		out[src] = data
	}
	return out
}
