package store

import "sync"

// MemoryBackend keeps collections in memory. State is lost on exit.
type MemoryBackend struct {
	mu   sync.RWMutex
	docs map[Collection][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		mu:   sync.RWMutex{},
		docs: make(map[Collection][]byte),
	}
}

func (b *MemoryBackend) Get(c Collection) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, ok := b.docs[c]
	if !ok {
		return nil, false, nil
	}

	out := make([]byte, len(data))
	copy(out, data)

	return out, true, nil
}

func (b *MemoryBackend) Put(c Collection, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	b.docs[c] = stored

	return nil
}

func (b *MemoryBackend) Close() error {
	return nil
}
