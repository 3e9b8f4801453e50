package application

import "sync"

// skuMutex provides per-SKU mutual exclusion for the commit step. Keys are
// never evicted; the SKU universe is bounded and an entry is a single mutex.
type skuMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSKUMutex() *skuMutex {
	return &skuMutex{locks: make(map[string]*sync.Mutex)}
}

func (m *skuMutex) get(sku string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[sku]
	if !ok {
		l = &sync.Mutex{}
		m.locks[sku] = l
	}
	return l
}

// Lock acquires the mutex for a SKU and returns the unlock function.
func (m *skuMutex) Lock(sku string) func() {
	l := m.get(sku)
	l.Lock()
	return l.Unlock
}
