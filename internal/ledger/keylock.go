package ledger

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// keyLock serializes writers per (product, warehouse) key while leaving
// unrelated keys free to proceed.
type keyLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyLock() *keyLock {
	return &keyLock{locks: make(map[string]*sync.Mutex)}
}

func movementKey(productID, warehouseID uuid.UUID) string {
	return productID.String() + "/" + warehouseID.String()
}

func (kl *keyLock) get(key string) *sync.Mutex {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	if m, ok := kl.locks[key]; ok {
		return m
	}
	m := &sync.Mutex{}
	kl.locks[key] = m
	return m
}

// Lock acquires the mutex for a key.
func (kl *keyLock) Lock(key string) func() {
	m := kl.get(key)
	m.Lock()
	return m.Unlock
}

// LockPair acquires two key mutexes in lexical order so concurrent
// transfers between the same warehouses cannot deadlock.
func (kl *keyLock) LockPair(a, b string) func() {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	first, second := kl.get(a), kl.get(b)
	first.Lock()
	second.Lock()
	return func() {
		second.Unlock()
		first.Unlock()
	}
}
