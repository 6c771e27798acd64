package engine

import "sync"

// WalletLocks is a thread-safe table of per-wallet mutexes. Holding a
// wallet's mutex serializes every read-modify-write of its balance,
// positions and log; different wallets never contend.
type WalletLocks struct {
	mu    sync.RWMutex
	locks map[string]*sync.Mutex
}

// NewWalletLocks creates an empty WalletLocks.
func NewWalletLocks() *WalletLocks {
	return &WalletLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

// GetOrCreate returns the mutex for walletID, creating one if it doesn't
// already exist.
func (wl *WalletLocks) GetOrCreate(walletID string) *sync.Mutex {
	wl.mu.RLock()
	l, ok := wl.locks[walletID]
	wl.mu.RUnlock()
	if ok {
		return l
	}

	wl.mu.Lock()
	defer wl.mu.Unlock()
	// Double-check after acquiring write lock.
	if l, ok = wl.locks[walletID]; ok {
		return l
	}
	l = &sync.Mutex{}
	wl.locks[walletID] = l
	return l
}
