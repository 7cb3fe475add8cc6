package user

import (
	"sync"

	id "idvault/pkg/domain"
)

// Keyed serializes writers per user id. Services wired with a Keyed lock close
// the lost-update window that plain load → mutate → save leaves open; without
// it the later save silently overwrites the earlier one, matching legacy
// behavior.
//
// Mutexes are created lazily and never reclaimed. The map grows with the
// number of distinct users touched by this process, which is acceptable for
// request-scoped services.
type Keyed struct {
	mu    sync.Mutex
	locks map[id.UserID]*sync.Mutex
}

func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[id.UserID]*sync.Mutex)}
}

// Lock acquires the per-user mutex and returns the release function.
func (k *Keyed) Lock(userID id.UserID) func() {
	k.mu.Lock()
	m, ok := k.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		k.locks[userID] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
