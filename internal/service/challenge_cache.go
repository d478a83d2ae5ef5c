package service

import (
	"sync"

	"txguardian/internal/domain"
)

// challengeCache holds in-flight challenge sets. Sets are ephemeral: they
// live only until the transaction leaves blocked and are never persisted.
// A process restart just means the owner requests a fresh challenge.
//
// The per-transaction mutexes serialize answer submissions for the same
// transaction within this process; cross-process races are resolved by the
// status compare-and-set and the ledger unique constraint.
type challengeCache struct {
	mu    sync.Mutex
	sets  map[int64]*domain.ChallengeSet
	locks map[int64]*sync.Mutex
}

func newChallengeCache() *challengeCache {
	return &challengeCache{
		sets:  make(map[int64]*domain.ChallengeSet),
		locks: make(map[int64]*sync.Mutex),
	}
}

// put stores a copy of the set, so the caller's pointer stays detached
// from the cached state.
func (c *challengeCache) put(set *domain.ChallengeSet) {
	cp := copySet(set)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets[set.TransactionID] = cp
}

// get returns the live set. Mutating callers must hold the transaction's
// submission mutex.
func (c *challengeCache) get(txID int64) *domain.ChallengeSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets[txID]
}

// view returns a copy that is safe to hand out without the submission
// mutex.
func (c *challengeCache) view(txID int64) *domain.ChallengeSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.sets[txID]
	if !ok {
		return nil
	}
	return copySet(set)
}

func copySet(set *domain.ChallengeSet) *domain.ChallengeSet {
	cp := *set
	cp.Questions = append([]domain.Question(nil), set.Questions...)
	return &cp
}

func (c *challengeCache) delete(txID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sets, txID)
}

// lockTx returns the submission mutex for a transaction, creating it on
// first use. Lock entries are tiny and bounded by the number of distinct
// blocked transactions seen by this process.
func (c *challengeCache) lockTx(txID int64) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.locks[txID]
	if !ok {
		m = &sync.Mutex{}
		c.locks[txID] = m
	}
	return m
}
