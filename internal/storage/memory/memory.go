// Package memory provides an in-process counting store. It backs tests and
// single-node deployments that do not need durability; the Postgres store
// is the production implementation.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cory-johannsen/countbot/internal/game/count"
)

// instanceState bundles an instance row with its user rows and the lock
// that serializes mutations on it.
type instanceState struct {
	mu    sync.Mutex
	inst  count.Instance
	users map[string]*count.UserStat
	order []string // user ids in first-seen order, for stable tie-breaks
}

// Store is an in-memory implementation of count.Store. Mutations on a
// single instance are serialized by a per-instance mutex; different
// instances proceed fully in parallel.
type Store struct {
	mu        sync.RWMutex
	instances map[string]*instanceState
}

var _ count.Store = (*Store)(nil)

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{instances: make(map[string]*instanceState)}
}

// state returns the instanceState for id, creating it if absent.
func (s *Store) state(id string) *instanceState {
	s.mu.RLock()
	st, ok := s.instances[id]
	s.mu.RUnlock()
	if ok {
		return st
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok = s.instances[id]; ok {
		return st
	}
	st = &instanceState{
		inst:  count.Instance{ID: id, ExpectedCount: 1},
		users: make(map[string]*count.UserStat),
	}
	s.instances[id] = st
	return st
}

// Update implements count.Store. fn runs exactly once under the instance
// lock; there is no conflict retry in memory.
func (s *Store) Update(ctx context.Context, instanceID, userID string, fn func(inst *count.Instance, user *count.UserStat)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	st := s.state(instanceID)
	st.mu.Lock()
	defer st.mu.Unlock()

	user, ok := st.users[userID]
	if !ok {
		user = &count.UserStat{InstanceID: instanceID, UserID: userID}
		st.users[userID] = user
		st.order = append(st.order, userID)
	}

	fn(&st.inst, user)
	return nil
}

// Instance implements count.Store.
func (s *Store) Instance(ctx context.Context, instanceID string) (count.Instance, error) {
	if err := ctx.Err(); err != nil {
		return count.Instance{}, err
	}

	s.mu.RLock()
	st, ok := s.instances[instanceID]
	s.mu.RUnlock()
	if !ok {
		return count.Instance{}, count.ErrInstanceNotFound
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return st.inst, nil
}

// UserStats implements count.Store.
func (s *Store) UserStats(ctx context.Context, instanceID, userID string) (count.UserStat, error) {
	if err := ctx.Err(); err != nil {
		return count.UserStat{}, err
	}

	s.mu.RLock()
	st, ok := s.instances[instanceID]
	s.mu.RUnlock()
	if !ok {
		return count.UserStat{}, count.ErrUserNotFound
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	user, ok := st.users[userID]
	if !ok {
		return count.UserStat{}, count.ErrUserNotFound
	}
	return *user, nil
}

// Leaderboard implements count.Store. Entries are ranked descending by the
// chosen category; ties break by user id ascending.
func (s *Store) Leaderboard(ctx context.Context, instanceID string, category count.Category, limit int) ([]count.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	st, ok := s.instances[instanceID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	st.mu.Lock()
	entries := make([]count.Entry, 0, len(st.users))
	for _, id := range st.order {
		user := st.users[id]
		score, err := scoreFor(user, category)
		if err != nil {
			st.mu.Unlock()
			return nil, err
		}
		entries = append(entries, count.Entry{UserID: id, Score: score})
	}
	st.mu.Unlock()

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].UserID < entries[j].UserID
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// scoreFor extracts the ranked statistic from a user row.
func scoreFor(user *count.UserStat, category count.Category) (int64, error) {
	switch category {
	case count.CategorySuccesses:
		return user.Successes, nil
	case count.CategoryPrimes:
		return user.PrimesHit, nil
	case count.CategoryFails:
		return user.Fails, nil
	}
	_, err := count.ParseCategory(string(category))
	return 0, err
}
