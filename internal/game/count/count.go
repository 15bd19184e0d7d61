// Package count implements the sequential counting game: per-instance
// expected-count state, the no-consecutive-author rule, and durable
// per-user statistics.
package count

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInstanceNotFound is returned when an instance has never been touched.
var ErrInstanceNotFound = errors.New("count: instance not found")

// ErrUserNotFound is returned when a user has never interacted with an
// instance.
var ErrUserNotFound = errors.New("count: user not found")

// Instance is the authoritative counting state for one game channel.
//
// Invariant: ExpectedCount >= 1.
type Instance struct {
	ID             string
	ExpectedCount  int64
	LastAuthor     string // empty until the first submission
	HighScore      int64
	TotalSuccesses int64
	TotalFails     int64
	TotalPrimes    int64
}

// UserStat is the per-(instance, user) statistics row, created lazily on
// first submission.
type UserStat struct {
	InstanceID        string
	UserID            string
	Successes         int64
	Fails             int64
	PrimesHit         int64
	PersonalHighScore int64
	LastSuccessValue  int64
	LastFailValue     int64
	LastFailAt        time.Time // zero until the first failure
}

// Category selects which statistic a leaderboard ranks by.
type Category string

const (
	CategorySuccesses Category = "successes"
	CategoryPrimes    Category = "primes"
	CategoryFails     Category = "fails"
)

// ParseCategory maps a user-supplied category name to a Category.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategorySuccesses, CategoryPrimes, CategoryFails:
		return Category(s), nil
	}
	return "", fmt.Errorf("count: unknown leaderboard category %q", s)
}

// Entry is one leaderboard row.
type Entry struct {
	UserID string
	Score  int64
}

// Store persists counting state. Implementations must serialize all
// mutating access per instance: two concurrent Update calls on the same
// instance must not both observe the same ExpectedCount and both commit.
type Store interface {
	// Update runs fn against the instance row and the (instance, user)
	// statistics row, creating either with defaults if absent, and commits
	// the mutated state atomically.
	//
	// fn may run more than once if the transaction retries on conflict; it
	// must not have side effects beyond mutating its arguments and any
	// captured result variables it fully overwrites.
	Update(ctx context.Context, instanceID, userID string, fn func(inst *Instance, user *UserStat)) error

	// Instance returns the current instance state, or ErrInstanceNotFound.
	Instance(ctx context.Context, instanceID string) (Instance, error)

	// UserStats returns the statistics row, or ErrUserNotFound.
	UserStats(ctx context.Context, instanceID, userID string) (UserStat, error)

	// Leaderboard returns up to limit entries ranked descending by the
	// chosen category. Ties are broken by user id ascending so repeated
	// queries over unchanged state return identical orderings.
	Leaderboard(ctx context.Context, instanceID string, category Category, limit int) ([]Entry, error)
}
