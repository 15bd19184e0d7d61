package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/countbot/internal/game/count"
)

// DefaultTxRetries bounds how many times a conflicted transaction is
// retried before the fault is surfaced.
const DefaultTxRetries = 3

// CountingStore is the PostgreSQL implementation of count.Store. Mutations
// take a row-level lock on the instance, so concurrent submissions against
// the same instance serialize while different instances proceed in
// parallel.
type CountingStore struct {
	db      *pgxpool.Pool
	retries int
}

var _ count.Store = (*CountingStore)(nil)

// NewCountingStore creates a CountingStore backed by the given pool.
//
// Precondition: db must be a valid, open connection pool. retries < 0
// falls back to DefaultTxRetries.
func NewCountingStore(db *pgxpool.Pool, retries int) *CountingStore {
	if retries < 0 {
		retries = DefaultTxRetries
	}
	return &CountingStore{db: db, retries: retries}
}

// Update implements count.Store. Transient transaction conflicts
// (serialization failures, deadlocks) are retried with a short backoff up
// to the configured bound; any other error is returned as-is.
func (s *CountingStore) Update(ctx context.Context, instanceID, userID string, fn func(inst *count.Instance, user *count.UserStat)) error {
	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
			}
		}

		err := s.updateOnce(ctx, instanceID, userID, fn)
		if err == nil {
			return nil
		}
		if !isRetryableTxError(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("transaction retries exhausted after %d attempts: %w", s.retries+1, lastErr)
}

// updateOnce runs one locked read-modify-write transaction.
func (s *CountingStore) updateOnce(ctx context.Context, instanceID, userID string, fn func(inst *count.Instance, user *count.UserStat)) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	// Create-if-absent, then lock. The FOR UPDATE on the instance row is
	// what serializes concurrent submissions for this instance.
	if _, err := tx.Exec(ctx,
		`INSERT INTO instances (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`,
		instanceID,
	); err != nil {
		return fmt.Errorf("ensuring instance %s: %w", instanceID, err)
	}

	var inst count.Instance
	if err := tx.QueryRow(ctx,
		`SELECT id, expected_count, last_author, high_score,
		        total_successes, total_fails, total_primes
		 FROM instances WHERE id = $1 FOR UPDATE`,
		instanceID,
	).Scan(&inst.ID, &inst.ExpectedCount, &inst.LastAuthor, &inst.HighScore,
		&inst.TotalSuccesses, &inst.TotalFails, &inst.TotalPrimes); err != nil {
		return fmt.Errorf("locking instance %s: %w", instanceID, err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO user_stats (instance_id, user_id) VALUES ($1, $2)
		 ON CONFLICT (instance_id, user_id) DO NOTHING`,
		instanceID, userID,
	); err != nil {
		return fmt.Errorf("ensuring user stats for %s: %w", userID, err)
	}

	user, err := scanUserStat(tx.QueryRow(ctx,
		`SELECT instance_id, user_id, successes, fails, primes_hit,
		        personal_high_score, last_success_value, last_fail_value, last_fail_at
		 FROM user_stats WHERE instance_id = $1 AND user_id = $2 FOR UPDATE`,
		instanceID, userID,
	))
	if err != nil {
		return fmt.Errorf("locking user stats for %s: %w", userID, err)
	}

	fn(&inst, &user)

	if _, err := tx.Exec(ctx,
		`UPDATE instances
		 SET expected_count = $2, last_author = $3, high_score = $4,
		     total_successes = $5, total_fails = $6, total_primes = $7
		 WHERE id = $1`,
		inst.ID, inst.ExpectedCount, inst.LastAuthor, inst.HighScore,
		inst.TotalSuccesses, inst.TotalFails, inst.TotalPrimes,
	); err != nil {
		return fmt.Errorf("updating instance %s: %w", instanceID, err)
	}

	var lastFailAt any
	if !user.LastFailAt.IsZero() {
		lastFailAt = user.LastFailAt
	}
	if _, err := tx.Exec(ctx,
		`UPDATE user_stats
		 SET successes = $3, fails = $4, primes_hit = $5,
		     personal_high_score = $6, last_success_value = $7,
		     last_fail_value = $8, last_fail_at = $9
		 WHERE instance_id = $1 AND user_id = $2`,
		user.InstanceID, user.UserID, user.Successes, user.Fails, user.PrimesHit,
		user.PersonalHighScore, user.LastSuccessValue, user.LastFailValue, lastFailAt,
	); err != nil {
		return fmt.Errorf("updating user stats for %s: %w", userID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Instance implements count.Store.
func (s *CountingStore) Instance(ctx context.Context, instanceID string) (count.Instance, error) {
	var inst count.Instance
	err := s.db.QueryRow(ctx,
		`SELECT id, expected_count, last_author, high_score,
		        total_successes, total_fails, total_primes
		 FROM instances WHERE id = $1`,
		instanceID,
	).Scan(&inst.ID, &inst.ExpectedCount, &inst.LastAuthor, &inst.HighScore,
		&inst.TotalSuccesses, &inst.TotalFails, &inst.TotalPrimes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return count.Instance{}, count.ErrInstanceNotFound
		}
		return count.Instance{}, fmt.Errorf("querying instance %s: %w", instanceID, err)
	}
	return inst, nil
}

// UserStats implements count.Store.
func (s *CountingStore) UserStats(ctx context.Context, instanceID, userID string) (count.UserStat, error) {
	user, err := scanUserStat(s.db.QueryRow(ctx,
		`SELECT instance_id, user_id, successes, fails, primes_hit,
		        personal_high_score, last_success_value, last_fail_value, last_fail_at
		 FROM user_stats WHERE instance_id = $1 AND user_id = $2`,
		instanceID, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return count.UserStat{}, count.ErrUserNotFound
		}
		return count.UserStat{}, fmt.Errorf("querying user stats for %s: %w", userID, err)
	}
	return user, nil
}

// Leaderboard implements count.Store.
func (s *CountingStore) Leaderboard(ctx context.Context, instanceID string, category count.Category, limit int) ([]count.Entry, error) {
	if limit <= 0 {
		return nil, nil
	}

	// The column is chosen from a fixed set, never from raw input.
	var column string
	switch category {
	case count.CategorySuccesses:
		column = "successes"
	case count.CategoryPrimes:
		column = "primes_hit"
	case count.CategoryFails:
		column = "fails"
	default:
		_, err := count.ParseCategory(string(category))
		return nil, err
	}

	rows, err := s.db.Query(ctx, fmt.Sprintf(
		`SELECT user_id, %s FROM user_stats
		 WHERE instance_id = $1
		 ORDER BY %s DESC, user_id ASC
		 LIMIT $2`, column, column),
		instanceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying %s leaderboard: %w", category, err)
	}
	defer rows.Close()

	var entries []count.Entry
	for rows.Next() {
		var e count.Entry
		if err := rows.Scan(&e.UserID, &e.Score); err != nil {
			return nil, fmt.Errorf("scanning leaderboard row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading leaderboard rows: %w", err)
	}
	return entries, nil
}

// scanUserStat reads one user_stats row, mapping a NULL last_fail_at to
// the zero time.
func scanUserStat(row pgx.Row) (count.UserStat, error) {
	var user count.UserStat
	var lastFailAt *time.Time
	err := row.Scan(&user.InstanceID, &user.UserID, &user.Successes, &user.Fails,
		&user.PrimesHit, &user.PersonalHighScore, &user.LastSuccessValue,
		&user.LastFailValue, &lastFailAt)
	if err != nil {
		return count.UserStat{}, err
	}
	if lastFailAt != nil {
		user.LastFailAt = *lastFailAt
	}
	return user, nil
}

// isRetryableTxError reports whether err is a transient conflict worth
// retrying: serialization failure (40001) or deadlock detected (40P01).
func isRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
