package count_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/countbot/internal/game/count"
	"github.com/cory-johannsen/countbot/internal/storage/memory"
)

// TestValidator_SequentialAcceptance walks a fresh instance through its
// first two counts.
func TestValidator_SequentialAcceptance(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	v := count.NewValidator(store)

	out, err := v.Validate(ctx, 1, "g", "alice")
	require.NoError(t, err)
	assert.True(t, out.Accepted)
	assert.False(t, out.Prime, "1 is not prime")
	assert.Equal(t, int64(1), out.Expected)

	out, err = v.Validate(ctx, 2, "g", "bob")
	require.NoError(t, err)
	assert.True(t, out.Accepted)
	assert.True(t, out.Prime, "2 is prime")

	inst, err := store.Instance(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, int64(3), inst.ExpectedCount)
	assert.Equal(t, "bob", inst.LastAuthor)
	assert.Equal(t, int64(2), inst.HighScore)
	assert.Equal(t, int64(2), inst.TotalSuccesses)
	assert.Equal(t, int64(1), inst.TotalPrimes)
}

// TestValidator_NoConsecutiveAuthor verifies the same user cannot advance
// the count twice in a row, even with the right value.
func TestValidator_NoConsecutiveAuthor(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	v := count.NewValidator(store)

	out, err := v.Validate(ctx, 1, "g", "alice")
	require.NoError(t, err)
	require.True(t, out.Accepted)

	out, err = v.Validate(ctx, 2, "g", "alice")
	require.NoError(t, err)
	assert.False(t, out.Accepted)

	inst, err := store.Instance(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, int64(1), inst.ExpectedCount, "failure resets the count")
	assert.Equal(t, int64(1), inst.TotalFails)
}

// TestValidator_WrongValueReset verifies a wrong value resets the expected
// count to 1 and records the failure against the submitter.
func TestValidator_WrongValueReset(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	v := count.NewValidator(store)

	users := []string{"a", "b", "c", "d"}
	for i := int64(1); i <= 4; i++ {
		out, err := v.Validate(ctx, i, "g", users[i-1])
		require.NoError(t, err)
		require.True(t, out.Accepted)
	}

	out, err := v.Validate(ctx, 7, "g", "carol")
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.Equal(t, int64(5), out.Expected)

	inst, err := store.Instance(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, int64(1), inst.ExpectedCount)

	stat, err := store.UserStats(ctx, "g", "carol")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stat.Fails)
	assert.Equal(t, int64(0), stat.Successes)
	assert.Equal(t, int64(5), stat.LastFailValue, "records the expected count at failure time")
	assert.False(t, stat.LastFailAt.IsZero())
}

// TestValidator_FailureRecordsAuthor verifies the no-consecutive-author
// rule spans failures: a user who ruins the count cannot restart it alone.
func TestValidator_FailureRecordsAuthor(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	v := count.NewValidator(store)

	out, err := v.Validate(ctx, 5, "g", "mallory")
	require.NoError(t, err)
	require.False(t, out.Accepted)

	// Mallory submits the now-correct value immediately after ruining.
	out, err = v.Validate(ctx, 1, "g", "mallory")
	require.NoError(t, err)
	assert.False(t, out.Accepted, "author of the failure is still the last author")

	// Someone else can restart.
	out, err = v.Validate(ctx, 1, "g", "trent")
	require.NoError(t, err)
	assert.True(t, out.Accepted)
}

// TestValidator_PrimeBookkeeping counts primes on both the instance and
// the user rows.
func TestValidator_PrimeBookkeeping(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	v := count.NewValidator(store)

	users := []string{"a", "b"}
	for i := int64(1); i <= 10; i++ {
		out, err := v.Validate(ctx, i, "g", users[i%2])
		require.NoError(t, err)
		require.True(t, out.Accepted)
	}

	// Primes in 1..10: 2, 3, 5, 7.
	inst, err := store.Instance(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, int64(4), inst.TotalPrimes)
	assert.Equal(t, int64(10), inst.HighScore)

	// "b" submitted the odd values 1, 3, 5, 7, 9: primes 3, 5, 7.
	stat, err := store.UserStats(ctx, "g", "b")
	require.NoError(t, err)
	assert.Equal(t, int64(3), stat.PrimesHit)
	assert.Equal(t, int64(9), stat.PersonalHighScore)
	assert.Equal(t, int64(9), stat.LastSuccessValue)
}

// TestValidator_IndependentInstances verifies instances never share state.
func TestValidator_IndependentInstances(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	v := count.NewValidator(store)

	out, err := v.Validate(ctx, 1, "g1", "alice")
	require.NoError(t, err)
	require.True(t, out.Accepted)

	// g2 is untouched by g1's progress.
	out, err = v.Validate(ctx, 2, "g2", "alice")
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.Equal(t, int64(1), out.Expected)
}

// TestValidator_ConcurrentRace races two users on the first value; exactly
// one may win and the loser must observe the post-mutation state.
func TestValidator_ConcurrentRace(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	v := count.NewValidator(store)

	var wg sync.WaitGroup
	outcomes := make([]count.Outcome, 2)
	for i, user := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(i int, user string) {
			defer wg.Done()
			out, err := v.Validate(ctx, 1, "g", user)
			assert.NoError(t, err)
			outcomes[i] = out
		}(i, user)
	}
	wg.Wait()

	accepted := 0
	for _, out := range outcomes {
		if out.Accepted {
			accepted++
		}
	}
	assert.Equal(t, 1, accepted, "exactly one submission of the first value may win")

	inst, err := store.Instance(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, int64(1), inst.TotalSuccesses)
	assert.Equal(t, int64(1), inst.TotalFails)
	assert.Equal(t, int64(1), inst.ExpectedCount, "the losing submission reset the count")
}

// TestValidator_ConcurrentBookkeeping stress-drives one instance from many
// goroutines and checks the aggregates stay internally consistent: every
// submission lands as exactly one success or one failure, on both the
// instance row and the per-user rows.
func TestValidator_ConcurrentBookkeeping(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	v := count.NewValidator(store)

	const workers = 8
	const perWorker = 50
	users := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		users[i] = userName(i)
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			for n := int64(1); n <= perWorker; n++ {
				_, err := v.Validate(ctx, n, "g", user)
				assert.NoError(t, err)
			}
		}(users[i])
	}
	wg.Wait()

	inst, err := store.Instance(ctx, "g")
	require.NoError(t, err)

	var successes, fails int64
	for _, user := range users {
		stat, err := store.UserStats(ctx, "g", user)
		require.NoError(t, err)
		successes += stat.Successes
		fails += stat.Fails
	}
	assert.Equal(t, inst.TotalSuccesses, successes)
	assert.Equal(t, inst.TotalFails, fails)
	assert.Equal(t, int64(workers*perWorker), successes+fails)
	assert.GreaterOrEqual(t, inst.ExpectedCount, int64(1))
}

func userName(i int) string {
	return string(rune('a'+i%26)) + string(rune('0'+i/26))
}
