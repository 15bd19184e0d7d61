package count_test

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/countbot/internal/game/count"
	"github.com/cory-johannsen/countbot/internal/game/mathexpr"
	"github.com/cory-johannsen/countbot/internal/storage/memory"
)

func newTestService(store count.Store) *count.Service {
	return count.NewService(mathexpr.NewEvaluator(), store, count.DefaultMilestones(), zap.NewNop())
}

// TestService_Process_NotANumber verifies ordinary chat touches no state.
func TestService_Process_NotANumber(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newTestService(store)

	for _, text := range []string{"hello", "nice one", "2..", "sqrt(-1)"} {
		v, err := svc.Process(ctx, text, "g", "alice")
		require.NoError(t, err)
		assert.Equal(t, count.VerdictNotANumber, v.Kind, "text %q", text)
	}

	_, err := store.Instance(ctx, "g")
	assert.ErrorIs(t, err, count.ErrInstanceNotFound, "chat must not create instance state")
}

// TestService_Process_AcceptAndReject walks the full accept path, including
// expression input, and a rejection.
func TestService_Process_AcceptAndReject(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newTestService(store)

	v, err := svc.Process(ctx, "1", "g", "alice")
	require.NoError(t, err)
	assert.Equal(t, count.VerdictAccepted, v.Kind)
	assert.Equal(t, int64(1), v.Value)
	assert.False(t, v.Prime)

	// Arithmetic and number words count too.
	v, err = svc.Process(ctx, "1+1", "g", "bob")
	require.NoError(t, err)
	assert.Equal(t, count.VerdictAccepted, v.Kind)
	assert.True(t, v.Prime, "2 is prime")

	v, err = svc.Process(ctx, "three", "g", "alice")
	require.NoError(t, err)
	assert.Equal(t, count.VerdictAccepted, v.Kind)
	assert.Equal(t, int64(3), v.Value)

	// Wrong value.
	v, err = svc.Process(ctx, "9", "g", "bob")
	require.NoError(t, err)
	assert.Equal(t, count.VerdictRejected, v.Kind)
	assert.Equal(t, int64(9), v.Value)
	assert.Equal(t, int64(4), v.Expected)
}

// TestService_Process_Milestone announces configured milestones.
func TestService_Process_Milestone(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newTestService(store)

	// Fast-forward the instance so 100 is the next expected value.
	err := store.Update(ctx, "g", "seed", func(inst *count.Instance, user *count.UserStat) {
		inst.ExpectedCount = 100
		inst.LastAuthor = "seed"
	})
	require.NoError(t, err)

	v, err := svc.Process(ctx, "100", "g", "alice")
	require.NoError(t, err)
	require.Equal(t, count.VerdictAccepted, v.Kind)
	assert.Equal(t, "The count reached 100!", v.Milestone)
}

// TestService_Process_StorageFault verifies storage errors surface as
// errors, never as game verdicts.
func TestService_Process_StorageFault(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(faultStore{})

	_, err := svc.Process(ctx, "1", "g", "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, errFault)
}

// TestService_Leaderboard verifies descending order over the chosen
// category.
func TestService_Leaderboard(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newTestService(store)

	seed := map[string]int64{"a": 5, "b": 10, "c": 3}
	for user, n := range seed {
		err := store.Update(ctx, "g", user, func(inst *count.Instance, stat *count.UserStat) {
			stat.Successes = n
		})
		require.NoError(t, err)
	}

	entries, err := svc.Leaderboard(ctx, "g", count.CategorySuccesses, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, count.Entry{UserID: "b", Score: 10}, entries[0])
	assert.Equal(t, count.Entry{UserID: "a", Score: 5}, entries[1])
	assert.Equal(t, count.Entry{UserID: "c", Score: 3}, entries[2])

	// Limit truncates.
	entries, err = svc.Leaderboard(ctx, "g", count.CategorySuccesses, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	// Unknown instance yields an empty board.
	entries, err = svc.Leaderboard(ctx, "nowhere", count.CategoryFails, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// TestService_UserStats_LazyCreation verifies stats appear only after the
// first submission, including a failed one.
func TestService_UserStats_LazyCreation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newTestService(store)

	_, err := svc.UserStats(ctx, "g", "newcomer")
	assert.ErrorIs(t, err, count.ErrUserNotFound)

	v, err := svc.Process(ctx, "42", "g", "newcomer")
	require.NoError(t, err)
	require.Equal(t, count.VerdictRejected, v.Kind)

	stat, err := svc.UserStats(ctx, "g", "newcomer")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stat.Fails)
	assert.Equal(t, int64(0), stat.Successes)
}

// TestService_NextPrime verifies the prime projection over expected count.
func TestService_NextPrime(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newTestService(store)

	p, err := svc.NextPrime(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, int64(2), p, "a fresh instance expects 1, whose next prime is 2")

	users := []string{"a", "b"}
	for i := int64(1); i <= 8; i++ {
		v, err := svc.Process(ctx, strconv.FormatInt(i, 10), "g", users[i%2])
		require.NoError(t, err)
		require.Equal(t, count.VerdictAccepted, v.Kind)
	}

	// Expected count is now 9.
	p, err = svc.NextPrime(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, int64(11), p)
}

var errFault = errors.New("boom")

// faultStore fails every operation, standing in for a broken backend.
type faultStore struct{}

func (faultStore) Update(context.Context, string, string, func(*count.Instance, *count.UserStat)) error {
	return errFault
}

func (faultStore) Instance(context.Context, string) (count.Instance, error) {
	return count.Instance{}, errFault
}

func (faultStore) UserStats(context.Context, string, string) (count.UserStat, error) {
	return count.UserStat{}, errFault
}

func (faultStore) Leaderboard(context.Context, string, count.Category, int) ([]count.Entry, error) {
	return nil, errFault
}
