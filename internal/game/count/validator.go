package count

import (
	"context"
	"time"
)

// Outcome is the validator's verdict for one submitted value.
type Outcome struct {
	Accepted bool
	Prime    bool  // meaningful only when Accepted
	Expected int64 // the expected count observed inside the transaction
}

// Validator applies the counting rules against a Store. Every well-formed
// value deterministically produces an accepted or rejected Outcome; an
// error indicates a storage fault, never a game-rule decision.
type Validator struct {
	store Store
	now   func() time.Time
}

// NewValidator creates a Validator backed by the given store.
//
// Precondition: store must be non-nil.
func NewValidator(store Store) *Validator {
	return &Validator{store: store, now: time.Now}
}

// Validate applies one submission atomically.
//
// A submission fails when the value is not the expected count or when the
// author also supplied the previous submission. Failure resets the
// expected count to 1 and still records the author as last author, so a
// user cannot ruin the count and immediately restart it alone.
//
// Postcondition: on success, ExpectedCount == value+1 and the instance and
// user aggregates reflect exactly one additional success; on failure,
// ExpectedCount == 1 and the aggregates reflect exactly one additional
// failure.
func (v *Validator) Validate(ctx context.Context, value int64, instanceID, userID string) (Outcome, error) {
	var out Outcome
	err := v.store.Update(ctx, instanceID, userID, func(inst *Instance, user *UserStat) {
		if value != inst.ExpectedCount || userID == inst.LastAuthor {
			out = Outcome{Expected: inst.ExpectedCount}
			user.Fails++
			user.LastFailValue = inst.ExpectedCount
			user.LastFailAt = v.now()
			inst.ExpectedCount = 1
			inst.TotalFails++
			inst.LastAuthor = userID
			return
		}

		prime := IsPrime(value)
		out = Outcome{Accepted: true, Prime: prime, Expected: inst.ExpectedCount}

		user.Successes++
		user.LastSuccessValue = value
		if value > user.PersonalHighScore {
			user.PersonalHighScore = value
		}
		if prime {
			user.PrimesHit++
		}

		inst.ExpectedCount = value + 1
		inst.TotalSuccesses++
		if value > inst.HighScore {
			inst.HighScore = value
		}
		if prime {
			inst.TotalPrimes++
		}
		inst.LastAuthor = userID
	})
	if err != nil {
		return Outcome{}, err
	}
	return out, nil
}
