package count

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/countbot/internal/game/mathexpr"
)

// VerdictKind classifies the outcome of one submitted message.
type VerdictKind int

const (
	// VerdictNotANumber means the text did not evaluate to an integer.
	// The message is ordinary chat and no game state was touched.
	VerdictNotANumber VerdictKind = iota
	// VerdictRejected means the value broke the sequence and the count
	// was reset.
	VerdictRejected
	// VerdictAccepted means the count advanced.
	VerdictAccepted
)

// Verdict is the full result of processing one message.
type Verdict struct {
	Kind      VerdictKind
	Value     int64  // the evaluated integer, when Kind != VerdictNotANumber
	Expected  int64  // the expected count at submission time, for Rejected
	Prime     bool   // meaningful only for Accepted
	Milestone string // non-empty when the accepted value is a milestone
}

// Service composes the expression evaluator, the count validator, and the
// read-only statistics queries into the surface consumed by the chat layer.
type Service struct {
	eval       *mathexpr.Evaluator
	validator  *Validator
	store      Store
	milestones *Milestones
	log        *zap.Logger
}

// NewService wires a Service.
//
// Precondition: eval, store, and log must be non-nil. milestones may be
// nil, in which case no milestone announcements are produced.
func NewService(eval *mathexpr.Evaluator, store Store, milestones *Milestones, log *zap.Logger) *Service {
	return &Service{
		eval:       eval,
		validator:  NewValidator(store),
		store:      store,
		milestones: milestones,
		log:        log,
	}
}

// Process evaluates raw text and, when it yields an integer, applies it to
// the instance's count.
//
// Postcondition: a non-nil error is a storage fault; no game-rule decision
// is ever reported as an error, and on error no state change is implied.
func (s *Service) Process(ctx context.Context, text, instanceID, userID string) (Verdict, error) {
	value, ok := s.eval.Evaluate(text)
	if !ok {
		return Verdict{Kind: VerdictNotANumber}, nil
	}

	out, err := s.validator.Validate(ctx, value, instanceID, userID)
	if err != nil {
		return Verdict{}, fmt.Errorf("validating count for instance %s: %w", instanceID, err)
	}

	if !out.Accepted {
		s.log.Debug("count ruined",
			zap.String("instance", instanceID),
			zap.String("user", userID),
			zap.Int64("value", value),
			zap.Int64("expected", out.Expected))
		return Verdict{Kind: VerdictRejected, Value: value, Expected: out.Expected}, nil
	}

	v := Verdict{Kind: VerdictAccepted, Value: value, Prime: out.Prime}
	if msg := s.milestones.Lookup(value); msg != "" {
		v.Milestone = msg
		s.log.Info("milestone reached",
			zap.String("instance", instanceID),
			zap.Int64("value", value))
	}
	return v, nil
}

// Leaderboard returns the top entries for an instance ranked by category.
func (s *Service) Leaderboard(ctx context.Context, instanceID string, category Category, limit int) ([]Entry, error) {
	entries, err := s.store.Leaderboard(ctx, instanceID, category, limit)
	if err != nil {
		return nil, fmt.Errorf("querying %s leaderboard for instance %s: %w", category, instanceID, err)
	}
	return entries, nil
}

// UserStats returns one user's statistics snapshot, or ErrUserNotFound if
// the user has never interacted with the instance.
func (s *Service) UserStats(ctx context.Context, instanceID, userID string) (UserStat, error) {
	return s.store.UserStats(ctx, instanceID, userID)
}

// NextPrime returns the smallest prime that is greater than or equal to
// the instance's current expected count. An untouched instance has an
// expected count of 1, so its next prime is 2.
func (s *Service) NextPrime(ctx context.Context, instanceID string) (int64, error) {
	expected := int64(1)
	inst, err := s.store.Instance(ctx, instanceID)
	switch {
	case err == nil:
		expected = inst.ExpectedCount
	case errors.Is(err, ErrInstanceNotFound):
		// fresh instance, expected stays 1
	default:
		return 0, fmt.Errorf("reading instance %s: %w", instanceID, err)
	}
	return NextPrime(expected), nil
}
