package batch

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/finance-insights/internal/guardrail"
	"github.com/dvloznov/finance-insights/internal/logger"
	"github.com/dvloznov/finance-insights/internal/pipeline"
)

// User outcome states for a batch run.
const (
	UserStatusCompleted = "completed"
	UserStatusSkipped   = "skipped"
	UserStatusFailed    = "failed"
)

// Recomputer runs the insights pipeline for one user. Satisfied by
// pipeline.Engine.
type Recomputer interface {
	Run(ctx context.Context, userID string, windowDays int, asOf time.Time) (*pipeline.PipelineState, error)
}

// UserResult records the outcome of one user's recompute.
type UserResult struct {
	UserID          string
	Status          string
	Error           string
	PrimaryPersona  string
	Recommendations int
}

// Result aggregates a full batch run.
type Result struct {
	Total     int
	Completed int
	Skipped   int
	Failed    int
	Users     []UserResult
	StartedAt time.Time
	Duration  time.Duration
}

// Runner recomputes insights for a set of users, isolating failures so one
// bad user never aborts the batch.
type Runner struct {
	engine Recomputer
}

// NewRunner creates a batch runner on top of the given engine.
func NewRunner(engine Recomputer) *Runner {
	return &Runner{engine: engine}
}

// Run processes each user in order. Users without consent are skipped,
// failures are recorded and the batch continues. Context cancellation stops
// the batch between users.
func (r *Runner) Run(ctx context.Context, userIDs []string, windowDays int, asOf time.Time) (*Result, error) {
	log := logger.FromContext(ctx)

	result := &Result{
		Total:     len(userIDs),
		StartedAt: time.Now(),
	}

	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(result.StartedAt)
			return result, err
		}

		ur := r.runOne(ctx, userID, windowDays, asOf)
		result.Users = append(result.Users, ur)

		switch ur.Status {
		case UserStatusCompleted:
			result.Completed++
		case UserStatusSkipped:
			result.Skipped++
		case UserStatusFailed:
			result.Failed++
		}
	}

	result.Duration = time.Since(result.StartedAt)

	log.Info().
		Int("total", result.Total).
		Int("completed", result.Completed).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("batch recompute finished")

	return result, nil
}

func (r *Runner) runOne(ctx context.Context, userID string, windowDays int, asOf time.Time) UserResult {
	log := logger.FromContext(ctx)

	state, err := r.engine.Run(ctx, userID, windowDays, asOf)
	if err != nil {
		if errors.Is(err, guardrail.ErrNoConsent) {
			log.Info().Str("user_id", userID).Msg("skipping user without consent")
			return UserResult{UserID: userID, Status: UserStatusSkipped, Error: err.Error()}
		}

		log.Error().Err(err).Str("user_id", userID).Msg("recompute failed for user")
		return UserResult{UserID: userID, Status: UserStatusFailed, Error: err.Error()}
	}

	return UserResult{
		UserID:          userID,
		Status:          UserStatusCompleted,
		PrimaryPersona:  state.Assignment.Primary.PersonaType,
		Recommendations: len(state.Recommendations),
	}
}
