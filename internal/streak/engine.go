// Package streak holds the pure streak and recovery state machine. All
// persistence happens in the caller; ApplyCheckIn is a value-in, value-out
// transition so at-least-once delivery from the transport can retry safely.
package streak

import (
	"fmt"
	"time"

	"github.com/mverrett/ascend-backend/internal/domain"
	pkgerrors "github.com/mverrett/ascend-backend/internal/pkg/errors"
)

// ApplyCheckIn advances state by one check-in on checkinDate (a DateOnly
// value). A zero-day gap is an idempotent no-op reported via
// Transition.Duplicate; a negative gap fails with ErrNonMonotonicCheckIn.
// The input state is not mutated.
func ApplyCheckIn(state domain.StreakState, checkinDate time.Time) (domain.StreakState, domain.StreakTransition, error) {
	next := state

	if state.LastCheckInDate == nil {
		next.CurrentStreak = 1
		next.LongestStreak = 1
		last := checkinDate
		next.LastCheckInDate = &last
		return next, domain.StreakTransition{
			CurrentStreak: 1,
			LongestStreak: 1,
		}, nil
	}

	gap := domain.DaysBetween(*state.LastCheckInDate, checkinDate)
	switch {
	case gap == 0:
		return state, domain.StreakTransition{
			Duplicate:     true,
			CurrentStreak: state.CurrentStreak,
			LongestStreak: state.LongestStreak,
		}, nil
	case gap < 0:
		return state, domain.StreakTransition{}, fmt.Errorf(
			"%w: check-in %s precedes last %s",
			pkgerrors.ErrNonMonotonicCheckIn,
			checkinDate.Format("2006-01-02"),
			state.LastCheckInDate.Format("2006-01-02"),
		)
	case gap == 1:
		next.CurrentStreak = state.CurrentStreak + 1
	default:
		// Reset. Snapshot the broken streak before overwriting; the snapshot
		// stays frozen until the next reset so milestones never read an
		// already-clobbered value.
		next.StreakBeforeReset = state.CurrentStreak
		resetDate := checkinDate
		next.LastResetDate = &resetDate
		next.BestExceededAnnounced = false
		next.CurrentStreak = 1
	}

	if next.CurrentStreak > next.LongestStreak {
		next.LongestStreak = next.CurrentStreak
	}
	last := checkinDate
	next.LastCheckInDate = &last

	tr := domain.StreakTransition{
		WasReset:      gap > 1,
		CurrentStreak: next.CurrentStreak,
		LongestStreak: next.LongestStreak,
	}
	if tr.WasReset {
		tr.StreakBeforeReset = next.StreakBeforeReset
	}

	tr.Milestone = recoveryMilestone(&next, checkinDate)
	if tr.Milestone == domain.MilestoneExceededBest {
		next.BestExceededAnnounced = true
	}
	return next, tr, nil
}

// recoveryMilestone evaluates the post-reset checkpoints against the frozen
// reset snapshot. Exceeding the pre-reset streak wins over day-count
// milestones and fires once per reset cycle.
func recoveryMilestone(state *domain.StreakState, checkinDate time.Time) domain.Milestone {
	if state.LastResetDate == nil {
		return domain.MilestoneNone
	}
	if state.CurrentStreak > state.StreakBeforeReset && !state.BestExceededAnnounced {
		return domain.MilestoneExceededBest
	}
	switch domain.DaysBetween(*state.LastResetDate, checkinDate) {
	case 3:
		return domain.MilestoneEarly
	case 7:
		return domain.MilestoneWeek
	case 14:
		return domain.MilestoneFortnight
	}
	return domain.MilestoneNone
}

// DaysSilent reports full days elapsed since the last check-in as of the
// reference local date. Zero when the user has never checked in; the
// ghosting detector skips those.
func DaysSilent(state domain.StreakState, today time.Time) int {
	if state.LastCheckInDate == nil {
		return 0
	}
	gap := domain.DaysBetween(*state.LastCheckInDate, today)
	if gap < 0 {
		return 0
	}
	return gap
}
