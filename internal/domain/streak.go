package domain

import (
	"time"

	"github.com/google/uuid"
)

// StreakState is the per-user streak machine state. Mutated exactly once per
// accepted check-in. StreakBeforeReset and LastResetDate are a snapshot taken
// at the moment a reset happens and must survive untouched until the next
// reset; recovery milestones are derived from that snapshot.
type StreakState struct {
	UserID uuid.UUID `gorm:"type:uuid;primaryKey;column:user_id" json:"user_id"`

	CurrentStreak int `gorm:"not null;default:0;column:current_streak" json:"current_streak"`
	LongestStreak int `gorm:"not null;default:0;column:longest_streak" json:"longest_streak"`

	LastCheckInDate   *time.Time `gorm:"type:date;column:last_checkin_date" json:"last_checkin_date,omitempty"`
	StreakBeforeReset int        `gorm:"not null;default:0;column:streak_before_reset" json:"streak_before_reset"`
	LastResetDate     *time.Time `gorm:"type:date;column:last_reset_date" json:"last_reset_date,omitempty"`

	// BestExceededAnnounced marks that the exceeded-previous-best milestone
	// already fired for the current reset cycle.
	BestExceededAnnounced bool `gorm:"not null;default:false;column:best_exceeded_announced" json:"best_exceeded_announced"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (StreakState) TableName() string { return "streak_state" }

// Milestone names the recovery checkpoints after a reset.
type Milestone string

const (
	MilestoneNone         Milestone = ""
	MilestoneEarly        Milestone = "early_recovery"
	MilestoneWeek         Milestone = "week_recovery"
	MilestoneFortnight    Milestone = "fortnight_recovery"
	MilestoneExceededBest Milestone = "exceeded_previous_best"
)

// StreakTransition reports what a single ApplyCheckIn did.
type StreakTransition struct {
	Duplicate         bool      `json:"duplicate"`
	WasReset          bool      `json:"was_reset"`
	CurrentStreak     int       `json:"current_streak"`
	LongestStreak     int       `json:"longest_streak"`
	StreakBeforeReset int       `json:"streak_before_reset,omitempty"`
	Milestone         Milestone `json:"milestone,omitempty"`
}
