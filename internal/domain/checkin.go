package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// CheckIn is one daily self-report. At most one row per (user, local date);
// rows are immutable except through an explicit correction, which only
// recomputes the compliance score.
type CheckIn struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_checkin_user_date;column:user_id" json:"user_id"`

	// LocalDate is the user's local calendar day, stored as UTC midnight.
	LocalDate time.Time `gorm:"type:date;not null;uniqueIndex:idx_checkin_user_date;column:local_date" json:"local_date"`

	SleepMet          bool `gorm:"not null;column:sleep_met" json:"sleep_met"`
	Trained           bool `gorm:"not null;column:trained" json:"trained"`
	DeepWorkDone      bool `gorm:"not null;column:deep_work_done" json:"deep_work_done"`
	AbstinenceHeld    bool `gorm:"not null;column:abstinence_held" json:"abstinence_held"`
	BoundariesHeld    bool `gorm:"not null;column:boundaries_held" json:"boundaries_held"`
	SkillBuildingDone bool `gorm:"not null;column:skill_building_done" json:"skill_building_done"`

	SleepHours       *float64 `gorm:"column:sleep_hours" json:"sleep_hours,omitempty"`
	DeepWorkHours    *float64 `gorm:"column:deep_work_hours" json:"deep_work_hours,omitempty"`
	WakeTime         *string  `gorm:"column:wake_time" json:"wake_time,omitempty"`
	ConsumptionHours *float64 `gorm:"column:consumption_hours" json:"consumption_hours,omitempty"`

	Reflection      string  `gorm:"column:reflection" json:"reflection"`
	ComplianceScore float64 `gorm:"not null;column:compliance_score" json:"compliance_score"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (CheckIn) TableName() string { return "check_in" }

// Flags returns the non-negotiable flags in catalog order.
func (c *CheckIn) Flags() []bool {
	return []bool{
		c.SleepMet,
		c.Trained,
		c.DeepWorkDone,
		c.AbstinenceHeld,
		c.BoundariesHeld,
		c.SkillBuildingDone,
	}
}

// ComputeCompliance returns completed/total as a percentage rounded to
// 2 decimals.
func (c *CheckIn) ComputeCompliance() float64 {
	flags := c.Flags()
	done := 0
	for _, f := range flags {
		if f {
			done++
		}
	}
	pct := float64(done) / float64(len(flags)) * 100
	return math.Round(pct*100) / 100
}

// DateOnly normalizes t to UTC midnight for local-date storage and
// comparison.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns b-a in calendar days. Both must be DateOnly values.
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
