package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserProfile struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ChatRef  string    `gorm:"uniqueIndex;not null;column:chat_ref" json:"chat_ref"`
	Timezone string    `gorm:"not null;default:'UTC';column:timezone" json:"timezone"`
	Active   bool      `gorm:"not null;default:true;column:active" json:"active"`

	// Comma-separated lowercase weekday names ("saturday,sunday"). Rest days
	// exempt a missed training flag from the abandonment detector.
	RestDays string `gorm:"column:rest_days" json:"rest_days"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (UserProfile) TableName() string { return "user_profile" }

var weekdayByName = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func (u *UserProfile) RestDaySet() map[time.Weekday]bool {
	out := map[time.Weekday]bool{}
	for _, name := range strings.Split(u.RestDays, ",") {
		if wd, ok := weekdayByName[strings.ToLower(strings.TrimSpace(name))]; ok {
			out[wd] = true
		}
	}
	return out
}
