package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// InterventionRecord is one emitted (or decided-but-undelivered) intervention.
// The row is written even when outbound delivery fails so cooldown lookups
// stay correct.
type InterventionRecord struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index:idx_intervention_user_type;column:user_id" json:"user_id"`

	PatternType PatternType    `gorm:"not null;index:idx_intervention_user_type;column:pattern_type" json:"pattern_type"`
	Severity    Severity       `gorm:"not null;column:severity" json:"severity"`
	MessageText string         `gorm:"type:text;not null;column:message_text" json:"message_text"`
	Evidence    datatypes.JSON `gorm:"column:evidence" json:"evidence"`

	SentAt    time.Time `gorm:"not null;index;column:sent_at" json:"sent_at"`
	Delivered bool      `gorm:"not null;default:false;column:delivered" json:"delivered"`
	Resolved  bool      `gorm:"not null;default:false;column:resolved" json:"resolved"`

	// DedupToken is user|pattern|minute; the unique index makes a retried
	// emit a no-op instead of a double send.
	DedupToken string `gorm:"uniqueIndex;not null;column:dedup_token" json:"-"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (InterventionRecord) TableName() string { return "intervention_record" }
