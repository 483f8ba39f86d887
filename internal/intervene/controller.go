// Package intervene decides whether a detected pattern becomes an outbound
// intervention, applies cooldown and severity-escalation rules, and owns the
// message content contract.
package intervene

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/mverrett/ascend-backend/internal/clients/courier"
	"github.com/mverrett/ascend-backend/internal/data/repos"
	"github.com/mverrett/ascend-backend/internal/domain"
	pkgerrors "github.com/mverrett/ascend-backend/internal/pkg/errors"
	"github.com/mverrett/ascend-backend/internal/platform/logger"
)

type Decision struct {
	Emit   bool   `json:"emit"`
	Reason string `json:"reason"`
}

const (
	ReasonFirstIntervention = "first_intervention"
	ReasonSeverityEscalated = "severity_escalated"
	ReasonCooldownElapsed   = "cooldown_elapsed"
	ReasonCooldownActive    = "cooldown_active"
)

// CooldownFunc maps a pattern type to its configured cooldown window.
type CooldownFunc func(domain.PatternType) time.Duration

type Controller struct {
	log      *logger.Logger
	repo     repos.InterventionRepo
	courier  courier.Client
	compose  Strategy
	cooldown CooldownFunc
}

func NewController(baseLog *logger.Logger, repo repos.InterventionRepo, courierClient courier.Client, compose Strategy, cooldown CooldownFunc) *Controller {
	return &Controller{
		log:      baseLog.With("service", "InterventionController"),
		repo:     repo,
		courier:  courierClient,
		compose:  compose,
		cooldown: cooldown,
	}
}

// Decide applies the cooldown/dedup rule: emit when no prior record exists,
// when severity escalated past the last emission, or when the cooldown
// window has elapsed. The pattern's own detection time is the reference
// clock, keeping decisions reproducible. The resolved flag does not shorten
// the cooldown.
func (c *Controller) Decide(ctx context.Context, userID uuid.UUID, p domain.Pattern) (Decision, error) {
	last, err := c.repo.LatestByUserAndType(ctx, nil, userID, p.Type)
	if errors.Is(err, pkgerrors.ErrNotFound) {
		return Decision{Emit: true, Reason: ReasonFirstIntervention}, nil
	}
	if err != nil {
		return Decision{}, fmt.Errorf("cooldown lookup: %w", err)
	}
	if p.Severity.Above(last.Severity) {
		return Decision{Emit: true, Reason: ReasonSeverityEscalated}, nil
	}
	if p.DetectedAt.Sub(last.SentAt) >= c.cooldown(p.Type) {
		return Decision{Emit: true, Reason: ReasonCooldownElapsed}, nil
	}
	return Decision{Emit: false, Reason: ReasonCooldownActive}, nil
}

// Emit writes exactly one InterventionRecord and dispatches exactly one
// outbound message. A retried emit for the same minute hits the dedup token
// and returns the no-op sentinel instead of double-sending. The record is
// persisted before dispatch: a failed send still counts for cooldown.
func (c *Controller) Emit(ctx context.Context, profile *domain.UserProfile, state domain.StreakState, p domain.Pattern) (*domain.InterventionRecord, error) {
	body, err := c.compose.Compose(ctx, p, state)
	if err != nil {
		// Only reachable with a mis-wired strategy; the guarded composer
		// falls back internally.
		return nil, fmt.Errorf("compose intervention: %w", err)
	}
	text := body + "\n\n" + SupportLine(p.Severity)

	evidence, err := json.Marshal(p.Evidence)
	if err != nil {
		return nil, fmt.Errorf("marshal evidence: %w", err)
	}

	rec := &domain.InterventionRecord{
		ID:          uuid.New(),
		UserID:      profile.ID,
		PatternType: p.Type,
		Severity:    p.Severity,
		MessageText: text,
		Evidence:    datatypes.JSON(evidence),
		SentAt:      p.DetectedAt,
		DedupToken:  DedupToken(profile.ID, p.Type, p.DetectedAt),
	}
	if err := c.repo.Create(ctx, nil, rec); err != nil {
		if errors.Is(err, repos.ErrDuplicateEmission) {
			c.log.Info("intervention already recorded, skipping dispatch",
				"user_id", profile.ID, "pattern", p.Type)
			return nil, err
		}
		return nil, fmt.Errorf("record intervention: %w", err)
	}

	if err := c.courier.SendMessage(ctx, profile.ChatRef, text); err != nil {
		// The decision stands; delivery state is just observability.
		c.log.Error("intervention dispatch failed",
			"user_id", profile.ID, "pattern", p.Type, "error", err)
		return rec, nil
	}
	if err := c.repo.MarkDelivered(ctx, nil, rec.ID); err != nil {
		c.log.Warn("mark delivered failed", "intervention_id", rec.ID, "error", err)
	}
	rec.Delivered = true
	return rec, nil
}

// DedupToken is stable at minute granularity so at-least-once orchestration
// cannot double-send.
func DedupToken(userID uuid.UUID, pt domain.PatternType, sentAt time.Time) string {
	return fmt.Sprintf("%s|%s|%d", userID, pt, sentAt.UTC().Truncate(time.Minute).Unix())
}
