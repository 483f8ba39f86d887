package intervene

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mverrett/ascend-backend/internal/clients/phrasing"
	"github.com/mverrett/ascend-backend/internal/domain"
	"github.com/mverrett/ascend-backend/internal/platform/logger"
)

// Strategy produces the body of an intervention message. Implementations:
// the deterministic template, and the delegated phrasing service. Callers
// must only ever hold a GuardedStrategy so the fallback cannot be bypassed.
type Strategy interface {
	Compose(ctx context.Context, p domain.Pattern, state domain.StreakState) (string, error)
}

// TemplateStrategy is the deterministic path; it never fails.
type TemplateStrategy struct{}

func (TemplateStrategy) Compose(_ context.Context, p domain.Pattern, _ domain.StreakState) (string, error) {
	return Template(p), nil
}

// DelegatedStrategy asks the external phrasing service for a personalized
// variant.
type DelegatedStrategy struct {
	Client phrasing.Client
}

func (d DelegatedStrategy) Compose(ctx context.Context, p domain.Pattern, state domain.StreakState) (string, error) {
	if d.Client == nil {
		return "", fmt.Errorf("phrasing client not configured")
	}
	evidence, err := json.Marshal(p.Evidence)
	if err != nil {
		return "", fmt.Errorf("marshal evidence: %w", err)
	}
	system := "You write short, direct accountability messages for a personal discipline system. " +
		"Two to four sentences. No greetings, no emoji, no hedging. " +
		"Address the user as 'you'. Do not invent data beyond what is given."
	user := fmt.Sprintf(
		"Detected pattern: %s, severity %s.\nEvidence: %s\nCurrent streak: %d days (longest %d).\nWrite the message body only.",
		p.Type, p.Severity, evidence, state.CurrentStreak, state.LongestStreak,
	)
	return d.Client.Phrase(ctx, phrasing.PhraseRequest{System: system, User: user})
}

// GuardedStrategy enforces timeout-then-fallback at a single chokepoint: the
// delegate gets a bounded window, and any error or timeout silently yields
// the template body. Emit never fails because the phrasing service did.
type GuardedStrategy struct {
	Delegate Strategy
	Fallback TemplateStrategy
	Timeout  time.Duration
	Log      *logger.Logger
}

func NewGuardedStrategy(delegate Strategy, timeout time.Duration, log *logger.Logger) GuardedStrategy {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return GuardedStrategy{Delegate: delegate, Timeout: timeout, Log: log}
}

func (g GuardedStrategy) Compose(ctx context.Context, p domain.Pattern, state domain.StreakState) (string, error) {
	if g.Delegate != nil {
		dctx, cancel := context.WithTimeout(ctx, g.Timeout)
		text, err := g.Delegate.Compose(dctx, p, state)
		cancel()
		if err == nil && text != "" {
			return text, nil
		}
		if g.Log != nil {
			g.Log.Warn("phrasing delegate failed, using template", "pattern", p.Type, "error", err)
		}
	}
	return g.Fallback.Compose(ctx, p, state)
}
