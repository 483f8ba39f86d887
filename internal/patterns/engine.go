// Package patterns scans a user's recent check-in history for multi-day
// behavioral degradation. Detectors are independent and deterministic: the
// same history and reference time always produce the same patterns. Missed
// days are absent from the input, never zero-filled, and detectors treat
// absence as "no data that day".
package patterns

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mverrett/ascend-backend/internal/domain"
	"github.com/mverrett/ascend-backend/internal/platform/logger"
)

type Engine struct {
	cfg Config
	log *logger.Logger
}

func NewEngine(cfg Config, baseLog *logger.Logger) *Engine {
	return &Engine{cfg: cfg, log: baseLog.With("service", "PatternEngine")}
}

func (e *Engine) Config() Config { return e.cfg }

// Detect evaluates the full catalog against checkins, which must be ordered
// by local date ascending. Every detector runs; multiple patterns may fire
// in one pass. Emission order and suppression are the intervention
// controller's business, not ours.
func (e *Engine) Detect(profile *domain.UserProfile, checkins []domain.CheckIn, now time.Time) []domain.Pattern {
	detectors := []func(*domain.UserProfile, []domain.CheckIn, time.Time) *domain.Pattern{
		e.sleepDegradation,
		e.trainingAbandonment,
		e.abstinenceRelapse,
		e.complianceDecline,
		e.deepWorkCollapse,
		e.snoozeTrap,
		e.consumptionVortex,
		e.boundaryCorrelation,
	}
	var out []domain.Pattern
	for _, d := range detectors {
		if p := d(profile, checkins, now); p != nil {
			out = append(out, *p)
		}
	}
	return out
}

// DetectGhosting derives the silence pattern from streak state alone; it
// does not need a fresh check-in, so the orchestrator calls it even for
// users with an empty recent window.
func (e *Engine) DetectGhosting(state domain.StreakState, today, now time.Time) *domain.Pattern {
	if state.LastCheckInDate == nil {
		return nil
	}
	silent := domain.DaysBetween(*state.LastCheckInDate, today)
	if silent < e.cfg.Ghosting.MinDays {
		return nil
	}
	var sev domain.Severity
	switch {
	case silent >= 5:
		sev = domain.SeverityEmergency
	case silent == 4:
		sev = domain.SeverityCritical
	case silent == 3:
		sev = domain.SeverityWarning
	default:
		sev = domain.SeverityNudge
	}
	last := *state.LastCheckInDate
	return &domain.Pattern{
		Type:       domain.PatternGhosting,
		Severity:   sev,
		DetectedAt: now,
		Evidence:   domain.GhostingEvidence{DaysSilent: silent, LastCheckInDate: &last},
	}
}

func lastN(checkins []domain.CheckIn, n int) []domain.CheckIn {
	if len(checkins) < n {
		return nil
	}
	return checkins[len(checkins)-n:]
}

func (e *Engine) sleepDegradation(_ *domain.UserProfile, checkins []domain.CheckIn, now time.Time) *domain.Pattern {
	window := lastN(checkins, e.cfg.Sleep.Window)
	if window == nil {
		return nil
	}
	ev := domain.MetricRunEvidence{Metric: "sleep_hours"}
	for _, c := range window {
		if c.SleepHours == nil || *c.SleepHours >= e.cfg.Sleep.MinHours {
			return nil
		}
		ev.Dates = append(ev.Dates, c.LocalDate)
		ev.Values = append(ev.Values, *c.SleepHours)
	}
	return &domain.Pattern{
		Type:       domain.PatternSleepDegradation,
		Severity:   domain.SeverityHigh,
		DetectedAt: now,
		Evidence:   ev,
	}
}

func (e *Engine) trainingAbandonment(profile *domain.UserProfile, checkins []domain.CheckIn, now time.Time) *domain.Pattern {
	window := lastN(checkins, e.cfg.Training.Window)
	if window == nil {
		return nil
	}
	restDays := map[time.Weekday]bool{}
	if profile != nil {
		restDays = profile.RestDaySet()
	}
	ev := domain.FlagCountEvidence{Flag: "trained", WindowSize: len(window)}
	for _, c := range window {
		if restDays[c.LocalDate.Weekday()] {
			// Rest days are legitimate misses; one inside the window breaks
			// the run.
			return nil
		}
		if c.Trained {
			return nil
		}
		ev.FailedDates = append(ev.FailedDates, c.LocalDate)
	}
	return &domain.Pattern{
		Type:       domain.PatternTrainingAbandonment,
		Severity:   domain.SeverityMedium,
		DetectedAt: now,
		Evidence:   ev,
	}
}

func (e *Engine) abstinenceRelapse(_ *domain.UserProfile, checkins []domain.CheckIn, now time.Time) *domain.Pattern {
	window := lastN(checkins, e.cfg.Abstinence.Window)
	if window == nil {
		return nil
	}
	ev := domain.FlagCountEvidence{Flag: "abstinence_held", WindowSize: len(window)}
	for _, c := range window {
		if !c.AbstinenceHeld {
			ev.FailedDates = append(ev.FailedDates, c.LocalDate)
		}
	}
	if len(ev.FailedDates) < e.cfg.Abstinence.MaxFailures {
		return nil
	}
	return &domain.Pattern{
		Type:       domain.PatternAbstinenceRelapse,
		Severity:   domain.SeverityCritical,
		DetectedAt: now,
		Evidence:   ev,
	}
}

func (e *Engine) complianceDecline(_ *domain.UserProfile, checkins []domain.CheckIn, now time.Time) *domain.Pattern {
	window := lastN(checkins, e.cfg.Compliance.Window)
	if window == nil {
		return nil
	}
	ev := domain.MetricRunEvidence{Metric: "compliance_score"}
	for _, c := range window {
		if c.ComplianceScore >= e.cfg.Compliance.MinScore {
			return nil
		}
		ev.Dates = append(ev.Dates, c.LocalDate)
		ev.Values = append(ev.Values, c.ComplianceScore)
	}
	return &domain.Pattern{
		Type:       domain.PatternComplianceDecline,
		Severity:   domain.SeverityMedium,
		DetectedAt: now,
		Evidence:   ev,
	}
}

func (e *Engine) deepWorkCollapse(_ *domain.UserProfile, checkins []domain.CheckIn, now time.Time) *domain.Pattern {
	window := lastN(checkins, e.cfg.DeepWork.Window)
	if window == nil {
		return nil
	}
	ev := domain.AverageEvidence{Metric: "deep_work_hours", Threshold: e.cfg.DeepWork.MinAvgHours}
	var sum float64
	for _, c := range window {
		if c.DeepWorkHours == nil {
			return nil
		}
		sum += *c.DeepWorkHours
		ev.Dates = append(ev.Dates, c.LocalDate)
		ev.Values = append(ev.Values, *c.DeepWorkHours)
	}
	ev.Average = sum / float64(len(window))
	if ev.Average >= e.cfg.DeepWork.MinAvgHours {
		return nil
	}
	return &domain.Pattern{
		Type:       domain.PatternDeepWorkCollapse,
		Severity:   domain.SeverityCritical,
		DetectedAt: now,
		Evidence:   ev,
	}
}

func (e *Engine) snoozeTrap(_ *domain.UserProfile, checkins []domain.CheckIn, now time.Time) *domain.Pattern {
	window := lastN(checkins, e.cfg.Snooze.Window)
	if window == nil {
		return nil
	}
	target, err := parseClock(e.cfg.Snooze.TargetWake)
	if err != nil {
		e.log.Warn("invalid target wake time in catalog", "value", e.cfg.Snooze.TargetWake)
		return nil
	}
	ev := domain.WakeDriftEvidence{TargetWake: e.cfg.Snooze.TargetWake}
	for _, c := range window {
		// Wake time is optional metadata; any day without it means the
		// window cannot be evaluated. No pattern, not an error.
		if c.WakeTime == nil {
			return nil
		}
		wake, err := parseClock(*c.WakeTime)
		if err != nil {
			return nil
		}
		drift := wake - target
		if drift <= e.cfg.Snooze.ToleranceMinutes {
			return nil
		}
		ev.Dates = append(ev.Dates, c.LocalDate)
		ev.WakeTimes = append(ev.WakeTimes, *c.WakeTime)
		ev.DriftMinutes = append(ev.DriftMinutes, drift)
	}
	return &domain.Pattern{
		Type:       domain.PatternSnoozeTrap,
		Severity:   domain.SeverityWarning,
		DetectedAt: now,
		Evidence:   ev,
	}
}

func (e *Engine) consumptionVortex(_ *domain.UserProfile, checkins []domain.CheckIn, now time.Time) *domain.Pattern {
	window := lastN(checkins, e.cfg.Consumption.Window)
	if window == nil {
		return nil
	}
	ev := domain.OverThresholdDaysEvidence{Metric: "consumption_hours", Threshold: e.cfg.Consumption.MaxHours}
	for _, c := range window {
		if c.ConsumptionHours == nil {
			return nil
		}
		if *c.ConsumptionHours > e.cfg.Consumption.MaxHours {
			ev.Dates = append(ev.Dates, c.LocalDate)
			ev.Values = append(ev.Values, *c.ConsumptionHours)
		}
	}
	if len(ev.Dates) < e.cfg.Consumption.MinDays {
		return nil
	}
	return &domain.Pattern{
		Type:       domain.PatternConsumptionVortex,
		Severity:   domain.SeverityWarning,
		DetectedAt: now,
		Evidence:   ev,
	}
}

// boundaryCorrelation checks whether boundary violations co-occur with
// sleep or training failures: correlation = |trigger AND outcome| / |trigger|
// over the window, gated by a minimum trigger-day count so a single
// coincidence cannot produce 100%.
func (e *Engine) boundaryCorrelation(_ *domain.UserProfile, checkins []domain.CheckIn, now time.Time) *domain.Pattern {
	window := lastN(checkins, e.cfg.Correlation.Window)
	if window == nil {
		return nil
	}
	ev := domain.CorrelationEvidence{
		TriggerFlag: "boundaries_held",
		OutcomeDesc: "sleep or training failure",
	}
	for _, c := range window {
		if c.BoundariesHeld {
			continue
		}
		ev.TriggerDates = append(ev.TriggerDates, c.LocalDate)
		if !c.SleepMet || !c.Trained {
			ev.FailureDates = append(ev.FailureDates, c.LocalDate)
		}
	}
	if len(ev.TriggerDates) < e.cfg.Correlation.MinTriggerDays {
		return nil
	}
	ev.Correlation = float64(len(ev.FailureDates)) / float64(len(ev.TriggerDates))
	if ev.Correlation < e.cfg.Correlation.Threshold {
		return nil
	}
	return &domain.Pattern{
		Type:       domain.PatternBoundaryCorrelation,
		Severity:   domain.SeverityCritical,
		DetectedAt: now,
		Evidence:   ev,
	}
}

// parseClock converts "HH:MM" to minutes after midnight.
func parseClock(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("bad clock value %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("bad clock value %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad clock value %q", s)
	}
	return h*60 + m, nil
}
