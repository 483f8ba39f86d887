package domain

import (
	"time"
)

// Severity is an ordered scale; cooldown bypass compares ranks.
type Severity string

const (
	SeverityNudge     Severity = "nudge"
	SeverityLow       Severity = "low"
	SeverityMedium    Severity = "medium"
	SeverityWarning   Severity = "warning"
	SeverityHigh      Severity = "high"
	SeverityCritical  Severity = "critical"
	SeverityEmergency Severity = "emergency"
)

var severityRank = map[Severity]int{
	SeverityNudge:     0,
	SeverityLow:       1,
	SeverityMedium:    2,
	SeverityWarning:   3,
	SeverityHigh:      4,
	SeverityCritical:  5,
	SeverityEmergency: 6,
}

func (s Severity) Rank() int {
	r, ok := severityRank[s]
	if !ok {
		return -1
	}
	return r
}

func (s Severity) Above(other Severity) bool { return s.Rank() > other.Rank() }

type PatternType string

const (
	PatternSleepDegradation    PatternType = "sleep_degradation"
	PatternTrainingAbandonment PatternType = "training_abandonment"
	PatternAbstinenceRelapse   PatternType = "abstinence_relapse"
	PatternComplianceDecline   PatternType = "compliance_decline"
	PatternDeepWorkCollapse    PatternType = "deepwork_collapse"
	PatternSnoozeTrap          PatternType = "snooze_trap"
	PatternConsumptionVortex   PatternType = "consumption_vortex"
	PatternBoundaryCorrelation PatternType = "boundary_correlation"
	PatternGhosting            PatternType = "ghosting"
)

// Pattern is an ephemeral detection result; the intervention log, not the
// pattern itself, is the source of truth for "was this acted on".
type Pattern struct {
	Type       PatternType `json:"type"`
	Severity   Severity    `json:"severity"`
	DetectedAt time.Time   `json:"detected_at"`
	Evidence   Evidence    `json:"evidence"`
}

// Evidence is the detector-specific payload; one variant per detector shape.
type Evidence interface {
	EvidenceKind() string
}

// MetricRunEvidence backs threshold detectors over a numeric metric
// (sleep degradation, compliance decline).
type MetricRunEvidence struct {
	Metric string      `json:"metric"`
	Dates  []time.Time `json:"dates"`
	Values []float64   `json:"values"`
}

func (MetricRunEvidence) EvidenceKind() string { return "metric_run" }

// FlagCountEvidence backs flag-count detectors (training abandonment,
// abstinence relapse).
type FlagCountEvidence struct {
	Flag        string      `json:"flag"`
	FailedDates []time.Time `json:"failed_dates"`
	WindowSize  int         `json:"window_size"`
}

func (FlagCountEvidence) EvidenceKind() string { return "flag_count" }

// AverageEvidence backs the deep-work collapse detector.
type AverageEvidence struct {
	Metric    string      `json:"metric"`
	Average   float64     `json:"average"`
	Threshold float64     `json:"threshold"`
	Dates     []time.Time `json:"dates"`
	Values    []float64   `json:"values"`
}

func (AverageEvidence) EvidenceKind() string { return "average" }

// WakeDriftEvidence backs the snooze-trap detector.
type WakeDriftEvidence struct {
	TargetWake   string      `json:"target_wake"`
	Dates        []time.Time `json:"dates"`
	WakeTimes    []string    `json:"wake_times"`
	DriftMinutes []int       `json:"drift_minutes"`
}

func (WakeDriftEvidence) EvidenceKind() string { return "wake_drift" }

// OverThresholdDaysEvidence backs the consumption-vortex detector.
type OverThresholdDaysEvidence struct {
	Metric    string      `json:"metric"`
	Threshold float64     `json:"threshold"`
	Dates     []time.Time `json:"dates"`
	Values    []float64   `json:"values"`
}

func (OverThresholdDaysEvidence) EvidenceKind() string { return "over_threshold_days" }

// CorrelationEvidence backs the boundary-correlation detector.
type CorrelationEvidence struct {
	TriggerFlag  string      `json:"trigger_flag"`
	OutcomeDesc  string      `json:"outcome"`
	TriggerDates []time.Time `json:"trigger_dates"`
	FailureDates []time.Time `json:"failure_dates"`
	Correlation  float64     `json:"correlation"`
}

func (CorrelationEvidence) EvidenceKind() string { return "correlation" }

// GhostingEvidence backs the silence detector; derived from StreakState, not
// from the check-in window.
type GhostingEvidence struct {
	DaysSilent      int        `json:"days_silent"`
	LastCheckInDate *time.Time `json:"last_checkin_date,omitempty"`
}

func (GhostingEvidence) EvidenceKind() string { return "ghosting" }
