package intervene

import (
	"fmt"

	"github.com/mverrett/ascend-backend/internal/domain"
)

// Deterministic message templates, always available. The phrasing service
// may replace the body but never the support-bridge closing line.

var templateByPattern = map[domain.PatternType]string{
	domain.PatternSleepDegradation:    "Three nights running under your sleep floor. Everything else degrades from here first. Tonight is a hard cutoff night.",
	domain.PatternTrainingAbandonment: "Three scheduled training days skipped in a row. The plan only works if the floor holds. Book the next session before replying.",
	domain.PatternAbstinenceRelapse:   "The abstinence line has broken three or more times this week. This is the pattern that undoes everything else. Stop negotiating with it.",
	domain.PatternComplianceDecline:   "Compliance has been under the line for three straight days. Pick the one non-negotiable you will not miss tomorrow and start there.",
	domain.PatternDeepWorkCollapse:    "Deep work has collapsed this week. The average is below the floor across every logged day. Block tomorrow morning now.",
	domain.PatternSnoozeTrap:          "Wake time has drifted past target three days running. The morning is where the day is won or lost.",
	domain.PatternConsumptionVortex:   "Consumption hours have been over the line most of this week. That time is coming out of everything you said mattered.",
	domain.PatternBoundaryCorrelation: "When boundaries slip, sleep and training go down with them. The data says they are the same failure. Guard the boundary first.",
}

var ghostingBySeverity = map[domain.Severity]string{
	domain.SeverityNudge:     "Two days without a check-in. The system only works when it sees you. Check in tonight.",
	domain.SeverityWarning:   "Three days silent. Silence is how every slide starts. One check-in tonight restarts the loop.",
	domain.SeverityCritical:  "Four days dark. This is no longer a missed habit, it is a pattern. Check in now, whatever the last four days looked like.",
	domain.SeverityEmergency: "Five or more days gone. Whatever happened, the next move is one honest check-in. That is all.",
}

// supportLineByTier is the "here is how to get help" close appended to every
// outbound intervention at emission time, so no phrasing-path failure can
// drop it.
var supportLineByTier = map[string]string{
	"low":      "Reply here if something is in the way.",
	"medium":   "Reply here and we will figure out the blocker together.",
	"high":     "If this is bigger than a bad week, say so here. That is what this channel is for.",
	"critical": "If you are struggling, tell someone today. Reply here, or reach out to someone you trust. You do not have to fix this alone.",
}

func supportTier(s domain.Severity) string {
	switch s {
	case domain.SeverityNudge, domain.SeverityLow:
		return "low"
	case domain.SeverityMedium, domain.SeverityWarning:
		return "medium"
	case domain.SeverityHigh:
		return "high"
	default:
		return "critical"
	}
}

// SupportLine returns the severity-tier closing line.
func SupportLine(s domain.Severity) string {
	return supportLineByTier[supportTier(s)]
}

// Template returns the deterministic body for a pattern.
func Template(p domain.Pattern) string {
	if p.Type == domain.PatternGhosting {
		if msg, ok := ghostingBySeverity[p.Severity]; ok {
			return msg
		}
		return ghostingBySeverity[domain.SeverityEmergency]
	}
	if msg, ok := templateByPattern[p.Type]; ok {
		return msg
	}
	return fmt.Sprintf("Pattern detected: %s (%s). Time to course-correct.", p.Type, p.Severity)
}

var milestoneTemplates = map[domain.Milestone]string{
	domain.MilestoneEarly:        "Day 3 back. The first three days are the hardest part of a restart. Keep the chain alive.",
	domain.MilestoneWeek:         "One full week rebuilt. The reset is behind you; this is momentum now.",
	domain.MilestoneFortnight:    "Fourteen days straight. This is no longer recovery, it is the new baseline.",
	domain.MilestoneExceededBest: "You just passed the streak you lost. The reset cost you nothing permanent. New ground from here.",
}

// MilestoneMessage returns the recovery note for a milestone, empty when
// there is nothing to say.
func MilestoneMessage(m domain.Milestone) string {
	return milestoneTemplates[m]
}
