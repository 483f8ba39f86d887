package patterns

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mverrett/ascend-backend/internal/domain"
)

// Config carries every detector threshold plus per-pattern cooldown windows.
// Defaults are compiled in; a YAML catalog file overrides field by field.
type Config struct {
	Sleep struct {
		Window   int     `yaml:"window"`
		MinHours float64 `yaml:"min_hours"`
	} `yaml:"sleep"`

	Training struct {
		Window int `yaml:"window"`
	} `yaml:"training"`

	Abstinence struct {
		Window      int `yaml:"window"`
		MaxFailures int `yaml:"max_failures"`
	} `yaml:"abstinence"`

	Compliance struct {
		Window   int     `yaml:"window"`
		MinScore float64 `yaml:"min_score"`
	} `yaml:"compliance"`

	DeepWork struct {
		Window      int     `yaml:"window"`
		MinAvgHours float64 `yaml:"min_avg_hours"`
	} `yaml:"deep_work"`

	Snooze struct {
		Window           int    `yaml:"window"`
		TargetWake       string `yaml:"target_wake"`
		ToleranceMinutes int    `yaml:"tolerance_minutes"`
	} `yaml:"snooze"`

	Consumption struct {
		Window   int     `yaml:"window"`
		MaxHours float64 `yaml:"max_hours"`
		MinDays  int     `yaml:"min_days"`
	} `yaml:"consumption"`

	Correlation struct {
		Window         int     `yaml:"window"`
		Threshold      float64 `yaml:"threshold"`
		MinTriggerDays int     `yaml:"min_trigger_days"`
	} `yaml:"correlation"`

	Ghosting struct {
		MinDays int `yaml:"min_days"`
	} `yaml:"ghosting"`

	// CooldownHours keys are pattern type names.
	CooldownHours map[string]int `yaml:"cooldown_hours"`
}

func DefaultConfig() Config {
	var c Config
	c.Sleep.Window = 3
	c.Sleep.MinHours = 6.0
	c.Training.Window = 3
	c.Abstinence.Window = 7
	c.Abstinence.MaxFailures = 3
	c.Compliance.Window = 3
	c.Compliance.MinScore = 60.0
	c.DeepWork.Window = 5
	c.DeepWork.MinAvgHours = 2.0
	c.Snooze.Window = 3
	c.Snooze.TargetWake = "06:30"
	c.Snooze.ToleranceMinutes = 30
	c.Consumption.Window = 7
	c.Consumption.MaxHours = 3.0
	c.Consumption.MinDays = 5
	// 0.70 sits between chance-level (0.50) and needlessly strict (0.90) on
	// windows this small; the floor of 2 trigger days rules out a 100%
	// "correlation" built from one coincidental day.
	c.Correlation.Window = 7
	c.Correlation.Threshold = 0.70
	c.Correlation.MinTriggerDays = 2
	c.Ghosting.MinDays = 2
	c.CooldownHours = map[string]int{
		string(domain.PatternSleepDegradation):    24,
		string(domain.PatternTrainingAbandonment): 48,
		string(domain.PatternAbstinenceRelapse):   12,
		string(domain.PatternComplianceDecline):   48,
		string(domain.PatternDeepWorkCollapse):    24,
		string(domain.PatternSnoozeTrap):          72,
		string(domain.PatternConsumptionVortex):   72,
		string(domain.PatternBoundaryCorrelation): 24,
		string(domain.PatternGhosting):            20,
	}
	return c
}

// LoadConfig reads a YAML catalog over the defaults. A missing path returns
// the defaults untouched.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read detector catalog: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse detector catalog: %w", err)
	}
	return cfg, nil
}

// Cooldown returns the configured window for a pattern type, defaulting to
// 24h for anything unlisted.
func (c Config) Cooldown(pt domain.PatternType) time.Duration {
	if h, ok := c.CooldownHours[string(pt)]; ok && h > 0 {
		return time.Duration(h) * time.Hour
	}
	return 24 * time.Hour
}

// LookbackDays is how much history the orchestrator must load to satisfy the
// widest record-count window, with slack for calendar gaps.
func (c Config) LookbackDays() int {
	max := c.Abstinence.Window
	for _, w := range []int{c.Sleep.Window, c.Training.Window, c.Compliance.Window, c.DeepWork.Window, c.Snooze.Window, c.Consumption.Window, c.Correlation.Window} {
		if w > max {
			max = w
		}
	}
	// Gaps mean N check-ins can span more than N days.
	return max * 2
}
