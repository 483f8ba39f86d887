package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	redisclient "github.com/mverrett/ascend-backend/internal/clients/redis"
	"github.com/mverrett/ascend-backend/internal/clock"
	"github.com/mverrett/ascend-backend/internal/data/repos"
	"github.com/mverrett/ascend-backend/internal/domain"
	"github.com/mverrett/ascend-backend/internal/intervene"
	"github.com/mverrett/ascend-backend/internal/patterns"
	pkgerrors "github.com/mverrett/ascend-backend/internal/pkg/errors"
	"github.com/mverrett/ascend-backend/internal/platform/logger"
)

type ScanSummary struct {
	Status            string         `json:"status"`
	UsersScanned      int            `json:"users_scanned"`
	PatternsDetected  int            `json:"patterns_detected"`
	InterventionsSent int            `json:"interventions_sent"`
	Errors            int            `json:"errors"`
	PatternsByType    map[string]int `json:"patterns_by_type"`
}

type ScanConfig struct {
	Workers         int
	UserTimeout     time.Duration
	ScanTimeout     time.Duration
	LockTTL         time.Duration
	CutoffHour      int
	DefaultTimezone string
}

type ScanService interface {
	RunScan(ctx context.Context) (ScanSummary, error)
}

type scanService struct {
	log         *logger.Logger
	cfg         ScanConfig
	profileRepo repos.UserProfileRepo
	checkinRepo repos.CheckInRepo
	streakRepo  repos.StreakRepo
	engine      *patterns.Engine
	controller  *intervene.Controller
	locker      redisclient.Locker
}

// NewScanService wires the periodic scan. locker may be nil for
// single-instance deployments; per-user mutual exclusion then degrades to
// "one scan at a time", which the scheduler already guarantees there.
func NewScanService(baseLog *logger.Logger, cfg ScanConfig, profileRepo repos.UserProfileRepo, checkinRepo repos.CheckInRepo, streakRepo repos.StreakRepo, engine *patterns.Engine, controller *intervene.Controller, locker redisclient.Locker) ScanService {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.UserTimeout <= 0 {
		cfg.UserTimeout = 15 * time.Second
	}
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = 5 * time.Minute
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Minute
	}
	return &scanService{
		log:         baseLog.With("service", "ScanService"),
		cfg:         cfg,
		profileRepo: profileRepo,
		checkinRepo: checkinRepo,
		streakRepo:  streakRepo,
		engine:      engine,
		controller:  controller,
		locker:      locker,
	}
}

type userScanResult struct {
	patterns []domain.Pattern
	sent     int
	err      error
}

// RunScan walks every active user with bounded parallelism. Users are
// independent: one user's failure is counted and skipped, never fatal to
// the run. Partial completion on timeout is reflected honestly in the
// summary counts.
func (s *scanService) RunScan(ctx context.Context) (ScanSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ScanTimeout)
	defer cancel()

	summary := ScanSummary{Status: "completed", PatternsByType: map[string]int{}}

	profiles, err := s.profileRepo.ListActive(ctx, nil)
	if err != nil {
		return summary, fmt.Errorf("list active users: %w", err)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	for _, profile := range profiles {
		profile := profile
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			res := s.scanUser(gctx, profile)

			mu.Lock()
			defer mu.Unlock()
			summary.UsersScanned++
			if res.err != nil {
				summary.Errors++
				s.log.Error("user scan failed", "user_id", profile.ID, "error", res.err)
				return nil
			}
			summary.PatternsDetected += len(res.patterns)
			summary.InterventionsSent += res.sent
			for _, p := range res.patterns {
				summary.PatternsByType[string(p.Type)]++
			}
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		summary.Status = "partial"
	}
	s.log.Info("scan finished",
		"status", summary.Status,
		"users_scanned", summary.UsersScanned,
		"patterns_detected", summary.PatternsDetected,
		"interventions_sent", summary.InterventionsSent,
		"errors", summary.Errors,
	)
	return summary, nil
}

func (s *scanService) scanUser(ctx context.Context, profile *domain.UserProfile) (res userScanResult) {
	// A corrupt record or detector bug for one user must not take down the
	// whole run.
	defer func() {
		if r := recover(); r != nil {
			res.err = fmt.Errorf("panic: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.UserTimeout)
	defer cancel()

	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx, profile.ID.String(), s.cfg.LockTTL)
		if err != nil {
			return userScanResult{err: fmt.Errorf("scan lock: %w", err)}
		}
		if !ok {
			// Another scan run holds this user; it will cover them.
			s.log.Debug("user locked by concurrent scan, skipping", "user_id", profile.ID)
			return userScanResult{}
		}
		defer release()
	}

	state, err := s.streakRepo.Get(ctx, nil, profile.ID)
	if errors.Is(err, pkgerrors.ErrNotFound) {
		// Never checked in: nothing to detect, not even ghosting.
		return userScanResult{}
	}
	if err != nil {
		return userScanResult{err: fmt.Errorf("load streak state: %w", err)}
	}

	now := time.Now().UTC()
	today := clock.LocalDateOrDefault(now, profile.Timezone, s.cfg.DefaultTimezone, s.cfg.CutoffHour)

	lookback := s.engine.Config().LookbackDays()
	since := today.AddDate(0, 0, -lookback)
	checkins, err := s.checkinRepo.ListRecent(ctx, nil, profile.ID, since)
	if err != nil {
		return userScanResult{err: fmt.Errorf("load recent check-ins: %w", err)}
	}

	detected := s.engine.Detect(profile, checkins, now)
	if ghost := s.engine.DetectGhosting(*state, today, now); ghost != nil {
		detected = append(detected, *ghost)
	}
	res.patterns = detected

	for _, p := range detected {
		decision, err := s.controller.Decide(ctx, profile.ID, p)
		if err != nil {
			res.err = fmt.Errorf("decide %s: %w", p.Type, err)
			return res
		}
		if !decision.Emit {
			continue
		}
		if _, err := s.controller.Emit(ctx, profile, *state, p); err != nil {
			if errors.Is(err, repos.ErrDuplicateEmission) {
				continue
			}
			res.err = fmt.Errorf("emit %s: %w", p.Type, err)
			return res
		}
		res.sent++
	}
	return res
}
