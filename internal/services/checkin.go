package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mverrett/ascend-backend/internal/clients/courier"
	"github.com/mverrett/ascend-backend/internal/clock"
	"github.com/mverrett/ascend-backend/internal/data/repos"
	"github.com/mverrett/ascend-backend/internal/domain"
	"github.com/mverrett/ascend-backend/internal/intervene"
	pkgerrors "github.com/mverrett/ascend-backend/internal/pkg/errors"
	"github.com/mverrett/ascend-backend/internal/platform/logger"
	"github.com/mverrett/ascend-backend/internal/streak"
)

type CheckInFlags struct {
	SleepMet          bool `json:"sleep_met"`
	Trained           bool `json:"trained"`
	DeepWorkDone      bool `json:"deep_work_done"`
	AbstinenceHeld    bool `json:"abstinence_held"`
	BoundariesHeld    bool `json:"boundaries_held"`
	SkillBuildingDone bool `json:"skill_building_done"`
}

type CheckInMetadata struct {
	SleepHours       *float64 `json:"sleep_hours,omitempty"`
	DeepWorkHours    *float64 `json:"deep_work_hours,omitempty"`
	WakeTime         *string  `json:"wake_time,omitempty"`
	ConsumptionHours *float64 `json:"consumption_hours,omitempty"`
	Reflection       string   `json:"reflection,omitempty"`
}

type RecordCheckInRequest struct {
	UserID   uuid.UUID
	At       time.Time // instant of submission; zero means now
	Flags    CheckInFlags
	Metadata CheckInMetadata
}

type CheckInService interface {
	RecordCheckIn(ctx context.Context, req RecordCheckInRequest) (*domain.StreakTransition, error)
	CorrectCheckIn(ctx context.Context, userID uuid.UUID, localDate time.Time, flags CheckInFlags) (float64, error)
	GetStreak(ctx context.Context, userID uuid.UUID) (*domain.StreakState, error)
	ListRecent(ctx context.Context, userID uuid.UUID, days int) ([]domain.CheckIn, error)
}

type CheckInConfig struct {
	CutoffHour      int
	DefaultTimezone string
}

type checkInService struct {
	db          *gorm.DB
	log         *logger.Logger
	cfg         CheckInConfig
	profileRepo repos.UserProfileRepo
	checkinRepo repos.CheckInRepo
	streakRepo  repos.StreakRepo
	courier     courier.Client
}

func NewCheckInService(db *gorm.DB, baseLog *logger.Logger, cfg CheckInConfig, profileRepo repos.UserProfileRepo, checkinRepo repos.CheckInRepo, streakRepo repos.StreakRepo, courierClient courier.Client) CheckInService {
	return &checkInService{
		db:          db,
		log:         baseLog.With("service", "CheckInService"),
		cfg:         cfg,
		profileRepo: profileRepo,
		checkinRepo: checkinRepo,
		streakRepo:  streakRepo,
		courier:     courierClient,
	}
}

// RecordCheckIn resolves the local date, writes the check-in, and advances
// the streak machine, all in one transaction so a storage failure leaves no
// half-applied state. Duplicate submissions return the unchanged streak with
// the duplicate flag set; the transport can tell the user without treating
// it as an error.
func (s *checkInService) RecordCheckIn(ctx context.Context, req RecordCheckInRequest) (*domain.StreakTransition, error) {
	profile, err := s.profileRepo.GetByID(ctx, nil, req.UserID)
	if errors.Is(err, pkgerrors.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown user", pkgerrors.ErrInvalidArgument)
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	at := req.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	localDate := clock.LocalDateOrDefault(at, profile.Timezone, s.cfg.DefaultTimezone, s.cfg.CutoffHour)

	var transition domain.StreakTransition
	err = s.db.Transaction(func(tx *gorm.DB) error {
		state, err := s.streakRepo.GetForUpdate(ctx, tx, req.UserID)
		if errors.Is(err, pkgerrors.ErrNotFound) {
			state = &domain.StreakState{UserID: req.UserID}
		} else if err != nil {
			return fmt.Errorf("load streak state: %w", err)
		}

		next, tr, err := streak.ApplyCheckIn(*state, localDate)
		if err != nil {
			return err
		}
		transition = tr
		if tr.Duplicate {
			return nil
		}

		checkin := &domain.CheckIn{
			ID:                uuid.New(),
			UserID:            req.UserID,
			LocalDate:         localDate,
			SleepMet:          req.Flags.SleepMet,
			Trained:           req.Flags.Trained,
			DeepWorkDone:      req.Flags.DeepWorkDone,
			AbstinenceHeld:    req.Flags.AbstinenceHeld,
			BoundariesHeld:    req.Flags.BoundariesHeld,
			SkillBuildingDone: req.Flags.SkillBuildingDone,
			SleepHours:        req.Metadata.SleepHours,
			DeepWorkHours:     req.Metadata.DeepWorkHours,
			WakeTime:          req.Metadata.WakeTime,
			ConsumptionHours:  req.Metadata.ConsumptionHours,
			Reflection:        req.Metadata.Reflection,
		}
		checkin.ComplianceScore = checkin.ComputeCompliance()
		if err := s.checkinRepo.Create(ctx, tx, checkin); err != nil {
			return fmt.Errorf("store check-in: %w", err)
		}
		if err := s.streakRepo.Upsert(ctx, tx, &next); err != nil {
			return fmt.Errorf("store streak state: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if msg := intervene.MilestoneMessage(transition.Milestone); msg != "" {
		if err := s.courier.SendMessage(ctx, profile.ChatRef, msg); err != nil {
			// Milestone copy is nice-to-have; the check-in already landed.
			s.log.Warn("milestone dispatch failed",
				"user_id", profile.ID, "milestone", transition.Milestone, "error", err)
		}
	}
	return &transition, nil
}

// CorrectCheckIn replaces the flags of an existing check-in and recomputes
// its compliance score. Streak state is deliberately left alone.
func (s *checkInService) CorrectCheckIn(ctx context.Context, userID uuid.UUID, localDate time.Time, flags CheckInFlags) (float64, error) {
	checkin, err := s.checkinRepo.GetByUserAndDate(ctx, nil, userID, domain.DateOnly(localDate))
	if err != nil {
		return 0, err
	}
	checkin.SleepMet = flags.SleepMet
	checkin.Trained = flags.Trained
	checkin.DeepWorkDone = flags.DeepWorkDone
	checkin.AbstinenceHeld = flags.AbstinenceHeld
	checkin.BoundariesHeld = flags.BoundariesHeld
	checkin.SkillBuildingDone = flags.SkillBuildingDone
	checkin.ComplianceScore = checkin.ComputeCompliance()

	if err := s.checkinRepo.UpdateFlags(ctx, nil, checkin); err != nil {
		return 0, fmt.Errorf("store correction: %w", err)
	}
	return checkin.ComplianceScore, nil
}

func (s *checkInService) GetStreak(ctx context.Context, userID uuid.UUID) (*domain.StreakState, error) {
	return s.streakRepo.Get(ctx, nil, userID)
}

func (s *checkInService) ListRecent(ctx context.Context, userID uuid.UUID, days int) ([]domain.CheckIn, error) {
	if days <= 0 {
		days = 14
	}
	since := domain.DateOnly(time.Now().UTC()).AddDate(0, 0, -days)
	return s.checkinRepo.ListRecent(ctx, nil, userID, since)
}
