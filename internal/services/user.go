package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mverrett/ascend-backend/internal/data/repos"
	"github.com/mverrett/ascend-backend/internal/domain"
	pkgerrors "github.com/mverrett/ascend-backend/internal/pkg/errors"
	"github.com/mverrett/ascend-backend/internal/platform/logger"
)

type RegisterUserRequest struct {
	ChatRef  string `json:"chat_ref"`
	Timezone string `json:"timezone"`
	RestDays string `json:"rest_days"`
}

type UpdateUserRequest struct {
	Timezone string `json:"timezone"`
	RestDays string `json:"rest_days"`
	Active   *bool  `json:"active"`
}

type UserService interface {
	Register(ctx context.Context, req RegisterUserRequest) (*domain.UserProfile, error)
	Get(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error)
	GetByChatRef(ctx context.Context, chatRef string) (*domain.UserProfile, error)
	UpdateSettings(ctx context.Context, userID uuid.UUID, req UpdateUserRequest) (*domain.UserProfile, error)
}

type userService struct {
	log         *logger.Logger
	profileRepo repos.UserProfileRepo
	defaultTZ   string
}

func NewUserService(baseLog *logger.Logger, profileRepo repos.UserProfileRepo, defaultTZ string) UserService {
	if defaultTZ == "" {
		defaultTZ = "UTC"
	}
	return &userService{
		log:         baseLog.With("service", "UserService"),
		profileRepo: profileRepo,
		defaultTZ:   defaultTZ,
	}
}

func (s *userService) Register(ctx context.Context, req RegisterUserRequest) (*domain.UserProfile, error) {
	if req.ChatRef == "" {
		return nil, fmt.Errorf("%w: chat_ref is required", pkgerrors.ErrInvalidArgument)
	}
	tz := req.Timezone
	if tz == "" {
		tz = s.defaultTZ
	}
	if err := validateTimezone(tz); err != nil {
		return nil, err
	}

	profile := &domain.UserProfile{
		ID:       uuid.New(),
		ChatRef:  req.ChatRef,
		Timezone: tz,
		RestDays: req.RestDays,
		Active:   true,
	}
	err := s.profileRepo.Create(ctx, nil, profile)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, fmt.Errorf("%w: chat_ref already registered", pkgerrors.ErrInvalidArgument)
	}
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	s.log.Info("registered user", "user_id", profile.ID, "timezone", tz)
	return profile, nil
}

func (s *userService) Get(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error) {
	return s.profileRepo.GetByID(ctx, nil, userID)
}

func (s *userService) GetByChatRef(ctx context.Context, chatRef string) (*domain.UserProfile, error) {
	return s.profileRepo.GetByChatRef(ctx, nil, chatRef)
}

func (s *userService) UpdateSettings(ctx context.Context, userID uuid.UUID, req UpdateUserRequest) (*domain.UserProfile, error) {
	profile, err := s.profileRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}

	tz := profile.Timezone
	if req.Timezone != "" {
		if err := validateTimezone(req.Timezone); err != nil {
			return nil, err
		}
		tz = req.Timezone
	}
	rest := profile.RestDays
	if req.RestDays != "" {
		rest = req.RestDays
	}
	active := profile.Active
	if req.Active != nil {
		active = *req.Active
	}

	if err := s.profileRepo.UpdateSettings(ctx, nil, userID, tz, rest, active); err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	profile.Timezone = tz
	profile.RestDays = rest
	profile.Active = active
	return profile, nil
}

func validateTimezone(tz string) error {
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("%w: %q", pkgerrors.ErrInvalidTimezone, tz)
	}
	return nil
}
