package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/mverrett/ascend-backend/internal/domain"
	pkgerrors "github.com/mverrett/ascend-backend/internal/pkg/errors"
	"github.com/mverrett/ascend-backend/internal/platform/logger"
)

type UserProfileRepo interface {
	Create(ctx context.Context, tx *gorm.DB, profile *types.UserProfile) error
	GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserProfile, error)
	GetByChatRef(ctx context.Context, tx *gorm.DB, chatRef string) (*types.UserProfile, error)
	ListActive(ctx context.Context, tx *gorm.DB) ([]*types.UserProfile, error)
	UpdateSettings(ctx context.Context, tx *gorm.DB, userID uuid.UUID, timezone, restDays string, active bool) error
}

type userProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserProfileRepo(db *gorm.DB, baseLog *logger.Logger) UserProfileRepo {
	return &userProfileRepo{db: db, log: baseLog.With("repo", "UserProfileRepo")}
}

func (r *userProfileRepo) Create(ctx context.Context, tx *gorm.DB, profile *types.UserProfile) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(profile).Error
}

func (r *userProfileRepo) GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.UserProfile
	err := transaction.WithContext(ctx).Where("id = ?", userID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *userProfileRepo) GetByChatRef(ctx context.Context, tx *gorm.DB, chatRef string) (*types.UserProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.UserProfile
	err := transaction.WithContext(ctx).Where("chat_ref = ?", chatRef).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *userProfileRepo) ListActive(ctx context.Context, tx *gorm.DB) ([]*types.UserProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.UserProfile
	if err := transaction.WithContext(ctx).
		Where("active = ?", true).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userProfileRepo) UpdateSettings(ctx context.Context, tx *gorm.DB, userID uuid.UUID, timezone, restDays string, active bool) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.UserProfile{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"timezone":  timezone,
			"rest_days": restDays,
			"active":    active,
		}).Error
}
