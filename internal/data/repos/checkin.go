package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/mverrett/ascend-backend/internal/domain"
	pkgerrors "github.com/mverrett/ascend-backend/internal/pkg/errors"
	"github.com/mverrett/ascend-backend/internal/platform/logger"
)

type CheckInRepo interface {
	Create(ctx context.Context, tx *gorm.DB, checkin *types.CheckIn) error
	GetByUserAndDate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, localDate time.Time) (*types.CheckIn, error)
	// ListRecent returns check-ins on or after sinceDate, ordered by local
	// date ascending.
	ListRecent(ctx context.Context, tx *gorm.DB, userID uuid.UUID, sinceDate time.Time) ([]types.CheckIn, error)
	UpdateFlags(ctx context.Context, tx *gorm.DB, checkin *types.CheckIn) error
}

type checkInRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCheckInRepo(db *gorm.DB, baseLog *logger.Logger) CheckInRepo {
	return &checkInRepo{db: db, log: baseLog.With("repo", "CheckInRepo")}
}

func (r *checkInRepo) Create(ctx context.Context, tx *gorm.DB, checkin *types.CheckIn) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	err := transaction.WithContext(ctx).Create(checkin).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return pkgerrors.ErrDuplicateCheckIn
	}
	return err
}

func (r *checkInRepo) GetByUserAndDate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, localDate time.Time) (*types.CheckIn, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.CheckIn
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND local_date = ?", userID, localDate).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *checkInRepo) ListRecent(ctx context.Context, tx *gorm.DB, userID uuid.UUID, sinceDate time.Time) ([]types.CheckIn, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []types.CheckIn
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND local_date >= ?", userID, sinceDate).
		Order("local_date ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateFlags persists a correction: flags and the recomputed compliance
// score only. Streak state is untouched by corrections.
func (r *checkInRepo) UpdateFlags(ctx context.Context, tx *gorm.DB, checkin *types.CheckIn) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.CheckIn{}).
		Where("id = ?", checkin.ID).
		Updates(map[string]any{
			"sleep_met":           checkin.SleepMet,
			"trained":             checkin.Trained,
			"deep_work_done":      checkin.DeepWorkDone,
			"abstinence_held":     checkin.AbstinenceHeld,
			"boundaries_held":     checkin.BoundariesHeld,
			"skill_building_done": checkin.SkillBuildingDone,
			"compliance_score":    checkin.ComplianceScore,
		}).Error
}
