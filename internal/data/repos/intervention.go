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

// ErrDuplicateEmission signals an insert that hit the dedup-token unique
// index; the intervention was already recorded by an earlier attempt.
var ErrDuplicateEmission = errors.New("intervention already recorded")

type InterventionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rec *types.InterventionRecord) error
	LatestByUserAndType(ctx context.Context, tx *gorm.DB, userID uuid.UUID, pt types.PatternType) (*types.InterventionRecord, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]types.InterventionRecord, error)
	MarkDelivered(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	MarkResolved(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type interventionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInterventionRepo(db *gorm.DB, baseLog *logger.Logger) InterventionRepo {
	return &interventionRepo{db: db, log: baseLog.With("repo", "InterventionRepo")}
}

func (r *interventionRepo) Create(ctx context.Context, tx *gorm.DB, rec *types.InterventionRecord) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	err := transaction.WithContext(ctx).Create(rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateEmission
	}
	return err
}

func (r *interventionRepo) LatestByUserAndType(ctx context.Context, tx *gorm.DB, userID uuid.UUID, pt types.PatternType) (*types.InterventionRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.InterventionRecord
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND pattern_type = ?", userID, pt).
		Order("sent_at DESC").
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *interventionRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]types.InterventionRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var out []types.InterventionRecord
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("sent_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *interventionRepo) MarkDelivered(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.InterventionRecord{}).
		Where("id = ?", id).
		Update("delivered", true).Error
}

func (r *interventionRepo) MarkResolved(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.InterventionRecord{}).
		Where("id = ?", id).
		Update("resolved", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}
