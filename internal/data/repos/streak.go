package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/mverrett/ascend-backend/internal/domain"
	pkgerrors "github.com/mverrett/ascend-backend/internal/pkg/errors"
	"github.com/mverrett/ascend-backend/internal/platform/logger"
)

type StreakRepo interface {
	Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.StreakState, error)
	// GetForUpdate takes a row lock so two concurrent writers for the same
	// user serialize; call inside a transaction.
	GetForUpdate(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.StreakState, error)
	Upsert(ctx context.Context, tx *gorm.DB, state *types.StreakState) error
}

type streakRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStreakRepo(db *gorm.DB, baseLog *logger.Logger) StreakRepo {
	return &streakRepo{db: db, log: baseLog.With("repo", "StreakRepo")}
}

func (r *streakRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.StreakState, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.StreakState
	err := transaction.WithContext(ctx).Where("user_id = ?", userID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *streakRepo) GetForUpdate(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.StreakState, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.StreakState
	err := transaction.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *streakRepo) Upsert(ctx context.Context, tx *gorm.DB, state *types.StreakState) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(state).Error
}
