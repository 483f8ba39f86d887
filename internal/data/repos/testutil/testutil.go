package testutil

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	types "github.com/mverrett/ascend-backend/internal/domain"
	"github.com/mverrett/ascend-backend/internal/platform/logger"
)

var errMissingDSN = errors.New("missing TEST_POSTGRES_DSN")

var (
	dbOnce sync.Once
	db     *gorm.DB
	dbErr  error

	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dbOnce.Do(func() {
		dsn := os.Getenv("TEST_POSTGRES_DSN")
		if dsn == "" {
			dbErr = errMissingDSN
			return
		}

		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
			TranslateError:                           true,
			Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
		})
		if err != nil {
			dbErr = err
			return
		}

		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
			dbErr = err
			return
		}

		if err := db.AutoMigrate(
			&types.UserProfile{},
			&types.CheckIn{},
			&types.StreakState{},
			&types.InterventionRecord{},
		); err != nil {
			dbErr = err
			return
		}
	})

	if errors.Is(dbErr, errMissingDSN) {
		tb.Skip("set TEST_POSTGRES_DSN to run repo integration tests")
	}
	if dbErr != nil {
		tb.Fatalf("failed to init test db: %v", dbErr)
	}
	return db
}

func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}

func SeedProfile(tb testing.TB, ctx context.Context, tx *gorm.DB, chatRef string) *types.UserProfile {
	tb.Helper()
	p := &types.UserProfile{
		ID:       uuid.New(),
		ChatRef:  chatRef,
		Timezone: "UTC",
		Active:   true,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed profile: %v", err)
	}
	return p
}

func SeedCheckIn(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, localDate time.Time) *types.CheckIn {
	tb.Helper()
	c := &types.CheckIn{
		ID:                uuid.New(),
		UserID:            userID,
		LocalDate:         localDate,
		SleepMet:          true,
		Trained:           true,
		DeepWorkDone:      true,
		AbstinenceHeld:    true,
		BoundariesHeld:    true,
		SkillBuildingDone: true,
	}
	c.ComplianceScore = c.ComputeCompliance()
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed check-in: %v", err)
	}
	return c
}
