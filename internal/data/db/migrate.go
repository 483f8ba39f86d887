package db

import (
	types "github.com/mverrett/ascend-backend/internal/domain"
)

func (s *PostgresService) AutoMigrateAll() error {
	return s.db.AutoMigrate(
		&types.UserProfile{},
		&types.CheckIn{},
		&types.StreakState{},
		&types.InterventionRecord{},
	)
}
