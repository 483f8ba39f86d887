package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/mverrett/ascend-backend/internal/data/repos"
	"github.com/mverrett/ascend-backend/internal/domain"
	"github.com/mverrett/ascend-backend/internal/platform/logger"
)

type InterventionService interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.InterventionRecord, error)
	// Resolve acknowledges an intervention. Resolution is bookkeeping only;
	// it does not shorten the emission cooldown for the pattern.
	Resolve(ctx context.Context, id uuid.UUID) error
}

type interventionService struct {
	log  *logger.Logger
	repo repos.InterventionRepo
}

func NewInterventionService(baseLog *logger.Logger, repo repos.InterventionRepo) InterventionService {
	return &interventionService{
		log:  baseLog.With("service", "InterventionService"),
		repo: repo,
	}
}

func (s *interventionService) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.InterventionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListByUser(ctx, nil, userID, limit)
}

func (s *interventionService) Resolve(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.MarkResolved(ctx, nil, id); err != nil {
		return err
	}
	s.log.Info("intervention resolved", "intervention_id", id)
	return nil
}
