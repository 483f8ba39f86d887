package repos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/mverrett/ascend-backend/internal/domain"
	"github.com/mverrett/ascend-backend/internal/data/repos/testutil"
	pkgerrors "github.com/mverrett/ascend-backend/internal/pkg/errors"
)

func utcDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCheckInRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()

	repo := NewCheckInRepo(db, testutil.Logger(t))
	profile := testutil.SeedProfile(t, ctx, tx, "checkin-repo@chat")

	c := &types.CheckIn{
		ID:        uuid.New(),
		UserID:    profile.ID,
		LocalDate: utcDate(2025, 6, 10),
		SleepMet:  true,
	}
	c.ComplianceScore = c.ComputeCompliance()
	if err := repo.Create(ctx, tx, c); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Second insert for the same (user, date) must surface the duplicate
	// sentinel, not a raw driver error.
	dup := &types.CheckIn{ID: uuid.New(), UserID: profile.ID, LocalDate: utcDate(2025, 6, 10)}
	if err := repo.Create(ctx, tx, dup); !errors.Is(err, pkgerrors.ErrDuplicateCheckIn) {
		t.Fatalf("duplicate Create: got %v, want ErrDuplicateCheckIn", err)
	}

	got, err := repo.GetByUserAndDate(ctx, tx, profile.ID, utcDate(2025, 6, 10))
	if err != nil {
		t.Fatalf("GetByUserAndDate: %v", err)
	}
	if got.ID != c.ID {
		t.Fatalf("GetByUserAndDate: got %v, want %v", got.ID, c.ID)
	}

	if _, err := repo.GetByUserAndDate(ctx, tx, profile.ID, utcDate(2025, 6, 11)); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("missing date: got %v, want ErrNotFound", err)
	}

	testutil.SeedCheckIn(t, ctx, tx, profile.ID, utcDate(2025, 6, 12))
	testutil.SeedCheckIn(t, ctx, tx, profile.ID, utcDate(2025, 6, 14))

	recent, err := repo.ListRecent(ctx, tx, profile.ID, utcDate(2025, 6, 10))
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("ListRecent: got %d rows", len(recent))
	}
	for i := 1; i < len(recent); i++ {
		if !recent[i-1].LocalDate.Before(recent[i].LocalDate) {
			t.Fatalf("ListRecent not ascending: %v", recent)
		}
	}

	c.Trained = false
	c.ComplianceScore = c.ComputeCompliance()
	if err := repo.UpdateFlags(ctx, tx, c); err != nil {
		t.Fatalf("UpdateFlags: %v", err)
	}
	got, err = repo.GetByUserAndDate(ctx, tx, profile.ID, utcDate(2025, 6, 10))
	if err != nil {
		t.Fatalf("GetByUserAndDate after update: %v", err)
	}
	if got.Trained || got.ComplianceScore == 100 {
		t.Fatalf("correction not persisted: %+v", got)
	}
}

func TestStreakRepoUpsert(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()

	repo := NewStreakRepo(db, testutil.Logger(t))
	profile := testutil.SeedProfile(t, ctx, tx, "streak-repo@chat")

	if _, err := repo.Get(ctx, tx, profile.ID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("empty Get: got %v, want ErrNotFound", err)
	}

	last := utcDate(2025, 6, 10)
	state := &types.StreakState{
		UserID:          profile.ID,
		CurrentStreak:   1,
		LongestStreak:   1,
		LastCheckInDate: &last,
	}
	if err := repo.Upsert(ctx, tx, state); err != nil {
		t.Fatalf("Upsert (insert): %v", err)
	}

	state.CurrentStreak = 2
	state.LongestStreak = 2
	next := utcDate(2025, 6, 11)
	state.LastCheckInDate = &next
	if err := repo.Upsert(ctx, tx, state); err != nil {
		t.Fatalf("Upsert (update): %v", err)
	}

	got, err := repo.Get(ctx, tx, profile.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.CurrentStreak != 2 || got.LongestStreak != 2 {
		t.Fatalf("Upsert did not update: %+v", got)
	}
}
