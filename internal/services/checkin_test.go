package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mverrett/ascend-backend/internal/data/repos"
	"github.com/mverrett/ascend-backend/internal/data/repos/testutil"
	"github.com/mverrett/ascend-backend/internal/domain"
	pkgerrors "github.com/mverrett/ascend-backend/internal/pkg/errors"
)

func newCheckInHarness(t *testing.T, tx *gorm.DB) (CheckInService, *memCourier) {
	t.Helper()
	log := testutil.Logger(t)
	co := &memCourier{}
	svc := NewCheckInService(
		tx,
		log,
		CheckInConfig{CutoffHour: 3, DefaultTimezone: "UTC"},
		repos.NewUserProfileRepo(tx, log),
		repos.NewCheckInRepo(tx, log),
		repos.NewStreakRepo(tx, log),
		co,
	)
	return svc, co
}

func allTrue() CheckInFlags {
	return CheckInFlags{
		SleepMet:          true,
		Trained:           true,
		DeepWorkDone:      true,
		AbstinenceHeld:    true,
		BoundariesHeld:    true,
		SkillBuildingDone: true,
	}
}

func TestRecordCheckInAdvancesStreak(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	svc, co := newCheckInHarness(t, tx)

	p := testutil.SeedProfile(t, ctx, tx, "svc-advance")

	day1 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr, err := svc.RecordCheckIn(ctx, RecordCheckInRequest{UserID: p.ID, At: day1, Flags: allTrue()})
	if err != nil {
		t.Fatalf("day 1: %v", err)
	}
	if tr.CurrentStreak != 1 || tr.WasReset {
		t.Fatalf("day 1 transition = %+v", tr)
	}

	tr, err = svc.RecordCheckIn(ctx, RecordCheckInRequest{UserID: p.ID, At: day1.AddDate(0, 0, 1), Flags: allTrue()})
	if err != nil {
		t.Fatalf("day 2: %v", err)
	}
	if tr.CurrentStreak != 2 || tr.LongestStreak != 2 {
		t.Fatalf("day 2 transition = %+v", tr)
	}

	state, err := svc.GetStreak(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetStreak: %v", err)
	}
	if state.CurrentStreak != 2 {
		t.Fatalf("stored streak = %d", state.CurrentStreak)
	}
	if len(co.sent) != 0 {
		t.Fatalf("no milestone expected before day 3, got %d sends", len(co.sent))
	}
}

func TestRecordCheckInDuplicateIsNoOp(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	svc, _ := newCheckInHarness(t, tx)

	p := testutil.SeedProfile(t, ctx, tx, "svc-dup")
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if _, err := svc.RecordCheckIn(ctx, RecordCheckInRequest{UserID: p.ID, At: at, Flags: allTrue()}); err != nil {
		t.Fatalf("first: %v", err)
	}
	tr, err := svc.RecordCheckIn(ctx, RecordCheckInRequest{UserID: p.ID, At: at.Add(2 * time.Hour), Flags: allTrue()})
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !tr.Duplicate || tr.CurrentStreak != 1 {
		t.Fatalf("duplicate transition = %+v", tr)
	}

	rows, err := svc.ListRecent(ctx, p.ID, 400)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	count := 0
	for _, c := range rows {
		if c.LocalDate.Equal(domain.DateOnly(at)) {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("stored %d rows for the same local date", count)
	}
}

func TestRecordCheckInGapResetsWithSnapshot(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	svc, _ := newCheckInHarness(t, tx)

	p := testutil.SeedProfile(t, ctx, tx, "svc-reset")
	day1 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		if _, err := svc.RecordCheckIn(ctx, RecordCheckInRequest{UserID: p.ID, At: day1.AddDate(0, 0, i), Flags: allTrue()}); err != nil {
			t.Fatalf("day %d: %v", i+1, err)
		}
	}

	// Two silent days, then return.
	tr, err := svc.RecordCheckIn(ctx, RecordCheckInRequest{UserID: p.ID, At: day1.AddDate(0, 0, 6), Flags: allTrue()})
	if err != nil {
		t.Fatalf("return day: %v", err)
	}
	if !tr.WasReset || tr.CurrentStreak != 1 || tr.StreakBeforeReset != 4 {
		t.Fatalf("reset transition = %+v", tr)
	}

	state, err := svc.GetStreak(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetStreak: %v", err)
	}
	if state.LongestStreak != 4 || state.StreakBeforeReset != 4 {
		t.Fatalf("stored state = %+v", state)
	}
}

func TestRecordCheckInUnknownUser(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	svc, _ := newCheckInHarness(t, tx)

	_, err := svc.RecordCheckIn(ctx, RecordCheckInRequest{UserID: uuid.New(), Flags: allTrue()})
	if !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestRecordCheckInMilestoneDispatch(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	svc, co := newCheckInHarness(t, tx)

	p := testutil.SeedProfile(t, ctx, tx, "svc-milestone")
	day1 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Five-day streak, two silent days, then four days back. The fourth
	// day back is three days past the reset and still under the old best,
	// so exactly one recovery message goes out.
	for i := 0; i < 5; i++ {
		if _, err := svc.RecordCheckIn(ctx, RecordCheckInRequest{UserID: p.ID, At: day1.AddDate(0, 0, i), Flags: allTrue()}); err != nil {
			t.Fatalf("day %d: %v", i+1, err)
		}
	}
	for i := 7; i <= 10; i++ {
		if _, err := svc.RecordCheckIn(ctx, RecordCheckInRequest{UserID: p.ID, At: day1.AddDate(0, 0, i), Flags: allTrue()}); err != nil {
			t.Fatalf("day %d: %v", i+1, err)
		}
	}
	if len(co.sent) != 1 {
		t.Fatalf("expected one recovery message, got %d", len(co.sent))
	}
	if co.sent[0] != p.ChatRef {
		t.Fatalf("milestone sent to %q, want %q", co.sent[0], p.ChatRef)
	}
}

func TestCorrectCheckInRecomputesScore(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	svc, _ := newCheckInHarness(t, tx)

	p := testutil.SeedProfile(t, ctx, tx, "svc-correct")
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if _, err := svc.RecordCheckIn(ctx, RecordCheckInRequest{UserID: p.ID, At: at, Flags: allTrue()}); err != nil {
		t.Fatalf("record: %v", err)
	}

	flags := allTrue()
	flags.Trained = false
	flags.DeepWorkDone = false
	score, err := svc.CorrectCheckIn(ctx, p.ID, domain.DateOnly(at), flags)
	if err != nil {
		t.Fatalf("CorrectCheckIn: %v", err)
	}
	if score != 66.67 {
		t.Fatalf("score = %v, want 66.67", score)
	}

	stored, err := svc.ListRecent(ctx, p.ID, 400)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(stored) != 1 || stored[0].Trained || stored[0].ComplianceScore != 66.67 {
		t.Fatalf("stored row = %+v", stored)
	}
}

func TestCorrectCheckInMissingDay(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	svc, _ := newCheckInHarness(t, tx)

	p := testutil.SeedProfile(t, ctx, tx, "svc-correct-missing")
	_, err := svc.CorrectCheckIn(ctx, p.ID, domain.DateOnly(time.Now().UTC()), allTrue())
	if !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
