package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	redisclient "github.com/mverrett/ascend-backend/internal/clients/redis"
	"github.com/mverrett/ascend-backend/internal/data/repos"
	"github.com/mverrett/ascend-backend/internal/domain"
	"github.com/mverrett/ascend-backend/internal/intervene"
	"github.com/mverrett/ascend-backend/internal/patterns"
	pkgerrors "github.com/mverrett/ascend-backend/internal/pkg/errors"
	"github.com/mverrett/ascend-backend/internal/platform/logger"
)

// In-memory fakes. The scan service only touches storage through the repo
// interfaces, so the whole pipeline runs without a database.

type memProfileRepo struct {
	profiles []*domain.UserProfile
}

func (m *memProfileRepo) Create(_ context.Context, _ *gorm.DB, p *domain.UserProfile) error {
	m.profiles = append(m.profiles, p)
	return nil
}

func (m *memProfileRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*domain.UserProfile, error) {
	for _, p := range m.profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, pkgerrors.ErrNotFound
}

func (m *memProfileRepo) GetByChatRef(_ context.Context, _ *gorm.DB, ref string) (*domain.UserProfile, error) {
	for _, p := range m.profiles {
		if p.ChatRef == ref {
			return p, nil
		}
	}
	return nil, pkgerrors.ErrNotFound
}

func (m *memProfileRepo) ListActive(_ context.Context, _ *gorm.DB) ([]*domain.UserProfile, error) {
	var out []*domain.UserProfile
	for _, p := range m.profiles {
		if p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProfileRepo) UpdateSettings(_ context.Context, _ *gorm.DB, id uuid.UUID, tz, rest string, active bool) error {
	return nil
}

type memCheckInRepo struct {
	byUser map[uuid.UUID][]domain.CheckIn
	errFor uuid.UUID
}

func (m *memCheckInRepo) Create(_ context.Context, _ *gorm.DB, c *domain.CheckIn) error {
	if m.byUser == nil {
		m.byUser = map[uuid.UUID][]domain.CheckIn{}
	}
	m.byUser[c.UserID] = append(m.byUser[c.UserID], *c)
	return nil
}

func (m *memCheckInRepo) GetByUserAndDate(_ context.Context, _ *gorm.DB, userID uuid.UUID, date time.Time) (*domain.CheckIn, error) {
	for _, c := range m.byUser[userID] {
		if c.LocalDate.Equal(date) {
			cp := c
			return &cp, nil
		}
	}
	return nil, pkgerrors.ErrNotFound
}

func (m *memCheckInRepo) ListRecent(_ context.Context, _ *gorm.DB, userID uuid.UUID, since time.Time) ([]domain.CheckIn, error) {
	if userID == m.errFor {
		return nil, fmt.Errorf("synthetic storage failure")
	}
	var out []domain.CheckIn
	for _, c := range m.byUser[userID] {
		if !c.LocalDate.Before(since) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCheckInRepo) UpdateFlags(_ context.Context, _ *gorm.DB, _ *domain.CheckIn) error {
	return nil
}

type memStreakRepo struct {
	byUser map[uuid.UUID]*domain.StreakState
}

func (m *memStreakRepo) Get(_ context.Context, _ *gorm.DB, userID uuid.UUID) (*domain.StreakState, error) {
	if s, ok := m.byUser[userID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, pkgerrors.ErrNotFound
}

func (m *memStreakRepo) GetForUpdate(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*domain.StreakState, error) {
	return m.Get(ctx, tx, userID)
}

func (m *memStreakRepo) Upsert(_ context.Context, _ *gorm.DB, s *domain.StreakState) error {
	if m.byUser == nil {
		m.byUser = map[uuid.UUID]*domain.StreakState{}
	}
	cp := *s
	m.byUser[s.UserID] = &cp
	return nil
}

type memInterventionRepo struct {
	records []*domain.InterventionRecord
}

func (m *memInterventionRepo) Create(_ context.Context, _ *gorm.DB, rec *domain.InterventionRecord) error {
	for _, r := range m.records {
		if r.DedupToken == rec.DedupToken {
			return repos.ErrDuplicateEmission
		}
	}
	cp := *rec
	m.records = append(m.records, &cp)
	return nil
}

func (m *memInterventionRepo) LatestByUserAndType(_ context.Context, _ *gorm.DB, userID uuid.UUID, pt domain.PatternType) (*domain.InterventionRecord, error) {
	var latest *domain.InterventionRecord
	for _, r := range m.records {
		if r.UserID == userID && r.PatternType == pt {
			if latest == nil || r.SentAt.After(latest.SentAt) {
				latest = r
			}
		}
	}
	if latest == nil {
		return nil, pkgerrors.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *memInterventionRepo) ListByUser(_ context.Context, _ *gorm.DB, userID uuid.UUID, _ int) ([]domain.InterventionRecord, error) {
	var out []domain.InterventionRecord
	for _, r := range m.records {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memInterventionRepo) MarkDelivered(_ context.Context, _ *gorm.DB, id uuid.UUID) error {
	for _, r := range m.records {
		if r.ID == id {
			r.Delivered = true
			return nil
		}
	}
	return pkgerrors.ErrNotFound
}

func (m *memInterventionRepo) MarkResolved(_ context.Context, _ *gorm.DB, id uuid.UUID) error {
	for _, r := range m.records {
		if r.ID == id {
			r.Resolved = true
			return nil
		}
	}
	return pkgerrors.ErrNotFound
}

type memCourier struct {
	sent []string
}

func (m *memCourier) SendMessage(_ context.Context, chatRef, text string) error {
	m.sent = append(m.sent, chatRef)
	return nil
}

type memLocker struct {
	held map[string]bool
}

func (m *memLocker) TryLock(_ context.Context, name string, _ time.Duration) (func(), bool, error) {
	if m.held[name] {
		return nil, false, nil
	}
	return func() {}, true, nil
}

func (m *memLocker) Close() error { return nil }

func testLog(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func fptr(v float64) *float64 { return &v }

func seedDegradedUser(profiles *memProfileRepo, checkins *memCheckInRepo, streaks *memStreakRepo, chatRef string) *domain.UserProfile {
	p := &domain.UserProfile{ID: uuid.New(), ChatRef: chatRef, Timezone: "UTC", Active: true}
	profiles.profiles = append(profiles.profiles, p)

	today := domain.DateOnly(time.Now().UTC())
	if checkins.byUser == nil {
		checkins.byUser = map[uuid.UUID][]domain.CheckIn{}
	}
	for i := 3; i >= 1; i-- {
		c := domain.CheckIn{
			ID:                uuid.New(),
			UserID:            p.ID,
			LocalDate:         today.AddDate(0, 0, -i),
			SleepMet:          false,
			Trained:           true,
			DeepWorkDone:      true,
			AbstinenceHeld:    true,
			BoundariesHeld:    true,
			SkillBuildingDone: true,
			SleepHours:        fptr(5.0),
		}
		c.ComplianceScore = c.ComputeCompliance()
		checkins.byUser[p.ID] = append(checkins.byUser[p.ID], c)
	}
	last := today.AddDate(0, 0, -1)
	if streaks.byUser == nil {
		streaks.byUser = map[uuid.UUID]*domain.StreakState{}
	}
	streaks.byUser[p.ID] = &domain.StreakState{
		UserID: p.ID, CurrentStreak: 3, LongestStreak: 3, LastCheckInDate: &last,
	}
	return p
}

func newScanHarness(t *testing.T, profiles *memProfileRepo, checkins *memCheckInRepo, streaks *memStreakRepo, interventions *memInterventionRepo, co *memCourier, locker *memLocker) ScanService {
	t.Helper()
	log := testLog(t)
	cfg := patterns.DefaultConfig()
	engine := patterns.NewEngine(cfg, log)
	ctrl := intervene.NewController(log, interventions, co, intervene.TemplateStrategy{}, cfg.Cooldown)
	var lk redisclient.Locker
	if locker != nil {
		lk = locker
	}
	return NewScanService(log, ScanConfig{DefaultTimezone: "UTC", CutoffHour: 3}, profiles, checkins, streaks, engine, ctrl, lk)
}

func TestRunScanDetectsAndIntervenes(t *testing.T) {
	profiles := &memProfileRepo{}
	checkins := &memCheckInRepo{}
	streaks := &memStreakRepo{}
	interventions := &memInterventionRepo{}
	co := &memCourier{}

	seedDegradedUser(profiles, checkins, streaks, "user-a")

	svc := newScanHarness(t, profiles, checkins, streaks, interventions, co, nil)
	summary, err := svc.RunScan(context.Background())
	if err != nil {
		t.Fatalf("RunScan: %v", err)
	}
	if summary.UsersScanned != 1 || summary.Errors != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.PatternsDetected == 0 || summary.InterventionsSent == 0 {
		t.Fatalf("expected detections and interventions: %+v", summary)
	}
	if summary.PatternsByType[string(domain.PatternSleepDegradation)] != 1 {
		t.Fatalf("patterns_by_type = %+v", summary.PatternsByType)
	}
	if len(co.sent) != summary.InterventionsSent {
		t.Fatalf("dispatches %d != interventions %d", len(co.sent), summary.InterventionsSent)
	}
}

func TestRunScanSecondPassSuppressedByCooldown(t *testing.T) {
	profiles := &memProfileRepo{}
	checkins := &memCheckInRepo{}
	streaks := &memStreakRepo{}
	interventions := &memInterventionRepo{}
	co := &memCourier{}

	seedDegradedUser(profiles, checkins, streaks, "user-b")
	svc := newScanHarness(t, profiles, checkins, streaks, interventions, co, nil)

	first, err := svc.RunScan(context.Background())
	if err != nil {
		t.Fatalf("first RunScan: %v", err)
	}
	second, err := svc.RunScan(context.Background())
	if err != nil {
		t.Fatalf("second RunScan: %v", err)
	}
	if second.PatternsDetected != first.PatternsDetected {
		t.Fatalf("detection must be stable: %d vs %d", first.PatternsDetected, second.PatternsDetected)
	}
	if second.InterventionsSent != 0 {
		t.Fatalf("cooldown must suppress second pass, sent %d", second.InterventionsSent)
	}
}

func TestRunScanIsolatesFailingUser(t *testing.T) {
	profiles := &memProfileRepo{}
	checkins := &memCheckInRepo{}
	streaks := &memStreakRepo{}
	interventions := &memInterventionRepo{}
	co := &memCourier{}

	bad := seedDegradedUser(profiles, checkins, streaks, "user-bad")
	seedDegradedUser(profiles, checkins, streaks, "user-good")
	checkins.errFor = bad.ID

	svc := newScanHarness(t, profiles, checkins, streaks, interventions, co, nil)
	summary, err := svc.RunScan(context.Background())
	if err != nil {
		t.Fatalf("RunScan: %v", err)
	}
	if summary.UsersScanned != 2 {
		t.Fatalf("users_scanned = %d", summary.UsersScanned)
	}
	if summary.Errors != 1 {
		t.Fatalf("errors = %d, want 1", summary.Errors)
	}
	if summary.InterventionsSent == 0 {
		t.Fatalf("healthy user must still be processed: %+v", summary)
	}
}

func TestRunScanSkipsLockedUser(t *testing.T) {
	profiles := &memProfileRepo{}
	checkins := &memCheckInRepo{}
	streaks := &memStreakRepo{}
	interventions := &memInterventionRepo{}
	co := &memCourier{}

	p := seedDegradedUser(profiles, checkins, streaks, "user-locked")
	locker := &memLocker{held: map[string]bool{p.ID.String(): true}}

	svc := newScanHarness(t, profiles, checkins, streaks, interventions, co, locker)
	summary, err := svc.RunScan(context.Background())
	if err != nil {
		t.Fatalf("RunScan: %v", err)
	}
	if summary.InterventionsSent != 0 || summary.Errors != 0 {
		t.Fatalf("locked user must be silently skipped: %+v", summary)
	}
}

func TestRunScanGhostingFromStreakState(t *testing.T) {
	profiles := &memProfileRepo{}
	checkins := &memCheckInRepo{}
	streaks := &memStreakRepo{byUser: map[uuid.UUID]*domain.StreakState{}}
	interventions := &memInterventionRepo{}
	co := &memCourier{}

	// Active user, no recent check-ins at all, last seen 3 days ago.
	p := &domain.UserProfile{ID: uuid.New(), ChatRef: "ghost", Timezone: "UTC", Active: true}
	profiles.profiles = append(profiles.profiles, p)
	last := domain.DateOnly(time.Now().UTC()).AddDate(0, 0, -3)
	streaks.byUser[p.ID] = &domain.StreakState{UserID: p.ID, CurrentStreak: 5, LongestStreak: 5, LastCheckInDate: &last}

	svc := newScanHarness(t, profiles, checkins, streaks, interventions, co, nil)
	summary, err := svc.RunScan(context.Background())
	if err != nil {
		t.Fatalf("RunScan: %v", err)
	}
	if summary.PatternsByType[string(domain.PatternGhosting)] != 1 {
		t.Fatalf("expected ghosting pattern: %+v", summary.PatternsByType)
	}
	if summary.InterventionsSent != 1 {
		t.Fatalf("expected one ghosting intervention: %+v", summary)
	}
}
