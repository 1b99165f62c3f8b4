package service

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/abhiyeduru/mentlearn-api/internal/models"
	"github.com/abhiyeduru/mentlearn-api/internal/repository"
	appErrors "github.com/abhiyeduru/mentlearn-api/pkg/errors"
)

type registrationFixture struct {
	sessions      *SessionService
	registrations *RegistrationService
	sessionRepo   *mockSessionRepo
	repo          *mockRegistrationRepo
	metrics       *MetricsService
}

func newRegistrationFixture() registrationFixture {
	sessionRepo := newMockSessionRepo()
	repo := newMockRegistrationRepo()
	metrics := NewMetricsService()
	return registrationFixture{
		sessions:      NewSessionService(sessionRepo, nil, metrics, nil, zap.NewNop()),
		registrations: NewRegistrationService(repo, sessionRepo, nil, metrics, nil, zap.NewNop()),
		sessionRepo:   sessionRepo,
		repo:          repo,
		metrics:       metrics,
	}
}

func learner(sessionID, name, email string) SubmitRegistrationRequest {
	return SubmitRegistrationRequest{SessionID: sessionID, FullName: name, Email: email, Phone: "+91 90000 00000"}
}

func TestRegistrationSubmitCopiesSessionFields(t *testing.T) {
	f := newRegistrationFixture()
	ctx := context.Background()
	session, err := f.sessions.Create(ctx, staffActor, reactBasics())
	require.NoError(t, err)

	reg, err := f.registrations.Submit(ctx, learner(session.ID, "Ravi Kumar", "ravi@example.com"))
	require.NoError(t, err)
	assert.NotEmpty(t, reg.ID)
	assert.Equal(t, models.RegistrationStatusPending, reg.Status)
	assert.Equal(t, "React Basics", reg.SessionTitle)
	assert.Equal(t, "2026-11-01", reg.SessionDate)
	assert.Equal(t, "18:00", reg.SessionTime)
	assert.False(t, reg.RegisteredAt.IsZero())
	assert.Equal(t, uint64(1), f.metrics.Snapshot().RegistrationsSubmitted)
}

func TestRegistrationSnapshotSurvivesSessionEdit(t *testing.T) {
	f := newRegistrationFixture()
	ctx := context.Background()
	session, err := f.sessions.Create(ctx, staffActor, reactBasics())
	require.NoError(t, err)
	reg, err := f.registrations.Submit(ctx, learner(session.ID, "Ravi Kumar", "ravi@example.com"))
	require.NoError(t, err)

	_, err = f.sessions.Update(ctx, staffActor, session.ID, UpdateSessionRequest{Title: strPtr("Advanced React"), Time: strPtr("19:30")})
	require.NoError(t, err)

	stored, err := f.repo.FindByID(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, "React Basics", stored.SessionTitle)
	assert.Equal(t, "18:00", stored.SessionTime)
}

func TestRegistrationSubmitUnknownSessionStillStores(t *testing.T) {
	f := newRegistrationFixture()

	reg, err := f.registrations.Submit(context.Background(), learner("deleted-session", "Ravi Kumar", "ravi@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "deleted-session", reg.SessionID)
	assert.Empty(t, reg.SessionTitle)
	assert.Empty(t, reg.SessionDate)
	assert.Len(t, f.repo.order, 1)
}

func TestRegistrationSubmitIgnoresCapacityAndDuplicates(t *testing.T) {
	f := newRegistrationFixture()
	ctx := context.Background()
	session, err := f.sessions.Create(ctx, staffActor, reactBasics())
	require.NoError(t, err)
	require.Equal(t, 2, session.MaxParticipants)

	for i := 0; i < 3; i++ {
		_, err := f.registrations.Submit(ctx, learner(session.ID, "Ravi Kumar", "ravi@example.com"))
		require.NoError(t, err)
	}
	all, err := f.repo.ListAll(ctx, models.RegistrationFilter{SessionID: session.ID})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRegistrationSubmitValidation(t *testing.T) {
	f := newRegistrationFixture()

	cases := map[string]SubmitRegistrationRequest{
		"missing name":  {SessionID: "s", Email: "a@b.co", Phone: "1"},
		"bad email":     {SessionID: "s", FullName: "A", Email: "not-an-email", Phone: "1"},
		"missing phone": {SessionID: "s", FullName: "A", Email: "a@b.co", Phone: "  "},
		"no session":    {FullName: "A", Email: "a@b.co", Phone: "1"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.registrations.Submit(context.Background(), req)
			assert.ErrorIs(t, err, appErrors.ErrValidation)
		})
	}
	assert.Empty(t, f.repo.order)
}

func TestRegistrationSubmitPersistenceError(t *testing.T) {
	f := newRegistrationFixture()
	f.repo.err = errStoreDown

	_, err := f.registrations.Submit(context.Background(), learner("s", "Ravi", "ravi@example.com"))
	require.Error(t, err)
	assert.Equal(t, "PERSISTENCE_ERROR", appErrors.FromError(err).Code)
	assert.ErrorIs(t, err, errStoreDown)
}

func TestRegistrationSetStatusIdempotent(t *testing.T) {
	f := newRegistrationFixture()
	ctx := context.Background()
	reg, err := f.registrations.Submit(ctx, learner("s", "Ravi", "ravi@example.com"))
	require.NoError(t, err)

	for _, status := range models.RegistrationStatuses {
		first, err := f.registrations.SetStatus(ctx, staffActor, reg.ID, string(status))
		require.NoError(t, err)
		second, err := f.registrations.SetStatus(ctx, staffActor, reg.ID, string(status))
		require.NoError(t, err)
		assert.Equal(t, status, first.Status)
		assert.Equal(t, status, second.Status)
		assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
	}
	assert.Equal(t, 2*len(models.RegistrationStatuses), f.repo.writes)

	back, err := f.registrations.SetStatus(ctx, staffActor, reg.ID, "Pending")
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusPending, back.Status)
}

func TestRegistrationSetStatusErrors(t *testing.T) {
	f := newRegistrationFixture()
	ctx := context.Background()
	reg, err := f.registrations.Submit(ctx, learner("s", "Ravi", "ravi@example.com"))
	require.NoError(t, err)

	_, err = f.registrations.SetStatus(ctx, staffActor, reg.ID, "archived")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = f.registrations.SetStatus(ctx, staffActor, "missing", "confirmed")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = f.registrations.SetStatus(ctx, studentActor, reg.ID, "confirmed")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestRegistrationListFilters(t *testing.T) {
	f := newRegistrationFixture()
	ctx := context.Background()
	a, err := f.registrations.Submit(ctx, learner("s1", "Ravi", "ravi@example.com"))
	require.NoError(t, err)
	_, err = f.registrations.Submit(ctx, learner("s2", "Meera", "meera@example.com"))
	require.NoError(t, err)
	_, err = f.registrations.SetStatus(ctx, staffActor, a.ID, "contacted")
	require.NoError(t, err)

	regs, page, err := f.registrations.List(ctx, staffActor, models.RegistrationFilter{Status: models.RegistrationStatusContacted})
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, a.ID, regs[0].ID)
	assert.Equal(t, 1, page.TotalCount)

	_, _, err = f.registrations.List(ctx, staffActor, models.RegistrationFilter{Status: "weird"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, _, err = f.registrations.List(ctx, studentActor, models.RegistrationFilter{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestSessionDeleteOrphansRegistrations(t *testing.T) {
	f := newRegistrationFixture()
	ctx := context.Background()
	session, err := f.sessions.Create(ctx, staffActor, reactBasics())
	require.NoError(t, err)
	reg, err := f.registrations.Submit(ctx, learner(session.ID, "Ravi", "ravi@example.com"))
	require.NoError(t, err)

	require.NoError(t, f.sessions.Delete(ctx, staffActor, session.ID))

	stored, err := f.repo.FindByID(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, stored.SessionID)
	assert.Equal(t, "React Basics", stored.SessionTitle)
}

// newSQLSessionRepo backs a SessionRepository with sqlmock. Tests that expect
// no statement to reach Postgres leave the mock without expectations.
func newSQLSessionRepo(t *testing.T) (*repository.SessionRepository, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return repository.NewSessionRepository(sqlx.NewDb(raw, "sqlmock")), mock
}

func TestRegistrationSubmitMalformedSessionIDStoresEmptySnapshot(t *testing.T) {
	sessionRepo, mock := newSQLSessionRepo(t)
	repo := newMockRegistrationRepo()
	svc := NewRegistrationService(repo, sessionRepo, nil, NewMetricsService(), nil, zap.NewNop())

	reg, err := svc.Submit(context.Background(), learner("legacy-42", "Ravi Kumar", "ravi@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "legacy-42", reg.SessionID)
	assert.Empty(t, reg.SessionTitle)
	assert.Empty(t, reg.SessionDate)
	assert.Empty(t, reg.SessionTime)

	stored, err := repo.FindByID(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusPending, stored.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
