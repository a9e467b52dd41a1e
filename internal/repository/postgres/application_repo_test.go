package postgres

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"recruitment-backend/internal/domain"
	"recruitment-backend/pkg/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupDB connects to TEST_DATABASE_URL, recreates the schema and returns the pool.
// Tests are skipped when no database is configured.
func setupDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping postgres integration test")
	}

	ctx := context.Background()
	pool, err := database.NewPostgresConnection(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	down, err := os.ReadFile(filepath.Join("..", "..", "..", "migrations", "000001_init.down.sql"))
	require.NoError(t, err)
	up, err := os.ReadFile(filepath.Join("..", "..", "..", "migrations", "000001_init.up.sql"))
	require.NoError(t, err)

	_, err = pool.Exec(ctx, string(down))
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(up))
	require.NoError(t, err)

	return pool
}

func createApplicant(t *testing.T, repo domain.PersonRepository, username, pnr string) *domain.Person {
	t.Helper()
	p := &domain.Person{
		Username:       username,
		FirstName:      "Test",
		LastName:       "Applicant",
		PersonalNumber: pnr,
		Email:          username + "@example.com",
		Role:           domain.RoleApplicant,
		PasswordHash:   "hash",
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func mustSubmission(t *testing.T, personID int64) *domain.Submission {
	t.Helper()
	sub, err := domain.NewSubmission(personID, domain.SubmissionInput{
		Competences: []domain.CompetenceInput{
			{CompetenceType: "lotteries", YearsOfExperience: 2.5},
			{CompetenceType: "ticket sales", YearsOfExperience: 1},
		},
		Availability: []domain.AvailabilityInput{
			{From: "2026-06-01", To: "2026-08-31"},
		},
	})
	require.NoError(t, err)
	return sub
}

func TestApplicationRepo_SubmitFetchTransition(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	persons := NewPersonRepository(pool)
	apps := NewApplicationRepository(pool)

	p := createApplicant(t, persons, "anna", "19900101-1234")

	_, found, err := apps.Fetch(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, apps.Submit(ctx, mustSubmission(t, p.ID)))

	app, found, err := apps.Fetch(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, domain.StatusUnhandled, app.Status)
	require.Len(t, app.Competences, 2)
	assert.Equal(t, domain.CompetenceLotteries, app.Competences[0].Type)
	assert.InDelta(t, 2.5, app.Competences[0].YearsOfExperience, 0.001)
	require.Len(t, app.Availability, 1)
	assert.Equal(t, "2026-06-01", app.Availability[0].From.String())

	list, err := apps.ListUnhandled(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].PersonID)
	assert.Equal(t, "19900101-1234", list[0].PersonNumber)
	assert.Len(t, list[0].Competences, 2)

	res, err := apps.TransitionStatus(ctx, p.ID, domain.StatusAccepted)
	require.NoError(t, err)
	assert.True(t, res.Updated)

	res, err = apps.TransitionStatus(ctx, p.ID, domain.StatusRejected)
	require.NoError(t, err)
	assert.False(t, res.Updated)
	assert.Equal(t, domain.StatusAccepted, res.CurrentStatus)

	list, err = apps.ListUnhandled(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	// Resubmission resets the decision
	require.NoError(t, apps.Submit(ctx, mustSubmission(t, p.ID)))
	app, _, err = apps.Fetch(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnhandled, app.Status)
	assert.Len(t, app.Competences, 2)
}

func TestApplicationRepo_TransitionMissing(t *testing.T) {
	pool := setupDB(t)
	apps := NewApplicationRepository(pool)

	res, err := apps.TransitionStatus(context.Background(), 4242, domain.StatusAccepted)
	require.NoError(t, err)
	assert.False(t, res.Updated)
	assert.Empty(t, res.CurrentStatus)
}

func TestApplicationRepo_ConcurrentTransitions(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	persons := NewPersonRepository(pool)
	apps := NewApplicationRepository(pool)

	p := createApplicant(t, persons, "bertil", "19850505-5678")
	require.NoError(t, apps.Submit(ctx, mustSubmission(t, p.ID)))

	targets := []domain.ApplicationStatus{domain.StatusAccepted, domain.StatusRejected}
	results := make([]domain.TransitionResult, 8)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := apps.TransitionStatus(ctx, p.ID, targets[i%2])
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, r := range results {
		if r.Updated {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestPersonRepo_UniqueViolations(t *testing.T) {
	pool := setupDB(t)
	persons := NewPersonRepository(pool)
	createApplicant(t, persons, "cecilia", "19700101-0000")

	dup := &domain.Person{Username: "cecilia", PersonalNumber: "19700101-9999", Email: "other@example.com", Role: domain.RoleApplicant}
	assert.ErrorIs(t, persons.Create(context.Background(), dup), domain.ErrUsernameTaken)

	dup = &domain.Person{Username: "other", PersonalNumber: "19700101-0000", Email: "other@example.com", Role: domain.RoleApplicant}
	assert.ErrorIs(t, persons.Create(context.Background(), dup), domain.ErrPnrTaken)

	_, err := persons.GetByUsername(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPersonRepo_SetCredentialsSingleWinner(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	persons := NewPersonRepository(pool)

	var legacyID int64
	require.NoError(t, pool.QueryRow(ctx, `
		INSERT INTO person (name, surname, pnr, email, role_id)
		VALUES ('Legacy', 'Person', '19600101-1111', 'legacy@example.com', 2)
		RETURNING person_id`).Scan(&legacyID))
	_, err := pool.Exec(ctx, `INSERT INTO legacy_upgrade_codes (person_id, code) VALUES ($1, 'CODE')`, legacyID)
	require.NoError(t, err)

	assert.ErrorIs(t, persons.SetCredentials(ctx, legacyID, "WRONG", "nobody", "hash"), domain.ErrUpgradeConsumed)

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = persons.SetCredentials(ctx, legacyID, "CODE", fmt.Sprintf("legacy%d", i), "hash")
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, domain.ErrUpgradeConsumed)
		}
	}
	assert.Equal(t, 1, won)

	p, err := persons.GetByID(ctx, legacyID)
	require.NoError(t, err)
	assert.True(t, p.HasCredentials())
}
