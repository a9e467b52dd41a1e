package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"recruitment-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newStoreWithApplicants seeds persons 1..n.
func newStoreWithApplicants(t *testing.T, n int) *Store {
	t.Helper()
	s := NewStore()
	for i := 1; i <= n; i++ {
		err := s.Create(context.Background(), &domain.Person{
			Username:       fmt.Sprintf("applicant%d", i),
			FirstName:      "First",
			LastName:       fmt.Sprintf("Last%d", i),
			PersonalNumber: fmt.Sprintf("19900101-%04d", i),
			Email:          fmt.Sprintf("applicant%d@example.com", i),
			Role:           domain.RoleApplicant,
		})
		require.NoError(t, err)
	}
	return s
}

func submission(t *testing.T, personID int64, competence string, years float64, from, to string) *domain.Submission {
	t.Helper()
	sub, err := domain.NewSubmission(personID, domain.SubmissionInput{
		Competences:  []domain.CompetenceInput{{CompetenceType: competence, YearsOfExperience: years}},
		Availability: []domain.AvailabilityInput{{From: from, To: to}},
	})
	require.NoError(t, err)
	return sub
}

func TestStore_Scenario(t *testing.T) {
	ctx := context.Background()
	s := newStoreWithApplicants(t, 5)

	require.NoError(t, s.Submit(ctx, submission(t, 5, "lotteries", 3.5, "2026-03-01", "2026-03-31")))

	app, found, err := s.Fetch(ctx, 5)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, domain.StatusUnhandled, app.Status)
	assert.Equal(t, []domain.CompetenceEntry{{Type: domain.CompetenceLotteries, YearsOfExperience: 3.5}}, app.Competences)
	require.Len(t, app.Availability, 1)
	assert.Equal(t, "2026-03-01", app.Availability[0].From.String())
	assert.Equal(t, "2026-03-31", app.Availability[0].To.String())

	res, err := s.TransitionStatus(ctx, 5, domain.StatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, domain.TransitionResult{Updated: true}, res)

	res, err = s.TransitionStatus(ctx, 5, domain.StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, domain.TransitionResult{Updated: false, CurrentStatus: domain.StatusAccepted}, res)
}

func TestStore_ConcurrentTransitionsHaveOneWinner(t *testing.T) {
	ctx := context.Background()

	for round := 0; round < 50; round++ {
		s := newStoreWithApplicants(t, 1)
		require.NoError(t, s.Submit(ctx, submission(t, 1, "ticket sales", 1, "2026-01-01", "2026-01-02")))

		var wg sync.WaitGroup
		results := make([]domain.TransitionResult, 2)
		targets := []domain.ApplicationStatus{domain.StatusAccepted, domain.StatusRejected}
		start := make(chan struct{})
		for i := range targets {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				res, err := s.TransitionStatus(ctx, 1, targets[i])
				assert.NoError(t, err)
				results[i] = res
			}(i)
		}
		close(start)
		wg.Wait()

		require.NotEqual(t, results[0].Updated, results[1].Updated, "exactly one transition must win")
		winner, loser := 0, 1
		if results[1].Updated {
			winner, loser = 1, 0
		}
		assert.Equal(t, targets[winner], results[loser].CurrentStatus)

		app, _, err := s.Fetch(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, targets[winner], app.Status)
	}
}

func TestStore_RepeatedTransitionReportsFirstDecision(t *testing.T) {
	ctx := context.Background()
	s := newStoreWithApplicants(t, 1)
	require.NoError(t, s.Submit(ctx, submission(t, 1, "lotteries", 2, "2026-01-01", "2026-02-01")))

	res, err := s.TransitionStatus(ctx, 1, domain.StatusRejected)
	require.NoError(t, err)
	require.True(t, res.Updated)

	for _, target := range []domain.ApplicationStatus{domain.StatusAccepted, domain.StatusRejected, domain.StatusAccepted} {
		res, err := s.TransitionStatus(ctx, 1, target)
		require.NoError(t, err)
		assert.False(t, res.Updated)
		assert.Equal(t, domain.StatusRejected, res.CurrentStatus)
	}
}

func TestStore_TransitionRejectsNonTerminalTarget(t *testing.T) {
	ctx := context.Background()
	s := newStoreWithApplicants(t, 1)
	require.NoError(t, s.Submit(ctx, submission(t, 1, "lotteries", 2, "2026-01-01", "2026-02-01")))

	_, err := s.TransitionStatus(ctx, 1, domain.StatusUnhandled)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestStore_TransitionWithoutApplication(t *testing.T) {
	s := newStoreWithApplicants(t, 1)

	res, err := s.TransitionStatus(context.Background(), 1, domain.StatusAccepted)
	require.NoError(t, err)
	assert.False(t, res.Updated)
	assert.Empty(t, res.CurrentStatus)
}

func TestStore_SubmitReplacesPreviousApplication(t *testing.T) {
	ctx := context.Background()
	s := newStoreWithApplicants(t, 1)

	first, err := domain.NewSubmission(1, domain.SubmissionInput{
		Competences: []domain.CompetenceInput{
			{CompetenceType: "ticket sales", YearsOfExperience: 1},
			{CompetenceType: "lotteries", YearsOfExperience: 2},
		},
		Availability: []domain.AvailabilityInput{
			{From: "2026-01-01", To: "2026-01-31"},
			{From: "2026-03-01", To: "2026-03-31"},
		},
	})
	require.NoError(t, err)
	require.NoError(t, s.Submit(ctx, first))

	res, err := s.TransitionStatus(ctx, 1, domain.StatusAccepted)
	require.NoError(t, err)
	require.True(t, res.Updated)

	second := submission(t, 1, "roller coaster operation", 4.25, "2026-07-01", "2026-07-15")
	require.NoError(t, s.Submit(ctx, second))

	app, found, err := s.Fetch(ctx, 1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, domain.StatusUnhandled, app.Status)
	assert.Equal(t, second.Competences, app.Competences)
	assert.Equal(t, second.Availability, app.Availability)
}

func TestStore_InterruptedSubmitLeavesOldState(t *testing.T) {
	ctx := context.Background()
	s := newStoreWithApplicants(t, 1)

	old := submission(t, 1, "lotteries", 3, "2026-01-01", "2026-01-31")
	require.NoError(t, s.Submit(ctx, old))
	res, err := s.TransitionStatus(ctx, 1, domain.StatusRejected)
	require.NoError(t, err)
	require.True(t, res.Updated)

	for _, failAt := range []string{StepCleared, StepInsert} {
		t.Run(failAt, func(t *testing.T) {
			boom := errors.New("disk full")
			s.InjectFault(func(step string) error {
				if step == failAt {
					return boom
				}
				return nil
			})
			defer s.InjectFault(nil)

			err := s.Submit(ctx, submission(t, 1, "ticket sales", 1, "2026-05-01", "2026-05-31"))
			assert.ErrorIs(t, err, boom)

			app, found, err := s.Fetch(ctx, 1)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, domain.StatusRejected, app.Status)
			assert.Equal(t, old.Competences, app.Competences)
			assert.Equal(t, old.Availability, app.Availability)
		})
	}
}

func TestStore_SubmitUnknownPerson(t *testing.T) {
	s := NewStore()
	err := s.Submit(context.Background(), submission(t, 99, "lotteries", 1, "2026-01-01", "2026-01-02"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, found, err := s.Fetch(context.Background(), 99)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_ListUnhandled(t *testing.T) {
	ctx := context.Background()
	s := newStoreWithApplicants(t, 3)
	for _, id := range []int64{3, 1, 2} {
		require.NoError(t, s.Submit(ctx, submission(t, id, "lotteries", 1, "2026-01-01", "2026-01-02")))
	}
	_, err := s.TransitionStatus(ctx, 2, domain.StatusAccepted)
	require.NoError(t, err)

	list, err := s.ListUnhandled(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(1), list[0].PersonID)
	assert.Equal(t, int64(3), list[1].PersonID)
	assert.Equal(t, "Last3", list[1].LastName)
	assert.Equal(t, "19900101-0003", list[1].PersonNumber)
	assert.Len(t, list[1].Competences, 1)
}

func TestStore_PersonUniqueness(t *testing.T) {
	ctx := context.Background()
	s := newStoreWithApplicants(t, 1)

	err := s.Create(ctx, &domain.Person{Username: "applicant1", Email: "x@example.com", PersonalNumber: "20000101-0000"})
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)

	err = s.Create(ctx, &domain.Person{Username: "new", Email: "applicant1@example.com", PersonalNumber: "20000101-0000"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	err = s.Create(ctx, &domain.Person{Username: "new", Email: "new@example.com", PersonalNumber: "19900101-0001"})
	assert.ErrorIs(t, err, domain.ErrPnrTaken)
}

func TestStore_SetCredentialsConsumesUpgradeCode(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Create(ctx, &domain.Person{ID: 12, Email: "legacy@example.com", PersonalNumber: "19600101-1111", Role: domain.RoleApplicant}))
	s.SetUpgradeCode(12, "ABC123")

	ok, err := s.VerifyUpgradeCode(ctx, 12, "ABC123")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, s.SetCredentials(ctx, 12, "WRONG", "legacy", "hash"), domain.ErrUpgradeConsumed)
	require.NoError(t, s.SetCredentials(ctx, 12, "ABC123", "legacy", "hash"))
	assert.ErrorIs(t, s.SetCredentials(ctx, 12, "ABC123", "intruder", "other"), domain.ErrUpgradeConsumed)

	ok, err = s.VerifyUpgradeCode(ctx, 12, "ABC123")
	require.NoError(t, err)
	assert.False(t, ok)

	p, err := s.GetByUsername(ctx, "legacy")
	require.NoError(t, err)
	assert.Equal(t, int64(12), p.ID)
	assert.Equal(t, "hash", p.PasswordHash)
}

func TestStore_SetCredentialsSingleWinner(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Create(ctx, &domain.Person{ID: 12, Email: "legacy@example.com", PersonalNumber: "19600101-1111", Role: domain.RoleApplicant}))
	s.SetUpgradeCode(12, "CODE")

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.SetCredentials(ctx, 12, "CODE", fmt.Sprintf("user%d", i), "hash")
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
}
