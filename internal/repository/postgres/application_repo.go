package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"recruitment-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type applicationRepo struct {
	db *pgxpool.Pool
}

// NewApplicationRepository creates a new application repository
func NewApplicationRepository(db *pgxpool.Pool) domain.ApplicationRepository {
	return &applicationRepo{db: db}
}

// Submit creates or resets the applicant's application and replaces its
// competences and availability in one transaction.
func (r *applicationRepo) Submit(ctx context.Context, sub *domain.Submission) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after commit

	// 1. Create the status row, or reset an existing one to UNHANDLED
	_, err = tx.Exec(ctx, `
		INSERT INTO person_application_status (person_id, status, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (person_id) DO UPDATE
		SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`,
		sub.PersonID, string(domain.StatusUnhandled))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return fmt.Errorf("person %d: %w", sub.PersonID, domain.ErrNotFound)
		}
		return fmt.Errorf("failed to upsert application status: %w", err)
	}

	// 2. Clear previous competences and availability
	if _, err = tx.Exec(ctx, `DELETE FROM competence_profile WHERE person_id = $1`, sub.PersonID); err != nil {
		return fmt.Errorf("failed to clear competences: %w", err)
	}
	if _, err = tx.Exec(ctx, `DELETE FROM availability WHERE person_id = $1`, sub.PersonID); err != nil {
		return fmt.Errorf("failed to clear availability: %w", err)
	}

	// 3. Insert the new ones in submission order
	for _, c := range sub.Competences {
		_, err = tx.Exec(ctx, `
			INSERT INTO competence_profile (person_id, competence_id, years_of_experience)
			VALUES ($1, $2, $3)`,
			sub.PersonID, c.Type.ID(), c.YearsOfExperience)
		if err != nil {
			return fmt.Errorf("failed to insert competence %q: %w", c.Type, err)
		}
	}
	for _, a := range sub.Availability {
		_, err = tx.Exec(ctx, `
			INSERT INTO availability (person_id, from_date, to_date)
			VALUES ($1, $2, $3)`,
			sub.PersonID, a.From.Time, a.To.Time)
		if err != nil {
			return fmt.Errorf("failed to insert availability %s..%s: %w", a.From, a.To, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Fetch reads the application from a single repeatable-read snapshot so a
// concurrent Submit is never observed half applied.
func (r *applicationRepo) Fetch(ctx context.Context, personID int64) (*domain.Application, bool, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	app := &domain.Application{PersonID: personID}

	var status string
	err = tx.QueryRow(ctx, `SELECT status FROM person_application_status WHERE person_id = $1`, personID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read application status: %w", err)
	}
	app.Status = domain.ApplicationStatus(status)

	app.Competences, err = r.competences(ctx, tx, personID)
	if err != nil {
		return nil, false, err
	}
	app.Availability, err = r.availability(ctx, tx, personID)
	if err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("failed to end read transaction: %w", err)
	}
	return app, true, nil
}

func (r *applicationRepo) competences(ctx context.Context, tx pgx.Tx, personID int64) ([]domain.CompetenceEntry, error) {
	rows, err := tx.Query(ctx, `
		SELECT cp.competence_id, cp.years_of_experience
		FROM competence_profile cp
		WHERE cp.person_id = $1
		ORDER BY cp.competence_profile_id`, personID)
	if err != nil {
		return nil, fmt.Errorf("failed to query competences: %w", err)
	}
	defer rows.Close()

	entries := []domain.CompetenceEntry{}
	for rows.Next() {
		var id int
		var years float64
		if err := rows.Scan(&id, &years); err != nil {
			return nil, fmt.Errorf("failed to scan competence: %w", err)
		}
		ct, err := domain.CompetenceTypeFromID(id)
		if err != nil {
			return nil, err
		}
		entries = append(entries, domain.CompetenceEntry{Type: ct, YearsOfExperience: years})
	}
	return entries, rows.Err()
}

func (r *applicationRepo) availability(ctx context.Context, tx pgx.Tx, personID int64) ([]domain.AvailabilityPeriod, error) {
	rows, err := tx.Query(ctx, `
		SELECT from_date, to_date
		FROM availability
		WHERE person_id = $1
		ORDER BY availability_id`, personID)
	if err != nil {
		return nil, fmt.Errorf("failed to query availability: %w", err)
	}
	defer rows.Close()

	periods := []domain.AvailabilityPeriod{}
	for rows.Next() {
		var from, to time.Time
		if err := rows.Scan(&from, &to); err != nil {
			return nil, fmt.Errorf("failed to scan availability: %w", err)
		}
		periods = append(periods, domain.AvailabilityPeriod{From: domain.NewDate(from), To: domain.NewDate(to)})
	}
	return periods, rows.Err()
}

// ListUnhandled returns the recruiter work queue from the application_overview view
func (r *applicationRepo) ListUnhandled(ctx context.Context) ([]domain.ApplicationOverview, error) {
	query := `
		SELECT person_id, first_name, last_name, person_number, email, status,
		       competences, availability
		FROM application_overview
		WHERE status = $1
		ORDER BY person_id`

	rows, err := r.db.Query(ctx, query, string(domain.StatusUnhandled))
	if err != nil {
		return nil, fmt.Errorf("failed to query application overview: %w", err)
	}
	defer rows.Close()

	applications := []domain.ApplicationOverview{}
	for rows.Next() {
		var app domain.ApplicationOverview
		var status string
		var competencesJSON, availabilityJSON []byte
		if err := rows.Scan(
			&app.PersonID, &app.FirstName, &app.LastName, &app.PersonNumber, &app.Email, &status,
			&competencesJSON, &availabilityJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan application overview: %w", err)
		}
		app.Status = domain.ApplicationStatus(status)
		if err := json.Unmarshal(competencesJSON, &app.Competences); err != nil {
			return nil, fmt.Errorf("failed to decode competences for person %d: %w", app.PersonID, err)
		}
		if err := json.Unmarshal(availabilityJSON, &app.Availability); err != nil {
			return nil, fmt.Errorf("failed to decode availability for person %d: %w", app.PersonID, err)
		}
		applications = append(applications, app)
	}
	return applications, rows.Err()
}

// TransitionStatus moves an UNHANDLED application to target. The WHERE clause
// re-checks the status inside the UPDATE itself, so of two concurrent
// recruiters only the first to reach the row is counted as updated.
func (r *applicationRepo) TransitionStatus(ctx context.Context, personID int64, target domain.ApplicationStatus) (domain.TransitionResult, error) {
	if !target.IsTerminal() {
		return domain.TransitionResult{}, &domain.ValidationError{
			Field: "status", Value: string(target), Reason: "invalid status", Cause: domain.ErrInvalidStatus,
		}
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE person_application_status
		SET status = $2, updated_at = NOW()
		WHERE person_id = $1 AND status = $3`,
		personID, string(target), string(domain.StatusUnhandled))
	if err != nil {
		return domain.TransitionResult{}, fmt.Errorf("failed to update application status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return domain.TransitionResult{Updated: true}, nil
	}

	// Lost the race, already decided, or no application at all. A resubmit
	// committed since the UPDATE reads back as UNHANDLED; the caller reports
	// that case separately.
	var current string
	err = r.db.QueryRow(ctx, `SELECT status FROM person_application_status WHERE person_id = $1`, personID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TransitionResult{Updated: false}, nil
	}
	if err != nil {
		return domain.TransitionResult{}, fmt.Errorf("failed to read current status: %w", err)
	}
	return domain.TransitionResult{Updated: false, CurrentStatus: domain.ApplicationStatus(current)}, nil
}
