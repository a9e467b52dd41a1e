package postgres

import (
	"context"
	"errors"
	"fmt"

	"recruitment-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQL error codes
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

const personColumns = `person_id, COALESCE(username, ''), COALESCE(name, ''), COALESCE(surname, ''),
	COALESCE(pnr, ''), COALESCE(email, ''), role_id, COALESCE(password, '')`

type personRepo struct {
	db *pgxpool.Pool
}

func NewPersonRepository(db *pgxpool.Pool) domain.PersonRepository {
	return &personRepo{db: db}
}

func scanPerson(row pgx.Row) (*domain.Person, error) {
	var p domain.Person
	var role int
	err := row.Scan(&p.ID, &p.Username, &p.FirstName, &p.LastName, &p.PersonalNumber, &p.Email, &role, &p.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Role = domain.Role(role)
	return &p, nil
}

// uniqueViolation maps a person unique constraint to its domain error.
func uniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return nil
	}
	switch pgErr.ConstraintName {
	case "unique_username":
		return domain.ErrUsernameTaken
	case "unique_email":
		return domain.ErrEmailTaken
	case "unique_pnr":
		return domain.ErrPnrTaken
	}
	return nil
}

func (r *personRepo) GetByID(ctx context.Context, id int64) (*domain.Person, error) {
	query := `SELECT ` + personColumns + ` FROM person WHERE person_id = $1`
	return scanPerson(r.db.QueryRow(ctx, query, id))
}

func (r *personRepo) GetByUsername(ctx context.Context, username string) (*domain.Person, error) {
	query := `SELECT ` + personColumns + ` FROM person WHERE username = $1`
	return scanPerson(r.db.QueryRow(ctx, query, username))
}

// FindForUpgrade locates a person by the identity pair a legacy applicant knows.
func (r *personRepo) FindForUpgrade(ctx context.Context, email, personalNumber string) (*domain.Person, error) {
	query := `SELECT ` + personColumns + ` FROM person WHERE email = $1 AND pnr = $2 LIMIT 1`
	return scanPerson(r.db.QueryRow(ctx, query, email, personalNumber))
}

func (r *personRepo) VerifyUpgradeCode(ctx context.Context, personID int64, code string) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM legacy_upgrade_codes WHERE person_id = $1 AND code = $2)`,
		personID, code).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to verify upgrade code: %w", err)
	}
	return ok, nil
}

func (r *personRepo) Create(ctx context.Context, p *domain.Person) error {
	query := `
		INSERT INTO person (name, surname, pnr, email, password, role_id, username)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING person_id`
	err := r.db.QueryRow(ctx, query,
		p.FirstName, p.LastName, p.PersonalNumber, p.Email, p.PasswordHash, int(p.Role), p.Username,
	).Scan(&p.ID)
	if err != nil {
		if domainErr := uniqueViolation(err); domainErr != nil {
			return domainErr
		}
		return fmt.Errorf("failed to create person: %w", err)
	}
	return nil
}

// SetCredentials completes a legacy account and consumes its upgrade code.
// Deleting the code row first locks it, so a concurrent upgrade with the same
// code waits and then finds nothing to delete.
func (r *personRepo) SetCredentials(ctx context.Context, personID int64, code, username, passwordHash string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`DELETE FROM legacy_upgrade_codes WHERE person_id = $1 AND code = $2`,
		personID, code)
	if err != nil {
		return fmt.Errorf("failed to consume upgrade code: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return domain.ErrUpgradeConsumed
	}

	tag, err = tx.Exec(ctx, `
		UPDATE person SET username = $2, password = $3
		WHERE person_id = $1
		  AND COALESCE(username, '') = ''
		  AND COALESCE(password, '') = ''`,
		personID, username, passwordHash)
	if err != nil {
		if domainErr := uniqueViolation(err); domainErr != nil {
			return domainErr
		}
		return fmt.Errorf("failed to set credentials: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUpgradeConsumed
	}

	return tx.Commit(ctx)
}

func (r *personRepo) UpdatePersonalInfo(ctx context.Context, p *domain.Person) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE person SET name = $2, surname = $3, email = $4, pnr = $5 WHERE person_id = $1`,
		p.ID, p.FirstName, p.LastName, p.Email, p.PersonalNumber)
	if err != nil {
		if domainErr := uniqueViolation(err); domainErr != nil {
			return domainErr
		}
		return fmt.Errorf("failed to update personal info: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
