// Command migrate-passwords replaces plaintext passwords left over from the
// legacy import with bcrypt hashes. It runs in a single transaction: either
// every selected account is rehashed or none is.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"recruitment-backend/config"
	"recruitment-backend/internal/domain"
	"recruitment-backend/pkg/logger"

	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

const defaultCost = 12

type account struct {
	id       int64
	password string
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "migrate-passwords: %v\n", err)
		os.Exit(1)
	}
}

// run keeps deferred cleanup on the error path; main only turns the error
// into an exit status.
func run(args []string) error {
	fs := flag.NewFlagSet("migrate-passwords", flag.ContinueOnError)
	role := fs.Int("role", int(domain.RoleApplicant), "role_id whose passwords are migrated")
	cost := fs.Int("cost", defaultCost, "bcrypt cost")
	dryRun := fs.Bool("dry-run", false, "report what would change and roll back")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.LogLevel)

	if cfg.DBUrl == "" {
		return errors.New("DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	migrated, err := migrate(ctx, db, domain.Role(*role), *cost, *dryRun)
	if err != nil {
		logger.Log.Error("Migration failed, rolled back", "error", err)
		return err
	}
	logger.Log.Info("Migration complete", "migrated", migrated, "dry_run", *dryRun)
	return nil
}

func migrate(ctx context.Context, db *sql.DB, role domain.Role, cost int, dryRun bool) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	// 1. Select accounts still holding plaintext
	rows, err := tx.QueryContext(ctx, `
		SELECT person_id, password
		FROM person
		WHERE role_id = $1
		  AND password IS NOT NULL
		  AND password <> ''
		FOR UPDATE`, int(role))
	if err != nil {
		return 0, fmt.Errorf("select accounts: %w", err)
	}
	var accounts []account
	for rows.Next() {
		var a account
		if err := rows.Scan(&a.id, &a.password); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("read accounts: %w", err)
	}
	accounts = plaintextAccounts(accounts)
	logger.Log.Info("Found accounts to migrate", "count", len(accounts), "role", role.String())

	// 2. Rehash
	for _, a := range accounts {
		hash, err := bcrypt.GenerateFromPassword([]byte(a.password), cost)
		if err != nil {
			return 0, fmt.Errorf("hash password for person %d: %w", a.id, err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE person SET password = $1 WHERE person_id = $2`, string(hash), a.id); err != nil {
			return 0, fmt.Errorf("update person %d: %w", a.id, err)
		}
		logger.Log.Debug("Updated person", "person_id", a.id)
	}

	if dryRun {
		return len(accounts), nil
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(accounts), nil
}

// plaintextAccounts drops accounts whose password is already a bcrypt hash.
// A plaintext password that merely starts with "$2" is still migrated.
func plaintextAccounts(accounts []account) []account {
	out := accounts[:0]
	for _, a := range accounts {
		if !isBcryptHash(a.password) {
			out = append(out, a)
		}
	}
	return out
}

// isBcryptHash matches the $2a$, $2b$ and $2y$ bcrypt prefixes.
func isBcryptHash(s string) bool {
	if len(s) != 60 || !strings.HasPrefix(s, "$2") {
		return false
	}
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}
