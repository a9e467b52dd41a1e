package domain

import (
	"context"
	"strings"
	"time"
)

// Role ids as seeded in the role table
type Role int

const (
	RoleRecruiter Role = 1
	RoleApplicant Role = 2
)

func (r Role) String() string {
	switch r {
	case RoleRecruiter:
		return "recruiter"
	case RoleApplicant:
		return "applicant"
	}
	return "unknown"
}

// Person is an account holder: an applicant or a recruiter.
type Person struct {
	ID             int64  `json:"person_id"`
	Username       string `json:"username"`
	FirstName      string `json:"name"`
	LastName       string `json:"surname"`
	PersonalNumber string `json:"pnr"`
	Email          string `json:"email"`
	Role           Role   `json:"role_id"`
	PasswordHash   string `json:"-"`
}

// HasCredentials is false for legacy accounts imported without login details.
func (p *Person) HasCredentials() bool {
	return strings.TrimSpace(p.Username) != "" || strings.TrimSpace(p.PasswordHash) != ""
}

type RegisterInput struct {
	FirstName      string `json:"firstName" binding:"required,max=255"`
	LastName       string `json:"lastName" binding:"required,max=255"`
	Email          string `json:"email" binding:"required,email,max=255"`
	PersonalNumber string `json:"personalNumber" binding:"required,personal_number"`
	Username       string `json:"username" binding:"required,min=3,max=255"`
	Password       string `json:"password" binding:"required,min=6,max=72"`
}

type UpgradeInput struct {
	Email          string `json:"email" binding:"required,email"`
	PersonalNumber string `json:"personalNumber" binding:"required,personal_number"`
	UpgradeCode    string `json:"upgradeCode" binding:"required"`
	Username       string `json:"username" binding:"required,min=3,max=255"`
	Password       string `json:"password" binding:"required,min=6,max=72"`
}

type PersonalInfoInput struct {
	FirstName      string `json:"firstName" binding:"required,max=255"`
	LastName       string `json:"lastName" binding:"required,max=255"`
	Email          string `json:"email" binding:"required,email,max=255"`
	PersonalNumber string `json:"personalNumber" binding:"required,personal_number"`
}

// LoginResult carries the signed session token and the authenticated person.
type LoginResult struct {
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Person    *Person   `json:"user"`
}

// PersonRepository defines data access methods for persons
type PersonRepository interface {
	GetByID(ctx context.Context, id int64) (*Person, error)
	GetByUsername(ctx context.Context, username string) (*Person, error)
	FindForUpgrade(ctx context.Context, email, personalNumber string) (*Person, error)
	VerifyUpgradeCode(ctx context.Context, personID int64, code string) (bool, error)
	Create(ctx context.Context, p *Person) error
	// SetCredentials consumes code and stores the login details in one step.
	// It returns ErrUpgradeConsumed when the code is gone or the person
	// already has credentials.
	SetCredentials(ctx context.Context, personID int64, code, username, passwordHash string) error
	UpdatePersonalInfo(ctx context.Context, p *Person) error
}

// LoginGuard tracks failed logins and decides lockouts.
type LoginGuard interface {
	IsBlocked(ctx context.Context, username, ip string) (bool, error)
	RecordFailure(ctx context.Context, username, ip string) (blocked bool, err error)
	Reset(ctx context.Context, username, ip string) error
}

type AuthUsecase interface {
	Login(ctx context.Context, username, password, ip string) (*LoginResult, error)
	Register(ctx context.Context, in RegisterInput) (*Person, error)
	Upgrade(ctx context.Context, in UpgradeInput) error
	GetCurrentUser(ctx context.Context, id int64) (*Person, error)
	UpdatePersonalInfo(ctx context.Context, personID int64, in PersonalInfoInput) error
}
