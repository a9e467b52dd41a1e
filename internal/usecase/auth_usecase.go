package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"recruitment-backend/internal/domain"
	"recruitment-backend/pkg/apperror"
	"recruitment-backend/pkg/auth"
	"recruitment-backend/pkg/logger"
	"recruitment-backend/pkg/security"

	"golang.org/x/crypto/bcrypt"
)

// Message keys the frontend translates
const (
	KeyUsernameIsTaken    = "usernameIsTaken"
	KeyEmailIsTaken       = "emailIsTaken"
	KeyPnrIsTaken         = "pnrIsTaken"
	KeyRegistrationFailed = "registrationFailed"
	KeyNotLegacy          = "notLegacy"
	KeyUsernameTaken      = "usernameTaken"
	KeyPasswordTooLong    = "passwordTooLong"
)

// x/crypto/bcrypt rejects input over 72 bytes.
const maxPasswordBytes = 72

// AuthConfig carries the account policy knobs.
type AuthConfig struct {
	BcryptCost            int
	LegacyPersonIDCeiling int64
}

type authUsecase struct {
	persons domain.PersonRepository
	tokens  *auth.TokenIssuer
	guard   domain.LoginGuard
	secLog  *security.SecurityLogger
	cfg     AuthConfig
}

func NewAuthUsecase(
	persons domain.PersonRepository,
	tokens *auth.TokenIssuer,
	guard domain.LoginGuard,
	secLog *security.SecurityLogger,
	cfg AuthConfig,
) domain.AuthUsecase {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &authUsecase{
		persons: persons,
		tokens:  tokens,
		guard:   guard,
		secLog:  secLog,
		cfg:     cfg,
	}
}

// Login checks the password and issues a session token.
func (u *authUsecase) Login(ctx context.Context, username, password, ip string) (*domain.LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperror.BadRequest("Username and password are required")
	}

	// 1. Refuse early while blocked
	if u.guard != nil {
		blocked, err := u.guard.IsBlocked(ctx, username, ip)
		if err != nil {
			logger.Log.Warn("login guard unavailable", "error", err)
		}
		if blocked {
			u.secLog.LogLoginBlocked(ctx, username, ip)
			return nil, apperror.TooManyRequests("Too many failed login attempts. Please try again later.")
		}
	}

	// 2. Verify credentials
	p, err := u.persons.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, apperror.Internal(err)
	}
	if p == nil || p.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) != nil {
		return nil, u.loginFailed(ctx, username, ip)
	}

	// 3. Issue session
	if u.guard != nil {
		if err := u.guard.Reset(ctx, username, ip); err != nil {
			logger.Log.Warn("failed to reset login attempts", "error", err)
		}
	}
	token, expiresAt, err := u.tokens.Issue(p.ID)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	u.secLog.LogLoginSuccess(ctx, p.ID, ip)
	return &domain.LoginResult{Token: token, ExpiresAt: expiresAt, Person: p}, nil
}

func (u *authUsecase) loginFailed(ctx context.Context, username, ip string) error {
	u.secLog.LogLoginFailed(ctx, username, ip, "invalid_credentials")
	if u.guard != nil {
		blocked, err := u.guard.RecordFailure(ctx, username, ip)
		if err != nil {
			logger.Log.Warn("failed to record login failure", "error", err)
		}
		if blocked {
			return apperror.TooManyRequests("Too many failed login attempts. Please try again later.")
		}
	}
	return apperror.Unauthorized("Invalid username or password")
}

// Register creates an applicant account.
func (u *authUsecase) Register(ctx context.Context, in domain.RegisterInput) (*domain.Person, error) {
	if len(in.Password) > maxPasswordBytes {
		return nil, apperror.BadRequest(KeyPasswordTooLong)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), u.cfg.BcryptCost)
	if err != nil {
		return nil, apperror.New(http.StatusInternalServerError, KeyRegistrationFailed, err)
	}

	p := &domain.Person{
		Username:       strings.TrimSpace(in.Username),
		FirstName:      strings.TrimSpace(in.FirstName),
		LastName:       strings.TrimSpace(in.LastName),
		PersonalNumber: strings.TrimSpace(in.PersonalNumber),
		Email:          strings.ToLower(strings.TrimSpace(in.Email)),
		Role:           domain.RoleApplicant,
		PasswordHash:   string(hash),
	}

	if err := u.persons.Create(ctx, p); err != nil {
		switch {
		case errors.Is(err, domain.ErrUsernameTaken):
			return nil, apperror.New(http.StatusConflict, KeyUsernameIsTaken, err)
		case errors.Is(err, domain.ErrEmailTaken):
			return nil, apperror.New(http.StatusConflict, KeyEmailIsTaken, err)
		case errors.Is(err, domain.ErrPnrTaken):
			return nil, apperror.New(http.StatusConflict, KeyPnrIsTaken, err)
		}
		return nil, apperror.New(http.StatusInternalServerError, KeyRegistrationFailed, err)
	}

	u.secLog.LogPersonEvent(ctx, security.EventUserCreated, p.ID, map[string]interface{}{"role": p.Role.String()})
	return p, nil
}

// Upgrade gives a legacy person, imported without login details, a username
// and password after proving identity with a one-time code.
func (u *authUsecase) Upgrade(ctx context.Context, in domain.UpgradeInput) error {
	if len(in.Password) > maxPasswordBytes {
		return apperror.BadRequest(KeyPasswordTooLong)
	}

	// 1. Locate the person
	p, err := u.persons.FindForUpgrade(ctx, strings.ToLower(strings.TrimSpace(in.Email)), strings.TrimSpace(in.PersonalNumber))
	if errors.Is(err, domain.ErrNotFound) {
		return apperror.NotFound("No matching person found")
	}
	if err != nil {
		return apperror.Internal(err)
	}

	// 2. Only accounts without credentials can be upgraded
	if p.HasCredentials() {
		u.secLog.LogPersonEvent(ctx, security.EventUpgradeRejected, p.ID, map[string]interface{}{"reason": "has_credentials"})
		return apperror.Conflict("Account already has login credentials")
	}
	if p.ID >= u.cfg.LegacyPersonIDCeiling {
		u.secLog.LogPersonEvent(ctx, security.EventUpgradeRejected, p.ID, map[string]interface{}{"reason": "not_legacy"})
		return apperror.Forbidden(KeyNotLegacy)
	}

	// 3. Prove identity
	code := strings.TrimSpace(in.UpgradeCode)
	ok, err := u.persons.VerifyUpgradeCode(ctx, p.ID, code)
	if err != nil {
		return apperror.Internal(err)
	}
	if !ok {
		u.secLog.LogPersonEvent(ctx, security.EventUpgradeRejected, p.ID, map[string]interface{}{"reason": "bad_code"})
		return apperror.Unauthorized("Invalid upgrade code")
	}

	// 4. Store credentials; the code is checked again as it is consumed
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), u.cfg.BcryptCost)
	if err != nil {
		return apperror.Internal(err)
	}
	err = u.persons.SetCredentials(ctx, p.ID, code, strings.TrimSpace(in.Username), string(hash))
	switch {
	case errors.Is(err, domain.ErrUpgradeConsumed):
		u.secLog.LogPersonEvent(ctx, security.EventUpgradeRejected, p.ID, map[string]interface{}{"reason": "code_consumed"})
		return apperror.New(http.StatusConflict, "Account already has login credentials", err)
	case errors.Is(err, domain.ErrUsernameTaken):
		return apperror.New(http.StatusConflict, KeyUsernameTaken, err)
	case err != nil:
		return apperror.Internal(err)
	}

	u.secLog.LogPersonEvent(ctx, security.EventAccountUpgraded, p.ID, nil)
	return nil
}

func (u *authUsecase) GetCurrentUser(ctx context.Context, id int64) (*domain.Person, error) {
	p, err := u.persons.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, apperror.NotFound("User not found")
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return p, nil
}

// UpdatePersonalInfo replaces the caller's name, email and personal number.
func (u *authUsecase) UpdatePersonalInfo(ctx context.Context, personID int64, in domain.PersonalInfoInput) error {
	p := &domain.Person{
		ID:             personID,
		FirstName:      strings.TrimSpace(in.FirstName),
		LastName:       strings.TrimSpace(in.LastName),
		Email:          strings.ToLower(strings.TrimSpace(in.Email)),
		PersonalNumber: strings.TrimSpace(in.PersonalNumber),
	}
	if p.FirstName == "" || p.LastName == "" || p.Email == "" || p.PersonalNumber == "" {
		return apperror.BadRequest("All fields are required")
	}

	err := u.persons.UpdatePersonalInfo(ctx, p)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotFound):
		return apperror.NotFound("User not found")
	case errors.Is(err, domain.ErrEmailTaken):
		return apperror.New(http.StatusConflict, KeyEmailIsTaken, err)
	case errors.Is(err, domain.ErrPnrTaken):
		return apperror.New(http.StatusConflict, KeyPnrIsTaken, err)
	}
	return apperror.Internal(err)
}
