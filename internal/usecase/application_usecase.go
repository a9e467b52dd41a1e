package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"recruitment-backend/internal/domain"
	"recruitment-backend/pkg/apperror"
	"recruitment-backend/pkg/logger"
	"recruitment-backend/pkg/metrics"
	"recruitment-backend/pkg/security"
	"recruitment-backend/pkg/validation"

	"github.com/go-playground/validator/v10"
)

// ConflictMessage is returned to a recruiter who lost a status race.
const ConflictMessage = "Application already handled by another recruiter"

// ResubmittedMessage is returned when the application was replaced between the
// recruiter's update and the read of its current status.
const ResubmittedMessage = "Application was resubmitted, reload it before deciding"

type applicationUsecase struct {
	repo     domain.ApplicationRepository
	validate *validator.Validate
	metrics  *metrics.Metrics
	secLog   *security.SecurityLogger
}

// NewApplicationUsecase creates a new application usecase. m and secLog may be nil.
func NewApplicationUsecase(
	repo domain.ApplicationRepository,
	validate *validator.Validate,
	m *metrics.Metrics,
	secLog *security.SecurityLogger,
) domain.ApplicationUsecase {
	if validate == nil {
		validate = validation.New()
	}
	return &applicationUsecase{
		repo:     repo,
		validate: validate,
		metrics:  m,
		secLog:   secLog,
	}
}

// Submit validates the form and replaces the applicant's application.
func (uc *applicationUsecase) Submit(ctx context.Context, personID int64, in domain.SubmissionInput) (*domain.SubmitResult, error) {
	// 1. Shape checks
	if err := uc.validate.StructCtx(ctx, in); err != nil {
		uc.metrics.Submission(metrics.ResultInvalid)
		return nil, apperror.Validation("Invalid application", err, validation.FormatValidationErrors(err))
	}

	// 2. Typed values
	sub, err := domain.NewSubmission(personID, in)
	if err != nil {
		uc.metrics.Submission(metrics.ResultInvalid)
		return nil, validationAppError("Invalid application", err)
	}

	// 3. Persist atomically
	if err := uc.repo.Submit(ctx, sub); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			uc.metrics.Submission(metrics.ResultInvalid)
			return nil, apperror.NotFound("Person not found")
		}
		uc.metrics.Submission(metrics.ResultError)
		return nil, apperror.Internal(err)
	}

	uc.metrics.Submission(metrics.ResultOK)
	logger.Log.Info("application submitted",
		"person_id", personID,
		"competences", len(sub.Competences),
		"periods", len(sub.Availability),
	)
	return &domain.SubmitResult{OK: true, PersonID: personID}, nil
}

func (uc *applicationUsecase) Fetch(ctx context.Context, personID int64) (*domain.Application, error) {
	app, found, err := uc.repo.Fetch(ctx, personID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if !found {
		return nil, apperror.NotFound("Application not found")
	}
	return app, nil
}

func (uc *applicationUsecase) ListUnhandled(ctx context.Context) ([]domain.ApplicationOverview, error) {
	list, err := uc.repo.ListUnhandled(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return list, nil
}

// TransitionStatus moves an UNHANDLED application to ACCEPTED or REJECTED.
// A lost race surfaces as a 409 wrapping *domain.StatusConflictError.
func (uc *applicationUsecase) TransitionStatus(ctx context.Context, personID int64, status string) (domain.ApplicationStatus, error) {
	target, err := domain.ParseTransitionTarget(status)
	if err != nil {
		return "", validationAppError("Invalid status", err)
	}

	res, err := uc.repo.TransitionStatus(ctx, personID, target)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return "", validationAppError("Invalid status", err)
		}
		uc.metrics.Transition(metrics.OutcomeError)
		return "", apperror.Internal(err)
	}

	switch {
	case res.Updated:
		uc.metrics.Transition(metrics.OutcomeUpdated)
		uc.secLog.LogStatusDecision(ctx, personID, string(target), string(target), true)
		return target, nil
	case res.CurrentStatus == "":
		uc.metrics.Transition(metrics.OutcomeNotFound)
		return "", apperror.NotFound("Application not found")
	case res.CurrentStatus == domain.StatusUnhandled:
		uc.metrics.Transition(metrics.OutcomeConflict)
		uc.secLog.LogStatusDecision(ctx, personID, string(target), string(res.CurrentStatus), false)
		return "", apperror.New(http.StatusConflict, ResubmittedMessage, &domain.StatusConflictError{
			PersonID: personID,
			Current:  res.CurrentStatus,
		})
	default:
		uc.metrics.Transition(metrics.OutcomeConflict)
		uc.secLog.LogStatusDecision(ctx, personID, string(target), string(res.CurrentStatus), false)
		return "", apperror.New(http.StatusConflict, ConflictMessage, &domain.StatusConflictError{
			PersonID: personID,
			Current:  res.CurrentStatus,
		})
	}
}

// validationAppError converts a domain validation failure into a 400.
func validationAppError(message string, err error) *apperror.AppError {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		msg := ve.Reason
		if ve.Field != "" {
			msg = fmt.Sprintf("%s: %s", ve.Field, ve.Reason)
		}
		return apperror.Validation(message, err, []string{msg})
	}
	return apperror.Validation(message, err, []string{err.Error()})
}
