package domain

import (
	"context"
	"fmt"
	"strings"
)

// ApplicationStatus is the lifecycle state of an application.
// UNHANDLED is the only state with outgoing transitions.
type ApplicationStatus string

const (
	StatusUnhandled ApplicationStatus = "UNHANDLED"
	StatusAccepted  ApplicationStatus = "ACCEPTED"
	StatusRejected  ApplicationStatus = "REJECTED"
)

// ParseApplicationStatus accepts the three known statuses, case-insensitively.
func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	switch st := ApplicationStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusUnhandled, StatusAccepted, StatusRejected:
		return st, nil
	}
	return "", &ValidationError{Field: "status", Value: s, Reason: "invalid status", Cause: ErrInvalidStatus}
}

// IsTerminal reports whether no further transition is allowed from s.
func (s ApplicationStatus) IsTerminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// ParseTransitionTarget parses a status that a recruiter may move an application to.
func ParseTransitionTarget(s string) (ApplicationStatus, error) {
	st, err := ParseApplicationStatus(s)
	if err != nil {
		return "", err
	}
	if !st.IsTerminal() {
		return "", &ValidationError{Field: "status", Value: s, Reason: "invalid status", Cause: ErrInvalidStatus}
	}
	return st, nil
}

// CompetenceType is one of the fixed competences an applicant can claim.
type CompetenceType string

const (
	CompetenceTicketSales   CompetenceType = "ticket sales"
	CompetenceLotteries     CompetenceType = "lotteries"
	CompetenceRollerCoaster CompetenceType = "roller coaster operation"
)

// competence ids as seeded in the competence table
var competenceIDs = map[CompetenceType]int{
	CompetenceTicketSales:   1,
	CompetenceLotteries:     2,
	CompetenceRollerCoaster: 3,
}

// CompetenceTypes returns the known competence types ordered by id.
func CompetenceTypes() []CompetenceType {
	return []CompetenceType{CompetenceTicketSales, CompetenceLotteries, CompetenceRollerCoaster}
}

// ParseCompetenceType maps a wire name to a known competence type.
func ParseCompetenceType(s string) (CompetenceType, error) {
	ct := CompetenceType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := competenceIDs[ct]; !ok {
		return "", &ValidationError{Field: "competenceType", Value: s, Reason: ErrUnknownCompetence.Error(), Cause: ErrUnknownCompetence}
	}
	return ct, nil
}

// CompetenceTypeFromID is the inverse of CompetenceType.ID.
func CompetenceTypeFromID(id int) (CompetenceType, error) {
	for ct, ctID := range competenceIDs {
		if ctID == id {
			return ct, nil
		}
	}
	return "", fmt.Errorf("competence id %d: %w", id, ErrUnknownCompetence)
}

// ID returns the persisted competence id, or 0 when unknown.
func (c CompetenceType) ID() int {
	return competenceIDs[c]
}

// MaxYearsOfExperience is bounded by the numeric(4,2) column.
const MaxYearsOfExperience = 99.99

type CompetenceEntry struct {
	Type              CompetenceType `json:"competenceType"`
	YearsOfExperience float64        `json:"yearsOfExperience"`
}

// AvailabilityPeriod is a closed date interval.
type AvailabilityPeriod struct {
	From Date `json:"from"`
	To   Date `json:"to"`
}

// Application is the authoritative state of one applicant's submission.
type Application struct {
	PersonID     int64                `json:"person_id"`
	Status       ApplicationStatus    `json:"status"`
	Competences  []CompetenceEntry    `json:"competences"`
	Availability []AvailabilityPeriod `json:"availability"`
}

// ApplicationOverview is a row of the recruiter work queue, joined with the applicant.
type ApplicationOverview struct {
	PersonID     int64                `json:"person_id"`
	FirstName    string               `json:"first_name"`
	LastName     string               `json:"last_name"`
	PersonNumber string               `json:"person_number"`
	Email        string               `json:"email"`
	Status       ApplicationStatus    `json:"status"`
	Competences  []CompetenceEntry    `json:"competences"`
	Availability []AvailabilityPeriod `json:"availability"`
}

// TransitionResult is the outcome of a conditional status write.
// When Updated is false, CurrentStatus holds what the store saw instead
// (empty if the applicant has no application).
type TransitionResult struct {
	Updated       bool              `json:"updated"`
	CurrentStatus ApplicationStatus `json:"currentStatus,omitempty"`
}

// CompetenceInput is the wire shape of a competence entry.
type CompetenceInput struct {
	CompetenceType    string  `json:"competenceType" validate:"required,competence_type"`
	YearsOfExperience float64 `json:"competenceTime" validate:"gte=0,lte=99.99"`
}

// AvailabilityInput is the wire shape of an availability period.
type AvailabilityInput struct {
	From string `json:"from" validate:"required,datetime=2006-01-02"`
	To   string `json:"to" validate:"required,datetime=2006-01-02"`
}

// SubmissionInput is the unvalidated application form.
type SubmissionInput struct {
	Competences  []CompetenceInput   `json:"competences" validate:"required,min=1,dive"`
	Availability []AvailabilityInput `json:"availability" validate:"required,min=1,dive"`
}

// Submission is a validated application form, ready to persist.
type Submission struct {
	PersonID     int64
	Competences  []CompetenceEntry
	Availability []AvailabilityPeriod
}

// NewSubmission validates the raw form and converts it to typed values.
func NewSubmission(personID int64, in SubmissionInput) (*Submission, error) {
	if personID <= 0 {
		return nil, NewValidationError("person_id", "person_id must be positive")
	}
	if len(in.Competences) == 0 {
		return nil, NewValidationError("competences", "at least one competence is required")
	}
	if len(in.Availability) == 0 {
		return nil, NewValidationError("availability", "at least one availability period is required")
	}

	sub := &Submission{
		PersonID:     personID,
		Competences:  make([]CompetenceEntry, 0, len(in.Competences)),
		Availability: make([]AvailabilityPeriod, 0, len(in.Availability)),
	}

	for _, c := range in.Competences {
		ct, err := ParseCompetenceType(c.CompetenceType)
		if err != nil {
			return nil, err
		}
		if c.YearsOfExperience < 0 || c.YearsOfExperience > MaxYearsOfExperience {
			return nil, &ValidationError{Field: "competenceTime", Value: fmt.Sprint(c.YearsOfExperience), Reason: "years of experience out of range"}
		}
		sub.Competences = append(sub.Competences, CompetenceEntry{Type: ct, YearsOfExperience: c.YearsOfExperience})
	}

	for _, a := range in.Availability {
		period, err := NewAvailabilityPeriod(a.From, a.To)
		if err != nil {
			return nil, err
		}
		sub.Availability = append(sub.Availability, period)
	}

	return sub, nil
}

// NewAvailabilityPeriod parses both ends and requires to >= from.
func NewAvailabilityPeriod(from, to string) (AvailabilityPeriod, error) {
	f, err := ParseDate(from)
	if err != nil {
		return AvailabilityPeriod{}, &ValidationError{Field: "from", Value: from, Reason: "invalid date", Cause: err}
	}
	t, err := ParseDate(to)
	if err != nil {
		return AvailabilityPeriod{}, &ValidationError{Field: "to", Value: to, Reason: "invalid date", Cause: err}
	}
	if t.Before(f.Time) {
		return AvailabilityPeriod{}, &ValidationError{Field: "to", Value: to, Reason: "availability period ends before it starts"}
	}
	return AvailabilityPeriod{From: f, To: t}, nil
}

// ApplicationRepository is the application status store. Implementations
// must make TransitionStatus a single atomic conditional write and Submit
// all-or-nothing.
type ApplicationRepository interface {
	Submit(ctx context.Context, sub *Submission) error
	// Fetch reads entries, periods and status from one snapshot.
	// found is false when the applicant has never submitted.
	Fetch(ctx context.Context, personID int64) (app *Application, found bool, err error)
	ListUnhandled(ctx context.Context) ([]ApplicationOverview, error)
	TransitionStatus(ctx context.Context, personID int64, target ApplicationStatus) (TransitionResult, error)
}

// SubmitResult is returned to the applicant after a successful submission.
type SubmitResult struct {
	OK       bool  `json:"ok"`
	PersonID int64 `json:"person_id"`
}

// ExportFile is a rendered recruiter export.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ApplicationUsecase defines business logic for applications
type ApplicationUsecase interface {
	// Applicant operations
	Submit(ctx context.Context, personID int64, in SubmissionInput) (*SubmitResult, error)
	Fetch(ctx context.Context, personID int64) (*Application, error)

	// Recruiter operations
	ListUnhandled(ctx context.Context) ([]ApplicationOverview, error)
	TransitionStatus(ctx context.Context, personID int64, status string) (ApplicationStatus, error)
	ExportUnhandled(ctx context.Context, format string) (*ExportFile, error)
}
