package validation

import (
	"testing"

	"recruitment-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() domain.SubmissionInput {
	return domain.SubmissionInput{
		Competences:  []domain.CompetenceInput{{CompetenceType: "Lotteries", YearsOfExperience: 3.5}},
		Availability: []domain.AvailabilityInput{{From: "2026-03-01", To: "2026-03-31"}},
	}
}

func TestSubmissionInputValidation(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		mutate  func(in *domain.SubmissionInput)
		wantMsg string
	}{
		{"valid", func(in *domain.SubmissionInput) {}, ""},
		{"no competences", func(in *domain.SubmissionInput) { in.Competences = nil }, "Competences: is required"},
		{"empty availability", func(in *domain.SubmissionInput) { in.Availability = []domain.AvailabilityInput{} }, "Availability: must contain at least 1 item(s)"},
		{"unknown competence", func(in *domain.SubmissionInput) { in.Competences[0].CompetenceType = "juggling" }, "Competence type: unknown competence type"},
		{"negative years", func(in *domain.SubmissionInput) { in.Competences[0].YearsOfExperience = -1 }, "Years of experience: must be 0 or more"},
		{"too many years", func(in *domain.SubmissionInput) { in.Competences[0].YearsOfExperience = 100 }, "Years of experience: must be 99.99 or less"},
		{"bad date", func(in *domain.SubmissionInput) { in.Availability[0].From = "01/03/2026" }, "Available from: must be a date in YYYY-MM-DD format"},
		{"reversed period", func(in *domain.SubmissionInput) { in.Availability[0].To = "2026-02-01" }, "Available to: must not be before Available from"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			err := v.Struct(in)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, FormatValidationErrors(err), tt.wantMsg)
		})
	}
}

func TestPersonalNumber(t *testing.T) {
	v := New()
	type form struct {
		PersonalNumber string `validate:"personal_number"`
	}

	assert.NoError(t, v.Struct(form{PersonalNumber: "19900101-1234"}))
	assert.NoError(t, v.Struct(form{}))

	err := v.Struct(form{PersonalNumber: "900101-1234"})
	require.Error(t, err)
	assert.Equal(t, []string{"Personal number: must be in YYYYMMDD-XXXX format"}, FormatValidationErrors(err))
}
