package validation

import (
	"regexp"

	"recruitment-backend/internal/domain"

	"github.com/go-playground/validator/v10"
)

// Regex patterns
var (
	// Swedish personal identity number, YYYYMMDD-XXXX
	personalNumberRegex = regexp.MustCompile(`^\d{8}-\d{4}$`)
)

// New returns a validator with the custom rules registered.
func New() *validator.Validate {
	v := validator.New()
	RegisterValidators(v)
	return v
}

// RegisterValidators registers custom validators to the validator instance
func RegisterValidators(v *validator.Validate) {
	_ = v.RegisterValidation("competence_type", CompetenceType)
	_ = v.RegisterValidation("personal_number", PersonalNumber)
	v.RegisterStructValidation(AvailabilityRange, domain.AvailabilityInput{})
}

// CompetenceType accepts the known competence names, case-insensitively
func CompetenceType(fl validator.FieldLevel) bool {
	_, err := domain.ParseCompetenceType(fl.Field().String())
	return err == nil
}

// PersonalNumber validates the YYYYMMDD-XXXX shape
func PersonalNumber(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true // use required if needed
	}
	return personalNumberRegex.MatchString(val)
}

// AvailabilityRange reports a period whose end is before its start.
// Unparseable dates are left to the datetime tag.
func AvailabilityRange(sl validator.StructLevel) {
	in := sl.Current().Interface().(domain.AvailabilityInput)
	from, err := domain.ParseDate(in.From)
	if err != nil {
		return
	}
	to, err := domain.ParseDate(in.To)
	if err != nil {
		return
	}
	if to.Before(from.Time) {
		sl.ReportError(in.To, "to", "To", "gtefield", "From")
	}
}
