package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldLabels maps struct field names to user-friendly labels
var FieldLabels = map[string]string{
	// Application form
	"Competences":       "Competences",
	"CompetenceType":    "Competence type",
	"YearsOfExperience": "Years of experience",
	"Availability":      "Availability",
	"From":              "Available from",
	"To":                "Available to",

	// Person fields
	"FirstName":      "First name",
	"LastName":       "Last name",
	"Email":          "Email",
	"PersonalNumber": "Personal number",
	"Username":       "Username",
	"Password":       "Password",
	"UpgradeCode":    "Upgrade code",
	"Status":         "Status",
}

// FormatValidationErrors converts validator.ValidationErrors to user-friendly messages
func FormatValidationErrors(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []string{err.Error()}
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, formatSingleError(e))
	}
	return messages
}

func formatSingleError(e validator.FieldError) string {
	label := getFieldLabel(e.StructField())
	param := e.Param()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s: is required", label)

	case "min":
		if e.Kind().String() == "string" {
			return fmt.Sprintf("%s: must be at least %s characters", label, param)
		}
		if e.Kind().String() == "slice" {
			return fmt.Sprintf("%s: must contain at least %s item(s)", label, param)
		}
		return fmt.Sprintf("%s: must be at least %s", label, param)

	case "max":
		if e.Kind().String() == "string" {
			return fmt.Sprintf("%s: must be at most %s characters", label, param)
		}
		return fmt.Sprintf("%s: must be at most %s", label, param)

	case "gte":
		return fmt.Sprintf("%s: must be %s or more", label, param)

	case "lte":
		return fmt.Sprintf("%s: must be %s or less", label, param)

	case "email":
		return fmt.Sprintf("%s: invalid email format", label)

	case "datetime":
		return fmt.Sprintf("%s: must be a date in YYYY-MM-DD format", label)

	case "competence_type":
		return fmt.Sprintf("%s: unknown competence type", label)

	case "personal_number":
		return fmt.Sprintf("%s: must be in YYYYMMDD-XXXX format", label)

	case "gtefield":
		return fmt.Sprintf("%s: must not be before %s", label, getFieldLabel(param))

	case "oneof":
		return fmt.Sprintf("%s: must be one of: %s", label, strings.ReplaceAll(param, " ", ", "))

	default:
		return fmt.Sprintf("%s: failed validation (%s)", label, e.Tag())
	}
}

func getFieldLabel(fieldName string) string {
	if label, ok := FieldLabels[fieldName]; ok {
		return label
	}
	return formatCamelCase(fieldName)
}

// formatCamelCase converts CamelCase to spaced words
func formatCamelCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune(' ')
		}
		result.WriteRune(r)
	}
	return result.String()
}
