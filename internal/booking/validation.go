package booking

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// ValidationError represents a field-level validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a list of validation errors.
type ValidationErrors struct {
	Errors []ValidationError `json:"validationErrors"`
}

func (v *ValidationErrors) Error() string {
	var msgs []string
	for _, e := range v.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return strings.Join(msgs, "; ")
}

// Add adds a validation error.
func (v *ValidationErrors) Add(field, message string) {
	v.Errors = append(v.Errors, ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are validation errors.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// validateWindow checks the common start/end constraints. When
// requireFuture is set, both timestamps must be strictly after now.
func validateWindow(errs *ValidationErrors, start, end, now time.Time, requireFuture bool) {
	if start.IsZero() {
		errs.Add("start", "required field missing")
	}
	if end.IsZero() {
		errs.Add("end", "required field missing")
	}
	if start.IsZero() || end.IsZero() {
		return
	}
	if !end.After(start) {
		errs.Add("end", "must be after start")
	}
	if requireFuture {
		if !start.After(now) {
			errs.Add("start", "must be in the future")
		}
		if !end.After(now) {
			errs.Add("end", "must be in the future")
		}
	}
}

func validateGuestEmails(errs *ValidationErrors, emails []string) {
	for _, addr := range emails {
		if strings.TrimSpace(addr) == "" {
			errs.Add("guestEmails", "blank address")
			continue
		}
		if _, err := mail.ParseAddress(addr); err != nil {
			errs.Add("guestEmails", fmt.Sprintf("invalid address %q", addr))
		}
	}
}
