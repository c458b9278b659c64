package validation

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Validator collects every problem found in a block of settings so that an
// operator sees all of them in one log line instead of fixing one per restart.
type Validator struct {
	errors []error
	prefix string
}

// NewValidator creates a validator without a message prefix
func NewValidator() *Validator {
	return &Validator{}
}

// NewValidatorWithPrefix creates a validator whose messages start with prefix,
// usually the adapter or settings section being checked
func NewValidatorWithPrefix(prefix string) *Validator {
	return &Validator{prefix: prefix}
}

// RequireString fails for empty or blank values
func (v *Validator) RequireString(value, name string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.fail("%s is required", name)
	}
	return v
}

// RequireOneOf fails unless value is exactly one of allowed
func (v *Validator) RequireOneOf(value string, allowed []string, name string) *Validator {
	if value == "" {
		v.fail("%s is required", name)
		return v
	}
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	v.fail("%s must be one of: %s", name, strings.Join(allowed, ", "))
	return v
}

// RequirePort fails unless value is a TCP port number
func (v *Validator) RequirePort(value, name string) *Validator {
	return v.RequireIntRange(value, name, 1, 65535)
}

// RequireIntRange fails unless value parses as an integer in [min, max]
func (v *Validator) RequireIntRange(value, name string, min, max int) *Validator {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < min || n > max {
		v.fail("%s must be a number between %d and %d", name, min, max)
	}
	return v
}

// RequireNonNegativeFloat fails unless value parses as a float >= 0
func (v *Validator) RequireNonNegativeFloat(value, name string) *Validator {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || f < 0 {
		v.fail("%s must be a non-negative number", name)
	}
	return v
}

// RequireDuration fails unless value is a Go duration. Zero is accepted only
// with allowZero, where it conventionally switches a feature off.
func (v *Validator) RequireDuration(value, name string, allowZero bool) *Validator {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	switch {
	case err != nil:
		v.fail("%s must be a valid duration (e.g. '10s', '1m')", name)
	case d < 0, d == 0 && !allowZero:
		v.fail("%s must be positive", name)
	}
	return v
}

// Validate records the error returned by fn, if any
func (v *Validator) Validate(fn func() error) *Validator {
	if err := fn(); err != nil {
		v.errors = append(v.errors, err)
	}
	return v
}

// ValidateIf runs fn only when condition holds
func (v *Validator) ValidateIf(condition bool, fn func() error) *Validator {
	if condition {
		return v.Validate(fn)
	}
	return v
}

func (v *Validator) fail(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if v.prefix != "" {
		msg = v.prefix + ": " + msg
	}
	v.errors = append(v.errors, fmt.Errorf("%s", msg))
}

// HasErrors reports whether anything failed
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns the collected errors in the order they were found
func (v *Validator) Errors() []error {
	return v.errors
}

// Error joins the collected errors, or returns nil
func (v *Validator) Error() error {
	switch len(v.errors) {
	case 0:
		return nil
	case 1:
		return v.errors[0]
	}

	parts := make([]string, len(v.errors))
	for i, err := range v.errors {
		parts[i] = err.Error()
	}
	return fmt.Errorf("validation failed: %s", strings.Join(parts, "; "))
}
