package dto

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var safeStringRe = regexp.MustCompile(`^[a-zA-Z0-9_\-\.:@]+$`)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("safe_id", validateSafeID)
		_ = v.RegisterValidation("command_text", validateCommandText)
	}
}

// validateSafeID allows alphanumeric, underscore, dash, dot, colon and @.
func validateSafeID(fl validator.FieldLevel) bool {
	return safeStringRe.MatchString(fl.Field().String())
}

// validateCommandText rejects blank text and control characters other
// than ordinary whitespace.
func validateCommandText(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if strings.TrimSpace(s) == "" {
		return false
	}
	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			return false
		}
	}
	return true
}

// IsSafeID reports whether s is usable as a user id or idempotency key.
func IsSafeID(s string) bool {
	return len(s) <= 128 && safeStringRe.MatchString(s)
}
