package service

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const testDestination = "0x1111111111111111111111111111111111111111"

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// transientErr mimics a rate-limited or 5xx provider response.
type transientErr struct{ status int }

func (e *transientErr) Error() string       { return fmt.Sprintf("provider returned %d", e.status) }
func (e *transientErr) Temporary() bool     { return true }
func (e *transientErr) HTTPStatusCode() int { return e.status }

// statusErr is a non-retryable provider response.
type statusErr struct{ status int }

func (e *statusErr) Error() string       { return fmt.Sprintf("provider returned %d", e.status) }
func (e *statusErr) Temporary() bool     { return false }
func (e *statusErr) HTTPStatusCode() int { return e.status }
