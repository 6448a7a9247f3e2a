package domain

import (
	"encoding/json"
	"time"
)

// IdempotentResponse is a stored command response replayed for a repeated
// Idempotency-Key.
type IdempotentResponse struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
	CreatedAt  time.Time       `json:"created_at"`
}

// BuildIdempotencyKey constructs the standard key format "user_id:key".
func BuildIdempotencyKey(userID, key string) string {
	return userID + ":" + key
}
