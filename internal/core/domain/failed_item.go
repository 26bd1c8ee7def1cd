package domain

import (
	"encoding/json"
	"time"
)

// FailedItem is a batch input that failed and is kept for later replay.
type FailedItem struct {
	ID         string          `json:"id"`
	Batch      string          `json:"batch"`
	Payload    json.RawMessage `json:"payload"`
	Kind       string          `json:"kind"`
	Error      string          `json:"error_msg"`
	HTTPStatus int             `json:"http_status,omitempty"`
	Retryable  bool            `json:"retryable"`
	CreatedAt  time.Time       `json:"created_at"`
}
