package domain

import "time"

// OutcomeRecord is a journal entry for one settled call invocation.
type OutcomeRecord struct {
	InvocationID string    `json:"invocation_id"         db:"invocation_id"`
	Name         string    `json:"name"                  db:"name"`
	Status       string    `json:"status"                db:"status"`
	Disposition  string    `json:"disposition"           db:"disposition"`
	Kind         string    `json:"kind,omitempty"        db:"kind"`
	Message      string    `json:"message,omitempty"     db:"message"`
	HTTPStatus   int       `json:"http_status,omitempty" db:"http_status"`
	Attempts     int       `json:"attempts"              db:"attempts"`
	StartedAt    time.Time `json:"started_at"            db:"started_at"`
	DurationMs   int64     `json:"duration_ms"           db:"duration_ms"`
}

// Failed reports whether the invocation ended in a classified failure.
func (o *OutcomeRecord) Failed() bool {
	return o.Kind != ""
}
