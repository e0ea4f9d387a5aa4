package domain

import (
	"encoding/json"
	"time"
)

type OutboxEvent struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"created_at"`
	Attempts      int             `json:"attempts"`
	Topic         string          `json:"topic"`
}

// MaxAttempts bounds how often a failing event is retried before the
// worker stops picking it up.
const MaxAttempts = 10
