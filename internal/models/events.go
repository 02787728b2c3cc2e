package models

import "time"

// Ingest event types published to Kafka after storage transactions commit.
const (
	EventNewsIngested   = "NEWS_INGESTED"
	EventPricesIngested = "PRICES_INGESTED"
	EventSocialIngested = "SOCIAL_INGESTED"
	EventBatchCommitted = "BATCH_COMMITTED"
)

// IngestEvent is the message body for downstream consumers interested in
// pipeline progress.
type IngestEvent struct {
	EventType string    `json:"event_type"`
	Provider  string    `json:"provider,omitempty"`
	Count     int       `json:"count,omitempty"`
	Cutoff    string    `json:"cutoff,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
