package types

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// UsageFactRow mirrors the usage_facts BigQuery schema. One row per usage
// decision or restock; decimal amounts travel as strings to keep NUMERIC
// precision intact.
type UsageFactRow struct {
	EventID       string             `bigquery:"event_id"`
	EventType     string             `bigquery:"event_type"`
	OccurredAt    time.Time          `bigquery:"occurred_at"`
	UsageRecordID *string            `bigquery:"usage_record_id"`
	ServiceID     *string            `bigquery:"service_id"`
	ItemID        *string            `bigquery:"item_id"`
	TechnicianID  *string            `bigquery:"technician_id"`
	Amount        *string            `bigquery:"amount"`
	Units         *int64             `bigquery:"units"`
	Breakdown     cbigquery.NullJSON `bigquery:"breakdown"`
	Payload       cbigquery.NullJSON `bigquery:"payload"`
}
