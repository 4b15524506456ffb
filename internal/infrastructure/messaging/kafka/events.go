// Package kafka carries index-lifecycle events between the ingest pipeline
// and the answer path.  A rebuild of the similarity index publishes an event;
// consumers react by dropping cached answers that may cite stale records.
package kafka

import "time"

// TopicIndexRebuilt announces that the similarity index changed.
const TopicIndexRebuilt = "index.rebuilt"

// IndexRebuiltEvent is the payload on TopicIndexRebuilt.
type IndexRebuiltEvent struct {
	Collection  string    `json:"collection"`
	RecordCount int       `json:"record_count"`
	SkippedRows int       `json:"skipped_rows,omitempty"`
	RebuiltAt   time.Time `json:"rebuilt_at"`
}
