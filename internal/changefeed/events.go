package changefeed

import "time"

type EventType string

const (
	EventFileIndexed  EventType = "file_indexed"
	EventFileRemoved  EventType = "file_removed"
	EventIndexCleared EventType = "index_cleared"
	EventBatchAborted EventType = "batch_aborted"
)

// Event describes one index mutation.
type Event struct {
	Type       EventType `json:"type"`
	File       string    `json:"file,omitempty"`
	TokenCount int       `json:"token_count,omitempty"`
	Files      int       `json:"files,omitempty"`
	Policy     string    `json:"policy,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Key partitions events by file so per-file ordering survives Kafka
// partitioning. Index-wide events share one key.
func (e Event) Key() string {
	if e.File != "" {
		return e.File
	}
	return "index"
}
