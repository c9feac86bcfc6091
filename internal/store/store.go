package store

import "time"

// Store is the persistence interface for notification history.
// Defined at the consumer side per Go conventions.
type Store interface {
	Insert(r *NotificationRecord) error
	List(f Filter) ([]NotificationRecord, error)
	CountByKind(since time.Time) (map[string]int, error)
	Prune(olderThan time.Time) (int64, error)
	Close() error
}

// NotificationRecord is one persisted detection.
type NotificationRecord struct {
	ID         int64     `json:"id"`
	Kind       string    `json:"kind"`
	RawLine    string    `json:"raw_line,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

// Filter specifies criteria for listing history.
type Filter struct {
	Kind  string
	Since time.Time
	Limit int
}
