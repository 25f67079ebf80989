package storage

import (
	"context"
	"time"
)

type Interface interface {
	SaveHistory(ctx context.Context, entry Record) error
	GetHistoryByMemoryID(ctx context.Context, memoryID string) ([]Record, error)
	Reset(ctx context.Context) error
	Close() error
}

// Record is one mutation of a memory: add, update or delete.
type Record struct {
	ID        int64     `json:"id" db:"id"`
	MemoryID  string    `json:"memory_id" db:"memory_id"`
	Event     string    `json:"event" db:"event"`
	OldValue  string    `json:"old_value" db:"old_value"`
	NewValue  string    `json:"new_value" db:"new_value"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

const (
	EventAdd    = "add"
	EventUpdate = "update"
	EventDelete = "delete"
)
