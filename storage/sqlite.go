package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const timeLayout = "2006-01-02 15:04:05"

type SQLiteHistoryStorage struct {
	db *sql.DB
}

var _ Interface = &SQLiteHistoryStorage{}

func NewSQLiteStorage(dbPath string) (*SQLiteHistoryStorage, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), os.ModePerm); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db at %s: %w", dbPath, err)
	}

	if _, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS history (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            memory_id TEXT NOT NULL,
            event TEXT NOT NULL,
            old_value TEXT NULL,
            new_value TEXT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_memory_id ON history (memory_id);
    `); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history table: %w", err)
	}

	return &SQLiteHistoryStorage{db: db}, nil
}

func (s *SQLiteHistoryStorage) SaveHistory(ctx context.Context, entry Record) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history (memory_id, event, old_value, new_value, created_at)
		 VALUES (?, ?, ?, ?, datetime(?))`,
		entry.MemoryID, entry.Event, entry.OldValue, entry.NewValue, entry.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("save history for %s: %w", entry.MemoryID, err)
	}
	return nil
}

func (s *SQLiteHistoryStorage) GetHistoryByMemoryID(ctx context.Context, memoryID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, memory_id, event, old_value, new_value, created_at
		 FROM history
		 WHERE memory_id = ?
		 ORDER BY id ASC`,
		memoryID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []Record
	for rows.Next() {
		var entry Record
		var createdAt string
		if err = rows.Scan(&entry.ID, &entry.MemoryID, &entry.Event, &entry.OldValue, &entry.NewValue, &createdAt); err != nil {
			return nil, err
		}
		entry.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		history = append(history, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return history, nil
}

func (s *SQLiteHistoryStorage) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM history`); err != nil {
		return fmt.Errorf("reset history: %w", err)
	}
	return nil
}

func (s *SQLiteHistoryStorage) Close() error {
	return s.db.Close()
}
