package changelog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PostgresStore persists change records.
//
// Schema:
//
//	CREATE TABLE live_changes (
//	    id          UUID        PRIMARY KEY,
//	    change_type TEXT        NOT NULL,
//	    target_type TEXT        NOT NULL,
//	    target_id   TEXT        NOT NULL,
//	    old_value   JSONB,
//	    new_value   JSONB,
//	    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an existing database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, record Record) error {
	oldRaw, newRaw, err := encodeValues(record)
	if err != nil {
		return err
	}

	// Idempotent on the record ID so outbox retries cannot double-append.
	query := `
		INSERT INTO live_changes (id, change_type, target_type, target_id, old_value, new_value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = s.db.ExecContext(ctx, query,
		record.ID,
		string(record.ChangeType),
		record.TargetType,
		record.TargetID,
		oldRaw,
		newRaw,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert change record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query := `
		SELECT id, change_type, target_type, target_id, old_value, new_value, created_at
		FROM live_changes
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query change records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			record     Record
			changeType string
			oldRaw     []byte
			newRaw     []byte
			createdAt  time.Time
		)
		if err := rows.Scan(&record.ID, &changeType, &record.TargetType, &record.TargetID, &oldRaw, &newRaw, &createdAt); err != nil {
			return nil, fmt.Errorf("scan change record: %w", err)
		}
		record.ChangeType = ChangeType(changeType)
		record.CreatedAt = createdAt
		if len(oldRaw) > 0 {
			if err := json.Unmarshal(oldRaw, &record.OldValue); err != nil {
				return nil, fmt.Errorf("decode old value for %s: %w", record.ID, err)
			}
		}
		if len(newRaw) > 0 {
			if err := json.Unmarshal(newRaw, &record.NewValue); err != nil {
				return nil, fmt.Errorf("decode new value for %s: %w", record.ID, err)
			}
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate change records: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM live_changes`); err != nil {
		return fmt.Errorf("clear change records: %w", err)
	}
	return nil
}

func encodeValues(record Record) (oldRaw, newRaw []byte, err error) {
	if record.OldValue != nil {
		if oldRaw, err = json.Marshal(record.OldValue); err != nil {
			return nil, nil, fmt.Errorf("encode old value: %w", err)
		}
	}
	if record.NewValue != nil {
		if newRaw, err = json.Marshal(record.NewValue); err != nil {
			return nil, nil, fmt.Errorf("encode new value: %w", err)
		}
	}
	if record.ID == uuid.Nil {
		return nil, nil, fmt.Errorf("change record missing id")
	}
	return oldRaw, newRaw, nil
}
