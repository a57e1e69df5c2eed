package revision

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// PostgresStore persists revisions.
//
// Schema:
//
//	CREATE TABLE content_revisions (
//	    id               UUID        PRIMARY KEY,
//	    target_type      TEXT        NOT NULL,
//	    target_id        TEXT        NOT NULL,
//	    revision_data    JSONB       NOT NULL,
//	    revision_comment TEXT,
//	    created_by       TEXT,
//	    created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
//	CREATE INDEX content_revisions_target ON content_revisions (target_type, target_id, created_at DESC);
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an existing database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, rev Revision) error {
	raw, err := json.Marshal(rev.Data)
	if err != nil {
		return fmt.Errorf("encode revision data: %w", err)
	}

	query := `
		INSERT INTO content_revisions (id, target_type, target_id, revision_data, revision_comment, created_by, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7)
	`
	_, err = s.db.ExecContext(ctx, query,
		rev.ID, rev.TargetType, rev.TargetID, raw, rev.Comment, rev.AuthorID, rev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, targetType, targetID string, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query := `
		SELECT id, target_type, target_id, revision_data, COALESCE(revision_comment, ''), COALESCE(created_by, ''), created_at
		FROM content_revisions
		WHERE target_type = $1 AND target_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, query, targetType, targetID, limit)
	if err != nil {
		return nil, fmt.Errorf("query revisions: %w", err)
	}
	defer rows.Close()

	var out []Revision
	for rows.Next() {
		var (
			rev       Revision
			raw       []byte
			createdAt time.Time
		)
		if err := rows.Scan(&rev.ID, &rev.TargetType, &rev.TargetID, &raw, &rev.Comment, &rev.AuthorID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		if err := json.Unmarshal(raw, &rev.Data); err != nil {
			return nil, fmt.Errorf("decode revision data for %s: %w", rev.ID, err)
		}
		rev.CreatedAt = createdAt
		out = append(out, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revisions: %w", err)
	}
	return out, nil
}
