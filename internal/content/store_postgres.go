package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"atelier/pkg/platform/sentinel"
)

// PostgresStore persists entities in a single content_entities table keyed by
// (topic, id) with a JSONB payload.
//
// Schema:
//
//	CREATE TABLE content_entities (
//	    topic      TEXT        NOT NULL,
//	    id         UUID        NOT NULL,
//	    payload    JSONB       NOT NULL DEFAULT '{}',
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    PRIMARY KEY (topic, id)
//	);
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an existing database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Fetch(ctx context.Context, topic Topic, filter Filter) ([]Entity, error) {
	query := `
		SELECT id, payload, updated_at
		FROM content_entities
		WHERE topic = $1
		ORDER BY updated_at DESC, id
	`
	args := []any{string(topic)}
	if !filter.IsZero() {
		query = `
			SELECT id, payload, updated_at
			FROM content_entities
			WHERE topic = $1 AND payload ->> $2 = $3
			ORDER BY updated_at DESC, id
		`
		args = append(args, filter.Field, fmt.Sprintf("%v", filter.Equals))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query content entities: %w", err)
	}
	defer rows.Close()

	var out []Entity
	for rows.Next() {
		var (
			id        uuid.UUID
			raw       []byte
			updatedAt time.Time
		)
		if err := rows.Scan(&id, &raw, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan content entity: %w", err)
		}
		payload := map[string]any{}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("decode payload for %s/%s: %w", topic, id, err)
		}
		out = append(out, Entity{ID: id, Topic: topic, Payload: payload, UpdatedAt: updatedAt})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content entities: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, entity Entity) (Entity, error) {
	if entity.ID == uuid.Nil {
		entity.ID = uuid.New()
	}
	raw, err := json.Marshal(entity.Payload)
	if err != nil {
		return Entity{}, fmt.Errorf("encode payload: %w", err)
	}

	query := `
		INSERT INTO content_entities (topic, id, payload, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (topic, id)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()
		RETURNING updated_at
	`
	if err := s.db.QueryRowContext(ctx, query, string(entity.Topic), entity.ID, raw).
		Scan(&entity.UpdatedAt); err != nil {
		return Entity{}, fmt.Errorf("upsert content entity: %w", err)
	}
	return entity, nil
}

func (s *PostgresStore) Delete(ctx context.Context, topic Topic, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM content_entities WHERE topic = $1 AND id = $2`,
		string(topic), id,
	)
	if err != nil {
		return fmt.Errorf("delete content entity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete content entity: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("entity %s/%s: %w", topic, id, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context, topic Topic) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM content_entities WHERE topic = $1`, string(topic),
	).Scan(&n)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("count content entities: %w", err)
	}
	return n, nil
}
