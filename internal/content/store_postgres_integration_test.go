//go:build integration

package content_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"atelier/internal/content"
	"atelier/pkg/platform/sentinel"
	"atelier/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *content.PostgresStore
	ctx      context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = content.NewPostgresStore(s.postgres.DB)
	s.ctx = context.Background()
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "content_entities"))
}

func (s *PostgresStoreSuite) TestUpsertFetchRoundTrip() {
	entity, err := s.store.Upsert(s.ctx, content.Entity{
		Topic: content.TopicProjects,
		Payload: map[string]any{
			"title":  "JSONB round trip",
			"tags":   []any{"go", "postgres"},
			"weight": float64(3),
		},
	})
	s.Require().NoError(err)
	s.NotEqual(uuid.Nil, entity.ID)
	s.False(entity.UpdatedAt.IsZero())

	entities, err := s.store.Fetch(s.ctx, content.TopicProjects, content.Filter{})
	s.Require().NoError(err)
	s.Require().Len(entities, 1)
	s.Equal("JSONB round trip", entities[0].Payload["title"])
	s.Equal([]any{"go", "postgres"}, entities[0].Payload["tags"])
	s.Equal(float64(3), entities[0].Payload["weight"])
}

func (s *PostgresStoreSuite) TestUpsertReplacesOnConflict() {
	id := uuid.New()
	_, err := s.store.Upsert(s.ctx, content.Entity{
		ID: id, Topic: content.TopicSkills, Payload: map[string]any{"name": "v1"},
	})
	s.Require().NoError(err)

	_, err = s.store.Upsert(s.ctx, content.Entity{
		ID: id, Topic: content.TopicSkills, Payload: map[string]any{"name": "v2"},
	})
	s.Require().NoError(err)

	entities, err := s.store.Fetch(s.ctx, content.TopicSkills, content.Filter{})
	s.Require().NoError(err)
	s.Require().Len(entities, 1)
	s.Equal("v2", entities[0].Payload["name"])
}

func (s *PostgresStoreSuite) TestFetchFilter() {
	_, err := s.store.Upsert(s.ctx, content.Entity{
		Topic: content.TopicSections, Payload: map[string]any{"title": "hero", "is_visible": true},
	})
	s.Require().NoError(err)
	_, err = s.store.Upsert(s.ctx, content.Entity{
		Topic: content.TopicSections, Payload: map[string]any{"title": "about", "is_visible": false},
	})
	s.Require().NoError(err)

	entities, err := s.store.Fetch(s.ctx, content.TopicSections, content.Filter{Field: "is_visible", Equals: true})
	s.Require().NoError(err)
	s.Require().Len(entities, 1)
	s.Equal("hero", entities[0].Payload["title"])
}

func (s *PostgresStoreSuite) TestDelete() {
	entity, err := s.store.Upsert(s.ctx, content.Entity{
		Topic: content.TopicProjects, Payload: map[string]any{"title": "doomed"},
	})
	s.Require().NoError(err)

	s.Require().NoError(s.store.Delete(s.ctx, content.TopicProjects, entity.ID))

	err = s.store.Delete(s.ctx, content.TopicProjects, entity.ID)
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestCount() {
	for range 3 {
		_, err := s.store.Upsert(s.ctx, content.Entity{
			Topic: content.TopicMedia, Payload: map[string]any{"name": "img", "url": "https://example.com/i.png"},
		})
		s.Require().NoError(err)
	}

	n, err := s.store.Count(s.ctx, content.TopicMedia)
	s.Require().NoError(err)
	s.Equal(3, n)

	n, err = s.store.Count(s.ctx, content.TopicProjects)
	s.Require().NoError(err)
	s.Equal(0, n)
}
