//go:build integration

package changelog_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"atelier/internal/changelog"
	"atelier/pkg/testutil/containers"
)

const sinkTopic = "atelier.changes"

type KafkaSinkSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
	sink     *changelog.KafkaSink
	ctx      context.Context
}

func TestKafkaSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSinkSuite))
}

func (s *KafkaSinkSuite) SetupSuite() {
	s.ctx = context.Background()
	s.redpanda = containers.NewRedpandaContainer(s.T())

	var err error
	s.sink, err = changelog.NewKafkaSink(s.ctx, s.redpanda.Brokers, sinkTopic)
	s.Require().NoError(err)
}

func (s *KafkaSinkSuite) TearDownSuite() {
	if s.sink != nil {
		s.sink.Close()
	}
}

func (s *KafkaSinkSuite) TestSinkCreationIsIdempotent() {
	// A second sink against the same topic must not fail on topic-exists.
	sink, err := changelog.NewKafkaSink(s.ctx, s.redpanda.Brokers, sinkTopic)
	s.Require().NoError(err)
	sink.Close()
}

func (s *KafkaSinkSuite) TestPublishedRecordReachesConsumers() {
	record := changelog.Record{
		ID:         uuid.New(),
		ChangeType: changelog.ChangeContent,
		TargetType: "projects",
		TargetID:   uuid.NewString(),
		NewValue:   map[string]any{"title": "produced"},
		CreatedAt:  time.Now().UTC(),
	}
	s.Require().NoError(s.sink.Publish(s.ctx, record))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Brokers...),
		kgo.ConsumeTopics(sinkTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	ctx, cancel := context.WithTimeout(s.ctx, 15*time.Second)
	defer cancel()

	for {
		fetches := consumer.PollFetches(ctx)
		s.Require().NoError(fetches.Err())
		for _, fetched := range fetches.Records() {
			if string(fetched.Key) != record.TargetType+"/"+record.TargetID {
				continue
			}
			var got changelog.Record
			s.Require().NoError(json.Unmarshal(fetched.Value, &got))
			s.Equal(record.ID, got.ID)
			s.Equal("produced", got.NewValue["title"])
			return
		}
	}
}
