//go:build integration

package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "votedeck/pkg/platform/audit"
	auditpostgres "votedeck/pkg/platform/audit/store/postgres"
	"votedeck/pkg/testutil/containers"
)

type RelaySuite struct {
	suite.Suite
	pg     *containers.PostgresContainer
	broker string
	outbox *auditpostgres.Store
}

func (s *RelaySuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.broker = containers.NewRedpandaContainer(s.T()).Broker
	s.outbox = auditpostgres.New(s.pg.DB)
}

func (s *RelaySuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateAll(context.Background()))
}

func TestRelaySuite(t *testing.T) {
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) TestOutboxRowsReachTheTopic() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	topic := "votedeck.audit.test"

	event := audit.Event{
		Action:    audit.ActionVoteSubmitted,
		Timestamp: time.Now().UTC(),
		Subject:   "voter-1",
		RequestID: "req-1",
		ClientIP:  "10.0.0.1",
	}
	s.Require().NoError(s.outbox.Append(ctx, event))

	relay, err := NewRelay([]string{s.broker}, topic, s.outbox, WithBatchSize(10))
	s.Require().NoError(err)
	defer relay.Close()

	s.Require().NoError(relay.EnsureTopic(ctx))
	s.Require().NoError(relay.RunOnce(ctx))

	s.Run("row is marked published", func() {
		pending, err := s.outbox.ListPending(ctx, 10)
		s.Require().NoError(err)
		s.Empty(pending)
	})

	s.Run("record is consumable", func() {
		consumer, err := kgo.NewClient(
			kgo.SeedBrokers(s.broker),
			kgo.ConsumeTopics(topic),
			kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		)
		s.Require().NoError(err)
		defer consumer.Close()

		fetches := consumer.PollFetches(ctx)
		s.Require().NoError(fetches.Err())

		records := fetches.Records()
		s.Require().Len(records, 1)
		s.Equal(string(audit.ActionVoteSubmitted), string(records[0].Key))
		s.Contains(string(records[0].Value), "voter-1")
	})

	s.Run("a second cycle publishes nothing new", func() {
		s.Require().NoError(relay.RunOnce(ctx))
		pending, err := s.outbox.ListPending(ctx, 10)
		s.Require().NoError(err)
		s.Empty(pending)
	})
}
