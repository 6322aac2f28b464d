//go:build integration

package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"civic/internal/platform/config"
	"civic/pkg/testutil/containers"
)

func TestProducer_PublishesToBroker(t *testing.T) {
	broker := containers.GetManager().GetRedpanda(t).Broker
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	topic := "civic.notifications.it"
	p, err := New(config.KafkaConfig{Brokers: []string{broker}, Topic: topic})
	require.NoError(t, err)
	defer p.Close(ctx)

	require.NoError(t, p.EnsureTopic(ctx, 1, 1))
	// a second call finds the topic already there
	require.NoError(t, p.EnsureTopic(ctx, 1, 1))

	require.NoError(t, p.Publish(ctx, "user-1", []byte(`{"type":"email_verified"}`), map[string]string{
		"type": "email_verified",
	}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.Empty(t, fetches.Errors())
	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "user-1", string(records[0].Key))
	assert.JSONEq(t, `{"type":"email_verified"}`, string(records[0].Value))
	require.Len(t, records[0].Headers, 1)
	assert.Equal(t, "type", records[0].Headers[0].Key)
}
