package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civic/internal/notification/models"
	id "civic/pkg/domain"
)

type recordingProducer struct {
	key     string
	value   []byte
	headers map[string]string
	err     error
}

func (p *recordingProducer) Publish(_ context.Context, key string, value []byte, headers map[string]string) error {
	p.key, p.value, p.headers = key, value, headers
	return p.err
}

func TestKafkaPublish(t *testing.T) {
	p := &recordingProducer{}
	n := models.Draft{
		UserID: id.UserID(uuid.New()),
		Type:   models.TypeVerificationApproved,
		Title:  "Identity verification approved",
	}.Build(time.Now().UTC())

	require.NoError(t, NewKafka(p).Publish(context.Background(), n))
	assert.Equal(t, n.UserID.String(), p.key)
	assert.Equal(t, "identity_verification_approved", p.headers["type"])
	assert.Equal(t, n.ID, p.headers["notification_id"])

	var decoded models.Notification
	require.NoError(t, json.Unmarshal(p.value, &decoded))
	assert.Equal(t, n.Title, decoded.Title)
	assert.Equal(t, n.UserID, decoded.UserID)
}

func TestKafkaPublish_PropagatesError(t *testing.T) {
	p := &recordingProducer{err: errors.New("broker down")}
	n := models.Draft{UserID: id.UserID(uuid.New()), Type: models.TypeEmailVerified, Title: "t"}.Build(time.Now())

	assert.ErrorContains(t, NewKafka(p).Publish(context.Background(), n), "broker down")
}
