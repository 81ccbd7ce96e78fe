package queue

import (
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/domain"
)

func TestNewPublishing(t *testing.T) {
	msg, err := newPublishing(domain.OptimizationJob{RunID: 42})
	require.NoError(t, err)

	require.Equal(t, "application/json", msg.ContentType)
	require.Equal(t, amqp.Persistent, msg.DeliveryMode)
	require.False(t, msg.Timestamp.IsZero())
	require.JSONEq(t, `{"runID":42}`, string(msg.Body))

	_, err = uuid.Parse(msg.MessageId)
	require.NoError(t, err)

	other, err := newPublishing(domain.OptimizationJob{RunID: 42})
	require.NoError(t, err)
	require.NotEqual(t, msg.MessageId, other.MessageId)
}

func TestNewPublishingRejectsUnencodableValue(t *testing.T) {
	_, err := newPublishing(make(chan int))
	require.Error(t, err)
}

func TestDecode(t *testing.T) {
	msg, err := newPublishing(domain.MailMessage{
		Type: domain.MailTypeRunFinished,
		To:   "someone@example.com",
		Data: domain.RunFinishedMailData{RunID: 7, Status: domain.RunStatusFinished},
	})
	require.NoError(t, err)

	mail, err := Decode[domain.MailMessage](msg.Body)
	require.NoError(t, err)
	require.Equal(t, domain.MailTypeRunFinished, mail.Type)
	require.Equal(t, "someone@example.com", mail.To)

	job, err := Decode[domain.OptimizationJob]([]byte(`{"runID":9}`))
	require.NoError(t, err)
	require.EqualValues(t, 9, job.RunID)

	_, err = Decode[domain.OptimizationJob]([]byte(`not json`))
	require.Error(t, err)
}
