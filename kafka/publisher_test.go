package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_PublishPaymentResolved(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	publisher := NewPublisherWithProducer(producer, "")

	var sent *sarama.ProducerMessage
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		sent = msg
		return nil
	})

	err := publisher.PublishPaymentResolved(context.Background(), PaymentResolvedEvent{
		IntentID:          "intent-1",
		OrderID:           "O1",
		CheckoutRequestID: "ws_CO_1",
		Status:            "succeeded",
		ResultCode:        0,
		Amount:            500,
	})
	require.NoError(t, err)
	require.NotNil(t, sent)

	assert.Equal(t, DefaultTopic, sent.Topic)
	key, err := sent.Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "O1", string(key))

	headers := map[string]string{}
	for _, h := range sent.Headers {
		headers[string(h.Key)] = string(h.Value)
	}
	assert.Equal(t, EventTypePaymentResolved, headers["event_type"])
	assert.NotEmpty(t, headers["event_id"])

	value, err := sent.Value.Encode()
	require.NoError(t, err)
	var decoded PaymentResolvedEvent
	require.NoError(t, json.Unmarshal(value, &decoded))
	assert.Equal(t, headers["event_id"], decoded.EventID)
	assert.Equal(t, EventTypePaymentResolved, decoded.EventType)
	assert.Equal(t, "intent-1", decoded.IntentID)
	assert.False(t, decoded.Timestamp.IsZero())

	require.NoError(t, publisher.Close())
}

func TestPublisher_SendFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	publisher := NewPublisherWithProducer(producer, "payments")
	producer.ExpectSendMessageAndFail(errors.New("broker down"))

	err := publisher.PublishPaymentResolved(context.Background(), PaymentResolvedEvent{IntentID: "intent-1", OrderID: "O1"})
	assert.Error(t, err)
	require.NoError(t, publisher.Close())
}

func TestConsumer_HandleMessage(t *testing.T) {
	c := NewConsumerWithGroup(nil, "test", []string{DefaultTopic})

	var got []PaymentResolvedEvent
	c.RegisterHandler(EventTypePaymentResolved, func(ctx context.Context, event PaymentResolvedEvent) error {
		got = append(got, event)
		return nil
	})

	body, err := json.Marshal(PaymentResolvedEvent{EventID: "e-1", IntentID: "intent-1", Status: "failed"})
	require.NoError(t, err)

	c.HandleMessage(context.Background(), &sarama.ConsumerMessage{
		Topic: DefaultTopic,
		Value: body,
		Headers: []*sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(EventTypePaymentResolved)},
			{Key: []byte("event_id"), Value: []byte("e-1")},
		},
	})
	c.HandleMessage(context.Background(), &sarama.ConsumerMessage{
		Topic:   DefaultTopic,
		Value:   body,
		Headers: []*sarama.RecordHeader{{Key: []byte("event_type"), Value: []byte("other")}},
	})
	c.HandleMessage(context.Background(), &sarama.ConsumerMessage{
		Topic:   DefaultTopic,
		Value:   []byte("{"),
		Headers: []*sarama.RecordHeader{{Key: []byte("event_type"), Value: []byte(EventTypePaymentResolved)}},
	})

	require.Len(t, got, 1)
	assert.Equal(t, "intent-1", got[0].IntentID)
	assert.Equal(t, "failed", got[0].Status)
}
