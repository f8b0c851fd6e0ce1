//go:build integration

package kafka_test

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jecoplus/lending/internal/domain/event"
	"github.com/jecoplus/lending/internal/infrastructure/kafka"
	"github.com/jecoplus/lending/internal/infrastructure/memory"
	pkgkafka "github.com/jecoplus/lending/pkg/kafka"
	"github.com/jecoplus/lending/pkg/observability"
	"github.com/jecoplus/lending/pkg/testutil"
)

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
}

func TestOutboxRelay_Integration(t *testing.T) {
	brokers := testutil.StartKafka(t)
	const topic = "lending.events.it"
	createTopic(t, brokers[0], topic)

	outbox := memory.NewOutbox(memory.NewStore())
	seed(t, outbox, 3)

	producer := pkgkafka.NewProducer(pkgkafka.Config{Brokers: brokers, ClientID: "lendingd-it"})
	t.Cleanup(func() { _ = producer.Close() })
	relay := kafka.NewOutboxRelay(outbox, producer, kafka.RelayConfig{Topic: topic}, observability.NopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := relay.RelayOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Zero(t, outbox.Pending())

	reader := kafkago.NewReader(kafkago.ReaderConfig{Brokers: brokers, Topic: topic, Partition: 0, MaxBytes: 1 << 20})
	t.Cleanup(func() { _ = reader.Close() })

	for i := 0; i < 3; i++ {
		msg, err := reader.ReadMessage(ctx)
		require.NoError(t, err)
		assert.Equal(t, "loan-1", string(msg.Key))
		headers := map[string]string{}
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, event.TypePaymentReversed, headers["event_type"])
		assert.NotEmpty(t, headers["event_id"])
	}
}
