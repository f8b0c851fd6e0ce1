package testutil

import (
	"context"
	"testing"

	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

// StartKafka runs a single-node broker and returns its bootstrap addresses.
func StartKafka(t *testing.T) []string {
	t.Helper()
	ctx := context.Background()

	container, err := tckafka.Run(ctx,
		"confluentinc/confluent-local:7.6.1",
		tckafka.WithClusterID("lending-test"),
	)
	if err != nil {
		t.Fatalf("start kafka container: %v", err)
	}
	t.Cleanup(func() { terminate(t, container) })

	brokers, err := container.Brokers(ctx)
	if err != nil {
		t.Fatalf("kafka brokers: %v", err)
	}
	return brokers
}
