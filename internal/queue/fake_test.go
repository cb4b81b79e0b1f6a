package queue

import (
	"context"
	"testing"
	"time"
)

func TestFakeLogPreservesFIFOPerTopic(t *testing.T) {
	ctx := context.Background()
	log := NewFakeLog()
	c := log.Consumer(RequestTopic)

	for i := 0; i < 5; i++ {
		if err := log.Publish(ctx, RequestTopic, "sku-1", []byte{byte(i)}); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	batch, err := c.PollBatch(ctx, 10)
	if err != nil {
		t.Fatalf("PollBatch: %v", err)
	}
	if len(batch.Records) != 5 {
		t.Fatalf("expected 5 records, got %d", len(batch.Records))
	}
	for i, rec := range batch.Records {
		if rec.Value[0] != byte(i) {
			t.Fatalf("record %d out of order: got %v", i, rec.Value)
		}
	}
}

func TestFakeLogPollBatchBlocksUntilPublish(t *testing.T) {
	log := NewFakeLog()
	c := log.Consumer(RequestTopic)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan Batch, 1)
	go func() {
		b, err := c.PollBatch(ctx, 10)
		if err != nil {
			return
		}
		done <- b
	}()

	time.Sleep(20 * time.Millisecond)
	if err := log.Publish(context.Background(), RequestTopic, "sku-1", []byte("hello")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case b := <-done:
		if len(b.Records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(b.Records))
		}
	case <-time.After(time.Second):
		t.Fatal("PollBatch did not unblock after Publish")
	}
}

func TestFakeConsumerAckAdvancesOffset(t *testing.T) {
	ctx := context.Background()
	log := NewFakeLog()
	c := log.Consumer(RequestTopic)

	for i := 0; i < 3; i++ {
		_ = log.Publish(ctx, RequestTopic, "sku-1", []byte{byte(i)})
	}

	first, err := c.PollBatch(ctx, 2)
	if err != nil {
		t.Fatalf("PollBatch: %v", err)
	}
	if len(first.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(first.Records))
	}
	if err := c.Ack(ctx, first); err != nil {
		t.Fatalf("Ack: %v", err)
	}

	second, err := c.PollBatch(ctx, 2)
	if err != nil {
		t.Fatalf("PollBatch: %v", err)
	}
	if len(second.Records) != 1 {
		t.Fatalf("expected 1 remaining record, got %d", len(second.Records))
	}
}

func TestFakeLogClosePublishFails(t *testing.T) {
	log := NewFakeLog()
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := log.Publish(context.Background(), RequestTopic, "sku-1", []byte("x")); err == nil {
		t.Fatal("expected Publish to fail after Close")
	}
}
