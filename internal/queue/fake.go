package queue

import (
	"context"
	"sync"
)

// FakeLog is an in-memory stand-in for a partitioned log. It preserves
// FIFO order within a key, the one ordering property spec §5 requires
// ("Within a sku_id: strict FIFO of the user-visible outcomes"), without
// needing a broker. Multiple FakeConsumer handles can share one FakeLog
// to model multiple topics feeding one partitioned worker.
type FakeLog struct {
	mu      sync.Mutex
	records map[string][]Record // topic -> ordered records, all keys interleaved in publish order
	notify  chan struct{}       // closed and replaced every time state changes
	closed  bool
}

func NewFakeLog() *FakeLog {
	return &FakeLog{
		records: make(map[string][]Record),
		notify:  make(chan struct{}),
	}
}

// wake closes the current notify channel (waking every blocked poller)
// and installs a fresh one. Callers must hold l.mu.
func (l *FakeLog) wake() {
	close(l.notify)
	l.notify = make(chan struct{})
}

func (l *FakeLog) Publish(_ context.Context, topic, key string, value []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return context.Canceled
	}
	l.records[topic] = append(l.records[topic], Record{Key: key, Value: value})
	l.wake()
	return nil
}

func (l *FakeLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.wake()
	return nil
}

// Consumer returns a handle that drains topic from the position it was
// last Acked, blocking in PollBatch until at least one record is
// available or the context is done.
func (l *FakeLog) Consumer(topic string) *FakeConsumer {
	return &FakeConsumer{log: l, topic: topic}
}

type FakeConsumer struct {
	log    *FakeLog
	topic  string
	offset int
}

func (c *FakeConsumer) PollBatch(ctx context.Context, maxRecords int) (Batch, error) {
	for {
		c.log.mu.Lock()
		all := c.log.records[c.topic]
		if len(all) > c.offset || c.log.closed {
			end := c.offset + maxRecords
			if end > len(all) {
				end = len(all)
			}
			out := append([]Record(nil), all[c.offset:end]...)
			c.log.mu.Unlock()
			return Batch{Records: out}, nil
		}
		wait := c.log.notify
		c.log.mu.Unlock()

		select {
		case <-ctx.Done():
			return Batch{}, ctx.Err()
		case <-wait:
		}
	}
}

func (c *FakeConsumer) Ack(_ context.Context, b Batch) error {
	c.offset += len(b.Records)
	return nil
}

func (c *FakeConsumer) Close() error { return nil }
