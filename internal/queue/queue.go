// Package queue formalizes spec §6's "Message log" external interface as
// a Go port: a Producer that publishes keyed records in order, and a
// Consumer that a single partitioned worker drains in batches. The
// kgo-backed implementation (kafka.go) wires the teacher's own client
// library; fake.go is an in-memory stand-in used by tests that still
// preserves per-key ordering, since that ordering is the one property
// the whole single-writer design depends on (spec §5).
package queue

import "context"

// Producer publishes a record keyed for partitioning. Publish must not
// return until the broker has acknowledged the write (or returned an
// error) — the submitter and sweeper both rely on this to know whether
// their message actually entered the log.
type Producer interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
	Close() error
}

// Batch is a group of records pulled from one partition, in log order.
// Ack advances the consumer offset; it must only be called after every
// message in the batch has been durably applied, per spec §4.2 step 5
// ("offset advances only after the transaction commits").
type Batch struct {
	Records []Record
}

type Record struct {
	Key   string
	Value []byte
}

// Consumer is the pull side of one partition. PollBatch blocks up to the
// configured soft wait for up to maxRecords records (spec §4.2 step 1).
type Consumer interface {
	PollBatch(ctx context.Context, maxRecords int) (Batch, error)
	Ack(ctx context.Context, b Batch) error
	Close() error
}
