package queue

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl/scram"
	"go.uber.org/zap"
)

// KafkaOpt configures NewKafkaProducer/NewKafkaConsumer, mirroring the
// teacher's functional-options Opt pattern (kgo.Opt, and txn.go's
// groupOpt) rather than a struct of public fields.
type KafkaOpt func(*kafkaCfg)

type kafkaCfg struct {
	seedBrokers []string
	saslUser    string
	saslPass    string
	useTLS      bool
	group       string
	logger      *zap.Logger
}

// WithSeedBrokers sets the initial brokers the client dials.
func WithSeedBrokers(addrs ...string) KafkaOpt {
	return func(c *kafkaCfg) { c.seedBrokers = addrs }
}

// WithSCRAM enables SASL/SCRAM-SHA-512 authentication, exercising the
// teacher's golang.org/x/crypto dependency through kgo's scram mechanism
// for deployments that front their cluster with authentication.
func WithSCRAM(user, pass string) KafkaOpt {
	return func(c *kafkaCfg) { c.saslUser, c.saslPass = user, pass }
}

// WithTLS enables TLS transport to the brokers.
func WithTLS() KafkaOpt {
	return func(c *kafkaCfg) { c.useTLS = true }
}

// WithConsumerGroup makes the resulting client join the named group
// instead of consuming as a standalone partition assignee.
func WithConsumerGroup(group string) KafkaOpt {
	return func(c *kafkaCfg) { c.group = group }
}

func WithLogger(l *zap.Logger) KafkaOpt {
	return func(c *kafkaCfg) { c.logger = l }
}

func buildCfg(opts []KafkaOpt) kafkaCfg {
	c := kafkaCfg{logger: zap.NewNop()}
	for _, o := range opts {
		o(&c)
	}
	return c
}

func clientOpts(c kafkaCfg) []kgo.Opt {
	kopts := []kgo.Opt{
		kgo.SeedBrokers(c.seedBrokers...),
		// Larger B (spec §4.2) amortizes produce/commit cost; lz4 keeps
		// the wire payload small for the tiny reservation-request
		// records without spending much CPU; snappy (backed by
		// klauspost/compress in kgo) and then no compression are the
		// fallbacks for brokers that reject lz4.
		kgo.ProducerBatchCompression(kgo.Lz4Compression(), kgo.SnappyCompression(), kgo.NoCompression()),
	}
	if c.useTLS {
		kopts = append(kopts, kgo.DialTLSConfig(nil))
	}
	if c.saslUser != "" {
		kopts = append(kopts, kgo.SASL(scram.Auth{
			User: c.saslUser,
			Pass: c.saslPass,
		}.AsSha512Mechanism()))
	}
	if c.group != "" {
		kopts = append(kopts,
			kgo.ConsumerGroup(c.group),
			kgo.ConsumeTopics(RequestTopic),
			kgo.DisableAutoCommit(),
		)
	}
	return kopts
}

// KafkaProducer publishes records with a franz-go kgo.Client, used by the
// submitter (RESERVE messages) and the sweeper (EXPIRE messages).
type KafkaProducer struct {
	cl     *kgo.Client
	logger *zap.Logger
}

func NewKafkaProducer(opts ...KafkaOpt) (*KafkaProducer, error) {
	c := buildCfg(opts)
	cl, err := kgo.NewClient(clientOpts(c)...)
	if err != nil {
		return nil, fmt.Errorf("queue: new producer client: %w", err)
	}
	return &KafkaProducer{cl: cl, logger: c.logger}, nil
}

func (p *KafkaProducer) Publish(ctx context.Context, topic, key string, value []byte) error {
	rec := &kgo.Record{Topic: topic, Key: []byte(key), Value: value}
	res := p.cl.ProduceSync(ctx, rec)
	if err := res.FirstErr(); err != nil {
		return fmt.Errorf("queue: publish to %s: %w", topic, err)
	}
	return nil
}

func (p *KafkaProducer) Close() error {
	p.cl.Close()
	return nil
}

// KafkaConsumer drains one partition's share of a consumer group,
// committing offsets only after the caller Acks a batch (spec §4.2 step
// 5: "offset advances only after the transaction commits").
type KafkaConsumer struct {
	cl     *kgo.Client
	logger *zap.Logger
}

func NewKafkaConsumer(opts ...KafkaOpt) (*KafkaConsumer, error) {
	c := buildCfg(opts)
	if c.group == "" {
		return nil, fmt.Errorf("queue: consumer requires WithConsumerGroup")
	}
	cl, err := kgo.NewClient(clientOpts(c)...)
	if err != nil {
		return nil, fmt.Errorf("queue: new consumer client: %w", err)
	}
	return &KafkaConsumer{cl: cl, logger: c.logger}, nil
}

// PollBatch pulls up to maxRecords records across whatever partitions are
// currently assigned, blocking until records arrive or ctx is done; the
// batch consumer bounds ctx with its ~10ms soft wait from spec §4.2 step
// 1. Records retain their source order per
// partition; the caller (the batch consumer) is responsible for grouping
// by sku_id.
func (k *KafkaConsumer) PollBatch(ctx context.Context, maxRecords int) (Batch, error) {
	fetches := k.cl.PollRecords(ctx, maxRecords)
	if err := fetches.Err(); err != nil && len(fetches.Records()) == 0 {
		return Batch{}, fmt.Errorf("queue: poll: %w", err)
	}
	var batch Batch
	fetches.EachRecord(func(r *kgo.Record) {
		batch.Records = append(batch.Records, Record{Key: string(r.Key), Value: r.Value})
	})
	return batch, nil
}

// Ack commits every record polled so far as processed. A single consumer
// goroutine drives PollBatch/Ack strictly alternately (spec §4.2: "offset
// advances only after the transaction commits"), so there is no race
// between polling further records and committing prior ones.
func (k *KafkaConsumer) Ack(ctx context.Context, _ Batch) error {
	if err := k.cl.CommitUncommittedOffsets(ctx); err != nil {
		return fmt.Errorf("queue: commit offsets: %w", err)
	}
	return nil
}

func (k *KafkaConsumer) Close() error {
	k.cl.Close()
	return nil
}
