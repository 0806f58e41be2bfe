package kafkaclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/backoff"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl/plain"
	"github.com/twmb/franz-go/plugin/kprom"
)

// NewClient builds a *kgo.Client for cfg, with no consumer-group and no
// auto-assigned topics: every client this repo builds consumes via
// explicit AddConsumePartitions, matching spec.md §4.E's manual-assign
// and seek model. metricsName scopes the kprom metric names so the
// source consumer, the offset-sync producer, and the target producer
// don't collide on one process' registry.
func NewClient(cfg Config, metricsName string, reg prometheus.Registerer, extra ...kgo.Opt) (*kgo.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.WithHooks(kprom.NewMetrics(metricsName, kprom.Registerer(reg))),
	}
	if cfg.SASL.Username != "" {
		opts = append(opts, kgo.SASL(plain.Auth{
			User: cfg.SASL.Username,
			Pass: cfg.SASL.Password,
		}.AsMechanism()))
	}
	opts = append(opts, extra...)

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("kafkaclient: building client %q: %w", metricsName, err)
	}
	return client, nil
}

// EnsureCompactedTopic creates topic as a single-partition compacted
// topic if it does not already exist. It tolerates the topic already
// existing with a different configuration, logging nothing itself —
// callers decide whether that's worth a warning.
func EnsureCompactedTopic(ctx context.Context, admin *kadm.Client, topic string) error {
	resp, err := admin.CreateTopics(ctx, 1, 1, map[string]*string{
		"cleanup.policy": strPtr("compact"),
	}, topic)
	if err != nil {
		return fmt.Errorf("kafkaclient: create topic %q: %w", topic, err)
	}
	if tr, ok := resp[topic]; ok && tr.Err != nil && !errors.Is(tr.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("kafkaclient: create topic %q: %w", topic, tr.Err)
	}
	return nil
}

// WaitForReady pings client with a backing-off retry loop, the same
// shape modules/blockbuilder's starting() uses before it trusts a
// freshly built client: if a network hiccup is transient, waiting
// longer beats failing the whole task on the first blip.
func WaitForReady(ctx context.Context, client *kgo.Client, logger log.Logger) error {
	boff := backoff.New(ctx, backoff.Config{
		MinBackoff: 100 * time.Millisecond,
		MaxBackoff: time.Minute,
		MaxRetries: 10,
	})

	for boff.Ongoing() {
		err := client.Ping(ctx)
		if err == nil {
			return nil
		}
		level.Warn(logger).Log("msg", "ping kafka; will retry", "err", err)
		boff.Wait()
	}
	if err := boff.ErrCause(); err != nil {
		return fmt.Errorf("kafkaclient: failed to ping kafka: %w", err)
	}
	return nil
}

func strPtr(s string) *string { return &s }
