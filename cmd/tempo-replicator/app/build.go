package app

import (
	"context"
	"fmt"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/grafana/tempo-replicator/pkg/replicate/kafkaclient"
	"github.com/grafana/tempo-replicator/pkg/replicate/model"
	"github.com/grafana/tempo-replicator/pkg/replicate/policy"
	"github.com/grafana/tempo-replicator/pkg/replicate/runner"
	"github.com/grafana/tempo-replicator/pkg/replicate/task"
)

// Build wires one replication flow from cfg: a source consumer, an
// offset-syncs producer, a target producer, and the task and runner
// that drive them, registering every client's metrics against reg.
func Build(ctx context.Context, cfg Config, logger log.Logger, reg prometheus.Registerer, storage task.OffsetStorage) (*runner.Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("app: invalid config: %w", err)
	}

	sourceClient, err := kafkaclient.NewClient(cfg.SourceKafka, "source_consumer", reg)
	if err != nil {
		return nil, fmt.Errorf("app: building source client: %w", err)
	}
	syncProducerClient, err := kafkaclient.NewClient(cfg.SourceKafka, "offset_sync_producer", reg)
	if err != nil {
		return nil, fmt.Errorf("app: building offset-sync producer client: %w", err)
	}
	targetClient, err := kafkaclient.NewClient(cfg.TargetKafka, "target_producer", reg, kgo.RecordPartitioner(kgo.ManualPartitioner()))
	if err != nil {
		return nil, fmt.Errorf("app: building target client: %w", err)
	}

	for _, c := range []*kgo.Client{sourceClient, syncProducerClient, targetClient} {
		if err := kafkaclient.WaitForReady(ctx, c, logger); err != nil {
			return nil, err
		}
	}

	admin := kadm.NewClient(syncProducerClient)
	if err := kafkaclient.EnsureCompactedTopic(ctx, admin, cfg.OffsetSyncsTopic); err != nil {
		return nil, fmt.Errorf("app: ensuring offset-syncs topic: %w", err)
	}

	assignment := model.TaskAssignment{
		SourceClusterAlias: cfg.SourceClusterAlias,
		TargetClusterAlias: cfg.TargetClusterAlias,
		AssignedPartitions: cfg.assignedPartitions(),
		MaxOffsetLag:       cfg.MaxOffsetLag,
		PollTimeoutMs:      cfg.PollTimeoutMs,
		OffsetSyncsTopic:   cfg.OffsetSyncsTopic,
		Policy:             policy.Default{Separator: cfg.TopicSeparator},
	}

	consumer := kafkaclient.NewSourceConsumer(sourceClient)
	producer := kafkaclient.NewSyncProducer(syncProducerClient, cfg.OffsetSyncsTopic)
	metrics := task.NewMetrics(reg)

	t := task.New(logger, consumer, producer, storage, metrics, nil)
	if err := t.Start(ctx, assignment); err != nil {
		return nil, fmt.Errorf("app: starting task: %w", err)
	}

	return runner.New(logger, t, targetClient), nil
}
