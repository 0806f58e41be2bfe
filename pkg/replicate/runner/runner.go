// Package runner implements the minimal host harness this repo ships
// standalone: it drives one task.ReplicationTask's Poll/CommitRecord
// loop and owns the one piece of the system the task intentionally
// does not — the target-side producer. A real deployment behind an
// orchestrator (e.g. a Connect-style framework) would replace this
// package entirely and drive the same task the same way.
package runner

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/grafana/tempo-replicator/pkg/replicate/model"
	"github.com/grafana/tempo-replicator/pkg/replicate/task"
)

// Runner owns a task.ReplicationTask and the target cluster producer
// that publishes its forwarded batches.
type Runner struct {
	logger       log.Logger
	task         *task.ReplicationTask
	targetClient *kgo.Client
}

// New builds a Runner. targetClient must be configured with
// kgo.RecordPartitioner(kgo.ManualPartitioner()) so that the partition
// this package sets on each outgoing record is honored, preserving the
// source partition number on the target side.
func New(logger log.Logger, t *task.ReplicationTask, targetClient *kgo.Client) *Runner {
	return &Runner{logger: logger, task: t, targetClient: targetClient}
}

// Run polls and forwards in a loop until ctx is canceled, then stops
// the task and returns.
func (r *Runner) Run(ctx context.Context) error {
	defer r.task.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		batch, err := r.task.Poll(ctx)
		if err != nil {
			level.Error(r.logger).Log("msg", "poll failed", "err", err)
			continue
		}
		for _, fwd := range batch {
			r.publish(ctx, fwd)
		}
	}
}

func (r *Runner) publish(ctx context.Context, fwd model.ForwardedRecord) {
	headers := make([]kgo.RecordHeader, len(fwd.Headers))
	for i, h := range fwd.Headers {
		headers[i] = kgo.RecordHeader{Key: h.Key, Value: h.Value}
	}

	record := &kgo.Record{
		Topic:     fwd.TargetTopic,
		Partition: int32(fwd.TargetPartition),
		Key:       fwd.Key,
		Value:     fwd.Value,
		Headers:   headers,
	}

	r.targetClient.Produce(ctx, record, func(produced *kgo.Record, err error) {
		if err != nil {
			level.Warn(r.logger).Log("msg", "forward failed", "tp", fwd.SourceTP.String(), "upstream_offset", fwd.UpstreamOffset, "err", err)
			return
		}
		r.task.CommitRecord(ctx, fwd.SourceTP, fwd.UpstreamOffset, fwd.Timestamp, model.RecordMetadata{
			Offset:    produced.Offset,
			HasOffset: true,
		})
	})
}
