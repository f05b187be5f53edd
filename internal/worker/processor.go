package worker

import (
	"context"
	"fmt"
	"time"

	"s3preset/internal/journal"
	"s3preset/internal/metrics"
	"s3preset/internal/storage"

	"go.uber.org/zap"
)

// TaskProcessor executes tasks against the storage backend
type TaskProcessor struct {
	runID   string
	client  storage.Client
	journal journal.Store
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewTaskProcessor creates a processor bound to one storage client
func NewTaskProcessor(
	runID string,
	client storage.Client,
	journalStore journal.Store,
	metricsCollector *metrics.Collector,
	logger *zap.Logger,
) *TaskProcessor {
	return &TaskProcessor{
		runID:   runID,
		client:  client,
		journal: journalStore,
		metrics: metricsCollector,
		logger:  logger,
	}
}

// Handle processes a single task. Failures are reported to the caller and
// never retried. A panicking task is accounted as failed before the panic
// propagates to the pool.
func (p *TaskProcessor) Handle(ctx context.Context, task Task) (string, error) {
	startTime := time.Now()
	p.metrics.TaskStarted()
	defer func() {
		if r := recover(); r != nil {
			duration := time.Since(startTime)
			p.metrics.TaskFailed(string(task.Kind), duration)
			p.record(task, "", duration, fmt.Errorf("task panicked: %v", r))
			panic(r)
		}
	}()

	value, err := p.processTask(ctx, task)
	duration := time.Since(startTime)

	if err != nil {
		p.metrics.TaskFailed(string(task.Kind), duration)
		p.logger.Warn("Task failed",
			zap.String("kind", string(task.Kind)),
			zap.String("bucket", task.Bucket),
			zap.String("endpoint", task.Endpoint),
			zap.Error(err),
		)
		p.record(task, "", duration, err)
		return "", err
	}

	p.metrics.TaskSucceeded(string(task.Kind), duration)
	p.logger.Debug("Task completed successfully",
		zap.String("kind", string(task.Kind)),
		zap.String("bucket", task.Bucket),
		zap.String("result", value),
		zap.Duration("duration", duration),
	)
	p.record(task, value, duration, nil)
	return value, nil
}

func (p *TaskProcessor) processTask(ctx context.Context, task Task) (string, error) {
	switch task.Kind {
	case KindCreateBucket:
		return p.client.CreateBucket(ctx, storage.BucketOptions{
			Location:   task.Location,
			Versioning: task.Versioning,
		})
	case KindUploadObject:
		return p.client.UploadObject(ctx, task.Bucket, task.PayloadPath)
	default:
		return "", fmt.Errorf("unknown task kind %q", task.Kind)
	}
}

func (p *TaskProcessor) record(task Task, value string, duration time.Duration, taskErr error) {
	record := &journal.TaskRecord{
		RunID:    p.runID,
		Kind:     string(task.Kind),
		Endpoint: task.Endpoint,
		Bucket:   task.Bucket,
		Status:   journal.StatusSucceeded,
		Duration: duration,
	}

	switch task.Kind {
	case KindCreateBucket:
		record.Bucket = value
	case KindUploadObject:
		record.Object = value
	}

	if taskErr != nil {
		record.Status = journal.StatusFailed
		record.LastError = taskErr.Error()
	}

	if err := p.journal.RecordTask(record); err != nil {
		p.logger.Error("Failed to record task in journal",
			zap.String("kind", string(task.Kind)),
			zap.String("bucket", task.Bucket),
			zap.Error(err))
	}
}
