package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"s3preset/internal/config"
	"s3preset/internal/journal"
	"s3preset/internal/manifest"
	"s3preset/internal/metrics"
	"s3preset/internal/payload"
	"s3preset/internal/progress"
	"s3preset/internal/storage"
	"s3preset/internal/worker"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Run outcomes that map to dedicated exit codes
var (
	ErrNoBuckets = errors.New("no buckets to work with")
	ErrNoObjects = errors.New("no objects were uploaded")
)

// Exit codes reported by the preset command
const (
	ExitOK        = 0
	ExitNoBuckets = 1
	ExitNoObjects = 2
	ExitFatal     = 3
)

// ExitCode maps a Run error to the process exit status
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrNoBuckets):
		return ExitNoBuckets
	case errors.Is(err, ErrNoObjects):
		return ExitNoObjects
	default:
		return ExitFatal
	}
}

// RunConfig is the immutable description of one preset run
type RunConfig struct {
	ObjectSizeKB   int
	Buckets        int
	PreloadObjects int
	Endpoint       string
	Location       string
	Versioning     bool
	Update         bool
	IgnoreErrors   bool
	Workers        int
	Out            string
	PayloadPath    string
}

// NewRunConfig captures the run parameters from the loaded configuration
func NewRunConfig(cfg *config.Config) RunConfig {
	return RunConfig{
		ObjectSizeKB:   cfg.Preset.Size,
		Buckets:        cfg.Preset.Buckets,
		PreloadObjects: cfg.Preset.PreloadObj,
		Endpoint:       cfg.Storage.Endpoint,
		Location:       cfg.Preset.Location,
		Versioning:     cfg.Preset.Versioning,
		Update:         cfg.Preset.Update,
		IgnoreErrors:   cfg.Preset.IgnoreErrors,
		Workers:        worker.ClampWorkers(cfg.Preset.Workers),
		Out:            cfg.Preset.Out,
		PayloadPath:    cfg.Preset.Payload,
	}
}

// Provisioner creates buckets and objects and writes the manifest
type Provisioner struct {
	run     RunConfig
	runID   string
	logger  *zap.Logger
	journal journal.Store
	metrics *metrics.Collector
	workers *worker.Pool

	generatePayload func(path string, sizeKB int) error
	progressOut     io.Writer
}

// New creates a provisioner talking to the given storage client
func New(run RunConfig, client storage.Client, journalStore journal.Store, logger *zap.Logger) *Provisioner {
	runID := uuid.NewString()
	metricsCollector := metrics.New()
	processor := worker.NewTaskProcessor(runID, client, journalStore, metricsCollector, logger)

	return &Provisioner{
		run:             run,
		runID:           runID,
		logger:          logger.With(zap.String("run_id", runID)),
		journal:         journalStore,
		metrics:         metricsCollector,
		workers:         worker.NewPool(run.Workers, processor, logger),
		generatePayload: payload.Generate,
	}
}

// NewFromConfig builds the storage client and journal described by cfg
func NewFromConfig(cfg *config.Config, logger *zap.Logger) (*Provisioner, error) {
	client, err := storage.NewClient(storage.Config{
		Driver:    cfg.Storage.Driver,
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Secure:    cfg.Storage.Secure,
		Region:    cfg.Storage.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	var journalStore journal.Store = journal.NopStore{}
	if cfg.Journal != "" {
		journalStore, err = journal.NewSQLiteStore(cfg.Journal)
		if err != nil {
			return nil, fmt.Errorf("failed to create journal: %w", err)
		}
	}

	p := New(NewRunConfig(cfg), client, journalStore, logger)
	p.progressOut = progressOutput(cfg.ShowProgress, os.Stdout)
	return p, nil
}

// progressOutput returns where the progress display draws, or nil when it is
// off. Logs own stderr, so the display only runs on an interactive stdout.
func progressOutput(show bool, stdout *os.File) io.Writer {
	if !show || !progress.IsTerminalSupported(stdout) {
		return nil
	}
	return stdout
}

// RunID identifies this run in logs and in the journal
func (p *Provisioner) RunID() string {
	return p.runID
}

// Metrics returns the collector fed by this provisioner
func (p *Provisioner) Metrics() *metrics.Collector {
	return p.metrics
}

// Run executes the bucket phase, the object phase and writes the manifest.
// ErrNoBuckets and ErrNoObjects are returned, without writing the manifest,
// when a phase produced nothing and errors are not ignored.
func (p *Provisioner) Run(ctx context.Context) (*manifest.Manifest, error) {
	p.logger.Info("Starting preset",
		zap.String("endpoint", p.run.Endpoint),
		zap.Int("buckets", p.run.Buckets),
		zap.Int("preload_obj", p.run.PreloadObjects),
		zap.Int("size_kb", p.run.ObjectSizeKB),
		zap.Int("workers", p.workers.Size()),
		zap.Bool("update", p.run.Update),
		zap.Bool("versioning", p.run.Versioning),
		zap.Bool("ignore_errors", p.run.IgnoreErrors),
	)

	if p.progressOut != nil {
		display := progress.NewDisplay(p.metrics.GetProgressTracker(), 2*time.Second, p.progressOut)
		display.Start()
		defer display.Stop()
	}

	buckets, err := p.bucketPhase(ctx)
	if err != nil {
		return nil, err
	}

	p.logger.Info("Buckets ready", zap.Int("count", len(buckets)), zap.Strings("buckets", buckets))
	if len(buckets) == 0 {
		if !p.run.IgnoreErrors {
			return nil, ErrNoBuckets
		}
		p.logger.Warn("No buckets to work with, continuing because errors are ignored")
	}

	if err := p.generatePayload(p.run.PayloadPath, p.run.ObjectSizeKB); err != nil {
		return nil, fmt.Errorf("failed to generate payload: %w", err)
	}
	p.logger.Info("Created random payload",
		zap.String("path", p.run.PayloadPath),
		zap.String("size", humanize.IBytes(uint64(p.run.ObjectSizeKB)*1024)),
	)

	objects := p.objectPhase(ctx, buckets)

	if p.run.PreloadObjects > 0 && len(objects) == 0 {
		if !p.run.IgnoreErrors {
			return nil, ErrNoObjects
		}
		p.logger.Warn("No objects were uploaded, continuing because errors are ignored")
	}

	m := &manifest.Manifest{
		Buckets: buckets,
		Objects: objects,
		ObjSize: manifest.ObjSize(p.run.ObjectSizeKB),
	}
	if err := manifest.Save(p.run.Out, m); err != nil {
		return nil, fmt.Errorf("failed to save manifest: %w", err)
	}

	p.logger.Info("Preset completed",
		zap.String("out", p.run.Out),
		zap.Int("total_buckets", len(buckets)),
		zap.Int("total_objects", len(objects)),
	)
	return m, nil
}

// bucketPhase loads the bucket list in update mode or creates new buckets
func (p *Provisioner) bucketPhase(ctx context.Context) ([]string, error) {
	if p.run.Update {
		prior, err := manifest.Load(p.run.Out)
		if err != nil {
			return nil, fmt.Errorf("failed to load buckets for update: %w", err)
		}
		p.logger.Info("Reusing buckets from manifest",
			zap.String("out", p.run.Out),
			zap.Int("count", len(prior.Buckets)),
		)
		return prior.Buckets, nil
	}

	p.logger.Info("Create buckets", zap.Int("count", p.run.Buckets))

	tasks := make([]worker.Task, p.run.Buckets)
	for i := range tasks {
		tasks[i] = worker.CreateBucketTask(p.run.Endpoint, p.run.Location, p.run.Versioning)
	}

	p.metrics.StartPhase("buckets", len(tasks))
	outcomes := p.workers.RunBatch(ctx, tasks)
	buckets := worker.Successes(outcomes)

	p.logger.Info("Create buckets: completed",
		zap.Int("created", len(buckets)),
		zap.Int("failed", len(outcomes)-len(buckets)),
	)
	return buckets, nil
}

// objectPhase uploads PreloadObjects objects to every bucket, one bucket
// batch at a time
func (p *Provisioner) objectPhase(ctx context.Context, buckets []string) []manifest.ObjectRecord {
	p.logger.Info("Upload objects to each bucket", zap.Int("per_bucket", p.run.PreloadObjects))

	objects := make([]manifest.ObjectRecord, 0, len(buckets)*p.run.PreloadObjects)
	for _, bucket := range buckets {
		tasks := make([]worker.Task, p.run.PreloadObjects)
		for i := range tasks {
			tasks[i] = worker.UploadObjectTask(bucket, p.run.PayloadPath, p.run.Endpoint)
		}

		p.metrics.StartPhase(bucket, len(tasks))
		outcomes := p.workers.RunBatch(ctx, tasks)

		uploaded := worker.Successes(outcomes)
		for _, key := range uploaded {
			objects = append(objects, manifest.ObjectRecord{Bucket: bucket, Object: key})
		}

		p.logger.Info("Upload objects for bucket: completed",
			zap.String("bucket", bucket),
			zap.Int("uploaded", len(uploaded)),
			zap.Int("failed", len(outcomes)-len(uploaded)),
		)
	}

	return objects
}

// Close cleans up resources
func (p *Provisioner) Close() error {
	if p.journal != nil {
		return p.journal.Close()
	}
	return nil
}
