package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	sharedretry "github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/storm-feature-detect/internal/domain"
	"github.com/couchcryptid/storm-feature-detect/internal/observability"
)

// TimestepSource yields one materialized timestep per call and io.EOF once
// the archive is exhausted. A non-fatal error skips only the current timestep.
type TimestepSource interface {
	Next(ctx context.Context) (domain.Timestep, error)
}

// Detector runs the detection passes over one timestep.
type Detector interface {
	Detect(ctx context.Context, ts domain.Timestep) (domain.DetectionResult, error)
}

// BatchLoader writes multiple output events to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Pipeline orchestrates the read-detect-load loop, one timestep at a time.
type Pipeline struct {
	source   TimestepSource
	detector Detector
	loader   BatchLoader
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool

	mu     sync.Mutex
	status domain.RunStatus
}

// New creates a Pipeline with the given stages and observability.
func New(s TimestepSource, d Detector, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		source:   s,
		detector: d,
		loader:   l,
		logger:   logger,
		metrics:  metrics,
		status:   domain.RunStatus{LastTimestep: -1},
	}
}

// Status returns a snapshot of run progress.
func (p *Pipeline) Status() domain.RunStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Pipeline) setRunning(v bool) {
	p.mu.Lock()
	p.status.Running = v
	p.mu.Unlock()
}

// CheckReadiness returns nil once at least one timestep has been published,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any timesteps yet")
	}
	return nil
}

// Run processes timesteps until the source is exhausted or the context is
// cancelled, both of which return nil. Degraded timesteps are logged and
// skipped; a fatal error (see domain.IsFatal) stops the run and is returned.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started")
	p.metrics.PipelineRunning.Set(1)
	p.setRunning(true)
	defer func() {
		p.metrics.PipelineRunning.Set(0)
		p.setRunning(false)
	}()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		ts, err := p.source.Next(ctx)
		switch {
		case errors.Is(err, io.EOF):
			p.logger.Info("archive exhausted, pipeline finished")
			return nil
		case err != nil && ctx.Err() != nil:
			return nil
		case err != nil && domain.IsFatal(err):
			return err
		case err != nil:
			p.skip(ts.Index, "read timestep failed, skipping", err)
			continue
		}

		if err := p.processTimestep(ctx, ts); err != nil {
			return err
		}
	}
}

// processTimestep detects and loads one timestep. Only a fatal detection
// error is returned; others are logged and the timestep is skipped.
func (p *Pipeline) processTimestep(ctx context.Context, ts domain.Timestep) error {
	start := time.Now()

	res, err := p.detector.Detect(ctx, ts)
	if err != nil {
		if domain.IsFatal(err) {
			return err
		}
		p.skip(ts.Index, "detection failed, skipping timestep", err)
		return nil
	}

	events, err := domain.SerializeResult(res)
	if err != nil {
		p.skip(ts.Index, "serialize failed, skipping timestep", err)
		return nil
	}

	p.logger.Info("timestep detected",
		"timestep", ts.Index,
		"time", ts.Time,
		"minima", res.Rejections.Total,
		"candidates", len(res.Candidates),
		"rejected_warm_core", res.Rejections.WarmCore,
		"rejected_no_warm_core", res.Rejections.NoWarmCore,
		"rejected_laplacian", res.Rejections.Laplacian,
		"rivers", len(res.Rivers),
	)

	if len(events) > 0 && !p.loadWithRetry(ctx, events) {
		return nil
	}

	p.record(res, len(events))
	p.mu.Lock()
	p.status.TimestepsProcessed++
	p.status.LastTimestep = ts.Index
	p.status.LastTime = ts.Time
	p.status.Candidates += len(res.Candidates)
	p.status.Rivers += len(res.Rivers)
	p.mu.Unlock()
	p.metrics.TimestepDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	return nil
}

// loadWithRetry retries the sink with exponential backoff until it succeeds
// or the context is cancelled. Returns false on cancellation.
func (p *Pipeline) loadWithRetry(ctx context.Context, events []domain.OutputEvent) bool {
	backoff := initialBackoff
	for {
		err := p.loader.LoadBatch(ctx, events)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("load batch failed", "error", err, "batch_size", len(events), "retry_in", backoff)
		if !sharedretry.SleepWithContext(ctx, backoff) {
			return false
		}
		backoff = sharedretry.NextBackoff(backoff, maxBackoff)
	}
}

func (p *Pipeline) record(res domain.DetectionResult, produced int) {
	p.metrics.TimestepsProcessed.Inc()
	p.metrics.CandidatesDetected.Add(float64(len(res.Candidates)))
	p.metrics.CandidateRejected.WithLabelValues("warm_core").Add(float64(res.Rejections.WarmCore))
	p.metrics.CandidateRejected.WithLabelValues("no_warm_core").Add(float64(res.Rejections.NoWarmCore))
	p.metrics.CandidateRejected.WithLabelValues("laplacian").Add(float64(res.Rejections.Laplacian))
	p.metrics.RiverComponents.Add(float64(len(res.Rivers)))
	p.metrics.RiverNodesRemoved.Add(float64(res.RiverNodesRemoved))
	p.metrics.MessagesProduced.Add(float64(produced))
}

func (p *Pipeline) skip(timestep int, msg string, err error) {
	p.logger.Warn(msg, "timestep", timestep, "error", err)
	p.metrics.TimestepErrors.Inc()
	p.mu.Lock()
	p.status.TimestepsSkipped++
	p.mu.Unlock()
}
