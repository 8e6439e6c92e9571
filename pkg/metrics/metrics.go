// Package metrics provides Prometheus metrics for iris batch jobs.
package metrics

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	// RecordsProcessedTotal tracks processed records by job and outcome
	RecordsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "iris",
			Subsystem: "jobs",
			Name:      "records_total",
			Help:      "Total number of records processed by outcome",
		},
		[]string{"job_type", "outcome"},
	)

	// CheckpointsSavedTotal tracks checkpoint writes
	CheckpointsSavedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "iris",
			Subsystem: "jobs",
			Name:      "checkpoints_saved_total",
			Help:      "Total number of checkpoints persisted",
		},
		[]string{"job_type"},
	)

	// LinksCreatedTotal tracks external links written by source and method
	LinksCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "iris",
			Subsystem: "linking",
			Name:      "links_created_total",
			Help:      "Total number of external links created",
		},
		[]string{"source", "matched_by"},
	)

	// DuplicatePairsTotal tracks detected duplicate pairs by bucket
	DuplicatePairsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "iris",
			Subsystem: "duplicates",
			Name:      "pairs_total",
			Help:      "Total number of duplicate pairs detected by confidence bucket",
		},
		[]string{"confidence"},
	)

	// MergesTotal tracks merges applied or planned
	MergesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "iris",
			Subsystem: "merging",
			Name:      "merges_total",
			Help:      "Total number of merges by mode",
		},
		[]string{"mode"},
	)

	// MandatesClosedTotal tracks mandates closed by the reconciler
	MandatesClosedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "iris",
			Subsystem: "mandates",
			Name:      "closed_total",
			Help:      "Total number of mandates closed by reason",
		},
		[]string{"type", "reason"},
	)

	// ProviderRequestDuration tracks provider fetch latency
	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "iris",
			Subsystem: "providers",
			Name:      "request_duration_seconds",
			Help:      "Duration of provider requests in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"source", "status"},
	)

	// JobDuration tracks whole run duration
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "iris",
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Duration of job runs in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600},
		},
		[]string{"job_type", "status"},
	)
)

// Recorder feeds job runner events into the counters above
type Recorder struct{}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) RecordOutcome(job string, outcome string) {
	RecordsProcessedTotal.WithLabelValues(job, outcome).Inc()
}

func (r *Recorder) RecordCheckpoint(job string) {
	CheckpointsSavedTotal.WithLabelValues(job).Inc()
}

// Pusher sends the default registry to a Prometheus Pushgateway at the end of a run.
// Batch jobs are not scraped, so this is the only way their metrics leave the process.
type Pusher struct {
	url    string
	logger ectologger.Logger
}

// NewPusher returns nil when url is empty; a nil Pusher is a no-op
func NewPusher(url string, logger ectologger.Logger) *Pusher {
	if url == "" {
		return nil
	}
	return &Pusher{url: url, logger: logger}
}

// Push sends every registered metric grouped under job
func (p *Pusher) Push(ctx context.Context, job string) error {
	if p == nil {
		return nil
	}

	err := push.New(p.url, "iris").
		Grouping("batch", job).
		Gatherer(prometheus.DefaultGatherer).
		PushContext(ctx)
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithField("url", p.url).Warn("Failed to push metrics")
		return fmt.Errorf("failed to push metrics to %s: %w", p.url, err)
	}

	p.logger.WithContext(ctx).WithField("job", job).Debug("Pushed metrics")
	return nil
}
