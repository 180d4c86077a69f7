package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"

	"github.com/franckalain/freshness/internal/catalog"
	"github.com/franckalain/freshness/internal/freshness"
	"github.com/franckalain/freshness/internal/imaging"
	"github.com/franckalain/freshness/internal/metrics"
	"github.com/franckalain/freshness/internal/ml"
	"github.com/franckalain/freshness/internal/models"
)

// Pipeline turns one photo and an item id into a freshness report. It holds
// only read-only collaborators and is safe for concurrent use.
type Pipeline struct {
	catalog   *catalog.Catalog
	estimator ml.Estimator
	now       func() time.Time
	maxPixels int
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithClock overrides the clock used for "today"
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// WithMaxPixels bounds the decoded size of uploaded images. Zero or less
// keeps the default.
func WithMaxPixels(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxPixels = n
		}
	}
}

// New creates a pipeline over a loaded catalog and estimator
func New(c *catalog.Catalog, estimator ml.Estimator, opts ...Option) *Pipeline {
	p := &Pipeline{
		catalog:   c,
		estimator: estimator,
		now:       time.Now,
		maxPixels: imaging.DefaultMaxPixels,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Catalog exposes the read-only catalog backing the pipeline
func (p *Pipeline) Catalog() *catalog.Catalog {
	return p.catalog
}

// Predict validates the request, scores the image once and projects decay.
// Any failure aborts the run; a partial report is never returned.
func (p *Pipeline) Predict(ctx context.Context, req models.PredictionRequest) (*models.FreshnessReport, error) {
	start := time.Now()
	requestID := uuid.New().String()

	report, err := p.predict(ctx, requestID, req)

	kind := ErrorKind(err)
	elapsed := time.Since(start)
	metrics.PredictionsTotal.WithLabelValues(kind).Inc()
	metrics.PredictionDurationSeconds.WithLabelValues(kind).Observe(elapsed.Seconds())

	entry := log.WithFields(log.Fields{
		"request_id":  requestID,
		"item":        req.ItemID,
		"result":      kind,
		"duration_ms": elapsed.Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Warn("pipeline.predict.failed")
		return nil, err
	}

	metrics.StatusTotal.WithLabelValues(string(report.Status)).Inc()
	entry.WithFields(log.Fields{
		"initial_freshness": report.InitialFreshness,
		"days_passed":       report.Decay.DaysPassed,
		"status":            report.Status,
	}).Info("pipeline.predict")
	return report, nil
}

func (p *Pipeline) predict(ctx context.Context, requestID string, req models.PredictionRequest) (*models.FreshnessReport, error) {
	profile, err := p.catalog.Lookup(req.ItemID)
	if err != nil {
		return nil, err
	}
	if req.Filename != "" {
		if err := imaging.CheckExtension(req.Filename); err != nil {
			return nil, err
		}
	}

	tensor, err := imaging.NormalizeLimit(req.Image, p.maxPixels)
	if err != nil {
		return nil, err
	}

	raw, err := p.estimate(ctx, tensor)
	if err != nil {
		return nil, err
	}
	initial := freshness.Round2(freshness.Clamp(raw))
	metrics.InitialFreshness.Observe(initial)

	today := p.now()
	result := freshness.Decay(initial, profile, freshness.DaysBetween(req.UploadDate, today))
	status := freshness.Classify(result.Room.Final)
	conditions, chart := models.NewConditions(result)

	return &models.FreshnessReport{
		Success:          true,
		RequestID:        requestID,
		Item:             profile.Label,
		InitialFreshness: initial,
		Decay:            models.NewDecay(result),
		Status:           status,
		StatusColor:      status.Color(),
		StatusIcon:       status.Icon(),
		Recommendation:   status.Recommendation(),
		ShelfLife:        profile.ShelfLife(),
		Conditions:       conditions,
		ChartData:        chart,
		AnalysisDate:     today.Format(time.DateOnly),
	}, nil
}

// estimate makes exactly one estimator call; there are no retries.
func (p *Pipeline) estimate(ctx context.Context, tensor *imaging.Tensor) (float64, error) {
	start := time.Now()
	raw, err := p.estimator.Estimate(ctx, tensor)
	metrics.EstimatorDurationSeconds.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, ml.ErrEstimatorFailure) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %v", ml.ErrEstimatorFailure, err)
	}
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, fmt.Errorf("%w: non-numeric score %v", ml.ErrEstimatorFailure, raw)
	}
	return raw, nil
}

// ErrorKind names the failure class of err for logs and metrics
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, catalog.ErrUnsupportedItem):
		return "unsupported_item"
	case errors.Is(err, imaging.ErrInvalidFileType):
		return "invalid_file_type"
	case errors.Is(err, imaging.ErrImageDecode):
		return "image_decode_error"
	case errors.Is(err, ml.ErrEstimatorFailure):
		return "estimator_failure"
	default:
		return "error"
	}
}
