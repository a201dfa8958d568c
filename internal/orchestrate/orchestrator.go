// Package orchestrate runs the integration engine over many opportunities
// with bounded concurrency and cost-control pacing between batches.
package orchestrate

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/funnel-cli/internal/engine"
	"github.com/sells-group/funnel-cli/internal/model"
)

// Options controls a batch run.
type Options struct {
	IncludeResearch  bool
	CostOptimization bool

	// BatchSize overrides the default (5 under cost optimization, 10
	// otherwise) when positive.
	BatchSize int

	// CostDelay is the pacing delay between batches under cost
	// optimization. Default 2s. It throttles external call rate, not
	// local compute.
	CostDelay time.Duration
}

func (o Options) batchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	if o.CostOptimization {
		return 5
	}
	return 10
}

func (o Options) costDelay() time.Duration {
	if o.CostDelay > 0 {
		return o.CostDelay
	}
	return 2 * time.Second
}

// ItemError records one item's failure in the batch error log.
type ItemError struct {
	OpportunityID string `json:"opportunity_id"`
	Message       string `json:"message"`
}

// Result aggregates a batch run: per-item analyses in input order, the
// error log, and aggregate time/cost/quality metrics.
type Result struct {
	Analyses  []*model.IntegratedAnalysis `json:"analyses"`
	Succeeded int                         `json:"succeeded"`
	Failed    int                         `json:"failed"`
	Errors    []ItemError                 `json:"errors,omitempty"`

	TotalProcessingTime time.Duration `json:"total_processing_time_ns"`
	AvgProcessingTime   time.Duration `json:"avg_processing_time_ns"`
	TotalCost           float64       `json:"total_cost"`
	AvgCost             float64       `json:"avg_cost"`

	Quality QualityDistribution `json:"quality_distribution"`
}

// Orchestrator fans analysis work out over batches.
type Orchestrator struct {
	engine  *engine.Engine
	profile model.Profile
}

// New creates an Orchestrator bound to one profile context.
func New(eng *engine.Engine, profile model.Profile) *Orchestrator {
	return &Orchestrator{engine: eng, profile: profile}
}

// RunBatch analyzes every opportunity, preserving input order in the
// output. Items within a batch run concurrently; batches run sequentially
// with a cancellable pacing delay under cost optimization. One item's
// failure never cancels siblings or later batches. On cancellation the
// orchestrator stops issuing batches, drains in-flight work, and labels
// unprocessed items in the error log rather than dropping them.
func (o *Orchestrator) RunBatch(ctx context.Context, opps []model.Opportunity, opts Options) *Result {
	res := &Result{}
	if len(opps) == 0 {
		return res
	}

	size := opts.batchSize()
	log := zap.L().With(
		zap.Int("opportunities", len(opps)),
		zap.Int("batch_size", size),
		zap.Bool("cost_optimization", opts.CostOptimization),
	)
	log.Info("starting batch run")

	analyses := make([]*model.IntegratedAnalysis, len(opps))
	started := time.Now()

	processed := 0
	for start := 0; start < len(opps); start += size {
		end := min(start+size, len(opps))

		// Soft cancellation: stop issuing new batches, keep what finished.
		if ctx.Err() != nil {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				analyses[i] = o.engine.Analyze(gctx, opps[i], o.profile, engine.Options{
					IncludeResearch: opts.IncludeResearch,
				})
				return nil
			})
		}
		// Workers never return errors; Analyze folds failures into the
		// analysis record itself.
		_ = g.Wait()
		processed = end

		if opts.CostOptimization && end < len(opps) {
			if !pause(ctx, opts.costDelay()) {
				break
			}
		}
	}

	for i, a := range analyses {
		if a == nil {
			res.Errors = append(res.Errors, ItemError{
				OpportunityID: opps[i].ID,
				Message:       "cancelled before processing",
			})
			res.Failed++
			continue
		}
		res.Analyses = append(res.Analyses, a)
		if a.RecommendedAction == model.ActionErrorReviewRequired {
			res.Failed++
			res.Errors = append(res.Errors, ItemError{
				OpportunityID: a.OpportunityID,
				Message:       a.Error,
			})
		} else {
			res.Succeeded++
		}
		res.TotalProcessingTime += a.ProcessingTime
		res.TotalCost += a.CostBreakdown.TotalCost
	}

	if n := len(res.Analyses); n > 0 {
		res.AvgProcessingTime = res.TotalProcessingTime / time.Duration(n)
		res.AvgCost = res.TotalCost / float64(n)
	}
	res.Quality = qualityDistribution(res.Analyses)

	log.Info("batch run complete",
		zap.Int("processed", processed),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed),
		zap.Float64("total_cost", res.TotalCost),
		zap.Duration("wall_time", time.Since(started)),
	)
	return res
}

// pause sleeps for d unless the context is cancelled first. It reports
// whether the full delay elapsed.
func pause(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
