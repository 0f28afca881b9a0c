package irradiation

import (
	"context"
	"log/slog"

	"github.com/heliometric/heliometric/pkg/log"
	"github.com/heliometric/heliometric/pkg/types"
	"golang.org/x/time/rate"
)

// BulkResult is the outcome of one item of ResolveBulk. Exactly one of
// Profile or Err is set.
type BulkResult struct {
	Index    int                       `json:"index"`
	Location types.Location            `json:"location"`
	Profile  *types.IrradiationProfile `json:"profile,omitempty"`
	Err      error                     `json:"-"`
	Error    string                    `json:"error,omitempty"`
}

func (b *BulkResult) fail(err error) {
	b.Err = err
	b.Error = err.Error()
}

// ResolveBulk resolves every request one after another, waiting at least the
// bulk delay between calls so external providers are not hammered. Results
// are in input order. A failed item never aborts the batch but cancelling ctx
// marks every remaining item with the cancellation error.
func (r *Reconciler) ResolveBulk(ctx context.Context, reqs []Request, source types.IrradiationSource) []BulkResult {
	return r.ResolveBulkProgress(ctx, reqs, source, nil)
}

// ResolveBulkProgress is ResolveBulk but calls progress, when not nil, after
// every item that was attempted.
func (r *Reconciler) ResolveBulkProgress(ctx context.Context, reqs []Request, source types.IrradiationSource, progress func(BulkResult)) []BulkResult {
	r.mu.Lock()
	delay := r.bulkDelay
	r.mu.Unlock()

	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	limiter := rate.NewLimiter(limit, 1)

	results := make([]BulkResult, len(reqs))
	for i, req := range reqs {
		results[i] = BulkResult{Index: i, Location: req.Location}
	}

	var failed int
	for i, req := range reqs {
		if err := limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			for j := i; j < len(reqs); j++ {
				results[j].fail(err)
				r.metrics.RecordBulkItem("canceled")
			}
			failed += len(reqs) - i
			break
		}

		p, err := r.Resolve(ctx, req, source, true)
		if err != nil {
			results[i].fail(err)
			failed++
			r.metrics.RecordBulkItem("error")
			log.Ctx(ctx).WarnContext(
				ctx,
				"bulk item failed",
				slog.Int("index", i),
				slog.Any("error", err),
			)
		} else {
			results[i].Profile = &p
			r.metrics.RecordBulkItem("ok")
		}
		if progress != nil {
			progress(results[i])
		}
	}

	log.Ctx(ctx).InfoContext(
		ctx,
		"bulk resolution finished",
		slog.Int("items", len(reqs)),
		slog.Int("failed", failed),
	)
	return results
}
