package irradiation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/heliometric/heliometric/pkg/log"
	"github.com/heliometric/heliometric/pkg/metrics"
	"github.com/heliometric/heliometric/pkg/types"
)

// OutcomeStatus is the tag of a single provider call.
type OutcomeStatus string

const (
	OutcomeOK      OutcomeStatus = "ok"
	OutcomeTimeout OutcomeStatus = "timeout"
	OutcomeError   OutcomeStatus = "error"
)

// ProviderOutcome is the result of one provider call. Exactly one of Profile
// or Err is set.
type ProviderOutcome struct {
	Source   types.IrradiationSource   `json:"source"`
	Status   OutcomeStatus             `json:"status"`
	Profile  *types.IrradiationProfile `json:"profile,omitempty"`
	Err      error                     `json:"-"`
	Error    string                    `json:"error,omitempty"`
	Duration time.Duration             `json:"duration"`
}

// NoDataError is returned by Resolve when every candidate source failed. It
// unwraps to types.ErrNoDataAvailable.
type NoDataError struct {
	Outcomes []ProviderOutcome
}

func (e *NoDataError) Error() string {
	if len(e.Outcomes) == 0 {
		return types.ErrNoDataAvailable.Error() + ": no source supports the location"
	}
	parts := make([]string, len(e.Outcomes))
	for i, o := range e.Outcomes {
		parts[i] = fmt.Sprintf("%s: %s", o.Source, o.Status)
	}
	return fmt.Sprintf("%s (%s)", types.ErrNoDataAvailable.Error(), strings.Join(parts, ", "))
}

func (e *NoDataError) Unwrap() error {
	return types.ErrNoDataAvailable
}

// SourceInfo describes a registered provider.
type SourceInfo struct {
	Source     types.IrradiationSource `json:"source"`
	Confidence float64                 `json:"confidence"`
	Timeout    time.Duration           `json:"timeout"`
	Priority   int                     `json:"priority"`
}

// Reconciler picks an irradiation profile across providers with a fixed
// priority and optional caching.
type Reconciler struct {
	mu        sync.Mutex
	providers map[types.IrradiationSource]Provider
	cache     Cache
	bulkDelay time.Duration
	metrics   *metrics.Collector
}

// New returns a Reconciler with the given providers. A nil cache never
// stores anything.
func New(cache Cache, m *metrics.Collector, providers ...Provider) *Reconciler {
	if cache == nil {
		cache = NoCache()
	}
	r := &Reconciler{
		providers: make(map[types.IrradiationSource]Provider, len(providers)),
		cache:     cache,
		bulkDelay: time.Second,
		metrics:   m,
	}
	for _, p := range providers {
		r.providers[p.Source()] = p
	}
	return r
}

// SetProvider registers or replaces a provider. This is primarily used for testing.
func (r *Reconciler) SetProvider(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Source()] = p
}

// SetBulkDelay sets the minimum delay between calls in ResolveBulk.
func (r *Reconciler) SetBulkDelay(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bulkDelay = d
}

// Sources lists the registered providers in priority order.
func (r *Reconciler) Sources() []SourceInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	infos := make([]SourceInfo, 0, len(r.providers))
	for i, s := range types.IrradiationSourcePriority {
		p, ok := r.providers[s]
		if !ok {
			continue
		}
		infos = append(infos, SourceInfo{
			Source:     s,
			Confidence: p.Confidence(),
			Timeout:    p.Timeout(),
			Priority:   i + 1,
		})
	}
	return infos
}

// candidates returns the providers to try for a location: the preferred one
// first, then the rest in the fixed priority order.
func (r *Reconciler) candidates(preferred types.IrradiationSource, loc types.Location) []Provider {
	order := make([]types.IrradiationSource, 0, len(types.IrradiationSourcePriority)+1)
	if preferred != "" && preferred != types.IrradiationSourceAuto {
		order = append(order, preferred)
	}
	for _, s := range types.IrradiationSourcePriority {
		if s != preferred {
			order = append(order, s)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	providers := make([]Provider, 0, len(order))
	for _, s := range order {
		p, ok := r.providers[s]
		if !ok || !p.Supports(loc) {
			continue
		}
		providers = append(providers, p)
	}
	return providers
}

// fetch calls one provider. The call is detached from the caller's
// cancellation and bounded only by the provider's own timeout.
func (r *Reconciler) fetch(ctx context.Context, p Provider, req Request) ProviderOutcome {
	source := p.Source()
	ctx = log.WithAttrs(context.WithoutCancel(ctx), slog.String("source", string(source)))

	var cancel context.CancelFunc
	if t := p.Timeout(); t > 0 {
		ctx, cancel = context.WithTimeout(ctx, t)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	start := time.Now()
	prof, err := p.Fetch(ctx, req)
	out := ProviderOutcome{
		Source:   source,
		Duration: time.Since(start),
	}
	switch {
	case err == nil:
		out.Status = OutcomeOK
		out.Profile = &prof
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		out.Status = OutcomeTimeout
		out.Err = fmt.Errorf("%w: %s timed out after %s", types.ErrProviderUnavailable, source, p.Timeout())
	default:
		out.Status = OutcomeError
		if !errors.Is(err, types.ErrProviderUnavailable) {
			err = fmt.Errorf("%w: %s: %w", types.ErrProviderUnavailable, source, err)
		}
		out.Err = err
	}
	if out.Err != nil {
		out.Error = out.Err.Error()
		log.Ctx(ctx).WarnContext(
			ctx,
			"irradiation provider failed",
			slog.String("status", string(out.Status)),
			slog.Duration("duration", out.Duration),
			slog.Any("error", out.Err),
		)
	} else {
		log.Ctx(ctx).DebugContext(
			ctx,
			"irradiation provider succeeded",
			slog.Duration("duration", out.Duration),
			slog.Float64("annual", prof.AnnualIrradiation),
		)
	}
	r.metrics.RecordProvider(string(source), string(out.Status), out.Duration)
	return out
}

func (r *Reconciler) cached(ctx context.Context, key string) (types.IrradiationProfile, bool) {
	p, ok, err := r.cache.Get(ctx, key)
	switch {
	case err != nil:
		log.Ctx(ctx).WarnContext(ctx, "failed to read irradiation cache", slog.String("key", key), slog.Any("error", err))
		r.metrics.RecordCacheLookup("error")
		return types.IrradiationProfile{}, false
	case ok:
		r.metrics.RecordCacheLookup("hit")
		return p, true
	default:
		r.metrics.RecordCacheLookup("miss")
		return types.IrradiationProfile{}, false
	}
}

// Resolve returns the profile of the first source, in priority order, that
// succeeds. Every candidate is queried concurrently and Resolve returns as
// soon as all higher-priority candidates have settled. When useCache is set
// the result is read from and written to the cache, keyed by the requested
// source so a cached answer equals what a live resolution would return.
func (r *Reconciler) Resolve(ctx context.Context, req Request, preferred types.IrradiationSource, useCache bool) (types.IrradiationProfile, error) {
	if err := req.Validate(); err != nil {
		return types.IrradiationProfile{}, err
	}
	if preferred == "" {
		preferred = types.IrradiationSourceAuto
	}
	if _, err := types.ParseIrradiationSource(string(preferred)); err != nil {
		return types.IrradiationProfile{}, err
	}
	ctx = log.WithAttrs(
		ctx,
		slog.Float64("latitude", req.Location.Latitude),
		slog.Float64("longitude", req.Location.Longitude),
	)

	key := CacheKey(preferred, req)
	if useCache {
		if p, ok := r.cached(ctx, key); ok {
			return p, nil
		}
	}

	providers := r.candidates(preferred, req.Location)
	if len(providers) == 0 {
		return types.IrradiationProfile{}, &NoDataError{}
	}

	results := make([]chan ProviderOutcome, len(providers))
	for i, p := range providers {
		ch := make(chan ProviderOutcome, 1)
		results[i] = ch
		go func() {
			ch <- r.fetch(ctx, p, req)
		}()
	}

	failed := make([]ProviderOutcome, 0, len(providers))
	for _, ch := range results {
		select {
		case out := <-ch:
			if out.Status != OutcomeOK {
				failed = append(failed, out)
				continue
			}
			log.Ctx(ctx).DebugContext(
				ctx,
				"resolved irradiation",
				slog.String("source", string(out.Source)),
				slog.Int("fallbacks", len(failed)),
			)
			if useCache {
				if err := r.cache.Set(ctx, key, *out.Profile); err != nil {
					log.Ctx(ctx).WarnContext(ctx, "failed to write irradiation cache", slog.String("key", key), slog.Any("error", err))
				}
			}
			return *out.Profile, nil
		case <-ctx.Done():
			return types.IrradiationProfile{}, fmt.Errorf("irradiation resolution interrupted: %w", ctx.Err())
		}
	}

	log.Ctx(ctx).WarnContext(ctx, "every irradiation source failed", slog.Int("sources", len(failed)))
	return types.IrradiationProfile{}, &NoDataError{Outcomes: failed}
}
