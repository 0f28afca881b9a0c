package irradiation

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/heliometric/heliometric/pkg/metrics"
	"github.com/heliometric/heliometric/pkg/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider returns a flat profile where every month equals daily.
type stubProvider struct {
	source     types.IrradiationSource
	confidence float64
	timeout    time.Duration
	delay      time.Duration
	daily      float64
	err        error
	outside    bool
	failFor    func(Request) bool

	calls     atomic.Int32
	completed atomic.Bool
}

func (s *stubProvider) Source() types.IrradiationSource { return s.source }
func (s *stubProvider) Confidence() float64             { return s.confidence }
func (s *stubProvider) Timeout() time.Duration          { return s.timeout }
func (s *stubProvider) Supports(types.Location) bool    { return !s.outside }

func (s *stubProvider) Fetch(ctx context.Context, req Request) (types.IrradiationProfile, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return types.IrradiationProfile{}, ctx.Err()
		}
	}
	s.completed.Store(true)
	if s.err != nil {
		return types.IrradiationProfile{}, s.err
	}
	if s.failFor != nil && s.failFor(req) {
		return types.IrradiationProfile{}, fmt.Errorf("%w: no data here", types.ErrProviderUnavailable)
	}
	var monthly [12]float64
	for i := range monthly {
		monthly[i] = s.daily
	}
	return types.NewIrradiationProfile(s.source, req.Location, monthly, s.confidence)
}

func newStubs() (*stubProvider, *stubProvider, *stubProvider) {
	pv := &stubProvider{source: types.IrradiationSourcePVGIS, confidence: 0.9, timeout: time.Second, daily: 5.5}
	nasa := &stubProvider{source: types.IrradiationSourceNASA, confidence: 0.8, timeout: time.Second, daily: 5.2}
	regional := &stubProvider{source: types.IrradiationSourceRegional, confidence: 0.5, daily: 5.0}
	return pv, nasa, regional
}

var saoPaulo = Request{
	Location: types.Location{Latitude: -23.55, Longitude: -46.63},
	Tilt:     23,
	Azimuth:  0,
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("highest priority wins", func(t *testing.T) {
		pv, nasa, regional := newStubs()
		r := New(nil, nil, regional, nasa, pv)

		p, err := r.Resolve(ctx, saoPaulo, types.IrradiationSourceAuto, false)
		require.NoError(t, err)
		assert.Equal(t, types.IrradiationSourcePVGIS, p.Source)
		assert.Equal(t, 0.9, p.ConfidenceScore)
		assert.Equal(t, 5.5, p.AnnualIrradiation)
	})

	t.Run("falls back in order", func(t *testing.T) {
		pv, nasa, regional := newStubs()
		pv.err = errors.New("connection refused")
		r := New(nil, nil, pv, nasa, regional)

		p, err := r.Resolve(ctx, saoPaulo, "", false)
		require.NoError(t, err)
		assert.Equal(t, types.IrradiationSourceNASA, p.Source)

		nasa.err = errors.New("bad gateway")
		p, err = r.Resolve(ctx, saoPaulo, "", false)
		require.NoError(t, err)
		assert.Equal(t, types.IrradiationSourceRegional, p.Source)
		assert.Equal(t, 0.5, p.ConfidenceScore)
	})

	t.Run("preferred source first", func(t *testing.T) {
		pv, nasa, regional := newStubs()
		r := New(nil, nil, pv, nasa, regional)

		p, err := r.Resolve(ctx, saoPaulo, types.IrradiationSourceNASA, false)
		require.NoError(t, err)
		assert.Equal(t, types.IrradiationSourceNASA, p.Source)

		// a failing preferred source falls back to the fixed priority
		nasa.err = errors.New("down")
		p, err = r.Resolve(ctx, saoPaulo, types.IrradiationSourceNASA, false)
		require.NoError(t, err)
		assert.Equal(t, types.IrradiationSourcePVGIS, p.Source)
	})

	t.Run("all fail", func(t *testing.T) {
		pv, nasa, regional := newStubs()
		pv.err = errors.New("down")
		nasa.err = errors.New("down")
		regional.err = errors.New("down")
		r := New(nil, nil, pv, nasa, regional)

		_, err := r.Resolve(ctx, saoPaulo, "", false)
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrNoDataAvailable)

		var nd *NoDataError
		require.ErrorAs(t, err, &nd)
		require.Len(t, nd.Outcomes, 3)
		for _, o := range nd.Outcomes {
			assert.Equal(t, OutcomeError, o.Status)
			assert.ErrorIs(t, o.Err, types.ErrProviderUnavailable)
		}
	})

	t.Run("unsupported sources are skipped", func(t *testing.T) {
		pv, nasa, regional := newStubs()
		pv.err = errors.New("down")
		nasa.err = errors.New("down")
		regional.outside = true
		r := New(nil, nil, pv, nasa, regional)

		_, err := r.Resolve(ctx, Request{Location: types.Location{Latitude: 38.72, Longitude: -9.14}}, "", false)
		var nd *NoDataError
		require.ErrorAs(t, err, &nd)
		assert.Len(t, nd.Outcomes, 2)
		assert.Equal(t, int32(0), regional.calls.Load())
	})

	t.Run("no sources", func(t *testing.T) {
		r := New(nil, nil)
		_, err := r.Resolve(ctx, saoPaulo, "", false)
		assert.ErrorIs(t, err, types.ErrNoDataAvailable)
	})

	t.Run("invalid request", func(t *testing.T) {
		pv, _, _ := newStubs()
		r := New(nil, nil, pv)

		_, err := r.Resolve(ctx, Request{Location: types.Location{Latitude: -95}}, "", false)
		assert.True(t, types.IsValidation(err))

		_, err = r.Resolve(ctx, Request{Location: saoPaulo.Location, Tilt: 120}, "", false)
		assert.True(t, types.IsValidation(err))

		_, err = r.Resolve(ctx, saoPaulo, "meteonorm", false)
		assert.True(t, types.IsValidation(err))
		assert.Equal(t, int32(0), pv.calls.Load())
	})

	t.Run("timeout triggers fallback", func(t *testing.T) {
		pv, nasa, regional := newStubs()
		pv.delay = time.Second
		pv.timeout = 20 * time.Millisecond
		m := metrics.NewCollector("test")
		r := New(nil, m, pv, nasa, regional)

		start := time.Now()
		p, err := r.Resolve(ctx, saoPaulo, "", false)
		require.NoError(t, err)
		assert.Equal(t, types.IrradiationSourceNASA, p.Source)
		assert.Less(t, time.Since(start), 500*time.Millisecond)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderRequestsTotal.WithLabelValues("pvgis", "timeout")))
	})

	t.Run("slow lower priority does not delay", func(t *testing.T) {
		pv, nasa, regional := newStubs()
		nasa.delay = 2 * time.Second
		nasa.timeout = 3 * time.Second
		r := New(nil, nil, pv, nasa, regional)

		start := time.Now()
		p, err := r.Resolve(ctx, saoPaulo, "", false)
		require.NoError(t, err)
		assert.Equal(t, types.IrradiationSourcePVGIS, p.Source)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("caller cancellation does not cancel providers", func(t *testing.T) {
		pv, _, _ := newStubs()
		pv.delay = 50 * time.Millisecond
		r := New(nil, nil, pv)

		cctx, cancel := context.WithTimeout(ctx, 5*time.Millisecond)
		defer cancel()
		_, err := r.Resolve(cctx, saoPaulo, "", false)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		assert.Eventually(t, pv.completed.Load, time.Second, 5*time.Millisecond)
	})

	t.Run("cache", func(t *testing.T) {
		pv, nasa, regional := newStubs()
		m := metrics.NewCollector("test")
		r := New(NewMemoryCache(time.Hour), m, pv, nasa, regional)

		first, err := r.Resolve(ctx, saoPaulo, "", true)
		require.NoError(t, err)
		assert.Equal(t, int32(1), pv.calls.Load())

		second, err := r.Resolve(ctx, saoPaulo, "", true)
		require.NoError(t, err)
		assert.Equal(t, int32(1), pv.calls.Load(), "expected cached response")
		assert.Equal(t, first, second)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("hit")))

		// nearby coordinates round to the same key
		near := saoPaulo
		near.Location.Latitude += 0.001
		_, err = r.Resolve(ctx, near, "", true)
		require.NoError(t, err)
		assert.Equal(t, int32(1), pv.calls.Load())

		// a different requested source has its own entry, every candidate
		// is queried again
		p, err := r.Resolve(ctx, saoPaulo, types.IrradiationSourceNASA, true)
		require.NoError(t, err)
		assert.Equal(t, types.IrradiationSourceNASA, p.Source)
		assert.Equal(t, int32(2), pv.calls.Load())

		_, err = r.Resolve(ctx, saoPaulo, "", false)
		require.NoError(t, err)
		assert.Equal(t, int32(3), pv.calls.Load(), "useCache false always fetches")
	})
}

func TestSources(t *testing.T) {
	pv, nasa, regional := newStubs()
	r := New(nil, nil, regional, pv, nasa)

	infos := r.Sources()
	require.Len(t, infos, 3)
	assert.Equal(t, types.IrradiationSourcePVGIS, infos[0].Source)
	assert.Equal(t, 1, infos[0].Priority)
	assert.Equal(t, types.IrradiationSourceNASA, infos[1].Source)
	assert.Equal(t, types.IrradiationSourceRegional, infos[2].Source)
	assert.Greater(t, infos[1].Confidence, infos[2].Confidence)
}
