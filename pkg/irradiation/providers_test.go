package irradiation

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/heliometric/heliometric/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pvgisBody(dailyByYear ...float64) string {
	var entries []string
	for y, daily := range dailyByYear {
		for m := 1; m <= 12; m++ {
			entries = append(entries, fmt.Sprintf(
				`{"year":%d,"month":%d,"H(i)_m":%g}`,
				2005+y, m, daily*float64(types.DaysInMonth[m-1]),
			))
		}
	}
	return `{"inputs":{},"outputs":{"monthly":[` + strings.Join(entries, ",") + `]}}`
}

func TestPVGIS(t *testing.T) {
	ctx := context.Background()

	t.Run("Fetch_Parsing", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v5_3/MRcalc", r.URL.Path)
			q := r.URL.Query()
			assert.Equal(t, "-23.5500", q.Get("lat"))
			assert.Equal(t, "-46.6300", q.Get("lon"))
			assert.Equal(t, "23", q.Get("angle"))
			// facing north
			assert.Equal(t, "-180", q.Get("aspect"))
			assert.Equal(t, "json", q.Get("outputformat"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(pvgisBody(5, 6)))
		}))
		defer ts.Close()

		p := NewPVGIS(ts.URL+"/api/v5_3", ts.Client())
		prof, err := p.Fetch(ctx, saoPaulo)
		require.NoError(t, err)
		assert.Equal(t, types.IrradiationSourcePVGIS, prof.Source)
		assert.Equal(t, pvgisConfidence, prof.ConfidenceScore)
		for m, v := range prof.MonthlyIrradiation {
			assert.InDelta(t, 5.5, v, 1e-9, "month %d", m+1)
		}
		assert.InDelta(t, 5.5, prof.AnnualIrradiation, 1e-9)
	})

	t.Run("Fetch_MissingMonth", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"outputs":{"monthly":[{"year":2005,"month":1,"H(i)_m":150}]}}`))
		}))
		defer ts.Close()

		_, err := NewPVGIS(ts.URL, ts.Client()).Fetch(ctx, saoPaulo)
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrProviderUnavailable)
		assert.Contains(t, err.Error(), "month 2")
	})

	t.Run("Fetch_BadStatus", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"status":400,"message":"Location over the sea"}`))
		}))
		defer ts.Close()

		_, err := NewPVGIS(ts.URL, ts.Client()).Fetch(ctx, saoPaulo)
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrProviderUnavailable)
		assert.Contains(t, err.Error(), "Location over the sea")
	})

	t.Run("Aspect", func(t *testing.T) {
		assert.Equal(t, 0.0, pvgisAspect(180))
		assert.Equal(t, -90.0, pvgisAspect(90))
		assert.Equal(t, 90.0, pvgisAspect(270))
		assert.Equal(t, 180.0, pvgisAspect(360))
	})

	t.Run("Supports", func(t *testing.T) {
		p := NewPVGIS("http://example.com", nil)
		assert.True(t, p.Supports(saoPaulo.Location))
		assert.False(t, p.Supports(types.Location{Latitude: -75, Longitude: 0}))
	})

	t.Run("Validate", func(t *testing.T) {
		assert.NoError(t, NewPVGIS("https://re.jrc.ec.europa.eu/api/v5_3", nil).Validate())
		assert.Error(t, NewPVGIS("", nil).Validate())
	})
}

const nasaPowerBody = `{
	"type": "Feature",
	"geometry": {"type": "Point", "coordinates": [-46.63, -23.55, 760.0]},
	"properties": {"parameter": {"ALLSKY_SFC_SW_DWN": {
		"JAN": 5.61, "FEB": 5.72, "MAR": 5.03, "APR": 4.47, "MAY": 3.79, "JUN": 3.55,
		"JUL": 3.69, "AUG": 4.49, "SEP": 4.71, "OCT": 5.12, "NOV": 5.51, "DEC": 5.64,
		"ANN": 4.78
	}}}
}`

func TestNASAPower(t *testing.T) {
	ctx := context.Background()

	t.Run("Fetch_Parsing", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			assert.Equal(t, nasaPowerParameter, q.Get("parameters"))
			assert.Equal(t, "RE", q.Get("community"))
			assert.Equal(t, "-23.5500", q.Get("latitude"))
			assert.Equal(t, "-46.6300", q.Get("longitude"))
			_, _ = w.Write([]byte(nasaPowerBody))
		}))
		defer ts.Close()

		prof, err := NewNASAPower(ts.URL, ts.Client()).Fetch(ctx, saoPaulo)
		require.NoError(t, err)
		assert.Equal(t, types.IrradiationSourceNASA, prof.Source)
		assert.Equal(t, nasaPowerConfidence, prof.ConfidenceScore)
		assert.Equal(t, 5.61, prof.MonthlyIrradiation[0])
		assert.Equal(t, 5.64, prof.MonthlyIrradiation[11])
		assert.InDelta(t, 4.7775, prof.AnnualIrradiation, 1e-9)
	})

	t.Run("Fetch_FillValue", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(strings.Replace(nasaPowerBody, `"JUN": 3.55`, `"JUN": -999`, 1)))
		}))
		defer ts.Close()

		_, err := NewNASAPower(ts.URL, ts.Client()).Fetch(ctx, saoPaulo)
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrProviderUnavailable)
		assert.Contains(t, err.Error(), "JUN")
	})

	t.Run("Fetch_MissingParameter", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"properties":{"parameter":{}}}`))
		}))
		defer ts.Close()

		_, err := NewNASAPower(ts.URL, ts.Client()).Fetch(ctx, saoPaulo)
		assert.ErrorIs(t, err, types.ErrProviderUnavailable)
	})

	t.Run("Fetch_ServerError", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		}))
		defer ts.Close()

		_, err := NewNASAPower(ts.URL, ts.Client()).Fetch(ctx, saoPaulo)
		assert.ErrorIs(t, err, types.ErrProviderUnavailable)
	})
}

func TestRegionalTable(t *testing.T) {
	ctx := context.Background()
	table := DefaultRegionalTable()

	assert.Equal(t, "sudeste", table.Region(types.Location{Latitude: -23.55, Longitude: -46.63}))
	assert.Equal(t, "sul", table.Region(types.Location{Latitude: -30.03, Longitude: -51.23}))
	assert.Equal(t, "norte", table.Region(types.Location{Latitude: -3.1, Longitude: -60.0}))
	assert.Equal(t, "nordeste", table.Region(types.Location{Latitude: -8.05, Longitude: -34.9}))

	prof, err := table.Fetch(ctx, saoPaulo)
	require.NoError(t, err)
	assert.Equal(t, types.IrradiationSourceRegional, prof.Source)
	assert.Equal(t, regionalConfidence, prof.ConfidenceScore)
	assert.Less(t, prof.ConfidenceScore, nasaPowerConfidence)
	assert.Equal(t, 5.70, prof.MonthlyIrradiation[0])

	lisbon := Request{Location: types.Location{Latitude: 38.72, Longitude: -9.14}}
	assert.False(t, table.Supports(lisbon.Location))
	_, err = table.Fetch(ctx, lisbon)
	assert.ErrorIs(t, err, types.ErrProviderUnavailable)

	_, err = NewRegionalTable([]byte("regions:\n  - name: x\n    monthly: [1, 2]\n"))
	assert.Error(t, err)
	_, err = NewRegionalTable([]byte("regions: []\n"))
	assert.Error(t, err)
}
