package server

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/heliometric/heliometric/pkg/equipment"
	"github.com/heliometric/heliometric/pkg/irradiation"
	"github.com/heliometric/heliometric/pkg/metrics"
	"github.com/heliometric/heliometric/pkg/storage/storagemock"
	"github.com/heliometric/heliometric/pkg/types"
	"github.com/heliometric/heliometric/pkg/utility"
)

// fixedProvider answers every location with the same daily irradiation.
type fixedProvider struct {
	source types.IrradiationSource
	daily  float64
}

func (p fixedProvider) Source() types.IrradiationSource { return p.source }
func (p fixedProvider) Confidence() float64             { return 0.85 }
func (p fixedProvider) Timeout() time.Duration          { return time.Second }
func (p fixedProvider) Supports(types.Location) bool    { return true }

func (p fixedProvider) Fetch(ctx context.Context, req irradiation.Request) (types.IrradiationProfile, error) {
	var monthly [12]float64
	for i := range monthly {
		monthly[i] = p.daily
	}
	return types.NewIrradiationProfile(p.source, req.Location, monthly, p.Confidence())
}

// failingProvider never returns a profile.
type failingProvider struct {
	source types.IrradiationSource
}

func (p failingProvider) Source() types.IrradiationSource { return p.source }
func (p failingProvider) Confidence() float64             { return 0.9 }
func (p failingProvider) Timeout() time.Duration          { return time.Second }
func (p failingProvider) Supports(types.Location) bool    { return true }

func (p failingProvider) Fetch(ctx context.Context, req irradiation.Request) (types.IrradiationProfile, error) {
	return types.IrradiationProfile{}, fmt.Errorf("%w: upstream returned 503", types.ErrProviderUnavailable)
}

var saoPaulo = types.Location{Latitude: -23.55, Longitude: -46.63}

// newTestServer returns a server without authentication backed by the
// regional table, a fixed NASA POWER stand-in and a mock database.
func newTestServer(t *testing.T) (*Server, *storagemock.MockDatabase) {
	t.Helper()
	db := &storagemock.MockDatabase{}
	r := irradiation.New(
		irradiation.NoCache(),
		nil,
		irradiation.DefaultRegionalTable(),
		fixedProvider{source: types.IrradiationSourceNASA, daily: 5},
	)
	r.SetBulkDelay(0)
	srv := newServer(r, utility.NewDefaultMap(), equipment.DefaultFileCatalog(), db, metrics.NewCollector("test"))
	srv.bypassAuth = true
	return srv, db
}

func currentSettings(t *testing.T) types.Settings {
	t.Helper()
	s, _, err := types.MigrateSettings(types.Settings{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func twelve(v float64) []float64 {
	s := make([]float64, 12)
	for i := range s {
		s[i] = v
	}
	return s
}
