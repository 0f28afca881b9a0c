package utility

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/heliometric/heliometric/pkg/types"
	"github.com/levenlabs/go-lflag"
)

// Distributor builds tariffs for one electricity distributor.
type Distributor interface {
	// ID is the identifier used in settings and requests.
	ID() string

	// Info describes the distributor and its rates for listing.
	Info() types.UtilityProviderInfo

	// Tariff returns the tariff of rate with the options applied.
	Tariff(rate string, opts types.UtilityRateOptions) (types.TariffConfig, error)
}

// Configured sets up the distributors from the embedded tariff table or the
// file passed in utility-tariffs-file.
func Configured() *Map {
	m := NewMap()
	file := lflag.String("utility-tariffs-file", "", "YAML tariff table replacing the bundled one")

	lflag.Do(func() {
		ds := DefaultCatalog()
		if *file != "" {
			b, err := os.ReadFile(*file)
			if err != nil {
				panic(fmt.Errorf("failed to read utility-tariffs-file: %w", err))
			}
			ds, err = ParseCatalog(b)
			if err != nil {
				panic(err)
			}
		}
		for _, d := range ds {
			m.SetProvider(d.ID(), d)
		}
	})
	return m
}

// Map manages the distributors.
type Map struct {
	mu           sync.Mutex
	distributors map[string]Distributor
}

// NewMap creates a new empty Map.
func NewMap() *Map {
	return &Map{
		distributors: make(map[string]Distributor),
	}
}

// NewDefaultMap creates a Map holding the embedded catalog.
func NewDefaultMap() *Map {
	m := NewMap()
	for _, d := range DefaultCatalog() {
		m.SetProvider(d.ID(), d)
	}
	return m
}

// Provider returns the distributor for the given id.
func (m *Map) Provider(id string) (Distributor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d, ok := m.distributors[id]; ok {
		return d, nil
	}
	return nil, types.NewValidationError("utilityProvider", "unknown utility provider %q", id)
}

// Tariff returns the tariff of rate offered by provider.
func (m *Map) Tariff(provider, rate string, opts types.UtilityRateOptions) (types.TariffConfig, error) {
	d, err := m.Provider(provider)
	if err != nil {
		return types.TariffConfig{}, err
	}
	return d.Tariff(rate, opts)
}

// ListUtilities returns the info of every distributor sorted by id.
func (m *Map) ListUtilities() []types.UtilityProviderInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]types.UtilityProviderInfo, 0, len(m.distributors))
	for _, d := range m.distributors {
		out = append(out, d.Info())
	}
	slices.SortFunc(out, func(a, b types.UtilityProviderInfo) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// SetProvider sets the distributor for the given id. This is primarily used for testing.
func (m *Map) SetProvider(id string, d Distributor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.distributors[id] = d
}
