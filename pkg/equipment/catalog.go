package equipment

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/levenlabs/go-lflag"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Catalog is a read-only view of the equipment catalog. Records not visible
// to the team and user are reported as ErrNotFound.
type Catalog interface {
	Get(ctx context.Context, id, teamID, userID string) (Equipment, error)
	List(ctx context.Context, kind Kind, teamID, userID string) ([]Equipment, error)
}

// FileCatalog is a Catalog loaded from a YAML fixture.
type FileCatalog struct {
	records map[string]Equipment
}

// Configured loads the catalog from equipment-catalog-file, or the bundled
// fixture when it is empty.
func Configured() *FileCatalog {
	c := &FileCatalog{}
	file := lflag.String("equipment-catalog-file", "", "YAML equipment catalog replacing the bundled fixture")

	lflag.Do(func() {
		b := defaultCatalogYAML
		if *file != "" {
			var err error
			b, err = os.ReadFile(*file)
			if err != nil {
				panic(fmt.Errorf("failed to read equipment-catalog-file: %w", err))
			}
		}
		loaded, err := NewFileCatalog(b)
		if err != nil {
			panic(err)
		}
		*c = *loaded
	})
	return c
}

// NewFileCatalog parses and validates every record of a YAML catalog.
func NewFileCatalog(b []byte) (*FileCatalog, error) {
	var doc struct {
		Equipment []Equipment `yaml:"equipment"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse equipment catalog: %w", err)
	}
	c := &FileCatalog{records: make(map[string]Equipment, len(doc.Equipment))}
	for i, e := range doc.Equipment {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("invalid equipment catalog record %d: %w", i, err)
		}
		if _, ok := c.records[e.ID]; ok {
			return nil, fmt.Errorf("duplicate equipment catalog record %s", e.ID)
		}
		c.records[e.ID] = e
	}
	return c, nil
}

// DefaultFileCatalog returns the bundled fixture catalog.
func DefaultFileCatalog() *FileCatalog {
	c, err := NewFileCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Errorf("invalid embedded equipment catalog: %w", err))
	}
	return c
}

func (c *FileCatalog) Get(ctx context.Context, id, teamID, userID string) (Equipment, error) {
	e, ok := c.records[id]
	if !ok || !e.Owner.VisibleTo(teamID, userID) {
		return Equipment{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, nil
}

// List returns the visible records of kind sorted by id. An empty kind lists
// every kind.
func (c *FileCatalog) List(ctx context.Context, kind Kind, teamID, userID string) ([]Equipment, error) {
	out := []Equipment{}
	for _, e := range c.records {
		if kind != "" && e.Kind != kind {
			continue
		}
		if !e.Owner.VisibleTo(teamID, userID) {
			continue
		}
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Equipment) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}
