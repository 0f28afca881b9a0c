package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/heliometric/heliometric/pkg/metrics"
	"github.com/heliometric/heliometric/pkg/types"
	"github.com/levenlabs/go-lflag"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrAnalysisNotFound = errors.New("analysis not found")
)

const (
	// DefaultListLimit is used by ListAnalyses when limit is zero.
	DefaultListLimit = 50
	maxListLimit     = 500
)

// Database defines the interface for persisting team settings, users and
// saved analyses.
type Database interface {
	// Settings
	GetSettings(ctx context.Context, teamID string) (types.Settings, int, error)
	SetSettings(ctx context.Context, teamID string, settings types.Settings, version int) error

	// Analyses
	// SaveAnalysis stores the result under its ID, replacing a previous save.
	SaveAnalysis(ctx context.Context, teamID string, result types.AnalysisResult) error
	GetAnalysis(ctx context.Context, teamID, id string) (types.AnalysisResult, error)
	// ListAnalyses returns the newest analyses first. An empty projectID lists
	// every project of the team.
	ListAnalyses(ctx context.Context, teamID, projectID string, limit int) ([]types.AnalysisSummary, error)

	// Users
	GetUser(ctx context.Context, userID string) (types.User, error)
	UpsertUser(ctx context.Context, user types.User) error

	// Lifecycle
	Close() error
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return min(limit, maxListLimit)
}

func checkTeamID(teamID string) error {
	if teamID == "" {
		return fmt.Errorf("teamID cannot be empty")
	}
	return nil
}

// Configured sets up the Storage provider based on flags.
func Configured(m *metrics.Collector) Database {
	provider := lflag.String("storage-provider", "firestore", "Storage provider to use (available: firestore, postgres)")

	var p struct{ Database }

	fs := configuredFirestore()
	pg := configuredPostgres(m)

	lflag.Do(func() {
		switch *provider {
		case "firestore":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			p.Database = fs
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
		case "postgres":
			if err := pg.Validate(); err != nil {
				panic(fmt.Sprintf("postgres validation failed: %v", err))
			}
			p.Database = pg
			if err := pg.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("postgres init failed: %v", err))
			}
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}
