package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/heliometric/heliometric/pkg/analysis"
	"github.com/heliometric/heliometric/pkg/equipment"
	"github.com/heliometric/heliometric/pkg/irradiation"
	"github.com/heliometric/heliometric/pkg/log"
	"github.com/heliometric/heliometric/pkg/storage"
	"github.com/heliometric/heliometric/pkg/types"
	"github.com/heliometric/heliometric/pkg/utility"
	"github.com/levenlabs/go-lflag"
)

// cities seeded with one analysis each
var cities = []struct {
	project string
	loc     types.Location
}{
	{"sao-paulo", types.Location{Latitude: -23.55, Longitude: -46.63}},
	{"belo-horizonte", types.Location{Latitude: -19.92, Longitude: -43.94}},
	{"curitiba", types.Location{Latitude: -25.43, Longitude: -49.27}},
	{"fortaleza", types.Location{Latitude: -3.73, Longitude: -38.52}},
}

func main() {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		os.Setenv("FIRESTORE_EMULATOR_HOST", "127.0.0.1:8087")
	}
	s := storage.Configured(nil)
	userID := lflag.String("seed-user-id", "dev-user", "ID of the seeded user")
	email := lflag.String("seed-email", "dev@example.com", "Email of the seeded user")
	teamID := lflag.String("seed-team-id", types.TeamIDNone, "Team the seeded data belongs to")
	lflag.Configure()

	ctx := context.Background()
	log.Ctx(ctx).InfoContext(ctx, "seeding mock data")

	if err := seed(ctx, s, *userID, *email, *teamID); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed", "error", err)
		os.Exit(1)
	}
	if err := s.Close(); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", "error", err)
	}
	log.Ctx(ctx).InfoContext(ctx, "seeding complete")
}

func seed(ctx context.Context, s storage.Database, userID, email, teamID string) error {
	if err := s.UpsertUser(ctx, types.User{ID: userID, Email: email, TeamIDs: []string{teamID}}); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	settings, _, err := types.MigrateSettings(types.Settings{
		UtilityProvider: "cemig",
		UtilityRate:     "cemig_b1",
	}, 0)
	if err != nil {
		return fmt.Errorf("failed to build settings: %w", err)
	}
	// the seed runs offline so only the regional table is consulted
	settings.PreferredSource = types.IrradiationSourceRegional
	if err := s.SetSettings(ctx, teamID, settings, types.CurrentSettingsVersion); err != nil {
		return fmt.Errorf("failed to set settings: %w", err)
	}

	engine := analysis.New(
		irradiation.New(irradiation.NoCache(), nil, irradiation.DefaultRegionalTable()),
		equipment.DefaultFileCatalog(),
		utility.NewDefaultMap(),
		nil,
	)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for _, c := range cities {
		size := 3 + float64(rng.Intn(10))
		consumption := make([]float64, 12)
		for i := range consumption {
			consumption[i] = size*110 + rng.Float64()*100
		}
		req := analysis.Request{
			ProjectID:    c.project,
			TeamID:       teamID,
			UserID:       userID,
			Location:     c.loc,
			SystemSizeKW: size,
			Financial: &analysis.FinancialRequest{
				InitialInvestment: size * 3800,
				Consumption:       consumption,
			},
		}
		req.ApplySettings(settings)
		res, err := engine.Analyze(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to analyze %s: %w", c.project, err)
		}
		if err := s.SaveAnalysis(ctx, teamID, res); err != nil {
			return fmt.Errorf("failed to save analysis %s: %w", c.project, err)
		}
		log.Ctx(ctx).InfoContext(ctx, "seeded analysis", "projectID", c.project, "id", res.ID)
	}
	return nil
}
