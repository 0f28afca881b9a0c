package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/heliometric/heliometric/pkg/log"
	"github.com/heliometric/heliometric/pkg/types"
)

// getSettingsWithMigration returns the team settings migrated to the current
// version. Migrated settings are saved on a best effort basis.
func (s *Server) getSettingsWithMigration(ctx context.Context, teamID string) (types.Settings, error) {
	settings, version, err := s.storage.GetSettings(ctx, teamID)
	if err != nil {
		return types.Settings{}, fmt.Errorf("failed to get settings: %w", err)
	}
	if version >= types.CurrentSettingsVersion {
		return settings, nil
	}

	log.Ctx(ctx).InfoContext(ctx, "migrating settings", slog.Int("oldVersion", version), slog.Int("newVersion", types.CurrentSettingsVersion))
	newSettings, changed, err := types.MigrateSettings(settings, version)
	if err != nil {
		// Log error but return settings as is (best effort)
		log.Ctx(ctx).ErrorContext(ctx, "failed to migrate settings", slog.Int("currentVersion", version), slog.Any("error", err))
		return settings, nil
	}
	if !changed {
		return settings, nil
	}
	if err := s.storage.SetSettings(ctx, teamID, newSettings, types.CurrentSettingsVersion); err != nil {
		// Return migrated settings even if save failed, so current request works with new defaults
		log.Ctx(ctx).ErrorContext(ctx, "failed to save migrated settings", slog.Any("error", err))
	} else {
		log.Ctx(ctx).InfoContext(ctx, "saved migrated settings", slog.Int("oldVersion", version), slog.Int("newVersion", types.CurrentSettingsVersion))
	}
	return newSettings, nil
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	settings, err := s.getSettingsWithMigration(ctx, s.getTeamID(r))
	if err != nil {
		writeError(ctx, w, "failed to get settings", err)
		return
	}
	writeJSON(w, settings)
}

type updateSettingsReq struct {
	TeamID string `json:"teamID"`
	types.Settings
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	teamID := s.getTeamID(r)

	var req updateSettingsReq
	if !decodeBody(w, r, &req) {
		return
	}
	newSettings := req.Settings
	if err := newSettings.Validate(); err != nil {
		writeError(ctx, w, "invalid settings", err)
		return
	}
	if newSettings.UtilityProvider != "" {
		if _, err := s.utilities.Tariff(newSettings.UtilityProvider, newSettings.UtilityRate, newSettings.UtilityRateOptions); err != nil {
			log.Ctx(ctx).InfoContext(ctx, "invalid utility settings", slog.String("utilityProvider", newSettings.UtilityProvider), slog.Any("error", err))
			writeError(ctx, w, "invalid utility settings", err)
			return
		}
	}

	if err := s.storage.SetSettings(ctx, teamID, newSettings, types.CurrentSettingsVersion); err != nil {
		writeError(ctx, w, "failed to save settings", err)
		return
	}
	log.Ctx(ctx).InfoContext(ctx, "settings updated", slog.String("userID", s.getUser(r).ID))

	w.WriteHeader(http.StatusOK)
}
