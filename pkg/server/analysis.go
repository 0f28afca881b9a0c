package server

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/heliometric/heliometric/pkg/analysis"
	"github.com/heliometric/heliometric/pkg/log"
)

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	teamID := s.getTeamID(r)

	var req analysis.Request
	if !decodeBody(w, r, &req) {
		return
	}
	req.TeamID = teamID
	req.UserID = s.getUser(r).ID

	settings, err := s.getSettingsWithMigration(ctx, teamID)
	if err != nil {
		writeError(ctx, w, "failed to get settings", err)
		return
	}
	req.ApplySettings(settings)

	res, err := s.engine.Analyze(ctx, req)
	if err != nil {
		writeError(ctx, w, "failed to run analysis", err)
		return
	}
	if err := s.storage.SaveAnalysis(ctx, teamID, res); err != nil {
		writeError(ctx, w, "failed to save analysis", err)
		return
	}
	log.Ctx(ctx).InfoContext(ctx, "saved analysis", slog.String("id", res.ID))

	writeJSON(w, res)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSONError(w, "id required", http.StatusBadRequest)
		return
	}
	res, err := s.storage.GetAnalysis(ctx, s.getTeamID(r), id)
	if err != nil {
		writeError(ctx, w, "failed to get analysis", err)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var limit int
	if v := r.URL.Query().Get("limit"); v != "" {
		var err error
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeJSONError(w, "invalid limit", http.StatusBadRequest)
			return
		}
	}
	summaries, err := s.storage.ListAnalyses(ctx, s.getTeamID(r), r.URL.Query().Get("projectID"), limit)
	if err != nil {
		writeError(ctx, w, "failed to list analyses", err)
		return
	}
	writeJSON(w, summaries)
}
