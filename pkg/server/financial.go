package server

import (
	"net/http"

	"github.com/heliometric/heliometric/pkg/analysis"
)

type financialReq struct {
	Financial         analysis.FinancialRequest `json:"financial"`
	MonthlyGeneration [12]float64               `json:"monthlyGeneration"`
}

func (s *Server) handleFinancial(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req financialReq
	if !decodeBody(w, r, &req) {
		return
	}
	settings, err := s.getSettingsWithMigration(ctx, s.getTeamID(r))
	if err != nil {
		writeError(ctx, w, "failed to get settings", err)
		return
	}
	req.Financial.ApplySettings(settings)

	res, err := s.engine.Financial(ctx, req.Financial, req.MonthlyGeneration)
	if err != nil {
		writeError(ctx, w, "failed to run financial analysis", err)
		return
	}
	writeJSON(w, res)
}
