package server

import (
	"net/http"

	"github.com/heliometric/heliometric/pkg/mppt"
	"github.com/heliometric/heliometric/pkg/types"
)

type mpptReq struct {
	Module            types.ModuleSelection     `json:"module"`
	Inverters         []types.InverterSelection `json:"inverters"`
	ModuleCount       int                       `json:"moduleCount"`
	ReferenceMinTempC *float64                  `json:"referenceMinTempC"`
}

func (s *Server) handleValidateMPPT(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req mpptReq
	if !decodeBody(w, r, &req) {
		return
	}
	refTemp := mppt.DefaultReferenceMinTempC
	if req.ReferenceMinTempC != nil {
		refTemp = *req.ReferenceMinTempC
	}
	// duplicates of one model collapse into a single entry
	inverters := mppt.NewSelection(req.Inverters...).Items()
	res, err := mppt.Validate(req.Module, inverters, req.ModuleCount, refTemp)
	if err != nil {
		writeError(ctx, w, "failed to validate mppt", err)
		return
	}
	writeJSON(w, res)
}
