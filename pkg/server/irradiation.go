package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/heliometric/heliometric/pkg/irradiation"
	"github.com/heliometric/heliometric/pkg/log"
	"github.com/heliometric/heliometric/pkg/types"
)

type resolveReq struct {
	irradiation.Request
	Source   types.IrradiationSource `json:"source"`
	UseCache *bool                   `json:"useCache"`
}

func (s *Server) handleResolveIrradiation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req resolveReq
	if !decodeBody(w, r, &req) {
		return
	}
	useCache := true
	if req.UseCache != nil {
		useCache = *req.UseCache
	}
	profile, err := s.irradiation.Resolve(ctx, req.Request, req.Source, useCache)
	if err != nil {
		writeError(ctx, w, "failed to resolve irradiation", err)
		return
	}
	writeJSON(w, profile)
}

func (s *Server) handleCompareIrradiation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req irradiation.Request
	if !decodeBody(w, r, &req) {
		return
	}
	cmp, err := s.irradiation.CompareSources(ctx, req)
	if errors.Is(err, types.ErrInsufficientSources) {
		// what did succeed is still worth showing
		log.Ctx(ctx).WarnContext(ctx, "not enough sources to compare", slog.Any("error", err))
		profiles := cmp.Profiles
		if profiles == nil {
			profiles = []types.IrradiationProfile{}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		writeJSON(w, partialComparisonRes{
			Error:    err.Error(),
			Outcomes: cmp.Outcomes,
			Profiles: profiles,
		})
		return
	}
	if err != nil {
		writeError(ctx, w, "failed to compare irradiation sources", err)
		return
	}
	writeJSON(w, cmp)
}

type partialComparisonRes struct {
	Error    string                        `json:"error"`
	Outcomes []irradiation.ProviderOutcome `json:"outcomes"`
	Profiles []types.IrradiationProfile    `json:"profiles"`
}

type bulkReq struct {
	Locations []irradiation.Request   `json:"locations"`
	Source    types.IrradiationSource `json:"source"`
}

type bulkRes struct {
	Results []irradiation.BulkResult `json:"results"`
}

func (s *Server) handleBulkIrradiation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req bulkReq
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Locations) == 0 {
		writeJSONError(w, "locations required", http.StatusBadRequest)
		return
	}
	if len(req.Locations) > maxBulkLocations {
		writeJSONError(w, fmt.Sprintf("at most %d locations per request", maxBulkLocations), http.StatusBadRequest)
		return
	}
	if req.Source != "" {
		if _, err := types.ParseIrradiationSource(string(req.Source)); err != nil {
			writeError(ctx, w, "invalid source", err)
			return
		}
	}
	writeJSON(w, bulkRes{Results: s.irradiation.ResolveBulk(ctx, req.Locations, req.Source)})
}
