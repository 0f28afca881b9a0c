package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/heliometric/heliometric/pkg/log"
	"github.com/heliometric/heliometric/pkg/storage"
	"github.com/heliometric/heliometric/pkg/types"
)

// maxBodyBytes limits every request body.
const maxBodyBytes = 1 << 20

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(http.ErrAbortHandler)
	}
}

type validationErrorRes struct {
	Error string `json:"error"`
	Field string `json:"field"`
}

// writeError maps engine errors onto status codes. Validation failures carry
// the offending field.
func writeError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	var ve *types.ValidationError
	switch {
	case errors.As(err, &ve):
		log.Ctx(ctx).InfoContext(ctx, "invalid request", slog.String("field", ve.Field), slog.String("message", ve.Message))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		if err := json.NewEncoder(w).Encode(validationErrorRes{Error: ve.Error(), Field: ve.Field}); err != nil {
			panic(http.ErrAbortHandler)
		}
	case errors.Is(err, types.ErrNoDataAvailable), errors.Is(err, types.ErrInsufficientSources):
		log.Ctx(ctx).WarnContext(ctx, msg, slog.Any("error", err))
		writeJSONError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, storage.ErrAnalysisNotFound):
		writeJSONError(w, "analysis not found", http.StatusNotFound)
	case errors.Is(err, context.Canceled):
		// the client went away, nobody reads the response
		log.Ctx(ctx).InfoContext(ctx, msg, slog.Any("error", err))
		panic(http.ErrAbortHandler)
	default:
		log.Ctx(ctx).ErrorContext(ctx, msg, slog.Any("error", err))
		writeJSONError(w, msg, http.StatusInternalServerError)
	}
}

// decodeBody decodes the JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		log.Ctx(r.Context()).WarnContext(r.Context(), "failed to decode request body", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}
