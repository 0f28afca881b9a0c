package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/heliometric/heliometric/pkg/log"
	"github.com/heliometric/heliometric/pkg/storage"
	"github.com/heliometric/heliometric/pkg/types"
)

// publicPaths can be called without logging in.
var publicPaths = map[string]bool{
	"/api/list/utilities": true,
	"/api/list/sources":   true,
}

// teamPaths read or write team data and need a teamID.
var teamPaths = map[string]bool{
	"/api/analysis":  true,
	"/api/analyses":  true,
	"/api/financial": true,
	"/api/settings":  true,
}

// requestTeamID returns the teamID from the query for GET requests or from
// the JSON body otherwise. The body is restored for the next handler.
func requestTeamID(w http.ResponseWriter, r *http.Request) (string, error) {
	if r.Method == http.MethodGet {
		return r.URL.Query().Get("teamID"), nil
	}
	if r.Body == nil {
		return "", nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read request body: %w", err)
	}
	// restore body for next handler
	r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	if len(bodyBytes) == 0 {
		return "", nil
	}
	var justTeamID struct {
		TeamID string `json:"teamID"`
	}
	if err := json.Unmarshal(bodyBytes, &justTeamID); err != nil {
		return "", fmt.Errorf("failed to unmarshal request body: %w", err)
	}
	return justTeamID.TeamID, nil
}

func bearerToken(r *http.Request) (string, bool, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false, nil
	}
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || token == "" {
		return "", false, errors.New("invalid auth header")
	}
	return token, true, nil
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := log.WithAttrs(r.Context(), slog.String("reqPath", r.URL.Path))

		allowNoLogin := publicPaths[r.URL.Path]
		needsTeam := teamPaths[r.URL.Path]

		teamID, err := requestTeamID(w, r)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to read teamID", slog.Any("error", err))
			// since we failed to read, don't return JSON error
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		var user types.User
		switch {
		case s.bypassAuth:
			user = types.User{TeamIDs: []string{types.TeamIDNone}}
			if teamID == "" {
				teamID = types.TeamIDNone
			}
		default:
			token, found, err := bearerToken(r)
			if err != nil {
				log.Ctx(ctx).WarnContext(ctx, "invalid auth header", slog.Any("error", err))
				writeJSONError(w, "invalid auth header", http.StatusBadRequest)
				return
			}
			if !found {
				if !allowNoLogin {
					log.Ctx(ctx).WarnContext(ctx, "unauthenticated request")
					writeJSONError(w, "unauthorized", http.StatusUnauthorized)
					return
				}
				break
			}
			id, err := s.authenticateToken(ctx, token)
			if err != nil {
				log.Ctx(ctx).WarnContext(ctx, "auth token validation failed", slog.Any("error", err))
				writeJSONError(w, "invalid auth token", http.StatusUnauthorized)
				return
			}
			ctx = log.WithAttrs(ctx, slog.String("authUserID", id.Subject))

			if s.singleTeam {
				user = types.User{
					ID:      id.Subject,
					Email:   id.Email,
					TeamIDs: []string{types.TeamIDNone},
				}
				teamID = types.TeamIDNone
				break
			}

			user, err = s.storage.GetUser(ctx, id.Subject)
			if err != nil {
				if errors.Is(err, storage.ErrUserNotFound) {
					log.Ctx(ctx).WarnContext(ctx, "unknown user", slog.String("email", id.Email))
				} else {
					log.Ctx(ctx).ErrorContext(ctx, "user lookup failed", slog.Any("error", err))
				}
				writeJSONError(w, "user lookup failed", http.StatusForbidden)
				return
			}
			// fill in default teamID if the user only has 1 team
			if teamID == "" && len(user.TeamIDs) == 1 {
				teamID = user.TeamIDs[0]
			}
			if teamID != "" && !user.MemberOf(teamID) {
				log.Ctx(ctx).WarnContext(ctx, "user is not a member of team", slog.String("teamID", teamID))
				writeJSONError(w, "team access denied", http.StatusForbidden)
				return
			}
		}

		if teamID == "" && needsTeam {
			writeJSONError(w, "teamID required", http.StatusBadRequest)
			return
		}
		if teamID != "" {
			ctx = log.WithAttrs(ctx, slog.String("authTeamID", teamID))
		}
		log.Ctx(ctx).DebugContext(ctx, "authenticated request", slog.String("email", user.Email))

		ctx = context.WithValue(ctx, userContextKey, user)
		ctx = context.WithValue(ctx, teamIDContextKey, teamID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authenticateToken tries every configured verifier and returns the first
// identity that verifies.
func (s *Server) authenticateToken(ctx context.Context, token string) (identity, error) {
	var errs []error
	for providerName, verifier := range s.oidcVerifiers {
		id, err := verifier(ctx, token)
		if err == nil {
			return id, nil
		}
		errs = append(errs, fmt.Errorf("%s verifier failed: %w", providerName, err))
	}
	if len(errs) > 0 {
		return identity{}, errors.Join(errs...)
	}
	return identity{}, errors.New("no valid audiences configured or token invalid")
}
