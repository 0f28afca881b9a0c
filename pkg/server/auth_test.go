package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/heliometric/heliometric/pkg/storage"
	"github.com/heliometric/heliometric/pkg/storage/storagemock"
	"github.com/heliometric/heliometric/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestAuthMiddleware(t *testing.T) {
	db := &storagemock.MockDatabase{}
	db.On("GetUser", mock.Anything, "user-1").Return(types.User{
		ID:      "user-1",
		Email:   "one@example.com",
		TeamIDs: []string{"team-a"},
	}, nil)
	db.On("GetUser", mock.Anything, "user-2").Return(types.User{
		ID:      "user-2",
		Email:   "two@example.com",
		TeamIDs: []string{"team-a", "team-b"},
	}, nil)
	db.On("GetUser", mock.Anything, "ghost").Return(types.User{}, fmt.Errorf("%w: ghost", storage.ErrUserNotFound))

	verify := func(ctx context.Context, token string) (identity, error) {
		switch token {
		case "token-1":
			return identity{Subject: "user-1", Email: "one@example.com"}, nil
		case "token-2":
			return identity{Subject: "user-2", Email: "two@example.com"}, nil
		case "token-ghost":
			return identity{Subject: "ghost"}, nil
		}
		return identity{}, errors.New("bad token")
	}

	newSrv := func() *Server {
		return &Server{
			storage:       db,
			oidcVerifiers: map[string]tokenVerifier{"google": verify},
		}
	}

	var gotBody string
	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		teamID, _ := r.Context().Value(teamIDContextKey).(string)
		w.Header().Set("X-Team-ID", teamID)
		user, _ := r.Context().Value(userContextKey).(types.User)
		w.Header().Set("X-User-ID", user.ID)
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	})

	do := func(srv *Server, method, url, body, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, url, bytes.NewBufferString(body))
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		srv.authMiddleware(testHandler).ServeHTTP(w, req)
		return w
	}

	t.Run("Bypass defaults team", func(t *testing.T) {
		srv := newSrv()
		srv.bypassAuth = true
		w := do(srv, "GET", "/api/settings", "", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, types.TeamIDNone, w.Header().Get("X-Team-ID"))
	})

	t.Run("Public path without token", func(t *testing.T) {
		w := do(newSrv(), "GET", "/api/list/utilities", "", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-Team-ID"))
	})

	t.Run("Missing token", func(t *testing.T) {
		w := do(newSrv(), "GET", "/api/settings?teamID=team-a", "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Malformed header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/settings", nil)
		req.Header.Set("Authorization", "Basic abc")
		w := httptest.NewRecorder()
		newSrv().authMiddleware(testHandler).ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Invalid token", func(t *testing.T) {
		w := do(newSrv(), "GET", "/api/settings", "", "nope")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Single team", func(t *testing.T) {
		srv := newSrv()
		srv.singleTeam = true
		w := do(srv, "GET", "/api/settings?teamID=whatever", "", "token-ghost")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, types.TeamIDNone, w.Header().Get("X-Team-ID"))
		assert.Equal(t, "ghost", w.Header().Get("X-User-ID"))
	})

	t.Run("Only team is the default", func(t *testing.T) {
		w := do(newSrv(), "GET", "/api/settings", "", "token-1")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "team-a", w.Header().Get("X-Team-ID"))
		assert.Equal(t, "user-1", w.Header().Get("X-User-ID"))
	})

	t.Run("Team required with several teams", func(t *testing.T) {
		w := do(newSrv(), "GET", "/api/settings", "", "token-2")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Team not required for sizing", func(t *testing.T) {
		w := do(newSrv(), "POST", "/api/mppt/validate", `{}`, "token-2")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-Team-ID"))
	})

	t.Run("Team from body is preserved", func(t *testing.T) {
		body := `{"teamID":"team-b","systemSizeKW":5}`
		w := do(newSrv(), "POST", "/api/analysis", body, "token-2")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "team-b", w.Header().Get("X-Team-ID"))
		assert.Equal(t, body, gotBody)
	})

	t.Run("Not a member", func(t *testing.T) {
		w := do(newSrv(), "GET", "/api/settings?teamID=team-b", "", "token-1")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Unknown user", func(t *testing.T) {
		w := do(newSrv(), "GET", "/api/settings?teamID=team-a", "", "token-ghost")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Invalid body", func(t *testing.T) {
		w := do(newSrv(), "POST", "/api/analysis", `{"teamID":`, "token-1")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthenticateToken(t *testing.T) {
	srv := &Server{}
	_, err := srv.authenticateToken(context.Background(), "x")
	assert.ErrorContains(t, err, "no valid audiences")

	srv.oidcVerifiers = map[string]tokenVerifier{
		"apple": func(context.Context, string) (identity, error) {
			return identity{}, errors.New("expired")
		},
	}
	_, err = srv.authenticateToken(context.Background(), "x")
	assert.ErrorContains(t, err, "apple verifier failed: expired")
}
