package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/heliometric/heliometric/pkg/analysis"
	"github.com/heliometric/heliometric/pkg/equipment"
	"github.com/heliometric/heliometric/pkg/irradiation"
	"github.com/heliometric/heliometric/pkg/log"
	"github.com/heliometric/heliometric/pkg/metrics"
	"github.com/heliometric/heliometric/pkg/storage"
	"github.com/heliometric/heliometric/pkg/types"
	"github.com/heliometric/heliometric/pkg/utility"
	"github.com/levenlabs/go-lflag"
)

// maxBulkLocations bounds a single bulk irradiation request.
const maxBulkLocations = 100

type contextKey string

const (
	teamIDContextKey contextKey = "teamID"
	userContextKey   contextKey = "user"
)

// identity is what a verified ID token says about the caller.
type identity struct {
	Subject string
	Email   string
}

// tokenVerifier is a function that validates an OIDC ID Token.
type tokenVerifier func(ctx context.Context, rawIDToken string) (identity, error)

func oidcVerifier(v *oidc.IDTokenVerifier) tokenVerifier {
	return func(ctx context.Context, rawIDToken string) (identity, error) {
		idToken, err := v.Verify(ctx, rawIDToken)
		if err != nil {
			return identity{}, err
		}
		var claims struct {
			Email string `json:"email"`
		}
		if err := idToken.Claims(&claims); err != nil {
			return identity{}, fmt.Errorf("failed to parse claims: %w", err)
		}
		return identity{Subject: idToken.Subject, Email: claims.Email}, nil
	}
}

// Server handles the HTTP API of the analysis engine. It wires the
// irradiation reconciler, equipment catalog, utility tariffs and storage.
type Server struct {
	engine      *analysis.Engine
	irradiation *irradiation.Reconciler
	utilities   *utility.Map
	catalog     equipment.Catalog
	storage     storage.Database
	metrics     *metrics.Collector

	listenAddr string
	httpServer *http.Server

	oidcAudiences map[string]string
	oidcVerifiers map[string]tokenVerifier
	bypassAuth    bool
	singleTeam    bool
	corsOrigins   []string
	serverName    string

	// endpoints holds the registered API paths, used as metric labels
	endpoints map[string]bool
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(r *irradiation.Reconciler, u *utility.Map, c equipment.Catalog, s storage.Database, m *metrics.Collector) *Server {
	srv := newServer(r, u, c, s, m)
	revision := os.Getenv("K_REVISION")
	if revision != "" {
		srv.serverName = revision
	}

	// get the port from PORT when running in cloud run
	port := os.Getenv("PORT")
	if port == "" {
		// otherwise default to 8080
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	oidcAudience := lflag.String("oidc-audience", "", "Google client ID to validate id token audiences against")
	oidcAudiences := map[string]string{}
	lflag.JSON(&oidcAudiences, "oidc-audiences", oidcAudiences, "JSON map of provider (google/apple) to audience/client ID")
	singleTeam := lflag.Bool("single-team", false, "Enable single-team mode (disables teamID requirement)")
	corsOrigins := lflag.String("cors-allowed-origins", "", "comma-delimited list of origins allowed to call the API from a browser")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		if len(oidcAudiences) == 0 && *oidcAudience != "" {
			oidcAudiences = map[string]string{"google": *oidcAudience}
		}
		if len(oidcAudiences) > 0 {
			srv.oidcAudiences = make(map[string]string, len(oidcAudiences))
			srv.oidcVerifiers = make(map[string]tokenVerifier, len(oidcAudiences))
			for n, a := range oidcAudiences {
				var issuer string
				switch n {
				case "google":
					issuer = "https://accounts.google.com"
				case "apple":
					issuer = "https://appleid.apple.com"
				default:
					log.Ctx(context.Background()).Error("unsupported oidc audience client", slog.String("client", n))
					os.Exit(1)
				}
				provider, err := oidc.NewProvider(context.Background(), issuer)
				if err != nil {
					log.Ctx(context.Background()).Error("failed to initialize OIDC provider", slog.String("client", n), slog.Any("error", err))
					os.Exit(1)
				}
				srv.oidcVerifiers[n] = oidcVerifier(provider.Verifier(&oidc.Config{ClientID: a}))
				srv.oidcAudiences[n] = a
			}
		}
		srv.singleTeam = *singleTeam
		if *corsOrigins != "" {
			for _, o := range strings.Split(*corsOrigins, ",") {
				if o = strings.TrimSpace(o); o != "" {
					srv.corsOrigins = append(srv.corsOrigins, o)
				}
			}
		}

		// without any identity provider there is nobody to authenticate
		if len(srv.oidcVerifiers) == 0 {
			log.Ctx(context.Background()).Warn("no oidc audiences configured, authentication is bypassed")
			srv.bypassAuth = true
		}
	})

	return srv
}

func newServer(r *irradiation.Reconciler, u *utility.Map, c equipment.Catalog, s storage.Database, m *metrics.Collector) *Server {
	return &Server{
		engine:      analysis.New(r, c, u, m),
		irradiation: r,
		utilities:   u,
		catalog:     c,
		storage:     s,
		metrics:     m,
		serverName:  "heliometric",
	}
}

func (s *Server) setupHandler() http.Handler {
	apiMux := http.NewServeMux()
	s.endpoints = map[string]bool{}
	handle := func(pattern string, h http.HandlerFunc) {
		apiMux.HandleFunc(pattern, h)
		_, path, _ := strings.Cut(pattern, " ")
		s.endpoints[path] = true
	}
	handle("POST /api/analysis", s.handleAnalyze)
	handle("GET /api/analysis", s.handleGetAnalysis)
	handle("GET /api/analyses", s.handleListAnalyses)
	handle("POST /api/irradiation/resolve", s.handleResolveIrradiation)
	handle("POST /api/irradiation/compare", s.handleCompareIrradiation)
	handle("POST /api/irradiation/bulk", s.handleBulkIrradiation)
	handle("POST /api/mppt/validate", s.handleValidateMPPT)
	handle("POST /api/financial", s.handleFinancial)
	handle("GET /api/list/utilities", s.handleListUtilities)
	handle("GET /api/list/sources", s.handleListSources)
	handle("GET /api/list/equipment", s.handleListEquipment)
	handle("GET /api/settings", s.handleGetSettings)
	handle("POST /api/settings", s.handleUpdateSettings)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.metricsMiddleware(s.authMiddleware(apiMux)))
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("GET /metrics", s.metrics.Handler())
	return s.revisionMiddleware(s.corsMiddleware(gziphandler.GzipHandler(s.securityHeadersMiddleware(mux))))
}

func (s *Server) getTeamID(r *http.Request) string {
	if teamID, ok := r.Context().Value(teamIDContextKey).(string); ok {
		return teamID
	}
	// we want to have a stack trace when this happens
	panic("no teamID in context")
}

func (s *Server) getUser(r *http.Request) types.User {
	if user, ok := r.Context().Value(userContextKey).(types.User); ok {
		return user
	}
	return types.User{}
}

// Run starts the HTTP server and blocks until the context is canceled or an error occurs.
// It also handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // bulk resolution is throttled
		IdleTimeout:  15 * time.Second,
	}

	// use a channel to capturing server errors
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		// Context canceled, shut down gracefully
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}
