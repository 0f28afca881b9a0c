package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/heliometric/heliometric/pkg/log"
	"github.com/heliometric/heliometric/pkg/types"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreProvider implements the Database interface using Google Cloud Firestore.
// Every record is stored as a JSON string next to the fields it is queried by.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// an empty project ID is detected from the environment
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreProvider) getCollection(teamID, name string) (*firestore.CollectionRef, error) {
	if err := checkTeamID(teamID); err != nil {
		return nil, err
	}
	return f.client.Collection("teams").Doc(teamID).Collection(name), nil
}

// docJSON decodes the "json" field of a document into v.
func docJSON(ctx context.Context, doc *firestore.DocumentSnapshot, v any) error {
	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "doc missing json", slog.String("path", doc.Ref.Path))
		return fmt.Errorf("document %s missing 'json' field: %w", doc.Ref.ID, err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "doc json not string", slog.String("path", doc.Ref.Path))
		return fmt.Errorf("document %s 'json' field is not a string", doc.Ref.ID)
	}
	if err := json.Unmarshal([]byte(jsonStr), v); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal doc json", slog.String("path", doc.Ref.Path), slog.Any("error", err))
		return fmt.Errorf("failed to unmarshal document %s: %w", doc.Ref.ID, err)
	}
	return nil
}

// GetSettings retrieves the team settings from the "config/settings" document.
func (f *FirestoreProvider) GetSettings(ctx context.Context, teamID string) (types.Settings, int, error) {
	coll, err := f.getCollection(teamID, "config")
	if err != nil {
		return types.Settings{}, 0, err
	}
	doc, err := coll.Doc("settings").Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			// zero settings at version 0 are migrated by the caller
			return types.Settings{}, 0, nil
		}
		return types.Settings{}, 0, fmt.Errorf("failed to fetch settings doc: %w", err)
	}

	// Read version if available (default 0)
	var version int
	if v, err := doc.DataAt("version"); err == nil {
		if vInt, ok := v.(int64); ok {
			version = int(vInt)
		}
	}

	var s types.Settings
	if err := docJSON(ctx, doc, &s); err != nil {
		return types.Settings{}, 0, err
	}
	return s, version, nil
}

// SetSettings saves the team settings to the "config/settings" document.
// It stores the settings as a JSON string for portability.
func (f *FirestoreProvider) SetSettings(ctx context.Context, teamID string, settings types.Settings, version int) error {
	jsonBytes, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	coll, err := f.getCollection(teamID, "config")
	if err != nil {
		return err
	}
	_, err = coll.Doc("settings").Set(ctx, map[string]interface{}{
		"json":    string(jsonBytes),
		"version": version,
	})
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// SaveAnalysis stores an analysis in the "analyses" sub-collection of the
// team keyed by its ID.
func (f *FirestoreProvider) SaveAnalysis(ctx context.Context, teamID string, result types.AnalysisResult) error {
	if result.ID == "" {
		return fmt.Errorf("analysis id cannot be empty")
	}
	jsonBytes, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}

	coll, err := f.getCollection(teamID, "analyses")
	if err != nil {
		return err
	}
	_, err = coll.Doc(result.ID).Set(ctx, map[string]interface{}{
		"json":             string(jsonBytes),
		"projectID":        result.ProjectID,
		"generatedAt":      result.GeneratedAt,
		"systemSizeKW":     result.SystemSizeKW,
		"annualGeneration": result.AnnualGeneration,
	})
	if err != nil {
		return fmt.Errorf("failed to save analysis %s: %w", result.ID, err)
	}
	return nil
}

// GetAnalysis retrieves a saved analysis.
func (f *FirestoreProvider) GetAnalysis(ctx context.Context, teamID, id string) (types.AnalysisResult, error) {
	coll, err := f.getCollection(teamID, "analyses")
	if err != nil {
		return types.AnalysisResult{}, err
	}
	doc, err := coll.Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.AnalysisResult{}, fmt.Errorf("%w: %s", ErrAnalysisNotFound, id)
		}
		return types.AnalysisResult{}, fmt.Errorf("failed to get analysis %s: %w", id, err)
	}
	var res types.AnalysisResult
	if err := docJSON(ctx, doc, &res); err != nil {
		return types.AnalysisResult{}, err
	}
	return res, nil
}

// ListAnalyses lists the saved analyses of a team, newest first. Filtering by
// project needs a composite index on (projectID, generatedAt desc).
func (f *FirestoreProvider) ListAnalyses(ctx context.Context, teamID, projectID string, limit int) ([]types.AnalysisSummary, error) {
	coll, err := f.getCollection(teamID, "analyses")
	if err != nil {
		return nil, err
	}
	q := coll.Query
	if projectID != "" {
		q = q.Where("projectID", "==", projectID)
	}
	iter := q.
		OrderBy("generatedAt", firestore.Desc).
		Limit(listLimit(limit)).
		Documents(ctx)
	defer iter.Stop()

	summaries := []types.AnalysisSummary{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating analyses: %w", err)
		}
		var res types.AnalysisResult
		if err := docJSON(ctx, doc, &res); err != nil {
			return nil, err
		}
		summaries = append(summaries, res.Summary())
	}
	return summaries, nil
}

// GetUser retrieves a user from the "users" collection.
func (f *FirestoreProvider) GetUser(ctx context.Context, userID string) (types.User, error) {
	if userID == "" {
		return types.User{}, fmt.Errorf("%w: empty id", ErrUserNotFound)
	}
	doc, err := f.client.Collection("users").Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.User{}, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		return types.User{}, fmt.Errorf("failed to get user %s: %w", userID, err)
	}

	var user types.User
	if err := docJSON(ctx, doc, &user); err != nil {
		return types.User{}, err
	}
	return user, nil
}

// UpsertUser creates or replaces a user document in the "users" collection.
func (f *FirestoreProvider) UpsertUser(ctx context.Context, user types.User) error {
	if user.ID == "" {
		return fmt.Errorf("user id cannot be empty")
	}
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user %s: %w", user.ID, err)
	}
	_, err = f.client.Collection("users").Doc(user.ID).Set(ctx, map[string]interface{}{
		"json": string(userJSON),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", user.ID, err)
	}
	return nil
}
