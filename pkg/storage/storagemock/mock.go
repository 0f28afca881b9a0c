package storagemock

import (
	"context"

	"github.com/heliometric/heliometric/pkg/storage"
	"github.com/heliometric/heliometric/pkg/types"
	"github.com/stretchr/testify/mock"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) GetSettings(ctx context.Context, teamID string) (types.Settings, int, error) {
	args := m.Called(ctx, teamID)
	// return empty if not specified, or checks args
	if len(args) > 0 {
		return args.Get(0).(types.Settings), args.Int(1), args.Error(2)
	}
	return types.Settings{}, 0, nil
}

func (m *MockDatabase) SetSettings(ctx context.Context, teamID string, settings types.Settings, version int) error {
	args := m.Called(ctx, teamID, settings, version)
	return args.Error(0)
}

func (m *MockDatabase) SaveAnalysis(ctx context.Context, teamID string, result types.AnalysisResult) error {
	args := m.Called(ctx, teamID, result)
	return args.Error(0)
}

func (m *MockDatabase) GetAnalysis(ctx context.Context, teamID, id string) (types.AnalysisResult, error) {
	args := m.Called(ctx, teamID, id)
	return args.Get(0).(types.AnalysisResult), args.Error(1)
}

func (m *MockDatabase) ListAnalyses(ctx context.Context, teamID, projectID string, limit int) ([]types.AnalysisSummary, error) {
	args := m.Called(ctx, teamID, projectID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.AnalysisSummary), args.Error(1)
}

func (m *MockDatabase) GetUser(ctx context.Context, userID string) (types.User, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(types.User), args.Error(1)
}

func (m *MockDatabase) UpsertUser(ctx context.Context, user types.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
