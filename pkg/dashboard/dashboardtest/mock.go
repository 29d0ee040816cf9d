// Package dashboardtest provides a testify mock of the dashboard client for
// engine and command tests.
package dashboardtest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/AnthusAI/plexus-feedback/pkg/dashboard"
)

// MockClient is a mock implementation of dashboard.Client.
type MockClient struct {
	mock.Mock
}

var _ dashboard.Client = (*MockClient)(nil)

func (m *MockClient) GetScorecard(ctx context.Context, id string) (*dashboard.Scorecard, error) {
	args := m.Called(ctx, id)
	if sc := args.Get(0); sc != nil {
		return sc.(*dashboard.Scorecard), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) ListScorecards(ctx context.Context, accountID string) ([]dashboard.Scorecard, error) {
	args := m.Called(ctx, accountID)
	if v := args.Get(0); v != nil {
		return v.([]dashboard.Scorecard), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) GetFeedbackItem(ctx context.Context, id string) (*dashboard.FeedbackItem, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*dashboard.FeedbackItem), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) ListFeedbackByScore(ctx context.Context, q dashboard.FeedbackQuery) (*dashboard.FeedbackPage, error) {
	args := m.Called(ctx, q)
	if v := args.Get(0); v != nil {
		return v.(*dashboard.FeedbackPage), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) ListFeedbackFiltered(ctx context.Context, q dashboard.FeedbackFilter) (*dashboard.FeedbackPage, error) {
	args := m.Called(ctx, q)
	if v := args.Get(0); v != nil {
		return v.(*dashboard.FeedbackPage), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) ListFeedbackByCacheKey(ctx context.Context, scoreID, cacheKey string) ([]dashboard.FeedbackItem, error) {
	args := m.Called(ctx, scoreID, cacheKey)
	if v := args.Get(0); v != nil {
		return v.([]dashboard.FeedbackItem), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) CreateFeedbackItem(ctx context.Context, input map[string]any) (*dashboard.FeedbackItem, error) {
	args := m.Called(ctx, input)
	if v := args.Get(0); v != nil {
		return v.(*dashboard.FeedbackItem), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) UpdateFeedbackItem(ctx context.Context, id string, patch map[string]any) (*dashboard.FeedbackItem, error) {
	args := m.Called(ctx, id, patch)
	if v := args.Get(0); v != nil {
		return v.(*dashboard.FeedbackItem), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) GetItem(ctx context.Context, id string) (*dashboard.Item, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*dashboard.Item), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) CreateItem(ctx context.Context, input map[string]any) (*dashboard.Item, error) {
	args := m.Called(ctx, input)
	if v := args.Get(0); v != nil {
		return v.(*dashboard.Item), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) UpdateItem(ctx context.Context, id string, patch map[string]any) (*dashboard.Item, error) {
	args := m.Called(ctx, id, patch)
	if v := args.Get(0); v != nil {
		return v.(*dashboard.Item), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) CreateIdentifier(ctx context.Context, input map[string]any) (*dashboard.Identifier, error) {
	args := m.Called(ctx, input)
	if v := args.Get(0); v != nil {
		return v.(*dashboard.Identifier), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) ListIdentifiersByValue(ctx context.Context, accountID, value string) ([]dashboard.Identifier, error) {
	args := m.Called(ctx, accountID, value)
	if v := args.Get(0); v != nil {
		return v.([]dashboard.Identifier), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) ListItemsByExternalID(ctx context.Context, accountID, externalID string) ([]dashboard.Item, error) {
	args := m.Called(ctx, accountID, externalID)
	if v := args.Get(0); v != nil {
		return v.([]dashboard.Item), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) ListScoreResults(ctx context.Context, q dashboard.ScoreResultQuery) (*dashboard.ScoreResultPage, error) {
	args := m.Called(ctx, q)
	if v := args.Get(0); v != nil {
		return v.(*dashboard.ScoreResultPage), args.Error(1)
	}
	return nil, args.Error(1)
}
