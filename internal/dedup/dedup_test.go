package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/AnthusAI/plexus-feedback/pkg/dashboard"
	"github.com/AnthusAI/plexus-feedback/pkg/dashboard/dashboardtest"
)

func TestHandleClass(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want string
	}{
		{name: "form ID", want: "form"},
		{name: "formId", want: "form"},
		{name: "form_id", want: "form"},
		{name: "FORM ID", want: "form"},
		{name: "report ID", want: "report"},
		{name: "session_id", want: "session"},
		{name: "CCQA ID", want: "other"},
		{name: "external ID", want: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, handleClass(tt.name))
		})
	}
}

func TestUpsertCreatesWhenNothingMatches(t *testing.T) {
	t.Parallel()

	client := &dashboardtest.MockClient{}
	client.On("ListIdentifiersByValue", mock.Anything, "acct-1", "f-123").
		Return([]dashboard.Identifier{}, nil)
	client.On("CreateItem", mock.Anything, mock.MatchedBy(func(input map[string]any) bool {
		return input["accountId"] == "acct-1" && input["createdByType"] == "prediction"
	})).Return(&dashboard.Item{ID: "item-new"}, nil)
	client.On("CreateIdentifier", mock.Anything, mock.MatchedBy(func(input map[string]any) bool {
		return input["itemId"] == "item-new" && input["name"] == "form ID" && input["position"] == 0
	})).Return(&dashboard.Identifier{ID: "ident-1"}, nil)

	itemID, created, err := New(client).Upsert(context.Background(), UpsertRequest{
		AccountID:   "acct-1",
		Identifiers: []Handle{{Name: "form ID", Value: "f-123"}},
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "item-new", itemID)
	client.AssertExpectations(t)
}

func TestUpsertIdempotent(t *testing.T) {
	t.Parallel()

	existing := &dashboard.Item{
		ID:          "item-1",
		Identifiers: dashboard.LegacyIdentifiers{{Name: "form ID", ID: "f-123"}},
	}

	client := &dashboardtest.MockClient{}
	client.On("ListIdentifiersByValue", mock.Anything, "acct-1", "f-123").
		Return([]dashboard.Identifier{{ID: "ident-1", ItemID: "item-1"}}, nil)
	client.On("GetItem", mock.Anything, "item-1").Return(existing, nil)

	itemID, created, err := New(client).Upsert(context.Background(), UpsertRequest{
		AccountID:   "acct-1",
		Identifiers: []Handle{{Name: "form ID", Value: "f-123"}},
	})
	require.NoError(t, err)
	assert.False(t, created, "second upsert resolves the existing item")
	assert.Equal(t, "item-1", itemID)
	client.AssertNotCalled(t, "CreateItem", mock.Anything, mock.Anything)
	client.AssertNotCalled(t, "UpdateItem", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpsertRejectsCrossContamination(t *testing.T) {
	t.Parallel()

	// The candidate shares the session handle value but belongs to a
	// different report; the broad match must not be accepted.
	candidate := &dashboard.Item{
		ID: "item-foreign",
		Identifiers: dashboard.LegacyIdentifiers{
			{Name: "report ID", ID: "r-OTHER"},
			{Name: "session ID", ID: "sess-9"},
		},
	}

	client := &dashboardtest.MockClient{}
	client.On("ListIdentifiersByValue", mock.Anything, "acct-1", "r-MINE").
		Return([]dashboard.Identifier{}, nil)
	client.On("ListIdentifiersByValue", mock.Anything, "acct-1", "sess-9").
		Return([]dashboard.Identifier{{ID: "ident-9", ItemID: "item-foreign"}}, nil)
	client.On("GetItem", mock.Anything, "item-foreign").Return(candidate, nil)
	client.On("CreateItem", mock.Anything, mock.Anything).Return(&dashboard.Item{ID: "item-new"}, nil)
	client.On("CreateIdentifier", mock.Anything, mock.Anything).Return(&dashboard.Identifier{}, nil)

	itemID, created, err := New(client).Upsert(context.Background(), UpsertRequest{
		AccountID: "acct-1",
		Identifiers: []Handle{
			{Name: "report ID", Value: "r-MINE"},
			{Name: "session ID", Value: "sess-9"},
		},
	})
	require.NoError(t, err)
	assert.True(t, created, "mismatched report handle forces a fresh item")
	assert.Equal(t, "item-new", itemID)
}

func TestUpsertFormMatchWithAgreeingReport(t *testing.T) {
	t.Parallel()

	candidate := &dashboard.Item{
		ID: "item-1",
		Identifiers: dashboard.LegacyIdentifiers{
			{Name: "form ID", ID: "f-1"},
			{Name: "report ID", ID: "R1"},
		},
	}

	client := &dashboardtest.MockClient{}
	client.On("ListIdentifiersByValue", mock.Anything, "acct-1", "f-1").
		Return([]dashboard.Identifier{{ItemID: "item-1"}}, nil)
	client.On("GetItem", mock.Anything, "item-1").Return(candidate, nil)

	itemID, created, err := New(client).Upsert(context.Background(), UpsertRequest{
		AccountID: "acct-1",
		Identifiers: []Handle{
			{Name: "form ID", Value: "f-1"},
			{Name: "report ID", Value: "R1"},
		},
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "item-1", itemID)
}

func TestUpsertFormMatchRejectedOnReportMismatch(t *testing.T) {
	t.Parallel()

	// Item X holds form 12345 under report R1. The same form value arriving
	// under report R2 fails relationship validation and forces a new item.
	candidate := &dashboard.Item{
		ID: "item-x",
		Identifiers: dashboard.LegacyIdentifiers{
			{Name: "form ID", ID: "12345"},
			{Name: "report ID", ID: "R1"},
		},
	}

	client := &dashboardtest.MockClient{}
	client.On("ListIdentifiersByValue", mock.Anything, "acct-1", "12345").
		Return([]dashboard.Identifier{{ItemID: "item-x"}}, nil)
	client.On("GetItem", mock.Anything, "item-x").Return(candidate, nil)
	client.On("ListIdentifiersByValue", mock.Anything, "acct-1", "R2").
		Return([]dashboard.Identifier{}, nil)
	client.On("CreateItem", mock.Anything, mock.Anything).Return(&dashboard.Item{ID: "item-new"}, nil)
	client.On("CreateIdentifier", mock.Anything, mock.Anything).Return(&dashboard.Identifier{}, nil)

	itemID, created, err := New(client).Upsert(context.Background(), UpsertRequest{
		AccountID: "acct-1",
		Identifiers: []Handle{
			{Name: "form ID", Value: "12345"},
			{Name: "report ID", Value: "R2"},
		},
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "item-new", itemID)
}

func TestUpsertExternalIDFallback(t *testing.T) {
	t.Parallel()

	newer := dashboard.Item{ID: "item-newer", ExternalID: "ext-7", UpdatedAt: time.Now()}
	older := dashboard.Item{ID: "item-older", ExternalID: "ext-7", UpdatedAt: time.Now().Add(-time.Hour)}

	client := &dashboardtest.MockClient{}
	client.On("ListItemsByExternalID", mock.Anything, "acct-1", "ext-7").
		Return([]dashboard.Item{older, newer}, nil)

	itemID, created, err := New(client).Upsert(context.Background(), UpsertRequest{
		AccountID:  "acct-1",
		ExternalID: "ext-7",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "item-newer", itemID, "duplicate externalIds resolve to the most recently updated")
}

func TestUpsertUpdateMergesNonEmptyFields(t *testing.T) {
	t.Parallel()

	existing := &dashboard.Item{
		ID:          "item-1",
		Text:        "old transcript",
		Metadata:    dashboard.JSONMap{"kept": "v1"},
		Identifiers: dashboard.LegacyIdentifiers{{Name: "form ID", ID: "f-1"}},
	}

	client := &dashboardtest.MockClient{}
	client.On("ListIdentifiersByValue", mock.Anything, "acct-1", "f-1").
		Return([]dashboard.Identifier{{ItemID: "item-1"}}, nil)
	client.On("GetItem", mock.Anything, "item-1").Return(existing, nil)
	client.On("UpdateItem", mock.Anything, "item-1", mock.MatchedBy(func(patch map[string]any) bool {
		_, hasText := patch["text"]
		_, hasMeta := patch["metadata"]
		return hasText && hasMeta
	})).Return(existing, nil)

	_, created, err := New(client).Upsert(context.Background(), UpsertRequest{
		AccountID:   "acct-1",
		Identifiers: []Handle{{Name: "form ID", Value: "f-1"}},
		Text:        "new transcript",
		Metadata:    map[string]any{"added": "v2"},
	})
	require.NoError(t, err)
	assert.False(t, created)
	client.AssertExpectations(t)
}

func TestRelationshipValid(t *testing.T) {
	t.Parallel()

	stored := dashboard.LegacyIdentifiers{
		{Name: "report ID", ID: "r-1"},
		{Name: "session ID", ID: "s-1"},
	}

	assert.True(t, relationshipValid([]Handle{{Name: "report ID", Value: "r-1"}}, stored))
	assert.False(t, relationshipValid([]Handle{{Name: "report ID", Value: "r-2"}}, stored))
	assert.True(t, relationshipValid([]Handle{{Name: "CCQA ID", Value: "anything"}}, stored),
		"non-critical handles never reject")
	assert.True(t, relationshipValid([]Handle{{Name: "session ID", Value: "s-1"}}, nil),
		"no stored critical handles means nothing to contradict")
}

func TestLegacyJSON(t *testing.T) {
	t.Parallel()

	got := legacyJSON([]Handle{{Name: "form ID", Value: "f-1", URL: "https://x/f-1"}})
	assert.JSONEq(t, `[{"name":"form ID","id":"f-1","url":"https://x/f-1"}]`, got)
	assert.Empty(t, legacyJSON(nil))
}
