package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/AnthusAI/plexus-feedback/pkg/dashboard"
	"github.com/AnthusAI/plexus-feedback/pkg/dashboard/dashboardtest"
)

const scorecardUUID = "a81bc81b-dead-4e5d-abff-90865d1e13b1"

func testScorecards() []dashboard.Scorecard {
	return []dashboard.Scorecard{
		{
			ID:         scorecardUUID,
			Name:       "Quality Assurance",
			Key:        "qa",
			ExternalID: "1438",
			Sections: []dashboard.Section{
				{
					Name:  "Main",
					Order: 0,
					Scores: []dashboard.Score{
						{ID: "score-1", Name: "Greeting", Key: "greeting", ExternalID: "2001"},
						{ID: "score-2", Name: "Compliance Check", Key: "compliance", ExternalID: "2002"},
					},
				},
			},
		},
		{
			ID:   "b81bc81b-dead-4e5d-abff-90865d1e13b2",
			Name: "Sales Effectiveness",
			Key:  "sales",
		},
	}
}

func TestLooksLikeID(t *testing.T) {
	t.Parallel()

	assert.True(t, looksLikeID(scorecardUUID))
	assert.False(t, looksLikeID("qa"))
	assert.False(t, looksLikeID("Quality Assurance"))
	assert.False(t, looksLikeID("1438"))
	assert.False(t, looksLikeID("not-a-uuid-but-has-dashes-and-length"))
}

func TestScorecardByID(t *testing.T) {
	t.Parallel()

	client := &dashboardtest.MockClient{}
	want := &dashboard.Scorecard{ID: scorecardUUID, Name: "Quality Assurance"}
	client.On("GetScorecard", mock.Anything, scorecardUUID).Return(want, nil)

	got, err := New(client).Scorecard(context.Background(), "acct-1", scorecardUUID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	client.AssertNotCalled(t, "ListScorecards", mock.Anything, mock.Anything)
}

func TestScorecardResolutionOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		wantID string
	}{
		{name: "external id", input: "1438", wantID: scorecardUUID},
		{name: "key", input: "qa", wantID: scorecardUUID},
		{name: "exact name", input: "Quality Assurance", wantID: scorecardUUID},
		{name: "substring name", input: "sales eff", wantID: "b81bc81b-dead-4e5d-abff-90865d1e13b2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := &dashboardtest.MockClient{}
			client.On("ListScorecards", mock.Anything, "acct-1").Return(testScorecards(), nil)

			got, err := New(client).Scorecard(context.Background(), "acct-1", tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestScorecardNotFound(t *testing.T) {
	t.Parallel()

	client := &dashboardtest.MockClient{}
	client.On("ListScorecards", mock.Anything, "acct-1").Return(testScorecards(), nil)

	_, err := New(client).Scorecard(context.Background(), "acct-1", "nonexistent")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "scorecard", nf.Kind)
	assert.Equal(t, "nonexistent", nf.Input)
}

func TestScorecardEmptyInput(t *testing.T) {
	t.Parallel()

	client := &dashboardtest.MockClient{}
	_, err := New(client).Scorecard(context.Background(), "acct-1", "   ")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestScorecardListError(t *testing.T) {
	t.Parallel()

	client := &dashboardtest.MockClient{}
	client.On("ListScorecards", mock.Anything, "acct-1").Return(nil, errors.New("network down"))

	_, err := New(client).Scorecard(context.Background(), "acct-1", "qa")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list scorecards")
}

func TestScoreResolutionOrder(t *testing.T) {
	t.Parallel()

	sc := &testScorecards()[0]

	tests := []struct {
		name   string
		input  string
		wantID string
	}{
		{name: "id", input: "score-2", wantID: "score-2"},
		{name: "case-insensitive name", input: "greeting", wantID: "score-1"},
		{name: "key", input: "compliance", wantID: "score-2"},
		{name: "external id", input: "2001", wantID: "score-1"},
		{name: "substring", input: "compliance ch", wantID: "score-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := New(nil).Score(sc, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestScoreNotFound(t *testing.T) {
	t.Parallel()

	sc := &testScorecards()[0]
	_, err := New(nil).Score(sc, "unknown score")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "score", nf.Kind)
}
