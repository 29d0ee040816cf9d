package dataset

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/AnthusAI/plexus-feedback/internal/dedup"
	"github.com/AnthusAI/plexus-feedback/pkg/dashboard"
	"github.com/AnthusAI/plexus-feedback/pkg/dashboard/dashboardtest"
)

const (
	buildScorecardID = "a81bc81b-dead-4e5d-abff-90865d1e13b1"
	buildScoreID     = "c81bc81b-dead-4e5d-abff-90865d1e13c1"
)

func buildScorecard() *dashboard.Scorecard {
	return &dashboard.Scorecard{
		ID:   buildScorecardID,
		Name: "Quality Assurance",
		Sections: []dashboard.Section{
			{Scores: []dashboard.Score{{ID: buildScoreID, Name: "Greeting", ExternalID: "2001"}}},
		},
	}
}

func feedbackWithItem(id string) dashboard.FeedbackItem {
	now := time.Now().UTC()
	return dashboard.FeedbackItem{
		ID:                 id,
		AccountID:          "acct-1",
		ScorecardID:        buildScorecardID,
		ScoreID:            buildScoreID,
		ItemID:             "item-" + id,
		InitialAnswerValue: "yes",
		FinalAnswerValue:   "no",
		FinalCommentValue:  "reviewer comment",
		EditCommentValue:   "edit note",
		UpdatedAt:          now,
		Item: &dashboard.Item{
			ID:         "item-" + id,
			ExternalID: "ext-" + id,
			Text:       "transcript " + id,
			Metadata:   dashboard.JSONMap{"call_date": "2026-03-01"},
		},
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	client := &dashboardtest.MockClient{}
	client.On("GetScorecard", mock.Anything, buildScorecardID).Return(buildScorecard(), nil)
	client.On("ListFeedbackByScore", mock.Anything, mock.MatchedBy(func(q dashboard.FeedbackQuery) bool {
		return q.WithItem
	})).Return(&dashboard.FeedbackPage{
		Items: []dashboard.FeedbackItem{feedbackWithItem("fb1"), feedbackWithItem("fb2")},
	}, nil)

	frame, err := NewBuilder(client).Build(context.Background(), BuildOptions{
		AccountID: "acct-1",
		Scorecard: buildScorecardID,
		Score:     "Greeting",
	})
	require.NoError(t, err)

	assert.Equal(t, frameColumns("Greeting", nil), frame.Columns)
	require.Len(t, frame.Rows, 2)

	row := frame.Rows[0]
	assert.Equal(t, "item-fb1", row[colContentID])
	assert.Equal(t, "fb1", row[colFeedbackItemID])
	assert.Equal(t, "transcript fb1", row[colText])
	assert.Equal(t, "2026-03-01", row[colCallDate])
	assert.Equal(t, "no", row[colScore], "score column holds the reviewer answer")
	assert.Equal(t, "edit note", row[colComment], "substantive edit commentary wins the comment column")
	assert.Equal(t, "edit note", row[colEditComment])
	assert.Contains(t, row[colIDs], `"external ID"`)
	assert.Contains(t, row[colIDs], `"item ID"`)
}

func TestBuildEmptyResult(t *testing.T) {
	t.Parallel()

	client := &dashboardtest.MockClient{}
	client.On("GetScorecard", mock.Anything, buildScorecardID).Return(buildScorecard(), nil)
	client.On("ListFeedbackByScore", mock.Anything, mock.Anything).
		Return(&dashboard.FeedbackPage{}, nil)

	frame, err := NewBuilder(client).Build(context.Background(), BuildOptions{
		AccountID: "acct-1",
		Scorecard: buildScorecardID,
		Score:     "Greeting",
	})
	require.NoError(t, err)
	assert.Len(t, frame.Columns, columnCount)
	assert.Empty(t, frame.Rows)
}

func TestBuildSingleFeedbackMode(t *testing.T) {
	t.Parallel()

	fb := feedbackWithItem("fb9")
	client := &dashboardtest.MockClient{}
	client.On("GetScorecard", mock.Anything, buildScorecardID).Return(buildScorecard(), nil)
	client.On("GetFeedbackItem", mock.Anything, "fb9").Return(&fb, nil)

	frame, err := NewBuilder(client).Build(context.Background(), BuildOptions{
		AccountID:  "acct-1",
		Scorecard:  buildScorecardID,
		Score:      "Greeting",
		FeedbackID: "fb9",
	})
	require.NoError(t, err)
	require.Len(t, frame.Rows, 1)
	assert.Equal(t, "fb9", frame.Rows[0][colFeedbackItemID])
	client.AssertNotCalled(t, "ListFeedbackByScore", mock.Anything, mock.Anything)
}

func TestBuildSingleFeedbackWrongScore(t *testing.T) {
	t.Parallel()

	fb := feedbackWithItem("fb9")
	fb.ScoreID = "some-other-score"

	client := &dashboardtest.MockClient{}
	client.On("GetScorecard", mock.Anything, buildScorecardID).Return(buildScorecard(), nil)
	client.On("GetFeedbackItem", mock.Anything, "fb9").Return(&fb, nil)

	_, err := NewBuilder(client).Build(context.Background(), BuildOptions{
		AccountID:  "acct-1",
		Scorecard:  buildScorecardID,
		Score:      "Greeting",
		FeedbackID: "fb9",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not the requested pair")
}

func TestBuildRunsExtractorUpsert(t *testing.T) {
	t.Parallel()

	client := &dashboardtest.MockClient{}
	client.On("GetScorecard", mock.Anything, buildScorecardID).Return(buildScorecard(), nil)
	client.On("ListFeedbackByScore", mock.Anything, mock.Anything).Return(&dashboard.FeedbackPage{
		Items: []dashboard.FeedbackItem{feedbackWithItem("fb1")},
	}, nil)
	client.On("ListIdentifiersByValue", mock.Anything, "acct-1", "f-77").
		Return([]dashboard.Identifier{}, nil)
	client.On("CreateItem", mock.Anything, mock.Anything).Return(&dashboard.Item{ID: "shared-item"}, nil)
	client.On("CreateIdentifier", mock.Anything, mock.Anything).Return(&dashboard.Identifier{}, nil)

	frame, err := NewBuilder(client).Build(context.Background(), BuildOptions{
		AccountID: "acct-1",
		Scorecard: buildScorecardID,
		Score:     "Greeting",
		Extractor: func(fb dashboard.FeedbackItem, item *dashboard.Item) []dedup.Handle {
			return []dedup.Handle{{Name: "form ID", Value: "f-77"}}
		},
	})
	require.NoError(t, err)
	require.Len(t, frame.Rows, 1)
	assert.Contains(t, frame.Rows[0][colIDs], `"form ID"`)
	client.AssertCalled(t, "CreateItem", mock.Anything, mock.Anything)
}

func TestReloadRefreshesValues(t *testing.T) {
	t.Parallel()

	refreshed := feedbackWithItem("fb1")
	refreshed.FinalAnswerValue = "yes"
	refreshed.InitialCommentValue = "model reasoning"
	refreshed.EditCommentValue = ""
	refreshed.FinalCommentValue = "agree"
	refreshed.Item.Text = "corrected transcript"

	client := &dashboardtest.MockClient{}
	client.On("GetFeedbackItem", mock.Anything, "fb1").Return(&refreshed, nil)

	original := NewFrame("Greeting", nil)
	original.Rows = append(original.Rows, []string{
		"item-fb1", "fb1", `[{"name":"item ID","value":"item-fb1"}]`,
		`{"old":"meta"}`, "old transcript", "2026-01-01",
		"no", "old comment", "old edit",
	})

	out, err := NewBuilder(client).Reload(context.Background(), original)
	require.NoError(t, err)
	require.Len(t, out.Rows, 1)

	row := out.Rows[0]
	assert.Equal(t, "item-fb1", row[colContentID], "identity columns preserved")
	assert.Equal(t, "fb1", row[colFeedbackItemID])
	assert.Equal(t, original.Rows[0][colIDs], row[colIDs], "IDs column preserved")
	assert.Equal(t, "corrected transcript", row[colText])
	assert.Equal(t, "yes", row[colScore])
	assert.Equal(t, "model reasoning", row[colComment], "a final of agree keeps the initial reasoning")
	assert.Equal(t, "", row[colEditComment])
}

func TestReloadKeepsVanishedRows(t *testing.T) {
	t.Parallel()

	client := &dashboardtest.MockClient{}
	client.On("GetFeedbackItem", mock.Anything, "gone").Return(nil, nil)

	original := NewFrame("Greeting", nil)
	stale := []string{
		"item-x", "gone", "[]", "{}", "stale text", "2026-01-01",
		"no", "stale comment", "",
	}
	original.Rows = append(original.Rows, stale)

	out, err := NewBuilder(client).Reload(context.Background(), original)
	require.NoError(t, err)
	require.Len(t, out.Rows, 1)
	assert.Equal(t, stale, out.Rows[0], "a vanished record keeps its previous values")
}

func TestReloadRejectsWrongShape(t *testing.T) {
	t.Parallel()

	frame := &Frame{Columns: []string{"a", "b"}}
	_, err := NewBuilder(&dashboardtest.MockClient{}).Reload(context.Background(), frame)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "columns")
}
