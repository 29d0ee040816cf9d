package dashboard

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

// Normalize folds case and trims surrounding whitespace. It is the single
// equality rule for answer-value filters and cache-key derivation, so
// "  YES  " and "yes" compare equal everywhere.
func Normalize(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// CacheKey derives the feedback deduplication key for one (score, form) pair.
func CacheKey(scoreID, formID string) string {
	return scoreID + ":" + Normalize(formID)
}

// FeedbackQuery addresses the composite index keyed by
// (accountId, scorecardId, scoreId, updatedAt).
type FeedbackQuery struct {
	AccountID   string
	ScorecardID string
	ScoreID     string
	Start       time.Time
	End         time.Time
	Limit       int
	NextToken   string
	WithItem    bool
}

// FeedbackFilter is the fallback generic list with a compound filter. The
// server gives no sort guarantee on this path.
type FeedbackFilter struct {
	AccountID    string
	ScorecardID  string
	ScoreID      string
	UpdatedAfter time.Time
	Limit        int
	NextToken    string
	WithItem     bool
}

// FeedbackPage is one page of feedback items plus the continuation token.
type FeedbackPage struct {
	Items     []FeedbackItem `json:"items"`
	NextToken string         `json:"nextToken"`
}

const feedbackFields = `
	id
	accountId
	scorecardId
	scoreId
	itemId
	cacheKey
	initialAnswerValue
	finalAnswerValue
	initialCommentValue
	finalCommentValue
	editCommentValue
	isAgreement
	editorName
	createdAt
	updatedAt
	editedAt`

const feedbackItemFields = `
	item {
		id
		accountId
		externalId
		evaluationId
		text
		metadata
		identifiers
		isEvaluation
		createdByType
		createdAt
		updatedAt
	}`

func feedbackSelection(withItem bool) string {
	if withItem {
		return feedbackFields + feedbackItemFields
	}
	return feedbackFields
}

const listFeedbackByScoreOp = "listFeedbackItemByAccountIdAndScorecardIdAndScoreIdAndUpdatedAt"

func (c *gqlClient) ListFeedbackByScore(ctx context.Context, q FeedbackQuery) (*FeedbackPage, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `query ListFeedbackByScore(
		$accountId: String!,
		$scorecardIdScoreIdUpdatedAt: ModelFeedbackItemByAccountScorecardScoreUpdatedAtCompositeKeyConditionInput,
		$limit: Int,
		$nextToken: String
	) {
		` + listFeedbackByScoreOp + `(
			accountId: $accountId,
			scorecardIdScoreIdUpdatedAt: $scorecardIdScoreIdUpdatedAt,
			sortDirection: DESC,
			limit: $limit,
			nextToken: $nextToken
		) {
			items {` + feedbackSelection(q.WithItem) + `
			}
			nextToken
		}
	}`

	vars := map[string]any{
		"accountId": q.AccountID,
		"scorecardIdScoreIdUpdatedAt": map[string]any{
			"between": []map[string]any{
				{
					"scorecardId": q.ScorecardID,
					"scoreId":     q.ScoreID,
					"updatedAt":   q.Start.UTC().Format(time.RFC3339),
				},
				{
					"scorecardId": q.ScorecardID,
					"scoreId":     q.ScoreID,
					"updatedAt":   q.End.UTC().Format(time.RFC3339),
				},
			},
		},
		"limit": limit,
	}
	if q.NextToken != "" {
		vars["nextToken"] = q.NextToken
	}

	var page FeedbackPage
	if err := c.execute(ctx, listFeedbackByScoreOp, query, vars, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

const listFeedbackFilteredOp = "listFeedbackItems"

func (c *gqlClient) ListFeedbackFiltered(ctx context.Context, q FeedbackFilter) (*FeedbackPage, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 1000
	}

	query := `query ListFeedbackItems($filter: ModelFeedbackItemFilterInput, $limit: Int, $nextToken: String) {
		` + listFeedbackFilteredOp + `(filter: $filter, limit: $limit, nextToken: $nextToken) {
			items {` + feedbackSelection(q.WithItem) + `
			}
			nextToken
		}
	}`

	vars := map[string]any{
		"filter": map[string]any{
			"accountId":   map[string]any{"eq": q.AccountID},
			"scorecardId": map[string]any{"eq": q.ScorecardID},
			"scoreId":     map[string]any{"eq": q.ScoreID},
			"updatedAt":   map[string]any{"ge": q.UpdatedAfter.UTC().Format(time.RFC3339)},
		},
		"limit": limit,
	}
	if q.NextToken != "" {
		vars["nextToken"] = q.NextToken
	}

	var page FeedbackPage
	if err := c.execute(ctx, listFeedbackFilteredOp, query, vars, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

const getFeedbackItemOp = "getFeedbackItem"

func (c *gqlClient) GetFeedbackItem(ctx context.Context, id string) (*FeedbackItem, error) {
	query := `query GetFeedbackItem($id: ID!) {
		` + getFeedbackItemOp + `(id: $id) {` + feedbackSelection(true) + `
		}
	}`

	var item FeedbackItem
	if err := c.execute(ctx, getFeedbackItemOp, query, map[string]any{"id": id}, &item); err != nil {
		return nil, err
	}
	if item.ID == "" {
		return nil, nil
	}
	return &item, nil
}

const listFeedbackByCacheKeyOp = "listFeedbackItemByCacheKey"

func (c *gqlClient) ListFeedbackByCacheKey(ctx context.Context, scoreID, cacheKey string) ([]FeedbackItem, error) {
	query := `query ListFeedbackByCacheKey($cacheKey: String!, $limit: Int) {
		` + listFeedbackByCacheKeyOp + `(cacheKey: $cacheKey, limit: $limit) {
			items {` + feedbackSelection(false) + `
			}
			nextToken
		}
	}`

	var page FeedbackPage
	err := c.execute(ctx, listFeedbackByCacheKeyOp, query, map[string]any{"cacheKey": cacheKey, "limit": 10}, &page)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

const createFeedbackItemOp = "createFeedbackItem"

func (c *gqlClient) CreateFeedbackItem(ctx context.Context, input map[string]any) (*FeedbackItem, error) {
	query := `mutation CreateFeedbackItem($input: CreateFeedbackItemInput!) {
		` + createFeedbackItemOp + `(input: $input) {` + feedbackSelection(false) + `
		}
	}`

	var item FeedbackItem
	if err := c.execute(ctx, createFeedbackItemOp, query, map[string]any{"input": input}, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

const updateFeedbackItemOp = "updateFeedbackItem"

func (c *gqlClient) UpdateFeedbackItem(ctx context.Context, id string, patch map[string]any) (*FeedbackItem, error) {
	query := `mutation UpdateFeedbackItem($input: UpdateFeedbackItemInput!) {
		` + updateFeedbackItemOp + `(input: $input) {` + feedbackSelection(false) + `
		}
	}`

	input := map[string]any{"id": id}
	for k, v := range patch {
		input[k] = v
	}

	var item FeedbackItem
	if err := c.execute(ctx, updateFeedbackItemOp, query, map[string]any{"input": input}, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpsertFeedbackByCacheKey looks up the cache-key index and updates the record
// if found, creating it otherwise. The store holds at most one record per
// cache key; if duplicates exist the most recently updated wins and a warning
// is logged.
func UpsertFeedbackByCacheKey(ctx context.Context, c Client, scoreID, formID string, fields map[string]any) (*FeedbackItem, bool, error) {
	key := CacheKey(scoreID, formID)

	existing, err := c.ListFeedbackByCacheKey(ctx, scoreID, key)
	if err != nil {
		return nil, false, err
	}

	if len(existing) > 1 {
		zap.L().Warn("multiple feedback items share one cache key",
			zap.String("cacheKey", key),
			zap.Int("count", len(existing)),
		)
		sort.Slice(existing, func(i, j int) bool {
			return existing[i].UpdatedAt.After(existing[j].UpdatedAt)
		})
	}

	if len(existing) > 0 {
		updated, err := c.UpdateFeedbackItem(ctx, existing[0].ID, fields)
		if err != nil {
			return nil, false, err
		}
		return updated, false, nil
	}

	input := map[string]any{"scoreId": scoreID, "cacheKey": key}
	for k, v := range fields {
		input[k] = v
	}
	created, err := c.CreateFeedbackItem(ctx, input)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}
