package dashboard

import (
	"context"
	"time"
)

// ScoreResultQuery selects score results through the narrowest index that the
// parameters allow: score-scoped when ScoreID is set, else scorecard-scoped,
// else account-scoped. Each index ranges on updatedAt.
type ScoreResultQuery struct {
	AccountID   string
	ScorecardID string
	ScoreID     string
	Start       time.Time
	End         time.Time
	Limit       int
	NextToken   string
}

// ScoreResultPage is one page of score results plus the continuation token.
type ScoreResultPage struct {
	Items     []ScoreResult `json:"items"`
	NextToken string        `json:"nextToken"`
}

const scoreResultFields = `
	id
	accountId
	scorecardId
	scoreId
	itemId
	value
	cost
	metadata
	updatedAt`

const (
	listScoreResultsByScoreOp     = "listScoreResultByScoreIdAndUpdatedAt"
	listScoreResultsByScorecardOp = "listScoreResultByScorecardIdAndUpdatedAt"
	listScoreResultsByAccountOp   = "listScoreResultByAccountIdAndUpdatedAt"
)

func (c *gqlClient) ListScoreResults(ctx context.Context, q ScoreResultQuery) (*ScoreResultPage, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	var op, keyArg, keyVal string
	switch {
	case q.ScoreID != "":
		op, keyArg, keyVal = listScoreResultsByScoreOp, "scoreId", q.ScoreID
	case q.ScorecardID != "":
		op, keyArg, keyVal = listScoreResultsByScorecardOp, "scorecardId", q.ScorecardID
	default:
		op, keyArg, keyVal = listScoreResultsByAccountOp, "accountId", q.AccountID
	}

	query := `query ListScoreResults($key: String!, $updatedAt: ModelStringKeyConditionInput, $limit: Int, $nextToken: String) {
		` + op + `(` + keyArg + `: $key, updatedAt: $updatedAt, sortDirection: DESC, limit: $limit, nextToken: $nextToken) {
			items {` + scoreResultFields + `
			}
			nextToken
		}
	}`

	vars := map[string]any{
		"key": keyVal,
		"updatedAt": map[string]any{
			"between": []string{
				q.Start.UTC().Format(time.RFC3339),
				q.End.UTC().Format(time.RFC3339),
			},
		},
		"limit": limit,
	}
	if q.NextToken != "" {
		vars["nextToken"] = q.NextToken
	}

	var page ScoreResultPage
	if err := c.execute(ctx, op, query, vars, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
