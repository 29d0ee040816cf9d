package dashboard

import (
	"context"
	"sort"
)

const scorecardFields = `
	id
	accountId
	name
	key
	externalId
	sections {
		items {
			id
			name
			order
			scores {
				items {
					id
					name
					key
					externalId
					championVersionId
					order
				}
			}
		}
	}`

// sectionsEnvelope mirrors the nested connection shape the API returns for
// scorecard sections and scores.
type scorecardRecord struct {
	ID         string `json:"id"`
	AccountID  string `json:"accountId"`
	Name       string `json:"name"`
	Key        string `json:"key"`
	ExternalID string `json:"externalId"`
	Sections   struct {
		Items []struct {
			ID     string `json:"id"`
			Name   string `json:"name"`
			Order  int    `json:"order"`
			Scores struct {
				Items []Score `json:"items"`
			} `json:"scores"`
		} `json:"items"`
	} `json:"sections"`
}

func (r scorecardRecord) toScorecard() *Scorecard {
	sc := &Scorecard{
		ID:         r.ID,
		AccountID:  r.AccountID,
		Name:       r.Name,
		Key:        r.Key,
		ExternalID: r.ExternalID,
	}
	for _, s := range r.Sections.Items {
		section := Section{ID: s.ID, Name: s.Name, Order: s.Order, Scores: s.Scores.Items}
		sort.SliceStable(section.Scores, func(i, j int) bool {
			return section.Scores[i].Order < section.Scores[j].Order
		})
		sc.Sections = append(sc.Sections, section)
	}
	sort.SliceStable(sc.Sections, func(i, j int) bool {
		return sc.Sections[i].Order < sc.Sections[j].Order
	})
	return sc
}

const getScorecardOp = "getScorecard"

func (c *gqlClient) GetScorecard(ctx context.Context, id string) (*Scorecard, error) {
	query := `query GetScorecard($id: ID!) {
		` + getScorecardOp + `(id: $id) {` + scorecardFields + `
		}
	}`

	var rec scorecardRecord
	if err := c.execute(ctx, getScorecardOp, query, map[string]any{"id": id}, &rec); err != nil {
		return nil, err
	}
	if rec.ID == "" {
		return nil, nil
	}
	return rec.toScorecard(), nil
}

const listScorecardsOp = "listScorecards"

func (c *gqlClient) ListScorecards(ctx context.Context, accountID string) ([]Scorecard, error) {
	query := `query ListScorecards($filter: ModelScorecardFilterInput, $limit: Int, $nextToken: String) {
		` + listScorecardsOp + `(filter: $filter, limit: $limit, nextToken: $nextToken) {
			items {` + scorecardFields + `
			}
			nextToken
		}
	}`

	var all []Scorecard
	nextToken := ""
	for {
		vars := map[string]any{
			"filter": map[string]any{"accountId": map[string]any{"eq": accountID}},
			"limit":  100,
		}
		if nextToken != "" {
			vars["nextToken"] = nextToken
		}

		var page struct {
			Items     []scorecardRecord `json:"items"`
			NextToken string            `json:"nextToken"`
		}
		if err := c.execute(ctx, listScorecardsOp, query, vars, &page); err != nil {
			return nil, err
		}
		for _, rec := range page.Items {
			all = append(all, *rec.toScorecard())
		}
		if page.NextToken == "" {
			break
		}
		nextToken = page.NextToken
	}
	return all, nil
}

// EnumerateScores flattens a scorecard into the per-score analysis order:
// sections by their order field, scores by intra-section order. Scores
// without an external id are skipped; they cannot be addressed by upstream
// form systems and carry no feedback.
func EnumerateScores(sc *Scorecard) []Score {
	var out []Score
	for _, section := range sc.Sections {
		for _, score := range section.Scores {
			if score.ExternalID == "" {
				continue
			}
			out = append(out, score)
		}
	}
	return out
}
