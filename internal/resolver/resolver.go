// Package resolver translates user-provided scorecard and score identifiers
// (UUIDs, external ids, keys, names, partial names) to canonical records.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/AnthusAI/plexus-feedback/pkg/dashboard"
)

// NotFoundError reports an identifier that resolved to nothing.
type NotFoundError struct {
	Kind  string // "scorecard" or "score"
	Input string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %q", e.Kind, e.Input)
}

// Resolver resolves identifiers against the dashboard API.
type Resolver struct {
	client dashboard.Client
}

// New creates a Resolver backed by the given client.
func New(client dashboard.Client) *Resolver {
	return &Resolver{client: client}
}

// looksLikeID reports whether the input is plausibly a record id. Dashboard
// ids are UUIDs; short strings and strings without dashes are names or keys.
func looksLikeID(s string) bool {
	if len(s) <= 20 || !strings.Contains(s, "-") {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// Scorecard resolves the input in a fixed attempt order: direct id, external
// id, key, exact name, substring name. The first match wins; the order keeps
// behavior stable for ambiguous inputs.
func (r *Resolver) Scorecard(ctx context.Context, accountID, input string) (*dashboard.Scorecard, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, &NotFoundError{Kind: "scorecard", Input: input}
	}

	if looksLikeID(input) {
		sc, err := r.client.GetScorecard(ctx, input)
		if err != nil {
			return nil, eris.Wrap(err, "resolver: get scorecard")
		}
		if sc != nil {
			return sc, nil
		}
	}

	scorecards, err := r.client.ListScorecards(ctx, accountID)
	if err != nil {
		return nil, eris.Wrap(err, "resolver: list scorecards")
	}

	for i := range scorecards {
		if scorecards[i].ExternalID != "" && scorecards[i].ExternalID == input {
			return &scorecards[i], nil
		}
	}
	for i := range scorecards {
		if scorecards[i].Key != "" && scorecards[i].Key == input {
			return &scorecards[i], nil
		}
	}
	for i := range scorecards {
		if scorecards[i].Name == input {
			return &scorecards[i], nil
		}
	}
	lower := strings.ToLower(input)
	for i := range scorecards {
		if strings.Contains(strings.ToLower(scorecards[i].Name), lower) {
			return &scorecards[i], nil
		}
	}

	return nil, &NotFoundError{Kind: "scorecard", Input: input}
}

// Score resolves the input within one scorecard: id, exact case-insensitive
// name, key, external id, then case-insensitive substring name.
func (r *Resolver) Score(sc *dashboard.Scorecard, input string) (*dashboard.Score, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, &NotFoundError{Kind: "score", Input: input}
	}

	var scores []dashboard.Score
	for _, section := range sc.Sections {
		scores = append(scores, section.Scores...)
	}

	for i := range scores {
		if scores[i].ID == input {
			return &scores[i], nil
		}
	}
	for i := range scores {
		if strings.EqualFold(scores[i].Name, input) {
			return &scores[i], nil
		}
	}
	for i := range scores {
		if scores[i].Key != "" && scores[i].Key == input {
			return &scores[i], nil
		}
	}
	for i := range scores {
		if scores[i].ExternalID != "" && scores[i].ExternalID == input {
			return &scores[i], nil
		}
	}
	lower := strings.ToLower(input)
	for i := range scores {
		if strings.Contains(strings.ToLower(scores[i].Name), lower) {
			return &scores[i], nil
		}
	}

	return nil, &NotFoundError{Kind: "score", Input: input}
}
