package dashboard

import (
	"encoding/json"
	"strings"
	"time"
)

// FeedbackItem is one human review of one AI prediction: the model's initial
// answer, the reviewer's final answer, and any commentary.
type FeedbackItem struct {
	ID          string `json:"id"`
	AccountID   string `json:"accountId"`
	ScorecardID string `json:"scorecardId"`
	ScoreID     string `json:"scoreId"`
	ItemID      string `json:"itemId"`
	CacheKey    string `json:"cacheKey"`

	InitialAnswerValue  string `json:"initialAnswerValue"`
	FinalAnswerValue    string `json:"finalAnswerValue"`
	InitialCommentValue string `json:"initialCommentValue"`
	FinalCommentValue   string `json:"finalCommentValue"`
	EditCommentValue    string `json:"editCommentValue"`

	IsAgreement bool   `json:"isAgreement"`
	EditorName  string `json:"editorName"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	EditedAt  *time.Time `json:"editedAt"`

	// Item is populated only when the query requested the nested relation.
	Item *Item `json:"item"`
}

// HasEditComment reports whether the reviewer left edit commentary.
func (f FeedbackItem) HasEditComment() bool {
	return strings.TrimSpace(f.EditCommentValue) != ""
}

// Item is one piece of evaluated content (a call, transcript, or form). It is
// the single shared record for one real-world artifact; multiple scores may
// attach feedback to it.
type Item struct {
	ID            string   `json:"id"`
	AccountID     string   `json:"accountId"`
	ExternalID    string   `json:"externalId"`
	EvaluationID  string   `json:"evaluationId"`
	Text          string   `json:"text"`
	Metadata      JSONMap  `json:"metadata"`
	AttachedFiles []string `json:"attachedFiles"`
	// Identifiers is the legacy on-item representation kept for readers that
	// query the Item directly. First-class Identifier rows are the indexed copy.
	Identifiers   LegacyIdentifiers `json:"identifiers"`
	IsEvaluation  bool              `json:"isEvaluation"`
	CreatedByType string            `json:"createdByType"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// Identifier is one named handle on an Item, stored as a standalone record so
// the value can be looked up through the account-scoped secondary index.
type Identifier struct {
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
	ItemID    string    `json:"itemId"`
	Name      string    `json:"name"`
	Value     string    `json:"value"`
	URL       string    `json:"url"`
	Position  int       `json:"position"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LegacyIdentifier mirrors the historical on-item identifier entry shape
// ({name, id, url?}). The remote stores the list as serialized JSON text.
type LegacyIdentifier struct {
	Name string `json:"name"`
	ID   string `json:"id"`
	URL  string `json:"url,omitempty"`
}

// LegacyIdentifiers decodes either a JSON array or a string containing one.
type LegacyIdentifiers []LegacyIdentifier

// UnmarshalJSON accepts a JSON array, a string holding a JSON array, or null.
func (l *LegacyIdentifiers) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*l = nil
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*l = nil
			return nil
		}
		var out []LegacyIdentifier
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return err
		}
		*l = out
		return nil
	}
	var out []LegacyIdentifier
	if err := json.Unmarshal(b, &out); err != nil {
		return err
	}
	*l = out
	return nil
}

// Scorecard groups ordered sections of scores.
type Scorecard struct {
	ID         string    `json:"id"`
	AccountID  string    `json:"accountId"`
	Name       string    `json:"name"`
	Key        string    `json:"key"`
	ExternalID string    `json:"externalId"`
	Sections   []Section `json:"sections"`
}

// Section is one ordered group of scores within a scorecard.
type Section struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Order  int     `json:"order"`
	Scores []Score `json:"scores"`
}

// Score is one rubric producing a labeled answer.
type Score struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Key               string `json:"key"`
	ExternalID        string `json:"externalId"`
	ChampionVersionID string `json:"championVersionId"`
	Order             int    `json:"order"`
}

// ScoreResult is a produced prediction record. Only the cost substructure is
// consumed here; it may live at the top level or under metadata.cost.
type ScoreResult struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"accountId"`
	ScorecardID string    `json:"scorecardId"`
	ScoreID     string    `json:"scoreId"`
	ItemID      string    `json:"itemId"`
	Value       string    `json:"value"`
	Cost        JSONMap   `json:"cost"`
	Metadata    JSONMap   `json:"metadata"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CostMap returns the cost substructure, preferring the top-level field and
// falling back to metadata.cost. Returns nil when neither is present.
func (r ScoreResult) CostMap() map[string]any {
	if len(r.Cost) > 0 {
		return r.Cost
	}
	if nested, ok := r.Metadata["cost"]; ok {
		switch v := nested.(type) {
		case map[string]any:
			return v
		case string:
			var m map[string]any
			if err := json.Unmarshal([]byte(v), &m); err == nil {
				return m
			}
		}
	}
	return nil
}

// JSONMap is a loosely typed mapping that the remote may deliver as a JSON
// object, as a string containing JSON, or as null. It normalizes all three to
// map-or-nil on decode.
type JSONMap map[string]any

// UnmarshalJSON implements the string-or-object-or-null decoding rule.
func (m *JSONMap) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = nil
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*m = nil
			return nil
		}
		var out map[string]any
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return err
		}
		*m = out
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return err
	}
	*m = out
	return nil
}
