// Package dataset builds training datasets from feedback: stratified
// confusion-cell sampling, per-row comment derivation, identifier upserts,
// and value reload for persisted row sets.
package dataset

import (
	"encoding/json"
	"strings"

	"github.com/AnthusAI/plexus-feedback/pkg/dashboard"
)

// Fixed column positions. The score columns are named after the score (or
// its column mapping); everything before them is invariant.
const (
	colContentID = iota
	colFeedbackItemID
	colIDs
	colMetadata
	colText
	colCallDate
	colScore
	colComment
	colEditComment
	columnCount
)

// Frame is the in-memory dataset: a fixed column order and string rows.
// Encoding to CSV or XLSX is a collaborator concern.
type Frame struct {
	Columns []string   `json:"columns" yaml:"columns"`
	Rows    [][]string `json:"rows" yaml:"rows"`
}

// Columns builds the fixed column list for one score, applying the optional
// name mapping to the three score-derived columns.
func frameColumns(scoreName string, mappings map[string]string) []string {
	name := scoreName
	if mapped, ok := mappings[scoreName]; ok && mapped != "" {
		name = mapped
	}
	return []string{
		"content_id",
		"feedback_item_id",
		"IDs",
		"metadata",
		"text",
		"call_date",
		name,
		name + " comment",
		name + " edit comment",
	}
}

// NewFrame returns an empty frame with the correct columns for the score.
func NewFrame(scoreName string, mappings map[string]string) *Frame {
	return &Frame{Columns: frameColumns(scoreName, mappings)}
}

// IDEntry is one handle in the serialized IDs column.
type IDEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	URL   string `json:"url,omitempty"`
}

// deriveComment picks the row's comment column value. Comparisons are
// case-insensitive on trimmed strings; a bare "agree" from the reviewer means
// the original reasoning still stands, so the initial comment carries more
// signal than the word itself.
func deriveComment(initial, final, edit string) string {
	isAgree := func(s string) bool {
		return strings.EqualFold(strings.TrimSpace(s), "agree")
	}
	present := func(s string) bool {
		return strings.TrimSpace(s) != ""
	}

	switch {
	case isAgree(edit) && !present(final):
		return initial
	case isAgree(final):
		return initial
	case present(edit) && !isAgree(edit):
		return edit
	case present(final) && !isAgree(final):
		return final
	default:
		return initial
	}
}

// metadataJSON merges the feedback item's scalar fields, the nested item
// metadata, and derivative fields into one JSON document.
func metadataJSON(fb dashboard.FeedbackItem, item *dashboard.Item) (string, string) {
	merged := map[string]any{
		"feedback_item_id":     fb.ID,
		"account_id":           fb.AccountID,
		"scorecard_id":         fb.ScorecardID,
		"score_id":             fb.ScoreID,
		"initial_answer_value": fb.InitialAnswerValue,
		"final_answer_value":   fb.FinalAnswerValue,
		"is_agreement":         fb.IsAgreement,
		"created_at":           fb.CreatedAt,
		"updated_at":           fb.UpdatedAt,
		"has_edit_comment":     fb.HasEditComment(),
	}
	if fb.EditorName != "" {
		merged["editor_name"] = fb.EditorName
	}
	if fb.EditedAt != nil {
		merged["edited_at"] = *fb.EditedAt
	}

	callDate := ""
	if item != nil {
		for k, v := range item.Metadata {
			merged[k] = v
		}
		if v, ok := item.Metadata["call_date"]; ok {
			if s, ok := v.(string); ok {
				callDate = s
			}
		}
	}

	b, err := json.Marshal(merged)
	if err != nil {
		return "{}", callDate
	}
	return string(b), callDate
}
