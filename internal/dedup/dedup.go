// Package dedup prevents duplicate Items for the same real-world artifact.
// Lookup walks a hierarchical identifier strategy from most to least
// specific, validating critical-handle relationships before accepting a
// match, and falls back to creating a new Item.
package dedup

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/AnthusAI/plexus-feedback/pkg/dashboard"
)

// Handle is one named identifier attached to an item, e.g. ("form ID", "12345").
type Handle struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	URL   string `json:"url,omitempty"`
}

// handleClass buckets handle names for the lookup hierarchy. Names compare
// after lowercasing and stripping spaces and underscores, so "form ID",
// "formId", and "form_id" all classify the same.
func handleClass(name string) string {
	n := strings.ToLower(name)
	n = strings.ReplaceAll(n, " ", "")
	n = strings.ReplaceAll(n, "_", "")
	switch n {
	case "formid":
		return "form"
	case "reportid":
		return "report"
	case "sessionid":
		return "session"
	default:
		return "other"
	}
}

// UpsertRequest describes one item upsert.
type UpsertRequest struct {
	AccountID   string
	Identifiers []Handle
	ExternalID  string
	Text        string
	Metadata    map[string]any

	EvaluationID  string
	IsEvaluation  bool
	CreatedByType string // "evaluation" or "prediction"
}

// Upserter resolves-or-creates Items through the dashboard API.
type Upserter struct {
	client dashboard.Client
}

// New creates an Upserter over the given client.
func New(client dashboard.Client) *Upserter {
	return &Upserter{client: client}
}

// Upsert returns the id of the existing or newly created Item. Calling twice
// with identical identifiers returns the same id with created == false on the
// second call. Errors are returned for the caller to treat non-fatally.
func (u *Upserter) Upsert(ctx context.Context, req UpsertRequest) (itemID string, created bool, err error) {
	existing, err := u.find(ctx, req)
	if err != nil {
		return "", false, err
	}

	if existing != nil {
		if err := u.update(ctx, existing, req); err != nil {
			return existing.ID, false, err
		}
		return existing.ID, false, nil
	}

	item, err := u.create(ctx, req)
	if err != nil {
		return "", false, err
	}
	return item.ID, true, nil
}

// find walks the lookup hierarchy: form handle first (most specific), then
// report/session handles, then remaining handles, then externalId. Every
// candidate reached through a handle must pass relationship validation on
// the critical handles before it is accepted.
func (u *Upserter) find(ctx context.Context, req UpsertRequest) (*dashboard.Item, error) {
	byClass := map[string][]Handle{}
	for _, h := range req.Identifiers {
		c := handleClass(h.Name)
		byClass[c] = append(byClass[c], h)
	}

	// Most specific: a form-level handle identifies exactly one item. The
	// critical handles still have to agree; the same form value arriving
	// under a different report is a different artifact.
	for _, h := range byClass["form"] {
		item, err := u.lookupByValue(ctx, req.AccountID, h.Value)
		if err != nil {
			return nil, err
		}
		if item == nil {
			continue
		}
		if !relationshipValid(req.Identifiers, item.Identifiers) {
			zap.L().Warn("rejecting item candidate on relationship mismatch",
				zap.String("itemId", item.ID),
				zap.String("handle", h.Name),
				zap.String("value", h.Value),
			)
			continue
		}
		return item, nil
	}

	// Report/session handles are shared across sibling forms; validate the
	// relationship before accepting to avoid attaching a form to a stranger
	// that merely shares one broad handle.
	for _, class := range []string{"report", "session"} {
		for _, h := range byClass[class] {
			item, err := u.lookupByValue(ctx, req.AccountID, h.Value)
			if err != nil {
				return nil, err
			}
			if item == nil {
				continue
			}
			if !relationshipValid(req.Identifiers, item.Identifiers) {
				zap.L().Warn("rejecting item candidate on relationship mismatch",
					zap.String("itemId", item.ID),
					zap.String("handle", h.Name),
					zap.String("value", h.Value),
				)
				continue
			}
			return item, nil
		}
	}

	for _, h := range byClass["other"] {
		item, err := u.lookupByValue(ctx, req.AccountID, h.Value)
		if err != nil {
			return nil, err
		}
		if item != nil {
			return item, nil
		}
	}

	if req.ExternalID != "" {
		items, err := u.client.ListItemsByExternalID(ctx, req.AccountID, req.ExternalID)
		if err != nil {
			return nil, eris.Wrap(err, "dedup: lookup by externalId")
		}
		if len(items) > 0 {
			if len(items) > 1 {
				zap.L().Warn("multiple items share one externalId",
					zap.String("externalId", req.ExternalID),
					zap.Int("count", len(items)),
				)
				sort.Slice(items, func(i, j int) bool {
					return items[i].UpdatedAt.After(items[j].UpdatedAt)
				})
			}
			return &items[0], nil
		}
	}

	return nil, nil
}

// lookupByValue resolves a handle value through the account-scoped identifier
// index. Duplicate rows are a soft condition: the most recently updated wins.
func (u *Upserter) lookupByValue(ctx context.Context, accountID, value string) (*dashboard.Item, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	idents, err := u.client.ListIdentifiersByValue(ctx, accountID, value)
	if err != nil {
		return nil, eris.Wrapf(err, "dedup: identifier lookup %q", value)
	}
	if len(idents) == 0 {
		return nil, nil
	}
	if len(idents) > 1 {
		zap.L().Warn("identifier value maps to multiple items",
			zap.String("value", value),
			zap.Int("count", len(idents)),
		)
		sort.Slice(idents, func(i, j int) bool {
			return idents[i].UpdatedAt.After(idents[j].UpdatedAt)
		})
	}
	item, err := u.client.GetItem(ctx, idents[0].ItemID)
	if err != nil {
		return nil, eris.Wrapf(err, "dedup: get item %s", idents[0].ItemID)
	}
	return item, nil
}

// relationshipValid compares critical handles (report, session) between the
// incoming identifiers and the candidate's stored ones. Any shared critical
// handle that disagrees rejects the candidate.
func relationshipValid(incoming []Handle, stored dashboard.LegacyIdentifiers) bool {
	storedByClass := map[string]string{}
	for _, s := range stored {
		c := handleClass(s.Name)
		if c == "report" || c == "session" {
			storedByClass[c] = s.ID
		}
	}
	for _, h := range incoming {
		c := handleClass(h.Name)
		if c != "report" && c != "session" {
			continue
		}
		if existing, ok := storedByClass[c]; ok && existing != h.Value {
			return false
		}
	}
	return true
}

func (u *Upserter) create(ctx context.Context, req UpsertRequest) (*dashboard.Item, error) {
	input := map[string]any{
		"accountId":     req.AccountID,
		"isEvaluation":  req.IsEvaluation,
		"createdByType": createdByType(req),
	}
	if req.ExternalID != "" {
		input["externalId"] = req.ExternalID
	}
	if req.Text != "" {
		input["text"] = req.Text
	}
	if req.EvaluationID != "" {
		input["evaluationId"] = req.EvaluationID
	}
	if len(req.Metadata) > 0 {
		meta, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, eris.Wrap(err, "dedup: marshal metadata")
		}
		input["metadata"] = string(meta)
	}
	if legacy := legacyJSON(req.Identifiers); legacy != "" {
		input["identifiers"] = legacy
	}

	item, err := u.client.CreateItem(ctx, input)
	if err != nil {
		return nil, eris.Wrap(err, "dedup: create item")
	}

	// First-class Identifier rows carry the ordered position so readers can
	// reconstruct the original handle order.
	for pos, h := range req.Identifiers {
		identInput := map[string]any{
			"accountId": req.AccountID,
			"itemId":    item.ID,
			"name":      h.Name,
			"value":     h.Value,
			"position":  pos,
		}
		if h.URL != "" {
			identInput["url"] = h.URL
		}
		if _, err := u.client.CreateIdentifier(ctx, identInput); err != nil {
			// Concurrent reruns can race on identifier creation; the rows are
			// idempotent by composite key, so log and keep going.
			zap.L().Warn("identifier create failed",
				zap.String("itemId", item.ID),
				zap.String("name", h.Name),
				zap.Error(err),
			)
		}
	}

	return item, nil
}

// update merges only the non-empty incoming fields onto the existing item.
func (u *Upserter) update(ctx context.Context, existing *dashboard.Item, req UpsertRequest) error {
	patch := map[string]any{}
	if req.Text != "" && req.Text != existing.Text {
		patch["text"] = req.Text
	}
	if req.ExternalID != "" && existing.ExternalID == "" {
		patch["externalId"] = req.ExternalID
	}
	if req.EvaluationID != "" && existing.EvaluationID == "" {
		patch["evaluationId"] = req.EvaluationID
	}
	if len(req.Metadata) > 0 {
		merged := map[string]any{}
		for k, v := range existing.Metadata {
			merged[k] = v
		}
		for k, v := range req.Metadata {
			merged[k] = v
		}
		meta, err := json.Marshal(merged)
		if err != nil {
			return eris.Wrap(err, "dedup: marshal metadata")
		}
		patch["metadata"] = string(meta)
	}
	if len(existing.Identifiers) == 0 && len(req.Identifiers) > 0 {
		if legacy := legacyJSON(req.Identifiers); legacy != "" {
			patch["identifiers"] = legacy
		}
	}

	if len(patch) == 0 {
		return nil
	}
	if _, err := u.client.UpdateItem(ctx, existing.ID, patch); err != nil {
		return eris.Wrapf(err, "dedup: update item %s", existing.ID)
	}
	return nil
}

// legacyJSON renders the backwards-compatible on-item identifier list, where
// the value historically lives in a field named "id".
func legacyJSON(handles []Handle) string {
	if len(handles) == 0 {
		return ""
	}
	legacy := make([]dashboard.LegacyIdentifier, len(handles))
	for i, h := range handles {
		legacy[i] = dashboard.LegacyIdentifier{Name: h.Name, ID: h.Value, URL: h.URL}
	}
	b, err := json.Marshal(legacy)
	if err != nil {
		return ""
	}
	return string(b)
}

func createdByType(req UpsertRequest) string {
	if req.CreatedByType != "" {
		return req.CreatedByType
	}
	if req.IsEvaluation {
		return "evaluation"
	}
	return "prediction"
}
