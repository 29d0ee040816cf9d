package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/AnthusAI/plexus-feedback/internal/dedup"
	"github.com/AnthusAI/plexus-feedback/internal/feedback"
	"github.com/AnthusAI/plexus-feedback/internal/resolver"
	"github.com/AnthusAI/plexus-feedback/internal/sampling"
	"github.com/AnthusAI/plexus-feedback/pkg/dashboard"
)

// IdentifierExtractor produces client-specific handles for one feedback item,
// letting host integrations attach their own ids (form systems, QA tools) to
// the shared Item record.
type IdentifierExtractor func(fb dashboard.FeedbackItem, item *dashboard.Item) []dedup.Handle

// BuildOptions configures one dataset build.
type BuildOptions struct {
	AccountID string
	Scorecard string
	Score     string

	Days  int
	Start time.Time
	End   time.Time

	InitialValue string
	FinalValue   string

	// Limit caps total rows; LimitPerCell caps each confusion cell.
	Limit                  int
	LimitPerCell           int
	PrioritizeEditComments bool

	// FeedbackID restricts the dataset to exactly one record.
	FeedbackID string

	Extractor      IdentifierExtractor
	ColumnMappings map[string]string

	Rand *rand.Rand
}

// Builder drives retrieval, sampling, and item upserts into a Frame.
type Builder struct {
	client   dashboard.Client
	resolver *resolver.Resolver
	engine   *feedback.Engine
	upserter *dedup.Upserter
}

// NewBuilder wires a dataset builder over one dashboard client.
func NewBuilder(client dashboard.Client) *Builder {
	return &Builder{
		client:   client,
		resolver: resolver.New(client),
		engine:   feedback.NewEngine(client),
		upserter: dedup.New(client),
	}
}

// Build assembles the dataset frame. In normal mode it retrieves all feedback
// in range, samples per confusion cell, then applies the global cap. With
// FeedbackID set it fetches exactly that record. An empty result yields a
// frame with the correct columns and zero rows.
func (b *Builder) Build(ctx context.Context, opts BuildOptions) (*Frame, error) {
	sc, err := b.resolver.Scorecard(ctx, opts.AccountID, opts.Scorecard)
	if err != nil {
		return nil, err
	}
	score, err := b.resolver.Score(sc, opts.Score)
	if err != nil {
		return nil, err
	}

	frame := NewFrame(score.Name, opts.ColumnMappings)

	var items []dashboard.FeedbackItem
	if opts.FeedbackID != "" {
		fb, err := b.client.GetFeedbackItem(ctx, opts.FeedbackID)
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: get feedback %s", opts.FeedbackID)
		}
		if fb == nil {
			return nil, eris.New(fmt.Sprintf("dataset: feedback item %s not found", opts.FeedbackID))
		}
		if fb.ScorecardID != sc.ID || fb.ScoreID != score.ID {
			return nil, eris.New(fmt.Sprintf(
				"dataset: feedback item %s belongs to scorecard %s / score %s, not the requested pair",
				opts.FeedbackID, fb.ScorecardID, fb.ScoreID))
		}
		items = []dashboard.FeedbackItem{*fb}
	} else {
		items, err = b.engine.Find(ctx, feedback.FindOptions{
			AccountID:              opts.AccountID,
			ScorecardID:            sc.ID,
			ScoreID:                score.ID,
			Days:                   opts.Days,
			Start:                  opts.Start,
			End:                    opts.End,
			InitialValue:           opts.InitialValue,
			FinalValue:             opts.FinalValue,
			PrioritizeEditComments: opts.PrioritizeEditComments,
			WithItem:               true,
		})
		if err != nil {
			return nil, err
		}

		items = sampling.ByCell(items, sampling.CellOptions{
			PerCell:         opts.LimitPerCell,
			Total:           opts.Limit,
			PrioritizeEdits: opts.PrioritizeEditComments,
			Rand:            opts.Rand,
		})
	}

	for _, fb := range items {
		row, err := b.buildRow(ctx, fb, opts)
		if err != nil {
			return nil, err
		}
		frame.Rows = append(frame.Rows, row)
	}

	zap.L().Info("dataset built",
		zap.String("scorecard", sc.Name),
		zap.String("score", score.Name),
		zap.Int("rows", len(frame.Rows)),
	)
	return frame, nil
}

func (b *Builder) buildRow(ctx context.Context, fb dashboard.FeedbackItem, opts BuildOptions) ([]string, error) {
	item := fb.Item
	if item == nil && fb.ItemID != "" {
		fetched, err := b.client.GetItem(ctx, fb.ItemID)
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: get item %s", fb.ItemID)
		}
		item = fetched
	}

	ids := b.rowIdentifiers(ctx, fb, item, opts)
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: marshal ids")
	}

	meta, callDate := metadataJSON(fb, item)

	text := ""
	if item != nil {
		text = item.Text
	}

	row := make([]string, columnCount)
	row[colContentID] = fb.ItemID
	row[colFeedbackItemID] = fb.ID
	row[colIDs] = string(idsJSON)
	row[colMetadata] = meta
	row[colText] = text
	row[colCallDate] = callDate
	row[colScore] = fb.FinalAnswerValue
	row[colComment] = deriveComment(fb.InitialCommentValue, fb.FinalCommentValue, fb.EditCommentValue)
	row[colEditComment] = fb.EditCommentValue
	return row, nil
}

// rowIdentifiers runs the extractor (upserting the shared Item with the
// client handles) and always appends the externalId and itemId fallbacks.
func (b *Builder) rowIdentifiers(ctx context.Context, fb dashboard.FeedbackItem, item *dashboard.Item, opts BuildOptions) []IDEntry {
	var entries []IDEntry

	if opts.Extractor != nil {
		handles := opts.Extractor(fb, item)
		if len(handles) > 0 {
			_, _, err := b.upserter.Upsert(ctx, dedup.UpsertRequest{
				AccountID:   fb.AccountID,
				Identifiers: handles,
			})
			if err != nil {
				// Identifier upsert failures degrade the IDs column, not the
				// dataset; the fallback handles still identify the row.
				zap.L().Warn("identifier upsert failed",
					zap.String("feedbackItemId", fb.ID),
					zap.Error(err),
				)
			}
			for _, h := range handles {
				entries = append(entries, IDEntry{Name: h.Name, Value: h.Value, URL: h.URL})
			}
		}
	}

	if item != nil && item.ExternalID != "" {
		entries = append(entries, IDEntry{Name: "external ID", Value: item.ExternalID})
	}
	entries = append(entries, IDEntry{Name: "item ID", Value: fb.ItemID})
	return entries
}

// Reload refreshes value columns for an existing frame by re-reading each
// row's feedback record by its stable id. The row set, order, and IDs column
// are preserved; missing records keep their previous values and log.
func (b *Builder) Reload(ctx context.Context, frame *Frame) (*Frame, error) {
	if len(frame.Columns) != columnCount {
		return nil, eris.New(fmt.Sprintf("dataset: expected %d columns, got %d", columnCount, len(frame.Columns)))
	}

	out := &Frame{Columns: frame.Columns, Rows: make([][]string, 0, len(frame.Rows))}
	for _, row := range frame.Rows {
		if len(row) != columnCount {
			return nil, eris.New("dataset: malformed row in frame")
		}
		refreshed := make([]string, columnCount)
		copy(refreshed, row)

		fb, err := b.client.GetFeedbackItem(ctx, row[colFeedbackItemID])
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: reload feedback %s", row[colFeedbackItemID])
		}
		if fb == nil {
			zap.L().Warn("feedback item vanished during reload, keeping stale row",
				zap.String("feedbackItemId", row[colFeedbackItemID]),
			)
			out.Rows = append(out.Rows, refreshed)
			continue
		}

		item := fb.Item
		if item == nil && fb.ItemID != "" {
			item, err = b.client.GetItem(ctx, fb.ItemID)
			if err != nil {
				return nil, eris.Wrapf(err, "dataset: reload item %s", fb.ItemID)
			}
		}

		meta, callDate := metadataJSON(*fb, item)
		refreshed[colMetadata] = meta
		refreshed[colCallDate] = callDate
		if item != nil {
			refreshed[colText] = item.Text
		}
		refreshed[colScore] = fb.FinalAnswerValue
		refreshed[colComment] = deriveComment(fb.InitialCommentValue, fb.FinalCommentValue, fb.EditCommentValue)
		refreshed[colEditComment] = fb.EditCommentValue

		out.Rows = append(out.Rows, refreshed)
	}
	return out, nil
}
