package pricing

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/adspace-backend/pkg/errors"
	"github.com/angelmondragon/adspace-backend/pkg/types"
)

// Engine quotes media prices against the store.
type Engine struct {
	repo Repository
}

// NewEngine builds a pricing engine.
func NewEngine(repo Repository) (*Engine, error) {
	if repo == nil {
		return nil, fmt.Errorf("pricing repository required")
	}
	return &Engine{repo: repo}, nil
}

// WithTx returns an engine reading through the given transaction.
func (e *Engine) WithTx(tx *gorm.DB) *Engine {
	return &Engine{repo: e.repo.WithTx(tx)}
}

// Quote loads the media and prices it for [start, end].
func (e *Engine) Quote(ctx context.Context, mediaID uint64, start, end types.Date) (Quote, error) {
	media, err := e.repo.FindMedia(ctx, mediaID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Quote{}, pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
		}
		return Quote{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load media")
	}
	return e.QuoteMedia(ctx, media, start, end)
}

// QuoteMedia prices an already loaded media.
func (e *Engine) QuoteMedia(ctx context.Context, media *models.Media, start, end types.Date) (Quote, error) {
	if media == nil {
		return Quote{}, pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
	}
	if end.Before(start) {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid date range").
			WithDetails(map[string]any{"end_date": "must not be before start_date"})
	}
	rows, err := e.repo.LinkedRules(ctx, media.ID, start, end)
	if err != nil {
		return Quote{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price rules")
	}
	rules := make([]Rule, 0, len(rows))
	for _, row := range rows {
		rules = append(rules, Rule{
			ID:        row.ID,
			Name:      row.Name,
			StartDate: row.StartDate,
			EndDate:   row.EndDate,
			ValuePct:  row.ValuePct,
		})
	}
	quote, err := Calculate(media.PricePerDay, rules, start, end)
	if err != nil {
		return Quote{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	quote.MediaID = media.ID
	return quote, nil
}
