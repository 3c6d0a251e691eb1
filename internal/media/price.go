package media

import (
	"context"

	"github.com/angelmondragon/adspace-backend/internal/access"
	"github.com/angelmondragon/adspace-backend/internal/pricing"
	"github.com/angelmondragon/adspace-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/adspace-backend/pkg/errors"
	"github.com/angelmondragon/adspace-backend/pkg/types"
)

type quoter interface {
	QuoteMedia(ctx context.Context, media *models.Media, start, end types.Date) (pricing.Quote, error)
}

type availabilityChecker interface {
	IsFree(ctx context.Context, mediaID uint64, start, end types.Date, excludeItemID uint64) (bool, error)
}

// PriceInput is the inclusive range to price.
type PriceInput struct {
	StartDate types.Date
	EndDate   types.Date
}

// PriceCheck is a quote plus whether the media can be booked for the range.
type PriceCheck struct {
	pricing.Quote
	Available bool `json:"available"`
}

// CalculatePrice quotes an active media for any signed-in caller. Nothing is
// reserved; the answer can change before an item is added.
func (s *service) CalculatePrice(ctx context.Context, actor access.Actor, id uint64, input PriceInput) (*PriceCheck, error) {
	if err := actor.Authenticated(); err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if input.StartDate.IsZero() {
		fields["start_date"] = "is required"
	}
	if input.EndDate.IsZero() {
		fields["end_date"] = "is required"
	}
	if len(fields) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid date range").WithDetails(fields)
	}

	media, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	if !media.Active && !actor.IsAdmin() && !actor.Owns(media.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
	}

	quote, err := s.quoter.QuoteMedia(ctx, media, input.StartDate, input.EndDate)
	if err != nil {
		return nil, err
	}
	free, err := s.avail.IsFree(ctx, media.ID, input.StartDate, input.EndDate, 0)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check media availability")
	}
	return &PriceCheck{Quote: quote, Available: free}, nil
}
