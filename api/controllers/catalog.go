package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/adspace-backend/api/responses"
	"github.com/angelmondragon/adspace-backend/api/validators"
	"github.com/angelmondragon/adspace-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/adspace-backend/pkg/errors"
	"github.com/angelmondragon/adspace-backend/pkg/logger"
	"github.com/angelmondragon/adspace-backend/pkg/pagination"
)

// CatalogSearcher answers public catalog queries.
type CatalogSearcher interface {
	Search(ctx context.Context, f catalog.Filter) (pagination.Page[catalog.Entry], error)
}

// CatalogMedia is the public, unauthenticated media listing.
func CatalogMedia(svc CatalogSearcher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		filter, err := parseCatalogFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.Search(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func parseCatalogFilter(r *http.Request) (catalog.Filter, error) {
	q := r.URL.Query()
	f := catalog.Filter{
		Name:     validators.SanitizeString(q.Get("name"), 255),
		Type:     validators.SanitizeString(q.Get("type"), 100),
		Location: validators.SanitizeString(q.Get("location"), 255),
		SortBy:   validators.SanitizeString(q.Get("sort_by"), 32),
		SortDir:  validators.SanitizeString(q.Get("sort_dir"), 8),
	}

	var err error
	if f.Params, err = validators.ParsePagination(r); err != nil {
		return f, err
	}
	if f.PricePerDay, err = validators.ParseQueryDecimal(r, "price_per_day"); err != nil {
		return f, err
	}
	if f.MinPrice, err = validators.ParseQueryDecimal(r, "min_price"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = validators.ParseQueryDecimal(r, "max_price"); err != nil {
		return f, err
	}
	if f.StartDate, err = validators.ParseQueryDate(r, "start_date"); err != nil {
		return f, err
	}
	if f.EndDate, err = validators.ParseQueryDate(r, "end_date"); err != nil {
		return f, err
	}
	return f, nil
}
