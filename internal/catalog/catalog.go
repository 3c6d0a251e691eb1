// Package catalog serves the public, unauthenticated listing of bookable media.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/internal/availability"
	"github.com/angelmondragon/adspace-backend/pkg/db/models"
	"github.com/angelmondragon/adspace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/adspace-backend/pkg/errors"
	"github.com/angelmondragon/adspace-backend/pkg/pagination"
	"github.com/angelmondragon/adspace-backend/pkg/types"
)

var sortColumns = map[string]string{
	"name":          "media.name",
	"type":          "media.type",
	"location":      "media.location",
	"price_per_day": "media.price_per_day",
	"created_at":    "media.created_at",
}

// Filter holds the catalog query string. Zero values mean "no filter".
type Filter struct {
	Name        string
	Type        string
	Location    string
	PricePerDay *decimal.Decimal
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	StartDate   types.Date
	EndDate     types.Date
	SortBy      string
	SortDir     string
	pagination.Params
}

// Owner is the public face of the provider behind a media.
type Owner struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// Entry is one catalog row.
type Entry struct {
	ID          uint64              `json:"id"`
	Name        string              `json:"name"`
	Type        string              `json:"type"`
	Location    string              `json:"location"`
	PeriodLimit string              `json:"period_limit"`
	PricePerDay decimal.Decimal     `json:"price_per_day"`
	Status      enums.MediaStatus   `json:"status"`
	Owner       Owner               `json:"owner"`
	Images      []models.MediaImage `json:"images"`
	CreatedAt   time.Time           `json:"created_at"`
}

// Service answers catalog queries.
type Service struct {
	db *gorm.DB
}

// NewService builds the catalog over the shared connection.
func NewService(conn *gorm.DB) (*Service, error) {
	if conn == nil {
		return nil, fmt.Errorf("catalog db required")
	}
	return &Service{db: conn}, nil
}

// Search lists active media matching the filter.
func (s *Service) Search(ctx context.Context, f Filter) (pagination.Page[Entry], error) {
	var page pagination.Page[Entry]
	if err := f.validate(); err != nil {
		return page, err
	}
	perPage, err := pagination.NormalizePerPage(f.PerPage)
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	offset, err := pagination.DecodeOffset(f.PageToken)
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	conn := s.db.WithContext(ctx)
	q := conn.Model(&models.Media{}).Where("media.active = ?", true)
	if v := strings.TrimSpace(f.Name); v != "" {
		q = q.Where("LOWER(media.name) LIKE ? ESCAPE '\\'", contains(v))
	}
	if v := strings.TrimSpace(f.Type); v != "" {
		q = q.Where("LOWER(media.type) LIKE ? ESCAPE '\\'", contains(v))
	}
	if v := strings.TrimSpace(f.Location); v != "" {
		q = q.Where("LOWER(media.location) LIKE ? ESCAPE '\\'", contains(v))
	}
	if f.PricePerDay != nil {
		q = q.Where("media.price_per_day <= ?", *f.PricePerDay)
	}
	if f.MinPrice != nil {
		q = q.Where("media.price_per_day >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("media.price_per_day <= ?", *f.MaxPrice)
	}
	if !f.StartDate.IsZero() {
		q = q.Where("media.id NOT IN (?)", availability.BookedMediaIDs(conn, f.StartDate, f.EndDate))
	}

	column, dir := sortColumns["created_at"], "DESC"
	if f.SortBy != "" {
		column = sortColumns[f.SortBy]
	}
	if strings.EqualFold(f.SortDir, "asc") {
		dir = "ASC"
	}

	var rows []models.Media
	err = q.Order(column + " " + dir).Order("media.id " + dir).
		Offset(offset).Limit(perPage + 1).
		Find(&rows).Error
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query catalog")
	}

	entries, err := s.hydrate(ctx, rows)
	if err != nil {
		return page, err
	}
	return pagination.OffsetPage(entries, perPage, offset), nil
}

func (s *Service) hydrate(ctx context.Context, rows []models.Media) ([]Entry, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	mediaIDs := make([]uint64, 0, len(rows))
	ownerIDs := make([]uint64, 0, len(rows))
	for _, m := range rows {
		mediaIDs = append(mediaIDs, m.ID)
		ownerIDs = append(ownerIDs, m.UserID)
	}

	var images []models.MediaImage
	if err := s.db.WithContext(ctx).Where("media_id IN ?", mediaIDs).Order("id ASC").Find(&images).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load media images")
	}
	var owners []models.User
	if err := s.db.WithContext(ctx).Unscoped().Select("id", "name").Where("id IN ?", ownerIDs).Find(&owners).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load media owners")
	}

	imagesByMedia := make(map[uint64][]models.MediaImage, len(rows))
	for _, img := range images {
		imagesByMedia[img.MediaID] = append(imagesByMedia[img.MediaID], img)
	}
	ownerNames := make(map[uint64]string, len(owners))
	for _, o := range owners {
		ownerNames[o.ID] = o.Name
	}

	entries := make([]Entry, 0, len(rows))
	for _, m := range rows {
		imgs := imagesByMedia[m.ID]
		if imgs == nil {
			imgs = []models.MediaImage{}
		}
		entries = append(entries, Entry{
			ID:          m.ID,
			Name:        m.Name,
			Type:        m.Type,
			Location:    m.Location,
			PeriodLimit: m.PeriodLimit,
			PricePerDay: m.PricePerDay,
			Status:      m.Status,
			Owner:       Owner{ID: m.UserID, Name: ownerNames[m.UserID]},
			Images:      imgs,
			CreatedAt:   m.CreatedAt,
		})
	}
	return entries, nil
}

func (f Filter) validate() error {
	details := map[string]any{}
	if f.SortBy != "" {
		if _, ok := sortColumns[f.SortBy]; !ok {
			details["sort_by"] = "must be one of name, type, location, price_per_day, created_at"
		}
	}
	if f.SortDir != "" && !strings.EqualFold(f.SortDir, "asc") && !strings.EqualFold(f.SortDir, "desc") {
		details["sort_dir"] = "must be asc or desc"
	}
	switch {
	case f.StartDate.IsZero() != f.EndDate.IsZero():
		details["end_date"] = "start_date and end_date must be provided together"
	case !f.StartDate.IsZero() && f.EndDate.Before(f.StartDate):
		details["end_date"] = "must not be before start_date"
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MaxPrice.LessThan(*f.MinPrice) {
		details["max_price"] = "must not be below min_price"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid catalog filter").WithDetails(details)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// contains builds a LIKE pattern that matches v literally; pair it with
// ESCAPE '\'.
func contains(v string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(v)) + "%"
}
