package media

import (
	"context"

	"github.com/angelmondragon/adspace-backend/internal/access"
	"github.com/angelmondragon/adspace-backend/pkg/db/models"
	"github.com/angelmondragon/adspace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/adspace-backend/pkg/errors"
	"github.com/angelmondragon/adspace-backend/pkg/pagination"
)

// ListParams configures media listing filters/pagination. OwnerID is honoured
// for admins; providers only ever list their own media.
type ListParams struct {
	Active  *bool
	OwnerID uint64
	pagination.Params
}

func (s *service) List(ctx context.Context, actor access.Actor, params ListParams) (pagination.Page[models.Media], error) {
	var page pagination.Page[models.Media]
	if err := actor.RequireRole(enums.RoleAdmin, enums.RoleProvider); err != nil {
		return page, err
	}
	perPage, err := pagination.NormalizePerPage(params.PerPage)
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	afterID, err := pagination.DecodeKeyset(params.PageToken)
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	filter := ListFilter{Active: params.Active, AfterID: afterID, Limit: perPage + 1}
	if actor.IsAdmin() {
		filter.OwnerID = params.OwnerID
	}
	rows, err := s.repo.List(ctx, access.MediaScope(actor), filter)
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list media")
	}
	return pagination.KeysetPage(rows, perPage, func(m models.Media) uint64 { return m.ID }), nil
}
