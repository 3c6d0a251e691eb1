package controllers

import (
	"net/http"

	"github.com/angelmondragon/adspace-backend/api/middleware"
	"github.com/angelmondragon/adspace-backend/api/responses"
	"github.com/angelmondragon/adspace-backend/api/validators"
	"github.com/angelmondragon/adspace-backend/internal/campaigns"
	"github.com/angelmondragon/adspace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/adspace-backend/pkg/errors"
	"github.com/angelmondragon/adspace-backend/pkg/logger"
	"github.com/angelmondragon/adspace-backend/pkg/types"
)

type campaignCreateRequest struct {
	Name      string               `json:"name"`
	StartDate types.Date           `json:"start_date"`
	EndDate   types.Date           `json:"end_date"`
	Currency  enums.Currency       `json:"currency"`
	Status    enums.CampaignStatus `json:"status"`
	UserID    uint64               `json:"user_id"`
}

// campaignUpdateRequest rejects date changes at decode time: the fields are
// unknown to it.
type campaignUpdateRequest struct {
	Name     *string               `json:"name"`
	Currency *enums.Currency       `json:"currency"`
	Status   *enums.CampaignStatus `json:"status"`
	UserID   *uint64               `json:"user_id"`
}

func CampaignCreate(svc campaigns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "campaigns service unavailable"))
			return
		}

		var body campaignCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		campaign, err := svc.Create(r.Context(), middleware.ActorFromContext(r.Context()), campaigns.CreateInput{
			Name:      validators.SanitizeString(body.Name, 255),
			StartDate: body.StartDate,
			EndDate:   body.EndDate,
			Currency:  body.Currency,
			Status:    body.Status,
			UserID:    body.UserID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, campaign)
	}
}

func CampaignUpdate(svc campaigns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "campaigns service unavailable"))
			return
		}

		id, err := validators.PathID(r, "campaignId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body campaignUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		campaign, err := svc.Update(r.Context(), middleware.ActorFromContext(r.Context()), id, campaigns.UpdateInput{
			Name:     body.Name,
			Currency: body.Currency,
			Status:   body.Status,
			UserID:   body.UserID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, campaign)
	}
}

// CampaignCancel cancels the campaign and reports the penalty owed.
func CampaignCancel(svc campaigns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "campaigns service unavailable"))
			return
		}

		id, err := validators.PathID(r, "campaignId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Cancel(r.Context(), middleware.ActorFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func CampaignDelete(svc campaigns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "campaigns service unavailable"))
			return
		}

		id, err := validators.PathID(r, "campaignId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), middleware.ActorFromContext(r.Context()), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, "campaign deleted", nil)
	}
}

func CampaignGet(svc campaigns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "campaigns service unavailable"))
			return
		}

		id, err := validators.PathID(r, "campaignId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		campaign, err := svc.Get(r.Context(), middleware.ActorFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, campaign)
	}
}

func CampaignList(svc campaigns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "campaigns service unavailable"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), middleware.ActorFromContext(r.Context()), campaigns.ListParams{
			Status: enums.CampaignStatus(r.URL.Query().Get("status")),
			Params: params,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
