package controllers

import (
	"net/http"

	"github.com/angelmondragon/adspace-backend/api/middleware"
	"github.com/angelmondragon/adspace-backend/api/responses"
	"github.com/angelmondragon/adspace-backend/api/validators"
	"github.com/angelmondragon/adspace-backend/internal/campaignitems"
	"github.com/angelmondragon/adspace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/adspace-backend/pkg/errors"
	"github.com/angelmondragon/adspace-backend/pkg/logger"
)

type campaignItemCreateRequest struct {
	CampaignID uint64 `json:"campaign_id" validate:"required"`
	MediaID    uint64 `json:"media_id" validate:"required"`
	Range      string `json:"range" validate:"required,notblank"`
}

type campaignItemUpdateRequest struct {
	CampaignID *uint64 `json:"campaign_id"`
	Range      *string `json:"range"`
}

type campaignItemRejectRequest struct {
	Description string `json:"description" validate:"max=1000"`
}

// CampaignItemCreate books a media inside a campaign and returns the stored
// item with its pricing breakdown.
func CampaignItemCreate(svc campaignitems.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "campaign items service unavailable"))
			return
		}

		var body campaignItemCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Add(r.Context(), middleware.ActorFromContext(r.Context()), campaignitems.AddInput{
			CampaignID: body.CampaignID,
			MediaID:    body.MediaID,
			Range:      validators.SanitizeString(body.Range, 255),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, result)
	}
}

func CampaignItemUpdate(svc campaignitems.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "campaign items service unavailable"))
			return
		}

		id, err := validators.PathID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body campaignItemUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Update(r.Context(), middleware.ActorFromContext(r.Context()), id, campaignitems.UpdateInput{
			CampaignID: body.CampaignID,
			Range:      body.Range,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func CampaignItemDelete(svc campaignitems.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "campaign items service unavailable"))
			return
		}

		id, err := validators.PathID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Remove(r.Context(), middleware.ActorFromContext(r.Context()), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, "campaign item removed", nil)
	}
}

func CampaignItemAccept(svc campaignitems.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "campaign items service unavailable"))
			return
		}

		id, err := validators.PathID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Accept(r.Context(), middleware.ActorFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// CampaignItemReject takes an optional {"description"} body.
func CampaignItemReject(svc campaignitems.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "campaign items service unavailable"))
			return
		}

		id, err := validators.PathID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body campaignItemRejectRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		item, err := svc.Reject(r.Context(), middleware.ActorFromContext(r.Context()), id, validators.SanitizeString(body.Description, 1000))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func CampaignItemGet(svc campaignitems.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "campaign items service unavailable"))
			return
		}

		id, err := validators.PathID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Get(r.Context(), middleware.ActorFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// CampaignItemList filters by ?campaign_id, ?media_id and ?provider_status.
func CampaignItemList(svc campaignitems.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "campaign items service unavailable"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		campaignID, err := validators.ParseQueryUint(r, "campaign_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		mediaID, err := validators.ParseQueryUint(r, "media_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), middleware.ActorFromContext(r.Context()), campaignitems.ListParams{
			CampaignID:     campaignID,
			MediaID:        mediaID,
			ProviderStatus: enums.ProviderDecision(r.URL.Query().Get("provider_status")),
			Params:         params,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
