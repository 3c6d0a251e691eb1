package controllers

import (
	"net/http"

	"github.com/angelmondragon/adspace-backend/api/middleware"
	"github.com/angelmondragon/adspace-backend/api/responses"
	"github.com/angelmondragon/adspace-backend/api/validators"
	"github.com/angelmondragon/adspace-backend/internal/cancellations"
	pkgerrors "github.com/angelmondragon/adspace-backend/pkg/errors"
	"github.com/angelmondragon/adspace-backend/pkg/logger"
)

type cancellationPolicyRequest struct {
	StartDays  *int `json:"start_days"`
	EndDays    *int `json:"end_days"`
	Commission *int `json:"commission"`
}

// requireAll rejects a create that leaves any band field out; zero is a
// legal value so presence is checked on the pointers.
func (b cancellationPolicyRequest) requireAll() error {
	details := map[string]any{}
	if b.StartDays == nil {
		details["start_days"] = "is required"
	}
	if b.EndDays == nil {
		details["end_days"] = "is required"
	}
	if b.Commission == nil {
		details["commission"] = "is required"
	}
	if len(details) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

func CancellationPolicyCreate(svc cancellations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cancellation policies service unavailable"))
			return
		}

		var body cancellationPolicyRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := body.requireAll(); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		policy, err := svc.Create(r.Context(), middleware.ActorFromContext(r.Context()), cancellations.Input{
			StartDays:  *body.StartDays,
			EndDays:    *body.EndDays,
			Commission: *body.Commission,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, policy)
	}
}

func CancellationPolicyUpdate(svc cancellations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cancellation policies service unavailable"))
			return
		}

		id, err := validators.PathID(r, "policyId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body cancellationPolicyRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		policy, err := svc.Update(r.Context(), middleware.ActorFromContext(r.Context()), id, cancellations.UpdateInput{
			StartDays:  body.StartDays,
			EndDays:    body.EndDays,
			Commission: body.Commission,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, policy)
	}
}

func CancellationPolicyDelete(svc cancellations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cancellation policies service unavailable"))
			return
		}

		id, err := validators.PathID(r, "policyId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), middleware.ActorFromContext(r.Context()), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, "cancellation policy deleted", nil)
	}
}

func CancellationPolicyGet(svc cancellations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cancellation policies service unavailable"))
			return
		}

		id, err := validators.PathID(r, "policyId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		policy, err := svc.Get(r.Context(), middleware.ActorFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, policy)
	}
}

func CancellationPolicyList(svc cancellations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cancellation policies service unavailable"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), middleware.ActorFromContext(r.Context()), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
