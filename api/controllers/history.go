package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/galleryve/galleryve-backend/api/responses"
	"github.com/galleryve/galleryve-backend/internal/artists"
	"github.com/galleryve/galleryve-backend/internal/customers"
	"github.com/galleryve/galleryve-backend/internal/history"
	"github.com/galleryve/galleryve-backend/internal/transactions"
	"github.com/galleryve/galleryve-backend/pkg/enums"
	pkgerrors "github.com/galleryve/galleryve-backend/pkg/errors"
	"github.com/galleryve/galleryve-backend/pkg/identity"
	"github.com/galleryve/galleryve-backend/pkg/logger"
)

// visibilityCheck resolves whether the caller may read the subject
// record. History inherits the record's own access rules, so each
// handler runs the owning service's Get before listing.
type visibilityCheck func(ctx context.Context, principal identity.Principal, id uuid.UUID) error

// CustomerHistory lists field-level changes for one customer.
func CustomerHistory(recordSvc customers.Service, historySvc history.Service, logg *logger.Logger) http.HandlerFunc {
	var check visibilityCheck
	if recordSvc != nil {
		check = func(ctx context.Context, principal identity.Principal, id uuid.UUID) error {
			_, err := recordSvc.Get(ctx, principal, id)
			return err
		}
	}
	return subjectHistory(historySvc, logg, enums.SubjectTypeCustomer, check)
}

// TransactionHistory lists field-level changes for one transaction.
func TransactionHistory(recordSvc transactions.Service, historySvc history.Service, logg *logger.Logger) http.HandlerFunc {
	var check visibilityCheck
	if recordSvc != nil {
		check = func(ctx context.Context, principal identity.Principal, id uuid.UUID) error {
			_, err := recordSvc.Get(ctx, principal, id)
			return err
		}
	}
	return subjectHistory(historySvc, logg, enums.SubjectTypeTransaction, check)
}

// ArtistHistory lists field-level changes for one artist.
func ArtistHistory(recordSvc artists.Service, historySvc history.Service, logg *logger.Logger) http.HandlerFunc {
	var check visibilityCheck
	if recordSvc != nil {
		check = func(ctx context.Context, principal identity.Principal, id uuid.UUID) error {
			_, err := recordSvc.Get(ctx, principal, id)
			return err
		}
	}
	return subjectHistory(historySvc, logg, enums.SubjectTypeArtist, check)
}

func subjectHistory(historySvc history.Service, logg *logger.Logger, subjectType enums.SubjectType, check visibilityCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if historySvc == nil || check == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "history service unavailable"))
			return
		}

		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := parseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := check(r.Context(), principal, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := parsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := historySvc.ListBySubject(r.Context(), subjectType, id, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
