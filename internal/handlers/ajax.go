// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers of the category manager: the
// AJAX endpoint the term store clients talk to and the admin term pages.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"bcm/internal/middleware"
	"bcm/internal/models"
	"bcm/internal/reconcile"
	"bcm/internal/store"
	"bcm/internal/termstore"
)

const msgServerError = "Something went wrong. Please try again."

// mutations are the AJAX actions that change terms.
var mutations = map[string]bool{
	termstore.ActionSaveTerm:            true,
	termstore.ActionDeleteTerm:          true,
	termstore.ActionUpdateTermHierarchy: true,
}

// Ajax serves the admin AJAX endpoint: one POST route dispatching on the
// "action" form field, answering with a success envelope.
type Ajax struct {
	terms    *Terms
	observer reconcile.Observer
}

// NewAjax creates the AJAX handler. obs may be nil.
func NewAjax(terms *Terms, obs reconcile.Observer) *Ajax {
	return &Ajax{terms: terms, observer: obs}
}

// IsMutation reports whether r is an AJAX request that changes terms.
// It parses the form, which stays available to later handlers.
func IsMutation(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}
	if err := r.ParseForm(); err != nil {
		return false
	}
	return mutations[r.PostFormValue(termstore.FieldAction)]
}

// Nonce hands out the token that mutating requests must echo. The CSRF
// middleware has already set it as a cookie.
func (a *Ajax) Nonce(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, http.StatusOK, true, termstore.Nonce{Nonce: middleware.CSRFTokenFromCtx(r.Context())})
}

// Handle dispatches one AJAX action.
func (a *Ajax) Handle(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeEnvelope(w, http.StatusBadRequest, false, termstore.Message{Message: "Malformed request."})
		return
	}

	ctx := r.Context()
	action := r.PostFormValue(termstore.FieldAction)
	taxonomy := r.PostFormValue(termstore.FieldTaxonomy)

	var (
		data any
		err  error
	)
	switch action {
	case termstore.ActionGetTerms:
		data, err = a.terms.GetTerms(ctx, taxonomy)

	case termstore.ActionGetTermData:
		termID, ok := formID(r, termstore.FieldTermID)
		if !ok {
			err = reject(action, msgInvalidTerm, nil)
			break
		}
		data, err = a.terms.GetTermData(ctx, termID, taxonomy)

	case termstore.ActionSaveTerm:
		form := models.TermForm{
			Taxonomy:    taxonomy,
			Name:        r.PostFormValue(termstore.FieldName),
			Slug:        r.PostFormValue(termstore.FieldSlug),
			Description: r.PostFormValue(termstore.FieldDescription),
		}
		var ok bool
		if form.TermID, ok = formIDOrZero(r, termstore.FieldTermID); !ok {
			err = reject(action, msgInvalidTerm, nil)
			break
		}
		if form.Parent, ok = formIDOrZero(r, termstore.FieldParent); !ok {
			err = reject(action, msgInvalidParent, nil)
			break
		}
		data, err = a.terms.SaveTerm(ctx, form)

	case termstore.ActionDeleteTerm:
		termID, ok := formID(r, termstore.FieldTermID)
		if !ok {
			err = reject(action, msgInvalidTerm, nil)
			break
		}
		data, err = a.terms.DeleteTerm(ctx, termID, taxonomy)

	case termstore.ActionUpdateTermHierarchy:
		termID, ok := formID(r, termstore.FieldTermID)
		if !ok {
			err = reject(action, msgInvalidTerm, nil)
			break
		}
		parentID, ok := formIDOrZero(r, termstore.FieldParentID)
		if !ok {
			err = reject(action, msgInvalidParent, nil)
			break
		}
		data, err = a.terms.UpdateTermHierarchy(ctx, termID, parentID, taxonomy)

	case termstore.ActionGetParentOptions:
		data, err = a.terms.GetParentOptions(ctx, taxonomy)

	default:
		writeEnvelope(w, http.StatusBadRequest, false, termstore.Message{Message: "Unknown action."})
		return
	}

	a.observe(action, err)
	a.respond(w, r, action, data, err)
}

func (a *Ajax) respond(w http.ResponseWriter, r *http.Request, action string, data any, err error) {
	if err == nil {
		writeEnvelope(w, http.StatusOK, true, data)
		return
	}

	var rej *termstore.RejectionError
	if errors.As(err, &rej) {
		status := http.StatusBadRequest
		if errors.Is(err, store.ErrTermNotFound) {
			status = http.StatusNotFound
		}
		slog.Info("ajax action rejected",
			"action", action,
			"reason", rej.Message,
			"request_id", middleware.RequestIDFromCtx(r.Context()),
		)
		writeEnvelope(w, status, false, termstore.Message{Message: rej.Message})
		return
	}

	slog.Error("ajax action failed",
		"action", action,
		"error", err,
		"request_id", middleware.RequestIDFromCtx(r.Context()),
	)
	writeEnvelope(w, http.StatusInternalServerError, false, termstore.Message{Message: msgServerError})
}

// observe reports the outcome of a mutation.
func (a *Ajax) observe(action string, err error) {
	if a.observer == nil || !mutations[action] {
		return
	}
	var rej *termstore.RejectionError
	switch {
	case err == nil:
		a.observer.ObserveMutation(action, reconcile.OutcomeSuccess)
	case errors.Is(err, store.ErrCycle):
		a.observer.ObserveMutation(action, reconcile.OutcomeCycle)
	case errors.As(err, &rej):
		a.observer.ObserveMutation(action, reconcile.OutcomeRejected)
	default:
		a.observer.ObserveMutation(action, reconcile.OutcomeFailed)
	}
}

// formID parses a positive ID form field.
func formID(r *http.Request, field string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PostFormValue(field)), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// formIDOrZero parses an optional ID form field; empty means 0.
func formIDOrZero(r *http.Request, field string) (int64, bool) {
	raw := strings.TrimSpace(r.PostFormValue(field))
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

// writeEnvelope writes {"success":..,"data":..} with the given status.
func writeEnvelope(w http.ResponseWriter, status int, success bool, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		slog.Error("failed to encode ajax response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	body, err := json.Marshal(termstore.Envelope{Success: success, Data: payload})
	if err != nil {
		slog.Error("failed to encode ajax envelope", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}
