package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rpupo63/round/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type invitationHandler struct {
	responder   Responder
	logger      zerolog.Logger
	invitations *services.InvitationService
}

func newInvitationHandler(invitations *services.InvitationService) invitationHandler {
	logger := log.With().Str("handlerName", "invitationHandler").Logger()

	return invitationHandler{
		responder:   NewResponder(logger),
		logger:      logger,
		invitations: invitations,
	}
}

// createInvitations invites email addresses to a project
// @Summary Invite to project
// @Tags Invitations
// @Accept json
// @Produce json
// @Param projectID path string true "Project ID"
// @Param body body CreateInvitationsRequest true "Addresses to invite"
// @Success 201 {object} InvitationCollection
// @Failure 400 {object} ErrorResponse "No or malformed addresses"
// @Failure 403 {object} ErrorResponse "Caller is not a member"
// @Router /projects/{projectID}/invitations [post]
func (h invitationHandler) createInvitations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body CreateInvitationsRequest
		if err := decodeJSON(w, r, "invitation", &body); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		invitations, err := h.invitations.Create(r.Context(), ctxGetUserID(r.Context()), chi.URLParam(r, "projectID"), body.Emails)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSONStatus(w, http.StatusCreated, InvitationCollection{Invitations: invitations})
	}
}

// listInvitations returns a project's invitations
// @Summary List project invitations
// @Tags Invitations
// @Produce json
// @Param projectID path string true "Project ID"
// @Success 200 {object} InvitationCollection
// @Failure 403 {object} ErrorResponse "Caller is not a member"
// @Failure 404 {object} ErrorResponse "Project not found"
// @Router /projects/{projectID}/invitations [get]
func (h invitationHandler) listInvitations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		invitations, err := h.invitations.List(r.Context(), ctxGetUserID(r.Context()), chi.URLParam(r, "projectID"))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, InvitationCollection{Invitations: invitations})
	}
}
