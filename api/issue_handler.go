package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rpupo63/round/errs"
	"github.com/rpupo63/round/models"
	"github.com/rpupo63/round/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type issueHandler struct {
	responder Responder
	logger    zerolog.Logger
	issues    *services.IssueService
}

func newIssueHandler(issues *services.IssueService) issueHandler {
	logger := log.With().Str("handlerName", "issueHandler").Logger()

	return issueHandler{
		responder: NewResponder(logger),
		logger:    logger,
		issues:    issues,
	}
}

// listIssues returns a project's board
// @Summary List issues
// @Description One group per status in board order; each group most urgent first
// @Tags Issues
// @Produce json
// @Param projectID path string true "Project ID"
// @Success 200 {object} IssueBoard
// @Router /projects/{projectID}/issues [get]
func (h issueHandler) listIssues() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groups, err := h.issues.ListGrouped(r.Context(), ctxGetUserID(r.Context()), chi.URLParam(r, "projectID"))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, IssueBoard{Groups: groups})
	}
}

// createIssue adds an issue with the project's next number
// @Summary Create issue
// @Tags Issues
// @Accept json
// @Produce json
// @Param projectID path string true "Project ID"
// @Param issue body services.CreateIssueInput true "Issue data"
// @Success 201 {object} models.Issue
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse "Caller is not a member"
// @Failure 404 {object} ErrorResponse
// @Router /projects/{projectID}/issues [post]
func (h issueHandler) createIssue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input services.CreateIssueInput
		if err := decodeJSON(w, r, "issue", &input); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		issue, err := h.issues.Create(r.Context(), ctxGetUserID(r.Context()), chi.URLParam(r, "projectID"), input)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSONStatus(w, http.StatusCreated, issue)
	}
}

func (h issueHandler) getIssue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		issue, err := h.issues.Get(r.Context(), ctxGetUserID(r.Context()), chi.URLParam(r, "issueID"))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, issue)
	}
}

func (h issueHandler) listLabels() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.responder.WriteJSON(w, models.LabelCatalog)
	}
}

// updateField decodes a request body of type T, turns it into a field update
// and answers with the {success, error} envelope.
func updateField[T any](h issueHandler, payloadName string, toUpdate func(T) (services.FieldUpdate, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body T
		if err := decodeJSON(w, r, payloadName, &body); err != nil {
			h.responder.WriteResult(w, err)
			return
		}
		update, err := toUpdate(body)
		if err != nil {
			h.responder.WriteResult(w, err)
			return
		}
		err = h.issues.UpdateField(r.Context(), ctxGetUserID(r.Context()), chi.URLParam(r, "issueID"), update)
		h.responder.WriteResult(w, err)
	}
}

func (h issueHandler) updateStatus() http.HandlerFunc {
	return updateField(h, "status", func(body UpdateStatusRequest) (services.FieldUpdate, error) {
		return services.StatusUpdate{Status: body.Status}, nil
	})
}

func (h issueHandler) updatePriority() http.HandlerFunc {
	return updateField(h, "priority", func(body UpdatePriorityRequest) (services.FieldUpdate, error) {
		return services.PriorityUpdate{Priority: body.Priority}, nil
	})
}

func (h issueHandler) updateAssignee() http.HandlerFunc {
	return updateField(h, "assignee", func(body UpdateAssigneeRequest) (services.FieldUpdate, error) {
		return services.AssigneeUpdate{UserID: body.AssignedUserID}, nil
	})
}

func (h issueHandler) updateTargetDate() http.HandlerFunc {
	return updateField(h, "target date", func(body UpdateTargetDateRequest) (services.FieldUpdate, error) {
		date, err := parseTargetDate(body.TargetDate)
		if err != nil {
			return nil, err
		}
		return services.TargetDateUpdate{Date: date}, nil
	})
}

func (h issueHandler) updateLabels() http.HandlerFunc {
	return updateField(h, "labels", func(body UpdateLabelsRequest) (services.FieldUpdate, error) {
		return services.LabelsUpdate{Labels: body.Labels}, nil
	})
}

func parseTargetDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	value := strings.TrimSpace(*raw)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, errs.NewInvalidFieldError("targetDate", "expected RFC 3339 timestamp or YYYY-MM-DD")
	}
	return &t, nil
}
