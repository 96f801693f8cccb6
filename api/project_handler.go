package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rpupo63/round/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type projectHandler struct {
	responder Responder
	logger    zerolog.Logger
	projects  *services.ProjectService
}

func newProjectHandler(projects *services.ProjectService) projectHandler {
	logger := log.With().Str("handlerName", "projectHandler").Logger()

	return projectHandler{
		responder: NewResponder(logger),
		logger:    logger,
		projects:  projects,
	}
}

// getAllProjects lists the caller's projects for the dashboard
// @Summary Get projects
// @Description Projects the caller belongs to, with owner, issue counts and completion percentage
// @Tags Projects
// @Produce json
// @Success 200 {object} ProjectCollection
// @Failure 401 {object} ErrorResponse
// @Router /projects [get]
func (h projectHandler) getAllProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summaries, err := h.projects.Dashboard(r.Context(), ctxGetUserID(r.Context()))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, ProjectCollection{Projects: summaries, Total: len(summaries)})
	}
}

// getProject retrieves a specific project by ID
// @Summary Get project
// @Tags Projects
// @Produce json
// @Param projectID path string true "Project ID"
// @Success 200 {object} models.Project
// @Failure 403 {object} ErrorResponse "Private project the caller is not a member of"
// @Failure 404 {object} ErrorResponse
// @Router /projects/{projectID} [get]
func (h projectHandler) getProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		project, err := h.projects.Get(r.Context(), ctxGetUserID(r.Context()), chi.URLParam(r, "projectID"))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, project)
	}
}

// createProject creates a new project owned by the caller
// @Summary Create project
// @Tags Projects
// @Accept json
// @Produce json
// @Param project body services.CreateProjectInput true "Project data"
// @Success 201 {object} models.Project
// @Failure 400 {object} ErrorResponse "Invalid id, name or short name"
// @Failure 409 {object} ErrorResponse "Id or short name already taken"
// @Router /projects [post]
func (h projectHandler) createProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input services.CreateProjectInput
		if err := decodeJSON(w, r, "project", &input); err != nil {
			h.logger.Warn().Err(err).Msg("Failed to decode project request body")
			h.responder.WriteError(w, err)
			return
		}

		project, err := h.projects.Create(r.Context(), ctxGetUserID(r.Context()), input)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSONStatus(w, http.StatusCreated, project)
	}
}

func (h projectHandler) getMembers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		members, err := h.projects.Members(r.Context(), ctxGetUserID(r.Context()), chi.URLParam(r, "projectID"))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, MemberCollection{Members: members, Total: len(members)})
	}
}
