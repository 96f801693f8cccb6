package api

import (
	"github.com/go-chi/chi/v5"
)

func setupPublicRoutes(r chi.Router, handlers *routeHandlers) {
	r.Get("/healthz", handlers.healthHandler.health())
	r.Get("/labels", handlers.issueHandler.listLabels())
	r.Get("/auth/github/login", handlers.authHandler.githubLogin())
	r.Get("/auth/github/callback", handlers.authHandler.githubCallback())
	r.Post("/auth/logout", handlers.authHandler.logout())
}

// setupFrontendRoutes sets up all routes with authentication
func setupFrontendRoutes(r chi.Router, handlers *routeHandlers, authMiddleware authMiddleware) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.authenticate)

		r.Get("/auth/session", handlers.authHandler.getSession())

		r.Get("/projects", handlers.projectHandler.getAllProjects())
		r.Post("/projects", handlers.projectHandler.createProject())
		r.Get("/projects/{projectID}", handlers.projectHandler.getProject())
		r.Get("/projects/{projectID}/members", handlers.projectHandler.getMembers())

		r.Get("/projects/{projectID}/issues", handlers.issueHandler.listIssues())
		r.Post("/projects/{projectID}/issues", handlers.issueHandler.createIssue())
		r.Get("/issues/{issueID}", handlers.issueHandler.getIssue())

		r.Get("/projects/{projectID}/invitations", handlers.invitationHandler.listInvitations())
		r.Post("/projects/{projectID}/invitations", handlers.invitationHandler.createInvitations())
	})

	// Field updates answer with the {success, error} envelope, including when
	// the caller is not signed in.
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.authenticateResult)

		r.Patch("/issues/{issueID}/status", handlers.issueHandler.updateStatus())
		r.Patch("/issues/{issueID}/priority", handlers.issueHandler.updatePriority())
		r.Patch("/issues/{issueID}/assignee", handlers.issueHandler.updateAssignee())
		r.Patch("/issues/{issueID}/target-date", handlers.issueHandler.updateTargetDate())
		r.Patch("/issues/{issueID}/labels", handlers.issueHandler.updateLabels())
	})
}
