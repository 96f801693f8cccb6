package api

import (
	"github.com/rpupo63/round/services"
)

// initializeHandlers creates and returns all handlers organized in a routeHandlers struct
func initializeHandlers(deps Deps, r router) *routeHandlers {
	projects := services.NewProjectService(deps.DB, deps.ReadModel)
	issues := services.NewIssueService(deps.DB, deps.ReadModel)
	invitations := services.NewInvitationService(deps.DB, deps.SessionSecret, deps.Mailer, deps.AppURL)

	return &routeHandlers{
		healthHandler:     newHealthHandler(deps.DB, r.startupTime),
		authHandler:       newAuthHandler(deps.DB.UserRepo(), deps.Sessions, deps.GitHub, deps.AppURL),
		projectHandler:    newProjectHandler(projects),
		issueHandler:      newIssueHandler(issues),
		invitationHandler: newInvitationHandler(invitations),
	}
}
