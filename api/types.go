package api

import (
	"time"

	"github.com/rpupo63/round/models"
	"github.com/rpupo63/round/services"
)

// routeHandlers contains all the handlers for different route types
type routeHandlers struct {
	healthHandler     healthHandler
	authHandler       authHandler
	projectHandler    projectHandler
	issueHandler      issueHandler
	invitationHandler invitationHandler
}

// ErrorResponse represents an error response from the API
type ErrorResponse struct {
	Error   string `json:"error" example:"Internal Server Error"`
	Status  string `json:"status" example:"error"`
	Field   string `json:"field,omitempty" example:"title"`
	Details string `json:"details,omitempty" example:"Additional error details"`
	Cause   string `json:"cause,omitempty" example:"Underlying error cause"`
}

// Result is the body of every issue field update.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status      string    `json:"status"`
	StartupTime time.Time `json:"startupTime"`
	Uptime      string    `json:"uptime"`
}

type SessionResponse struct {
	User      *models.User `json:"user"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

type ProjectCollection struct {
	Projects []services.ProjectSummary `json:"projects"`
	Total    int                       `json:"total"`
}

type MemberCollection struct {
	Members []models.User `json:"members"`
	Total   int           `json:"total"`
}

type IssueBoard struct {
	Groups []services.IssueGroup `json:"groups"`
}

type CreateInvitationsRequest struct {
	Emails []string `json:"emails"`
}

type InvitationCollection struct {
	Invitations []models.ProjectInvitation `json:"invitations"`
}

type UpdateStatusRequest struct {
	Status models.IssueStatus `json:"status"`
}

type UpdatePriorityRequest struct {
	Priority models.IssuePriority `json:"priority"`
}

type UpdateAssigneeRequest struct {
	AssignedUserID *string `json:"assignedUserId"`
}

// UpdateTargetDateRequest accepts RFC 3339 timestamps or plain dates
// (2006-01-02). A null or empty date clears the field.
type UpdateTargetDateRequest struct {
	TargetDate *string `json:"targetDate"`
}

type UpdateLabelsRequest struct {
	Labels []string `json:"labels"`
}
