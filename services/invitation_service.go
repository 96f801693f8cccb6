package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpupo63/round/database"
	"github.com/rpupo63/round/errs"
	"github.com/rpupo63/round/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InvitationToken derives the token for inviting email to projectID. The
// same inputs always give the same token.
func InvitationToken(email, secret, projectID string) string {
	sum := sha256.Sum256([]byte(email + ":" + secret + ":" + projectID))
	return hex.EncodeToString(sum[:])
}

type InvitationService struct {
	db     database.Database
	secret string
	mailer Mailer
	appURL string
	logger zerolog.Logger
	now    func() time.Time
}

// NewInvitationService builds the service. mailer may be nil, in which case
// invitations are stored but not emailed.
func NewInvitationService(db database.Database, secret string, mailer Mailer, appURL string) *InvitationService {
	return &InvitationService{
		db:     db,
		secret: secret,
		mailer: mailer,
		appURL: strings.TrimRight(appURL, "/"),
		logger: log.With().Str("service", "invitations").Logger(),
		now:    time.Now,
	}
}

// WithClock replaces the time source used for expiry.
func (s *InvitationService) WithClock(now func() time.Time) *InvitationService {
	s.now = now
	return s
}

// Create invites each address to projectID on behalf of a member. Addresses
// are validated, lowercased and de-duplicated. Email delivery failures are
// logged and do not fail the call.
func (s *InvitationService) Create(ctx context.Context, userID, projectID string, emails []string) ([]models.ProjectInvitation, error) {
	addresses, err := normalizeEmails(emails)
	if err != nil {
		return nil, err
	}

	project, err := s.db.ProjectRepo().FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := requireMember(ctx, s.db, projectID, userID); err != nil {
		return nil, err
	}

	now := s.now()
	expiresAt := now.Add(models.InvitationTTL)
	invitations := make([]models.ProjectInvitation, 0, len(addresses))
	for _, email := range addresses {
		invitations = append(invitations, models.ProjectInvitation{
			ID:          uuid.NewString(),
			Email:       email,
			Token:       InvitationToken(email, s.secret, projectID),
			ProjectID:   projectID,
			InvitedByID: userID,
			Status:      models.InvitationPending,
			ExpiresAt:   expiresAt,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	invitations, err = s.db.InvitationRepo().Upsert(ctx, invitations)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, project, invitations)
	s.logger.Info().Str("projectId", projectID).Int("count", len(invitations)).Msg("Invitations created")
	return invitations, nil
}

// List returns a project's invitations, newest first. Only members may see
// them.
func (s *InvitationService) List(ctx context.Context, userID, projectID string) ([]models.ProjectInvitation, error) {
	if _, err := s.db.ProjectRepo().FindByID(ctx, projectID); err != nil {
		return nil, err
	}
	if err := requireMember(ctx, s.db, projectID, userID); err != nil {
		return nil, err
	}
	return s.db.InvitationRepo().ListByProject(ctx, projectID)
}

func (s *InvitationService) notify(ctx context.Context, project *models.Project, invitations []models.ProjectInvitation) {
	if s.mailer == nil {
		return
	}
	subject := fmt.Sprintf("You're invited to %s on Round", project.Name)
	for _, inv := range invitations {
		link := fmt.Sprintf("%s/invitations/%s", s.appURL, inv.Token)
		body := fmt.Sprintf(
			`<p>You have been invited to join <strong>%s</strong>.</p><p><a href="%s">Accept the invitation</a>. The link expires on %s.</p>`,
			html.EscapeString(project.Name), html.EscapeString(link), inv.ExpiresAt.Format("January 2, 2006"),
		)
		if err := s.mailer.Send(ctx, subject, body, []string{inv.Email}); err != nil {
			s.logger.Warn().Err(err).Str("email", inv.Email).Msg("Failed to send invitation email")
		}
	}
}

func normalizeEmails(emails []string) ([]string, error) {
	out := make([]string, 0, len(emails))
	seen := make(map[string]struct{}, len(emails))
	for _, raw := range emails {
		email := strings.ToLower(strings.TrimSpace(raw))
		if email == "" {
			continue
		}
		addr, err := mail.ParseAddress(email)
		if err != nil || addr.Address != email {
			return nil, errs.NewInvalidFieldError("emails", fmt.Sprintf("%q is not an email address", raw))
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	if len(out) == 0 {
		return nil, errs.NewMissingRequiredFieldError("emails")
	}
	return out, nil
}
