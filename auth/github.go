package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rpupo63/round/errs"
	"github.com/rpupo63/round/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	ProviderGitHub = "github"
	stateTTL       = 10 * time.Minute
	stateAudience  = "github-login"
)

// GitHubProfile is the part of a GitHub user we keep.
type GitHubProfile struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type gitHubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// GitHub runs the OAuth web flow against GitHub. The state parameter is a
// short-lived signed token, so no server-side state is kept between the two
// legs.
type GitHub struct {
	config      oauth2.Config
	stateSecret []byte
	apiBase     string
	now         func() time.Time
}

type GitHubOption func(*GitHub)

// WithGitHubEndpoints points the flow at another server, e.g. GitHub
// Enterprise or a test double.
func WithGitHubEndpoints(authURL, tokenURL, apiBase string) GitHubOption {
	return func(g *GitHub) {
		g.config.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL}
		g.apiBase = apiBase
	}
}

func withGitHubClock(now func() time.Time) GitHubOption {
	return func(g *GitHub) {
		g.now = now
	}
}

func NewGitHub(clientID, clientSecret, redirectURL, stateSecret string, opts ...GitHubOption) *GitHub {
	g := &GitHub{
		config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     github.Endpoint,
			Scopes:       []string{"read:user", "user:email"},
		},
		stateSecret: []byte(stateSecret),
		apiBase:     "https://api.github.com",
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Enabled reports whether client credentials are configured.
func (g *GitHub) Enabled() bool {
	return g.config.ClientID != "" && g.config.ClientSecret != ""
}

type stateClaims struct {
	Redirect string `json:"redirect,omitempty"`
	jwt.RegisteredClaims
}

// LoginURL returns the GitHub authorization URL. redirect is handed back by
// VerifyState once the user returns.
func (g *GitHub) LoginURL(redirect string) (string, error) {
	now := g.now()
	claims := stateClaims{
		Redirect: redirect,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Audience:  jwt.ClaimStrings{stateAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
		},
	}
	state, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.stateSecret)
	if err != nil {
		return "", errs.NewInternalErrorWithCause("failed to sign oauth state", err)
	}
	return g.config.AuthCodeURL(state), nil
}

// VerifyState checks a state parameter and returns the redirect it carries.
func (g *GitHub) VerifyState(state string) (string, error) {
	claims := &stateClaims{}
	_, err := jwt.ParseWithClaims(state, claims, func(*jwt.Token) (any, error) {
		return g.stateSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(stateAudience),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		return "", errs.NewBadRequestError("invalid oauth state")
	}
	return claims.Redirect, nil
}

// Complete exchanges the authorization code and loads the GitHub profile. The
// returned user and account are ready for UserRepo.UpsertFromProvider.
func (g *GitHub) Complete(ctx context.Context, code string) (models.User, models.Account, error) {
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return models.User{}, models.Account{}, errs.NewUnauthorizedError("github code exchange failed")
	}

	client := g.config.Client(ctx, token)
	var profile GitHubProfile
	if err := g.getJSON(ctx, client, "/user", &profile); err != nil {
		return models.User{}, models.Account{}, err
	}

	verified := false
	if profile.Email == "" {
		var emails []gitHubEmail
		if err := g.getJSON(ctx, client, "/user/emails", &emails); err != nil {
			return models.User{}, models.Account{}, err
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				profile.Email = e.Email
				verified = true
				break
			}
		}
	}
	if profile.Email == "" {
		return models.User{}, models.Account{}, errs.NewBadRequestError("github account has no verified email")
	}

	name := profile.Name
	if name == "" {
		name = profile.Login
	}
	user := models.User{
		Name:          name,
		Email:         profile.Email,
		EmailVerified: verified,
		Image:         optional(profile.AvatarURL),
	}
	scope, _ := token.Extra("scope").(string)
	account := models.Account{
		ProviderID:  ProviderGitHub,
		AccountID:   strconv.FormatInt(profile.ID, 10),
		AccessToken: optional(token.AccessToken),
		Scope:       optional(scope),
	}
	return user, account, nil
}

func (g *GitHub) getJSON(ctx context.Context, client *http.Client, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiBase+path, nil)
	if err != nil {
		return errs.NewInternalErrorWithCause("failed to build github request", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return errs.NewInternalErrorWithCause("github request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.NewInternalErrorWithCause("failed to read github response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return errs.NewInternalError(fmt.Sprintf("github %s returned %d", path, resp.StatusCode))
	}
	if err := sonic.Unmarshal(body, out); err != nil {
		return errs.NewInternalErrorWithCause("failed to decode github response", err)
	}
	return nil
}
