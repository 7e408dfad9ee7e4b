package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	userctl "github.com/dirgate/dirgate/internal/db/controller/user"
	"github.com/dirgate/dirgate/internal/db/models"
	"github.com/dirgate/dirgate/internal/uniuri"
)

// ErrOIDCDisabled is returned when OIDC is disabled via configuration.
var ErrOIDCDisabled = errors.New("oidc authentication is disabled")

// OIDCConfig holds OpenID Connect (OIDC) configuration for authentication.
type OIDCConfig struct {
	// Enabled indicates if OIDC authentication is enabled.
	Enabled bool
	// ProviderURL is the OIDC provider's discovery URL (e.g., "https://accounts.google.com").
	ProviderURL string
	// ClientID is the OAuth2 client identifier.
	ClientID string
	// ClientSecret is the OAuth2 client secret.
	ClientSecret string
	// RedirectURL is the OAuth2 callback URL where the provider redirects after authentication.
	RedirectURL string
	// Scopes are the OAuth2 scopes to request (default: ["openid", "profile", "email"]).
	Scopes []string
}

// OIDCProvider handles OIDC authentication.
type OIDCProvider struct {
	config   *OIDCConfig
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	oauth2   oauth2.Config
	db       *gorm.DB
}

// NewOIDCProvider creates a new OIDC provider.
func NewOIDCProvider(ctx context.Context, config *OIDCConfig, db *gorm.DB) (*OIDCProvider, error) {
	if !config.Enabled {
		return nil, ErrOIDCDisabled
	}

	provider, err := oidc.NewProvider(ctx, config.ProviderURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{
		ClientID: config.ClientID,
	})

	scopes := config.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	oauth2Config := oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		RedirectURL:  config.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       scopes,
	}

	return &OIDCProvider{
		config:   config,
		provider: provider,
		verifier: verifier,
		oauth2:   oauth2Config,
		db:       db,
	}, nil
}

// stateTokenLen is the length of generated state tokens, ~190 bits of entropy.
const stateTokenLen = 32

// GenerateStateToken generates a random state token for CSRF protection.
func GenerateStateToken() (string, error) {
	return uniuri.NewLen(stateTokenLen), nil
}

// GetAuthURL returns the OIDC authorization URL with state token.
func (p *OIDCProvider) GetAuthURL(state string) string {
	return p.oauth2.AuthCodeURL(state)
}

// VerifyToken verifies the signature and claims of an OIDC ID token.
// It validates the token was issued by the configured provider and hasn't expired.
func (p *OIDCProvider) VerifyToken(ctx context.Context, rawToken string) (*oidc.IDToken, error) {
	return p.verifier.Verify(ctx, rawToken)
}

// HandleCallback handles the OIDC callback and returns the authenticated user.
// OIDC accounts are provisioned on first login under the same ownership rule
// as directory accounts: a same-named account of another source is refused,
// never shadowed.
func (p *OIDCProvider) HandleCallback(ctx context.Context, code string) (*models.User, error) {
	// Exchange code for token
	oauth2Token, err := p.oauth2.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	// Extract ID token
	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, ErrNoIDToken
	}

	// Verify ID token
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}

	// Extract claims
	var claims struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}

	if err = idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}

	return p.upsertUser(claims.Sub, claims.Email, claims.Name)
}

// upsertUser finds or creates the local record for an OIDC subject.
func (p *OIDCProvider) upsertUser(subject, email, name string) (*models.User, error) {
	user, err := userctl.GetByExternalID(p.db, subject, models.SourceOIDC)

	switch {
	case errors.Is(err, userctl.ErrUserNotFound):
		// First login for this subject. Refuse if the username is owned by
		// another source.
		if existing, errName := userctl.GetByUsername(p.db, email); errName == nil {
			if existing.Source != models.SourceOIDC {
				return nil, ErrLocalAccountConflict
			}
		} else if !errors.Is(errName, userctl.ErrUserNotFound) {
			return nil, fmt.Errorf("failed to query user: %w", errName)
		}

		create := &models.User{
			Active:      true,
			Username:    email, // Use email as username
			Email:       email,
			DisplayName: name,
			Source:      models.SourceOIDC,
			ExternalID:  subject,
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		}

		if errCreate := userctl.Create(p.db, create); errCreate != nil {
			return nil, fmt.Errorf("failed to create user: %w", errCreate)
		}

		return create, nil
	case err != nil:
		return nil, fmt.Errorf("failed to query user: %w", err)
	default:
		if !user.Active {
			return nil, ErrUserAccountDisabled
		}

		// Update existing user
		user.Email = email
		user.DisplayName = name
		user.UpdatedAt = time.Now()

		if errSave := p.db.Save(user).Error; errSave != nil {
			return nil, fmt.Errorf("failed to update user: %w", errSave)
		}

		return user, nil
	}
}
