package oidc

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/dirgate/dirgate/internal/auth"
	"github.com/dirgate/dirgate/internal/config"
	"github.com/dirgate/dirgate/internal/web/handler"
	"github.com/dirgate/dirgate/internal/web/handler/dashboard"
	"github.com/dirgate/dirgate/internal/web/session"
)

const (
	// LoginPath is the path to initiate OIDC login.
	LoginPath = handler.RootPath + "auth/oidc/login"

	// CallbackPath is the path for OIDC callback.
	CallbackPath = handler.RootPath + "auth/oidc/callback"

	// stateExpiry is how long a state token stays valid.
	stateExpiry = 5 * time.Minute
)

// Service is the OIDC handler service.
type Service struct {
	handler.Service
	cfg          *config.Config
	db           *gorm.DB
	oidcProvider *auth.OIDCProvider

	stateMu    sync.Mutex
	stateStore map[string]time.Time
}

// Handler is the OIDC handler.
var Handler = Service{
	stateStore: make(map[string]time.Time),
}

// Init initializes the OIDC handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg

	if !cfg.Auth.OIDC.Enabled {
		return
	}

	ctx := context.Background()

	oidcProvider, err := auth.NewOIDCProvider(ctx, cfg.Auth.OIDC.OIDCConfig(), db)
	if err != nil {
		if errors.Is(err, auth.ErrOIDCDisabled) {
			log.Info().Msg("OIDC authentication is disabled by configuration")
		} else {
			log.Warn().Err(err).Msg("failed to initialize OIDC provider, OIDC authentication will be disabled")
		}

		return // Don't fail, just disable OIDC
	}

	s.oidcProvider = oidcProvider

	log.Info().Msg("OIDC authentication provider initialized")

	// Register routes
	app.Get(LoginPath, s.Login)
	app.Get(CallbackPath, s.Callback)

	// Start state cleanup goroutine
	go s.cleanupStates()
}

// Login initiates the OIDC login flow.
func (s *Service) Login(c *fiber.Ctx) error {
	if s.oidcProvider == nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("OIDC authentication is not available")
	}

	// Generate state token for CSRF protection
	state, err := auth.GenerateStateToken()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate state token")
		return c.Status(fiber.StatusInternalServerError).SendString("Internal server error")
	}

	s.stateMu.Lock()
	s.stateStore[state] = time.Now().Add(stateExpiry)
	s.stateMu.Unlock()

	// Redirect to OIDC provider
	return c.Redirect(s.oidcProvider.GetAuthURL(state))
}

// consumeState checks and removes a state token. It reports whether the token
// was known and still valid.
func (s *Service) consumeState(state string) bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	expiration, exists := s.stateStore[state]
	if !exists {
		return false
	}

	delete(s.stateStore, state)

	return time.Now().Before(expiration)
}

// Callback handles the OIDC callback.
func (s *Service) Callback(c *fiber.Ctx) error {
	if s.oidcProvider == nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("OIDC authentication is not available")
	}

	// Get code and state from query parameters
	code := c.Query("code")
	state := c.Query("state")

	if code == "" || state == "" {
		log.Error().Msg("missing code or state in OIDC callback")
		return c.Status(fiber.StatusBadRequest).SendString("Invalid callback parameters")
	}

	if !s.consumeState(state) {
		log.Error().Str("state", state).Msg("invalid or expired state token")
		return c.Status(fiber.StatusBadRequest).SendString("Invalid state token")
	}

	// Handle callback
	ctx := context.Background()

	authenticatedUser, err := s.oidcProvider.HandleCallback(ctx, code)
	if err != nil {
		log.Error().Err(err).Msg("OIDC authentication failed")
		return c.Status(fiber.StatusUnauthorized).SendString("Authentication failed")
	}

	// Create session
	sessionID, errSession := session.GenerateSessionID()
	if errSession != nil {
		log.Error().Err(errSession).Msg("failed to generate session ID")
		return c.Status(fiber.StatusInternalServerError).SendString("Internal server error")
	}

	userSession := &session.Data{
		User: *authenticatedUser,
	}

	if err = userSession.Write(sessionID, s.cfg.Webserver.Session.ExpiryTime); err != nil {
		log.Error().Err(err).Msg("failed to write session")
		return c.Status(fiber.StatusInternalServerError).SendString("Internal server error")
	}

	// Set login cookie
	cookieSettings := &fiber.Cookie{
		Name:     "session",
		Value:    sessionID,
		MaxAge:   int(s.cfg.Webserver.Session.ExpiryTime.Seconds()),
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Lax",
	}

	if s.cfg.DevMode {
		cookieSettings.Secure = false
	}

	c.Cookie(cookieSettings)

	log.Info().Str("username", authenticatedUser.Username).Msg("user logged in via OIDC")

	return c.Redirect(dashboard.Path)
}

// cleanupStates periodically removes expired state tokens.
func (s *Service) cleanupStates() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()

		s.stateMu.Lock()
		for state, expiration := range s.stateStore {
			if now.After(expiration) {
				delete(s.stateStore, state)
			}
		}
		s.stateMu.Unlock()
	}
}
