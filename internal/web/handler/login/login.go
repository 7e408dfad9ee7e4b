package login

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/dirgate/dirgate/internal/auth"
	"github.com/dirgate/dirgate/internal/config"
	"github.com/dirgate/dirgate/internal/db/models"
	"github.com/dirgate/dirgate/internal/events"
	"github.com/dirgate/dirgate/internal/web/handler"
	"github.com/dirgate/dirgate/internal/web/handler/dashboard"
	"github.com/dirgate/dirgate/internal/web/session"
)

const (
	// Path is the path to the login page.
	Path = "/login"

	// TemplateName is the name of the login template.
	TemplateName = "login"

	// AuthTypeLocal selects the local database backend.
	AuthTypeLocal = "local"

	// AuthTypeDirectory selects the directory backend.
	AuthTypeDirectory = "directory"
)

// loginForm is the expected login form payload.
type loginForm struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
	AuthType string `form:"auth_type" json:"auth_type"`
}

// Service is the login handler service.
type Service struct {
	handler.Service
	cfg           *config.Config
	db            *gorm.DB
	localAuth     *auth.LocalProvider
	directoryAuth *auth.DirectoryProvider
}

// Handler is the login handler.
var Handler = Service{}

// Init initializes the login handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New("app, cfg or db is nil")
	}

	s.db = db
	s.cfg = cfg

	if cfg.Auth.LocalDB.Enabled {
		s.localAuth = auth.NewLocalProvider(db)
	}

	if cfg.Auth.Directory.Enabled {
		directoryConfig := cfg.Auth.Directory.DirectoryConfig()

		client, err := auth.NewDirectoryClient(directoryConfig)
		if err != nil {
			log.Warn().Err(err).Msg("directory authentication will be unavailable")
		} else {
			s.directoryAuth, err = auth.NewDirectoryProvider(
				directoryConfig,
				client,
				auth.NewGormUserStore(db),
				events.Default(),
			)
			if err != nil {
				log.Warn().Err(err).Msg("directory authentication will be unavailable")
			}
		}
	}

	// register routes
	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, s.Get)
		router.Post(handler.RouterRootPath, s.Post)
	})

	return nil
}

// renderMap builds the base template data for the login page.
func (s *Service) renderMap() fiber.Map {
	return fiber.Map{
		"title":             s.cfg.Title,
		"local_db_enabled":  s.cfg.Auth.LocalDB.Enabled,
		"directory_enabled": s.cfg.Auth.Directory.Enabled,
		"oidc_enabled":      s.cfg.Auth.OIDC.Enabled,
	}
}

// renderError renders the login page with an error message.
func (s *Service) renderError(c *fiber.Ctx, message string) error {
	data := s.renderMap()
	data["error"] = message

	return c.Render(TemplateName, data)
}

// Get handles the login page rendering.
func (s *Service) Get(c *fiber.Ctx) error {
	return c.Render(TemplateName, s.renderMap())
}

// pickAuthType resolves the requested auth type against the enabled backends.
// An empty request picks the first enabled backend, local before directory.
func (s *Service) pickAuthType(requested string) (string, error) {
	switch requested {
	case "":
		if s.cfg.Auth.LocalDB.Enabled {
			return AuthTypeLocal, nil
		}

		if s.cfg.Auth.Directory.Enabled {
			return AuthTypeDirectory, nil
		}

		return "", ErrNoAuthMethod
	case AuthTypeLocal:
		if !s.cfg.Auth.LocalDB.Enabled || s.localAuth == nil {
			return "", ErrLocalAuthDisabled
		}

		return AuthTypeLocal, nil
	case AuthTypeDirectory:
		if !s.cfg.Auth.Directory.Enabled || s.directoryAuth == nil {
			return "", ErrDirectoryAuthDisabled
		}

		return AuthTypeDirectory, nil
	default:
		return "", ErrInvalidAuthMethod
	}
}

// authenticate dispatches the credential check to the selected backend.
// The directory backend refreshes the session itself, the local backend
// leaves that to the caller via the returned user.
func (s *Service) authenticate(
	authType, username, password string,
	sess auth.SessionRefresher,
) (*models.User, error) {
	switch authType {
	case AuthTypeLocal:
		if s.localAuth == nil {
			return nil, ErrLocalAuthDisabled
		}

		user, err := s.localAuth.Authenticate(username, password)
		if err != nil {
			return nil, mapAuthError(err)
		}

		if sess != nil {
			if errSess := sess.Refresh(user); errSess != nil {
				log.Error().Err(errSess).Msg("failed to write session")

				return nil, ErrInternalServerError
			}
		}

		return user, nil
	case AuthTypeDirectory:
		if s.directoryAuth == nil {
			return nil, ErrDirectoryAuthDisabled
		}

		user, err := s.directoryAuth.Authenticate(username, password, sess)
		if err != nil {
			return nil, mapAuthError(err)
		}

		return user, nil
	default:
		return nil, ErrInvalidAuthMethod
	}
}

// mapAuthError collapses backend errors into the generic login errors, so the
// page never reveals whether the username or the password was wrong.
func mapAuthError(err error) error {
	switch {
	case errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, auth.ErrInvalidPassword),
		errors.Is(err, auth.ErrMultipleUsersFound),
		errors.Is(err, auth.ErrLocalAccountConflict),
		errors.Is(err, auth.ErrProvisioningDisabled):
		log.Debug().Err(err).Msg("authentication refused")

		return ErrInvalidCredentials
	case errors.Is(err, auth.ErrUserAccountDisabled):
		return auth.ErrUserAccountDisabled
	default:
		log.Error().Err(err).Msg("authentication backend failure")

		return ErrInternalServerError
	}
}

// Post handles the login form submission.
func (s *Service) Post(c *fiber.Ctx) error {
	form := new(loginForm)

	if err := c.BodyParser(form); err != nil {
		return s.renderError(c, ErrInvalidFormData.Error())
	}

	authType, err := s.pickAuthType(form.AuthType)
	if err != nil {
		return s.renderError(c, err.Error())
	}

	sessionID, err := session.GenerateSessionID()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate session ID")

		return s.renderError(c, ErrInternalServerError.Error())
	}

	sess := &session.Refresher{
		SessionID: sessionID,
		Expiry:    s.cfg.Webserver.Session.ExpiryTime,
	}

	user, err := s.authenticate(authType, form.Username, form.Password, sess)
	if err != nil {
		return s.renderError(c, err.Error())
	}

	// set login cookie
	cookieSettings := &fiber.Cookie{
		Name:     "session",
		Value:    sessionID,
		MaxAge:   int(s.cfg.Webserver.Session.ExpiryTime.Seconds()),
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Lax", // TODO: make this configurable
	}

	if s.cfg.DevMode {
		cookieSettings.Secure = false
	}

	c.Cookie(cookieSettings)

	log.Info().Str("username", user.Username).Str("backend", authType).Msg("user logged in")

	return c.Redirect(dashboard.Path)
}
