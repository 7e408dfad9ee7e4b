// Package dashboard provides the dashboard handler showing the signed-in
// account and the user population per backend.
package dashboard

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/dirgate/dirgate/internal/auth"
	"github.com/dirgate/dirgate/internal/config"
	userctl "github.com/dirgate/dirgate/internal/db/controller/user"
	"github.com/dirgate/dirgate/internal/db/models"
	"github.com/dirgate/dirgate/internal/web/handler"
)

const (
	// Path is the path to the dashboard page.
	Path = handler.RootPath + "dashboard"

	// TemplateName is the name of the dashboard template.
	TemplateName = "dashboard/dashboard"
)

// Counts holds per backend user totals.
type Counts struct {
	Local     int64
	Directory int64
	OIDC      int64
}

// Service is the dashboard handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the dashboard handler.
var Handler = Service{}

// Init initializes the dashboard handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
	}

	s.db = db
	s.cfg = cfg

	app.Get(Path, auth.RequireUser(), s.Get)

	return nil
}

// Get handles the dashboard page rendering.
func (s *Service) Get(c *fiber.Ctx) error {
	currentUser, _ := c.Locals("CurrentUser").(models.User)

	counts := Counts{
		Local:     s.countBySource(models.SourceLocal),
		Directory: s.countBySource(models.SourceDirectory),
		OIDC:      s.countBySource(models.SourceOIDC),
	}

	return c.Render(TemplateName, fiber.Map{
		"title":  s.cfg.Title,
		"User":   currentUser,
		"Counts": counts,
	}, handler.BaseLayout)
}

func (s *Service) countBySource(source models.Source) int64 {
	_, total, err := userctl.List(s.db, source, 1, 0)
	if err != nil {
		log.Error().Err(err).Str("source", string(source)).Msg("failed to count users")

		return 0
	}

	return total
}
