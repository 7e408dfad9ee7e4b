// Package user provides handlers for managing users (CRUD) in the admin area.
package user

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/dirgate/dirgate/internal/auth"
	"github.com/dirgate/dirgate/internal/config"
	userctl "github.com/dirgate/dirgate/internal/db/controller/user"
	"github.com/dirgate/dirgate/internal/db/models"
	"github.com/dirgate/dirgate/internal/events"
	"github.com/dirgate/dirgate/internal/web/handler"
)

const (
	// Path is the base path for user management.
	Path = handler.RootPath + "admin/user"

	// TemplateList is the template for listing users.
	TemplateList = "admin/user/list"
	// TemplateForm is the template for creating/updating a user.
	TemplateForm = "admin/user/form"

	// DefaultPageSize for pagination.
	DefaultPageSize = 25
)

// createForm is the payload for creating a local user.
type createForm struct {
	Username    string `form:"username"     validate:"required,min=2,max=100"`
	Email       string `form:"email"        validate:"required,email"`
	Password    string `form:"password"     validate:"required,min=8"`
	DisplayName string `form:"display_name" validate:"max=200"`
	Admin       bool   `form:"admin"`
}

// updateForm is the payload for updating a user.
type updateForm struct {
	Email       string `form:"email"        validate:"required,email"`
	DisplayName string `form:"display_name" validate:"max=200"`
	Admin       bool   `form:"admin"`
	Active      bool   `form:"active"`
}

// lookupForm is the payload for a directory identity lookup.
type lookupForm struct {
	Username string `form:"username" validate:"omitempty,min=1,max=100"`
	Email    string `form:"email"    validate:"omitempty,email"`
}

// Service provides CRUD operations for users.
type Service struct {
	handler.Service
	cfg           *config.Config
	db            *gorm.DB
	validator     *validator.Validate
	localAuth     *auth.LocalProvider
	directoryAuth *auth.DirectoryProvider
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.validator = validator.New()
	s.localAuth = auth.NewLocalProvider(db)

	if cfg.Auth.Directory.Enabled {
		directoryConfig := cfg.Auth.Directory.DirectoryConfig()

		client, err := auth.NewDirectoryClient(directoryConfig)
		if err != nil {
			log.Warn().Err(err).Msg("directory lookup will be unavailable in admin area")
		} else {
			s.directoryAuth, err = auth.NewDirectoryProvider(
				directoryConfig,
				client,
				auth.NewGormUserStore(db),
				events.Default(),
			)
			if err != nil {
				log.Warn().Err(err).Msg("directory lookup will be unavailable in admin area")
			}
		}
	}

	admin := auth.RequireAdmin()

	app.Get(Path, admin, s.List)
	app.Get(Path+"/new", admin, s.New)
	app.Post(Path, admin, s.Create)
	app.Get(Path+"/:id/edit", admin, s.Edit)
	app.Post(Path+"/:id", admin, s.Update)
	app.Post(Path+"/:id/activate", admin, s.Activate)
	app.Post(Path+"/:id/deactivate", admin, s.Deactivate)
	app.Post(Path+"/:id/delete", admin, s.Delete)
	app.Post(Path+"/lookup", admin, s.Lookup)
}

// List shows users with pagination and optional source filter.
func (s *Service) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	pageSize := c.QueryInt("pageSize", DefaultPageSize)
	if pageSize < 1 || pageSize > 100 {
		pageSize = DefaultPageSize
	}

	source := models.Source(c.Query("source", ""))
	offset := (page - 1) * pageSize

	users, total, err := userctl.List(s.db, source, pageSize, offset)
	if err != nil {
		log.Error().Err(err).Msg("query users failed")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"title": s.cfg.Title,
			"Error": "Failed to load users",
		}, handler.BaseLayout)
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	if totalPages == 0 {
		totalPages = 1
	}

	currentUser, _ := c.Locals("CurrentUser").(models.User)

	return c.Render(TemplateList, fiber.Map{
		"title":         s.cfg.Title,
		"Users":         users,
		"CurrentUserID": currentUser.ID,
		"Source":        string(source),
		"Page":          page,
		"PageSize":      pageSize,
		"TotalItems":    total,
		"TotalPages":    totalPages,
		"HasPrev":       page > 1,
		"HasNext":       page < totalPages,
		"PrevPage":      page - 1,
		"NextPage":      page + 1,
	}, handler.BaseLayout)
}

// New shows the creation form.
func (s *Service) New(c *fiber.Ctx) error {
	return c.Render(TemplateForm, fiber.Map{
		"title": s.cfg.Title,
		"User":  models.User{Source: models.SourceLocal, Active: true},
		"IsNew": true,
	}, handler.BaseLayout)
}

// Create creates a local user from the submitted form.
func (s *Service) Create(c *fiber.Ctx) error {
	form := new(createForm)

	if err := c.BodyParser(form); err != nil {
		return s.renderFormError(c, true, nil, "Invalid form data")
	}

	if err := s.validator.Struct(form); err != nil {
		return s.renderFormError(c, true, nil, "Validation failed: "+err.Error())
	}

	user, err := s.localAuth.CreateUser(form.Username, form.Email, form.Password, form.DisplayName, form.Admin)
	if err != nil {
		if errors.Is(err, auth.ErrUserNameExists) {
			return s.renderFormError(c, true, nil, "Username is already taken")
		}

		log.Error().Err(err).Msg("create user failed")

		return s.renderFormError(c, true, nil, "Failed to create user")
	}

	log.Info().Str("username", user.Username).Uint64("user_id", user.ID).Msg("user created")

	return c.Redirect(Path)
}

// Edit shows the edit form.
func (s *Service) Edit(c *fiber.Ctx) error {
	user, err := s.paramUser(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).SendString("User not found")
	}

	return c.Render(TemplateForm, fiber.Map{
		"title": s.cfg.Title,
		"User":  *user,
		"IsNew": false,
	}, handler.BaseLayout)
}

// Update applies the edit form. Directory managed accounts keep their
// directory owned attributes, only the admin flag may change.
func (s *Service) Update(c *fiber.Ctx) error {
	user, err := s.paramUser(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).SendString("User not found")
	}

	form := new(updateForm)

	if err = c.BodyParser(form); err != nil {
		return s.renderFormError(c, false, user, "Invalid form data")
	}

	if err = s.validator.Struct(form); err != nil {
		return s.renderFormError(c, false, user, "Validation failed: "+err.Error())
	}

	email, displayName := form.Email, form.DisplayName
	if user.DirectoryManaged() {
		email, displayName = user.Email, user.DisplayName
	}

	if err = s.localAuth.UpdateUser(user.ID, email, displayName, form.Admin); err != nil {
		log.Error().Err(err).Uint64("user_id", user.ID).Msg("update user failed")

		return s.renderFormError(c, false, user, "Failed to update user")
	}

	if err = userctl.SetActive(s.db, user.ID, form.Active); err != nil {
		log.Error().Err(err).Uint64("user_id", user.ID).Msg("set active failed")
	}

	return c.Redirect(Path)
}

// Activate enables a user account.
func (s *Service) Activate(c *fiber.Ctx) error {
	return s.setActive(c, true)
}

// Deactivate disables a user account.
func (s *Service) Deactivate(c *fiber.Ctx) error {
	return s.setActive(c, false)
}

// Delete removes a user account.
func (s *Service) Delete(c *fiber.Ctx) error {
	user, err := s.paramUser(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).SendString("User not found")
	}

	currentUser, _ := c.Locals("CurrentUser").(models.User)
	if currentUser.ID == user.ID {
		return c.Status(fiber.StatusBadRequest).SendString("You cannot delete your own account")
	}

	if err = userctl.Delete(s.db, user.ID); err != nil {
		log.Error().Err(err).Uint64("user_id", user.ID).Msg("delete user failed")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to delete user")
	}

	log.Info().Str("username", user.Username).Uint64("user_id", user.ID).Msg("user deleted")

	return c.Redirect(Path)
}

// Lookup queries the directory for an identity by username and or email and
// renders the match on the user list.
func (s *Service) Lookup(c *fiber.Ctx) error {
	if s.directoryAuth == nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("Directory lookup is not available")
	}

	form := new(lookupForm)

	if err := c.BodyParser(form); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid form data")
	}

	if err := s.validator.Struct(form); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Validation failed: " + err.Error())
	}

	entry, err := s.directoryAuth.LookupIdentity(form.Username, form.Email)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrNoLookupTerms):
			return c.Status(fiber.StatusBadRequest).SendString("Provide a username or an email to look up")
		case errors.Is(err, auth.ErrUserNotFound):
			return c.Render(TemplateList, fiber.Map{
				"title":       s.cfg.Title,
				"LookupError": "No matching directory entry",
			}, handler.BaseLayout)
		default:
			log.Error().Err(err).Msg("directory lookup failed")

			return c.Status(fiber.StatusInternalServerError).SendString("Directory lookup failed")
		}
	}

	return c.Render(TemplateList, fiber.Map{
		"title":       s.cfg.Title,
		"LookupEntry": *entry,
	}, handler.BaseLayout)
}

func (s *Service) setActive(c *fiber.Ctx, active bool) error {
	user, err := s.paramUser(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).SendString("User not found")
	}

	if err = userctl.SetActive(s.db, user.ID, active); err != nil {
		log.Error().Err(err).Uint64("user_id", user.ID).Bool("active", active).Msg("set active failed")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to update user")
	}

	return c.Redirect(Path)
}

// paramUser resolves the ":id" route parameter to a user.
func (s *Service) paramUser(c *fiber.Ctx) (*models.User, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return nil, err
	}

	return userctl.GetByID(s.db, id)
}

func (s *Service) renderFormError(c *fiber.Ctx, isNew bool, user *models.User, message string) error {
	data := fiber.Map{
		"title": s.cfg.Title,
		"IsNew": isNew,
		"Error": message,
	}

	if user != nil {
		data["User"] = *user
	} else {
		data["User"] = models.User{Source: models.SourceLocal, Active: true}
	}

	return c.Render(TemplateForm, data, handler.BaseLayout)
}
