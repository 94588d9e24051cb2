package profile

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"

	"github.com/vitalscan/backend/middleware/bearer"
)

// RegisterProfileRoutes mounts the profile endpoints. The provided guard is
// the bearer middleware; every route requires an authenticated session.
func RegisterProfileRoutes(app fiber.Router, guard fiber.Handler, repo Profiles) *Controller {
	controller := &Controller{Repo: repo}

	grp := app.Group("/profile", guard)
	grp.Get("/", controller.Get)
	grp.Put("/", controller.Upsert)

	return controller
}

type Controller struct {
	Repo Profiles
}

func (p *Controller) Get(c *fiber.Ctx) error {
	userID, ok := callerID(c)
	if !ok {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	record, err := p.Repo.GetByUserID(c.UserContext(), userID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": fiber.Map{"message": "profile not found"},
			})
		}
		return renderError(c, err)
	}

	return c.JSON(record)
}

type UpsertPayload struct {
	FullName  string  `json:"fullName"`
	BirthDate string  `json:"birthDate"`
	Sex       string  `json:"sex"`
	HeightCm  float64 `json:"heightCm"`
	WeightKg  float64 `json:"weightKg"`
	Phone     string  `json:"phone"`
}

// Validate will run validation rules
func (p UpsertPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&p.Sex, validation.In("", "female", "male", "other")),
		validation.Field(&p.HeightCm, validation.Min(0.0), validation.Max(300.0)),
		validation.Field(&p.WeightKg, validation.Min(0.0), validation.Max(600.0)),
	)
}

func (p *Controller) Upsert(c *fiber.Ctx) error {
	userID, ok := callerID(c)
	if !ok {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	payload := new(UpsertPayload)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fiber.Map{"message": "failed to parse request body"},
		})
	}

	if err := payload.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fiber.Map{"message": err.Error()},
		})
	}

	phone, err := NormalizePhone(payload.Phone)
	if err != nil {
		return renderError(c, err)
	}

	var birthDate *time.Time
	if payload.BirthDate != "" {
		parsed, err := time.Parse("2006-01-02", payload.BirthDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": fiber.Map{"message": "birthDate must be formatted as YYYY-MM-DD"},
			})
		}
		birthDate = &parsed
	}

	record := &Profile{
		ID:        uuid.New(),
		UserID:    userID,
		FullName:  payload.FullName,
		BirthDate: birthDate,
		Sex:       payload.Sex,
		HeightCm:  payload.HeightCm,
		WeightKg:  payload.WeightKg,
		Phone:     phone,
	}

	saved, err := p.Repo.Upsert(c.UserContext(), record)
	if err != nil {
		return renderError(c, err)
	}

	return c.JSON(saved)
}

// callerID resolves the authenticated user from the bearer claims.
func callerID(c *fiber.Ctx) (uuid.UUID, bool) {
	claims := bearer.ClaimsFromCtx(c)
	if claims == nil {
		return uuid.Nil, false
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return uuid.Nil, false
	}

	return id, true
}

func renderError(c *fiber.Ctx, err error) error {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.Category == goerrors.CategoryValidation {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fiber.Map{"message": rich.Message, "text_code": rich.TextCode},
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": fiber.Map{"message": "internal server error"},
	})
}
