package apikey

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"

	"github.com/vitalscan/backend/middleware/bearer"
)

// RegisterKeyRoutes mounts the API key management endpoints behind the
// given guard.
func RegisterKeyRoutes(app fiber.Router, guard fiber.Handler, repo Keys) *Controller {
	controller := &Controller{Repo: repo}

	grp := app.Group("/apikeys", guard)
	grp.Post("/", controller.Create)
	grp.Get("/", controller.List)
	grp.Delete("/:id", controller.Revoke)

	return controller
}

type Controller struct {
	Repo Keys
}

type CreatePayload struct {
	Label     string `json:"label"`
	ExpiresIn int    `json:"expiresInDays"`
}

// Validate will run validation rules
func (p CreatePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Label, validation.Required, validation.Length(1, 100)),
		validation.Field(&p.ExpiresIn, validation.Min(0), validation.Max(365)),
	)
}

func (k *Controller) Create(c *fiber.Ctx) error {
	userID, ok := callerID(c)
	if !ok {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	payload := new(CreatePayload)
	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	record, token, err := Generate(userID, payload.Label)
	if err != nil {
		return internalError(c)
	}

	if payload.ExpiresIn > 0 {
		expiresAt := time.Now().AddDate(0, 0, payload.ExpiresIn)
		record.ExpiresAt = &expiresAt
	}

	saved, err := k.Repo.Create(c.UserContext(), record)
	if err != nil {
		return internalError(c)
	}

	// The full token is never reconstructable after this response.
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"key":   saved,
		"token": token,
	})
}

func (k *Controller) List(c *fiber.Ctx) error {
	userID, ok := callerID(c)
	if !ok {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	records, err := k.Repo.ListByUserID(c.UserContext(), userID)
	if err != nil {
		return internalError(c)
	}

	return c.JSON(fiber.Map{
		"keys":  records,
		"count": len(records),
	})
}

func (k *Controller) Revoke(c *fiber.Ctx) error {
	userID, ok := callerID(c)
	if !ok {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": fiber.Map{"message": "API key not found"},
		})
	}

	if err := k.Repo.Revoke(c.UserContext(), userID, id); err != nil {
		if repository.IsRecordNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": fiber.Map{"message": "API key not found"},
			})
		}
		return internalError(c)
	}

	return c.JSON(fiber.Map{
		"message": "API key revoked",
	})
}

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

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": fiber.Map{"message": message},
	})
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": fiber.Map{"message": "internal server error"},
	})
}
