package scan

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"

	"github.com/vitalscan/backend/middleware/bearer"
)

// RegisterScanRoutes mounts the scan endpoints behind the given guard.
func RegisterScanRoutes(app fiber.Router, guard fiber.Handler, repo Results) *Controller {
	controller := &Controller{Repo: repo}

	grp := app.Group("/scans", guard)
	grp.Post("/", controller.Record)
	grp.Get("/", controller.List)
	grp.Get("/:id", controller.Get)

	return controller
}

type Controller struct {
	Repo Results
}

type RecordPayload struct {
	Kind       string         `json:"kind"`
	Vitals     map[string]any `json:"vitals"`
	CapturedAt string         `json:"capturedAt"`
}

// Validate will run validation rules
func (p RecordPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Kind, validation.Required, validation.Length(1, 64)),
		validation.Field(&p.Vitals, validation.Required),
	)
}

func (s *Controller) Record(c *fiber.Ctx) error {
	userID, ok := callerID(c)
	if !ok {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	payload := new(RecordPayload)
	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	var capturedAt time.Time
	if payload.CapturedAt != "" {
		parsed, err := time.Parse(time.RFC3339, payload.CapturedAt)
		if err != nil {
			return badRequest(c, "capturedAt must be an RFC 3339 timestamp")
		}
		capturedAt = parsed
	}

	record := &Result{
		UserID:     userID,
		Kind:       payload.Kind,
		Vitals:     payload.Vitals,
		CapturedAt: capturedAt,
	}

	saved, err := s.Repo.Record(c.UserContext(), record)
	if err != nil {
		return internalError(c)
	}

	return c.Status(fiber.StatusCreated).JSON(saved)
}

func (s *Controller) List(c *fiber.Ctx) error {
	userID, ok := callerID(c)
	if !ok {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	limit := c.QueryInt("limit", DefaultListLimit)

	records, err := s.Repo.ListByUserID(c.UserContext(), userID, limit)
	if err != nil {
		return internalError(c)
	}

	return c.JSON(fiber.Map{
		"results": records,
		"count":   len(records),
	})
}

func (s *Controller) Get(c *fiber.Ctx) error {
	userID, ok := callerID(c)
	if !ok {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": fiber.Map{"message": "scan result not found"},
		})
	}

	record, err := s.Repo.GetOwned(c.UserContext(), userID, id)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": fiber.Map{"message": "scan result not found"},
			})
		}
		return internalError(c)
	}

	return c.JSON(record)
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
