package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"funnelbot/analytics"
	"funnelbot/models"
	"funnelbot/store"
	"funnelbot/utils"
)

// FunnelController serves the admin dashboard: funnel statistics,
// broadcasts and log maintenance.
type FunnelController struct {
	Store  *store.Store
	Reader *analytics.Reader
	Logger *logrus.Logger
}

func NewFunnelController(st *store.Store, reader *analytics.Reader, logger *logrus.Logger) *FunnelController {
	return &FunnelController{Store: st, Reader: reader, Logger: logger}
}

// GetStats returns per-step statistics for a sequence kind, with the
// biggest drop-off highlighted.
func (fc *FunnelController) GetStats(c *fiber.Ctx) error {
	kind := models.Kind(c.Query("kind", string(models.KindFunnel)))
	if !kind.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown sequence kind",
		})
	}

	steps, err := fc.Reader.StepStats(kind)
	if err != nil {
		fc.Logger.WithError(err).WithField("kind", kind).Error("computing funnel stats")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute statistics",
		})
	}

	dropStep, drop := analytics.BiggestDrop(steps)
	return c.JSON(fiber.Map{
		"kind":              kind,
		"steps":             steps,
		"biggest_drop_step": dropStep,
		"biggest_drop":      drop,
		"problem_threshold": analytics.ProblemDropThreshold,
	})
}

// ListTemplates returns the configured steps of a sequence.
func (fc *FunnelController) ListTemplates(c *fiber.Ctx) error {
	kind := models.Kind(c.Query("kind", string(models.KindFunnel)))
	if !kind.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown sequence kind",
		})
	}

	templates, err := fc.Store.ListTemplates(kind)
	if err != nil {
		fc.Logger.WithError(err).WithField("kind", kind).Error("listing templates")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list templates",
		})
	}
	return c.JSON(fiber.Map{"kind": kind, "templates": templates})
}

type BroadcastRequest struct {
	Text string `json:"text" validate:"required,max=4096"`
}

// Broadcast queues a mass message for every user who completed the
// funnel.
func (fc *FunnelController) Broadcast(c *fiber.Ctx) error {
	var req BroadcastRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	recipients, err := fc.Store.CreateMassBroadcast(req.Text, time.Now())
	if err != nil {
		fc.Logger.WithError(err).Error("creating broadcast")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create broadcast",
		})
	}

	fc.Logger.WithField("recipients", recipients).Info("broadcast queued")
	return c.JSON(fiber.Map{"recipients": recipients})
}

type PruneRequest struct {
	Days int `json:"days" validate:"required,min=1,max=365"`
}

// PruneLogs deletes delivery and click log rows older than the given
// number of days.
func (fc *FunnelController) PruneLogs(c *fiber.Ctx) error {
	var req PruneRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	cutoff := time.Now().AddDate(0, 0, -req.Days)
	pruned, err := fc.Store.PruneLogs(cutoff)
	if err != nil {
		fc.Logger.WithError(err).Error("pruning logs")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to prune logs",
		})
	}
	return c.JSON(fiber.Map{"pruned": pruned})
}
