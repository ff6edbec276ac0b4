package handlers

import (
	"errors"

	"stockroom/internal/log"
	"stockroom/internal/services"
	"stockroom/internal/validate"

	"github.com/gofiber/fiber/v2"
)

func jsonErr(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// respondErr maps service errors onto status codes. Anything unknown goes to
// the app ErrorHandler as a 500.
func respondErr(c *fiber.Ctx, action string, err error) error {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "details": ve.Fields})
	case errors.Is(err, services.ErrBadCreds):
		return jsonErr(c, fiber.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, services.ErrUnauthorized):
		return jsonErr(c, fiber.StatusUnauthorized, "Access token required")
	case errors.Is(err, services.ErrForbidden):
		return jsonErr(c, fiber.StatusForbidden, "Invalid or expired token")
	case errors.Is(err, services.ErrNotFound):
		return jsonErr(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrConflict):
		return jsonErr(c, fiber.StatusBadRequest, err.Error())
	}
	log.Error(c, action, err, nil)
	return err
}

// bind parses a JSON body into dst.
func bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Validation failed",
			"details": []validate.FieldError{{Field: "body", Message: "must be valid JSON"}},
		})
	}
	return nil
}

func paramID(c *fiber.Ctx, name string) (int64, bool) {
	return validate.ID(c.Params(name))
}

func badID(c *fiber.Ctx, what string) error {
	return jsonErr(c, fiber.StatusBadRequest, "Invalid "+what+" ID")
}

func userID(c *fiber.Ctx) int64 {
	id, _ := c.Locals(log.LocalUserID).(int64)
	return id
}
