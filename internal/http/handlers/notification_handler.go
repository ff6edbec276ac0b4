package handlers

import (
	"errors"

	"stockroom/internal/domain"
	"stockroom/internal/log"
	"stockroom/internal/services"
	"stockroom/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type NotificationHandler struct {
	Notes *services.NotificationService
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	ns, err := h.Notes.List(userID(c))
	if err != nil {
		return respondErr(c, "notification.list", err)
	}
	return c.JSON(ns)
}

func (h *NotificationHandler) Recent(c *fiber.Ctx) error {
	limit := validate.Limit(c.Query("limit"), 10, 100)
	ns, err := h.Notes.Recent(userID(c), limit)
	if err != nil {
		return respondErr(c, "notification.recent", err)
	}
	return c.JSON(ns)
}

func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	n, err := h.Notes.UnreadCount(userID(c))
	if err != nil {
		return respondErr(c, "notification.unread_count", err)
	}
	return c.JSON(fiber.Map{"count": n})
}

func (h *NotificationHandler) Create(c *fiber.Ctx) error {
	var in services.NotificationInput
	if err := bind(c, &in); err != nil {
		return err
	}
	n, err := h.Notes.Create(c.UserContext(), in)
	if err != nil {
		return respondErr(c, "notification.create", err)
	}
	log.Audit(c, "notification.create", map[string]any{"notification_id": n.ID, "recipient": n.UserID, "type": n.Type})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Notification created successfully", "notification": n})
}

// Push accepts a notification persisted by another instance and delivers it
// to this instance's live connections.
func (h *NotificationHandler) Push(c *fiber.Ctx) error {
	var n domain.Notification
	if err := bind(c, &n); err != nil {
		return err
	}
	if err := h.Notes.Deliver(c.UserContext(), userID(c), &n); err != nil {
		if errors.Is(err, services.ErrForbidden) {
			log.Security(c, "notification.push.recipient_mismatch", map[string]any{"recipient": n.UserID})
		}
		return respondErr(c, "notification.push", err)
	}
	return c.JSON(fiber.Map{"message": "Notification delivered"})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "notification")
	}
	if err := h.Notes.MarkRead(id, userID(c)); err != nil {
		return respondErr(c, "notification.read", err)
	}
	return c.JSON(fiber.Map{"message": "Notification marked as read"})
}

func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	n, err := h.Notes.MarkAllRead(userID(c))
	if err != nil {
		return respondErr(c, "notification.read_all", err)
	}
	return c.JSON(fiber.Map{"message": "All notifications marked as read", "updated": n})
}

func (h *NotificationHandler) Delete(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "notification")
	}
	if err := h.Notes.Delete(id, userID(c)); err != nil {
		return respondErr(c, "notification.delete", err)
	}
	log.Audit(c, "notification.delete", map[string]any{"notification_id": id})
	return c.JSON(fiber.Map{"message": "Notification deleted successfully"})
}
