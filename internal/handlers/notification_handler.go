package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/campusperks/realtime-service/internal/middleware"
	"github.com/campusperks/realtime-service/internal/model"
	"github.com/campusperks/realtime-service/internal/presence"
	"github.com/campusperks/realtime-service/internal/repository"
	"github.com/campusperks/realtime-service/internal/service"
)

type NotificationHandler struct {
	svc  *service.NotificationService
	pres *presence.Store
}

func New(svc *service.NotificationService, pres *presence.Store) *NotificationHandler {
	return &NotificationHandler{svc: svc, pres: pres}
}

func (h *NotificationHandler) Create(c *fiber.Ctx) error {
	var n model.Notification
	if err := c.BodyParser(&n); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	claims := middleware.Claims(c)
	n.CreatedBy = claims.UserID
	n.CreatedByModel = claims.Role
	n.Read = false

	if err := h.svc.Create(c.Context(), &n); err != nil {
		if isValidationError(err) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "create failed"})
	}
	return c.Status(fiber.StatusCreated).JSON(n)
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	claims := middleware.Claims(c)
	f := repository.ListFilter{
		Type: c.Query("type"),
	}
	if v := c.Query("read"); v != "" {
		read, err := strconv.ParseBool(v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "read must be a boolean"})
		}
		f.Read = &read
	}
	page, err := strconv.ParseInt(c.Query("page", "1"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "page must be an integer"})
	}
	limit, err := strconv.ParseInt(c.Query("limit", "20"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "limit must be an integer"})
	}
	f.Page, f.Limit = page, limit

	notifs, err := h.svc.ListForUser(c.Context(), claims.UserID, claims.Role, f)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "list failed"})
	}
	return c.JSON(fiber.Map{"data": notifs, "page": f.Page})
}

func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	claims := middleware.Claims(c)
	count, err := h.svc.UnreadCount(c.Context(), claims.UserID, claims.Role)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "count failed"})
	}
	return c.JSON(fiber.Map{"unreadCount": count})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	claims := middleware.Claims(c)
	if err := h.svc.MarkRead(c.Context(), c.Params("id"), claims.UserID, claims.Role); err != nil {
		return mutationError(c, err)
	}
	return c.JSON(fiber.Map{"notificationId": c.Params("id"), "isRead": true})
}

func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	claims := middleware.Claims(c)
	n, err := h.svc.MarkAllRead(c.Context(), claims.UserID, claims.Role)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "mark all failed"})
	}
	return c.JSON(fiber.Map{"updated": n})
}

func (h *NotificationHandler) Delete(c *fiber.Ctx) error {
	claims := middleware.Claims(c)
	if err := h.svc.Delete(c.Context(), c.Params("id"), claims.UserID, claims.Role); err != nil {
		return mutationError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *NotificationHandler) Presence(c *fiber.Ctx) error {
	uid := c.Params("user_id")
	online, err := h.pres.IsOnline(c.Context(), uid)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "presence unavailable"})
	}
	return c.JSON(fiber.Map{"user_id": uid, "online": online})
}

func (h *NotificationHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func isValidationError(err error) bool {
	return errors.Is(err, model.ErrNoAddressing) ||
		errors.Is(err, model.ErrAmbiguousAddressing) ||
		errors.Is(err, model.ErrInvalidType)
}

func mutationError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, repository.ErrInvalidID):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "request failed"})
	}
}
