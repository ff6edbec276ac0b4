package handlers

import (
	"stockroom/internal/domain"
	"stockroom/internal/log"
	"stockroom/internal/services"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	Auth *services.AuthService
}

// publicUser is the user shape returned to clients.
func publicUser(u *domain.User) fiber.Map {
	return fiber.Map{"id": u.ID, "username": u.Username, "email": u.Email, "role": u.Role}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := bind(c, &in); err != nil {
		return err
	}
	u, tok, err := h.Auth.Register(in)
	if err != nil {
		return respondErr(c, "auth.register", err)
	}
	log.Audit(c, "auth.register", map[string]any{"user_id": u.ID, "email": u.Email})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"token":   tok,
		"user":    publicUser(u),
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in services.LoginInput
	if err := bind(c, &in); err != nil {
		return err
	}
	u, tok, err := h.Auth.Login(in)
	if err != nil {
		log.Security(c, "auth.login.fail", map[string]any{"email": in.Email})
		return respondErr(c, "auth.login", err)
	}
	c.Locals(log.LocalUserID, u.ID)
	log.Audit(c, "auth.login.success", map[string]any{"email": u.Email})
	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   tok,
		"user":    publicUser(u),
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	u, err := h.Auth.Me(userID(c))
	if err != nil {
		return respondErr(c, "auth.me", err)
	}
	return c.JSON(fiber.Map{"user": publicUser(u)})
}

func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	var in services.ProfileInput
	if err := bind(c, &in); err != nil {
		return err
	}
	u, err := h.Auth.UpdateProfile(userID(c), in)
	if err != nil {
		return respondErr(c, "auth.profile", err)
	}
	log.Audit(c, "auth.profile.update", map[string]any{"username": u.Username, "email": u.Email})
	return c.JSON(fiber.Map{"message": "Profile updated successfully", "user": publicUser(u)})
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var in services.PasswordInput
	if err := bind(c, &in); err != nil {
		return err
	}
	if err := h.Auth.ChangePassword(userID(c), in); err != nil {
		return respondErr(c, "auth.password", err)
	}
	log.Audit(c, "auth.password.change", nil)
	return c.JSON(fiber.Map{"message": "Password changed successfully"})
}
