package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/shelfscan/shelfscan/internal/middleware"
)

// LoginRequest is the login payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login. There is a single operator account,
// configured through the environment.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	if len(h.adminHash) == 0 {
		return Error(c, fiber.StatusServiceUnavailable, "login is not configured")
	}

	if !strings.EqualFold(strings.TrimSpace(req.Email), h.cfg.AdminEmail) {
		return Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(h.adminHash, []byte(req.Password)); err != nil {
		return Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}

	claims := middleware.JWTClaims{
		Email: h.cfg.AdminEmail,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(timeNow().Add(h.cfg.JWTExpiry)),
			IssuedAt:  jwt.NewNumericDate(timeNow()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(h.cfg.JWTSecret))
	if err != nil {
		log.Error().Err(err).Msg("failed to sign token")
		return Error(c, fiber.StatusInternalServerError, "failed to generate token")
	}

	return Success(c, fiber.Map{
		"token": signed,
		"email": h.cfg.AdminEmail,
	})
}

// hashAdminPassword resolves the configured operator password to a bcrypt
// hash once, at construction, so concurrent logins only ever read it.
// A password already in bcrypt form (from a secrets store) is used as-is;
// an empty one disables login.
func hashAdminPassword(password string) []byte {
	if password == "" {
		return nil
	}
	if strings.HasPrefix(password, "$2") {
		return []byte(password)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("failed to hash operator password")
		return nil
	}
	return hash
}
