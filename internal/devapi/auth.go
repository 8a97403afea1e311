package devapi

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

type claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (a *App) generateToken(id, email, role string) (string, error) {
	c := claims{
		UserID: id,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(a.secret)
}

// requireAuth validates the bearer token and stashes the claims.
func (a *App) requireAuth(c *fiber.Ctx) error {
	header := c.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authorization header required"})
	}
	cl := &claims{}
	token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), cl, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
	}
	c.Locals("userID", cl.UserID)
	c.Locals("role", cl.Role)
	return c.Next()
}

// optionalAuth lets guests through but attaches claims when present.
func (a *App) optionalAuth(c *fiber.Ctx) error {
	header := c.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return c.Next()
	}
	cl := &claims{}
	if token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), cl, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}); err == nil && token.Valid {
		c.Locals("userID", cl.UserID)
		c.Locals("role", cl.Role)
	}
	return c.Next()
}

func (a *App) requireAdmin(c *fiber.Ctx) error {
	if role, _ := c.Locals("role").(string); role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin only"})
	}
	return c.Next()
}

func callerID(c *fiber.Ctx) string {
	id, _ := c.Locals("userID").(string)
	return id
}
