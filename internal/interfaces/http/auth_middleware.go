package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/WhosAnder/ImaMonorepo-sub000/internal/application/dto"
	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain/entity"
	"github.com/WhosAnder/ImaMonorepo-sub000/pkg/jwt"
)

// Locals keys para la identidad del actor en Fiber.
const (
	localActorID   = "actor_id"
	localActorName = "actor_name"
	localActorRole = "actor_role"
)

// AuthMiddleware valida el Bearer Token JWT emitido por el servicio de
// autenticación y deja la identidad opaca del actor en c.Locals. Esta API no
// emite ni renueva sesiones.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido"})
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"})
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"})
		}
		userID, name, role, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
		}
		c.Locals(localActorID, userID)
		c.Locals(localActorName, name)
		c.Locals(localActorRole, role)
		return c.Next()
	}
}

// GetActor devuelve la identidad del actor del contexto (después del middleware de auth).
func GetActor(c *fiber.Ctx) entity.Actor {
	return entity.Actor{
		ID:   localString(c, localActorID),
		Name: localString(c, localActorName),
		Role: localString(c, localActorRole),
	}
}

func localString(c *fiber.Ctx, key string) string {
	v := c.Locals(key)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
