package middleware

import (
	"log"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

// SessionWalletMiddleware derives the acting wallet from the verified session
// token. Handlers read it via c.Locals("wallet") and never trust a wallet
// field from the request body — that field is trivially spoofed.
func SessionWalletMiddleware() fiber.Handler {
	secret := os.Getenv("SESSION_JWT_SECRET")
	if secret == "" {
		log.Fatal("❌ SESSION_JWT_SECRET is not set — service cannot verify player sessions")
	}
	key := []byte(secret)

	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing session token",
			})
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return key, nil
		})
		if err != nil || !token.Valid {
			log.Printf("🚫 [SESSION] Invalid session token on %s: %v", c.Path(), err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid session token",
			})
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid session claims",
			})
		}
		wallet, _ := claims["wallet"].(string)
		if !common.IsHexAddress(wallet) {
			log.Printf("🚫 [SESSION] Session token without a valid wallet claim on %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "session has no wallet",
			})
		}

		c.Locals("wallet", strings.ToLower(wallet))
		return c.Next()
	}
}
