package auth

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Service authenticates callers against a single bcrypt-hashed API key. An
// empty hash disables auth entirely (local runs, tests).
type Service struct {
	logger  *zap.Logger
	keyHash []byte
}

func NewService(logger *zap.Logger, keyHash string) *Service {
	return &Service{
		logger:  logger,
		keyHash: []byte(keyHash),
	}
}

// HashAPIKey generates a hash suitable for the API_KEY_HASH setting.
func HashAPIKey(apiKey string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// RequireAPIKey is the fiber middleware guarding the notification routes.
func (s *Service) RequireAPIKey() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if len(s.keyHash) == 0 {
			return c.Next()
		}

		apiKey := c.Get("X-API-Key")
		if apiKey == "" || bcrypt.CompareHashAndPassword(s.keyHash, []byte(apiKey)) != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid API key",
			})
		}
		return c.Next()
	}
}
