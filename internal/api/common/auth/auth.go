package auth

import (
	"crypto/subtle"
	"errors"

	"github.com/caarlos0/env/v6"
	"github.com/gofiber/fiber/v2"
	keyauth "github.com/gofiber/keyauth/v2"
)

type envConfig struct {
	Token string `env:"API_TOKEN,unset"`
}

var errBadToken = errors.New("invalid or missing token")

// NewMiddleware guards a route group with the shared bearer token. The 401
// body deliberately says nothing about why the token was rejected.
func NewMiddleware(token string) fiber.Handler {
	return keyauth.New(keyauth.Config{
		KeyLookup:  "header:Authorization",
		AuthScheme: "Bearer",
		Validator: func(c *fiber.Ctx, key string) (bool, error) {
			if subtle.ConstantTimeCompare([]byte(key), []byte(token)) == 1 {
				return true, nil
			}
			return false, errBadToken
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		},
	})
}

// FromEnv builds the middleware from the API_TOKEN environment variable.
func FromEnv() (fiber.Handler, error) {
	cfg := &envConfig{}
	if err := env.Parse(cfg, env.Options{}); err != nil {
		return nil, err
	}
	if cfg.Token == "" {
		return nil, errors.New("API_TOKEN is not configured")
	}
	return NewMiddleware(cfg.Token), nil
}
