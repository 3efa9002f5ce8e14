package session

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// LocalsKey is where the JWT middleware stores the parsed token.
const LocalsKey = "user"

var ErrNoSession = errors.New("no authenticated session")

// Identity is the signed-in user as asserted by the identity provider.
type Identity struct {
	UserID string
	Email  string
	Name   string
	Image  string
}

// Current extracts the identity from the JWT claims in the request context.
func Current(c *fiber.Ctx) (*Identity, error) {
	token, ok := c.Locals(LocalsKey).(*jwt.Token)
	if !ok || token == nil {
		return nil, ErrNoSession
	}
	return FromToken(token)
}

// FromToken reads identity claims from a parsed token.
func FromToken(token *jwt.Token) (*Identity, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}

	id := &Identity{}
	id.UserID, _ = claims["sub"].(string)
	id.Email, _ = claims["email"].(string)
	id.Name, _ = claims["name"].(string)
	id.Image, _ = claims["picture"].(string)
	if id.Image == "" {
		id.Image, _ = claims["image"].(string)
	}

	if id.UserID == "" && id.Email == "" {
		return nil, errors.New("missing sub and email claims")
	}
	return id, nil
}

// Optional returns the identity when one is present and nil otherwise.
func Optional(c *fiber.Ctx) *Identity {
	id, err := Current(c)
	if err != nil {
		return nil
	}
	return id
}
