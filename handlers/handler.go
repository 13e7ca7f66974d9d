// Package handlers exposes the core over HTTP. Handlers hold their
// dependencies explicitly; nothing reaches for package-level singletons.
package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"svend-go-be/config"
	"svend-go-be/plaid"
	"svend-go-be/store"
)

// Handler carries the shared dependencies for all routes.
type Handler struct {
	Store  *store.Store
	Plaid  plaid.Client
	Gemini config.GeminiConfig
}

// New builds a Handler.
func New(s *store.Store, p plaid.Client, gemini config.GeminiConfig) *Handler {
	return &Handler{Store: s, Plaid: p, Gemini: gemini}
}

// userID extracts the authenticated user. Auth itself is a precondition
// handled upstream; this service trusts the X-User-ID header.
func userID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Get("X-User-ID"))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, errors.New("User ID required in X-User-ID header")
	}
	return id, nil
}

// parseParamID reads a uuid path parameter.
func parseParamID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Params(name))
}

// notFound reports whether err is the store's not-found sentinel.
func notFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
