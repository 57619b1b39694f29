package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/Eterla/2025Fall-SE-Project-group2/internal/models"
	"github.com/Eterla/2025Fall-SE-Project-group2/internal/services"
)

type favoriteService interface {
	Add(ctx context.Context, userID, itemID int64) (bool, error)
	Remove(ctx context.Context, userID, itemID int64) (bool, error)
	ListForUser(ctx context.Context, userID int64) ([]models.Item, error)
}

type FavoriteHandler struct {
	favorites favoriteService
}

func NewFavoriteHandler(favorites favoriteService) *FavoriteHandler {
	return &FavoriteHandler{favorites: favorites}
}

type favoriteRequest struct {
	ItemID int64 `json:"item_id"`
}

func (h *FavoriteHandler) Add(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return respondError(c, fiber.StatusUnauthorized, CodeInvalidToken, "Invalid token")
	}

	var req favoriteRequest
	if err := c.BodyParser(&req); err != nil || req.ItemID <= 0 {
		return respondError(c, fiber.StatusBadRequest, CodeInvalidInput, "item_id is required")
	}

	created, err := h.favorites.Add(c.Context(), userID, req.ItemID)
	if err != nil {
		if errors.Is(err, services.ErrItemNotFound) {
			return respondError(c, fiber.StatusNotFound, CodeItemNotFound, "Item not found")
		}
		return respondServerError(c, "favorites.add", err)
	}
	if !created {
		return respondError(c, fiber.StatusConflict, CodeAlreadyFavorited, "Item is already in favorites")
	}

	return respondOK(c, fiber.StatusCreated, fiber.Map{"item_id": req.ItemID})
}

// Remove is idempotent: unfavoriting an item that was never favorited
// succeeds and reports removed=false.
func (h *FavoriteHandler) Remove(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return respondError(c, fiber.StatusUnauthorized, CodeInvalidToken, "Invalid token")
	}

	itemID, err := strconv.ParseInt(c.Params("itemID"), 10, 64)
	if err != nil || itemID <= 0 {
		return respondError(c, fiber.StatusBadRequest, CodeInvalidInput, "Invalid item id")
	}

	removed, err := h.favorites.Remove(c.Context(), userID, itemID)
	if err != nil {
		return respondServerError(c, "favorites.remove", err)
	}

	return respondOK(c, fiber.StatusOK, fiber.Map{"removed": removed})
}

func (h *FavoriteHandler) List(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return respondError(c, fiber.StatusUnauthorized, CodeInvalidToken, "Invalid token")
	}

	items, err := h.favorites.ListForUser(c.Context(), userID)
	if err != nil {
		return respondServerError(c, "favorites.list", err)
	}

	return respondOK(c, fiber.StatusOK, fiber.Map{"items": items})
}
