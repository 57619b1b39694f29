package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Eterla/2025Fall-SE-Project-group2/internal/models"
	"github.com/Eterla/2025Fall-SE-Project-group2/internal/services"
)

type itemService interface {
	Publish(ctx context.Context, sellerID int64, input services.PublishItemInput) (*models.Item, error)
	Get(ctx context.Context, id int64) (*models.Item, error)
	Search(ctx context.Context, query string, page, limit int) ([]models.Item, int, error)
	ListBySeller(ctx context.Context, sellerID int64) ([]models.Item, error)
	UpdateStatus(ctx context.Context, actorID, itemID int64, status string) (*models.Item, error)
	Remove(ctx context.Context, actorID, itemID int64) error
}

type favoriteChecker interface {
	IsFavorite(ctx context.Context, userID, itemID int64) (bool, error)
}

type ItemHandler struct {
	items     itemService
	favorites favoriteChecker
	tags      services.TagSuggester
}

func NewItemHandler(items itemService, favorites favoriteChecker, tags services.TagSuggester) *ItemHandler {
	return &ItemHandler{
		items:     items,
		favorites: favorites,
		tags:      tags,
	}
}

// List serves the public catalog: available items only, newest first,
// optionally filtered by a search query.
func (h *ItemHandler) List(c *fiber.Ctx) error {
	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	items, total, err := h.items.Search(c.Context(), strings.TrimSpace(c.Query("search")), page, limit)
	if err != nil {
		return respondServerError(c, "items.list", err)
	}

	return respondOK(c, fiber.StatusOK, fiber.Map{
		"items":      items,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *ItemHandler) Publish(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return respondError(c, fiber.StatusUnauthorized, CodeInvalidToken, "Invalid token")
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(c.FormValue("price")), 64)
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, CodeInvalidInput, "Price must be a number")
	}

	input := services.PublishItemInput{
		Title:       strings.TrimSpace(c.FormValue("title")),
		Description: strings.TrimSpace(c.FormValue("description")),
		Price:       price,
		Tags:        strings.TrimSpace(c.FormValue("tags")),
	}

	if fileHeader, err := c.FormFile("image"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			return respondServerError(c, "items.publish.open", err)
		}
		defer file.Close()
		input.Image = file
		input.ImageName = fileHeader.Filename
	}

	item, err := h.items.Publish(c.Context(), userID, input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidInput):
			return respondError(c, fiber.StatusBadRequest, CodeInvalidInput, "Title is required and price must not be negative")
		case errors.Is(err, services.ErrStorageUnavailable):
			return respondError(c, fiber.StatusServiceUnavailable, CodeServiceUnavailable, "File storage is not configured")
		default:
			return respondServerError(c, "items.publish", err)
		}
	}

	return respondOK(c, fiber.StatusCreated, item)
}

func (h *ItemHandler) Detail(c *fiber.Ctx) error {
	itemID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || itemID <= 0 {
		return respondError(c, fiber.StatusBadRequest, CodeInvalidInput, "Invalid item id")
	}

	item, err := h.items.Get(c.Context(), itemID)
	if err != nil {
		if errors.Is(err, services.ErrItemNotFound) {
			return respondError(c, fiber.StatusNotFound, CodeItemNotFound, "Item not found")
		}
		return respondServerError(c, "items.detail", err)
	}

	detail := struct {
		*models.Item
		IsFavorite bool `json:"is_favorite"`
	}{Item: item}

	// is_favorite is only meaningful for signed-in viewers.
	if userID, err := currentUserID(c); err == nil {
		fav, err := h.favorites.IsFavorite(c.Context(), userID, itemID)
		if err != nil {
			return respondServerError(c, "items.detail.favorite", err)
		}
		detail.IsFavorite = fav
	}

	return respondOK(c, fiber.StatusOK, detail)
}

func (h *ItemHandler) MyItems(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return respondError(c, fiber.StatusUnauthorized, CodeInvalidToken, "Invalid token")
	}

	items, err := h.items.ListBySeller(c.Context(), userID)
	if err != nil {
		return respondServerError(c, "items.mine", err)
	}

	return respondOK(c, fiber.StatusOK, fiber.Map{"items": items})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *ItemHandler) UpdateStatus(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return respondError(c, fiber.StatusUnauthorized, CodeInvalidToken, "Invalid token")
	}

	itemID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || itemID <= 0 {
		return respondError(c, fiber.StatusBadRequest, CodeInvalidInput, "Invalid item id")
	}

	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, CodeInvalidInput, "Invalid request body")
	}

	item, err := h.items.UpdateStatus(c.Context(), userID, itemID, strings.TrimSpace(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidStatus):
			return respondError(c, fiber.StatusBadRequest, CodeInvalidStatus, "Unknown item status")
		case errors.Is(err, services.ErrItemNotFound):
			return respondError(c, fiber.StatusNotFound, CodeItemNotFound, "Item not found")
		case errors.Is(err, services.ErrForbidden):
			return respondError(c, fiber.StatusForbidden, CodePermissionDenied, "Only the seller can change this item")
		default:
			return respondServerError(c, "items.status", err)
		}
	}

	return respondOK(c, fiber.StatusOK, item)
}

func (h *ItemHandler) Remove(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return respondError(c, fiber.StatusUnauthorized, CodeInvalidToken, "Invalid token")
	}

	itemID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || itemID <= 0 {
		return respondError(c, fiber.StatusBadRequest, CodeInvalidInput, "Invalid item id")
	}

	if err := h.items.Remove(c.Context(), userID, itemID); err != nil {
		switch {
		case errors.Is(err, services.ErrItemNotFound):
			return respondError(c, fiber.StatusNotFound, CodeItemNotFound, "Item not found")
		case errors.Is(err, services.ErrForbidden):
			return respondError(c, fiber.StatusForbidden, CodePermissionDenied, "Only the seller can remove this item")
		default:
			return respondServerError(c, "items.remove", err)
		}
	}

	return respondOK(c, fiber.StatusOK, fiber.Map{})
}

type suggestTagsRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (h *ItemHandler) SuggestTags(c *fiber.Ctx) error {
	if _, err := currentUserID(c); err != nil {
		return respondError(c, fiber.StatusUnauthorized, CodeInvalidToken, "Invalid token")
	}

	if h.tags == nil {
		return respondError(c, fiber.StatusServiceUnavailable, CodeServiceUnavailable, "Tag suggestion is not configured")
	}

	var req suggestTagsRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, CodeInvalidInput, "Invalid request body")
	}
	if strings.TrimSpace(req.Title) == "" {
		return respondError(c, fiber.StatusBadRequest, CodeInvalidInput, "Title is required")
	}

	tags, err := h.tags.Suggest(c.Context(), req.Title, req.Description)
	if err != nil {
		if errors.Is(err, services.ErrTagSuggestionUnavailable) {
			return respondError(c, fiber.StatusServiceUnavailable, CodeServiceUnavailable, "Tag suggestion is not configured")
		}
		return respondServerError(c, "items.tags", err)
	}

	return respondOK(c, fiber.StatusOK, fiber.Map{"tags": tags})
}
