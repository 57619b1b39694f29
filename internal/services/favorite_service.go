package services

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/Eterla/2025Fall-SE-Project-group2/internal/models"
)

type favoriteStore interface {
	Add(ctx context.Context, userID, itemID int64) (bool, error)
	Remove(ctx context.Context, userID, itemID int64) (bool, error)
	IsFavorite(ctx context.Context, userID, itemID int64) (bool, error)
	ListForUser(ctx context.Context, userID int64) ([]models.Item, error)
}

type FavoriteService struct {
	favorites favoriteStore
	items     itemReader
}

func NewFavoriteService(favorites favoriteStore, items itemReader) *FavoriteService {
	return &FavoriteService{favorites: favorites, items: items}
}

// Add favorites the item for the user. The returned bool reports whether a
// new favorite was created; false means it was already favorited, which
// callers surface as a conflict rather than an error.
func (s *FavoriteService) Add(ctx context.Context, userID, itemID int64) (bool, error) {
	if _, err := s.items.FindByID(ctx, itemID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrItemNotFound
		}
		return false, err
	}

	return s.favorites.Add(ctx, userID, itemID)
}

// Remove is idempotent: unfavoriting something that was never favorited
// reports false without failing.
func (s *FavoriteService) Remove(ctx context.Context, userID, itemID int64) (bool, error) {
	return s.favorites.Remove(ctx, userID, itemID)
}

func (s *FavoriteService) IsFavorite(ctx context.Context, userID, itemID int64) (bool, error) {
	return s.favorites.IsFavorite(ctx, userID, itemID)
}

func (s *FavoriteService) ListForUser(ctx context.Context, userID int64) ([]models.Item, error) {
	return s.favorites.ListForUser(ctx, userID)
}
