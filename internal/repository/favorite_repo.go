package repository

import (
	"context"

	"github.com/Eterla/2025Fall-SE-Project-group2/internal/models"
)

type FavoriteRepository struct {
	db DBTX
}

func NewFavoriteRepository(db DBTX) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// Add inserts the favorite pair. The uniqueness constraint absorbs repeats;
// the boolean reports whether a row was actually created.
func (r *FavoriteRepository) Add(ctx context.Context, userID, itemID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO favorites (user_id, item_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, item_id) DO NOTHING
	`, userID, itemID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *FavoriteRepository) Remove(ctx context.Context, userID, itemID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM favorites
		WHERE user_id = $1 AND item_id = $2
	`, userID, itemID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *FavoriteRepository) IsFavorite(ctx context.Context, userID, itemID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM favorites WHERE user_id = $1 AND item_id = $2
		)
	`, userID, itemID).Scan(&exists)
	return exists, err
}

func (r *FavoriteRepository) ListForUser(ctx context.Context, userID int64) ([]models.Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM favorites f
		JOIN items i ON i.id = f.item_id
		JOIN users u ON u.id = i.seller_id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanItems(rows)
}
