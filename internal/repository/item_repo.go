package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Eterla/2025Fall-SE-Project-group2/internal/models"
)

type ItemRepository struct {
	db DBTX
}

func NewItemRepository(db DBTX) *ItemRepository {
	return &ItemRepository{db: db}
}

type CreateItemInput struct {
	SellerID    int64
	Title       string
	Description string
	Price       float64
	Tags        string
	ImagePath   *string
}

const itemColumns = `
	i.id, i.seller_id, u.username, i.title, i.description, i.price, i.tags,
	i.image_path, i.status, i.created_at, i.updated_at
`

func (r *ItemRepository) Create(ctx context.Context, input CreateItemInput) (*models.Item, error) {
	query := `
		INSERT INTO items (seller_id, title, description, price, tags, image_path, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'available')
		RETURNING id, seller_id, title, description, price, tags, image_path, status, created_at, updated_at
	`

	var item models.Item
	err := r.db.QueryRow(ctx, query,
		input.SellerID,
		input.Title,
		input.Description,
		input.Price,
		input.Tags,
		input.ImagePath,
	).Scan(
		&item.ID,
		&item.SellerID,
		&item.Title,
		&item.Description,
		&item.Price,
		&item.Tags,
		&item.ImagePath,
		&item.Status,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &item, nil
}

// FindByID releases stale locks first, so a caller never observes an item
// that has been locked for longer than the lock timeout.
func (r *ItemRepository) FindByID(ctx context.Context, id int64) (*models.Item, error) {
	if err := r.ReleaseExpiredLocks(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + itemColumns + `
		FROM items i
		JOIN users u ON u.id = i.seller_id
		WHERE i.id = $1
	`

	var item models.Item
	err := r.db.QueryRow(ctx, query, id).Scan(
		&item.ID,
		&item.SellerID,
		&item.SellerName,
		&item.Title,
		&item.Description,
		&item.Price,
		&item.Tags,
		&item.ImagePath,
		&item.Status,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &item, nil
}

// ReleaseExpiredLocks reverts items left locked past the timeout back to
// available. It runs lazily on reads instead of a background sweeper.
func (r *ItemRepository) ReleaseExpiredLocks(ctx context.Context) error {
	cutoff := time.Now().Add(-models.LockTimeout)
	_, err := r.db.Exec(ctx, `
		UPDATE items
		SET status = 'available', updated_at = NOW()
		WHERE status = 'locked' AND updated_at < $1
	`, cutoff)
	return err
}

// SearchAvailable matches the query case-insensitively against title,
// description and tags, over available items only, newest first.
func (r *ItemRepository) SearchAvailable(
	ctx context.Context,
	query string,
	limit int,
	offset int,
) ([]models.Item, int, error) {
	filter := `WHERE i.status = 'available'`
	args := []any{}
	if query != "" {
		args = append(args, "%"+query+"%")
		filter += ` AND (i.title ILIKE $1 OR i.description ILIKE $1 OR i.tags ILIKE $1)`
	}

	totalQuery := `SELECT COUNT(*) FROM items i ` + filter
	var total int
	if err := r.db.QueryRow(ctx, totalQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := `
		SELECT ` + itemColumns + `
		FROM items i
		JOIN users u ON u.id = i.seller_id
		` + filter + `
		ORDER BY i.created_at DESC, i.id DESC
	`
	listQuery += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items, err := scanItems(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *ItemRepository) ListBySeller(ctx context.Context, sellerID int64) ([]models.Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM items i
		JOIN users u ON u.id = i.seller_id
		WHERE i.seller_id = $1
		ORDER BY i.created_at DESC, i.id DESC
	`

	rows, err := r.db.Query(ctx, query, sellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanItems(rows)
}

func (r *ItemRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE items
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`, id, status)
	return err
}

type itemRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanItems(rows itemRows) ([]models.Item, error) {
	items := make([]models.Item, 0)
	for rows.Next() {
		var item models.Item
		if err := rows.Scan(
			&item.ID,
			&item.SellerID,
			&item.SellerName,
			&item.Title,
			&item.Description,
			&item.Price,
			&item.Tags,
			&item.ImagePath,
			&item.Status,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}
