package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Eterla/2025Fall-SE-Project-group2/internal/models"
	"github.com/Eterla/2025Fall-SE-Project-group2/internal/repository"
)

var (
	ErrInvalidStatus      = errors.New("invalid status")
	ErrStorageUnavailable = errors.New("storage service is not configured")
)

type itemStore interface {
	Create(ctx context.Context, input repository.CreateItemInput) (*models.Item, error)
	FindByID(ctx context.Context, id int64) (*models.Item, error)
	SearchAvailable(ctx context.Context, query string, limit, offset int) ([]models.Item, int, error)
	ListBySeller(ctx context.Context, sellerID int64) ([]models.Item, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
}

type ItemService struct {
	repo    itemStore
	storage StorageService
}

func NewItemService(repo itemStore, storage StorageService) *ItemService {
	return &ItemService{repo: repo, storage: storage}
}

type PublishItemInput struct {
	Title       string
	Description string
	Price       float64
	Tags        string
	Image       multipart.File
	ImageName   string
}

func (s *ItemService) Publish(ctx context.Context, sellerID int64, input PublishItemInput) (*models.Item, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" || len(title) > 120 {
		return nil, ErrInvalidInput
	}
	if input.Price < 0 {
		return nil, ErrInvalidInput
	}

	var imagePath *string
	if input.Image != nil {
		if s.storage == nil {
			return nil, ErrStorageUnavailable
		}
		filename := fmt.Sprintf("%s%s", uuid.NewString(), strings.ToLower(filepath.Ext(input.ImageName)))
		url, err := s.storage.UploadFile(ctx, input.Image, filename, "items")
		if err != nil {
			return nil, err
		}
		imagePath = &url
	}

	return s.repo.Create(ctx, repository.CreateItemInput{
		SellerID:    sellerID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Price:       input.Price,
		Tags:        strings.TrimSpace(input.Tags),
		ImagePath:   imagePath,
	})
}

func (s *ItemService) Get(ctx context.Context, id int64) (*models.Item, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return item, nil
}

func (s *ItemService) Search(ctx context.Context, query string, page, limit int) ([]models.Item, int, error) {
	if page <= 0 || limit <= 0 {
		return nil, 0, ErrInvalidInput
	}
	return s.repo.SearchAvailable(ctx, strings.TrimSpace(query), limit, (page-1)*limit)
}

func (s *ItemService) ListBySeller(ctx context.Context, sellerID int64) ([]models.Item, error) {
	return s.repo.ListBySeller(ctx, sellerID)
}

// UpdateStatus transitions an item's status. Only the owning seller may do
// this; anyone else gets ErrForbidden rather than a silent no-op.
func (s *ItemService) UpdateStatus(ctx context.Context, actorID, itemID int64, status string) (*models.Item, error) {
	if !models.ValidItemStatus(status) {
		return nil, ErrInvalidStatus
	}

	item, err := s.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.SellerID != actorID {
		return nil, ErrForbidden
	}

	if err := s.repo.UpdateStatus(ctx, itemID, status); err != nil {
		return nil, err
	}
	item.Status = status
	return item, nil
}

// Remove marks the item removed. Removed is terminal and never listed, so
// the row stays behind for conversations that still reference it.
func (s *ItemService) Remove(ctx context.Context, actorID, itemID int64) error {
	item, err := s.Get(ctx, itemID)
	if err != nil {
		return err
	}
	if item.SellerID != actorID {
		return ErrForbidden
	}

	return s.repo.UpdateStatus(ctx, itemID, models.ItemStatusRemoved)
}
