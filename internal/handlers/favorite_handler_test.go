package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Eterla/2025Fall-SE-Project-group2/internal/models"
	"github.com/Eterla/2025Fall-SE-Project-group2/internal/services"
)

type stubFavoriteService struct {
	addResult    bool
	addErr       error
	removeResult bool
	listResult   []models.Item
	lastUserID   int64
	lastItemID   int64
}

func (s *stubFavoriteService) Add(_ context.Context, userID, itemID int64) (bool, error) {
	s.lastUserID = userID
	s.lastItemID = itemID
	return s.addResult, s.addErr
}

func (s *stubFavoriteService) Remove(_ context.Context, userID, itemID int64) (bool, error) {
	s.lastUserID = userID
	s.lastItemID = itemID
	return s.removeResult, nil
}

func (s *stubFavoriteService) ListForUser(_ context.Context, userID int64) ([]models.Item, error) {
	s.lastUserID = userID
	return s.listResult, nil
}

func TestAddFavoriteCreates(t *testing.T) {
	service := &stubFavoriteService{addResult: true}
	handler := NewFavoriteHandler(service)

	app := authedApp("42")
	app.Post("/api/favorites", handler.Add)

	req := httptest.NewRequest(http.MethodPost, "/api/favorites", strings.NewReader(`{"item_id":7}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastUserID != 42 || service.lastItemID != 7 {
		t.Fatalf("unexpected forwarded ids: %d %d", service.lastUserID, service.lastItemID)
	}
}

func TestAddFavoriteTwiceConflicts(t *testing.T) {
	service := &stubFavoriteService{addResult: false}
	handler := NewFavoriteHandler(service)

	app := authedApp("42")
	app.Post("/api/favorites", handler.Add)

	req := httptest.NewRequest(http.MethodPost, "/api/favorites", strings.NewReader(`{"item_id":7}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	body := decodeEnvelope(t, resp)
	if body.Error == nil || body.Error.Code != CodeAlreadyFavorited {
		t.Fatalf("expected ALREADY_FAVORITED, got %+v", body)
	}
}

func TestAddFavoriteForMissingItem(t *testing.T) {
	service := &stubFavoriteService{addErr: services.ErrItemNotFound}
	handler := NewFavoriteHandler(service)

	app := authedApp("42")
	app.Post("/api/favorites", handler.Add)

	req := httptest.NewRequest(http.MethodPost, "/api/favorites", strings.NewReader(`{"item_id":999}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestRemoveFavoriteIsIdempotent(t *testing.T) {
	service := &stubFavoriteService{removeResult: false}
	handler := NewFavoriteHandler(service)

	app := authedApp("42")
	app.Delete("/api/favorites/:itemID", handler.Remove)

	req := httptest.NewRequest(http.MethodDelete, "/api/favorites/7", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeEnvelope(t, resp)
	var data struct {
		Removed bool `json:"removed"`
	}
	if err := json.Unmarshal(body.Data, &data); err != nil {
		t.Fatalf("Unmarshal data: %v", err)
	}
	if data.Removed {
		t.Fatal("expected removed=false when nothing was favorited")
	}
}

func TestListFavoritesReturnsItems(t *testing.T) {
	service := &stubFavoriteService{
		listResult: []models.Item{{ID: 7, Title: "Lamp", Status: models.ItemStatusAvailable}},
	}
	handler := NewFavoriteHandler(service)

	app := authedApp("42")
	app.Get("/api/favorites", handler.List)

	req := httptest.NewRequest(http.MethodGet, "/api/favorites", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeEnvelope(t, resp)
	var data struct {
		Items []models.Item `json:"items"`
	}
	if err := json.Unmarshal(body.Data, &data); err != nil {
		t.Fatalf("Unmarshal data: %v", err)
	}
	if len(data.Items) != 1 || data.Items[0].ID != 7 {
		t.Fatalf("unexpected items: %+v", data.Items)
	}
}
