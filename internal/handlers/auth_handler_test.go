package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/Eterla/2025Fall-SE-Project-group2/internal/models"
	"github.com/Eterla/2025Fall-SE-Project-group2/pkg/utils"
)

type stubUserStore struct {
	byUsername  *models.User
	usernameErr error
	byID        *models.User
	byIDErr     error
	createErr   error
	createdUser *models.User
	updatedHash string
}

func (s *stubUserStore) CreateUser(_ context.Context, user *models.User) error {
	if s.createErr != nil {
		return s.createErr
	}
	user.ID = 42
	s.createdUser = user
	return nil
}

func (s *stubUserStore) GetByUsername(_ context.Context, username string) (*models.User, error) {
	return s.byUsername, s.usernameErr
}

func (s *stubUserStore) GetByID(_ context.Context, id int64) (*models.User, error) {
	return s.byID, s.byIDErr
}

func (s *stubUserStore) UpdateProfile(_ context.Context, id int64, email, phone string) error {
	if s.byID != nil {
		s.byID.Email = email
		s.byID.Phone = phone
	}
	return nil
}

func (s *stubUserStore) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	s.updatedHash = passwordHash
	return nil
}

func (s *stubUserStore) UpdateAvatar(_ context.Context, id int64, avatarURL string) error {
	return nil
}

func TestRegisterCreatesUser(t *testing.T) {
	store := &stubUserStore{usernameErr: pgx.ErrNoRows}
	handler := NewAuthHandler(store, nil, "secret")

	app := fiber.New()
	app.Post("/api/auth/register", handler.Register)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(`{"username":"alice","password":"hunter22","email":"a@example.com"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if store.createdUser == nil || store.createdUser.Username != "alice" {
		t.Fatalf("expected created user, got %+v", store.createdUser)
	}
	if store.createdUser.PasswordHash == "hunter22" {
		t.Fatal("password must be hashed before storage")
	}

	body := decodeEnvelope(t, resp)
	if !body.OK {
		t.Fatalf("expected ok envelope, got %+v", body)
	}
	if strings.Contains(string(body.Data), "password") {
		t.Fatalf("response must not leak password fields: %s", body.Data)
	}
}

func TestRegisterRejectsTakenUsername(t *testing.T) {
	store := &stubUserStore{byUsername: &models.User{ID: 1, Username: "alice"}}
	handler := NewAuthHandler(store, nil, "secret")

	app := fiber.New()
	app.Post("/api/auth/register", handler.Register)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(`{"username":"alice","password":"pw"}`))
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
	if body.Error == nil || body.Error.Code != CodeUsernameTaken {
		t.Fatalf("expected USERNAME_TAKEN, got %+v", body)
	}
}

func TestRegisterRequiresCredentials(t *testing.T) {
	handler := NewAuthHandler(&stubUserStore{usernameErr: pgx.ErrNoRows}, nil, "secret")

	app := fiber.New()
	app.Post("/api/auth/register", handler.Register)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(`{"username":"  "}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestLoginDistinguishesUnknownUserAndWrongPassword(t *testing.T) {
	hash, err := utils.HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	cases := []struct {
		name     string
		store    *stubUserStore
		payload  string
		wantCode string
	}{
		{
			name:     "unknown user",
			store:    &stubUserStore{usernameErr: pgx.ErrNoRows},
			payload:  `{"username":"ghost","password":"pw"}`,
			wantCode: CodeUserNotFound,
		},
		{
			name:     "wrong password",
			store:    &stubUserStore{byUsername: &models.User{ID: 1, Username: "alice", PasswordHash: hash}},
			payload:  `{"username":"alice","password":"wrong"}`,
			wantCode: CodeInvalidPassword,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewAuthHandler(tc.store, nil, "secret")

			app := fiber.New()
			app.Post("/api/auth/login", handler.Login)

			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(tc.payload))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", resp.StatusCode)
			}
			body := decodeEnvelope(t, resp)
			if body.Error == nil || body.Error.Code != tc.wantCode {
				t.Fatalf("expected %s, got %+v", tc.wantCode, body)
			}
		})
	}
}

func TestLoginIssuesUsableToken(t *testing.T) {
	hash, err := utils.HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	store := &stubUserStore{byUsername: &models.User{ID: 42, Username: "alice", PasswordHash: hash}}
	handler := NewAuthHandler(store, nil, "secret")

	app := fiber.New()
	app.Post("/api/auth/login", handler.Login)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"alice","password":"correct-horse"}`))
	req.Header.Set("Content-Type", "application/json")

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
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(body.Data, &data); err != nil {
		t.Fatalf("Unmarshal data: %v", err)
	}
	if data.TokenType != "bearer" || data.AccessToken == "" {
		t.Fatalf("unexpected token response: %+v", data)
	}

	claims, err := utils.ValidateToken(data.AccessToken, "secret")
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != "42" {
		t.Fatalf("expected subject 42, got %q", claims.UserID)
	}
}

func TestChangePasswordChecksOldPassword(t *testing.T) {
	hash, err := utils.HashPassword("old-pass")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	store := &stubUserStore{byID: &models.User{ID: 42, Username: "alice", PasswordHash: hash}}
	handler := NewAuthHandler(store, nil, "secret")

	app := authedApp("42")
	app.Put("/api/auth/password", handler.ChangePassword)

	req := httptest.NewRequest(http.MethodPut, "/api/auth/password", strings.NewReader(`{"old_password":"nope","new_password":"new-pass"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body := decodeEnvelope(t, resp)
	if body.Error == nil || body.Error.Code != CodeInvalidPassword {
		t.Fatalf("expected INVALID_PASSWORD, got %+v", body)
	}
	if store.updatedHash != "" {
		t.Fatal("password must not change on failed verification")
	}
}

func TestUploadAvatarWithoutStorageReturnsUnavailable(t *testing.T) {
	handler := NewAuthHandler(&stubUserStore{}, nil, "secret")

	app := authedApp("42")
	app.Post("/api/auth/avatar", handler.UploadAvatar)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/avatar", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}
