package handlers

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Eterla/2025Fall-SE-Project-group2/internal/applog"
	"github.com/Eterla/2025Fall-SE-Project-group2/internal/models"
	"github.com/Eterla/2025Fall-SE-Project-group2/internal/services"
	"github.com/Eterla/2025Fall-SE-Project-group2/pkg/utils"
)

type userStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	UpdateProfile(ctx context.Context, id int64, email, phone string) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateAvatar(ctx context.Context, id int64, avatarURL string) error
}

type AuthHandler struct {
	userRepo  userStore
	storage   services.StorageService
	jwtSecret string
}

func NewAuthHandler(userRepo userStore, storage services.StorageService, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		userRepo:  userRepo,
		storage:   storage,
		jwtSecret: jwtSecret,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, CodeInvalidInput, "Invalid request body")
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return respondError(c, fiber.StatusBadRequest, CodeInvalidInput, "Username and password are required")
	}

	existing, err := h.userRepo.GetByUsername(c.Context(), req.Username)
	if err == nil && existing != nil {
		return respondError(c, fiber.StatusConflict, CodeUsernameTaken, "Username is already taken")
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return respondServerError(c, "auth.register.lookup", err)
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return respondServerError(c, "auth.register.hash", err)
	}

	user := &models.User{
		Username:     req.Username,
		PasswordHash: hashed,
		Email:        strings.TrimSpace(req.Email),
		Phone:        strings.TrimSpace(req.Phone),
	}
	if err := h.userRepo.CreateUser(c.Context(), user); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return respondError(c, fiber.StatusConflict, CodeUsernameTaken, "Username is already taken")
		}
		return respondServerError(c, "auth.register.create", err)
	}

	applog.Info(c, "auth.register", map[string]any{"user_id": user.ID})
	return respondOK(c, fiber.StatusCreated, user.Public())
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, CodeInvalidInput, "Invalid request body")
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return respondError(c, fiber.StatusBadRequest, CodeInvalidInput, "Username and password are required")
	}

	user, err := h.userRepo.GetByUsername(c.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return respondError(c, fiber.StatusUnauthorized, CodeUserNotFound, "Unknown username")
		}
		return respondServerError(c, "auth.login.lookup", err)
	}

	if !utils.CheckPassword(req.Password, user.PasswordHash) {
		applog.Security(c, "auth.login.denied", map[string]any{"username": user.Username})
		return respondError(c, fiber.StatusUnauthorized, CodeInvalidPassword, "Wrong password")
	}

	token, err := utils.GenerateToken(strconv.FormatInt(user.ID, 10), h.jwtSecret)
	if err != nil {
		return respondServerError(c, "auth.login.token", err)
	}

	return respondOK(c, fiber.StatusOK, fiber.Map{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   int(utils.TokenLifetime.Seconds()),
		"user":         user.Public(),
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return respondError(c, fiber.StatusUnauthorized, CodeInvalidToken, "Invalid token")
	}

	user, err := h.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return respondError(c, fiber.StatusNotFound, CodeUserNotFound, "User not found")
		}
		return respondServerError(c, "auth.me", err)
	}

	return respondOK(c, fiber.StatusOK, user.Public())
}

// Logout exists for API symmetry; tokens are stateless, so the client just
// discards its copy.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	return respondOK(c, fiber.StatusOK, fiber.Map{})
}

type updateProfileRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return respondError(c, fiber.StatusUnauthorized, CodeInvalidToken, "Invalid token")
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, CodeInvalidInput, "Invalid request body")
	}

	if err := h.userRepo.UpdateProfile(c.Context(), userID, strings.TrimSpace(req.Email), strings.TrimSpace(req.Phone)); err != nil {
		return respondServerError(c, "auth.profile.update", err)
	}

	user, err := h.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		return respondServerError(c, "auth.profile.fetch", err)
	}

	return respondOK(c, fiber.StatusOK, user.Public())
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return respondError(c, fiber.StatusUnauthorized, CodeInvalidToken, "Invalid token")
	}

	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, CodeInvalidInput, "Invalid request body")
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		return respondError(c, fiber.StatusBadRequest, CodeInvalidInput, "Old and new password are required")
	}

	user, err := h.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return respondError(c, fiber.StatusNotFound, CodeUserNotFound, "User not found")
		}
		return respondServerError(c, "auth.password.fetch", err)
	}

	if !utils.CheckPassword(req.OldPassword, user.PasswordHash) {
		return respondError(c, fiber.StatusBadRequest, CodeInvalidPassword, "Wrong old password")
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return respondServerError(c, "auth.password.hash", err)
	}
	if err := h.userRepo.UpdatePassword(c.Context(), userID, hashed); err != nil {
		return respondServerError(c, "auth.password.update", err)
	}

	return respondOK(c, fiber.StatusOK, fiber.Map{})
}

func (h *AuthHandler) UploadAvatar(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return respondError(c, fiber.StatusUnauthorized, CodeInvalidToken, "Invalid token")
	}

	if h.storage == nil {
		return respondError(c, fiber.StatusServiceUnavailable, CodeServiceUnavailable, "File storage is not configured")
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, CodeInvalidInput, "Avatar file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return respondServerError(c, "auth.avatar.open", err)
	}
	defer file.Close()

	user, err := h.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		return respondServerError(c, "auth.avatar.fetch", err)
	}

	filename := fmt.Sprintf("%s%s", uuid.NewString(), strings.ToLower(filepath.Ext(fileHeader.Filename)))
	url, err := h.storage.UploadFile(c.Context(), file, filename, "avatars")
	if err != nil {
		return respondServerError(c, "auth.avatar.upload", err)
	}

	if err := h.userRepo.UpdateAvatar(c.Context(), userID, url); err != nil {
		return respondServerError(c, "auth.avatar.save", err)
	}

	// Best effort: the replaced avatar object is orphaned otherwise.
	if user.AvatarURL != nil && *user.AvatarURL != "" {
		if err := h.storage.DeleteFile(c.Context(), *user.AvatarURL); err != nil {
			applog.Error(c, "auth.avatar.cleanup", err, nil)
		}
	}

	return respondOK(c, fiber.StatusOK, fiber.Map{"avatar_url": url})
}
