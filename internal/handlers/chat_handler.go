package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/Eterla/2025Fall-SE-Project-group2/internal/models"
	"github.com/Eterla/2025Fall-SE-Project-group2/internal/services"
	chatws "github.com/Eterla/2025Fall-SE-Project-group2/internal/websocket"
	"github.com/Eterla/2025Fall-SE-Project-group2/pkg/utils"
)

type chatApplicationService interface {
	SendMessage(ctx context.Context, fromUserID, toUserID, itemID int64, content string) (*services.ChatDelivery, error)
	GetHistory(ctx context.Context, userID, otherUserID, itemID int64) ([]models.Message, error)
	ListConversations(ctx context.Context, userID int64) ([]models.ConversationSummary, error)
	UnreadTotal(ctx context.Context, userID int64) (int, error)
}

type ChatHandler struct {
	service   chatApplicationService
	hub       *chatws.Hub
	jwtSecret string
}

func NewChatHandler(service chatApplicationService, hub *chatws.Hub, jwtSecret string) *ChatHandler {
	return &ChatHandler{
		service:   service,
		hub:       hub,
		jwtSecret: jwtSecret,
	}
}

type sendMessageRequest struct {
	ToUserID int64  `json:"to_user_id"`
	ItemID   int64  `json:"item_id"`
	Content  string `json:"content"`
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return respondError(c, fiber.StatusUnauthorized, CodeInvalidToken, "Invalid token")
	}

	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, CodeInvalidInput, "Invalid request body")
	}

	delivery, err := h.service.SendMessage(c.Context(), userID, req.ToUserID, req.ItemID, req.Content)
	if err != nil {
		return mapChatError(c, err)
	}

	// The sender gets the persisted message back over HTTP; the recipient
	// hears about it on their websocket, if connected.
	h.hub.BroadcastNewMessage(delivery.RecipientID, delivery.Message)

	return respondOK(c, fiber.StatusCreated, fiber.Map{
		"message":      delivery.Message,
		"conversation": delivery.Conversation,
	})
}

func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return respondError(c, fiber.StatusUnauthorized, CodeInvalidToken, "Invalid token")
	}

	conversations, err := h.service.ListConversations(c.Context(), userID)
	if err != nil {
		return respondServerError(c, "chat.conversations", err)
	}

	return respondOK(c, fiber.StatusOK, fiber.Map{"conversations": conversations})
}

func (h *ChatHandler) UnreadCount(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return respondError(c, fiber.StatusUnauthorized, CodeInvalidToken, "Invalid token")
	}

	total, err := h.service.UnreadTotal(c.Context(), userID)
	if err != nil {
		return respondServerError(c, "chat.unread", err)
	}

	return respondOK(c, fiber.StatusOK, fiber.Map{"unread_count": total})
}

// GetHistory returns the full thread with the other user about an item and
// marks every message addressed to the caller as read.
func (h *ChatHandler) GetHistory(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return respondError(c, fiber.StatusUnauthorized, CodeInvalidToken, "Invalid token")
	}

	otherUserID, err := strconv.ParseInt(c.Params("otherUserID"), 10, 64)
	if err != nil || otherUserID <= 0 {
		return respondError(c, fiber.StatusBadRequest, CodeInvalidInput, "Invalid user id")
	}
	itemID, err := strconv.ParseInt(c.Params("itemID"), 10, 64)
	if err != nil || itemID <= 0 {
		return respondError(c, fiber.StatusBadRequest, CodeInvalidInput, "Invalid item id")
	}

	messages, err := h.service.GetHistory(c.Context(), userID, otherUserID, itemID)
	if err != nil {
		return mapChatError(c, err)
	}

	return respondOK(c, fiber.StatusOK, fiber.Map{"messages": messages})
}

func (h *ChatHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return respondError(c, fiber.StatusUpgradeRequired, CodeInvalidInput, "WebSocket upgrade required")
	}

	claims, err := h.parseWSClaims(c)
	if err != nil {
		return respondError(c, fiber.StatusUnauthorized, CodeInvalidToken, "Invalid or expired token")
	}

	c.Locals("user_id", claims.UserID)
	return c.Next()
}

func (h *ChatHandler) HandleWebSocket(conn *websocket.Conn) {
	raw, _ := conn.Locals("user_id").(string)
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		conn.Close()
		return
	}

	client := chatws.NewClient(h.hub, conn, userID)
	h.hub.Register(client)
	go client.WritePump()
	client.ReadPump()
}

func (h *ChatHandler) parseWSClaims(c *fiber.Ctx) (*utils.Claims, error) {
	tokenString := strings.TrimSpace(c.Query("token"))
	if tokenString == "" {
		authHeader := strings.TrimSpace(c.Get("Authorization"))
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
	}

	if tokenString == "" {
		return nil, errors.New("missing token")
	}

	return utils.ValidateToken(tokenString, h.jwtSecret)
}

func mapChatError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return respondError(c, fiber.StatusBadRequest, CodeInvalidInput, "Invalid request")
	case errors.Is(err, services.ErrSelfMessage):
		return respondError(c, fiber.StatusBadRequest, CodeInvalidOperation, "Cannot message yourself")
	case errors.Is(err, services.ErrUserNotFound):
		return respondError(c, fiber.StatusNotFound, CodeUserNotFound, "User not found")
	case errors.Is(err, services.ErrItemNotFound):
		return respondError(c, fiber.StatusNotFound, CodeItemNotFound, "Item not found")
	case errors.Is(err, services.ErrForbidden):
		return respondError(c, fiber.StatusForbidden, CodePermissionDenied, "Forbidden")
	default:
		return respondServerError(c, "chat.request", err)
	}
}
