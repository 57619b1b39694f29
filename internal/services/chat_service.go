package services

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Eterla/2025Fall-SE-Project-group2/internal/models"
	"github.com/Eterla/2025Fall-SE-Project-group2/internal/repository"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrUserNotFound = errors.New("user not found")
	ErrItemNotFound = errors.New("item not found")
	ErrSelfMessage  = errors.New("cannot message yourself")
)

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type itemReader interface {
	FindByID(ctx context.Context, id int64) (*models.Item, error)
}

type ChatService struct {
	db               *pgxpool.Pool
	conversationRepo *repository.ConversationRepository
	messageRepo      *repository.MessageRepository
	userRepo         userReader
	itemRepo         itemReader
}

// ChatDelivery is what a successful send produces: the stored message plus
// the participant the realtime layer should push it to.
type ChatDelivery struct {
	Conversation *models.Conversation
	Message      *models.Message
	RecipientID  int64
}

func NewChatService(
	db *pgxpool.Pool,
	conversationRepo *repository.ConversationRepository,
	messageRepo *repository.MessageRepository,
	userRepo userReader,
	itemRepo itemReader,
) *ChatService {
	return &ChatService{
		db:               db,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		userRepo:         userRepo,
		itemRepo:         itemRepo,
	}
}

// SendMessage resolves the canonical conversation for (from, to, item),
// appends the message, and applies the unread accounting for the recipient.
// The message insert and the counter update commit together, so a crash can
// never leave a message behind with a stale counter.
func (s *ChatService) SendMessage(
	ctx context.Context,
	fromUserID int64,
	toUserID int64,
	itemID int64,
	content string,
) (*ChatDelivery, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" || toUserID <= 0 || itemID <= 0 {
		return nil, ErrInvalidInput
	}
	if fromUserID == toUserID {
		return nil, ErrSelfMessage
	}

	recipient, err := s.userRepo.GetByID(ctx, toUserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if _, err := s.itemRepo.FindByID(ctx, itemID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	sender, err := s.userRepo.GetByID(ctx, fromUserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txConversationRepo := repository.NewConversationRepository(tx)
	txMessageRepo := repository.NewMessageRepository(tx)

	conversation, err := txConversationRepo.CreateOrGet(ctx, fromUserID, toUserID, itemID)
	if err != nil {
		return nil, err
	}

	message, err := txMessageRepo.Create(ctx, conversation.ID, fromUserID, toUserID, itemID, trimmed)
	if err != nil {
		return nil, err
	}

	if err := txConversationRepo.RecordMessage(ctx, conversation.ID, fromUserID, message.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	// Mirror the committed accounting so callers see current counters
	// without a re-read.
	if conversation.User1ID == fromUserID {
		conversation.UnreadCountUser2++
	} else {
		conversation.UnreadCountUser1++
	}
	conversation.LastMessageID = &message.ID
	conversation.LastUpdated = message.CreatedAt

	message.FromUsername = sender.Username
	message.ToUsername = recipient.Username

	return &ChatDelivery{
		Conversation: conversation,
		Message:      message,
		RecipientID:  toUserID,
	}, nil
}

// GetHistory returns the full message history between userID and
// otherUserID about one item, oldest first. Fetching history doubles as the
// read receipt: every message addressed to userID is flagged read and the
// conversation's unread counter for userID drops to zero, in one
// transaction. Callers should not expect this read to be idempotent with
// respect to unread counts.
func (s *ChatService) GetHistory(
	ctx context.Context,
	userID int64,
	otherUserID int64,
	itemID int64,
) ([]models.Message, error) {
	if otherUserID <= 0 || itemID <= 0 {
		return nil, ErrInvalidInput
	}

	if _, err := s.userRepo.GetByID(ctx, otherUserID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if _, err := s.itemRepo.FindByID(ctx, itemID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txConversationRepo := repository.NewConversationRepository(tx)
	txMessageRepo := repository.NewMessageRepository(tx)

	messages, err := txMessageRepo.ListBetween(ctx, userID, otherUserID, itemID)
	if err != nil {
		return nil, err
	}

	if err := txMessageRepo.MarkRead(ctx, userID, otherUserID, itemID); err != nil {
		return nil, err
	}

	conversation, err := txConversationRepo.GetByTriple(ctx, userID, otherUserID, itemID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if conversation != nil {
		if err := txConversationRepo.ResetUnread(ctx, conversation.ID, userID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	for i := range messages {
		if messages[i].ToUserID == userID {
			messages[i].IsRead = true
		}
	}

	return messages, nil
}

// UnreadTotal powers the navbar badge: the sum of the caller's unread
// counters across all conversations.
func (s *ChatService) UnreadTotal(ctx context.Context, userID int64) (int, error) {
	return s.conversationRepo.UnreadTotal(ctx, userID)
}

func (s *ChatService) ListConversations(
	ctx context.Context,
	userID int64,
) ([]models.ConversationSummary, error) {
	return s.conversationRepo.ListForUser(ctx, userID)
}
