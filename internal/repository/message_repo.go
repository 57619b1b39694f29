package repository

import (
	"context"

	"github.com/Eterla/2025Fall-SE-Project-group2/internal/models"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(
	ctx context.Context,
	conversationID int64,
	fromUserID int64,
	toUserID int64,
	itemID int64,
	content string,
) (*models.Message, error) {
	query := `
		INSERT INTO messages (conversation_id, from_user_id, to_user_id, item_id, content, is_read)
		VALUES ($1, $2, $3, $4, $5, FALSE)
		RETURNING id, conversation_id, from_user_id, to_user_id, item_id, content, is_read, created_at
	`

	var message models.Message
	err := r.db.QueryRow(ctx, query, conversationID, fromUserID, toUserID, itemID, content).Scan(
		&message.ID,
		&message.ConversationID,
		&message.FromUserID,
		&message.ToUserID,
		&message.ItemID,
		&message.Content,
		&message.IsRead,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

// ListBetween returns the full history between two users about one item,
// both directions, oldest first. Ties on created_at break by id so the order
// always matches insertion order.
func (r *MessageRepository) ListBetween(
	ctx context.Context,
	userID int64,
	otherUserID int64,
	itemID int64,
) ([]models.Message, error) {
	query := `
		SELECT m.id, m.conversation_id, m.from_user_id, m.to_user_id, m.item_id,
		       m.content, m.is_read, m.created_at,
		       u1.username, u2.username
		FROM messages m
		JOIN users u1 ON u1.id = m.from_user_id
		JOIN users u2 ON u2.id = m.to_user_id
		WHERE ((m.from_user_id = $1 AND m.to_user_id = $2) OR
		       (m.from_user_id = $2 AND m.to_user_id = $1))
		  AND m.item_id = $3
		ORDER BY m.created_at ASC, m.id ASC
	`

	rows, err := r.db.Query(ctx, query, userID, otherUserID, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var message models.Message
		if err := rows.Scan(
			&message.ID,
			&message.ConversationID,
			&message.FromUserID,
			&message.ToUserID,
			&message.ItemID,
			&message.Content,
			&message.IsRead,
			&message.CreatedAt,
			&message.FromUsername,
			&message.ToUsername,
		); err != nil {
			return nil, err
		}

		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

// MarkRead flags every unread message addressed to userID from otherUserID
// about the item. It is always paired with ConversationRepository.ResetUnread
// in the same transaction.
func (r *MessageRepository) MarkRead(
	ctx context.Context,
	userID int64,
	otherUserID int64,
	itemID int64,
) error {
	_, err := r.db.Exec(ctx, `
		UPDATE messages
		SET is_read = TRUE
		WHERE to_user_id = $1
		  AND from_user_id = $2
		  AND item_id = $3
		  AND is_read = FALSE
	`, userID, otherUserID, itemID)
	return err
}

func (r *MessageRepository) CountUnread(
	ctx context.Context,
	userID int64,
	otherUserID int64,
	itemID int64,
) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM messages
		WHERE to_user_id = $1
		  AND from_user_id = $2
		  AND item_id = $3
		  AND is_read = FALSE
	`, userID, otherUserID, itemID).Scan(&count)
	return count, err
}
