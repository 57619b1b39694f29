package repository

import (
	"context"
	"database/sql"

	"github.com/Eterla/2025Fall-SE-Project-group2/internal/models"
)

// CanonicalPair orders two participant ids so the smaller one always comes
// first. Every conversation lookup and insert goes through this, which is
// what guarantees one row per unordered pair.
func CanonicalPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

type ConversationRepository struct {
	db DBTX
}

func NewConversationRepository(db DBTX) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// CreateOrGet resolves the canonical conversation for the pair and item,
// inserting it with zeroed unread counters when absent. The upsert relies on
// the (user1_id, user2_id, item_id) uniqueness constraint, so two concurrent
// first sends between the same pair cannot create duplicate rows.
func (r *ConversationRepository) CreateOrGet(
	ctx context.Context,
	userA int64,
	userB int64,
	itemID int64,
) (*models.Conversation, error) {
	user1, user2 := CanonicalPair(userA, userB)

	query := `
		INSERT INTO conversations (user1_id, user2_id, item_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user1_id, user2_id, item_id)
		DO UPDATE SET last_updated = conversations.last_updated
		RETURNING id, user1_id, user2_id, item_id, last_message_id, last_updated,
		          unread_count_user1, unread_count_user2
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, user1, user2, itemID).Scan(
		&conversation.ID,
		&conversation.User1ID,
		&conversation.User2ID,
		&conversation.ItemID,
		&conversation.LastMessageID,
		&conversation.LastUpdated,
		&conversation.UnreadCountUser1,
		&conversation.UnreadCountUser2,
	)
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

func (r *ConversationRepository) GetByTriple(
	ctx context.Context,
	userA int64,
	userB int64,
	itemID int64,
) (*models.Conversation, error) {
	user1, user2 := CanonicalPair(userA, userB)

	query := `
		SELECT id, user1_id, user2_id, item_id, last_message_id, last_updated,
		       unread_count_user1, unread_count_user2
		FROM conversations
		WHERE user1_id = $1 AND user2_id = $2 AND item_id = $3
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, user1, user2, itemID).Scan(
		&conversation.ID,
		&conversation.User1ID,
		&conversation.User2ID,
		&conversation.ItemID,
		&conversation.LastMessageID,
		&conversation.LastUpdated,
		&conversation.UnreadCountUser1,
		&conversation.UnreadCountUser2,
	)
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

// RecordMessage applies the unread accounting for a newly inserted message:
// the counter of whichever participant did not send it is incremented, and
// last_message_id / last_updated move to the new message. Callers run this in
// the same transaction as the message insert.
func (r *ConversationRepository) RecordMessage(
	ctx context.Context,
	conversationID int64,
	fromUserID int64,
	messageID int64,
) error {
	_, err := r.db.Exec(ctx, `
		UPDATE conversations
		SET unread_count_user1 = unread_count_user1 + CASE WHEN user1_id <> $2 THEN 1 ELSE 0 END,
		    unread_count_user2 = unread_count_user2 + CASE WHEN user2_id <> $2 THEN 1 ELSE 0 END,
		    last_message_id = $3,
		    last_updated = NOW()
		WHERE id = $1
	`, conversationID, fromUserID, messageID)
	return err
}

// ResetUnread zeroes the unread counter belonging to userID.
func (r *ConversationRepository) ResetUnread(
	ctx context.Context,
	conversationID int64,
	userID int64,
) error {
	_, err := r.db.Exec(ctx, `
		UPDATE conversations
		SET unread_count_user1 = CASE WHEN user1_id = $2 THEN 0 ELSE unread_count_user1 END,
		    unread_count_user2 = CASE WHEN user2_id = $2 THEN 0 ELSE unread_count_user2 END
		WHERE id = $1
	`, conversationID, userID)
	return err
}

func (r *ConversationRepository) ListForUser(
	ctx context.Context,
	userID int64,
) ([]models.ConversationSummary, error) {
	query := `
		SELECT
			c.id,
			CASE WHEN c.user1_id = $1 THEN c.user2_id ELSE c.user1_id END,
			u.username,
			c.item_id,
			i.title,
			i.image_path,
			m.content,
			m.created_at,
			CASE WHEN c.user1_id = $1 THEN c.unread_count_user1 ELSE c.unread_count_user2 END
		FROM conversations c
		JOIN users u ON u.id = CASE WHEN c.user1_id = $1 THEN c.user2_id ELSE c.user1_id END
		JOIN items i ON i.id = c.item_id
		LEFT JOIN messages m ON m.id = c.last_message_id
		WHERE c.user1_id = $1 OR c.user2_id = $1
		ORDER BY c.last_updated DESC, c.id DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]models.ConversationSummary, 0)
	for rows.Next() {
		var summary models.ConversationSummary
		var lastContent sql.NullString
		var lastTime sql.NullTime

		if err := rows.Scan(
			&summary.ConversationID,
			&summary.OtherUserID,
			&summary.OtherUsername,
			&summary.ItemID,
			&summary.ItemTitle,
			&summary.ItemImage,
			&lastContent,
			&lastTime,
			&summary.UnreadCount,
		); err != nil {
			return nil, err
		}

		if lastContent.Valid {
			summary.LastMessage = &lastContent.String
		}
		if lastTime.Valid {
			t := lastTime.Time
			summary.LastMessageTime = &t
		}

		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summaries, nil
}

// UnreadTotal reports the sum of this user's unread counters across all
// conversations.
func (r *ConversationRepository) UnreadTotal(ctx context.Context, userID int64) (int, error) {
	var total int
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE WHEN user1_id = $1 THEN unread_count_user1 ELSE unread_count_user2 END), 0)
		FROM conversations
		WHERE user1_id = $1 OR user2_id = $1
	`, userID).Scan(&total)
	return total, err
}
