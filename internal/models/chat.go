package models

import "time"

// Conversation is the canonical thread between two users about one item.
// User1ID is always the smaller of the two participant ids, so the same
// unordered pair maps to exactly one row.
type Conversation struct {
	ID               int64     `json:"id"`
	User1ID          int64     `json:"user1_id"`
	User2ID          int64     `json:"user2_id"`
	ItemID           int64     `json:"item_id"`
	LastMessageID    *int64    `json:"last_message_id,omitempty"`
	LastUpdated      time.Time `json:"last_updated"`
	UnreadCountUser1 int       `json:"unread_count_user1"`
	UnreadCountUser2 int       `json:"unread_count_user2"`
}

// UnreadFor returns the unread counter belonging to the given participant.
func (c *Conversation) UnreadFor(userID int64) int {
	if userID == c.User1ID {
		return c.UnreadCountUser1
	}
	return c.UnreadCountUser2
}

// OtherParticipant returns the participant that is not userID.
func (c *Conversation) OtherParticipant(userID int64) int64 {
	if userID == c.User1ID {
		return c.User2ID
	}
	return c.User1ID
}

type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	FromUserID     int64     `json:"from_user_id"`
	ToUserID       int64     `json:"to_user_id"`
	ItemID         int64     `json:"item_id"`
	Content        string    `json:"content"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
	FromUsername   string    `json:"from_username,omitempty"`
	ToUsername     string    `json:"to_username,omitempty"`
}

// ConversationSummary is one entry of a user's conversation list.
type ConversationSummary struct {
	ConversationID  int64      `json:"conversation_id"`
	OtherUserID     int64      `json:"other_user_id"`
	OtherUsername   string     `json:"other_username"`
	ItemID          int64      `json:"item_id"`
	ItemTitle       string     `json:"item_title"`
	ItemImage       *string    `json:"item_image,omitempty"`
	LastMessage     *string    `json:"last_message,omitempty"`
	LastMessageTime *time.Time `json:"last_message_time,omitempty"`
	UnreadCount     int        `json:"unread_count"`
}
