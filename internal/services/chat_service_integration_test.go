package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/Eterla/2025Fall-SE-Project-group2/internal/models"
	"github.com/Eterla/2025Fall-SE-Project-group2/internal/repository"
)

var (
	testDBOnce sync.Once
	testDBPool *pgxpool.Pool
	testDBErr  error
)

func TestChatServiceSendAndReadFlow(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationChatService(pool)

	buyerID := createTestUser(t, ctx, pool, "buyer")
	sellerID := createTestUser(t, ctx, pool, "seller")
	itemID := createTestItem(t, ctx, pool, sellerID, "Road bike")
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, buyerID, sellerID) })

	first, err := service.SendMessage(ctx, buyerID, sellerID, itemID, "Is this available?")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if first.RecipientID != sellerID {
		t.Fatalf("expected recipient %d, got %d", sellerID, first.RecipientID)
	}
	if first.Message.IsRead {
		t.Fatal("new message must start unread")
	}
	if got := first.Conversation.UnreadFor(sellerID); got != 1 {
		t.Fatalf("expected seller unread 1, got %d", got)
	}
	if got := first.Conversation.UnreadFor(buyerID); got != 0 {
		t.Fatalf("expected buyer unread 0, got %d", got)
	}

	second, err := service.SendMessage(ctx, buyerID, sellerID, itemID, "Still interested")
	if err != nil {
		t.Fatalf("second SendMessage: %v", err)
	}
	if second.Conversation.ID != first.Conversation.ID {
		t.Fatalf("expected same conversation, got %d and %d", first.Conversation.ID, second.Conversation.ID)
	}
	if got := second.Conversation.UnreadFor(sellerID); got != 2 {
		t.Fatalf("expected seller unread 2, got %d", got)
	}

	// The reply lands in the same conversation no matter which side talks.
	reply, err := service.SendMessage(ctx, sellerID, buyerID, itemID, "Yes, it is")
	if err != nil {
		t.Fatalf("reply SendMessage: %v", err)
	}
	if reply.Conversation.ID != first.Conversation.ID {
		t.Fatalf("expected reply in conversation %d, got %d", first.Conversation.ID, reply.Conversation.ID)
	}
	if got := reply.Conversation.UnreadFor(buyerID); got != 1 {
		t.Fatalf("expected buyer unread 1, got %d", got)
	}
	if got := reply.Conversation.UnreadFor(sellerID); got != 2 {
		t.Fatalf("expected seller unread still 2, got %d", got)
	}

	// Fetching history is the read receipt for the seller's side.
	messages, err := service.GetHistory(ctx, sellerID, buyerID, itemID)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	for i := 1; i < len(messages); i++ {
		if messages[i].CreatedAt.Before(messages[i-1].CreatedAt) {
			t.Fatalf("messages out of order at index %d", i)
		}
	}
	for _, m := range messages {
		if m.ToUserID == sellerID && !m.IsRead {
			t.Fatalf("message %d to seller should be read after history fetch", m.ID)
		}
	}

	conversation, err := repository.NewConversationRepository(pool).GetByTriple(ctx, buyerID, sellerID, itemID)
	if err != nil {
		t.Fatalf("GetByTriple: %v", err)
	}
	if got := conversation.UnreadFor(sellerID); got != 0 {
		t.Fatalf("expected seller unread reset to 0, got %d", got)
	}
	if got := conversation.UnreadFor(buyerID); got != 1 {
		t.Fatalf("expected buyer unread untouched at 1, got %d", got)
	}

	total, err := service.UnreadTotal(ctx, buyerID)
	if err != nil {
		t.Fatalf("UnreadTotal: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected buyer unread total 1, got %d", total)
	}
}

func TestChatServiceSeparatesConversationsPerItem(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationChatService(pool)

	buyerID := createTestUser(t, ctx, pool, "buyer")
	sellerID := createTestUser(t, ctx, pool, "seller")
	bikeID := createTestItem(t, ctx, pool, sellerID, "Bike")
	lampID := createTestItem(t, ctx, pool, sellerID, "Lamp")
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, buyerID, sellerID) })

	bike, err := service.SendMessage(ctx, buyerID, sellerID, bikeID, "About the bike")
	if err != nil {
		t.Fatalf("SendMessage bike: %v", err)
	}
	lamp, err := service.SendMessage(ctx, buyerID, sellerID, lampID, "About the lamp")
	if err != nil {
		t.Fatalf("SendMessage lamp: %v", err)
	}
	if bike.Conversation.ID == lamp.Conversation.ID {
		t.Fatal("different items must not share a conversation")
	}

	summaries, err := service.ListConversations(ctx, sellerID)
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(summaries))
	}
	// Most recently active first.
	if summaries[0].ItemID != lampID {
		t.Fatalf("expected lamp conversation first, got item %d", summaries[0].ItemID)
	}
	for _, s := range summaries {
		if s.OtherUserID != buyerID {
			t.Fatalf("expected other participant %d, got %d", buyerID, s.OtherUserID)
		}
		if s.UnreadCount != 1 {
			t.Fatalf("expected unread 1 for conversation %d, got %d", s.ConversationID, s.UnreadCount)
		}
	}
}

func TestChatServiceRejectsBadSends(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationChatService(pool)

	buyerID := createTestUser(t, ctx, pool, "buyer")
	sellerID := createTestUser(t, ctx, pool, "seller")
	itemID := createTestItem(t, ctx, pool, sellerID, "Desk")
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, buyerID, sellerID) })

	if _, err := service.SendMessage(ctx, buyerID, buyerID, itemID, "hello me"); err != ErrSelfMessage {
		t.Fatalf("expected ErrSelfMessage, got %v", err)
	}
	if _, err := service.SendMessage(ctx, buyerID, sellerID, itemID, "   "); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for blank content, got %v", err)
	}
	if _, err := service.SendMessage(ctx, buyerID, 999999999, itemID, "hi"); err != ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := service.SendMessage(ctx, buyerID, sellerID, 999999999, "hi"); err != ErrItemNotFound {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestStaleLockedItemRevertsOnRead(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := NewItemService(repository.NewItemRepository(pool), nil)

	sellerID := createTestUser(t, ctx, pool, "locker")
	itemID := createTestItem(t, ctx, pool, sellerID, "Camera")
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, sellerID) })

	if _, err := pool.Exec(ctx,
		"UPDATE items SET status = 'locked', updated_at = NOW() - INTERVAL '25 hours' WHERE id = $1",
		itemID,
	); err != nil {
		t.Fatalf("backdate lock: %v", err)
	}

	item, err := service.Get(ctx, itemID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if item.Status != models.ItemStatusAvailable {
		t.Fatalf("expected stale lock to revert to available, got %q", item.Status)
	}

	// A fresh lock must survive the sweep.
	if _, err := pool.Exec(ctx,
		"UPDATE items SET status = 'locked', updated_at = NOW() WHERE id = $1", itemID,
	); err != nil {
		t.Fatalf("relock: %v", err)
	}
	item, err = service.Get(ctx, itemID)
	if err != nil {
		t.Fatalf("Get after relock: %v", err)
	}
	if item.Status != models.ItemStatusLocked {
		t.Fatalf("expected fresh lock to hold, got %q", item.Status)
	}
}

func integrationTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testDBOnce.Do(func() {
		_ = godotenv.Load(".env")
		_ = godotenv.Load(filepath.Join("..", "..", ".env"))

		dbURL := os.Getenv("DB_URL")
		if dbURL == "" {
			testDBErr = fmt.Errorf("DB_URL is not set")
			return
		}

		cfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			testDBErr = err
			return
		}

		testDBPool, testDBErr = pgxpool.NewWithConfig(context.Background(), cfg)
		if testDBErr != nil {
			return
		}
		testDBErr = testDBPool.Ping(context.Background())
	})

	if testDBErr != nil {
		t.Skipf("skipping integration test: %v", testDBErr)
	}
	return testDBPool
}

func newIntegrationChatService(pool *pgxpool.Pool) *ChatService {
	return NewChatService(
		pool,
		repository.NewConversationRepository(pool),
		repository.NewMessageRepository(pool),
		repository.NewUserRepository(pool),
		repository.NewItemRepository(pool),
	)
}

func createTestUser(t *testing.T, ctx context.Context, pool *pgxpool.Pool, prefix string) int64 {
	t.Helper()

	userRepo := repository.NewUserRepository(pool)
	user := &models.User{
		Username:     fmt.Sprintf("chat-test-%s-%d", prefix, time.Now().UnixNano()),
		PasswordHash: "test-hash",
	}
	if err := userRepo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser(%s): %v", prefix, err)
	}
	return user.ID
}

func createTestItem(t *testing.T, ctx context.Context, pool *pgxpool.Pool, sellerID int64, title string) int64 {
	t.Helper()

	item, err := repository.NewItemRepository(pool).Create(ctx, repository.CreateItemInput{
		SellerID: sellerID,
		Title:    title,
		Price:    10,
	})
	if err != nil {
		t.Fatalf("Create item %q: %v", title, err)
	}
	return item.ID
}

func cleanupTestUsers(t *testing.T, ctx context.Context, pool *pgxpool.Pool, userIDs ...int64) {
	t.Helper()

	if len(userIDs) == 0 {
		return
	}

	if _, err := pool.Exec(ctx, "UPDATE conversations SET last_message_id = NULL WHERE user1_id = ANY($1) OR user2_id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup conversation pointers: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM messages WHERE from_user_id = ANY($1) OR to_user_id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup messages: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM conversations WHERE user1_id = ANY($1) OR user2_id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup conversations: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM items WHERE seller_id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup items: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM users WHERE id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup users: %v", err)
	}
}
