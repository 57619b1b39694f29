package routes

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Eterla/2025Fall-SE-Project-group2/internal/config"
	"github.com/Eterla/2025Fall-SE-Project-group2/internal/handlers"
	"github.com/Eterla/2025Fall-SE-Project-group2/internal/middleware"
	"github.com/Eterla/2025Fall-SE-Project-group2/internal/repository"
	"github.com/Eterla/2025Fall-SE-Project-group2/internal/services"
	chatws "github.com/Eterla/2025Fall-SE-Project-group2/internal/websocket"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) {
	userRepo := repository.NewUserRepository(db)
	itemRepo := repository.NewItemRepository(db)
	favoriteRepo := repository.NewFavoriteRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	var storageService services.StorageService
	if cfg.StorageConfigured() {
		storageService = services.NewSupabaseStorageService(cfg.SupabaseURL, cfg.SupabaseBucket, cfg.SupabaseServiceKey)
	}
	var tagService services.TagSuggester
	if cfg.GeminiAPIKey != "" {
		tagService = services.NewGeminiTagService(cfg.GeminiModel)
	}

	itemService := services.NewItemService(itemRepo, storageService)
	favoriteService := services.NewFavoriteService(favoriteRepo, itemRepo)
	chatHub := chatws.NewHub()
	go chatHub.Run()
	chatService := services.NewChatService(db, conversationRepo, messageRepo, userRepo, itemRepo)

	authHandler := handlers.NewAuthHandler(userRepo, storageService, cfg.JWTSecret)
	itemHandler := handlers.NewItemHandler(itemService, favoriteService, tagService)
	favoriteHandler := handlers.NewFavoriteHandler(favoriteService)
	chatHandler := handlers.NewChatHandler(chatService, chatHub, cfg.JWTSecret)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)
	auth.Post("/logout", middleware.AuthRequired(cfg.JWTSecret), authHandler.Logout)
	auth.Put("/profile", middleware.AuthRequired(cfg.JWTSecret), authHandler.UpdateProfile)
	auth.Put("/password", middleware.AuthRequired(cfg.JWTSecret), authHandler.ChangePassword)
	auth.Post("/avatar", middleware.AuthRequired(cfg.JWTSecret), authHandler.UploadAvatar)

	items := api.Group("/items")
	items.Get("", itemHandler.List)
	items.Post("", middleware.AuthRequired(cfg.JWTSecret), itemHandler.Publish)
	items.Post("/tags/suggest", middleware.AuthRequired(cfg.JWTSecret), itemHandler.SuggestTags)
	items.Get("/:id", middleware.AuthOptional(cfg.JWTSecret), itemHandler.Detail)
	items.Put("/:id/status", middleware.AuthRequired(cfg.JWTSecret), itemHandler.UpdateStatus)
	items.Delete("/:id", middleware.AuthRequired(cfg.JWTSecret), itemHandler.Remove)

	api.Get("/user/items", middleware.AuthRequired(cfg.JWTSecret), itemHandler.MyItems)

	favorites := api.Group("/favorites", middleware.AuthRequired(cfg.JWTSecret))
	favorites.Post("", favoriteHandler.Add)
	favorites.Delete("/:itemID", favoriteHandler.Remove)
	favorites.Get("", favoriteHandler.List)

	messages := api.Group("/messages", middleware.AuthRequired(cfg.JWTSecret))
	messages.Post("", chatHandler.SendMessage)
	messages.Get("/conversations", chatHandler.ListConversations)
	messages.Get("/unread_count", chatHandler.UnreadCount)
	messages.Get("/conversations/:otherUserID/:itemID", chatHandler.GetHistory)

	api.Use("/ws", chatHandler.WebSocketAuth)
	api.Get("/ws", websocket.New(chatHandler.HandleWebSocket))
}
