package server

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/beboard/backend/internal/config"
	"github.com/beboard/backend/internal/database"
	"github.com/beboard/backend/internal/handlers"
	"github.com/beboard/backend/internal/middleware"
)

type Server struct {
	db      database.Service
	handler *handlers.Handler
	secret  []byte
}

// NewServer creates and configures a new server
func NewServer(cfg *config.Config, db database.Service, handler *handlers.Handler) *http.Server {
	newServer := &Server{
		db:      db,
		handler: handler,
		secret:  []byte(cfg.JWTSecret),
	}

	router := newServer.RegisterRoutes()

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Printf("🚀 Server starting on port %s\n", cfg.Port)
	fmt.Println("📝 Press Ctrl+C to stop the server")

	return server
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.Default()

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * 3600,
	}))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.db.Health())
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		api.POST("/register", s.handler.Auth.Register)
		api.POST("/login", s.handler.Auth.Login)

		// Category routes (public reads)
		api.GET("/categories", s.handler.Category.List)
		api.GET("/categories/:id", s.handler.Category.Get)

		// Post routes (public reads)
		api.GET("/posts", s.handler.Post.List)
		api.GET("/posts/:id", s.handler.Post.Get)

		// Comment routes (public reads)
		api.GET("/posts/:id/comments", s.handler.Comment.List)

		// Challenge routes (public reads)
		api.GET("/challenges", s.handler.Challenge.List)
		api.GET("/challenges/:id", s.handler.Challenge.Get)

		// User routes (public reads)
		api.GET("/users/:id", s.handler.User.GetProfile)

		// Protected routes (authentication required)
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(s.secret))
		{
			// Auth protected routes
			protected.GET("/me", s.handler.Auth.GetMe)
			protected.PUT("/me", s.handler.User.UpdateProfile)
			protected.PUT("/me/password", s.handler.Auth.ChangePassword)
			protected.DELETE("/me", s.handler.User.Deactivate)

			// Category admin routes
			protected.POST("/categories", s.handler.Category.Create)
			protected.PUT("/categories/:id", s.handler.Category.Update)
			protected.DELETE("/categories/:id", s.handler.Category.Delete)

			// Post protected routes
			protected.POST("/posts", s.handler.Post.Create)
			protected.PUT("/posts/:id", s.handler.Post.Update)
			protected.DELETE("/posts/:id", s.handler.Post.Delete)
			protected.POST("/posts/:id/bookmark", s.handler.Post.Bookmark)
			protected.DELETE("/posts/:id/bookmark", s.handler.Post.Unbookmark)
			protected.GET("/me/bookmarks", s.handler.Post.ListBookmarks)

			// Comment protected routes
			protected.POST("/posts/:id/comments", s.handler.Comment.Create)
			protected.PUT("/comments/:commentId", s.handler.Comment.Update)
			protected.DELETE("/comments/:commentId", s.handler.Comment.Delete)

			// Challenge protected routes
			protected.POST("/challenges", s.handler.Challenge.Create)
			protected.POST("/challenges/:id/join", s.handler.Challenge.Join)
			protected.DELETE("/challenges/:id/join", s.handler.Challenge.Leave)
			protected.POST("/challenges/:id/complete", s.handler.Challenge.Complete)
			protected.POST("/challenges/:id/cancel", s.handler.Challenge.Cancel)
			protected.GET("/me/challenges", s.handler.Challenge.ListMine)

			// Progress protected routes
			protected.POST("/challenges/:id/progress", s.handler.Challenge.SubmitProgress)
			protected.GET("/challenges/:id/progress", s.handler.Challenge.ListProgress)
			protected.POST("/progress/:progressId/verify", s.handler.Challenge.VerifyProgress)
			protected.GET("/me/verifications", s.handler.Challenge.ListVerifiable)

			// Friend protected routes
			protected.POST("/friend-requests", s.handler.Friend.SendRequest)
			protected.GET("/friend-requests", s.handler.Friend.ListRequests)
			protected.POST("/friend-requests/:id/accept", s.handler.Friend.Accept)
			protected.POST("/friend-requests/:id/reject", s.handler.Friend.Reject)
			protected.GET("/friends", s.handler.Friend.ListFriends)
			protected.DELETE("/friends/:id", s.handler.Friend.Remove)
			protected.GET("/search/users", s.handler.Friend.SearchUser)

			// Notification stream
			protected.GET("/notifications/stream", s.handler.Notification.Stream)
		}
	}

	return r
}
