package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"socialapi/internal/auth"
	"socialapi/internal/config"
	"socialapi/internal/database"
	"socialapi/internal/handlers"
	"socialapi/internal/images"
	"socialapi/internal/middleware"
	redisc "socialapi/internal/redis"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("starting social api server")

	cfg := config.Load()

	db, err := database.InitDB(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to init database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to PostgreSQL")

	if err := database.RunMigrations(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations complete")

	limiter := middleware.NewRateLimiter(nil, cfg.RateLimit, cfg.RateWindow)
	if cfg.RedisURL != "" {
		redisClient, err := redisc.InitRedis(cfg.RedisURL)
		if err != nil {
			slog.Error("failed to init Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		slog.Info("connected to Redis")
		limiter = middleware.NewRateLimiter(redisClient, cfg.RateLimit, cfg.RateWindow)
	} else {
		slog.Warn("REDIS_URL not set, rate limiting is per-process only")
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)

	imageStore, err := images.NewStore(cfg.AssetsDir)
	if err != nil {
		slog.Error("failed to init image store", "error", err)
		os.Exit(1)
	}

	// Set up router
	router := mux.NewRouter()
	router.Use(middleware.Logging)
	router.Use(middleware.CORS(cfg.CORSOrigin))

	router.HandleFunc("/health", handlers.Health).Methods("GET", "OPTIONS")
	router.PathPrefix("/assets/").Handler(
		http.StripPrefix("/assets/", http.FileServer(http.Dir(cfg.AssetsDir))))

	// CORS preflight for the whole API surface. Browsers send OPTIONS
	// without the Authorization header, so this must match before the
	// auth middleware is in play; the CORS middleware answers it.
	router.PathPrefix("/api").Methods("OPTIONS").HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	// Public routes
	api := router.PathPrefix("/api").Subrouter()
	api.Use(limiter.Middleware)

	api.HandleFunc("/auth/register", auth.RegisterHandler(db, tokens, cfg.BcryptCost)).Methods("POST")
	api.HandleFunc("/auth/login", auth.LoginHandler(db, tokens)).Methods("POST")
	api.HandleFunc("/posts", handlers.ListPosts(db)).Methods("GET")
	api.HandleFunc("/posts/{id}", handlers.GetPost(db)).Methods("GET")
	api.HandleFunc("/posts/{id}/comments", handlers.GetComments(db)).Methods("GET")

	// Protected routes
	protected := router.PathPrefix("/api").Subrouter()
	protected.Use(limiter.Middleware)
	protected.Use(auth.Middleware(tokens))

	protected.HandleFunc("/users/me", handlers.Me(db)).Methods("GET")
	protected.HandleFunc("/users/me", handlers.UpdateMe(db, cfg.BcryptCost)).Methods("PUT")
	protected.HandleFunc("/users/me/profile-picture", handlers.UpdateProfilePicture(db, imageStore)).Methods("PUT")
	protected.HandleFunc("/users/search", handlers.SearchUsers(db)).Methods("GET")
	protected.HandleFunc("/users/{id}", handlers.GetUser(db)).Methods("GET")
	protected.HandleFunc("/users/{id}/posts", handlers.GetUserPosts(db)).Methods("GET")
	protected.HandleFunc("/posts", handlers.CreatePost(db, imageStore)).Methods("POST")
	protected.HandleFunc("/posts/{id}", handlers.UpdatePost(db)).Methods("PUT")
	protected.HandleFunc("/posts/{id}", handlers.DeletePost(db, imageStore)).Methods("DELETE")
	protected.HandleFunc("/posts/{id}/like", handlers.TogglePostLike(db)).Methods("POST")
	protected.HandleFunc("/posts/{id}/comments", handlers.AddComment(db)).Methods("POST")
	protected.HandleFunc("/posts/{id}/comments/{commentId}", handlers.DeleteComment(db)).Methods("DELETE")
	protected.HandleFunc("/posts/{id}/comments/{commentId}/like", handlers.ToggleCommentLike(db)).Methods("POST")

	// HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
