package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/hogarlabs/hogar-api/config"
	"github.com/hogarlabs/hogar-api/handlers"
	"github.com/hogarlabs/hogar-api/middleware"
	"github.com/hogarlabs/hogar-api/models"
	"github.com/hogarlabs/hogar-api/routes"
	"github.com/hogarlabs/hogar-api/services"
	"github.com/hogarlabs/hogar-api/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	gw, cleanup := openGateway()
	defer cleanup()

	memberSvc := services.NewMemberService(gw)
	projectSvc := services.NewProjectService(gw, memberSvc)
	wsHandler := handlers.NewWSHandler(gw, projectSvc)

	router := gin.Default()

	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}

	allowedOrigins := []string{
		frontendURL,
		"https://hogarapp.ar",
		"https://www.hogarapp.ar",
	}

	log.Printf("🌍 CORS: Allowing origins:")
	for _, origin := range allowedOrigins {
		log.Printf("   - %s", origin)
	}

	corsConfig := cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           86400,
	}
	router.Use(cors.New(corsConfig))

	router.Use(func(c *gin.Context) {
		start := time.Now()
		log.Printf("📨 %s %s from %s", c.Request.Method, c.Request.URL.Path, c.ClientIP())
		c.Next()
		duration := time.Since(start)
		log.Printf("✅ %s %s - %d (%v)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), duration)
	})

	router.Use(middleware.RateLimiter())

	v1 := router.Group("/api/v1")
	{
		routes.SetupAuthRoutes(v1, gw)

		// Feed upgrades authenticate via ?token=, not the middleware.
		v1.GET("/ws/projects/:id", wsHandler.HandleProjectWS)
		v1.GET("/ws/home", wsHandler.HandleHomeWS)

		protected := v1.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			routes.SetupUserRoutes(protected, gw)
			routes.SetupProjectRoutes(protected, gw)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("🚀 Server starting on port %s...", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// openGateway connects the document gateway. Without DATABASE_URL the
// server runs on the in-memory store; everything works but nothing
// survives a restart.
func openGateway() (store.Gateway, func()) {
	if os.Getenv("DATABASE_URL") == "" {
		log.Println("⚠️  DATABASE_URL not set, using in-memory store")
		return store.NewMemory(), func() {}
	}

	db, err := config.GetDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	log.Println("✅ Database connected successfully")

	if err := config.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	gw := store.NewPostgres(db)
	go scheduleSessionCleaning(gw)

	return gw, func() { db.Close() }
}

func scheduleSessionCleaning(gw store.Gateway) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		cleanExpiredSessions(gw)
	}
}

func cleanExpiredSessions(gw store.Gateway) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	docs, err := gw.Query(ctx, store.Query{Collection: models.SessionsCol})
	if err != nil {
		log.Printf("❌ Session cleanup failed: %v", err)
		return
	}

	now := time.Now()
	var cleaned int
	for _, d := range docs {
		var sess models.Session
		if d.Decode(&sess) != nil {
			continue
		}
		if now.After(sess.ExpiresAt) {
			if gw.Delete(ctx, models.SessionsCol, d.ID) == nil {
				cleaned++
			}
		}
	}
	if cleaned > 0 {
		log.Printf("🧹 Cleaned %d expired sessions", cleaned)
	}
}
