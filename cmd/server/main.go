package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ModawnAI/everything-backend-sub023/internal/auth"
	"github.com/ModawnAI/everything-backend-sub023/internal/config"
	"github.com/ModawnAI/everything-backend-sub023/internal/database"
	"github.com/ModawnAI/everything-backend-sub023/internal/handlers"
	"github.com/ModawnAI/everything-backend-sub023/internal/jobs"
	"github.com/ModawnAI/everything-backend-sub023/internal/models"
	"github.com/ModawnAI/everything-backend-sub023/internal/repository"
	"github.com/ModawnAI/everything-backend-sub023/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db := database.GetDB()

	// Initialize repository
	repo := repository.NewRepository(db).WithLockTimeout(cfg.Booking.LockTimeout)

	// Initialize services
	notificationService := services.NewNotificationService(db)
	notificationService.StartDispatcher()
	pointService := services.NewPointService(db)
	referralService := services.NewReferralService(db, notificationService)
	referralService.StartRewardWorker()
	availabilityService := services.NewAvailabilityService(db, repo)
	reservationService := services.NewReservationService(
		db,
		repo,
		availabilityService,
		pointService,
		referralService,
		notificationService,
	)

	// Initialize handlers
	availabilityHandler := handlers.NewAvailabilityHandler(availabilityService)
	reservationHandler := handlers.NewReservationHandler(reservationService)
	pointHandler := handlers.NewPointHandler(pointService)
	referralHandler := handlers.NewReferralHandler(db, referralService)
	shopHandler := handlers.NewShopHandler(db)
	adminHandler := handlers.NewAdminHandler(db, reservationService)

	// Start point status sweep job
	sweepJob := jobs.NewPointSweepJob(db, pointService)
	sweepJob.Start(cfg.Booking.PointSweepInterval)
	log.Println("Point sweep job started")

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173", // Vite dev server
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	if cfg.App.FrontendURL != "" {
		allowedOrigins = append(allowedOrigins, cfg.App.FrontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Public routes
	router.GET("/api/shops/:id/available-slots", availabilityHandler.GetAvailableSlots)
	router.GET("/api/shops/:id/services", shopHandler.GetServices)
	router.GET("/api/shops/:id/hours", shopHandler.GetOperatingHours)
	router.GET("/api/referral/validate", referralHandler.ValidateCode)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		// Reservation endpoints
		api.POST("/reservations", reservationHandler.CreateReservation)
		api.GET("/reservations", reservationHandler.GetMyReservations)
		api.GET("/reservations/:id", reservationHandler.GetReservation)
		api.PUT("/reservations/:id/status", reservationHandler.UpdateStatus)

		// Shop management endpoints
		api.PUT("/shops/:id/hours", shopHandler.UpdateOperatingHours)
		api.POST("/shops/:id/services", shopHandler.CreateService)

		// Point ledger endpoints
		api.GET("/points/balance", pointHandler.GetBalance)
		api.GET("/points/transactions", pointHandler.GetTransactions)

		// Referral endpoints
		api.GET("/referral/code", referralHandler.GetReferralCode)
		api.POST("/referral/apply", referralHandler.ApplyReferralCode)
		api.GET("/referral/referrals", referralHandler.GetReferrals)
	}

	// Admin routes (protected + admin only)
	admin := router.Group("/api/admin")
	admin.Use(auth.AuthMiddleware())
	admin.Use(auth.RequireRole(models.RoleAdmin))
	{
		admin.POST("/reservations/status", adminHandler.BatchUpdateStatus)
		admin.POST("/users/:id/reset-referrer", adminHandler.ResetReferrer)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
