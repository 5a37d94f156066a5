package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"olymphub/internal/api"
	"olymphub/internal/app/service"
	"olymphub/internal/common/security"
	"olymphub/internal/domain/repository"
	"olymphub/internal/platform/cache"
	"olymphub/internal/platform/config"
	"olymphub/internal/platform/database"
	"olymphub/internal/platform/storage"
)

func main() {
	// 1. Load Configuration
	config.Load()
	fmt.Println("Configuration loaded.")

	// 2. Initialize JWT
	security.InitJWT()
	fmt.Println("JWT initialized.")

	// 3. Initialize Database
	database.Connect()
	defer database.Close()
	fmt.Println("Database connected.")

	// 4. Initialize Redis (scoreboard cache)
	cache.ConnectRedis()
	defer cache.CloseRedis()
	fmt.Println("Redis connected.")

	// 5. Initialize File Storage
	store, err := storage.NewLocalStorage(config.AppConfig.UploadDir)
	if err != nil {
		log.Fatalf("Failed to initialize upload storage: %v", err)
	}

	// 6. Initialize Repositories
	userRepo := repository.NewPgUserRepository(database.DB)
	olympiadRepo := repository.NewPgOlympiadRepository(database.DB)
	problemRepo := repository.NewPgProblemRepository(database.DB)
	enrollmentRepo := repository.NewPgEnrollmentRepository(database.DB)
	submissionRepo := repository.NewPgSubmissionRepository(database.DB)

	// 7. Initialize Services
	authService := service.NewAuthService(userRepo, database.DB)
	olympiadService := service.NewOlympiadService(olympiadRepo, problemRepo, enrollmentRepo, userRepo, database.DB)
	problemService := service.NewProblemService(problemRepo, olympiadRepo, userRepo, olympiadService)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, userRepo, olympiadService)
	scoreboardService := service.NewScoreboardService(enrollmentRepo, problemRepo, submissionRepo, cache.RDB)
	submissionService := service.NewSubmissionService(
		submissionRepo, problemRepo, olympiadRepo, userRepo,
		enrollmentService, olympiadService, scoreboardService, store, database.DB)
	profileService := service.NewProfileService(userRepo, enrollmentRepo, olympiadRepo, scoreboardService, store)

	// 8. Setup Router
	router := api.NewRouter(
		authService,
		olympiadService,
		problemService,
		enrollmentService,
		submissionService,
		scoreboardService,
		profileService,
	)

	// 9. Start HTTP Server
	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s", config.AppConfig.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", config.AppConfig.APIPort, err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited gracefully.")
}
