package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/medvox/duplex/adapters/capture"
	"github.com/medvox/duplex/adapters/mongo"
	"github.com/medvox/duplex/adapters/storage"
	"github.com/medvox/duplex/adapters/stt"
	"github.com/medvox/duplex/adapters/summary"
	"github.com/medvox/duplex/internal/api"
	"github.com/medvox/duplex/internal/websocket"
	"github.com/medvox/duplex/usecase"
)

func main() {
	// Load .env if present; real deployments use actual environment variables
	_ = godotenv.Load()

	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize adapters
	audioCapture := capture.NewManager(logger)

	artifactDir := os.Getenv("ARTIFACT_DIR")
	if artifactDir == "" {
		artifactDir = "./artifacts"
	}
	artifactStorage, err := storage.NewLocal(artifactDir, logger)
	if err != nil {
		logger.Fatal("Failed to initialize artifact storage", zap.Error(err))
	}

	mongoClient, err := mongo.NewClient(logger)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	sessionRepo := mongo.NewSessionRepository(mongoClient.Database)

	speechToText := stt.NewGoogleSpeechToText(logger)
	summarizer, err := summary.NewGeminiSummarizer(logger)
	if err != nil {
		logger.Fatal("Failed to initialize summarizer", zap.Error(err))
	}

	// Initialize WebSocket hub for lifecycle events
	hub := websocket.NewHub(logger)
	go hub.Run()

	// Initialize usecase services
	recorder := usecase.NewRecorderService(audioCapture, artifactStorage, sessionRepo, hub, logger)

	language := os.Getenv("RECOGNITION_LANGUAGE")
	if language == "" {
		language = "en-US"
	}
	processor := usecase.NewProcessingService(artifactStorage, speechToText, summarizer, sessionRepo, hub, language, logger)

	// Initialize API routes
	api.InitRoutes(e, hub, recorder, processor, audioCapture, sessionRepo, logger)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Capture server started", zap.String("port", port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	// Finalize a live session before exiting so no audio is lost.
	if _, err := recorder.Stop(context.Background()); err != nil && err != usecase.ErrNotRecording {
		logger.Error("Failed to finalize live session during shutdown", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	if err := mongoClient.Close(ctx); err != nil {
		logger.Error("Failed to close MongoDB connection", zap.Error(err))
	}

	logger.Info("Server exited")
}
