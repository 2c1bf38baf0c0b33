package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fbconsulting/leadpilot/adapters/llm"
	adaptermongo "github.com/fbconsulting/leadpilot/adapters/mongo"
	"github.com/fbconsulting/leadpilot/adapters/stt"
	"github.com/fbconsulting/leadpilot/adapters/tts"
	"github.com/fbconsulting/leadpilot/domain/repositories"
	"github.com/fbconsulting/leadpilot/internal/api"
	"github.com/fbconsulting/leadpilot/internal/config"
	"github.com/fbconsulting/leadpilot/internal/websocket"
	"github.com/fbconsulting/leadpilot/usecase"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	settings := config.Load(logger)

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize adapters
	languageModel := buildLanguageModel(settings, logger)
	textToSpeech := buildTextToSpeech(logger)
	speechToText := stt.NewGoogleSpeechToText(logger)

	var leadRepo repositories.LeadRepository
	var conversationRepo repositories.ConversationRepository
	mongoClient, err := adaptermongo.NewClient(settings.MongoURI, settings.MongoDatabase, logger)
	if err != nil {
		logger.Warn("MongoDB unavailable, running without persistence", zap.Error(err))
	} else {
		defer mongoClient.Close(context.Background())
		leadRepo = adaptermongo.NewLeadRepository(mongoClient.Database)
		conversationRepo = adaptermongo.NewConversationRepository(mongoClient.Database)
	}

	// Initialize usecase services
	conversationService := usecase.NewConversationService(
		languageModel,
		textToSpeech,
		speechToText,
		leadRepo,
		conversationRepo,
		logger,
	)

	// Initialize WebSocket hub with conversation service
	hub := websocket.NewHub(conversationService, logger)
	go hub.Run()

	cleanup := websocket.NewConversationCleanupService(conversationService, logger)
	cleanup.Start()
	defer cleanup.Stop()

	// Initialize API routes
	api.InitRoutes(e, hub, conversationService, leadRepo, logger)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + settings.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("port", settings.Port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// buildLanguageModel picks the first provider with credentials: Gemini,
// then OpenAI, then the canned mock so the server runs keyless. API keys
// supplied once are remembered in the local config store.
func buildLanguageModel(settings config.Settings, logger *zap.Logger) repositories.LargeLanguageModel {
	store, err := config.NewFileStore(settings.ConfigStorePath, logger)
	if err != nil {
		logger.Warn("Config store unavailable", zap.Error(err))
	}

	geminiKey := rememberedKey(store, "gemini_api_key", settings.GeminiAPIKey)
	if geminiKey != "" {
		gemini, err := llm.NewGeminiLLM(llm.GeminiConfig{APIKey: geminiKey}, logger)
		if err == nil {
			logger.Info("Using Gemini language model")
			return gemini
		}
		logger.Warn("Failed to initialize Gemini", zap.Error(err))
	}

	openAIKey := rememberedKey(store, "openai_api_key", settings.OpenAIAPIKey)
	if openAIKey != "" {
		openAI, err := llm.NewOpenAILLM(openAIKey, "", logger)
		if err == nil {
			logger.Info("Using OpenAI language model")
			return openAI
		}
		logger.Warn("Failed to initialize OpenAI", zap.Error(err))
	}

	logger.Info("No model credentials found, using canned responses")
	return llm.NewMockLLM()
}

// rememberedKey persists a key seen in the environment and falls back to
// the stored copy when the environment is empty.
func rememberedKey(store *config.FileStore, name, fromEnv string) string {
	if store == nil {
		return fromEnv
	}
	if fromEnv != "" {
		store.Set(name, fromEnv)
		return fromEnv
	}
	stored, _ := store.Get(name)
	return stored
}

func buildTextToSpeech(logger *zap.Logger) repositories.TextToSpeech {
	ttsConfig := tts.NewElevenLabsConfigFromEnv()
	if ttsConfig.APIKey == "" {
		logger.Info("No ElevenLabs API key, audio synthesis disabled")
		return nil
	}
	elevenLabs, err := tts.NewElevenLabsTTS(ttsConfig, logger)
	if err != nil {
		logger.Warn("Failed to initialize ElevenLabs", zap.Error(err))
		return nil
	}
	return elevenLabs
}
