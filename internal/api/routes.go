package api

import (
	"encoding/base64"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fbconsulting/leadpilot/domain/entities"
	"github.com/fbconsulting/leadpilot/domain/repositories"
	"github.com/fbconsulting/leadpilot/internal/auth"
	"github.com/fbconsulting/leadpilot/internal/websocket"
	"github.com/fbconsulting/leadpilot/usecase"
)

// InitRoutes initializes all API routes
func InitRoutes(
	e *echo.Echo,
	hub *websocket.Hub,
	conversations *usecase.ConversationService,
	leads repositories.LeadRepository,
	logger *zap.Logger,
) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "leadpilot-server",
		})
	})

	// Chat proxy endpoints. The siblings share one handler; they exist
	// because deployed frontends call different paths.
	gemini := e.Group("/api/gemini")
	ask := func(c echo.Context) error {
		return handleAsk(c, conversations, logger)
	}
	e.POST("/api/gemini", ask)
	gemini.POST("/main", ask)
	gemini.POST("/ask", ask)
	gemini.POST("/initialize", func(c echo.Context) error {
		return handleInitialize(c)
	})
	gemini.POST("/audio", func(c echo.Context) error {
		return handleAudio(c, conversations, logger)
	})
	gemini.POST("/transcribe", func(c echo.Context) error {
		return handleTranscribe(c, conversations, logger)
	})

	// Lead export, admin-token only
	e.GET("/api/leads", func(c echo.Context) error {
		return handleListLeads(c, leads, logger)
	})

	// WebSocket endpoint; the path segment is the client-generated ID
	e.GET("/ws/:clientId", func(c echo.Context) error {
		clientID := c.Param("clientId")
		if clientID == "" {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "missing_client_id",
				Message: "Client ID is required in the path",
			})
		}
		return websocket.ServeWS(hub, c, clientID, logger)
	})
}

// handleAsk runs one stateless chat turn over HTTP. Each request gets a
// throwaway conversation so HTTP callers do not pollute WebSocket sessions.
func handleAsk(c echo.Context, conversations *usecase.ConversationService, logger *zap.Logger) error {
	var req AskRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Failed to bind ask request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	text := req.Prompt
	if text == "" {
		text = req.Message
	}
	if text == "" && len(req.Images) == 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Prompt or message is required",
		})
	}

	message := entities.NewChatMessage(entities.RoleUser, text)
	for _, img := range req.Images {
		message.MediaItems = append(message.MediaItems, entities.MediaItem{
			MimeType: img.MimeType,
			Data:     img.Data,
		})
	}

	clientID := "http-" + uuid.NewString()
	reply, err := conversations.Converse(c.Request().Context(), clientID, message)
	conversations.Forget(clientID)
	if err != nil {
		logger.Error("Ask request failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "generation_failed",
		})
	}

	return c.JSON(http.StatusOK, AskResponse{Text: reply.Content})
}

func handleInitialize(c echo.Context) error {
	// Sessions are created lazily on the first message; this endpoint only
	// confirms the service is reachable.
	return c.JSON(http.StatusOK, map[string]string{
		"status": "initialized",
	})
}

// handleAudio synthesizes text and returns the combined audio blob.
func handleAudio(c echo.Context, conversations *usecase.ConversationService, logger *zap.Logger) error {
	var req AudioRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.Text == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Text is required",
		})
	}

	audioChan, err := conversations.Synthesize(c.Request().Context(), req.Text)
	if err != nil {
		logger.Error("Audio synthesis failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "synthesis_failed",
		})
	}

	var audio []byte
	for chunk := range audioChan {
		audio = append(audio, chunk...)
	}
	if len(audio) == 0 {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "synthesis_failed",
		})
	}

	return c.Blob(http.StatusOK, "audio/mpeg", audio)
}

// handleTranscribe converts an uploaded audio blob to text.
func handleTranscribe(c echo.Context, conversations *usecase.ConversationService, logger *zap.Logger) error {
	var req TranscribeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.Audio == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Audio is required",
		})
	}

	audio, err := base64.StdEncoding.DecodeString(req.Audio)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_audio",
			Message: "Audio must be base64 encoded",
		})
	}

	config := repositories.AudioConfig{
		SampleRate: req.SampleRate,
		Encoding:   req.Encoding,
		Language:   req.Language,
	}
	if config.SampleRate == 0 {
		config.SampleRate = 16000
	}
	if config.Encoding == "" {
		config.Encoding = "WEBM_OPUS"
	}
	if config.Language == "" {
		config.Language = "en-US"
	}

	text, err := conversations.Transcribe(c.Request().Context(), audio, config)
	if err != nil {
		logger.Error("Transcription failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "transcription_failed",
		})
	}

	return c.JSON(http.StatusOK, TranscribeResponse{Text: text})
}

// handleListLeads exports captured leads; admin tokens only.
func handleListLeads(c echo.Context, leads repositories.LeadRepository, logger *zap.Logger) error {
	token := bearerToken(c)
	if token == "" {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "JWT token is required in Authorization header",
		})
	}

	claims, err := auth.ValidateToken(token)
	if err != nil {
		logger.Warn("Lead export rejected: invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired JWT token",
		})
	}
	if claims.Role != "admin" {
		logger.Warn("Lead export rejected: invalid role", zap.String("role", claims.Role))
		return c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "invalid_role",
			Message: "Only admin tokens may export leads",
		})
	}

	if leads == nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "storage_unavailable",
			Message: "Lead storage is not configured",
		})
	}

	records, err := leads.List(c.Request().Context(), 100)
	if err != nil {
		logger.Error("Failed to list leads", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "list_failed",
		})
	}

	return c.JSON(http.StatusOK, records)
}

func bearerToken(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		return authHeader[7:]
	}
	return ""
}
