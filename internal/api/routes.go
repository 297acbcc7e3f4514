package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/medvox/duplex/domain/repositories"
	"github.com/medvox/duplex/internal/websocket"
	"github.com/medvox/duplex/usecase"
)

// InitRoutes initializes all API routes
func InitRoutes(
	e *echo.Echo,
	hub *websocket.Hub,
	recorder *usecase.RecorderService,
	processor *usecase.ProcessingService,
	capture repositories.AudioCapture,
	sessions repositories.SessionRepository,
	logger *zap.Logger,
) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "duplex-server",
		})
	})

	// API v1 routes
	v1 := e.Group("/api/v1")

	// Capability and device APIs
	v1.GET("/support", func(c echo.Context) error {
		return c.JSON(http.StatusOK, capture.CheckSupport())
	})
	v1.GET("/devices", func(c echo.Context) error {
		return listDevices(c, capture, logger)
	})

	// Recording lifecycle APIs
	v1.POST("/recordings/start", func(c echo.Context) error {
		return startRecording(c, recorder, logger)
	})
	v1.POST("/recordings/stop", func(c echo.Context) error {
		return stopRecording(c, recorder, logger)
	})
	v1.GET("/recordings", func(c echo.Context) error {
		return listRecordings(c, sessions, logger)
	})
	v1.POST("/recordings/:id/process", func(c echo.Context) error {
		return processRecording(c, processor, logger)
	})

	// Observer event stream
	e.GET("/ws", func(c echo.Context) error {
		return websocket.HandleWebSocket(hub, c, logger)
	})
}

func listDevices(c echo.Context, capture repositories.AudioCapture, logger *zap.Logger) error {
	devices, err := capture.ListInputDevices(c.Request().Context())
	if err != nil {
		logger.Error("Failed to enumerate input devices", zap.Error(err))
		return c.JSON(captureErrorStatus(err), ErrorResponse{
			Error:   "device_enumeration_failed",
			Message: err.Error(),
		})
	}
	return c.JSON(http.StatusOK, devices)
}

func startRecording(c echo.Context, recorder *usecase.RecorderService, logger *zap.Logger) error {
	var req StartRecordingRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Failed to bind start recording request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	session, err := recorder.Start(c.Request().Context(), usecase.DeviceSelection{
		MicrophoneDeviceID: req.MicrophoneDeviceID,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrAlreadyRecording) {
			return c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "already_recording",
				Message: "A session is already in progress",
			})
		}
		logger.Warn("Failed to start recording", zap.Error(err))
		return c.JSON(captureErrorStatus(err), ErrorResponse{
			Error:   "acquisition_failed",
			Message: err.Error(),
		})
	}

	return c.JSON(http.StatusCreated, session)
}

func stopRecording(c echo.Context, recorder *usecase.RecorderService, logger *zap.Logger) error {
	result, err := recorder.Stop(c.Request().Context())
	if err != nil {
		if errors.Is(err, usecase.ErrNotRecording) {
			return c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "not_recording",
				Message: "No session is in progress",
			})
		}
		logger.Error("Failed to finalize recording", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "finalization_failed",
			Message: err.Error(),
		})
	}

	return c.JSON(http.StatusOK, result)
}

func listRecordings(c echo.Context, sessions repositories.SessionRepository, logger *zap.Logger) error {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_limit",
				Message: "limit must be a positive integer",
			})
		}
		limit = parsed
	}

	recordings, err := sessions.List(c.Request().Context(), limit)
	if err != nil {
		logger.Error("Failed to list recordings", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "list_failed",
			Message: "Could not list recordings",
		})
	}
	return c.JSON(http.StatusOK, recordings)
}

func processRecording(c echo.Context, processor *usecase.ProcessingService, logger *zap.Logger) error {
	sessionID := c.Param("id")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_session_id",
			Message: "Session ID is required",
		})
	}

	session, err := processor.ProcessSession(c.Request().Context(), sessionID)
	if err != nil {
		if errors.Is(err, usecase.ErrNoArtifacts) {
			return c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "no_artifacts",
				Message: "Session has no stored artifacts to process",
			})
		}
		logger.Error("Failed to process session",
			zap.String("sessionID", sessionID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "processing_failed",
			Message: err.Error(),
		})
	}

	return c.JSON(http.StatusOK, session)
}

// captureErrorStatus maps the acquisition error taxonomy onto HTTP statuses.
func captureErrorStatus(err error) int {
	switch {
	case errors.Is(err, repositories.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, repositories.ErrDeviceNotFound):
		return http.StatusNotFound
	case errors.Is(err, repositories.ErrDeviceBusy):
		return http.StatusConflict
	case errors.Is(err, repositories.ErrUnsupportedConstraints):
		return http.StatusUnprocessableEntity
	case errors.Is(err, repositories.ErrSystemCaptureUnsupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
