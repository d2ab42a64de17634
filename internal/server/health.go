package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nyayagpt/nyayagpt/internal/llm"
)

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "NyayaGPT API is running",
		"version": Version,
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":           "ok",
		"version":          Version,
		"available_models": llm.AvailableModels(),
	})
}

// handleStatus reports per-dependency connectivity for monitoring.
func (s *Server) handleStatus(c echo.Context) error {
	ctx := c.Request().Context()
	status := map[string]string{
		"api":          "running",
		"redis":        "disconnected",
		"vector_store": "disconnected",
		"timestamp":    time.Now().Format(time.RFC3339),
	}
	if err := s.conv.Ping(ctx); err == nil {
		status["redis"] = "connected"
	} else if s.conv.Connected() {
		status["redis"] = "error"
	}
	if s.vector != nil {
		if err := s.vector.Health(ctx); err == nil {
			status["vector_store"] = "connected"
		} else {
			status["vector_store"] = "error"
		}
	}
	return c.JSON(http.StatusOK, status)
}
