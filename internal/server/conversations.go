package server

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// handleGetConversation returns stored history for a conversation.
func (s *Server) handleGetConversation(c echo.Context) error {
	id := c.Param("id")
	messages := s.conv.History(c.Request().Context(), id)
	if len(messages) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("conversation with ID %s not found", id))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"conversation_id": id,
		"messages":        messages,
	})
}

// handleDeleteConversation removes a conversation.
func (s *Server) handleDeleteConversation(c echo.Context) error {
	id := c.Param("id")
	deleted, err := s.conv.Delete(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("error deleting conversation: %v", err))
	}
	if !deleted {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("conversation with ID %s not found", id))
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("conversation %s deleted", id),
	})
}

// handleClearCache drops all cached responses.
func (s *Server) handleClearCache(c echo.Context) error {
	deleted, err := s.cache.Clear(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("error clearing cache: %v", err))
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("cache cleared: %d entries removed", deleted),
	})
}
