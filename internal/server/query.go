package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nyayagpt/nyayagpt/internal/helpers"
	"github.com/nyayagpt/nyayagpt/internal/pipeline"
	"github.com/nyayagpt/nyayagpt/models"
)

const conversationCookie = "conversation_id"

const cookieMaxAge = 30 * 24 * 60 * 60

// handleQuery processes a legal query, streaming over SSE when requested.
func (s *Server) handleQuery(c echo.Context) error {
	var req models.QueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Query = helpers.SanitizeQuery(req.Query)

	if req.ConversationID == "" {
		if ck, err := c.Cookie(conversationCookie); err == nil && ck.Value != "" {
			req.ConversationID = ck.Value
		} else {
			req.ConversationID = uuid.NewString()
			s.logger.Printf("created new conversation: %s", req.ConversationID)
		}
	}

	pipeline.Normalize(&req)
	if err := pipeline.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	c.SetCookie(&http.Cookie{
		Name:     conversationCookie,
		Value:    req.ConversationID,
		Path:     "/",
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
	})

	if req.Stream {
		return s.streamQuery(c, req)
	}

	resp, err := s.pipe.Process(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, resp)
}

// streamQuery writes pipeline events as SSE frames, flushing after each one.
func (s *Server) streamQuery(c echo.Context, req models.QueryRequest) error {
	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "streaming unsupported")
	}
	resp.WriteHeader(http.StatusOK)

	emit := func(ev models.StreamEvent) error {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := resp.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := s.pipe.Stream(c.Request().Context(), req, emit); err != nil {
		// Response is already committed; nothing left to send.
		s.logger.Printf("stream aborted for conversation %s: %v", req.ConversationID, err)
	}
	return nil
}
