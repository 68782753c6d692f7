package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"thucydides/internal/app"
	"thucydides/internal/transport/http/response"
)

type DialogueHandler struct {
	dialogueService *app.DialogueService
}

type StartDialogueRequest struct {
	FigureID uint `json:"figure_id" binding:"required,gt=0"`
}

type ChatRequest struct {
	Content                string `json:"content" binding:"required"`
	AllowExternalKnowledge bool   `json:"allow_external_knowledge"`
}

func NewDialogueHandler(dialogueService *app.DialogueService) *DialogueHandler {
	return &DialogueHandler{dialogueService: dialogueService}
}

func (h *DialogueHandler) Start(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req StartDialogueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	session, err := h.dialogueService.StartSession(c.Request.Context(), userID, req.FigureID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrNoActiveProject):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrFigureNotFound):
			response.Error(c, http.StatusNotFound, response.CodeFigureNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "start dialogue failed")
		}
		return
	}

	c.JSON(http.StatusCreated, response.APIResponse{
		Code:    response.CodeOK,
		Message: "ok",
		Data:    session,
	})
}

// Chat streams the assistant's reply as raw UTF-8 text with no framing.
// Citations never ride on this wire; they are committed server-side and show
// up on the next history read.
func (h *DialogueHandler) Chat(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	sessionID64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || sessionID64 == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid session id")
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "stream not supported")
		return
	}

	headersSent := false
	streamErr := h.dialogueService.Chat(c.Request.Context(), app.ChatInput{
		UserID:        userID,
		SessionID:     uint(sessionID64),
		Content:       req.Content,
		AllowExternal: req.AllowExternalKnowledge,
	}, func(chunk string) error {
		if !headersSent {
			c.Header("Content-Type", "text/plain; charset=utf-8")
			c.Header("Cache-Control", "no-cache")
			c.Header("X-Accel-Buffering", "no")
			c.Writer.WriteHeader(http.StatusOK)
			headersSent = true
		}
		if _, writeErr := c.Writer.Write([]byte(chunk)); writeErr != nil {
			return writeErr
		}
		flusher.Flush()
		return nil
	})
	if streamErr != nil && !headersSent {
		switch {
		case errors.Is(streamErr, app.ErrInvalidInput), errors.Is(streamErr, app.ErrMessageEmpty):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, streamErr.Error())
		case errors.Is(streamErr, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, streamErr.Error())
		case errors.Is(streamErr, app.ErrTurnEnqueue):
			response.Error(c, http.StatusServiceUnavailable, response.CodeInternalServer, streamErr.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "chat failed")
		}
	}
}

func (h *DialogueHandler) ListSessions(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	figureID64, err := strconv.ParseUint(c.Query("figure_id"), 10, 64)
	if err != nil || figureID64 == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid figure_id")
		return
	}

	sessions, err := h.dialogueService.ListSessions(userID, uint(figureID64))
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list sessions failed")
		}
		return
	}
	response.OK(c, sessions)
}

func (h *DialogueHandler) Recent(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	recent, err := h.dialogueService.RecentDialogues(userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list recent dialogues failed")
		return
	}
	response.OK(c, recent)
}

func (h *DialogueHandler) Messages(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	sessionID64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || sessionID64 == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid session id")
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, parseErr := strconv.Atoi(raw); parseErr == nil {
			limit = parsed
		}
	}

	messages, err := h.dialogueService.GetMessages(userID, uint(sessionID64), limit)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get messages failed")
		}
		return
	}
	response.OK(c, messages)
}
