package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"alumni-chat/internal/chatlog"
	"alumni-chat/internal/middleware"
	"alumni-chat/internal/models"
	"alumni-chat/internal/telemetry"
)

// ChatService is the mutation and read surface the handlers drive. The
// message log satisfies it.
type ChatService interface {
	Send(ctx context.Context, actor chatlog.Identity, text string, replyTo *models.ReplyRef) error
	Edit(ctx context.Context, actor chatlog.Identity, messageID, newText string) error
	Remove(ctx context.Context, actor chatlog.Identity, messageID string) error
	ToggleReaction(ctx context.Context, actor chatlog.Identity, messageID, emoji string) error
	View() models.ChannelView
	ReplySnapshot(messageID string) *models.ReplyRef
}

// ChannelHandler manages the community channel endpoints.
type ChannelHandler struct {
	service ChatService
	emitter *telemetry.AuditEmitter
}

// NewChannelHandler builds a ChannelHandler.
func NewChannelHandler(service ChatService, emitter *telemetry.AuditEmitter) *ChannelHandler {
	return &ChannelHandler{service: service, emitter: emitter}
}

// GetChannel returns the derived channel view: date groups with run
// headers, the participant roster and the today count.
func (h *ChannelHandler) GetChannel(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"view": h.service.View()})
}

// GetParticipants returns the derived participant roster.
func (h *ChannelHandler) GetParticipants(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"participants": h.service.View().Participants})
}

// PostMessage submits a new message, optionally as a reply. The reply
// reference is snapshotted here, at reply time.
func (h *ChannelHandler) PostMessage(c *gin.Context) {
	actor, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	var req struct {
		Text      string `json:"text" binding:"required"`
		ReplyToID string `json:"reply_to_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var replyTo *models.ReplyRef
	if req.ReplyToID != "" {
		replyTo = h.service.ReplySnapshot(req.ReplyToID)
		if replyTo == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "reply target not found"})
			return
		}
	}

	err := h.service.Send(c.Request.Context(), chatlog.Identity(actor), req.Text, replyTo)
	switch {
	case errors.Is(err, chatlog.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "message text is empty"})
		return
	case errors.Is(err, chatlog.ErrOffline):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "client is offline"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		return
	}

	h.audit(c, actor.ID, "message sent")
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// EditMessage changes the text of the caller's own message.
func (h *ChannelHandler) EditMessage(c *gin.Context) {
	actor, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.service.Edit(c.Request.Context(), chatlog.Identity(actor), c.Param("message_id"), req.Text)
	if !h.respondMutation(c, err, "failed to edit message") {
		return
	}

	h.audit(c, actor.ID, "message edited")
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// DeleteMessage hard-deletes the caller's own message.
func (h *ChannelHandler) DeleteMessage(c *gin.Context) {
	actor, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	err := h.service.Remove(c.Request.Context(), chatlog.Identity(actor), c.Param("message_id"))
	if !h.respondMutation(c, err, "failed to delete message") {
		return
	}

	h.audit(c, actor.ID, "message deleted")
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// ToggleReaction toggles the caller's emoji reaction on a message.
func (h *ChannelHandler) ToggleReaction(c *gin.Context) {
	actor, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	var req struct {
		Emoji string `json:"emoji" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.service.ToggleReaction(c.Request.Context(), chatlog.Identity(actor), c.Param("message_id"), req.Emoji)
	if !h.respondMutation(c, err, "failed to toggle reaction") {
		return
	}

	h.audit(c, actor.ID, "reaction toggled")
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// respondMutation maps mutation errors onto HTTP statuses. Returns false
// when a response was already written.
func (h *ChannelHandler) respondMutation(c *gin.Context, err error, fallback string) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, chatlog.ErrNotAuthor):
		c.JSON(http.StatusForbidden, gin.H{"error": "not the message author"})
	case errors.Is(err, chatlog.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
	return false
}

func (h *ChannelHandler) audit(c *gin.Context, userID, text string) {
	h.emitter.Emit(c.Request.Context(), "INFO", text, requestIDFromContext(c), &userID)
}
