package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ilyabarkov/directline-server/internal/proto"
	"github.com/ilyabarkov/directline-server/internal/store"
)

// MessageHandlers provides HTTP handlers for message history reads and
// REST sends. The REST send path persists only; live fan-out belongs to
// the WebSocket relay.
type MessageHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(st store.Store, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		store: st,
		log:   logger,
	}
}

// SendMessageRequest represents the REST send request body.
type SendMessageRequest struct {
	ReceiverID string `json:"receiverId" binding:"required"`
	Message    string `json:"message,omitempty"`
	Media      string `json:"media,omitempty"`
}

// History returns all messages between the caller and another user,
// in chronological order. The payload shape is identical to the live
// receive_message event so clients can merge both sources.
// GET /api/messages/:userId
func (h *MessageHandlers) History(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	otherID := c.Param("userId")

	messages, err := h.store.ListConversation(c.Request.Context(), userID, otherID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Str("other_id", otherID).Msg("failed to list conversation")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	payloads := make([]proto.MessagePayload, 0, len(messages))
	for _, msg := range messages {
		payloads = append(payloads, payloadFromStored(msg))
	}

	c.JSON(http.StatusOK, payloads)
}

// Send persists a message without live delivery.
// POST /api/messages
func (h *MessageHandlers) Send(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "receiverId is required"})
		return
	}

	msg, err := h.store.CreateMessage(c.Request.Context(), userID, req.ReceiverID, req.Message, req.Media)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to persist message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, payloadFromStored(msg))
}

// ChatPartners returns the users the caller has exchanged messages with.
// GET /api/chats
func (h *MessageHandlers) ChatPartners(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	partnerIDs, err := h.store.ListChatPartners(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to list chat partners")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	partners := make([]UserResponse, 0, len(partnerIDs))
	for _, id := range partnerIDs {
		user, err := h.store.GetUserByID(c.Request.Context(), id)
		if err != nil {
			// A partner id with no user record can only come from an
			// unregistered address; return the bare id.
			partners = append(partners, UserResponse{ID: id})
			continue
		}
		partners = append(partners, UserResponse{ID: user.ID, Username: user.Username})
	}

	c.JSON(http.StatusOK, partners)
}
