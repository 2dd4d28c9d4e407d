package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/campusmarket/marketplace/pkg/telemetry"
	domain "github.com/campusmarket/marketplace/services/messaging-api/internal/domain/messaging"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/infrastructure/auth"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/interfaces/httpserver/requests"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/interfaces/httpserver/responses"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/utils/platformerrors"
)

const logPreviewLength = 64

// ConversationHandler exposes HTTP entrypoints for conversations and messages.
type ConversationHandler struct {
	service   domain.Service
	validate  *validator.Validate
	sanitizer *telemetry.Sanitizer
	log       zerolog.Logger
}

// NewConversationHandler constructs the handler.
func NewConversationHandler(service domain.Service, sanitizer *telemetry.Sanitizer, log zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{
		service:   service,
		validate:  requests.NewValidator(),
		sanitizer: sanitizer,
		log:       log.With().Str("handler", "conversation").Logger(),
	}
}

// List handles GET /v1/conversations
// @Summary List conversations
// @Description Lists every conversation of the caller, most recently active first, with the last message and unread count.
// @Tags Conversations
// @Produce json
// @Security BearerAuth
// @Success 200 {array} responses.ConversationResponse
// @Failure 401 {object} platformerrors.HTTPErrorResponse
// @Failure 503 {object} platformerrors.HTTPErrorResponse
// @Router /v1/conversations [get]
func (h *ConversationHandler) List(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	views, err := h.service.ListConversations(c.Request.Context(), principal.ID)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}

	c.JSON(http.StatusOK, responses.NewConversationListResponse(views))
}

// Create handles POST /v1/conversations
// @Summary Start a conversation
// @Description Starts a conversation with the seller of a listing, or returns the existing one.
// @Tags Conversations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body requests.CreateConversationRequest true "Listing to ask about"
// @Success 200 {object} responses.ConversationResponse
// @Failure 400 {object} platformerrors.HTTPErrorResponse
// @Failure 401 {object} platformerrors.HTTPErrorResponse
// @Failure 404 {object} platformerrors.HTTPErrorResponse
// @Failure 503 {object} platformerrors.HTTPErrorResponse
// @Router /v1/conversations [post]
func (h *ConversationHandler) Create(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req requests.CreateConversationRequest
	if !h.bind(c, &req) {
		return
	}

	conversation, err := h.service.CreateConversation(c.Request.Context(), req.ListingID, principal)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}

	c.JSON(http.StatusOK, responses.NewConversationResponse(conversation))
}

// ListMessages handles GET /v1/conversations/:conversation_id/messages
// @Summary List messages
// @Description Returns the messages of a conversation in order and marks the other participant's messages as read.
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param conversation_id path int true "Conversation ID"
// @Success 200 {array} responses.MessageResponse
// @Failure 401 {object} platformerrors.HTTPErrorResponse
// @Failure 404 {object} platformerrors.HTTPErrorResponse
// @Router /v1/conversations/{conversation_id}/messages [get]
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	conversationID, ok := h.conversationID(c)
	if !ok {
		return
	}

	messages, err := h.service.GetConversationMessages(c.Request.Context(), conversationID, principal.ID)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}

	c.JSON(http.StatusOK, responses.NewMessageListResponse(messages))
}

// CreateMessage handles POST /v1/conversations/:conversation_id/messages
// @Summary Send a message
// @Description Appends a message to a conversation the caller participates in.
// @Tags Messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param conversation_id path int true "Conversation ID"
// @Param request body requests.CreateMessageRequest true "Message"
// @Success 200 {object} responses.MessageResponse
// @Failure 400 {object} platformerrors.HTTPErrorResponse
// @Failure 401 {object} platformerrors.HTTPErrorResponse
// @Failure 404 {object} platformerrors.HTTPErrorResponse
// @Router /v1/conversations/{conversation_id}/messages [post]
func (h *ConversationHandler) CreateMessage(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	conversationID, ok := h.conversationID(c)
	if !ok {
		return
	}

	var req requests.CreateMessageRequest
	if !h.bind(c, &req) {
		return
	}

	message, err := h.service.CreateMessage(c.Request.Context(), conversationID, req.Content, principal)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}

	h.log.Debug().
		Uint("conversation_id", message.ConversationID).
		Uint("message_id", message.ID).
		Str("preview", h.sanitizer.Text(preview(message.Content))).
		Msg("message posted")

	c.JSON(http.StatusOK, responses.NewMessageResponse(message))
}

// Summary handles GET /v1/conversations/:conversation_id/summary
// @Summary Conversation summary
// @Description Reports the message count and status of a conversation.
// @Tags Conversations
// @Produce json
// @Security BearerAuth
// @Param conversation_id path int true "Conversation ID"
// @Success 200 {object} responses.ConversationSummaryResponse
// @Failure 401 {object} platformerrors.HTTPErrorResponse
// @Failure 404 {object} platformerrors.HTTPErrorResponse
// @Router /v1/conversations/{conversation_id}/summary [get]
func (h *ConversationHandler) Summary(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	conversationID, ok := h.conversationID(c)
	if !ok {
		return
	}

	summary, err := h.service.GetConversationSummary(c.Request.Context(), conversationID, principal.ID)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}

	c.JSON(http.StatusOK, responses.NewConversationSummaryResponse(summary))
}

// Delete handles DELETE /v1/conversations/:conversation_id
// @Summary Delete a conversation
// @Description Deletes a conversation and all of its messages.
// @Tags Conversations
// @Security BearerAuth
// @Param conversation_id path int true "Conversation ID"
// @Success 204
// @Failure 401 {object} platformerrors.HTTPErrorResponse
// @Failure 404 {object} platformerrors.HTTPErrorResponse
// @Router /v1/conversations/{conversation_id} [delete]
func (h *ConversationHandler) Delete(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	conversationID, ok := h.conversationID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteConversation(c.Request.Context(), conversationID, principal.ID); err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ConversationHandler) principal(c *gin.Context) (domain.Principal, bool) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		platformerrors.WriteUnauthorized(c, "missing bearer token")
		return domain.Principal{}, false
	}
	return principal, true
}

func (h *ConversationHandler) conversationID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("conversation_id"), 10, 64)
	if err != nil || id == 0 {
		platformerrors.WriteValidationError(c, "conversation_id must be a positive integer")
		return 0, false
	}
	return uint(id), true
}

func (h *ConversationHandler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		platformerrors.WriteValidationError(c, "invalid request body")
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		platformerrors.WriteValidationError(c, requests.Describe(err))
		return false
	}
	return true
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= logPreviewLength {
		return content
	}
	return string(runes[:logPreviewLength]) + "..."
}
