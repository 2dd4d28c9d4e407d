package responses

import (
	"time"

	domain "github.com/campusmarket/marketplace/services/messaging-api/internal/domain/messaging"
)

// MessageResponse is the wire form of a message.
type MessageResponse struct {
	ID             uint      `json:"id" example:"11"`
	ConversationID uint      `json:"conversation_id" example:"3"`
	SenderID       uint      `json:"sender_id" example:"7"`
	SenderEmail    string    `json:"sender_email" example:"buyer@campus.edu"`
	Content        string    `json:"content" example:"Is this still available?"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

// ConversationResponse is the wire form of a conversation with its derived fields.
type ConversationResponse struct {
	ID           uint             `json:"id" example:"3"`
	ListingID    uint             `json:"listing_id" example:"42"`
	BuyerID      uint             `json:"buyer_id" example:"7"`
	BuyerEmail   string           `json:"buyer_email" example:"buyer@campus.edu"`
	SellerID     uint             `json:"seller_id" example:"9"`
	SellerEmail  string           `json:"seller_email" example:"seller@campus.edu"`
	ListingTitle string           `json:"listing_title" example:"Calculus textbook"`
	IsActive     bool             `json:"is_active"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	LastMessage  *MessageResponse `json:"last_message"`
	UnreadCount  int64            `json:"unread_count"`
}

// ConversationSummaryResponse is returned by GET /v1/conversations/{conversation_id}/summary.
type ConversationSummaryResponse struct {
	ConversationID uint   `json:"conversation_id" example:"3"`
	MessageCount   int64  `json:"message_count" example:"12"`
	Status         string `json:"status" example:"active" enums:"active,inactive"`
}

// NewMessageResponse maps a domain message.
func NewMessageResponse(m *domain.Message) MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderEmail:    m.SenderEmail,
		Content:        m.Content,
		IsRead:         m.IsRead,
		CreatedAt:      m.CreatedAt,
	}
}

// NewMessageListResponse maps messages, returning an empty list instead of null.
func NewMessageListResponse(messages []*domain.Message) []MessageResponse {
	result := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		result = append(result, NewMessageResponse(m))
	}
	return result
}

// NewConversationResponse maps a conversation without derived fields, as returned on creation.
func NewConversationResponse(c *domain.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:           c.ID,
		ListingID:    c.ListingID,
		BuyerID:      c.BuyerID,
		BuyerEmail:   c.BuyerEmail,
		SellerID:     c.SellerID,
		SellerEmail:  c.SellerEmail,
		ListingTitle: c.ListingTitle,
		IsActive:     c.IsActive,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// NewConversationListResponse maps conversation views.
func NewConversationListResponse(views []*domain.ConversationView) []ConversationResponse {
	result := make([]ConversationResponse, 0, len(views))
	for _, view := range views {
		item := NewConversationResponse(&view.Conversation)
		if view.LastMessage != nil {
			last := NewMessageResponse(view.LastMessage)
			item.LastMessage = &last
		}
		item.UnreadCount = view.UnreadCount
		result = append(result, item)
	}
	return result
}

// NewConversationSummaryResponse maps a summary.
func NewConversationSummaryResponse(s *domain.ConversationSummary) ConversationSummaryResponse {
	return ConversationSummaryResponse{
		ConversationID: s.ConversationID,
		MessageCount:   s.MessageCount,
		Status:         s.Status,
	}
}
