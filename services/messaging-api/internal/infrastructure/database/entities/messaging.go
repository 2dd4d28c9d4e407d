package entities

import (
	"time"

	domain "github.com/campusmarket/marketplace/services/messaging-api/internal/domain/messaging"
)

// Conversation models the persisted representation of a conversation.
type Conversation struct {
	ID           uint      `gorm:"primaryKey"`
	ListingID    uint      `gorm:"not null;uniqueIndex:uq_conversations_listing_buyer"`
	ListingTitle string    `gorm:"size:255;not null"`
	BuyerID      uint      `gorm:"not null;uniqueIndex:uq_conversations_listing_buyer;index"`
	BuyerEmail   string    `gorm:"size:255;not null"`
	SellerID     uint      `gorm:"not null;index"`
	SellerEmail  string    `gorm:"size:255;not null"`
	IsActive     bool      `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null;autoUpdateTime:false"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// Message models the persisted representation of a message.
type Message struct {
	ID             uint      `gorm:"primaryKey"`
	ConversationID uint      `gorm:"not null;index"`
	SenderID       uint      `gorm:"not null"`
	SenderEmail    string    `gorm:"size:255;not null"`
	Content        string    `gorm:"type:text;not null"`
	IsRead         bool      `gorm:"not null;default:false"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (Message) TableName() string {
	return "messages"
}

// NewSchemaConversation maps a domain conversation to its row.
func NewSchemaConversation(c *domain.Conversation) *Conversation {
	return &Conversation{
		ID:           c.ID,
		ListingID:    c.ListingID,
		ListingTitle: c.ListingTitle,
		BuyerID:      c.BuyerID,
		BuyerEmail:   c.BuyerEmail,
		SellerID:     c.SellerID,
		SellerEmail:  c.SellerEmail,
		IsActive:     c.IsActive,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// EtoD converts the row to the domain type.
func (c *Conversation) EtoD() *domain.Conversation {
	return &domain.Conversation{
		ID:           c.ID,
		ListingID:    c.ListingID,
		ListingTitle: c.ListingTitle,
		BuyerID:      c.BuyerID,
		BuyerEmail:   c.BuyerEmail,
		SellerID:     c.SellerID,
		SellerEmail:  c.SellerEmail,
		IsActive:     c.IsActive,
		CreatedAt:    c.CreatedAt.UTC(),
		UpdatedAt:    c.UpdatedAt.UTC(),
	}
}

// NewSchemaMessage maps a domain message to its row.
func NewSchemaMessage(m *domain.Message) *Message {
	return &Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderEmail:    m.SenderEmail,
		Content:        m.Content,
		IsRead:         m.IsRead,
		CreatedAt:      m.CreatedAt,
	}
}

// EtoD converts the row to the domain type.
func (m *Message) EtoD() *domain.Message {
	return &domain.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderEmail:    m.SenderEmail,
		Content:        m.Content,
		IsRead:         m.IsRead,
		CreatedAt:      m.CreatedAt.UTC(),
	}
}
