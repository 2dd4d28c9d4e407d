package messaging

import "time"

// Conversation status values reported by the summary endpoint.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Principal is an authenticated caller resolved by the identity service.
type Principal struct {
	ID       uint
	Email    string
	Username string
}

// ListingRef is the listing data a conversation snapshots at creation time.
type ListingRef struct {
	ID          uint
	SellerID    uint
	SellerEmail string
	Title       string
}

// Conversation is a two-party thread between a buyer and the seller of one listing.
type Conversation struct {
	ID           uint
	ListingID    uint
	ListingTitle string
	BuyerID      uint
	BuyerEmail   string
	SellerID     uint
	SellerEmail  string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasParticipant reports whether userID is the buyer or the seller.
func (c *Conversation) HasParticipant(userID uint) bool {
	return c.BuyerID == userID || c.SellerID == userID
}

// Message is a single entry in a conversation. Messages are append-only.
type Message struct {
	ID             uint
	ConversationID uint
	SenderID       uint
	SenderEmail    string
	Content        string
	IsRead         bool
	CreatedAt      time.Time
}

// ConversationView decorates a conversation with per-request derived fields.
type ConversationView struct {
	Conversation
	LastMessage *Message
	UnreadCount int64
}

// ConversationSummary reports message volume and state of a conversation.
type ConversationSummary struct {
	ConversationID uint
	MessageCount   int64
	Status         string
}
