package messaging

import (
	"context"
	"time"
)

// ConversationRepository persists conversations.
//
// Create must return a CONFLICT platform error when (listing_id, buyer_id) already exists.
// Lookups return a NOT_FOUND platform error when no row matches.
type ConversationRepository interface {
	Create(ctx context.Context, conversation *Conversation) error
	FindByID(ctx context.Context, id uint) (*Conversation, error)
	// FindByIDForUpdate is FindByID holding a row lock until the transaction in ctx ends.
	FindByIDForUpdate(ctx context.Context, id uint) (*Conversation, error)
	FindByListingAndBuyer(ctx context.Context, listingID, buyerID uint) (*Conversation, error)
	// FindByParticipant lists conversations ordered by updated_at desc, id desc.
	FindByParticipant(ctx context.Context, userID uint) ([]*Conversation, error)
	// Touch advances updated_at to updatedAt. It never moves updated_at backwards.
	Touch(ctx context.Context, id uint, updatedAt time.Time) error
	// Delete removes the conversation together with its messages.
	Delete(ctx context.Context, id uint) error
}

// MessageRepository persists messages.
type MessageRepository interface {
	Create(ctx context.Context, message *Message) error
	// ListByConversation returns messages ordered by created_at asc, id asc.
	ListByConversation(ctx context.Context, conversationID uint) ([]*Message, error)
	// FindLatest returns nil without error when the conversation has no messages.
	FindLatest(ctx context.Context, conversationID uint) (*Message, error)
	// CountUnread counts unread messages not sent by readerID.
	CountUnread(ctx context.Context, conversationID, readerID uint) (int64, error)
	// MarkRead flags every unread message not sent by readerID and returns the affected count.
	MarkRead(ctx context.Context, conversationID, readerID uint) (int64, error)
	Count(ctx context.Context, conversationID uint) (int64, error)
}

// Transactor runs fn in a single store transaction. Repositories called with the
// context passed to fn take part in that transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
