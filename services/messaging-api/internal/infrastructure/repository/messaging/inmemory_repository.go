package messaging

import (
	"context"
	"sort"
	"sync"
	"time"

	domain "github.com/campusmarket/marketplace/services/messaging-api/internal/domain/messaging"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/utils/platformerrors"
)

type inMemoryTxKey struct{}

type pairKey struct {
	listingID uint
	buyerID   uint
}

// InMemoryStore is a thread-safe store useful for demos/tests. It enforces the same
// constraints as the SQL schema: one conversation per (listing, buyer) and cascading deletes.
type InMemoryStore struct {
	mu             sync.RWMutex
	conversations  map[uint]domain.Conversation
	pairs          map[pairKey]uint
	messages       map[uint]domain.Message
	nextConvID     uint
	nextMessageID  uint
	conversationsR *InMemoryConversationRepository
	messagesR      *InMemoryMessageRepository
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	s := &InMemoryStore{
		conversations: make(map[uint]domain.Conversation),
		pairs:         make(map[pairKey]uint),
		messages:      make(map[uint]domain.Message),
	}
	s.conversationsR = &InMemoryConversationRepository{store: s}
	s.messagesR = &InMemoryMessageRepository{store: s}
	return s
}

// Conversations returns the conversation repository view of the store.
func (s *InMemoryStore) Conversations() *InMemoryConversationRepository {
	return s.conversationsR
}

// Messages returns the message repository view of the store.
func (s *InMemoryStore) Messages() *InMemoryMessageRepository {
	return s.messagesR
}

// WithinTransaction holds the store lock for the duration of fn and restores the
// previous state when fn fails or ctx is cancelled.
func (s *InMemoryStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.snapshot()
	err := fn(context.WithValue(ctx, inMemoryTxKey{}, s))
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

func (s *InMemoryStore) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(inMemoryTxKey{}).(*InMemoryStore)
	return ok && owner == s
}

func (s *InMemoryStore) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *InMemoryStore) rlock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

type storeSnapshot struct {
	conversations map[uint]domain.Conversation
	pairs         map[pairKey]uint
	messages      map[uint]domain.Message
	nextConvID    uint
	nextMessageID uint
}

func (s *InMemoryStore) snapshot() storeSnapshot {
	snap := storeSnapshot{
		conversations: make(map[uint]domain.Conversation, len(s.conversations)),
		pairs:         make(map[pairKey]uint, len(s.pairs)),
		messages:      make(map[uint]domain.Message, len(s.messages)),
		nextConvID:    s.nextConvID,
		nextMessageID: s.nextMessageID,
	}
	for k, v := range s.conversations {
		snap.conversations[k] = v
	}
	for k, v := range s.pairs {
		snap.pairs[k] = v
	}
	for k, v := range s.messages {
		snap.messages[k] = v
	}
	return snap
}

func (s *InMemoryStore) restore(snap storeSnapshot) {
	s.conversations = snap.conversations
	s.pairs = snap.pairs
	s.messages = snap.messages
	s.nextConvID = snap.nextConvID
	s.nextMessageID = snap.nextMessageID
}

// InMemoryConversationRepository implements domain.ConversationRepository over an InMemoryStore.
type InMemoryConversationRepository struct {
	store *InMemoryStore
}

func (r *InMemoryConversationRepository) Create(ctx context.Context, conversation *domain.Conversation) error {
	s := r.store
	defer s.lock(ctx)()

	key := pairKey{listingID: conversation.ListingID, buyerID: conversation.BuyerID}
	if _, exists := s.pairs[key]; exists {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeConflict,
			"conversation already exists for listing and buyer", nil, "6d4686ee-5aae-4cde-80e4-1b933e28ce1e")
	}
	if conversation.BuyerID == conversation.SellerID {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeValidation,
			"buyer and seller must differ", nil, "b615afb2-e81d-493e-b549-e838b9b8f0a3")
	}

	s.nextConvID++
	conversation.ID = s.nextConvID
	s.conversations[conversation.ID] = *conversation
	s.pairs[key] = conversation.ID
	return nil
}

func (r *InMemoryConversationRepository) FindByID(ctx context.Context, id uint) (*domain.Conversation, error) {
	s := r.store
	defer s.rlock(ctx)()

	conversation, ok := s.conversations[id]
	if !ok {
		return nil, notFound(ctx, "conversation not found", "8cad79d5-ae13-4f41-aa9e-259a7da1ec51")
	}
	return &conversation, nil
}

// FindByIDForUpdate needs no row lock: transactions already hold the store lock.
func (r *InMemoryConversationRepository) FindByIDForUpdate(ctx context.Context, id uint) (*domain.Conversation, error) {
	return r.FindByID(ctx, id)
}

func (r *InMemoryConversationRepository) FindByListingAndBuyer(ctx context.Context, listingID, buyerID uint) (*domain.Conversation, error) {
	s := r.store
	defer s.rlock(ctx)()

	id, ok := s.pairs[pairKey{listingID: listingID, buyerID: buyerID}]
	if !ok {
		return nil, notFound(ctx, "conversation not found", "e9e7145f-2afc-42d1-a43b-8c48727c0777")
	}
	conversation := s.conversations[id]
	return &conversation, nil
}

func (r *InMemoryConversationRepository) FindByParticipant(ctx context.Context, userID uint) ([]*domain.Conversation, error) {
	s := r.store
	defer s.rlock(ctx)()

	result := make([]*domain.Conversation, 0)
	for _, conversation := range s.conversations {
		if conversation.HasParticipant(userID) {
			c := conversation
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].UpdatedAt.After(result[j].UpdatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (r *InMemoryConversationRepository) Touch(ctx context.Context, id uint, updatedAt time.Time) error {
	s := r.store
	defer s.lock(ctx)()

	conversation, ok := s.conversations[id]
	if !ok {
		return notFound(ctx, "conversation not found", "270f9ca3-8236-4363-ad33-6db08d41e43f")
	}
	if updatedAt.After(conversation.UpdatedAt) {
		conversation.UpdatedAt = updatedAt
		s.conversations[id] = conversation
	}
	return nil
}

func (r *InMemoryConversationRepository) Delete(ctx context.Context, id uint) error {
	s := r.store
	defer s.lock(ctx)()

	conversation, ok := s.conversations[id]
	if !ok {
		return notFound(ctx, "conversation not found", "8c424a2b-7c18-4d7a-aa0d-9017870e4266")
	}
	delete(s.conversations, id)
	delete(s.pairs, pairKey{listingID: conversation.ListingID, buyerID: conversation.BuyerID})
	for messageID, message := range s.messages {
		if message.ConversationID == id {
			delete(s.messages, messageID)
		}
	}
	return nil
}

// InMemoryMessageRepository implements domain.MessageRepository over an InMemoryStore.
type InMemoryMessageRepository struct {
	store *InMemoryStore
}

func (r *InMemoryMessageRepository) Create(ctx context.Context, message *domain.Message) error {
	s := r.store
	defer s.lock(ctx)()

	if _, ok := s.conversations[message.ConversationID]; !ok {
		return notFound(ctx, "conversation not found", "1fcb9a95-4494-45e9-92e7-ebdb8789b8be")
	}
	s.nextMessageID++
	message.ID = s.nextMessageID
	s.messages[message.ID] = *message
	return nil
}

func (r *InMemoryMessageRepository) ListByConversation(ctx context.Context, conversationID uint) ([]*domain.Message, error) {
	s := r.store
	defer s.rlock(ctx)()

	return s.sortedMessages(conversationID), nil
}

func (r *InMemoryMessageRepository) FindLatest(ctx context.Context, conversationID uint) (*domain.Message, error) {
	s := r.store
	defer s.rlock(ctx)()

	messages := s.sortedMessages(conversationID)
	if len(messages) == 0 {
		return nil, nil
	}
	return messages[len(messages)-1], nil
}

func (r *InMemoryMessageRepository) CountUnread(ctx context.Context, conversationID, readerID uint) (int64, error) {
	s := r.store
	defer s.rlock(ctx)()

	var count int64
	for _, message := range s.messages {
		if message.ConversationID == conversationID && message.SenderID != readerID && !message.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *InMemoryMessageRepository) MarkRead(ctx context.Context, conversationID, readerID uint) (int64, error) {
	s := r.store
	defer s.lock(ctx)()

	var affected int64
	for id, message := range s.messages {
		if message.ConversationID == conversationID && message.SenderID != readerID && !message.IsRead {
			message.IsRead = true
			s.messages[id] = message
			affected++
		}
	}
	return affected, nil
}

func (r *InMemoryMessageRepository) Count(ctx context.Context, conversationID uint) (int64, error) {
	s := r.store
	defer s.rlock(ctx)()

	var count int64
	for _, message := range s.messages {
		if message.ConversationID == conversationID {
			count++
		}
	}
	return count, nil
}

// sortedMessages returns copies ordered by created_at, then id. Callers hold the lock.
func (s *InMemoryStore) sortedMessages(conversationID uint) []*domain.Message {
	result := make([]*domain.Message, 0)
	for _, message := range s.messages {
		if message.ConversationID == conversationID {
			m := message
			result = append(result, &m)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}
