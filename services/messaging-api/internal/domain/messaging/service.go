package messaging

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/campusmarket/marketplace/services/messaging-api/internal/utils/platformerrors"
)

const defaultFanout = 8

var tracer = otel.Tracer("messaging-api/domain/messaging")

// Service describes the messaging use cases.
type Service interface {
	CreateConversation(ctx context.Context, listingID uint, requester Principal) (*Conversation, error)
	ListConversations(ctx context.Context, userID uint) ([]*ConversationView, error)
	GetConversationMessages(ctx context.Context, conversationID, userID uint) ([]*Message, error)
	CreateMessage(ctx context.Context, conversationID uint, content string, sender Principal) (*Message, error)
	GetConversationSummary(ctx context.Context, conversationID, userID uint) (*ConversationSummary, error)
	DeleteConversation(ctx context.Context, conversationID, userID uint) error
}

// Recorder receives business events for metrics.
type Recorder interface {
	ConversationCreated(reused bool)
	MessageSent()
	MessagesRead(count int64)
	ConversationDeleted()
}

type noopRecorder struct{}

func (noopRecorder) ConversationCreated(bool) {}
func (noopRecorder) MessageSent()             {}
func (noopRecorder) MessagesRead(int64)       {}
func (noopRecorder) ConversationDeleted()     {}

// Option customises the service.
type Option func(*service)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithFanout bounds the number of concurrent derived-field lookups when listing conversations.
func WithFanout(limit int) Option {
	return func(s *service) {
		if limit > 0 {
			s.fanout = limit
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(recorder Recorder) Option {
	return func(s *service) {
		if recorder != nil {
			s.recorder = recorder
		}
	}
}

type service struct {
	conversations ConversationRepository
	messages      MessageRepository
	tx            Transactor
	listings      ListingResolver
	log           zerolog.Logger
	now           func() time.Time
	fanout        int
	recorder      Recorder
}

// NewService wires the messaging service with its stores and the listings collaborator.
func NewService(
	conversations ConversationRepository,
	messages MessageRepository,
	tx Transactor,
	listings ListingResolver,
	log zerolog.Logger,
	opts ...Option,
) Service {
	s := &service{
		conversations: conversations,
		messages:      messages,
		tx:            tx,
		listings:      listings,
		log:           log.With().Str("component", "messaging-service").Logger(),
		now:           time.Now,
		fanout:        defaultFanout,
		recorder:      noopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// timestamp returns the current time at the precision the store keeps.
func (s *service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *service) CreateConversation(ctx context.Context, listingID uint, requester Principal) (_ *Conversation, err error) {
	ctx, span := tracer.Start(ctx, "messaging.CreateConversation", trace.WithAttributes(
		attribute.Int64("listing.id", int64(listingID)),
		attribute.Int64("user.id", int64(requester.ID)),
	))
	defer func() { endSpan(span, err) }()

	listing, err := s.listings.Resolve(ctx, listingID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "resolve listing")
	}
	if listing.ID == 0 {
		listing.ID = listingID
	}

	existing, err := s.conversations.FindByListingAndBuyer(ctx, listing.ID, requester.ID)
	if err == nil {
		s.recorder.ConversationCreated(true)
		return existing, nil
	}
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "look up existing conversation")
	}

	if listing.SellerID == requester.ID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"cannot start conversation with yourself", nil, "4c21c17d-dfbf-44f4-b6ef-b1abb34932b5")
	}

	now := s.timestamp()
	conversation := &Conversation{
		ListingID:    listing.ID,
		ListingTitle: listing.Title,
		BuyerID:      requester.ID,
		BuyerEmail:   requester.Email,
		SellerID:     listing.SellerID,
		SellerEmail:  listing.SellerEmail,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.conversations.Create(ctx, conversation); err != nil {
		if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "create conversation")
		}
		// Lost the race against a concurrent request for the same pair.
		winner, findErr := s.conversations.FindByListingAndBuyer(ctx, listing.ID, requester.ID)
		if findErr != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, findErr, "re-read conversation after conflict")
		}
		s.log.Debug().Uint("conversation_id", winner.ID).Msg("recovered concurrent conversation create")
		s.recorder.ConversationCreated(true)
		return winner, nil
	}

	s.log.Info().
		Uint("conversation_id", conversation.ID).
		Uint("listing_id", conversation.ListingID).
		Msg("conversation created")
	s.recorder.ConversationCreated(false)
	return conversation, nil
}

func (s *service) ListConversations(ctx context.Context, userID uint) (_ []*ConversationView, err error) {
	ctx, span := tracer.Start(ctx, "messaging.ListConversations", trace.WithAttributes(
		attribute.Int64("user.id", int64(userID)),
	))
	defer func() { endSpan(span, err) }()

	conversations, err := s.conversations.FindByParticipant(ctx, userID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "list conversations")
	}

	views := make([]*ConversationView, len(conversations))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanout)
	for i, conversation := range conversations {
		g.Go(func() error {
			last, err := s.messages.FindLatest(gctx, conversation.ID)
			if err != nil {
				return err
			}
			unread, err := s.messages.CountUnread(gctx, conversation.ID, userID)
			if err != nil {
				return err
			}
			views[i] = &ConversationView{
				Conversation: *conversation,
				LastMessage:  last,
				UnreadCount:  unread,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "load conversation details")
	}
	span.SetAttributes(attribute.Int("conversations.count", len(views)))
	return views, nil
}

func (s *service) GetConversationMessages(ctx context.Context, conversationID, userID uint) (_ []*Message, err error) {
	ctx, span := tracer.Start(ctx, "messaging.GetConversationMessages", trace.WithAttributes(
		attribute.Int64("conversation.id", int64(conversationID)),
		attribute.Int64("user.id", int64(userID)),
	))
	defer func() { endSpan(span, err) }()

	var (
		messages []*Message
		marked   int64
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.participantConversation(ctx, conversationID, userID); err != nil {
			return err
		}
		var err error
		messages, err = s.messages.ListByConversation(ctx, conversationID)
		if err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "list messages")
		}
		marked, err = s.messages.MarkRead(ctx, conversationID, userID)
		if err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "mark messages read")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Reflect the read marking in the returned slice.
	for _, message := range messages {
		if message.SenderID != userID {
			message.IsRead = true
		}
	}
	if marked > 0 {
		s.recorder.MessagesRead(marked)
	}
	return messages, nil
}

func (s *service) CreateMessage(ctx context.Context, conversationID uint, content string, sender Principal) (_ *Message, err error) {
	ctx, span := tracer.Start(ctx, "messaging.CreateMessage", trace.WithAttributes(
		attribute.Int64("conversation.id", int64(conversationID)),
		attribute.Int64("user.id", int64(sender.ID)),
	))
	defer func() { endSpan(span, err) }()

	var message *Message
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		conversation, err := s.lockedParticipantConversation(ctx, conversationID, sender.ID)
		if err != nil {
			return err
		}

		if strings.TrimSpace(content) == "" {
			return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
				"message content must not be empty", nil, "809ecbef-f12a-4eab-8ce6-9eb56e566e78")
		}
		if !conversation.IsActive {
			return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
				"conversation is not active", nil, "68b3f48e-31e0-4285-9847-f24dc86eb9ba")
		}

		message = &Message{
			ConversationID: conversation.ID,
			SenderID:       sender.ID,
			SenderEmail:    sender.Email,
			Content:        content,
			IsRead:         false,
			CreatedAt:      s.timestamp(),
		}
		if err := s.messages.Create(ctx, message); err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "create message")
		}
		if err := s.conversations.Touch(ctx, conversation.ID, message.CreatedAt); err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "update conversation timestamp")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recorder.MessageSent()
	return message, nil
}

func (s *service) GetConversationSummary(ctx context.Context, conversationID, userID uint) (_ *ConversationSummary, err error) {
	ctx, span := tracer.Start(ctx, "messaging.GetConversationSummary", trace.WithAttributes(
		attribute.Int64("conversation.id", int64(conversationID)),
	))
	defer func() { endSpan(span, err) }()

	conversation, err := s.participantConversation(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	count, err := s.messages.Count(ctx, conversationID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "count messages")
	}

	status := StatusActive
	if !conversation.IsActive {
		status = StatusInactive
	}
	return &ConversationSummary{
		ConversationID: conversation.ID,
		MessageCount:   count,
		Status:         status,
	}, nil
}

func (s *service) DeleteConversation(ctx context.Context, conversationID, userID uint) (err error) {
	ctx, span := tracer.Start(ctx, "messaging.DeleteConversation", trace.WithAttributes(
		attribute.Int64("conversation.id", int64(conversationID)),
	))
	defer func() { endSpan(span, err) }()

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.participantConversation(ctx, conversationID, userID); err != nil {
			return err
		}
		if err := s.conversations.Delete(ctx, conversationID); err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "delete conversation")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info().Uint("conversation_id", conversationID).Msg("conversation deleted")
	s.recorder.ConversationDeleted()
	return nil
}

// participantConversation loads a conversation and hides it from non-participants.
func (s *service) participantConversation(ctx context.Context, conversationID, userID uint) (*Conversation, error) {
	return participantOf(ctx, s.conversations.FindByID, conversationID, userID)
}

// lockedParticipantConversation is participantConversation with the conversation row
// locked until the surrounding transaction ends. Appends take the clock only after the
// lock, so concurrent sends touch updated_at in commit order.
func (s *service) lockedParticipantConversation(ctx context.Context, conversationID, userID uint) (*Conversation, error) {
	return participantOf(ctx, s.conversations.FindByIDForUpdate, conversationID, userID)
}

func participantOf(
	ctx context.Context,
	find func(ctx context.Context, id uint) (*Conversation, error),
	conversationID, userID uint,
) (*Conversation, error) {
	conversation, err := find(ctx, conversationID)
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			return nil, conversationNotFound(ctx, err)
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "get conversation")
	}
	if !conversation.HasParticipant(userID) {
		return nil, conversationNotFound(ctx, nil)
	}
	return conversation, nil
}

func conversationNotFound(ctx context.Context, cause error) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
		"conversation not found", cause, "5d44adde-2092-43c8-a94e-0b89245ac7c9")
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
