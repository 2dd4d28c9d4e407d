package messaging_test

import (
	"context"
	"errors"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	domain "github.com/campusmarket/marketplace/services/messaging-api/internal/domain/messaging"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/infrastructure/database"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/infrastructure/database/transaction"
	repo "github.com/campusmarket/marketplace/services/messaging-api/internal/infrastructure/repository/messaging"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/utils/platformerrors"
)

type stores struct {
	conversations domain.ConversationRepository
	messages      domain.MessageRepository
	tx            domain.Transactor
}

func inMemoryStores(t *testing.T) stores {
	store := repo.NewInMemoryStore()
	return stores{conversations: store.Conversations(), messages: store.Messages(), tx: store}
}

// postgresStores runs against TEST_DATABASE_URL, a disposable database.
func postgresStores(t *testing.T) stores {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.Connect(database.Config{DSN: dsn})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(context.Background(), db, zerolog.Nop()))
	require.NoError(t, db.Exec("TRUNCATE messages, conversations RESTART IDENTITY CASCADE").Error)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	txDB := transaction.NewDatabase(db)
	return stores{
		conversations: repo.NewPostgresConversationRepository(txDB),
		messages:      repo.NewPostgresMessageRepository(txDB),
		tx:            txDB,
	}
}

func TestInMemoryRepositories(t *testing.T) {
	runRepositoryContract(t, inMemoryStores)
}

func TestPostgresRepositories(t *testing.T) {
	runRepositoryContract(t, postgresStores)
}

func runRepositoryContract(t *testing.T, open func(t *testing.T) stores) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	newConversation := func(listingID uint) *domain.Conversation {
		return &domain.Conversation{
			ListingID:    listingID,
			ListingTitle: "Calculus textbook",
			BuyerID:      7,
			BuyerEmail:   "buyer@campus.edu",
			SellerID:     9,
			SellerEmail:  "seller@campus.edu",
			IsActive:     true,
			CreatedAt:    base,
			UpdatedAt:    base,
		}
	}

	t.Run("create and find", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		conversation := newConversation(42)
		require.NoError(t, s.conversations.Create(ctx, conversation))
		require.NotZero(t, conversation.ID)

		byID, err := s.conversations.FindByID(ctx, conversation.ID)
		require.NoError(t, err)
		assert.Equal(t, conversation.ListingTitle, byID.ListingTitle)
		assert.True(t, byID.CreatedAt.Equal(base))

		byPair, err := s.conversations.FindByListingAndBuyer(ctx, 42, 7)
		require.NoError(t, err)
		assert.Equal(t, conversation.ID, byPair.ID)

		_, err = s.conversations.FindByListingAndBuyer(ctx, 42, 8)
		assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
		_, err = s.conversations.FindByID(ctx, conversation.ID+100)
		assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
	})

	t.Run("duplicate pair conflicts", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		require.NoError(t, s.conversations.Create(ctx, newConversation(42)))
		err := s.conversations.Create(ctx, newConversation(42))
		assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict))
	})

	t.Run("participant listing is ordered by activity", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		first := newConversation(42)
		second := newConversation(43)
		require.NoError(t, s.conversations.Create(ctx, first))
		require.NoError(t, s.conversations.Create(ctx, second))
		require.NoError(t, s.conversations.Touch(ctx, first.ID, base.Add(time.Minute)))

		for _, userID := range []uint{7, 9} {
			result, err := s.conversations.FindByParticipant(ctx, userID)
			require.NoError(t, err)
			require.Len(t, result, 2)
			assert.Equal(t, first.ID, result[0].ID)
			assert.Equal(t, second.ID, result[1].ID)
		}

		none, err := s.conversations.FindByParticipant(ctx, 11)
		require.NoError(t, err)
		assert.Empty(t, none)

		err = s.conversations.Touch(ctx, first.ID+100, base)
		assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
	})

	t.Run("touch never moves updated_at backwards", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		conversation := newConversation(42)
		require.NoError(t, s.conversations.Create(ctx, conversation))
		require.NoError(t, s.conversations.Touch(ctx, conversation.ID, base.Add(2*time.Second)))
		require.NoError(t, s.conversations.Touch(ctx, conversation.ID, base.Add(time.Second)))

		stored, err := s.conversations.FindByID(ctx, conversation.ID)
		require.NoError(t, err)
		assert.True(t, stored.UpdatedAt.Equal(base.Add(2*time.Second)), "updated_at = %s", stored.UpdatedAt)
	})

	t.Run("find for update inside a transaction", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		conversation := newConversation(42)
		require.NoError(t, s.conversations.Create(ctx, conversation))

		err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			locked, err := s.conversations.FindByIDForUpdate(ctx, conversation.ID)
			if err != nil {
				return err
			}
			assert.Equal(t, conversation.ID, locked.ID)
			return s.conversations.Touch(ctx, locked.ID, base.Add(time.Minute))
		})
		require.NoError(t, err)

		err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			_, err := s.conversations.FindByIDForUpdate(ctx, conversation.ID+100)
			return err
		})
		assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
	})

	t.Run("messages order, unread and read marking", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		conversation := newConversation(42)
		require.NoError(t, s.conversations.Create(ctx, conversation))

		latest, err := s.messages.FindLatest(ctx, conversation.ID)
		require.NoError(t, err)
		assert.Nil(t, latest)

		for i, sender := range []uint{7, 7, 9} {
			message := &domain.Message{
				ConversationID: conversation.ID,
				SenderID:       sender,
				SenderEmail:    "user@campus.edu",
				Content:        []string{"first", "second", "third"}[i],
				CreatedAt:      base.Add(time.Duration(i) * time.Second),
			}
			require.NoError(t, s.messages.Create(ctx, message))
			require.NotZero(t, message.ID)
		}

		messages, err := s.messages.ListByConversation(ctx, conversation.ID)
		require.NoError(t, err)
		require.Len(t, messages, 3)
		assert.Equal(t, "first", messages[0].Content)
		assert.Equal(t, "third", messages[2].Content)

		latest, err = s.messages.FindLatest(ctx, conversation.ID)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, "third", latest.Content)

		unread, err := s.messages.CountUnread(ctx, conversation.ID, 9)
		require.NoError(t, err)
		assert.Equal(t, int64(2), unread)

		marked, err := s.messages.MarkRead(ctx, conversation.ID, 9)
		require.NoError(t, err)
		assert.Equal(t, int64(2), marked)

		marked, err = s.messages.MarkRead(ctx, conversation.ID, 9)
		require.NoError(t, err)
		assert.Zero(t, marked)

		unread, err = s.messages.CountUnread(ctx, conversation.ID, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(1), unread)

		count, err := s.messages.Count(ctx, conversation.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("delete cascades to messages", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		conversation := newConversation(42)
		require.NoError(t, s.conversations.Create(ctx, conversation))
		require.NoError(t, s.messages.Create(ctx, &domain.Message{
			ConversationID: conversation.ID, SenderID: 7, Content: "hello", CreatedAt: base,
		}))

		require.NoError(t, s.conversations.Delete(ctx, conversation.ID))

		count, err := s.messages.Count(ctx, conversation.ID)
		require.NoError(t, err)
		assert.Zero(t, count)

		err = s.conversations.Delete(ctx, conversation.ID)
		assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))

		require.NoError(t, s.conversations.Create(ctx, newConversation(42)))
	})

	t.Run("failed transaction rolls back", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		conversation := newConversation(42)
		require.NoError(t, s.conversations.Create(ctx, conversation))

		boom := errors.New("boom")
		err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			if err := s.messages.Create(ctx, &domain.Message{
				ConversationID: conversation.ID, SenderID: 7, Content: "lost", CreatedAt: base,
			}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		count, err := s.messages.Count(ctx, conversation.ID)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("cancelled context rolls back", func(t *testing.T) {
		s := open(t)
		conversation := newConversation(42)
		require.NoError(t, s.conversations.Create(context.Background(), conversation))

		ctx, cancel := context.WithCancel(context.Background())
		err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
			if err := s.messages.Create(txCtx, &domain.Message{
				ConversationID: conversation.ID, SenderID: 7, Content: "lost", CreatedAt: base,
			}); err != nil {
				return err
			}
			cancel()
			return nil
		})
		assert.Error(t, err)

		count, err := s.messages.Count(context.Background(), conversation.ID)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestInMemoryConversationRejectsSelfConversation(t *testing.T) {
	store := repo.NewInMemoryStore()

	err := store.Conversations().Create(context.Background(), &domain.Conversation{ListingID: 1, BuyerID: 7, SellerID: 7})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

// sellerListings resolves every listing to seller 9.
type sellerListings struct{}

func (sellerListings) Resolve(ctx context.Context, listingID uint) (domain.ListingRef, error) {
	return domain.ListingRef{ID: listingID, SellerID: 9, SellerEmail: "seller@campus.edu", Title: "Desk lamp"}, nil
}

func TestPostgresConcurrentSendsKeepUpdatedAtCurrent(t *testing.T) {
	s := postgresStores(t)
	ctx := context.Background()
	service := domain.NewService(s.conversations, s.messages, s.tx, sellerListings{}, zerolog.Nop())

	buyer := domain.Principal{ID: 7, Email: "buyer@campus.edu"}
	seller := domain.Principal{ID: 9, Email: "seller@campus.edu"}
	conversation, err := service.CreateConversation(ctx, 42, buyer)
	require.NoError(t, err)

	const sends = 16
	var wg sync.WaitGroup
	errs := make(chan error, sends)
	for i := 0; i < sends; i++ {
		sender := buyer
		if i%2 == 1 {
			sender = seller
		}
		wg.Add(1)
		go func(i int, sender domain.Principal) {
			defer wg.Done()
			_, err := service.CreateMessage(ctx, conversation.ID, "message "+strconv.Itoa(i), sender)
			errs <- err
		}(i, sender)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	latest, err := s.messages.FindLatest(ctx, conversation.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	stored, err := s.conversations.FindByID(ctx, conversation.ID)
	require.NoError(t, err)
	assert.True(t, stored.UpdatedAt.Equal(latest.CreatedAt),
		"updated_at %s, latest message %q created_at %s", stored.UpdatedAt, latest.Content, latest.CreatedAt)

	messages, err := s.messages.ListByConversation(ctx, conversation.ID)
	require.NoError(t, err)
	require.Len(t, messages, sends)
	for i := 1; i < len(messages); i++ {
		assert.Greater(t, messages[i].ID, messages[i-1].ID, "created_at order follows commit order")
	}
}

// TestPostgresConversationLookupsReadPrimary points the read replica at an empty
// database, so any conversation lookup served by the replica misses.
func TestPostgresConversationLookupsReadPrimary(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	replicaDSN := os.Getenv("TEST_REPLICA_DATABASE_URL")
	if dsn == "" || replicaDSN == "" {
		t.Skip("TEST_DATABASE_URL or TEST_REPLICA_DATABASE_URL not set")
	}
	ctx := context.Background()

	replica, err := database.Connect(database.Config{DSN: replicaDSN})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(ctx, replica, zerolog.Nop()))
	require.NoError(t, replica.Exec("TRUNCATE messages, conversations RESTART IDENTITY CASCADE").Error)

	db, err := database.Connect(database.Config{DSN: dsn, ReadDSN: replicaDSN})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(ctx, db, zerolog.Nop()))
	require.NoError(t, db.Exec("TRUNCATE messages, conversations RESTART IDENTITY CASCADE").Error)
	t.Cleanup(func() {
		for _, g := range []*gorm.DB{db, replica} {
			if sqlDB, err := g.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
	})

	txDB := transaction.NewDatabase(db)
	conversations := repo.NewPostgresConversationRepository(txDB)
	messages := repo.NewPostgresMessageRepository(txDB)
	service := domain.NewService(conversations, messages, txDB, sellerListings{}, zerolog.Nop())

	buyer := domain.Principal{ID: 7, Email: "buyer@campus.edu"}
	first, err := service.CreateConversation(ctx, 42, buyer)
	require.NoError(t, err)
	again, err := service.CreateConversation(ctx, 42, buyer)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	byID, err := conversations.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, byID.ID)

	listed, err := conversations.FindByParticipant(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, first.ID, listed[0].ID)
}
