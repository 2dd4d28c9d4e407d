package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"

	domain "github.com/campusmarket/marketplace/services/messaging-api/internal/domain/messaging"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/infrastructure/database/entities"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/infrastructure/database/transaction"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/utils/platformerrors"
)

const uniqueViolation = "23505"

// PostgresConversationRepository persists conversations via PostgreSQL using GORM.
type PostgresConversationRepository struct {
	db *transaction.Database
}

// NewPostgresConversationRepository creates a repository backed by the provided DB.
func NewPostgresConversationRepository(db *transaction.Database) *PostgresConversationRepository {
	return &PostgresConversationRepository{db: db}
}

func (r *PostgresConversationRepository) Create(ctx context.Context, conversation *domain.Conversation) error {
	record := entities.NewSchemaConversation(conversation)
	if err := r.db.GetTx(ctx).Create(record).Error; err != nil {
		if isUniqueViolation(err) {
			return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeConflict,
				"conversation already exists for listing and buyer", err, "92166b59-0cd1-4fec-855a-7c3dd2b8de6a")
		}
		return databaseError(ctx, "failed to create conversation", err, "c31774da-b9b1-4700-81aa-ca177a575f50")
	}
	conversation.ID = record.ID
	return nil
}

// Conversation lookups always read the primary: a replica lagging behind a fresh
// insert would turn dedup and read-after-create into NOT_FOUND.

func (r *PostgresConversationRepository) FindByID(ctx context.Context, id uint) (*domain.Conversation, error) {
	var record entities.Conversation
	if err := r.primary(ctx).Where("id = ?", id).Take(&record).Error; err != nil {
		return nil, lookupError(ctx, "conversation not found", err, "7fb28dab-f3c3-4390-abda-c0fd87235de7")
	}
	return record.EtoD(), nil
}

func (r *PostgresConversationRepository) FindByIDForUpdate(ctx context.Context, id uint) (*domain.Conversation, error) {
	var record entities.Conversation
	err := r.primary(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("id = ?", id).
		Take(&record).Error
	if err != nil {
		return nil, lookupError(ctx, "conversation not found", err, "0b6f3a51-5e2c-4d57-9a3e-8f1c7d2e4b90")
	}
	return record.EtoD(), nil
}

func (r *PostgresConversationRepository) FindByListingAndBuyer(ctx context.Context, listingID, buyerID uint) (*domain.Conversation, error) {
	var record entities.Conversation
	err := r.primary(ctx).
		Where("listing_id = ? AND buyer_id = ?", listingID, buyerID).
		Take(&record).Error
	if err != nil {
		return nil, lookupError(ctx, "conversation not found", err, "3c71d96a-77f6-44df-a3f8-431aaf897610")
	}
	return record.EtoD(), nil
}

func (r *PostgresConversationRepository) FindByParticipant(ctx context.Context, userID uint) ([]*domain.Conversation, error) {
	var records []entities.Conversation
	err := r.primary(ctx).
		Where("buyer_id = ? OR seller_id = ?", userID, userID).
		Order("updated_at DESC").
		Order("id DESC").
		Find(&records).Error
	if err != nil {
		return nil, databaseError(ctx, "failed to list conversations", err, "794d5125-ebfc-4336-8796-c23cfcc26353")
	}

	result := make([]*domain.Conversation, 0, len(records))
	for i := range records {
		result = append(result, records[i].EtoD())
	}
	return result, nil
}

func (r *PostgresConversationRepository) Touch(ctx context.Context, id uint, updatedAt time.Time) error {
	res := r.db.GetTx(ctx).
		Model(&entities.Conversation{}).
		Where("id = ?", id).
		Update("updated_at", gorm.Expr("GREATEST(updated_at, ?)", updatedAt))
	if res.Error != nil {
		return databaseError(ctx, "failed to update conversation", res.Error, "5c29191e-750b-496b-90ca-9fd140f5200b")
	}
	if res.RowsAffected == 0 {
		return notFound(ctx, "conversation not found", "5d331bce-433d-4292-bdff-5a06b432a770")
	}
	return nil
}

func (r *PostgresConversationRepository) primary(ctx context.Context) *gorm.DB {
	return r.db.GetTx(ctx).Clauses(dbresolver.Write)
}

// Delete relies on the messages foreign key cascading the delete.
func (r *PostgresConversationRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.GetTx(ctx).Where("id = ?", id).Delete(&entities.Conversation{})
	if res.Error != nil {
		return databaseError(ctx, "failed to delete conversation", res.Error, "741f85dc-539f-4cda-9496-fd9a764e1320")
	}
	if res.RowsAffected == 0 {
		return notFound(ctx, "conversation not found", "9aef7565-0e86-428c-a09a-739706953033")
	}
	return nil
}

// PostgresMessageRepository persists messages via PostgreSQL using GORM.
type PostgresMessageRepository struct {
	db *transaction.Database
}

// NewPostgresMessageRepository creates a repository backed by the provided DB.
func NewPostgresMessageRepository(db *transaction.Database) *PostgresMessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Create(ctx context.Context, message *domain.Message) error {
	record := entities.NewSchemaMessage(message)
	if err := r.db.GetTx(ctx).Create(record).Error; err != nil {
		return databaseError(ctx, "failed to create message", err, "b1f86c38-909e-49c2-ae5b-91b2de702a81")
	}
	message.ID = record.ID
	return nil
}

func (r *PostgresMessageRepository) ListByConversation(ctx context.Context, conversationID uint) ([]*domain.Message, error) {
	var records []entities.Message
	err := r.db.GetTx(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, databaseError(ctx, "failed to list messages", err, "150af5cd-e011-4945-9d66-150e8d280def")
	}

	result := make([]*domain.Message, 0, len(records))
	for i := range records {
		result = append(result, records[i].EtoD())
	}
	return result, nil
}

func (r *PostgresMessageRepository) FindLatest(ctx context.Context, conversationID uint) (*domain.Message, error) {
	var records []entities.Message
	err := r.db.GetTx(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(1).
		Find(&records).Error
	if err != nil {
		return nil, databaseError(ctx, "failed to load latest message", err, "896db3ca-2239-4cf3-ad32-2287dc5d1332")
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0].EtoD(), nil
}

func (r *PostgresMessageRepository) CountUnread(ctx context.Context, conversationID, readerID uint) (int64, error) {
	var count int64
	err := r.db.GetTx(ctx).
		Model(&entities.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, readerID, false).
		Count(&count).Error
	if err != nil {
		return 0, databaseError(ctx, "failed to count unread messages", err, "833ba49f-b817-41f3-aa77-481c443d163e")
	}
	return count, nil
}

func (r *PostgresMessageRepository) MarkRead(ctx context.Context, conversationID, readerID uint) (int64, error) {
	res := r.db.GetTx(ctx).
		Model(&entities.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, readerID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, databaseError(ctx, "failed to mark messages read", res.Error, "7d358f31-1d72-4a44-b765-e9a52fb63264")
	}
	return res.RowsAffected, nil
}

func (r *PostgresMessageRepository) Count(ctx context.Context, conversationID uint) (int64, error) {
	var count int64
	err := r.db.GetTx(ctx).
		Model(&entities.Message{}).
		Where("conversation_id = ?", conversationID).
		Count(&count).Error
	if err != nil {
		return 0, databaseError(ctx, "failed to count messages", err, "0e34df27-8088-444d-bc21-cf1413f28110")
	}
	return count, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func lookupError(ctx context.Context, message string, err error, uuid string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, message, err, uuid)
	}
	return databaseError(ctx, "failed to load conversation", err, uuid)
}

func notFound(ctx context.Context, message, uuid string) error {
	return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, message, nil, uuid)
}

func databaseError(ctx context.Context, message string, err error, uuid string) error {
	return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, message, err, uuid)
}
