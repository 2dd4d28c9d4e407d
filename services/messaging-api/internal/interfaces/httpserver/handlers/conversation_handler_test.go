package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusmarket/marketplace/pkg/telemetry"
	domain "github.com/campusmarket/marketplace/services/messaging-api/internal/domain/messaging"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/infrastructure/auth"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/interfaces/httpserver/handlers"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/interfaces/httpserver/responses"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/utils/platformerrors"
)

// MockService is a mock implementation of messaging.Service for testing.
type MockService struct {
	CreateConversationFunc      func(ctx context.Context, listingID uint, requester domain.Principal) (*domain.Conversation, error)
	ListConversationsFunc       func(ctx context.Context, userID uint) ([]*domain.ConversationView, error)
	GetConversationMessagesFunc func(ctx context.Context, conversationID, userID uint) ([]*domain.Message, error)
	CreateMessageFunc           func(ctx context.Context, conversationID uint, content string, sender domain.Principal) (*domain.Message, error)
	GetConversationSummaryFunc  func(ctx context.Context, conversationID, userID uint) (*domain.ConversationSummary, error)
	DeleteConversationFunc      func(ctx context.Context, conversationID, userID uint) error
}

func (m *MockService) CreateConversation(ctx context.Context, listingID uint, requester domain.Principal) (*domain.Conversation, error) {
	if m.CreateConversationFunc != nil {
		return m.CreateConversationFunc(ctx, listingID, requester)
	}
	return nil, nil
}

func (m *MockService) ListConversations(ctx context.Context, userID uint) ([]*domain.ConversationView, error) {
	if m.ListConversationsFunc != nil {
		return m.ListConversationsFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockService) GetConversationMessages(ctx context.Context, conversationID, userID uint) ([]*domain.Message, error) {
	if m.GetConversationMessagesFunc != nil {
		return m.GetConversationMessagesFunc(ctx, conversationID, userID)
	}
	return nil, nil
}

func (m *MockService) CreateMessage(ctx context.Context, conversationID uint, content string, sender domain.Principal) (*domain.Message, error) {
	if m.CreateMessageFunc != nil {
		return m.CreateMessageFunc(ctx, conversationID, content, sender)
	}
	return nil, nil
}

func (m *MockService) GetConversationSummary(ctx context.Context, conversationID, userID uint) (*domain.ConversationSummary, error) {
	if m.GetConversationSummaryFunc != nil {
		return m.GetConversationSummaryFunc(ctx, conversationID, userID)
	}
	return nil, nil
}

func (m *MockService) DeleteConversation(ctx context.Context, conversationID, userID uint) error {
	if m.DeleteConversationFunc != nil {
		return m.DeleteConversationFunc(ctx, conversationID, userID)
	}
	return nil
}

var testPrincipal = domain.Principal{ID: 7, Email: "buyer@campus.edu", Username: "buyer"}

func setupTestRouter(service domain.Service, authenticated bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	handler := handlers.NewConversationHandler(service, telemetry.NewSanitizer(telemetry.PIILevelHashed, "test"), zerolog.Nop())
	group := router.Group("/v1", func(c *gin.Context) {
		if authenticated {
			auth.SetPrincipal(c, testPrincipal)
		}
		c.Next()
	})
	group.GET("/conversations", handler.List)
	group.POST("/conversations", handler.Create)
	group.GET("/conversations/:conversation_id/messages", handler.ListMessages)
	group.POST("/conversations/:conversation_id/messages", handler.CreateMessage)
	group.GET("/conversations/:conversation_id/summary", handler.Summary)
	group.DELETE("/conversations/:conversation_id", handler.Delete)
	return router
}

func doRequest(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewReader([]byte(b))
		default:
			data, _ := json.Marshal(b)
			reader = bytes.NewReader(data)
		}
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *platformerrors.HTTPErrorDetail {
	t.Helper()
	var resp platformerrors.HTTPErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

func notFound(ctx context.Context) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "conversation not found", nil, "")
}

func TestCreateConversation(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		mock := &MockService{
			CreateConversationFunc: func(ctx context.Context, listingID uint, requester domain.Principal) (*domain.Conversation, error) {
				assert.Equal(t, uint(42), listingID)
				assert.Equal(t, testPrincipal, requester)
				return &domain.Conversation{
					ID: 3, ListingID: 42, ListingTitle: "Calculus textbook",
					BuyerID: 7, BuyerEmail: "buyer@campus.edu", SellerID: 9, SellerEmail: "seller@campus.edu",
					IsActive: true, CreatedAt: now, UpdatedAt: now,
				}, nil
			},
		}
		w := doRequest(setupTestRouter(mock, true), http.MethodPost, "/v1/conversations", map[string]any{"listing_id": 42})

		require.Equal(t, http.StatusOK, w.Code)
		var resp responses.ConversationResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, uint(3), resp.ID)
		assert.Equal(t, "Calculus textbook", resp.ListingTitle)
		assert.Nil(t, resp.LastMessage)
		assert.Zero(t, resp.UnreadCount)
	})

	invalid := map[string]any{
		"missing listing":  map[string]any{},
		"zero listing":     map[string]any{"listing_id": 0},
		"negative listing": map[string]any{"listing_id": -1},
		"malformed json":   "{",
	}
	for name, body := range invalid {
		t.Run(name, func(t *testing.T) {
			mock := &MockService{
				CreateConversationFunc: func(ctx context.Context, listingID uint, requester domain.Principal) (*domain.Conversation, error) {
					t.Fatal("service must not be called")
					return nil, nil
				},
			}
			w := doRequest(setupTestRouter(mock, true), http.MethodPost, "/v1/conversations", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "validation_error", decodeError(t, w).Type)
		})
	}

	t.Run("self conversation", func(t *testing.T) {
		mock := &MockService{
			CreateConversationFunc: func(ctx context.Context, listingID uint, requester domain.Principal) (*domain.Conversation, error) {
				return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
					"cannot start conversation with yourself", nil, "")
			},
		}
		w := doRequest(setupTestRouter(mock, true), http.MethodPost, "/v1/conversations", map[string]any{"listing_id": 44})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "cannot start conversation with yourself", decodeError(t, w).Message)
	})

	t.Run("listing not found", func(t *testing.T) {
		mock := &MockService{
			CreateConversationFunc: func(ctx context.Context, listingID uint, requester domain.Principal) (*domain.Conversation, error) {
				return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeNotFound, "listing not found", nil, "")
			},
		}
		w := doRequest(setupTestRouter(mock, true), http.MethodPost, "/v1/conversations", map[string]any{"listing_id": 999})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		w := doRequest(setupTestRouter(&MockService{}, false), http.MethodPost, "/v1/conversations", map[string]any{"listing_id": 42})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestListConversations(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	mock := &MockService{
		ListConversationsFunc: func(ctx context.Context, userID uint) ([]*domain.ConversationView, error) {
			assert.Equal(t, testPrincipal.ID, userID)
			return []*domain.ConversationView{
				{
					Conversation: domain.Conversation{ID: 3, ListingID: 42, BuyerID: 7, SellerID: 9, IsActive: true, CreatedAt: now, UpdatedAt: now},
					LastMessage:  &domain.Message{ID: 11, ConversationID: 3, SenderID: 9, Content: "hi", CreatedAt: now},
					UnreadCount:  1,
				},
				{
					Conversation: domain.Conversation{ID: 2, ListingID: 43, BuyerID: 7, SellerID: 9, IsActive: true, CreatedAt: now, UpdatedAt: now},
				},
			}, nil
		},
	}

	w := doRequest(setupTestRouter(mock, true), http.MethodGet, "/v1/conversations", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp []responses.ConversationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	require.NotNil(t, resp[0].LastMessage)
	assert.Equal(t, "hi", resp[0].LastMessage.Content)
	assert.Equal(t, int64(1), resp[0].UnreadCount)
	assert.Nil(t, resp[1].LastMessage)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Contains(t, raw[1], "last_message")
	assert.Nil(t, raw[1]["last_message"])
}

func TestListConversations_EmptyIsArray(t *testing.T) {
	w := doRequest(setupTestRouter(&MockService{}, true), http.MethodGet, "/v1/conversations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestListMessages(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mock := &MockService{
			GetConversationMessagesFunc: func(ctx context.Context, conversationID, userID uint) ([]*domain.Message, error) {
				assert.Equal(t, uint(3), conversationID)
				return []*domain.Message{
					{ID: 1, ConversationID: 3, SenderID: 9, Content: "first", IsRead: true},
					{ID: 2, ConversationID: 3, SenderID: 7, Content: "second"},
				}, nil
			},
		}
		w := doRequest(setupTestRouter(mock, true), http.MethodGet, "/v1/conversations/3/messages", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp []responses.MessageResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp, 2)
		assert.True(t, resp[0].IsRead)
		assert.Equal(t, "second", resp[1].Content)
	})

	t.Run("not a participant", func(t *testing.T) {
		mock := &MockService{
			GetConversationMessagesFunc: func(ctx context.Context, conversationID, userID uint) ([]*domain.Message, error) {
				return nil, notFound(ctx)
			},
		}
		w := doRequest(setupTestRouter(mock, true), http.MethodGet, "/v1/conversations/3/messages", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "conversation not found", decodeError(t, w).Message)
	})

	for _, id := range []string{"abc", "0", "-4"} {
		t.Run("bad id "+id, func(t *testing.T) {
			w := doRequest(setupTestRouter(&MockService{}, true), http.MethodGet, "/v1/conversations/"+id+"/messages", nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestCreateMessage(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mock := &MockService{
			CreateMessageFunc: func(ctx context.Context, conversationID uint, content string, sender domain.Principal) (*domain.Message, error) {
				assert.Equal(t, uint(3), conversationID)
				assert.Equal(t, "Is this still available?", content)
				return &domain.Message{ID: 11, ConversationID: 3, SenderID: sender.ID, SenderEmail: sender.Email, Content: content}, nil
			},
		}
		w := doRequest(setupTestRouter(mock, true), http.MethodPost, "/v1/conversations/3/messages",
			map[string]any{"content": "Is this still available?"})
		require.Equal(t, http.StatusOK, w.Code)

		var resp responses.MessageResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, uint(11), resp.ID)
		assert.Equal(t, "buyer@campus.edu", resp.SenderEmail)
		assert.False(t, resp.IsRead)
	})

	for name, body := range map[string]any{
		"missing content": map[string]any{},
		"blank content":   map[string]any{"content": "   "},
	} {
		t.Run(name, func(t *testing.T) {
			w := doRequest(setupTestRouter(&MockService{}, true), http.MethodPost, "/v1/conversations/3/messages", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "message content must not be empty", decodeError(t, w).Message)
		})
	}

	t.Run("not a participant", func(t *testing.T) {
		mock := &MockService{
			CreateMessageFunc: func(ctx context.Context, conversationID uint, content string, sender domain.Principal) (*domain.Message, error) {
				return nil, notFound(ctx)
			},
		}
		w := doRequest(setupTestRouter(mock, true), http.MethodPost, "/v1/conversations/3/messages", map[string]any{"content": "hi"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSummary(t *testing.T) {
	mock := &MockService{
		GetConversationSummaryFunc: func(ctx context.Context, conversationID, userID uint) (*domain.ConversationSummary, error) {
			return &domain.ConversationSummary{ConversationID: conversationID, MessageCount: 0, Status: domain.StatusActive}, nil
		},
	}
	w := doRequest(setupTestRouter(mock, true), http.MethodGet, "/v1/conversations/3/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"conversation_id":3,"message_count":0,"status":"active"}`, w.Body.String())
}

func TestDelete(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		called := false
		mock := &MockService{
			DeleteConversationFunc: func(ctx context.Context, conversationID, userID uint) error {
				called = true
				assert.Equal(t, uint(3), conversationID)
				assert.Equal(t, testPrincipal.ID, userID)
				return nil
			},
		}
		w := doRequest(setupTestRouter(mock, true), http.MethodDelete, "/v1/conversations/3", nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
		assert.True(t, called)
	})

	t.Run("not found", func(t *testing.T) {
		mock := &MockService{
			DeleteConversationFunc: func(ctx context.Context, conversationID, userID uint) error {
				return notFound(ctx)
			},
		}
		w := doRequest(setupTestRouter(mock, true), http.MethodDelete, "/v1/conversations/3", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestInternalErrorsDoNotLeak(t *testing.T) {
	mock := &MockService{
		ListConversationsFunc: func(ctx context.Context, userID uint) ([]*domain.ConversationView, error) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
				"failed to list conversations", assert.AnError, "")
		},
	}
	w := doRequest(setupTestRouter(mock, true), http.MethodGet, "/v1/conversations", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}
