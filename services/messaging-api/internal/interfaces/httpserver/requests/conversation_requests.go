package requests

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// CreateConversationRequest is the body of POST /v1/conversations.
type CreateConversationRequest struct {
	ListingID uint `json:"listing_id" validate:"required,gt=0" example:"42"`
}

// CreateMessageRequest is the body of POST /v1/conversations/{conversation_id}/messages.
type CreateMessageRequest struct {
	Content string `json:"content" validate:"required,notblank,max=4000" example:"Is this still available?"`
}

// NewValidator builds the struct validator used by the HTTP handlers.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// notblank rejects whitespace-only strings.
	if err := v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}); err != nil {
		panic(fmt.Sprintf("register notblank validation: %v", err))
	}
	return v
}

// Describe turns validation failures into a short client-facing message.
func Describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "invalid request body"
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		if field == "content" {
			return "message content must not be empty"
		}
		return field + " is required"
	case "gt":
		return field + " must be a positive integer"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	default:
		return field + " is invalid"
	}
}
