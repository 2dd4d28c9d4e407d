// Package swagger provides API documentation
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/v1/conversations": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Conversations"],
                "summary": "List conversations",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/responses.ConversationResponse"}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/platformerrors.HTTPErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/platformerrors.HTTPErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Conversations"],
                "summary": "Start a conversation",
                "parameters": [
                    {"description": "Listing to ask about", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/requests.CreateConversationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/responses.ConversationResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/platformerrors.HTTPErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/platformerrors.HTTPErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/platformerrors.HTTPErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/platformerrors.HTTPErrorResponse"}}
                }
            }
        },
        "/v1/conversations/{conversation_id}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["Conversations"],
                "summary": "Delete a conversation",
                "parameters": [
                    {"type": "integer", "description": "Conversation ID", "name": "conversation_id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/platformerrors.HTTPErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/platformerrors.HTTPErrorResponse"}}
                }
            }
        },
        "/v1/conversations/{conversation_id}/messages": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Messages"],
                "summary": "List messages",
                "parameters": [
                    {"type": "integer", "description": "Conversation ID", "name": "conversation_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/responses.MessageResponse"}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/platformerrors.HTTPErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/platformerrors.HTTPErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Messages"],
                "summary": "Send a message",
                "parameters": [
                    {"type": "integer", "description": "Conversation ID", "name": "conversation_id", "in": "path", "required": true},
                    {"description": "Message", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/requests.CreateMessageRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/responses.MessageResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/platformerrors.HTTPErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/platformerrors.HTTPErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/platformerrors.HTTPErrorResponse"}}
                }
            }
        },
        "/v1/conversations/{conversation_id}/summary": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Conversations"],
                "summary": "Conversation summary",
                "parameters": [
                    {"type": "integer", "description": "Conversation ID", "name": "conversation_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/responses.ConversationSummaryResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/platformerrors.HTTPErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/platformerrors.HTTPErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "platformerrors.HTTPErrorDetail": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "request_id": {"type": "string"},
                "type": {"type": "string"}
            }
        },
        "platformerrors.HTTPErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"$ref": "#/definitions/platformerrors.HTTPErrorDetail"}
            }
        },
        "requests.CreateConversationRequest": {
            "type": "object",
            "required": ["listing_id"],
            "properties": {
                "listing_id": {"type": "integer", "example": 42}
            }
        },
        "requests.CreateMessageRequest": {
            "type": "object",
            "required": ["content"],
            "properties": {
                "content": {"type": "string", "maxLength": 4000, "example": "Is this still available?"}
            }
        },
        "responses.ConversationResponse": {
            "type": "object",
            "properties": {
                "buyer_email": {"type": "string", "example": "buyer@campus.edu"},
                "buyer_id": {"type": "integer", "example": 7},
                "created_at": {"type": "string"},
                "id": {"type": "integer", "example": 3},
                "is_active": {"type": "boolean"},
                "last_message": {"$ref": "#/definitions/responses.MessageResponse"},
                "listing_id": {"type": "integer", "example": 42},
                "listing_title": {"type": "string", "example": "Calculus textbook"},
                "seller_email": {"type": "string", "example": "seller@campus.edu"},
                "seller_id": {"type": "integer", "example": 9},
                "unread_count": {"type": "integer"},
                "updated_at": {"type": "string"}
            }
        },
        "responses.ConversationSummaryResponse": {
            "type": "object",
            "properties": {
                "conversation_id": {"type": "integer", "example": 3},
                "message_count": {"type": "integer", "example": 12},
                "status": {"type": "string", "enum": ["active", "inactive"], "example": "active"}
            }
        },
        "responses.MessageResponse": {
            "type": "object",
            "properties": {
                "content": {"type": "string", "example": "Is this still available?"},
                "conversation_id": {"type": "integer", "example": 3},
                "created_at": {"type": "string"},
                "id": {"type": "integer", "example": 11},
                "is_read": {"type": "boolean"},
                "sender_email": {"type": "string", "example": "buyer@campus.edu"},
                "sender_id": {"type": "integer", "example": 7}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Messaging API",
	Description:      "Conversations and messages between buyers and sellers of the campus marketplace",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
