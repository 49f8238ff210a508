// Package docs registers the swagger document served at /swagger/*any.
// Regenerate with: swag init -g cmd/api/main.go
package docs

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
        "/api/webhook/gitlab": {
            "post": {
                "description": "Authenticates, rate limits and classifies a GitLab webhook, then hands it off for asynchronous analysis.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Webhook"],
                "summary": "Receive a GitLab webhook",
                "parameters": [
                    {"type": "string", "description": "Shared secret or hex HMAC-SHA256 of the body", "name": "X-Gitlab-Token", "in": "header", "required": true},
                    {"type": "string", "description": "Event kind, e.g. Push Hook", "name": "X-Gitlab-Event", "in": "header", "required": true},
                    {"type": "string", "description": "Delivery id, reused as request id", "name": "X-Gitlab-Event-UUID", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.receiveResp"}},
                    "400": {"description": "Unsupported event type or invalid payload", "schema": {"$ref": "#/definitions/response.Resp"}},
                    "401": {"description": "Webhook validation failed", "schema": {"$ref": "#/definitions/response.Resp"}},
                    "429": {"description": "Rate limit exceeded", "schema": {"$ref": "#/definitions/response.Resp"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Resp"}},
                    "503": {"description": "Event processor unavailable", "schema": {"$ref": "#/definitions/response.Resp"}}
                }
            }
        },
        "/api/webhook/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Webhook"],
                "summary": "Webhook health",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}}
            }
        },
        "/api/webhook/event-kinds": {
            "get": {
                "description": "Lists the event kinds that have a registered parser.",
                "produces": ["application/json"],
                "tags": ["Webhook"],
                "summary": "Supported event kinds",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/http.eventKindsResp"}}}
            }
        },
        "/api/webhook/breakers": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Webhook"],
                "summary": "Circuit breaker states",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/http.breakersResp"}}}
            }
        },
        "/health": {
            "get": {
                "description": "Check if the API is healthy",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Health Check",
                "responses": {"200": {"description": "API is healthy", "schema": {"type": "object", "additionalProperties": true}}}
            }
        },
        "/live": {
            "get": {
                "description": "Check if the API is alive",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Liveness Check",
                "responses": {"200": {"description": "API is alive", "schema": {"type": "object", "additionalProperties": true}}}
            }
        },
        "/ready": {
            "get": {
                "description": "Check the counter store and the message broker",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Readiness Check",
                "responses": {
                    "200": {"description": "API is ready", "schema": {"type": "object", "additionalProperties": true}},
                    "503": {"description": "A dependency is unavailable", "schema": {"$ref": "#/definitions/response.Resp"}}
                }
            }
        }
    },
    "definitions": {
        "http.breakerItem": {
            "type": "object",
            "properties": {
                "consecutive_failures": {"type": "integer"},
                "last_failure_at": {"type": "string", "example": "2024-05-01 15:30:00"},
                "last_failure_at_millis": {"type": "integer"},
                "name": {"type": "string"},
                "state": {"type": "string"}
            }
        },
        "http.breakersResp": {
            "type": "object",
            "properties": {
                "breakers": {"type": "array", "items": {"$ref": "#/definitions/http.breakerItem"}}
            }
        },
        "http.eventKindsResp": {
            "type": "object",
            "properties": {
                "event_kinds": {"type": "array", "items": {"type": "string"}}
            }
        },
        "http.receiveResp": {
            "type": "object",
            "properties": {
                "event_kind": {"type": "string"},
                "primary_id": {"type": "string"},
                "project_id": {"type": "integer"},
                "request_id": {"type": "string"},
                "status": {"type": "string"}
            }
        },
        "response.Resp": {
            "type": "object",
            "properties": {
                "data": {},
                "error_code": {"type": "integer"},
                "errors": {},
                "message": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1",
	Host:             "localhost:8080",
	BasePath:         "",
	Schemes:          []string{"http"},
	Title:            "GitLab Metrics Webhook API",
	Description:      "Ingests GitLab webhooks and fans them out to asynchronous analysis queues.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
