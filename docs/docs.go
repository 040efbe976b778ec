// Package docs provides the generated swagger specification.
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
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["System"],
                "summary": "Health check",
                "responses": {
                    "200": {
                        "description": "Health status",
                        "schema": {"type": "object", "additionalProperties": true}
                    }
                }
            }
        },
        "/readyz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["System"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Not ready"}
                }
            }
        },
        "/notifications": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["Notifications"],
                "summary": "List notifications",
                "parameters": [
                    {"type": "string", "name": "status", "in": "query", "description": "Filter by status"},
                    {"type": "integer", "name": "limit", "in": "query", "description": "Maximum rows returned"}
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "array", "items": {"$ref": "#/definitions/api.StatusResponse"}}
                    }
                }
            },
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Notifications"],
                "summary": "Enqueue push notification",
                "description": "Validate and enqueue a notification for asynchronous delivery",
                "parameters": [
                    {
                        "description": "Notification request",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/api.IngestRequest"}
                    }
                ],
                "responses": {
                    "202": {
                        "description": "Notification accepted",
                        "schema": {"$ref": "#/definitions/api.IngestResponse"}
                    },
                    "400": {"description": "Validation failure"},
                    "401": {"description": "Unauthorized"},
                    "409": {
                        "description": "Duplicate idempotency key",
                        "schema": {"$ref": "#/definitions/api.IngestResponse"}
                    },
                    "429": {"description": "Too many requests"}
                }
            }
        },
        "/notifications/{id}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["Notifications"],
                "summary": "Get notification status",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/api.StatusResponse"}
                    },
                    "404": {"description": "Not found"}
                }
            }
        },
        "/notifications/{id}/requeue": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["Notifications"],
                "summary": "Requeue a dead-lettered notification",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "202": {"description": "Requeued"},
                    "409": {"description": "Notification is not dead-lettered"}
                }
            }
        }
    },
    "definitions": {
        "api.IngestRequest": {
            "type": "object",
            "required": ["targetPlatform", "deviceToken", "title"],
            "properties": {
                "idempotencyKey": {"type": "string"},
                "targetPlatform": {"type": "string", "example": "windows"},
                "deviceToken": {"type": "string"},
                "title": {"type": "string"},
                "body": {"type": "string"},
                "data": {"type": "object", "additionalProperties": {"type": "string"}},
                "tags": {"type": "array", "items": {"type": "string"}},
                "priority": {"type": "string", "enum": ["Low", "Normal", "High"]},
                "scheduledFor": {"type": "string", "format": "date-time"}
            }
        },
        "api.IngestResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "format": "uuid"},
                "status": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "api.StatusResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "format": "uuid"},
                "status": {"type": "string"},
                "targetPlatform": {"type": "string"},
                "retryCount": {"type": "integer"},
                "createdAt": {"type": "string", "format": "date-time"},
                "sentAt": {"type": "string", "format": "date-time"},
                "errorMessage": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {
            "type": "apiKey",
            "name": "X-API-Key",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Push Dispatcher API",
	Description:      "Durable multi-platform push notification dispatcher",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
