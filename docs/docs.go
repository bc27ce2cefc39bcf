// Package docs registers the OpenAPI description served at /docs.
// Maintained by hand; keep it in sync with the handler annotations when
// routes change.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "termsOfService": "http://swagger.io/terms/",
        "contact": {
            "name": "API Support",
            "url": "http://www.swagger.io/support",
            "email": "support@swagger.io"
        },
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Register a new user",
                "parameters": [
                    {
                        "description": "Register input",
                        "name": "input",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/httpserver.registerRequest"}
                    }
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/httpserver.tokenResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpserver.errorBody"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Login",
                "parameters": [
                    {
                        "description": "Login input",
                        "name": "input",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/httpserver.loginRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httpserver.tokenResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httpserver.errorBody"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Logout",
                "responses": {
                    "204": {"description": "No Content"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httpserver.errorBody"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Get Current User",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.User"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httpserver.errorBody"}}
                }
            }
        },
        "/channels": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["channels"],
                "summary": "List channels with unread state",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.ChannelOverview"}}
                    },
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httpserver.errorBody"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["channels"],
                "summary": "Create a channel",
                "parameters": [
                    {
                        "description": "Channel input",
                        "name": "input",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/httpserver.channelRequest"}
                    }
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Channel"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpserver.errorBody"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httpserver.errorBody"}}
                }
            }
        },
        "/channels/search": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["channels"],
                "summary": "Search channels",
                "parameters": [
                    {"type": "string", "description": "Search term", "name": "q", "in": "query"}
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Channel"}}
                    }
                }
            }
        },
        "/channels/{channelID}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["channels"],
                "summary": "Get a channel",
                "parameters": [
                    {"type": "string", "description": "Channel ID", "name": "channelID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Channel"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpserver.errorBody"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["channels"],
                "summary": "Update a channel",
                "parameters": [
                    {"type": "string", "description": "Channel ID", "name": "channelID", "in": "path", "required": true},
                    {
                        "description": "Channel input",
                        "name": "input",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/httpserver.channelRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Channel"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httpserver.errorBody"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpserver.errorBody"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["channels"],
                "summary": "Delete a channel",
                "parameters": [
                    {"type": "string", "description": "Channel ID", "name": "channelID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "boolean"}}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httpserver.errorBody"}}
                }
            }
        },
        "/channels/{channelID}/visit": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["channels"],
                "summary": "Record a channel visit",
                "parameters": [
                    {"type": "string", "description": "Channel ID", "name": "channelID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "boolean"}}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpserver.errorBody"}}
                }
            }
        },
        "/channels/{channelID}/messages": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["messages"],
                "summary": "List channel messages",
                "parameters": [
                    {"type": "string", "description": "Channel ID", "name": "channelID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.MessageWithAuthor"}}
                    },
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpserver.errorBody"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["messages"],
                "summary": "Post a message",
                "parameters": [
                    {"type": "string", "description": "Channel ID", "name": "channelID", "in": "path", "required": true},
                    {
                        "description": "Message input",
                        "name": "input",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/httpserver.createMessageRequest"}
                    }
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.MessageWithAuthor"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpserver.errorBody"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpserver.errorBody"}}
                }
            }
        },
        "/users": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "List users",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.ProfileWithAccount"}}
                    },
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httpserver.errorBody"}}
                }
            }
        },
        "/users/{userID}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Update user metadata",
                "parameters": [
                    {"type": "string", "description": "User ID", "name": "userID", "in": "path", "required": true},
                    {
                        "description": "Metadata patch",
                        "name": "input",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/httpserver.updateUserRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httpserver.errorBody"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpserver.errorBody"}}
                }
            }
        },
        "/admin/set-role": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Set a user's role",
                "parameters": [
                    {
                        "description": "Role input",
                        "name": "input",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/httpserver.setRoleRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "boolean"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpserver.errorBody"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httpserver.errorBody"}}
                }
            }
        }
    },
    "definitions": {
        "domain.Channel": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "domain.ChannelOverview": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "created_at": {"type": "string"},
                "unread_count": {"type": "integer"},
                "last_visited_at": {"type": "string"},
                "recent_messages": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/domain.MessagePreview"}
                }
            }
        },
        "domain.MessagePreview": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "content": {"type": "string"},
                "created_at": {"type": "string"},
                "author": {"type": "string"}
            }
        },
        "domain.MessageWithAuthor": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "channel_id": {"type": "string"},
                "user_id": {"type": "string"},
                "content": {"type": "string"},
                "created_at": {"type": "string"},
                "user": {"$ref": "#/definitions/domain.Profile"}
            }
        },
        "domain.Profile": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "avatar_url": {"type": "string"},
                "status": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.ProfileWithAccount": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "avatar_url": {"type": "string"},
                "status": {"type": "string"},
                "updated_at": {"type": "string"},
                "email": {"type": "string"},
                "raw_user_meta_data": {"type": "object"},
                "last_sign_in_at": {"type": "string"}
            }
        },
        "domain.User": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "email": {"type": "string"},
                "role": {"type": "string"},
                "user_metadata": {"type": "object"},
                "created_at": {"type": "string"},
                "last_sign_in_at": {"type": "string"}
            }
        },
        "httpserver.channelRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"}
            }
        },
        "httpserver.createMessageRequest": {
            "type": "object",
            "properties": {
                "content": {"type": "string"}
            }
        },
        "httpserver.errorBody": {
            "type": "object",
            "properties": {
                "statusCode": {"type": "integer"},
                "message": {"type": "string"}
            }
        },
        "httpserver.loginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "httpserver.registerRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "httpserver.setRoleRequest": {
            "type": "object",
            "properties": {
                "userId": {"type": "string"},
                "role": {"type": "string"}
            }
        },
        "httpserver.tokenResponse": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "token_type": {"type": "string"},
                "user": {}
            }
        },
        "httpserver.updateUserRequest": {
            "type": "object",
            "properties": {
                "metadata": {"type": "object"}
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
	Host:             "localhost:8000",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Community Chat API",
	Description:      "Backend API for the community chat application.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
