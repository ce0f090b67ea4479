// Package docs registra a especificação OpenAPI servida em /swagger/.
// Regenerar com: swag init -g cmd/main.go -o docs
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
        "/ping": {
            "get": {
                "produces": ["text/plain"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {"200": {"description": "pong"}}
            }
        },
        "/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Registra um novo usuário",
                "parameters": [{"in": "body", "name": "registration", "required": true, "schema": {"$ref": "#/definitions/domain.UserRegistration"}}],
                "responses": {
                    "201": {"description": "Usuário criado com sucesso", "schema": {"$ref": "#/definitions/domain.User"}},
                    "400": {"description": "Payload inválido", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}},
                    "409": {"description": "Email já cadastrado", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            }
        },
        "/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Autentica um usuário e retorna um JWT",
                "parameters": [{"in": "body", "name": "login", "required": true, "schema": {"$ref": "#/definitions/domain.UserLogin"}}],
                "responses": {
                    "200": {"description": "Token JWT emitido", "schema": {"$ref": "#/definitions/domain.LoginResult"}},
                    "401": {"description": "Credenciais inválidas", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "category": {"type": "string"},
                "message": {"type": "string"},
                "kind": {"type": "string"},
                "slot_index": {"type": "integer"}
            }
        },
        "domain.User": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "email": {"type": "string"},
                "name": {"type": "string"},
                "role": {"type": "string", "enum": ["admin", "user"]},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.UserRegistration": {
            "type": "object",
            "required": ["email", "password", "name", "role", "code"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string", "minLength": 6},
                "name": {"type": "string", "minLength": 2},
                "role": {"type": "string", "enum": ["admin", "user"]},
                "code": {"type": "string"}
            }
        },
        "domain.UserLogin": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "role": {"type": "string", "enum": ["admin", "user"]}
            }
        },
        "domain.LoginResult": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "expires_at": {"type": "string"},
                "user": {"$ref": "#/definitions/domain.User"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Digite \"Bearer\" seguido de um espaço e o token JWT.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo guarda as informações exportadas da especificação.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/v1",
	Schemes:          []string{"http"},
	Title:            "SiteTrack API",
	Description:      "Cadastro de produtos e tarefas de obra com agenda, fotos e aprovação por administradores.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
