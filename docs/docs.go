// Package docs registers the API document served at /v1/swagger.json.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/access/request": {
            "post": {
                "tags": ["access"],
                "summary": "Send a one-time access code to a registered email",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/AccessRequest"}}],
                "responses": {"202": {"description": "code sent"}, "403": {"description": "access_denied"}, "429": {"description": "rate_limited"}}
            }
        },
        "/access/verify": {
            "post": {
                "tags": ["access"],
                "summary": "Verify an access code and open a session",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/VerifyRequest"}}],
                "responses": {"200": {"description": "session grant"}, "400": {"description": "code_not_found"}, "401": {"description": "code_mismatch"}, "410": {"description": "expired"}}
            }
        },
        "/access/login": {
            "post": {
                "tags": ["access"],
                "summary": "Log in with a provisioned password and open a session",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/PasswordLoginRequest"}}],
                "responses": {"200": {"description": "session grant"}, "403": {"description": "access_denied"}}
            }
        },
        "/session/tutorial": {
            "post": {"tags": ["session"], "security": [{"BearerAuth": []}], "summary": "Enter the tutorial", "responses": {"200": {"description": "tutorial questions"}}}
        },
        "/session/tutorial/complete": {
            "post": {"tags": ["session"], "security": [{"BearerAuth": []}], "summary": "Finish the tutorial", "responses": {"200": {"description": "session state"}}}
        },
        "/session/test": {
            "post": {"tags": ["session"], "security": [{"BearerAuth": []}], "summary": "Start or resume the real test", "responses": {"200": {"description": "delivery"}, "403": {"description": "attempt_limit_exceeded"}}}
        },
        "/attempts/{id}": {
            "get": {"tags": ["attempts"], "security": [{"BearerAuth": []}], "summary": "Reload the delivery of an attempt", "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}], "responses": {"200": {"description": "delivery"}}}
        },
        "/attempts/{id}/answers/{questionId}": {
            "put": {"tags": ["attempts"], "security": [{"BearerAuth": []}], "summary": "Save one answer", "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}, {"in": "path", "name": "questionId", "required": true, "type": "string"}], "responses": {"200": {"description": "saved"}}}
        },
        "/attempts/{id}/violations": {
            "post": {"tags": ["attempts"], "security": [{"BearerAuth": []}], "summary": "Report an anti-cheat violation", "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}], "responses": {"200": {"description": "violation result"}}}
        },
        "/attempts/{id}/submit": {
            "post": {"tags": ["attempts"], "security": [{"BearerAuth": []}], "summary": "Submit the attempt", "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}], "responses": {"200": {"description": "submission summary"}, "409": {"description": "already_submitted"}, "410": {"description": "expired"}}}
        },
        "/submissions/{id}": {
            "get": {"tags": ["attempts"], "security": [{"BearerAuth": []}], "summary": "Result of the caller's submission", "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}], "responses": {"200": {"description": "submission summary"}}}
        },
        "/admin/login": {
            "post": {"tags": ["admin"], "summary": "Operator login", "responses": {"200": {"description": "token"}, "401": {"description": "access_denied"}}}
        },
        "/admin/assessments": {
            "get": {"tags": ["admin"], "security": [{"BearerAuth": []}], "summary": "List assessments", "responses": {"200": {"description": "assessments"}}}
        },
        "/admin/assessments/{slug}/status": {
            "put": {"tags": ["admin"], "security": [{"BearerAuth": []}], "summary": "Change status and window", "parameters": [{"in": "path", "name": "slug", "required": true, "type": "string"}], "responses": {"200": {"description": "assessment"}}}
        },
        "/admin/assessments/{slug}/sets/{role}": {
            "post": {"tags": ["admin"], "security": [{"BearerAuth": []}], "summary": "Replace a question set", "parameters": [{"in": "path", "name": "slug", "required": true, "type": "string"}, {"in": "path", "name": "role", "required": true, "type": "string", "enum": ["tutorial", "main"]}, {"in": "query", "name": "shared", "type": "boolean"}], "responses": {"201": {"description": "set"}}}
        },
        "/admin/credentials": {
            "post": {"tags": ["admin"], "security": [{"BearerAuth": []}], "summary": "Provision password credentials", "responses": {"200": {"description": "results"}}}
        },
        "/admin/submissions/{id}": {
            "get": {"tags": ["admin"], "security": [{"BearerAuth": []}], "summary": "Full submission with answer detail", "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}], "responses": {"200": {"description": "submission"}}}
        },
        "/admin/attempts/{id}/events": {
            "get": {"tags": ["admin"], "security": [{"BearerAuth": []}], "summary": "Audit trail of an attempt", "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}], "responses": {"200": {"description": "events"}}}
        },
        "/admin/reports/{submissionId}": {
            "get": {"tags": ["admin"], "security": [{"BearerAuth": []}], "summary": "Result report of a submission", "parameters": [{"in": "path", "name": "submissionId", "required": true, "type": "string"}], "responses": {"200": {"description": "report"}}}
        }
    },
    "definitions": {
        "AccessRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "name": {"type": "string"},
                "externalId": {"type": "string"},
                "consent": {"type": "boolean"},
                "accessCode": {"type": "string"},
                "level": {"type": "string"}
            }
        },
        "VerifyRequest": {
            "type": "object",
            "properties": {"email": {"type": "string"}, "code": {"type": "string"}, "level": {"type": "string"}}
        },
        "PasswordLoginRequest": {
            "type": "object",
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/v1",
	Schemes:          []string{},
	Title:            "Proctored Assessment API",
	Description:      "Candidate access, tutorial and timed multiple-choice tests with anti-cheat monitoring.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
