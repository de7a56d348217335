// Package docs holds the OpenAPI document of the sercha-rag API.
// Regenerate with: swag init -g cmd/sercha-rag/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "Sercha OSS",
            "url": "https://github.com/custodia-labs/sercha-rag/issues"
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
        "/vector-stores:build": {
            "post": {
                "security": [{"BearerAuth": []}, {"ServiceKey": []}],
                "description": "Preprocess, chunk and embed a document and return its serialized store without persisting it",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Vector Stores"],
                "summary": "Build a vector store",
                "parameters": [
                    {"description": "Document", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.BuildVectorStoreRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.SerializedStore"}},
                    "400": {"description": "Empty document or invalid request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "429": {"description": "Embedding provider rate limit", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "503": {"description": "Embedding service unavailable", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/documents/{id}/vector-store": {
            "get": {
                "security": [{"BearerAuth": []}, {"ServiceKey": []}],
                "description": "Returns metadata of the document's current vector store (no records)",
                "produces": ["application/json"],
                "tags": ["Documents"],
                "summary": "Get a document's vector store",
                "parameters": [
                    {"type": "string", "description": "Document ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.StoredVectorStore"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "Document not indexed", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}, {"ServiceKey": []}],
                "description": "Build and persist the document's vector store, replacing the previous one. Accepts JSON, text/plain, text/markdown or application/pdf bodies. With async the build is queued and 202 is returned.",
                "consumes": ["application/json", "text/plain", "application/pdf"],
                "produces": ["application/json"],
                "tags": ["Documents"],
                "summary": "Index a document",
                "parameters": [
                    {"type": "string", "description": "Document ID", "name": "id", "in": "path", "required": true},
                    {"type": "boolean", "description": "Queue the build", "name": "async", "in": "query"},
                    {"description": "Document text (JSON bodies)", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/http.IndexDocumentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.StoredVectorStore"}},
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/http.TaskResponse"}},
                    "400": {"description": "Empty or unreadable document", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "409": {"description": "Document is being indexed", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "413": {"description": "Body too large", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "503": {"description": "Embedding service unavailable", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}, {"ServiceKey": []}],
                "description": "Drops the document's persisted vector store",
                "produces": ["application/json"],
                "tags": ["Documents"],
                "summary": "Delete a document's vector store",
                "parameters": [
                    {"type": "string", "description": "Document ID", "name": "id", "in": "path", "required": true},
                    {"type": "boolean", "description": "Queue the deletion", "name": "async", "in": "query"}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/http.TaskResponse"}},
                    "204": {"description": "Deleted"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "Document not indexed", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/tasks/{id}": {
            "get": {
                "security": [{"BearerAuth": []}, {"ServiceKey": []}],
                "description": "Returns the status of a background indexing task (payload text omitted)",
                "produces": ["application/json"],
                "tags": ["Tasks"],
                "summary": "Get task status",
                "parameters": [
                    {"type": "string", "description": "Task ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Task"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "Task not found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/retrieve": {
            "post": {
                "security": [{"BearerAuth": []}, {"ServiceKey": []}],
                "description": "Embeds the query and returns the matching chunks of the given documents. When stores are sent inline they are merged in request order instead of loading persisted ones. If nothing clears the threshold the context is \"No relevant content found.\"",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Retrieval"],
                "summary": "Retrieve context",
                "parameters": [
                    {"description": "Query", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.RetrieveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.RetrievalResult"}},
                    "400": {"description": "Empty query or no documents", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "No document is indexed", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "409": {"description": "Store built with a different embedding model", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "422": {"description": "Corrupt store", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "503": {"description": "Embedding service unavailable", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/ask": {
            "post": {
                "security": [{"BearerAuth": []}, {"ServiceKey": []}],
                "description": "Retrieves context from the given documents and answers the question with the chat model",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Retrieval"],
                "summary": "Ask a question",
                "parameters": [
                    {"description": "Question and chat history", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/driving.AskRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/driving.AskResponse"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "No document is indexed", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "429": {"description": "Provider rate limit", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "503": {"description": "AI service unavailable", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/chats/title": {
            "post": {
                "security": [{"BearerAuth": []}, {"ServiceKey": []}],
                "description": "Names a chat from its first message. Falls back to a truncated message when the model fails.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Chats"],
                "summary": "Generate a chat title",
                "parameters": [
                    {"description": "First message", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.TitleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.TitleResponse"}},
                    "400": {"description": "Invalid request body", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.ChatMessage": {
            "type": "object",
            "properties": {
                "role": {"type": "string", "example": "user"},
                "content": {"type": "string"}
            }
        },
        "domain.VectorRecord": {
            "type": "object",
            "properties": {
                "content": {"type": "string"},
                "metadata": {"type": "object", "additionalProperties": true},
                "embedding": {"type": "array", "items": {"type": "number"}},
                "index": {"type": "integer"}
            }
        },
        "domain.SerializedStore": {
            "type": "object",
            "properties": {
                "records": {"type": "array", "items": {"$ref": "#/definitions/domain.VectorRecord"}}
            }
        },
        "domain.ScoredRecord": {
            "type": "object",
            "properties": {
                "record": {"$ref": "#/definitions/domain.VectorRecord"},
                "score": {"type": "number"}
            }
        },
        "domain.RetrievalResult": {
            "type": "object",
            "properties": {
                "context": {"type": "string"},
                "matches": {"type": "array", "items": {"$ref": "#/definitions/domain.ScoredRecord"}},
                "no_relevant_content": {"type": "boolean"},
                "threshold": {"type": "number", "example": 0.7},
                "took_ms": {"type": "integer"}
            }
        },
        "domain.StoredVectorStore": {
            "type": "object",
            "properties": {
                "document_id": {"type": "string"},
                "build_id": {"type": "string"},
                "embedding_model": {"type": "string", "example": "text-embedding-004"},
                "dimensions": {"type": "integer", "example": 768},
                "record_count": {"type": "integer"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.Task": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "type": {"type": "string", "enum": ["index_document", "delete_document"]},
                "payload": {"type": "object", "additionalProperties": {"type": "string"}},
                "status": {"type": "string", "enum": ["pending", "processing", "completed", "failed"]},
                "attempts": {"type": "integer"},
                "max_attempts": {"type": "integer"},
                "error": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"},
                "started_at": {"type": "string"},
                "completed_at": {"type": "string"},
                "scheduled_for": {"type": "string"}
            }
        },
        "driving.AskRequest": {
            "type": "object",
            "properties": {
                "query": {"type": "string"},
                "document_ids": {"type": "array", "items": {"type": "string"}},
                "top_k": {"type": "integer", "example": 5},
                "threshold": {"type": "number", "example": 0.7},
                "history": {"type": "array", "items": {"$ref": "#/definitions/domain.ChatMessage"}}
            }
        },
        "driving.AskResponse": {
            "type": "object",
            "properties": {
                "answer": {"type": "string"},
                "retrieval": {"$ref": "#/definitions/domain.RetrievalResult"}
            }
        },
        "http.BuildVectorStoreRequest": {
            "type": "object",
            "properties": {
                "document_id": {"type": "string", "example": "doc-42"},
                "text": {"type": "string"}
            }
        },
        "http.ErrorResponse": {
            "description": "API error response",
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "invalid request body"}
            }
        },
        "http.IndexDocumentRequest": {
            "type": "object",
            "properties": {
                "text": {"type": "string"},
                "async": {"type": "boolean"}
            }
        },
        "http.RetrieveRequest": {
            "type": "object",
            "properties": {
                "query": {"type": "string"},
                "document_ids": {"type": "array", "items": {"type": "string"}},
                "top_k": {"type": "integer", "example": 5},
                "threshold": {"type": "number", "example": 0.7},
                "stores": {"type": "array", "items": {"$ref": "#/definitions/domain.SerializedStore"}}
            }
        },
        "http.TaskResponse": {
            "type": "object",
            "properties": {
                "task": {"$ref": "#/definitions/domain.Task"}
            }
        },
        "http.TitleRequest": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "Explain gradient descent"}
            }
        },
        "http.TitleResponse": {
            "type": "object",
            "properties": {
                "title": {"type": "string", "example": "Gradient descent basics"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "JWT Bearer token. Format: \"Bearer {token}\"",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        },
        "ServiceKey": {
            "description": "Shared key of backend services",
            "type": "apiKey",
            "name": "X-Service-Key",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Sercha RAG API",
	Description:      "Retrieval-augmented generation for course documents: chunking, embedding, per-document vector stores, retrieval and grounded answers.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
