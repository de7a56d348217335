package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/swaggo/swag"

	"github.com/custodia-labs/sercha-rag/docs"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/extract"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// ReadyResponse reports the state of each dependency
// @Description Readiness status with per-dependency checks
type ReadyResponse struct {
	Status string            `json:"status" example:"ready"`
	Checks map[string]string `json:"checks"`
}

// BuildVectorStoreRequest is the input of a stateless build
// @Description Document text to turn into a serialized vector store
type BuildVectorStoreRequest struct {
	DocumentID string `json:"document_id" example:"doc-42"`
	Text       string `json:"text"`
}

// IndexDocumentRequest is the JSON body of a document upload
// @Description Document text to index; set async to queue the build
type IndexDocumentRequest struct {
	Text  string `json:"text"`
	Async bool   `json:"async,omitempty"`
}

// TaskResponse describes a queued background task
// @Description Background task handle; poll GET /tasks/{id}
type TaskResponse struct {
	Task *domain.Task `json:"task"`
}

// RetrieveRequest queries persisted documents, or the stores sent inline
// @Description Retrieval over document IDs or inline serialized stores
type RetrieveRequest struct {
	driving.QueryRequest
	Stores []*domain.SerializedStore `json:"stores,omitempty"`
}

// TitleRequest carries the first message of a chat
// @Description Chat message to name
type TitleRequest struct {
	Message string `json:"message" example:"Explain gradient descent"`
}

// TitleResponse is a generated chat title
// @Description Generated chat title
type TitleResponse struct {
	Title string `json:"title" example:"Gradient descent basics"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Checks database, Redis and AI service availability. Missing AI services degrade but do not fail readiness.
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := ReadyResponse{Status: "ready", Checks: make(map[string]string)}
	status := http.StatusOK

	check := func(name string, p Pinger) {
		if p == nil {
			resp.Checks[name] = "disabled"
			return
		}
		if err := p.Ping(ctx); err != nil {
			resp.Checks[name] = "error: " + err.Error()
			resp.Status = "not ready"
			status = http.StatusServiceUnavailable
			return
		}
		resp.Checks[name] = "ok"
	}
	check("database", s.db)
	check("redis", s.redisClient)
	check("queue", s.taskQueue)

	if s.aiServices != nil {
		cfg := s.aiServices.Config()
		resp.Checks["embedding"] = availability(cfg.EmbeddingAvailable())
		resp.Checks["llm"] = availability(cfg.LLMAvailable())
		if !cfg.CanRetrieve() && status == http.StatusOK {
			resp.Status = "degraded"
		}
	}

	writeJSON(w, status, resp)
}

func availability(ok bool) string {
	if ok {
		return "available"
	}
	return "unavailable"
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.config.Version})
}

// handleOpenAPI serves the registered swagger document
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
	if err != nil {
		s.logger.Error("failed to render API docs", "error", err)
		writeError(w, http.StatusInternalServerError, "API docs unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, doc)
}

// Vector store endpoints

// handleBuildVectorStore godoc
// @Summary      Build a vector store
// @Description  Preprocess, chunk and embed a document and return its serialized store without persisting it (lecturer/admin or service key)
// @Tags         Vector Stores
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Security     ServiceKey
// @Param        request  body      BuildVectorStoreRequest  true  "Document"
// @Success      200      {object}  domain.SerializedStore
// @Failure      400      {object}  ErrorResponse  "Empty document or invalid request"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      403      {object}  ErrorResponse  "Forbidden"
// @Failure      429      {object}  ErrorResponse  "Embedding provider rate limit"
// @Failure      503      {object}  ErrorResponse  "Embedding service unavailable"
// @Router       /vector-stores:build [post]
func (s *Server) handleBuildVectorStore(w http.ResponseWriter, r *http.Request) {
	var req BuildVectorStoreRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	store, err := s.ragService.BuildVectorStoreForDocument(r.Context(), req.Text, req.DocumentID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, store)
}

// handleIndexDocument godoc
// @Summary      Index a document
// @Description  Build and persist the document's vector store, replacing the previous one. Accepts JSON, text/plain, text/markdown or application/pdf bodies. With async the build is queued and 202 is returned.
// @Tags         Documents
// @Accept       json
// @Accept       plain
// @Accept       application/pdf
// @Produce      json
// @Security     BearerAuth
// @Security     ServiceKey
// @Param        id       path      string                true   "Document ID"
// @Param        async    query     bool                  false  "Queue the build"
// @Param        request  body      IndexDocumentRequest  false  "Document text (JSON bodies)"
// @Success      200      {object}  domain.StoredVectorStore
// @Success      202      {object}  TaskResponse
// @Failure      400      {object}  ErrorResponse  "Empty or unreadable document"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      403      {object}  ErrorResponse  "Forbidden"
// @Failure      409      {object}  ErrorResponse  "Document is being indexed"
// @Failure      413      {object}  ErrorResponse  "Body too large"
// @Failure      503      {object}  ErrorResponse  "Embedding service unavailable"
// @Router       /documents/{id}/vector-store [put]
func (s *Server) handleIndexDocument(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")

	async, err := queryBool(r, "async")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid async parameter")
		return
	}

	var text string
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "" || mediaType == "application/json" {
		var req IndexDocumentRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		text = req.Text
		async = async || req.Async
	} else {
		body, ok := s.readBody(w, r)
		if !ok {
			return
		}
		text, err = extract.Text(body, r.Header.Get("Content-Type"))
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
	}

	if async {
		if strings.TrimSpace(text) == "" {
			writeError(w, http.StatusBadRequest, "document has no text")
			return
		}
		s.enqueue(w, r, domain.NewIndexDocumentTask(documentID, text))
		return
	}

	stored, err := s.ragService.IndexDocument(r.Context(), documentID, text)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stored)
}

// handleGetDocumentStore godoc
// @Summary      Get a document's vector store
// @Description  Returns metadata of the document's current vector store (no records)
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Security     ServiceKey
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  domain.StoredVectorStore
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      404  {object}  ErrorResponse  "Document not indexed"
// @Router       /documents/{id}/vector-store [get]
func (s *Server) handleGetDocumentStore(w http.ResponseWriter, r *http.Request) {
	stored, err := s.ragService.GetDocumentStore(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stored)
}

// handleDeleteDocument godoc
// @Summary      Delete a document's vector store
// @Description  Drops the document's persisted vector store (lecturer/admin or service key)
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Security     ServiceKey
// @Param        id     path   string  true   "Document ID"
// @Param        async  query  bool    false  "Queue the deletion"
// @Success      204    "Deleted"
// @Success      202    {object}  TaskResponse
// @Failure      401    {object}  ErrorResponse  "Unauthorized"
// @Failure      403    {object}  ErrorResponse  "Forbidden"
// @Failure      404    {object}  ErrorResponse  "Document not indexed"
// @Router       /documents/{id}/vector-store [delete]
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")

	async, err := queryBool(r, "async")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid async parameter")
		return
	}
	if async {
		s.enqueue(w, r, domain.NewDeleteDocumentTask(documentID))
		return
	}

	if err := s.ragService.DeleteDocument(r.Context(), documentID); err != nil {
		s.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleGetTask godoc
// @Summary      Get task status
// @Description  Returns the status of a background indexing task (payload text omitted)
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Security     ServiceKey
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  domain.Task
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      404  {object}  ErrorResponse  "Task not found"
// @Router       /tasks/{id} [get]
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	if s.taskQueue == nil {
		writeError(w, http.StatusNotFound, "background tasks are not enabled")
		return
	}

	task, err := s.taskQueue.GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, task.Summary())
}

// Retrieval endpoints

// handleRetrieve godoc
// @Summary      Retrieve context
// @Description  Embeds the query and returns the matching chunks of the given documents. When stores are sent inline they are merged in request order instead of loading persisted ones. If nothing clears the threshold the context is "No relevant content found."
// @Tags         Retrieval
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Security     ServiceKey
// @Param        request  body      RetrieveRequest  true  "Query"
// @Success      200      {object}  domain.RetrievalResult
// @Failure      400      {object}  ErrorResponse  "Empty query or no documents"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      404      {object}  ErrorResponse  "No document is indexed"
// @Failure      409      {object}  ErrorResponse  "Store built with a different embedding model"
// @Failure      422      {object}  ErrorResponse  "Corrupt store"
// @Failure      503      {object}  ErrorResponse  "Embedding service unavailable"
// @Router       /retrieve [post]
func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	var (
		result *domain.RetrievalResult
		err    error
	)
	if len(req.Stores) > 0 {
		k := req.TopK
		if k == 0 {
			k = s.config.RAG.TopK
		}
		threshold := s.config.RAG.SimilarityThreshold
		if req.Threshold != nil {
			threshold = *req.Threshold
		}
		result, err = s.ragService.AnswerQuery(r.Context(), req.Query, req.Stores, k, threshold)
	} else {
		result, err = s.ragService.Query(r.Context(), req.QueryRequest)
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleAsk godoc
// @Summary      Ask a question
// @Description  Retrieves context from the given documents and answers the question with the chat model
// @Tags         Retrieval
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Security     ServiceKey
// @Param        request  body      driving.AskRequest  true  "Question and chat history"
// @Success      200      {object}  driving.AskResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      404      {object}  ErrorResponse  "No document is indexed"
// @Failure      429      {object}  ErrorResponse  "Provider rate limit"
// @Failure      503      {object}  ErrorResponse  "AI service unavailable"
// @Router       /ask [post]
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req driving.AskRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	resp, err := s.ragService.Ask(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleGenerateTitle godoc
// @Summary      Generate a chat title
// @Description  Names a chat from its first message. Falls back to a truncated message when the model fails.
// @Tags         Chats
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Security     ServiceKey
// @Param        request  body      TitleRequest  true  "First message"
// @Success      200      {object}  TitleResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Router       /chats/title [post]
func (s *Server) handleGenerateTitle(w http.ResponseWriter, r *http.Request) {
	var req TitleRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	writeJSON(w, http.StatusOK, TitleResponse{Title: s.titleService.GenerateTitle(r.Context(), req.Message)})
}

// Helper functions

func (s *Server) enqueue(w http.ResponseWriter, r *http.Request, task *domain.Task) {
	if s.taskQueue == nil {
		writeError(w, http.StatusServiceUnavailable, "background tasks are not enabled")
		return
	}

	if err := s.taskQueue.Enqueue(r.Context(), task); err != nil {
		s.logger.Error("failed to enqueue task", "task_type", task.Type, "document_id", task.DocumentID(), "error", err)
		writeError(w, http.StatusServiceUnavailable, "failed to queue task")
		return
	}

	writeJSON(w, http.StatusAccepted, TaskResponse{Task: task.Summary()})
}

// decodeJSON reads a size-limited JSON body into dst, writing the error response on failure
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return false
	}
	return true
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "failed to read request body")
		}
		return nil, false
	}
	return body, true
}

// writeServiceError maps domain errors to status codes
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrStoreNotBuilt):
		writeError(w, http.StatusNotFound, err.Error())
	// Corrupt snapshots can also wrap ErrDimensionMismatch; corruption wins
	case errors.Is(err, domain.ErrCorruptStore):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrIndexInProgress), errors.Is(err, domain.ErrDimensionMismatch):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "AI provider rate limit reached, retry later")
	case errors.Is(err, domain.ErrAuth):
		// The provider rejected our credentials; not the caller's fault
		s.logger.Error("AI provider rejected credentials", "error", err)
		writeError(w, http.StatusBadGateway, "AI provider rejected credentials")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func queryBool(r *http.Request, name string) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
