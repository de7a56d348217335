package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskType identifies the type of background task
type TaskType string

const (
	// TaskTypeIndexDocument builds and stores a document's vector store
	TaskTypeIndexDocument TaskType = "index_document"
	// TaskTypeDeleteDocument drops a document's vector store
	TaskTypeDeleteDocument TaskType = "delete_document"
)

// TaskStatus represents the current state of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Payload keys
const (
	TaskPayloadDocumentID = "document_id"
	TaskPayloadText       = "text"
)

// DefaultTaskMaxAttempts is how often a task runs before it is marked failed
const DefaultTaskMaxAttempts = 3

// Task represents a background job to be processed by workers
type Task struct {
	ID   string   `json:"id"`
	Type TaskType `json:"type"`

	// Payload contains task-specific data
	// index_document: document_id, text
	// delete_document: document_id
	Payload map[string]string `json:"payload"`

	Status      TaskStatus `json:"status"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"max_attempts"`

	// Error contains the last error message
	Error string `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// ScheduledFor delays processing (retries are scheduled with backoff)
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewTask creates a pending task ready to run now
func NewTask(taskType TaskType, payload map[string]string) *Task {
	now := time.Now()
	return &Task{
		ID:           uuid.NewString(),
		Type:         taskType,
		Payload:      payload,
		Status:       TaskStatusPending,
		MaxAttempts:  DefaultTaskMaxAttempts,
		CreatedAt:    now,
		UpdatedAt:    now,
		ScheduledFor: now,
	}
}

// NewIndexDocumentTask creates a task that indexes text for a document
func NewIndexDocumentTask(documentID, text string) *Task {
	return NewTask(TaskTypeIndexDocument, map[string]string{
		TaskPayloadDocumentID: documentID,
		TaskPayloadText:       text,
	})
}

// NewDeleteDocumentTask creates a task that drops a document's store
func NewDeleteDocumentTask(documentID string) *Task {
	return NewTask(TaskTypeDeleteDocument, map[string]string{
		TaskPayloadDocumentID: documentID,
	})
}

// DocumentID extracts the document_id from the payload
func (t *Task) DocumentID() string {
	return t.Payload[TaskPayloadDocumentID]
}

// Text extracts the text from the payload (index_document tasks)
func (t *Task) Text() string {
	return t.Payload[TaskPayloadText]
}

// Summary is the task without its payload text, for status responses
func (t *Task) Summary() *Task {
	out := *t
	out.Payload = map[string]string{TaskPayloadDocumentID: t.DocumentID()}
	return &out
}

// CanRetry returns true if the task can be retried
func (t *Task) CanRetry() bool {
	return t.Attempts < t.MaxAttempts
}

// IsReady returns true if the task is ready to be processed
func (t *Task) IsReady() bool {
	return t.Status == TaskStatusPending && !time.Now().Before(t.ScheduledFor)
}

// MarkProcessing updates the task to processing state
func (t *Task) MarkProcessing() {
	now := time.Now()
	t.Status = TaskStatusProcessing
	t.StartedAt = &now
	t.UpdatedAt = now
	t.Attempts++
}

// MarkCompleted updates the task to completed state
func (t *Task) MarkCompleted() {
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now
	t.Error = ""
}

// MarkFailed updates the task to failed state
func (t *Task) MarkFailed(err string) {
	now := time.Now()
	t.Status = TaskStatusFailed
	t.UpdatedAt = now
	t.Error = err
}

// RetryBackoff is the delay before the next attempt: 1s, 2s, 4s... capped at 5m
func (t *Task) RetryBackoff() time.Duration {
	if t.Attempts >= 9 {
		return 5 * time.Minute
	}
	backoff := time.Duration(1<<t.Attempts) * time.Second
	if backoff > 5*time.Minute {
		backoff = 5 * time.Minute
	}
	return backoff
}

// Retry resets the task for retry with exponential backoff
func (t *Task) Retry(err string) {
	now := time.Now()
	t.Status = TaskStatusPending
	t.UpdatedAt = now
	t.Error = err
	t.ScheduledFor = now.Add(t.RetryBackoff())
}
