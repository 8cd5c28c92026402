package task

import (
	"context"
	"encoding/json"

	domain "github.com/example/taskboard/domain/task"
)

// Service names registered with the mono ServiceContainer.
const (
	ServiceCreateTask     = "create-task"
	ServiceGetTask        = "get-task"
	ServiceUpdateTask     = "update-task"
	ServiceArchiveTask    = "archive-task"
	ServiceRestoreTask    = "restore-task"
	ServiceDeleteTask     = "delete-task"
	ServiceListTasks      = "list-tasks"
	ServiceAddComment     = "add-comment"
	ServiceListComments   = "list-comments"
	ServiceLinkDocument   = "link-document"
	ServiceUnlinkDocument = "unlink-document"
	ServiceStats          = "stats"
	ServiceTaskDocuments  = "task-documents"
)

// ServiceError carries a repository failure across the service boundary,
// where Go error identity does not survive serialization. Code is one of
// "validation", "not_found", "conflict", "storage", or "internal".
type ServiceError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// CreateTaskRequest is the request for creating a task.
type CreateTaskRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Status      string  `json:"status,omitempty"`
	Priority    string  `json:"priority,omitempty"`
	Project     string  `json:"project,omitempty"`
	Assignee    string  `json:"assignee,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
	CreatedBy   string  `json:"created_by,omitempty"`
}

// CreateTaskResponse is the response for creating a task.
type CreateTaskResponse struct {
	Task  domain.Task   `json:"task"`
	Error *ServiceError `json:"error,omitempty"`
}

// GetTaskRequest is the request for fetching a task with embedded history.
type GetTaskRequest struct {
	TaskID string `json:"task_id"`
}

// GetTaskResponse is the response for fetching a task.
type GetTaskResponse struct {
	Task  *Detail       `json:"task,omitempty"`
	Error *ServiceError `json:"error,omitempty"`
}

// UpdateTaskRequest is a shallow-merge patch. Absent fields are left
// untouched. DueDate is raw so an explicit null (remove the due date) is
// distinguishable from an absent key.
type UpdateTaskRequest struct {
	TaskID      string          `json:"task_id"`
	Title       *string         `json:"title,omitempty"`
	Description *string         `json:"description,omitempty"`
	Status      *string         `json:"status,omitempty"`
	Priority    *string         `json:"priority,omitempty"`
	Project     *string         `json:"project,omitempty"`
	Assignee    *string         `json:"assignee,omitempty"`
	DueDate     json.RawMessage `json:"due_date,omitempty"`
	By          string          `json:"by,omitempty"`
}

// UpdateTaskResponse is the response for updating a task.
type UpdateTaskResponse struct {
	Task  domain.Task   `json:"task"`
	Error *ServiceError `json:"error,omitempty"`
}

// ArchiveTaskRequest is the request for archiving a task.
type ArchiveTaskRequest struct {
	TaskID string `json:"task_id"`
	By     string `json:"by,omitempty"`
}

// RestoreTaskRequest is the request for restoring an archived task.
type RestoreTaskRequest struct {
	TaskID string `json:"task_id"`
	By     string `json:"by,omitempty"`
}

// TaskResponse is the response for archive and restore operations.
type TaskResponse struct {
	Task  domain.Task   `json:"task"`
	Error *ServiceError `json:"error,omitempty"`
}

// DeleteTaskRequest is the request for permanently deleting a task.
type DeleteTaskRequest struct {
	TaskID string `json:"task_id"`
}

// DeleteTaskResponse is the response for deleting a task.
type DeleteTaskResponse struct {
	Deleted bool          `json:"deleted"`
	Task    domain.Task   `json:"task"`
	Error   *ServiceError `json:"error,omitempty"`
}

// ListTasksRequest filters the active task list.
type ListTasksRequest struct {
	Project string `json:"project,omitempty"`
	Status  string `json:"status,omitempty"`
}

// ListTasksResponse is the ordered active task list.
type ListTasksResponse struct {
	Tasks []domain.Task `json:"tasks"`
	Total int           `json:"total"`
	Error *ServiceError `json:"error,omitempty"`
}

// AddCommentRequest is the request for commenting on a task.
type AddCommentRequest struct {
	TaskID string `json:"task_id"`
	Text   string `json:"text"`
	By     string `json:"by,omitempty"`
}

// AddCommentResponse is the response for adding a comment.
type AddCommentResponse struct {
	Comment domain.Comment `json:"comment"`
	Error   *ServiceError  `json:"error,omitempty"`
}

// ListCommentsRequest is the request for listing a task's comments.
type ListCommentsRequest struct {
	TaskID string `json:"task_id"`
}

// ListCommentsResponse is the response for listing comments.
type ListCommentsResponse struct {
	Comments []domain.Comment `json:"comments"`
	Error    *ServiceError    `json:"error,omitempty"`
}

// LinkDocumentRequest is the request for linking a document to a task.
type LinkDocumentRequest struct {
	TaskID string `json:"task_id"`
	Path   string `json:"path"`
	Title  string `json:"title,omitempty"`
	Type   string `json:"type,omitempty"`
	By     string `json:"by,omitempty"`
}

// LinkDocumentResponse is the response for linking a document.
type LinkDocumentResponse struct {
	Link  domain.DocumentLink `json:"link"`
	Error *ServiceError       `json:"error,omitempty"`
}

// UnlinkDocumentRequest is the request for unlinking a document.
type UnlinkDocumentRequest struct {
	TaskID string `json:"task_id"`
	Path   string `json:"path"`
	By     string `json:"by,omitempty"`
}

// UnlinkDocumentResponse is the response for unlinking a document.
type UnlinkDocumentResponse struct {
	Success bool          `json:"success"`
	Error   *ServiceError `json:"error,omitempty"`
}

// StatsRequest is the request for board statistics.
type StatsRequest struct{}

// StatsResponse is the response for board statistics.
type StatsResponse struct {
	Stats Stats         `json:"stats"`
	Error *ServiceError `json:"error,omitempty"`
}

// TaskDocumentsRequest is the request for the document reverse index.
type TaskDocumentsRequest struct{}

// TaskDocumentsResponse maps document paths to linking-task counts.
type TaskDocumentsResponse struct {
	Documents map[string]int `json:"documents"`
	Error     *ServiceError  `json:"error,omitempty"`
}

// TaskPort defines the interface driving adapters use to reach the task
// repository (hexagonal port).
type TaskPort interface {
	CreateTask(ctx context.Context, req *CreateTaskRequest) (*domain.Task, error)
	GetTask(ctx context.Context, taskID string) (*Detail, error)
	UpdateTask(ctx context.Context, req *UpdateTaskRequest) (*domain.Task, error)
	ArchiveTask(ctx context.Context, taskID, by string) (*domain.Task, error)
	RestoreTask(ctx context.Context, taskID, by string) (*domain.Task, error)
	DeleteTask(ctx context.Context, taskID string) error
	ListTasks(ctx context.Context, project, status string) ([]domain.Task, error)
	AddComment(ctx context.Context, taskID, text, by string) (*domain.Comment, error)
	ListComments(ctx context.Context, taskID string) ([]domain.Comment, error)
	LinkDocument(ctx context.Context, req *LinkDocumentRequest) (*domain.DocumentLink, error)
	UnlinkDocument(ctx context.Context, taskID, path, by string) error
	Stats(ctx context.Context) (*Stats, error)
	TaskDocuments(ctx context.Context) (map[string]int, error)
}
