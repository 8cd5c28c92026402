package task

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/taskboard/domain/task"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// Adapter implements TaskPort over the tasks module's service container.
type Adapter struct {
	container mono.ServiceContainer
}

// NewAdapter creates a TaskPort backed by the container.
func NewAdapter(container mono.ServiceContainer) TaskPort {
	if container == nil {
		panic("task: ServiceContainer is nil")
	}
	return &Adapter{container: container}
}

func call[T any](a *Adapter, ctx context.Context, service string, req any, resp *T) error {
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return fmt.Errorf("%s: %w", service, err)
	}
	return nil
}

// portError converts a wire ServiceError back into the repository's error
// taxonomy so callers can keep using errors.Is and errors.As.
func portError(se *ServiceError) error {
	if se == nil {
		return nil
	}
	switch se.Code {
	case "validation":
		return &ValidationError{Field: se.Field, Message: se.Message}
	case "not_found":
		return fmt.Errorf("%w: %s", ErrTaskNotFound, se.Message)
	case "conflict":
		return fmt.Errorf("%w: %s", ErrDuplicateLink, se.Message)
	default:
		return se
	}
}

// CreateTask creates a task.
func (a *Adapter) CreateTask(ctx context.Context, req *CreateTaskRequest) (*domain.Task, error) {
	var resp CreateTaskResponse
	if err := call(a, ctx, ServiceCreateTask, req, &resp); err != nil {
		return nil, err
	}
	if err := portError(resp.Error); err != nil {
		return nil, err
	}
	return &resp.Task, nil
}

// GetTask fetches a task with its embedded history.
func (a *Adapter) GetTask(ctx context.Context, taskID string) (*Detail, error) {
	var resp GetTaskResponse
	if err := call(a, ctx, ServiceGetTask, &GetTaskRequest{TaskID: taskID}, &resp); err != nil {
		return nil, err
	}
	if err := portError(resp.Error); err != nil {
		return nil, err
	}
	return resp.Task, nil
}

// UpdateTask applies a partial update.
func (a *Adapter) UpdateTask(ctx context.Context, req *UpdateTaskRequest) (*domain.Task, error) {
	var resp UpdateTaskResponse
	if err := call(a, ctx, ServiceUpdateTask, req, &resp); err != nil {
		return nil, err
	}
	if err := portError(resp.Error); err != nil {
		return nil, err
	}
	return &resp.Task, nil
}

// ArchiveTask archives a task.
func (a *Adapter) ArchiveTask(ctx context.Context, taskID, by string) (*domain.Task, error) {
	var resp TaskResponse
	if err := call(a, ctx, ServiceArchiveTask, &ArchiveTaskRequest{TaskID: taskID, By: by}, &resp); err != nil {
		return nil, err
	}
	if err := portError(resp.Error); err != nil {
		return nil, err
	}
	return &resp.Task, nil
}

// RestoreTask restores an archived task.
func (a *Adapter) RestoreTask(ctx context.Context, taskID, by string) (*domain.Task, error) {
	var resp TaskResponse
	if err := call(a, ctx, ServiceRestoreTask, &RestoreTaskRequest{TaskID: taskID, By: by}, &resp); err != nil {
		return nil, err
	}
	if err := portError(resp.Error); err != nil {
		return nil, err
	}
	return &resp.Task, nil
}

// DeleteTask permanently deletes a task.
func (a *Adapter) DeleteTask(ctx context.Context, taskID string) error {
	var resp DeleteTaskResponse
	if err := call(a, ctx, ServiceDeleteTask, &DeleteTaskRequest{TaskID: taskID}, &resp); err != nil {
		return err
	}
	return portError(resp.Error)
}

// ListTasks lists active tasks matching the filter.
func (a *Adapter) ListTasks(ctx context.Context, project, status string) ([]domain.Task, error) {
	var resp ListTasksResponse
	req := &ListTasksRequest{Project: project, Status: status}
	if err := call(a, ctx, ServiceListTasks, req, &resp); err != nil {
		return nil, err
	}
	if err := portError(resp.Error); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// AddComment comments on a task.
func (a *Adapter) AddComment(ctx context.Context, taskID, text, by string) (*domain.Comment, error) {
	var resp AddCommentResponse
	req := &AddCommentRequest{TaskID: taskID, Text: text, By: by}
	if err := call(a, ctx, ServiceAddComment, req, &resp); err != nil {
		return nil, err
	}
	if err := portError(resp.Error); err != nil {
		return nil, err
	}
	return &resp.Comment, nil
}

// ListComments lists a task's comments.
func (a *Adapter) ListComments(ctx context.Context, taskID string) ([]domain.Comment, error) {
	var resp ListCommentsResponse
	if err := call(a, ctx, ServiceListComments, &ListCommentsRequest{TaskID: taskID}, &resp); err != nil {
		return nil, err
	}
	if err := portError(resp.Error); err != nil {
		return nil, err
	}
	return resp.Comments, nil
}

// LinkDocument links an external document to a task.
func (a *Adapter) LinkDocument(ctx context.Context, req *LinkDocumentRequest) (*domain.DocumentLink, error) {
	var resp LinkDocumentResponse
	if err := call(a, ctx, ServiceLinkDocument, req, &resp); err != nil {
		return nil, err
	}
	if err := portError(resp.Error); err != nil {
		return nil, err
	}
	return &resp.Link, nil
}

// UnlinkDocument removes a document link from a task.
func (a *Adapter) UnlinkDocument(ctx context.Context, taskID, path, by string) error {
	var resp UnlinkDocumentResponse
	req := &UnlinkDocumentRequest{TaskID: taskID, Path: path, By: by}
	if err := call(a, ctx, ServiceUnlinkDocument, req, &resp); err != nil {
		return err
	}
	return portError(resp.Error)
}

// Stats returns board statistics.
func (a *Adapter) Stats(ctx context.Context) (*Stats, error) {
	var resp StatsResponse
	if err := call(a, ctx, ServiceStats, &StatsRequest{}, &resp); err != nil {
		return nil, err
	}
	if err := portError(resp.Error); err != nil {
		return nil, err
	}
	return &resp.Stats, nil
}

// TaskDocuments returns the document-to-task-count reverse index.
func (a *Adapter) TaskDocuments(ctx context.Context) (map[string]int, error) {
	var resp TaskDocumentsResponse
	if err := call(a, ctx, ServiceTaskDocuments, &TaskDocumentsRequest{}, &resp); err != nil {
		return nil, err
	}
	if err := portError(resp.Error); err != nil {
		return nil, err
	}
	return resp.Documents, nil
}
