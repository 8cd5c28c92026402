package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	domain "github.com/example/taskboard/domain/task"
	"github.com/example/taskboard/events"
	"github.com/example/taskboard/modules/store"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// Module exposes the task repository as request-reply services and emits
// typed mutation events after every successful save.
type Module struct {
	service  *Service
	eventBus mono.EventBus
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the task module over st. defaultActor is the fallback
// identity recorded on mutations that carry no actor.
func NewModule(st *store.Store, defaultActor string) *Module {
	return &Module{
		service: NewService(st, defaultActor),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "tasks"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.TaskCreatedV1.ToBase(),
		events.TaskUpdatedV1.ToBase(),
		events.TaskArchivedV1.ToBase(),
		events.TaskRestoredV1.ToBase(),
		events.TaskDeletedV1.ToBase(),
		events.TaskCommentedV1.ToBase(),
	}
}

// Start validates the module wiring.
func (m *Module) Start(_ context.Context) error {
	if m.eventBus == nil {
		log.Println("[tasks] Warning: eventBus not set, mutation events will not be published")
	}
	log.Println("[tasks] Module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[tasks] Module stopped")
	return nil
}

// Health reports storage reachability.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	stats, err := m.service.Stats()
	if err != nil {
		return mono.HealthStatus{Healthy: false, Message: err.Error()}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"active_tasks":   stats.Total,
			"archived_tasks": stats.Archived,
		},
	}
}

// Service returns the underlying repository service.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterServices registers the typed request-reply services.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceCreateTask, json.Unmarshal, json.Marshal, m.createTask,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceCreateTask, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceGetTask, json.Unmarshal, json.Marshal, m.getTask,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceGetTask, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceUpdateTask, json.Unmarshal, json.Marshal, m.updateTask,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceUpdateTask, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceArchiveTask, json.Unmarshal, json.Marshal, m.archiveTask,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceArchiveTask, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceRestoreTask, json.Unmarshal, json.Marshal, m.restoreTask,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceRestoreTask, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceDeleteTask, json.Unmarshal, json.Marshal, m.deleteTask,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceDeleteTask, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceListTasks, json.Unmarshal, json.Marshal, m.listTasks,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceListTasks, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceAddComment, json.Unmarshal, json.Marshal, m.addComment,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceAddComment, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceListComments, json.Unmarshal, json.Marshal, m.listComments,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceListComments, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceLinkDocument, json.Unmarshal, json.Marshal, m.linkDocument,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceLinkDocument, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceUnlinkDocument, json.Unmarshal, json.Marshal, m.unlinkDocument,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceUnlinkDocument, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceStats, json.Unmarshal, json.Marshal, m.stats,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceStats, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceTaskDocuments, json.Unmarshal, json.Marshal, m.taskDocuments,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceTaskDocuments, err)
	}

	log.Println("[tasks] Registered request-reply services")
	return nil
}

// Service handlers

func (m *Module) createTask(_ context.Context, req CreateTaskRequest, _ *mono.Msg) (CreateTaskResponse, error) {
	t, err := m.service.Create(CreateFields{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		Project:     req.Project,
		Assignee:    req.Assignee,
		DueDate:     req.DueDate,
		CreatedBy:   req.CreatedBy,
	})
	if err != nil {
		return CreateTaskResponse{Error: toServiceError(err)}, nil
	}
	m.publish("created", *t, nil)
	return CreateTaskResponse{Task: *t}, nil
}

func (m *Module) getTask(_ context.Context, req GetTaskRequest, _ *mono.Msg) (GetTaskResponse, error) {
	detail, err := m.service.Get(req.TaskID)
	if err != nil {
		return GetTaskResponse{Error: toServiceError(err)}, nil
	}
	return GetTaskResponse{Task: detail}, nil
}

func (m *Module) updateTask(_ context.Context, req UpdateTaskRequest, _ *mono.Msg) (UpdateTaskResponse, error) {
	fields := UpdateFields{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		Project:     req.Project,
		Assignee:    req.Assignee,
		By:          req.By,
	}
	if len(req.DueDate) > 0 {
		fields.DueDateSet = true
		if string(req.DueDate) != "null" {
			var due string
			if err := json.Unmarshal(req.DueDate, &due); err != nil {
				ve := &ValidationError{Field: "due_date", Message: "due_date must be a string or null"}
				return UpdateTaskResponse{Error: toServiceError(ve)}, nil
			}
			fields.DueDate = &due
		}
	}

	t, err := m.service.Update(req.TaskID, fields)
	if err != nil {
		return UpdateTaskResponse{Error: toServiceError(err)}, nil
	}
	m.publish("updated", *t, nil)
	return UpdateTaskResponse{Task: *t}, nil
}

func (m *Module) archiveTask(_ context.Context, req ArchiveTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	t, err := m.service.Archive(req.TaskID, req.By)
	if err != nil {
		return TaskResponse{Error: toServiceError(err)}, nil
	}
	m.publish("archived", *t, nil)
	return TaskResponse{Task: *t}, nil
}

func (m *Module) restoreTask(_ context.Context, req RestoreTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	t, err := m.service.Restore(req.TaskID, req.By)
	if err != nil {
		return TaskResponse{Error: toServiceError(err)}, nil
	}
	m.publish("restored", *t, nil)
	return TaskResponse{Task: *t}, nil
}

func (m *Module) deleteTask(_ context.Context, req DeleteTaskRequest, _ *mono.Msg) (DeleteTaskResponse, error) {
	t, err := m.service.Delete(req.TaskID)
	if err != nil {
		return DeleteTaskResponse{Error: toServiceError(err)}, nil
	}
	m.publish("deleted", *t, nil)
	return DeleteTaskResponse{Deleted: true, Task: *t}, nil
}

func (m *Module) listTasks(_ context.Context, req ListTasksRequest, _ *mono.Msg) (ListTasksResponse, error) {
	tasks, err := m.service.List(Filter{Project: req.Project, Status: req.Status})
	if err != nil {
		return ListTasksResponse{Error: toServiceError(err)}, nil
	}
	return ListTasksResponse{Tasks: tasks, Total: len(tasks)}, nil
}

func (m *Module) addComment(_ context.Context, req AddCommentRequest, _ *mono.Msg) (AddCommentResponse, error) {
	c, err := m.service.AddComment(req.TaskID, req.Text, req.By)
	if err != nil {
		return AddCommentResponse{Error: toServiceError(err)}, nil
	}
	if detail, err := m.service.Get(req.TaskID); err == nil {
		m.publish("commented", detail.Task, map[string]any{
			"comment": c,
		})
	}
	return AddCommentResponse{Comment: *c}, nil
}

func (m *Module) listComments(_ context.Context, req ListCommentsRequest, _ *mono.Msg) (ListCommentsResponse, error) {
	comments, err := m.service.ListComments(req.TaskID)
	if err != nil {
		return ListCommentsResponse{Error: toServiceError(err)}, nil
	}
	return ListCommentsResponse{Comments: comments}, nil
}

func (m *Module) linkDocument(_ context.Context, req LinkDocumentRequest, _ *mono.Msg) (LinkDocumentResponse, error) {
	link, err := m.service.LinkDocument(req.TaskID, req.Path, req.Title, req.Type, req.By)
	if err != nil {
		return LinkDocumentResponse{Error: toServiceError(err)}, nil
	}
	if detail, err := m.service.Get(req.TaskID); err == nil {
		m.publish("updated", detail.Task, map[string]any{
			"linked": link.Path,
		})
	}
	return LinkDocumentResponse{Link: *link}, nil
}

func (m *Module) unlinkDocument(_ context.Context, req UnlinkDocumentRequest, _ *mono.Msg) (UnlinkDocumentResponse, error) {
	if err := m.service.UnlinkDocument(req.TaskID, req.Path, req.By); err != nil {
		return UnlinkDocumentResponse{Error: toServiceError(err)}, nil
	}
	if detail, err := m.service.Get(req.TaskID); err == nil {
		m.publish("updated", detail.Task, map[string]any{
			"unlinked": req.Path,
		})
	}
	return UnlinkDocumentResponse{Success: true}, nil
}

func (m *Module) stats(_ context.Context, _ StatsRequest, _ *mono.Msg) (StatsResponse, error) {
	stats, err := m.service.Stats()
	if err != nil {
		return StatsResponse{Error: toServiceError(err)}, nil
	}
	return StatsResponse{Stats: *stats}, nil
}

func (m *Module) taskDocuments(_ context.Context, _ TaskDocumentsRequest, _ *mono.Msg) (TaskDocumentsResponse, error) {
	counts, err := m.service.TaskDocuments()
	if err != nil {
		return TaskDocumentsResponse{Error: toServiceError(err)}, nil
	}
	return TaskDocumentsResponse{Documents: counts}, nil
}

// publish emits a mutation event. Publishing is best-effort: a bus failure
// is logged and never fails the mutation that already saved.
func (m *Module) publish(kind string, t domain.Task, extra map[string]any) {
	if m.eventBus == nil {
		return
	}
	event := events.TaskEvent{
		Kind:      kind,
		Task:      t,
		Extra:     extra,
		Timestamp: time.Now(),
	}

	var err error
	switch kind {
	case "created":
		err = events.TaskCreatedV1.Publish(m.eventBus, event, nil)
	case "updated":
		err = events.TaskUpdatedV1.Publish(m.eventBus, event, nil)
	case "archived":
		err = events.TaskArchivedV1.Publish(m.eventBus, event, nil)
	case "restored":
		err = events.TaskRestoredV1.Publish(m.eventBus, event, nil)
	case "deleted":
		err = events.TaskDeletedV1.Publish(m.eventBus, event, nil)
	case "commented":
		err = events.TaskCommentedV1.Publish(m.eventBus, event, nil)
	}
	if err != nil {
		log.Printf("[tasks] Warning: failed to publish %s event for task %s: %v", kind, t.ID, err)
	}
}

// toServiceError maps repository errors onto wire codes.
func toServiceError(err error) *ServiceError {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return &ServiceError{Code: "validation", Field: ve.Field, Message: ve.Message}
	case errors.Is(err, ErrTaskNotFound), errors.Is(err, ErrLinkNotFound):
		return &ServiceError{Code: "not_found", Message: err.Error()}
	case errors.Is(err, ErrDuplicateLink):
		return &ServiceError{Code: "conflict", Message: err.Error()}
	case errors.Is(err, store.ErrStorageUnavailable):
		return &ServiceError{Code: "storage", Message: err.Error()}
	default:
		return &ServiceError{Code: "internal", Message: err.Error()}
	}
}
