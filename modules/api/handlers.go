package api

import (
	"errors"

	"github.com/example/taskboard/modules/brain"
	"github.com/example/taskboard/modules/store"
	"github.com/example/taskboard/modules/task"
	"github.com/example/taskboard/modules/team"
	"github.com/gofiber/fiber/v2"
)

// respondError maps the repository error taxonomy onto HTTP statuses.
func respondError(c *fiber.Ctx, err error) error {
	var ve *task.ValidationError
	var se *task.ServiceError
	switch {
	case errors.As(err, &ve):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: ve.Message,
			Field:   ve.Field,
		})
	case errors.Is(err, task.ErrTaskNotFound), errors.Is(err, task.ErrLinkNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, task.ErrDuplicateLink):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   "conflict",
			Message: err.Error(),
		})
	case errors.Is(err, store.ErrStorageUnavailable),
		errors.As(err, &se) && se.Code == "storage":
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "storage_unavailable",
			Message: err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
	}
}

// healthHandler handles GET /health.
func (m *Module) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"module":            "api",
			"connected_clients": m.hub.ClientCount(),
		},
	})
}

// listTasks handles GET /tasks?project&status.
func (m *Module) listTasks(c *fiber.Ctx) error {
	tasks, err := m.tasks.ListTasks(c.UserContext(), c.Query("project"), c.Query("status"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"tasks": tasks, "total": len(tasks)})
}

// getTask handles GET /tasks/:id.
func (m *Module) getTask(c *fiber.Ctx) error {
	detail, err := m.tasks.GetTask(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(detail)
}

// createTask handles POST /tasks.
func (m *Module) createTask(c *fiber.Ctx) error {
	var req task.CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	created, err := m.tasks.CreateTask(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// updateTask handles PATCH /tasks/:id.
func (m *Module) updateTask(c *fiber.Ctx) error {
	var req task.UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}
	req.TaskID = c.Params("id")

	updated, err := m.tasks.UpdateTask(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(updated)
}

// archiveTask handles PATCH /tasks/:id/archive.
func (m *Module) archiveTask(c *fiber.Ctx) error {
	var req ActorRequest
	_ = c.BodyParser(&req) // body is optional

	archived, err := m.tasks.ArchiveTask(c.UserContext(), c.Params("id"), req.By)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(archived)
}

// restoreTask handles POST /tasks/:id/restore.
func (m *Module) restoreTask(c *fiber.Ctx) error {
	var req ActorRequest
	_ = c.BodyParser(&req)

	restored, err := m.tasks.RestoreTask(c.UserContext(), c.Params("id"), req.By)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(restored)
}

// deleteTask handles DELETE /tasks/:id.
func (m *Module) deleteTask(c *fiber.Ctx) error {
	if err := m.tasks.DeleteTask(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": true})
}

// listComments handles GET /tasks/:id/comments.
func (m *Module) listComments(c *fiber.Ctx) error {
	comments, err := m.tasks.ListComments(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"comments": comments})
}

// addComment handles POST /tasks/:id/comments.
func (m *Module) addComment(c *fiber.Ctx) error {
	var req CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	comment, err := m.tasks.AddComment(c.UserContext(), c.Params("id"), req.Text, req.By)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// linkDocument handles POST /tasks/:id/documents.
func (m *Module) linkDocument(c *fiber.Ctx) error {
	var req LinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	link, err := m.tasks.LinkDocument(c.UserContext(), &task.LinkDocumentRequest{
		TaskID: c.Params("id"),
		Path:   req.Path,
		Title:  req.Title,
		Type:   req.Type,
		By:     req.By,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(link)
}

// unlinkDocument handles DELETE /tasks/:id/documents/*.
func (m *Module) unlinkDocument(c *fiber.Ctx) error {
	path := c.Params("*")
	if err := m.tasks.UnlinkDocument(c.UserContext(), c.Params("id"), path, c.Query("by")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// taskDocuments handles GET /task-documents.
func (m *Module) taskDocuments(c *fiber.Ctx) error {
	counts, err := m.tasks.TaskDocuments(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(TaskDocumentsResponse{Documents: counts})
}

// stats handles GET /stats.
func (m *Module) stats(c *fiber.Ctx) error {
	stats, err := m.tasks.Stats(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// teamStatus handles GET /team.
func (m *Module) teamStatus(c *fiber.Ctx) error {
	members := []team.PeerStatus{}
	if m.prober != nil {
		members = m.prober.Probe(c.UserContext())
	}
	return c.JSON(TeamResponse{Members: members})
}

// brainDocuments handles GET /brain/documents.
func (m *Module) brainDocuments(c *fiber.Ctx) error {
	docs := []brain.DocumentInfo{}
	if m.scanner != nil {
		scanned, err := m.scanner.Scan()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
				Error:   "scan_failed",
				Message: err.Error(),
			})
		}
		docs = scanned
	}
	return c.JSON(fiber.Map{"documents": docs})
}
