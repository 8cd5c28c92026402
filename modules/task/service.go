package task

import (
	"fmt"
	"sort"
	"strings"
	"time"

	domain "github.com/example/taskboard/domain/task"
	"github.com/example/taskboard/modules/store"
	"github.com/google/uuid"
	gonanoid "github.com/jaevor/go-nanoid"
)

// commentPreviewLen is the number of characters of comment text kept in the
// activity note.
const commentPreviewLen = 100

const taskIDLength = 12

// Service implements the task repository: CRUD and lifecycle operations over
// the snapshot store. Every mutation is one store.Update call, so the
// mutated collections and the activity entries they produce land in the same
// save.
type Service struct {
	store        *store.Store
	defaultActor string
	newTaskID    func() string
}

// NewService creates a task service over st. defaultActor is the fallback
// identity for assignee and created_by when a request carries none.
func NewService(st *store.Store, defaultActor string) *Service {
	gen, err := gonanoid.Standard(taskIDLength)
	if err != nil {
		// Only reachable with an out-of-range length constant.
		panic(fmt.Sprintf("task: nanoid generator: %v", err))
	}
	if defaultActor == "" {
		defaultActor = "system"
	}
	return &Service{
		store:        st,
		defaultActor: defaultActor,
		newTaskID:    gen,
	}
}

// Filter narrows List results. Empty fields match everything; set fields
// are AND-combined exact matches.
type Filter struct {
	Project string
	Status  string
}

// Detail is a task with its full history embedded.
type Detail struct {
	domain.Task
	Activity        []domain.ActivityEntry `json:"activity"`
	Comments        []domain.Comment       `json:"comments"`
	LinkedDocuments []domain.DocumentLink  `json:"linkedDocuments"`
}

// Stats summarizes the board. The five known statuses are always present,
// zero-filled when no task holds them.
type Stats struct {
	Total      int `json:"total"`
	Backlog    int `json:"backlog"`
	Todo       int `json:"todo"`
	InProgress int `json:"in_progress"`
	Review     int `json:"review"`
	Done       int `json:"done"`
	Archived   int `json:"archived"`
}

// CreateFields are the caller-supplied fields for a new task.
type CreateFields struct {
	Title       string
	Description string
	Status      string
	Priority    string
	Project     string
	Assignee    string
	DueDate     *string
	CreatedBy   string
}

// UpdateFields is a shallow-merge patch: nil pointers leave the field
// untouched. DueDateSet distinguishes "not provided" from an explicit null
// (which removes the due date).
type UpdateFields struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	Project     *string
	Assignee    *string
	DueDate     *string
	DueDateSet  bool
	By          string
}

// List returns active tasks matching filter, ordered overdue-first, then by
// priority rank, then most recently updated, with id as the final tiebreak.
func (s *Service) List(filter Filter) ([]domain.Task, error) {
	doc, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	tasks := make([]domain.Task, 0, len(doc.Tasks))
	for _, t := range doc.Tasks {
		if filter.Project != "" && t.Project != filter.Project {
			continue
		}
		if filter.Status != "" && string(t.Status) != filter.Status {
			continue
		}
		tasks = append(tasks, t)
	}

	today := startOfToday()
	sort.SliceStable(tasks, func(i, j int) bool {
		oi, oj := isOverdue(tasks[i], today), isOverdue(tasks[j], today)
		if oi != oj {
			return oi
		}
		ri, rj := tasks[i].Priority.Rank(), tasks[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		if !tasks[i].UpdatedAt.Equal(tasks[j].UpdatedAt) {
			return tasks[i].UpdatedAt.After(tasks[j].UpdatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})

	return tasks, nil
}

// Get returns the task with its activity, comments, and linked documents, or
// ErrTaskNotFound.
func (s *Service) Get(id string) (*Detail, error) {
	doc, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	t, ok := findTask(doc.Tasks, id)
	if !ok {
		if t, ok = findTask(doc.Archived, id); !ok {
			return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
		}
	}

	detail := &Detail{
		Task:            t,
		Activity:        []domain.ActivityEntry{},
		Comments:        []domain.Comment{},
		LinkedDocuments: []domain.DocumentLink{},
	}
	for _, a := range doc.Activity {
		if a.TaskID == id {
			detail.Activity = append(detail.Activity, a)
		}
	}
	for _, c := range doc.Comments {
		if c.TaskID == id {
			detail.Comments = append(detail.Comments, c)
		}
	}
	if links, ok := doc.TaskDocuments[id]; ok {
		detail.LinkedDocuments = append(detail.LinkedDocuments, links...)
	}
	return detail, nil
}

// Create validates fields, applies defaults, and appends the task together
// with its "created" activity entry.
func (s *Service) Create(fields CreateFields) (*domain.Task, error) {
	if strings.TrimSpace(fields.Title) == "" {
		return nil, &ValidationError{Field: "title", Message: "title is required"}
	}

	now := time.Now()
	t := domain.Task{
		ID:          s.newTaskID(),
		Title:       fields.Title,
		Description: fields.Description,
		Status:      domain.StatusBacklog,
		Priority:    domain.PriorityNormal,
		Project:     "general",
		Assignee:    s.defaultActor,
		DueDate:     fields.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
		CreatedBy:   s.defaultActor,
	}
	if fields.Status != "" {
		t.Status = domain.Status(fields.Status)
	}
	if fields.Priority != "" {
		t.Priority = domain.Priority(fields.Priority)
	}
	if fields.Project != "" {
		t.Project = fields.Project
	}
	if fields.Assignee != "" {
		t.Assignee = fields.Assignee
	}
	if fields.CreatedBy != "" {
		t.CreatedBy = fields.CreatedBy
	}

	err := s.store.Update(func(doc *domain.Document) error {
		doc.Tasks = append(doc.Tasks, t)
		appendActivity(doc, domain.ActivityEntry{
			TaskID:    t.ID,
			Action:    domain.ActionCreated,
			By:        t.CreatedBy,
			Note:      fmt.Sprintf("Created task %q", t.Title),
			CreatedAt: now,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Update applies a shallow merge of fields onto the task. A status change
// appends a "moved" entry recording from/to; a due date change appends a
// separate "updated" entry (removal included). updated_at is refreshed
// regardless of which fields changed.
func (s *Service) Update(id string, fields UpdateFields) (*domain.Task, error) {
	by := fields.By
	if by == "" {
		by = s.defaultActor
	}

	var updated domain.Task
	err := s.store.Update(func(doc *domain.Document) error {
		idx := indexOfTask(doc.Tasks, id)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
		}
		t := &doc.Tasks[idx]
		now := time.Now()

		// Inspect incoming status and due date against current values
		// before merging, so the activity trail records the transition.
		if fields.Status != nil && domain.Status(*fields.Status) != t.Status {
			appendActivity(doc, domain.ActivityEntry{
				TaskID:     t.ID,
				Action:     domain.ActionMoved,
				FromStatus: t.Status,
				ToStatus:   domain.Status(*fields.Status),
				By:         by,
				Note:       fmt.Sprintf("Moved from %s to %s", t.Status, *fields.Status),
				CreatedAt:  now,
			})
		}
		if fields.DueDateSet && !equalDueDate(t.DueDate, fields.DueDate) {
			note := "Due date removed"
			if fields.DueDate != nil {
				note = fmt.Sprintf("Due date set to %s", *fields.DueDate)
			}
			appendActivity(doc, domain.ActivityEntry{
				TaskID:    t.ID,
				Action:    domain.ActionUpdated,
				By:        by,
				Note:      note,
				CreatedAt: now,
			})
		}

		if fields.Title != nil {
			t.Title = *fields.Title
		}
		if fields.Description != nil {
			t.Description = *fields.Description
		}
		if fields.Status != nil {
			t.Status = domain.Status(*fields.Status)
		}
		if fields.Priority != nil {
			t.Priority = domain.Priority(*fields.Priority)
		}
		if fields.Project != nil {
			t.Project = *fields.Project
		}
		if fields.Assignee != nil {
			t.Assignee = *fields.Assignee
		}
		if fields.DueDateSet {
			t.DueDate = fields.DueDate
		}
		t.UpdatedAt = now

		updated = *t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Archive moves the task from the active to the archived collection.
func (s *Service) Archive(id, by string) (*domain.Task, error) {
	if by == "" {
		by = s.defaultActor
	}

	var archived domain.Task
	err := s.store.Update(func(doc *domain.Document) error {
		idx := indexOfTask(doc.Tasks, id)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
		}
		t := doc.Tasks[idx]
		now := time.Now()
		t.ArchivedAt = &now
		t.UpdatedAt = now

		doc.Tasks = append(doc.Tasks[:idx], doc.Tasks[idx+1:]...)
		doc.Archived = append(doc.Archived, t)
		appendActivity(doc, domain.ActivityEntry{
			TaskID:    t.ID,
			Action:    domain.ActionArchived,
			By:        by,
			Note:      "Task archived",
			CreatedAt: now,
		})
		archived = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &archived, nil
}

// Restore moves the task from the archived collection back to the active
// one, clearing archived_at.
func (s *Service) Restore(id, by string) (*domain.Task, error) {
	if by == "" {
		by = s.defaultActor
	}

	var restored domain.Task
	err := s.store.Update(func(doc *domain.Document) error {
		idx := indexOfTask(doc.Archived, id)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
		}
		t := doc.Archived[idx]
		now := time.Now()
		t.ArchivedAt = nil
		t.UpdatedAt = now

		doc.Archived = append(doc.Archived[:idx], doc.Archived[idx+1:]...)
		doc.Tasks = append(doc.Tasks, t)
		appendActivity(doc, domain.ActivityEntry{
			TaskID:    t.ID,
			Action:    domain.ActionRestored,
			By:        by,
			Note:      "Task restored",
			CreatedAt: now,
		})
		restored = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &restored, nil
}

// Delete permanently removes the task from whichever collection holds it and
// cascades deletion of its activity, comments, and document links.
func (s *Service) Delete(id string) (*domain.Task, error) {
	var deleted domain.Task
	err := s.store.Update(func(doc *domain.Document) error {
		if idx := indexOfTask(doc.Tasks, id); idx >= 0 {
			deleted = doc.Tasks[idx]
			doc.Tasks = append(doc.Tasks[:idx], doc.Tasks[idx+1:]...)
		} else if idx := indexOfTask(doc.Archived, id); idx >= 0 {
			deleted = doc.Archived[idx]
			doc.Archived = append(doc.Archived[:idx], doc.Archived[idx+1:]...)
		} else {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
		}

		activity := doc.Activity[:0]
		for _, a := range doc.Activity {
			if a.TaskID != id {
				activity = append(activity, a)
			}
		}
		doc.Activity = activity

		comments := doc.Comments[:0]
		for _, c := range doc.Comments {
			if c.TaskID != id {
				comments = append(comments, c)
			}
		}
		doc.Comments = comments

		delete(doc.TaskDocuments, id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}

// AddComment appends a comment and a "commented" activity entry whose note
// is a preview of the text.
func (s *Service) AddComment(taskID, text, by string) (*domain.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ValidationError{Field: "text", Message: "comment text is required"}
	}
	if by == "" {
		by = s.defaultActor
	}

	now := time.Now()
	c := domain.Comment{
		ID:        uuid.New().String(),
		TaskID:    taskID,
		Text:      text,
		By:        by,
		CreatedAt: now,
	}

	err := s.store.Update(func(doc *domain.Document) error {
		if !taskExists(doc, taskID) {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		doc.Comments = append(doc.Comments, c)
		touchTask(doc, taskID, now)
		appendActivity(doc, domain.ActivityEntry{
			TaskID:    taskID,
			Action:    domain.ActionCommented,
			By:        by,
			Note:      previewText(text, commentPreviewLen),
			CreatedAt: now,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListComments returns the task's comments in insertion order.
func (s *Service) ListComments(taskID string) ([]domain.Comment, error) {
	doc, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	if !taskExists(doc, taskID) {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	comments := []domain.Comment{}
	for _, c := range doc.Comments {
		if c.TaskID == taskID {
			comments = append(comments, c)
		}
	}
	return comments, nil
}

// LinkDocument attaches an external document to the task. Linking the same
// path twice is a conflict, not a silent no-op.
func (s *Service) LinkDocument(taskID, path, title, docType, by string) (*domain.DocumentLink, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &ValidationError{Field: "path", Message: "document path is required"}
	}
	if by == "" {
		by = s.defaultActor
	}

	now := time.Now()
	link := domain.DocumentLink{
		Path:     path,
		Title:    title,
		Type:     docType,
		LinkedAt: now,
	}

	err := s.store.Update(func(doc *domain.Document) error {
		if !taskExists(doc, taskID) {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		for _, l := range doc.TaskDocuments[taskID] {
			if l.Path == path {
				return fmt.Errorf("%w: %s", ErrDuplicateLink, path)
			}
		}
		doc.TaskDocuments[taskID] = append(doc.TaskDocuments[taskID], link)
		touchTask(doc, taskID, now)
		appendActivity(doc, domain.ActivityEntry{
			TaskID:    taskID,
			Action:    domain.ActionLinked,
			By:        by,
			Note:      "Linked document: " + path,
			CreatedAt: now,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// UnlinkDocument removes a document link from the task.
func (s *Service) UnlinkDocument(taskID, path, by string) error {
	if by == "" {
		by = s.defaultActor
	}

	return s.store.Update(func(doc *domain.Document) error {
		if !taskExists(doc, taskID) {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		links, ok := doc.TaskDocuments[taskID]
		if !ok || len(links) == 0 {
			return fmt.Errorf("%w: %s", ErrLinkNotFound, path)
		}
		idx := -1
		for i, l := range links {
			if l.Path == path {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrLinkNotFound, path)
		}

		now := time.Now()
		doc.TaskDocuments[taskID] = append(links[:idx], links[idx+1:]...)
		touchTask(doc, taskID, now)
		appendActivity(doc, domain.ActivityEntry{
			TaskID:    taskID,
			Action:    domain.ActionUnlinked,
			By:        by,
			Note:      "Unlinked document: " + path,
			CreatedAt: now,
		})
		return nil
	})
}

// Stats returns board counts: total active, per known status, and archived.
func (s *Service) Stats() (*Stats, error) {
	doc, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Total:    len(doc.Tasks),
		Archived: len(doc.Archived),
	}
	for _, t := range doc.Tasks {
		switch t.Status {
		case domain.StatusBacklog:
			stats.Backlog++
		case domain.StatusTodo:
			stats.Todo++
		case domain.StatusInProgress:
			stats.InProgress++
		case domain.StatusReview:
			stats.Review++
		case domain.StatusDone:
			stats.Done++
		}
	}
	return stats, nil
}

// TaskDocuments returns the reverse index: document path to the number of
// tasks linking it.
func (s *Service) TaskDocuments() (map[string]int, error) {
	doc, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, links := range doc.TaskDocuments {
		for _, l := range links {
			counts[l.Path]++
		}
	}
	return counts, nil
}

// appendActivity assigns the entry the next free id and appends it. Ids are
// a monotonic counter over the document, so two entries appended by the same
// operation never collide.
func appendActivity(doc *domain.Document, entry domain.ActivityEntry) {
	var max int64
	for _, a := range doc.Activity {
		if a.ID > max {
			max = a.ID
		}
	}
	entry.ID = max + 1
	doc.Activity = append(doc.Activity, entry)
}

func findTask(tasks []domain.Task, id string) (domain.Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Task{}, false
}

func indexOfTask(tasks []domain.Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func taskExists(doc *domain.Document, id string) bool {
	return indexOfTask(doc.Tasks, id) >= 0
}

// touchTask refreshes updated_at on an active task if present.
func touchTask(doc *domain.Document, id string, now time.Time) {
	if idx := indexOfTask(doc.Tasks, id); idx >= 0 {
		doc.Tasks[idx].UpdatedAt = now
	}
}

func equalDueDate(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func startOfToday() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// isOverdue reports whether the task's due date is strictly before the start
// of the current day. Dates are accepted as YYYY-MM-DD or RFC 3339;
// unparseable dates are never overdue.
func isOverdue(t domain.Task, today time.Time) bool {
	if t.DueDate == nil || *t.DueDate == "" {
		return false
	}
	due, err := time.ParseInLocation("2006-01-02", *t.DueDate, today.Location())
	if err != nil {
		due, err = time.Parse(time.RFC3339, *t.DueDate)
		if err != nil {
			return false
		}
	}
	return due.Before(today)
}

// previewText returns the first max characters of text.
func previewText(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
