package task

import "time"

// Status represents the workflow state of a task. The five values below are
// the recognized board columns; unrecognized values are stored as-is.
type Status string

const (
	StatusBacklog    Status = "backlog"
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
)

// KnownStatuses returns the recognized board statuses in column order.
func KnownStatuses() []Status {
	return []Status{StatusBacklog, StatusTodo, StatusInProgress, StatusReview, StatusDone}
}

// Priority represents the urgency of a task.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// Rank returns the sort rank for a priority. Unknown priorities rank as
// normal.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 1
	case PriorityHigh:
		return 2
	case PriorityLow:
		return 4
	default:
		return 3
	}
}

// Action identifies the kind of state change an activity entry records.
type Action string

const (
	ActionCreated   Action = "created"
	ActionMoved     Action = "moved"
	ActionUpdated   Action = "updated"
	ActionArchived  Action = "archived"
	ActionRestored  Action = "restored"
	ActionCommented Action = "commented"
	ActionLinked    Action = "linked"
	ActionUnlinked  Action = "unlinked"
)

// Task is the primary trackable work item.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	Project     string     `json:"project"`
	Assignee    string     `json:"assignee"`
	DueDate     *string    `json:"due_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CreatedBy   string     `json:"created_by"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
}

// ActivityEntry is an immutable audit record of one state change to a task.
type ActivityEntry struct {
	ID         int64     `json:"id"`
	TaskID     string    `json:"task_id"`
	Action     Action    `json:"action"`
	FromStatus Status    `json:"from_status,omitempty"`
	ToStatus   Status    `json:"to_status,omitempty"`
	By         string    `json:"by"`
	Note       string    `json:"note"`
	CreatedAt  time.Time `json:"created_at"`
}

// Comment is a free-text note attached to a task. Comments are owned by
// their task and removed when it is permanently deleted.
type Comment struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	Text      string    `json:"text"`
	By        string    `json:"by"`
	CreatedAt time.Time `json:"created_at"`
}

// DocumentLink associates a task with an external reference document. A
// given path may be linked at most once per task.
type DocumentLink struct {
	Path     string    `json:"path"`
	Title    string    `json:"title"`
	Type     string    `json:"type"`
	LinkedAt time.Time `json:"linkedAt"`
}

// Document is the full persisted snapshot. A task lives in exactly one of
// Tasks or Archived at any time.
type Document struct {
	Tasks         []Task                    `json:"tasks"`
	Activity      []ActivityEntry           `json:"activity"`
	Archived      []Task                    `json:"archived"`
	Comments      []Comment                 `json:"comments"`
	TaskDocuments map[string][]DocumentLink `json:"taskDocuments"`
}

// NewDocument returns an empty snapshot with all collections initialized.
func NewDocument() *Document {
	return &Document{
		Tasks:         []Task{},
		Activity:      []ActivityEntry{},
		Archived:      []Task{},
		Comments:      []Comment{},
		TaskDocuments: map[string][]DocumentLink{},
	}
}
