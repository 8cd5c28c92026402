package events

import (
	"time"

	domain "github.com/example/taskboard/domain/task"
	"github.com/go-monolith/mono/pkg/helper"
)

// TaskEvent is the payload for all task mutation events. Kind matches the
// push-channel message suffix ("created", "updated", ...). Extra carries
// mutation-specific fields such as the comment for "commented".
type TaskEvent struct {
	Kind      string         `json:"kind"`
	Task      domain.Task    `json:"task"`
	Extra     map[string]any `json:"extra,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Event definitions for the task domain.
var (
	TaskCreatedV1 = helper.EventDefinition[TaskEvent](
		"task",
		"TaskCreated",
		"v1",
	)

	TaskUpdatedV1 = helper.EventDefinition[TaskEvent](
		"task",
		"TaskUpdated",
		"v1",
	)

	TaskArchivedV1 = helper.EventDefinition[TaskEvent](
		"task",
		"TaskArchived",
		"v1",
	)

	TaskRestoredV1 = helper.EventDefinition[TaskEvent](
		"task",
		"TaskRestored",
		"v1",
	)

	TaskDeletedV1 = helper.EventDefinition[TaskEvent](
		"task",
		"TaskDeleted",
		"v1",
	)

	TaskCommentedV1 = helper.EventDefinition[TaskEvent](
		"task",
		"TaskCommented",
		"v1",
	)
)
