// internal/domain/models/task.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Task is a unit of compliance work. Tasks seeded from a TaskTemplate carry
// TemplateID; (org_id, template_id) is unique for those rows.
type Task struct {
	ID             primitive.ObjectID  `bson:"_id"`
	OrganizationID primitive.ObjectID  `bson:"org_id"`
	FrameworkID    *primitive.ObjectID `bson:"framework_id,omitempty"`
	TemplateID     *primitive.ObjectID `bson:"template_id,omitempty"`
	Title          string              `bson:"title"`
	Description    string              `bson:"description,omitempty"`
	Status         string              `bson:"status"`
	Priority       string              `bson:"priority"`
	AssigneeID     *primitive.ObjectID `bson:"assignee_id,omitempty"`
	DueDate        *time.Time          `bson:"due_date,omitempty"`
	DeletedAt      *time.Time          `bson:"deleted_at,omitempty"`
	CreatedAt      time.Time           `bson:"created_at"`
	UpdatedAt      time.Time           `bson:"updated_at"`
}

// Task statuses.
const (
	TaskTodo       = "todo"
	TaskInProgress = "in_progress"
	TaskDone       = "done"
)

// TaskStatuses lists statuses in workflow order.
var TaskStatuses = []string{TaskTodo, TaskInProgress, TaskDone}

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Priorities lists priorities from low to high.
var Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh}

// ValidTaskStatus reports whether s is a known task status.
func ValidTaskStatus(s string) bool { return contains(TaskStatuses, s) }

// ValidPriority reports whether s is a known priority.
func ValidPriority(s string) bool { return contains(Priorities, s) }
