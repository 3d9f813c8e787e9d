package actions

import (
	"context"

	"github.com/dalemusser/stratagrc/internal/app/system/auditlog"
	"github.com/dalemusser/stratagrc/internal/domain/models"
)

// TaskInput is the new task form.
type TaskInput struct {
	Title       string `validate:"required,max=200" label:"Title"`
	Description string `validate:"max=5000" label:"Description"`
	Priority    string `validate:"omitempty,oneof=low medium high" label:"Priority"`
	AssigneeID  string `validate:"omitempty,objectid" label:"Assignee"`
	DueDate     string `label:"Due date"`
}

// CreateTask adds an ad hoc task.
func (a *Actions) CreateTask(ctx context.Context, actor Actor, in TaskInput) (Result, error) {
	const action = "task.create"

	trimAll(&in.Title, &in.Description, &in.Priority, &in.AssigneeID, &in.DueDate)
	if res, ok := a.validate(action, in); !ok {
		return res, nil
	}
	due, ok := parseDate(in.DueDate)
	if !ok {
		return a.invalid(action, "Due date must be a date.")
	}

	t, err := a.Tasks.Create(ctx, models.Task{
		OrganizationID: actor.OrgID,
		Title:          in.Title,
		Description:    in.Description,
		Status:         models.TaskTodo,
		Priority:       in.Priority,
		AssigneeID:     optionalID(in.AssigneeID),
		DueDate:        due,
	})
	if err != nil {
		return a.fail(action, err)
	}
	return a.done(ctx, action, actor, "task", t.ID, auditlog.Diff(nil, t))
}

// TransitionTask sets a task's status.
func (a *Actions) TransitionTask(ctx context.Context, actor Actor, taskID, status string) (Result, error) {
	const action = "task.transition"

	trimAll(&taskID, &status)
	id, ok := parseID(taskID)
	if !ok {
		return a.invalid(action, "Choose a task.")
	}
	if !models.ValidTaskStatus(status) {
		return a.invalid(action, "Choose a valid task status.")
	}

	before, err := a.Tasks.Get(ctx, actor.OrgID, id)
	if isNotFound(err) {
		return a.invalid(action, "That task no longer exists.")
	}
	if err != nil {
		return a.fail(action, err)
	}
	if before.Status == status {
		return a.invalid(action, "The task is already "+status+".")
	}

	if err := a.Tasks.SetStatus(ctx, actor.OrgID, id, status); err != nil {
		if isNotFound(err) {
			return a.invalid(action, "That task no longer exists.")
		}
		return a.fail(action, err)
	}
	after := before
	after.Status = status
	return a.done(ctx, action, actor, "task", id, auditlog.Diff(before, after))
}

// DeleteTask soft-deletes a task.
func (a *Actions) DeleteTask(ctx context.Context, actor Actor, taskID string) (Result, error) {
	const action = "task.delete"

	id, ok := parseID(taskID)
	if !ok {
		return a.invalid(action, "Choose a task.")
	}
	if err := a.Tasks.SoftDelete(ctx, actor.OrgID, id); err != nil {
		if isNotFound(err) {
			return a.invalid(action, "That task no longer exists.")
		}
		return a.fail(action, err)
	}
	return a.done(ctx, action, actor, "task", id, nil)
}
