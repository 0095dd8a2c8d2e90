package models

import "time"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// Task is owned by exactly one user. Optional columns are nil when unset.
type Task struct {
	ID            int64
	UserID        int64
	Title         string
	Description   *string
	Priority      Priority
	Status        TaskStatus
	DueDate       *time.Time
	Project       *string
	Tags          []string
	ExtractedFrom *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
