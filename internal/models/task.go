package models

import "time"

// Task is one row of a program's catalog tab after normalization.
type Task struct {
	Day           int    `json:"day"`
	TaskID        string `json:"task_id"`
	TaskOrder     int    `json:"task_order"`
	TaskType      string `json:"task_type"`
	Title         string `json:"title"`
	Instructions  string `json:"instructions"`
	EstimatedTime int    `json:"estimated_time"`

	Platform    string `json:"platform"`
	ProductType string `json:"product_type"`
	Goal        string `json:"goal"`
	TimeMode    string `json:"time_mode"`
	Level       string `json:"level"`

	KPIName        string `json:"kpi_name,omitempty"`
	KPITarget      int    `json:"kpi_target"`
	FallbackTaskID string `json:"fallback_task_id,omitempty"`
	CriticalTask   string `json:"critical_task,omitempty"`

	AISupportAvailable string `json:"ai_support_available,omitempty"`
	AIFeatureID        string `json:"ai_feature_id,omitempty"`
	AIFeatureLabel     string `json:"ai_feature_label,omitempty"`
	AIPromptTemplate   string `json:"ai_prompt_template,omitempty"`
	AIVariables        string `json:"ai_variables,omitempty"`
	AIOutputType       string `json:"ai_output_type,omitempty"`
	AIComplexity       string `json:"ai_complexity,omitempty"`
	AIVisibleTrigger   string `json:"ai_visible_trigger,omitempty"`

	ProOnly     string `json:"pro_only,omitempty"`
	CreditsCost int    `json:"credits_cost"`
	UnlockType  string `json:"unlock_type,omitempty"`
}

type TaskStatus string

const (
	StatusPending  TaskStatus = "Pending"
	StatusDone     TaskStatus = "Done"
	StatusSkipped  TaskStatus = "Skipped"
	StatusDeferred TaskStatus = "Deferred"
)

// ParseTaskStatus accepts exactly the four status names.
func ParseTaskStatus(s string) (TaskStatus, bool) {
	switch TaskStatus(s) {
	case StatusPending, StatusDone, StatusSkipped, StatusDeferred:
		return TaskStatus(s), true
	}
	return "", false
}

// Settled reports whether the status counts towards completing a day.
func (s TaskStatus) Settled() bool {
	return s == StatusDone || s == StatusSkipped || s == StatusDeferred
}

// TaskWithStatus is a catalog task merged with the user's persisted status.
type TaskWithStatus struct {
	Task
	Status TaskStatus `json:"status"`
}

// UserTaskStatus is the persisted status of one task for one user on one
// program day.
type UserTaskStatus struct {
	ID          int64      `json:"id"`
	UserID      string     `json:"userId"`
	TaskID      string     `json:"taskId"`
	Day         int        `json:"day"`
	ProgramID   string     `json:"programId"`
	Status      TaskStatus `json:"status"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
