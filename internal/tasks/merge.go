package tasks

import "growth-engine/internal/models"

// Merge attaches each task's persisted status, defaulting to Pending.
// statuses are expected to belong to the same user, program and day as tasks.
func Merge(tasks []models.Task, statuses []models.UserTaskStatus) []models.TaskWithStatus {
	byTask := make(map[string]models.TaskStatus, len(statuses))
	for _, s := range statuses {
		byTask[s.TaskID] = s.Status
	}

	out := make([]models.TaskWithStatus, len(tasks))
	for i, t := range tasks {
		status, ok := byTask[t.TaskID]
		if !ok {
			status = models.StatusPending
		}
		out[i] = models.TaskWithStatus{Task: t, Status: status}
	}
	return out
}
