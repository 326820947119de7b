package tasks

import "growth-engine/internal/models"

// IsComplete reports whether a day's list is non-empty and fully settled.
func IsComplete(tasks []models.TaskWithStatus) bool {
	if len(tasks) == 0 {
		return false
	}
	for _, t := range tasks {
		if !t.Status.Settled() {
			return false
		}
	}
	return true
}
