package catalog

import (
	"strconv"
	"strings"

	"growth-engine/internal/models"
)

// Normalize turns a raw sheet grid (first row = headers) into typed tasks.
// Headers and cells are trimmed, headers lower-cased, rows with no content
// dropped, and numeric columns parsed with a fallback of 0.
func Normalize(values [][]string) []models.Task {
	if len(values) < 2 {
		return []models.Task{}
	}

	headers := make([]string, len(values[0]))
	for i, h := range values[0] {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}

	tasks := make([]models.Task, 0, len(values)-1)
	for _, row := range values[1:] {
		if blankRow(row) {
			continue
		}
		rec := make(map[string]string, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			if i < len(row) {
				rec[h] = strings.TrimSpace(row[i])
			} else {
				rec[h] = ""
			}
		}
		tasks = append(tasks, taskFromRecord(rec))
	}
	return tasks
}

func taskFromRecord(r map[string]string) models.Task {
	return models.Task{
		Day:           toInt(r["day"]),
		TaskID:        r["task_id"],
		TaskOrder:     toInt(r["task_order"]),
		TaskType:      r["task_type"],
		Title:         r["title"],
		Instructions:  r["instructions"],
		EstimatedTime: toInt(r["estimated_time"]),

		Platform:    r["platform"],
		ProductType: r["product_type"],
		Goal:        r["goal"],
		TimeMode:    r["time_mode"],
		Level:       r["level"],

		KPIName:        r["kpi_name"],
		KPITarget:      toInt(r["kpi_target"]),
		FallbackTaskID: r["fallback_task_id"],
		CriticalTask:   r["critical_task"],

		AISupportAvailable: r["ai_support_available"],
		AIFeatureID:        r["ai_feature_id"],
		AIFeatureLabel:     r["ai_feature_label"],
		AIPromptTemplate:   r["ai_prompt_template"],
		AIVariables:        r["ai_variables"],
		AIOutputType:       r["ai_output_type"],
		AIComplexity:       r["ai_complexity"],
		AIVisibleTrigger:   r["ai_visible_trigger"],

		ProOnly:     r["pro_only"],
		CreditsCost: toInt(r["credits_cost"]),
		UnlockType:  r["unlock_type"],
	}
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// toInt parses the leading integer of s ("15 min" -> 15). Anything without a
// leading integer is 0.
func toInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' || (end == 0 && (c == '-' || c == '+')) {
			end++
			continue
		}
		break
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
