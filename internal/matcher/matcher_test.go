package matcher

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growth-engine/internal/models"
)

func TestMatch_LiteralExample(t *testing.T) {
	row := models.Task{
		Day: 1, TaskID: "T1", Platform: "BOTH", ProductType: "ALL", Goal: "ALL",
		TimeMode: "30", Level: "BEGINNER", TaskOrder: 2,
	}
	user := Attributes{
		Platforms:    []string{"IG"},
		ProductTypes: []string{"DIGITAL"},
		Goals:        []string{"SALES"},
		TimeMode:     "30",
		Level:        "BEGINNER",
	}

	got := Match([]models.Task{row}, 1, user)
	require.Len(t, got, 1)
	assert.Equal(t, "T1", got[0].TaskID)

	assert.Empty(t, Match([]models.Task{row}, 2, user))
}

func TestMatch_Dimensions(t *testing.T) {
	user := Attributes{
		Platforms:    []string{"IG", "TT"},
		ProductTypes: []string{"DIGITAL"},
		Goals:        []string{"SALES", "BRAND"},
		TimeMode:     "15",
		Level:        "BEGINNER",
	}

	tests := []struct {
		name string
		task models.Task
		want bool
	}{
		{"platform in set", models.Task{Platform: "tt"}, true},
		{"platform outside set", models.Task{Platform: "YT"}, false},
		{"product mismatch", models.Task{ProductType: "PHYSICAL"}, false},
		{"goal in set", models.Task{Goal: " brand "}, true},
		{"time mode numeric", models.Task{TimeMode: "015"}, true},
		{"time mode mismatch", models.Task{TimeMode: "30"}, false},
		{"time mode fractional form", models.Task{TimeMode: "15.0"}, true},
		{"level mismatch", models.Task{Level: "ADVANCED"}, false},
		{"blank row values", models.Task{}, true},
		{"all wildcards", models.Task{Platform: "BOTH", ProductType: "ALL", Goal: "ALL", TimeMode: "ALL", Level: "ALL"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.task, user))
		})
	}
}

func TestMatch_TimeModeNumericEquality(t *testing.T) {
	row := models.Task{Day: 1, TaskID: "T1", TimeMode: "30"}
	assert.True(t, Matches(row, Attributes{TimeMode: "30.0"}))

	row.TimeMode = "30.0"
	assert.True(t, Matches(row, Attributes{TimeMode: "30"}))
	assert.False(t, Matches(row, Attributes{TimeMode: "30.5"}))
}

func TestMatch_UnsetAndWildcardUser(t *testing.T) {
	row := models.Task{Platform: "IG", ProductType: "PHYSICAL", Goal: "SALES", TimeMode: "60", Level: "PRO"}

	assert.True(t, Matches(row, Attributes{}))
	assert.True(t, Matches(row, FromOnboarding(nil)))
	assert.True(t, Matches(row, Attributes{
		Platforms:    []string{"BOTH"},
		ProductTypes: []string{"ALL"},
		Goals:        []string{"ALL"},
		TimeMode:     "ALL",
		Level:        "ALL",
	}))
	assert.False(t, Matches(row, Attributes{Platforms: []string{"TT"}}))
}

func TestMatch_SortStable(t *testing.T) {
	catalog := []models.Task{
		{Day: 3, TaskID: "c", TaskOrder: 2},
		{Day: 3, TaskID: "a", TaskOrder: 1},
		{Day: 4, TaskID: "x", TaskOrder: 0},
		{Day: 3, TaskID: "b", TaskOrder: 1},
		{Day: 3, TaskID: "d", TaskOrder: 2},
	}
	got := Match(catalog, 3, Attributes{})

	ids := make([]string, len(got))
	for i, t := range got {
		ids[i] = t.TaskID
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids)
	assert.Equal(t, "c", catalog[0].TaskID, "catalog must not be reordered")
}

func TestMatch_NoTasks(t *testing.T) {
	got := Match(nil, 1, Attributes{})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

// Randomized check against a direct reading of the matching rule.
func TestMatch_Property(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	platforms := []string{"", "BOTH", "IG", "TT"}
	values := []string{"", "ALL", "A", "B"}
	times := []string{"", "ALL", "15", "30", "60"}

	pick := func(opts []string) string { return opts[rng.Intn(len(opts))] }
	pickSet := func(opts []string) []string {
		n := rng.Intn(3)
		out := make([]string, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, pick(opts))
		}
		return out
	}

	agrees := func(row string, user []string, wildcard string) bool {
		if row == "" || row == wildcard {
			return true
		}
		var set []string
		for _, u := range user {
			if u != "" {
				set = append(set, u)
			}
		}
		return len(set) == 0 || slices.Contains(set, wildcard) || slices.Contains(set, row)
	}

	for i := 0; i < 5000; i++ {
		task := models.Task{
			Day:         1,
			Platform:    pick(platforms),
			ProductType: pick(values),
			Goal:        pick(values),
			TimeMode:    pick(times),
			Level:       pick(values),
		}
		attrs := Attributes{
			Platforms:    pickSet(platforms),
			ProductTypes: pickSet(values),
			Goals:        pickSet(values),
			TimeMode:     pick(times),
			Level:        pick(values),
		}

		want := agrees(task.Platform, attrs.Platforms, WildcardPlatform) &&
			agrees(task.ProductType, attrs.ProductTypes, Wildcard) &&
			agrees(task.Goal, attrs.Goals, Wildcard) &&
			agrees(task.TimeMode, []string{attrs.TimeMode}, Wildcard) &&
			agrees(task.Level, []string{attrs.Level}, Wildcard)

		got := len(Match([]models.Task{task}, 1, attrs)) == 1
		require.Equal(t, want, got, "task %+v attrs %+v", task, attrs)
	}
}
