// Package matcher selects the catalog tasks that apply to a user on a given
// program day.
package matcher

import (
	"sort"
	"strconv"
	"strings"

	"growth-engine/internal/models"
)

const (
	WildcardPlatform = "BOTH"
	Wildcard         = "ALL"
)

// Attributes is the user side of a match. Empty fields are unset and match
// every row.
type Attributes struct {
	Platforms    []string
	ProductTypes []string
	Goals        []string
	TimeMode     string
	Level        string
}

// FromOnboarding builds match attributes from a stored onboarding. A nil
// onboarding yields attributes that match everything.
func FromOnboarding(o *models.Onboarding) Attributes {
	if o == nil {
		return Attributes{}
	}
	return Attributes{
		Platforms:    o.Platform,
		ProductTypes: o.ProductType,
		Goals:        o.Goal,
		TimeMode:     string(o.TimeMode),
		Level:        o.Level,
	}
}

// Match returns the tasks of day that fit attrs, ordered by task_order with
// ties kept in catalog order. The catalog slice is not modified.
func Match(catalog []models.Task, day int, attrs Attributes) []models.Task {
	out := make([]models.Task, 0)
	for _, t := range catalog {
		if t.Day != day {
			continue
		}
		if Matches(t, attrs) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TaskOrder < out[j].TaskOrder
	})
	return out
}

// Matches reports whether every attribute dimension of t accepts attrs.
func Matches(t models.Task, attrs Attributes) bool {
	return matchSet(t.Platform, attrs.Platforms, WildcardPlatform) &&
		matchSet(t.ProductType, attrs.ProductTypes, Wildcard) &&
		matchSet(t.Goal, attrs.Goals, Wildcard) &&
		matchTimeMode(t.TimeMode, attrs.TimeMode) &&
		matchOne(t.Level, attrs.Level, Wildcard)
}

func matchSet(rowValue string, user []string, wildcard string) bool {
	row := canon(rowValue)
	if row == "" || row == wildcard {
		return true
	}
	set := false
	for _, u := range user {
		u = canon(u)
		if u == "" {
			continue
		}
		set = true
		if u == wildcard || u == row {
			return true
		}
	}
	return !set
}

func matchOne(rowValue, user, wildcard string) bool {
	row, u := canon(rowValue), canon(user)
	return row == "" || row == wildcard || u == "" || u == wildcard || row == u
}

func matchTimeMode(rowValue, user string) bool {
	row, u := canon(rowValue), canon(user)
	if row == "" || row == Wildcard || u == "" || u == Wildcard {
		return true
	}
	rn, rerr := strconv.ParseFloat(row, 64)
	un, uerr := strconv.ParseFloat(u, 64)
	if rerr == nil && uerr == nil {
		return rn == un
	}
	return row == u
}

func canon(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
