package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

type Plan string

const (
	PlanFree Plan = "FREE"
	PlanPro  Plan = "PRO"
)

type Profile struct {
	ID             string      `json:"id"`
	Email          string      `json:"email"`
	Plan           Plan        `json:"plan"`
	CreditsBalance int         `json:"creditsBalance"`
	CurrentProgram string      `json:"currentProgram"`
	CurrentDay     int         `json:"currentDay"`
	Onboarding     *Onboarding `json:"onboarding"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

func (p *Profile) IsPro() bool {
	return p != nil && p.Plan == PlanPro
}

// Onboarding is the attribute vector collected by the onboarding form.
type Onboarding struct {
	Platform    []string `json:"platform"`
	ProductType []string `json:"productType"`
	Goal        []string `json:"goal"`
	TimeMode    TimeMode `json:"timeMode"`
	Level       string   `json:"level"`
	Target      string   `json:"target,omitempty"`
	Tone        string   `json:"tone,omitempty"`
}

// Normalize trims and upper-cases the matchable attributes and drops empty
// set members.
func (o *Onboarding) Normalize() {
	o.Platform = normalizeSet(o.Platform)
	o.ProductType = normalizeSet(o.ProductType)
	o.Goal = normalizeSet(o.Goal)
	o.TimeMode = canonicalTimeMode(string(o.TimeMode))
	o.Level = strings.ToUpper(strings.TrimSpace(o.Level))
	o.Target = strings.TrimSpace(o.Target)
	o.Tone = strings.TrimSpace(o.Tone)
}

func normalizeSet(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.ToUpper(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// TimeMode is the minutes-per-day the user committed to. Clients send it
// either as a JSON number or a string; it is kept as its string form.
type TimeMode string

func (t *TimeMode) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*t = canonicalTimeMode(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = canonicalTimeMode(s)
	return nil
}

// canonicalTimeMode stores integral numbers without a fraction so 30.0 and 30
// are the same mode.
func canonicalTimeMode(s string) TimeMode {
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err == nil && f == math.Trunc(f) && math.Abs(f) < 1e9 {
		return TimeMode(strconv.Itoa(int(f)))
	}
	return TimeMode(s)
}

func (t TimeMode) MarshalJSON() ([]byte, error) {
	if t == "" {
		return []byte("null"), nil
	}
	if n, err := strconv.Atoi(string(t)); err == nil {
		return []byte(strconv.Itoa(n)), nil
	}
	return json.Marshal(string(t))
}

// KPIMetrics are the self-reported numbers for a day.
type KPIMetrics struct {
	ConversationsCount *int   `json:"conversationsCount,omitempty"`
	DMSent             *int   `json:"dmSent,omitempty"`
	InterestedContacts *int   `json:"interestedContacts,omitempty"`
	SalesCount         *int   `json:"salesCount,omitempty"`
	Notes              string `json:"notes,omitempty"`
}

type KPIEntry struct {
	ID        int64      `json:"id"`
	UserID    string     `json:"userId"`
	Day       int        `json:"day"`
	ProgramID string     `json:"programId"`
	Data      KPIMetrics `json:"data"`
	CreatedAt time.Time  `json:"createdAt"`
}
