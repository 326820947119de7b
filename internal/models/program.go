package models

// Program is a multi-day curriculum backed by one catalog tab.
type Program struct {
	ID   string
	Days int
	Plan Plan
}

const (
	ProgramTasks30D   = "TASKS_30D"
	ProgramTasksPro60 = "TASKS_PRO_60"

	DefaultProgram = ProgramTasks30D
)

var programs = []Program{
	{ID: ProgramTasks30D, Days: 30, Plan: PlanFree},
	{ID: ProgramTasksPro60, Days: 60, Plan: PlanPro},
}

// Programs returns the registered programs in catalog lookup order.
func Programs() []Program {
	out := make([]Program, len(programs))
	copy(out, programs)
	return out
}

func LookupProgram(id string) (Program, bool) {
	for _, p := range programs {
		if p.ID == id {
			return p, true
		}
	}
	return Program{}, false
}

// Allows reports whether a user on plan may follow the program.
func (p Program) Allows(plan Plan) bool {
	return p.Plan != PlanPro || plan == PlanPro
}

// Finished reports whether day lies past the program's last day.
func (p Program) Finished(day int) bool {
	return p.Days > 0 && day > p.Days
}
