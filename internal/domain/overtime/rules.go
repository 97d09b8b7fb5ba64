package overtime

import (
	"fmt"

	"timesheet/internal/domain/calendar"
)

// StandardWorkdayHours is the threshold above which weekday hours count as overtime.
const StandardWorkdayHours = 8.0

type Reason string

const (
	ReasonWeekend     Reason = "weekend"
	ReasonHoliday     Reason = "holiday"
	ReasonExcessHours Reason = "excess_hours"
)

func (r Reason) IsValid() bool {
	switch r {
	case ReasonWeekend, ReasonHoliday, ReasonExcessHours:
		return true
	}
	return false
}

type Result struct {
	OvertimeHours float64 `json:"overtimeHours"`
	IsOvertime    bool    `json:"isOvertime"`
	Reason        *Reason `json:"reason,omitempty"`
	Explanation   string  `json:"explanation,omitempty"`
}

// Rules holds the configurable part of the overtime rules.
type Rules struct {
	StandardHours float64
}

var DefaultRules = Rules{StandardHours: StandardWorkdayHours}

// ClassifyOvertime applies DefaultRules.
func ClassifyOvertime(hoursWorked float64, c calendar.Classification) Result {
	return DefaultRules.Classify(hoursWorked, c)
}

// Classify returns the overtime for one day's hours. Holiday beats weekend,
// which beats excess hours; the first matching rule wins.
func (r Rules) Classify(hoursWorked float64, c calendar.Classification) Result {
	if hoursWorked <= 0 {
		return Result{}
	}
	standard := r.StandardHours
	if standard <= 0 {
		standard = StandardWorkdayHours
	}

	switch {
	case c.IsHoliday:
		name := ""
		if c.HolidayName != nil {
			name = *c.HolidayName
		}
		return result(hoursWorked, ReasonHoliday, fmt.Sprintf("Public holiday work (%s) - all hours counted as overtime", name))
	case c.IsWeekend:
		return result(hoursWorked, ReasonWeekend, "Weekend work - all hours counted as overtime")
	case hoursWorked > standard:
		return result(hoursWorked-standard, ReasonExcessHours, fmt.Sprintf("Excess hours beyond standard %g-hour workday", standard))
	}
	return Result{}
}

func result(hours float64, reason Reason, explanation string) Result {
	return Result{
		OvertimeHours: hours,
		IsOvertime:    hours > 0,
		Reason:        &reason,
		Explanation:   explanation,
	}
}

// Breakdown sums entry hours per reason.
type Breakdown struct {
	Weekend float64 `json:"weekend"`
	Holiday float64 `json:"holiday"`
	Excess  float64 `json:"excess"`
	Total   float64 `json:"total"`
}

func BreakdownOf(entries []Entry) Breakdown {
	var b Breakdown
	for _, e := range entries {
		switch e.Reason {
		case ReasonWeekend:
			b.Weekend += e.Hours
		case ReasonHoliday:
			b.Holiday += e.Hours
		case ReasonExcessHours:
			b.Excess += e.Hours
		}
		b.Total += e.Hours
	}
	return b
}
