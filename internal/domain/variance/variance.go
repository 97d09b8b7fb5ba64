package variance

// Result compares expected against actual hours. A positive Variance means
// more hours than expected.
type Result struct {
	Expected           float64 `json:"expected"`
	Actual             float64 `json:"actual"`
	Variance           float64 `json:"variance"`
	VariancePercentage float64 `json:"variancePercentage"`
	AtRisk             bool    `json:"atRisk"`
}

func Compute(expected, actual float64) Result {
	r := Result{
		Expected: expected,
		Actual:   actual,
		Variance: actual - expected,
	}
	if expected != 0 {
		r.VariancePercentage = r.Variance / expected * 100
	}
	r.AtRisk = r.Variance > 0
	return r
}

type EmployeeMonth struct {
	EmployeeID    string  `json:"employeeId"`
	EmployeeName  string  `json:"employeeName,omitempty"`
	Department    string  `json:"department,omitempty"`
	Year          int     `json:"year"`
	Month         int     `json:"month"`
	WorkingDays   int     `json:"workingDays"`
	OvertimeHours float64 `json:"overtimeHours"`
	Result
}

type TaskVariance struct {
	TaskID   string `json:"taskId"`
	TaskName string `json:"taskName"`
	// Estimated is false when the task has no estimate; Result.Expected is then 0.
	Estimated bool `json:"estimated"`
	Result
}

type ProjectVariance struct {
	ProjectID   string         `json:"projectId"`
	ProjectName string         `json:"projectName"`
	Tasks       []TaskVariance `json:"tasks"`
	Total       Result         `json:"total"`
}
