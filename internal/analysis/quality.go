package analysis

import "fmt"

// Quality accompanies estimates whose trustworthiness depends on run
// length or on the orbit staying bounded. The numbers are always
// returned; Quality says how far to trust them.
type Quality struct {
	Converged bool     `json:"converged"`
	Diverged  bool     `json:"diverged"`
	Warnings  []string `json:"warnings,omitempty"`
}

func (q *Quality) warn(format string, args ...any) {
	q.Warnings = append(q.Warnings, fmt.Sprintf(format, args...))
}
