package schemas

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusCancelled TaskStatus = "cancelled"
	TaskStatusFailed    TaskStatus = "failed"
)

// Terminal reports whether no further status transitions can occur.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusCancelled, TaskStatusFailed:
		return true
	}
	return false
}

type ProgressInfo struct {
	CurrentStep    string `json:"current_step"`
	StepNumber     int    `json:"step_number"`
	TotalSteps     int    `json:"total_steps"`
	PapersScreened *int   `json:"papers_screened,omitempty"`
	TotalPapers    *int   `json:"total_papers,omitempty"`
	Message        string `json:"message,omitempty"`
}

type TaskStartResponse struct {
	TaskID string     `json:"task_id"`
	Status TaskStatus `json:"status"`
}

type TaskStatusResponse struct {
	TaskID     string          `json:"task_id"`
	Status     TaskStatus      `json:"status"`
	CreatedAt  string          `json:"created_at,omitempty"`
	StartedAt  string          `json:"started_at,omitempty"`
	FinishedAt string          `json:"finished_at,omitempty"`
	Progress   *ProgressInfo   `json:"progress,omitempty"`
	Result     *SearchResponse `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
}

type TaskCancelResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}
