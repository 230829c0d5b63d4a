package model

import "time"

type TaskStatus string

const (
	StatusPending       TaskStatus = "pending"
	StatusInitializing  TaskStatus = "initializing"
	StatusSearching     TaskStatus = "searching"
	StatusCommunicating TaskStatus = "communicating"
	StatusComparing     TaskStatus = "comparing"
	StatusCompleted     TaskStatus = "completed"
	StatusFailed        TaskStatus = "failed"
)

func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task is the progress record of one comparison run. It is handled as a value
// so a snapshot can never change under a reader.
type Task struct {
	ID        string     `json:"task_id"`
	Query     string     `json:"query"`
	MaxPrice  float64    `json:"max_price"`
	Status    TaskStatus `json:"status"`
	Progress  float64    `json:"progress"`
	Message   string     `json:"message"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Result is set once, when the task reaches a terminal state.
	Result *Result `json:"result,omitempty"`
}

// Result is what a comparison run hands back to its caller.
type Result struct {
	TaskID       string               `json:"task_id"`
	Success      bool                 `json:"success"`
	Products     []Candidate          `json:"products"`
	Negotiations []NegotiationOutcome `json:"negotiations"`
	BestDeal     *Deal                `json:"best_deal"`
	Error        string               `json:"error,omitempty"`
}

// TaskRecord is the persisted summary of a finished task.
type TaskRecord struct {
	ID          string     `json:"task_id"`
	Query       string     `json:"query"`
	MaxPrice    float64    `json:"max_price"`
	Status      TaskStatus `json:"status"`
	Message     string     `json:"message"`
	BestItemID  *string    `json:"best_item_id,omitempty"`
	BestPrice   *float64   `json:"best_price,omitempty"`
	ListedPrice *float64   `json:"listed_price,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// History is everything stored about one task.
type History struct {
	Task         TaskRecord       `json:"task"`
	Negotiations []NegotiationLog `json:"negotiations"`
	Messages     []Message        `json:"messages"`
}
