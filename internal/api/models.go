package api

import (
	"time"

	"github.com/luispater/pagechain/internal/page"
	"github.com/luispater/pagechain/internal/runner"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

// RequestTask represents a queued chain run
type RequestTask struct {
	ID        string             `json:"id"`
	Chain     string             `json:"chain"`
	Params    page.Params        `json:"-"`
	Response  chan *TaskResponse `json:"-"`
	CreatedAt time.Time          `json:"created_at"`
}

// TaskResponse represents the response from processing a task
type TaskResponse struct {
	Success bool                 `json:"success"`
	Result  *runner.RunnerResult `json:"-"`
	Error   error                `json:"-"`
}

// RunRecord is one entry of the run history.
type RunRecord struct {
	ID         string            `json:"id"`
	Chain      string            `json:"chain"`
	Success    bool              `json:"success"`
	Error      string            `json:"error,omitempty"`
	Pages      []page.Key        `json:"pages"`
	Final      page.Key          `json:"final,omitempty"`
	URL        string            `json:"url,omitempty"`
	Title      string            `json:"title,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
	DurationMs int64             `json:"duration_ms"`
	CreatedAt  time.Time         `json:"created_at"`
}
