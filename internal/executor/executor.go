// Package executor defines the CodeExecutor capability and the rendering
// of its results into the studio's output panel.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Judge0-compatible status identifiers.
const (
	StatusAccepted         = 3
	StatusTimeLimit        = 5
	StatusCompilationError = 6
	StatusRuntimeError     = 11
)

// Request is one program to run.
type Request struct {
	SourceCode string `json:"sourceCode"`
	Language   string `json:"language"`
}

// Status is the compiler's verdict.
type Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// Result is what a finished run produced.
type Result struct {
	Stdout string  `json:"stdout"`
	Stderr string  `json:"stderr"`
	Status Status  `json:"status"`
	Time   Seconds `json:"time"`
	Memory int     `json:"memory"` // KB, 0 when unknown
}

// Executor runs code in an isolated environment.
type Executor interface {
	Execute(ctx context.Context, req Request) (*Result, error)
}

// RejectedError means the compiler answered but refused the run
// (unsupported language, malformed source, ...).
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return "execution rejected"
	}
	return "execution rejected: " + e.Message
}

// Seconds is a duration in seconds. Judge0 reports it as a JSON string
// ("0.023"); plain numbers are accepted too.
type Seconds float64

func (s *Seconds) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(b), `"`)
	if raw == "" || raw == "null" {
		*s = 0
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("executor: parsing time %q: %w", raw, err)
	}
	*s = Seconds(f)
	return nil
}

func (s Seconds) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatFloat(float64(s), 'f', 3, 64))
}
