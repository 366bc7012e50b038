// Package remote runs code on a Judge0-style compiler service.
package remote

import (
	"context"
	"fmt"

	"github.com/sakif/code-studio/internal/apiclient"
	"github.com/sakif/code-studio/internal/executor"
)

// ExecutePath is the compiler service route.
const ExecutePath = "/api/compiler/execute"

var _ executor.Executor = (*Executor)(nil)

// Envelope is the compiler service's response body.
type Envelope struct {
	Success bool             `json:"success"`
	Message string           `json:"message,omitempty"`
	Data    *executor.Result `json:"data,omitempty"`
}

type Executor struct {
	api *apiclient.Client
}

func New(api *apiclient.Client) *Executor {
	return &Executor{api: api}
}

// Endpoint is the full URL runs are sent to.
func (e *Executor) Endpoint() string {
	return e.api.BaseURL() + ExecutePath
}

func (e *Executor) Execute(ctx context.Context, req executor.Request) (*executor.Result, error) {
	var env Envelope
	if err := e.api.Post(ctx, ExecutePath, req, &env); err != nil {
		return nil, fmt.Errorf("remote executor: %w", err)
	}
	if !env.Success || env.Data == nil {
		return nil, &executor.RejectedError{Message: env.Message}
	}
	return env.Data, nil
}
