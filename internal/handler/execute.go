package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/code-studio/internal/executor"
	"github.com/sakif/code-studio/internal/executor/remote"
)

// ExecuteHandler serves the compiler endpoint over the configured executor,
// in the same envelope the remote compiler uses. A studio pointed at this
// server with EXECUTOR=remote therefore runs code on this server's backend.
type ExecuteHandler struct {
	exec   executor.Executor
	logger *slog.Logger
}

// NewExecuteHandler creates an ExecuteHandler. exec may be nil when no
// backend is available; every run then answers 503.
func NewExecuteHandler(exec executor.Executor, logger *slog.Logger) *ExecuteHandler {
	return &ExecuteHandler{
		exec:   exec,
		logger: logger,
	}
}

// HandleExecute runs one program.
//
// HTTP: POST /api/compiler/execute {"sourceCode": "...", "language": "python"}
// RESPONSE: {"success": true, "data": {"stdout": "...", "status": {"id": 3, ...}, ...}}
//
// A refused run (unsupported language, empty source) answers 200 with
// success:false and a message, as the compiler does.
func (h *ExecuteHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	var req executor.Request
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid execution request body", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, remote.Envelope{Message: "invalid request body"})
		return
	}

	if strings.TrimSpace(req.SourceCode) == "" {
		writeJSON(w, http.StatusBadRequest, remote.Envelope{Message: "sourceCode cannot be empty"})
		return
	}
	if h.exec == nil {
		writeJSON(w, http.StatusServiceUnavailable, remote.Envelope{Message: "no code executor is available"})
		return
	}

	h.logger.Info("executing code snippet", slog.String("language", req.Language))

	result, err := h.exec.Execute(r.Context(), req)
	if err != nil {
		var rejected *executor.RejectedError
		if errors.As(err, &rejected) {
			writeJSON(w, http.StatusOK, remote.Envelope{Message: rejected.Message})
			return
		}
		h.logger.Error("code execution failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, remote.Envelope{Message: "internal server error during execution"})
		return
	}

	writeJSON(w, http.StatusOK, remote.Envelope{Success: true, Data: result})
}
