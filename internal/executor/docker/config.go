package docker

import (
	"time"
)

// Runtime describes how one language runs inside a sandbox container.
type Runtime struct {
	// Image is the Docker image to use for execution.
	Image string
	// Command builds the exec argv for a source file's contents.
	Command func(source string) []string
}

// Config holds the configuration for Docker execution.
type Config struct {
	// Runtimes maps a language ID to its sandbox runtime.
	Runtimes map[string]Runtime
	// MemoryLimit is the maximum amount of memory a container can use (in bytes).
	MemoryLimit int64
	// CPULimit is the number of CPUs a container can use.
	CPULimit float64
	// Timeout is the maximum amount of time one run can take.
	Timeout time.Duration
	// PoolSize is the number of pre-warmed containers kept per runtime.
	PoolSize int
}

// DefaultConfig sandboxes the two interpreted languages of the editor.
func DefaultConfig() Config {
	return Config{
		Runtimes: map[string]Runtime{
			"python": {
				Image:   "python:3.12-alpine",
				Command: func(src string) []string { return []string{"python", "-c", src} },
			},
			"javascript": {
				Image:   "node:22-alpine",
				Command: func(src string) []string { return []string{"node", "-e", src} },
			},
		},
		MemoryLimit: 128 * 1024 * 1024,
		CPULimit:    0.5,
		Timeout:     5 * time.Second,
		PoolSize:    3,
	}
}
