package executor

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/code-studio/internal/apiclient"
)

// OutputType drives how the output panel presents a run.
type OutputType string

const (
	OutputSuccess OutputType = "success"
	OutputError   OutputType = "error"
	OutputWarning OutputType = "warning"
	OutputInfo    OutputType = "info"
)

// OutputView is the output panel's content after a run.
type OutputView struct {
	Text      string     `json:"text"`
	Type      OutputType `json:"type"`
	Status    string     `json:"status,omitempty"`
	ElapsedMS int64      `json:"elapsedMs"`
	Time      Seconds    `json:"time,omitempty"`
	MemoryKB  int        `json:"memoryKb,omitempty"`
}

const noCodeMessage = "❌ No code to execute. Please write some code first."

// EmptyBufferView is shown when there is nothing to run.
func EmptyBufferView() OutputView {
	return OutputView{Text: noCodeMessage, Type: OutputError}
}

// ResultView renders a completed run: stdout followed by stderr, as a
// terminal would show it, without the trailing newline.
func ResultView(res *Result, elapsed time.Duration) OutputView {
	v := OutputView{
		Text:      strings.TrimRight(res.Stdout+res.Stderr, "\r\n"),
		Status:    res.Status.Description,
		ElapsedMS: elapsed.Milliseconds(),
		Time:      res.Time,
		MemoryKB:  res.Memory,
	}
	switch {
	case res.Status.ID == StatusAccepted:
		v.Type = OutputSuccess
	case res.Stderr != "":
		v.Type = OutputError
	default:
		v.Type = OutputWarning
	}
	return v
}

// FailureView renders a run that produced no result. endpoint is shown so
// the user can check the compiler service.
func FailureView(err error, elapsed time.Duration, endpoint string) OutputView {
	ms := elapsed.Milliseconds()

	var rejected *RejectedError
	if errors.As(err, &rejected) {
		msg := rejected.Message
		if msg == "" {
			msg = "Unknown error occurred"
		}
		return OutputView{
			Type:      OutputError,
			ElapsedMS: ms,
			Text: fmt.Sprintf(`❌ EXECUTION ERROR
Status: Failed
Time: %dms

💬 Error Message:
   %s

🔧 Troubleshooting:
   • Check your code syntax
   • Verify the language is supported
   • Try with simpler code first`, ms, msg),
		}
	}

	message, steps := connectionAdvice(err)
	lines := make([]string, len(steps))
	for i, s := range steps {
		lines[i] = "   • " + s
	}
	return OutputView{
		Type:      OutputError,
		ElapsedMS: ms,
		Text: fmt.Sprintf(`❌ CONNECTION ERROR
Status: Connection Failed
Time: %dms

💬 Error Message:
   %s

🔧 Troubleshooting Steps:
%s

🌐 Service URL:
   %s`, ms, message, strings.Join(lines, "\n"), endpoint),
	}
}

func connectionAdvice(err error) (string, []string) {
	status := apiclient.StatusCode(err)
	if status == 0 {
		return "No response from compiler service", []string{
			"Ensure compiler service is running",
			"Check the compiler service health endpoint",
			"Restart the compiler service",
		}
	}

	message, ok := apiclient.BackendMessage(err)
	if !ok {
		message = fmt.Sprintf("HTTP %d Error", status)
	}
	switch status {
	case 400:
		return message, []string{
			"Check your code syntax",
			"Verify the programming language",
			"Remove any invalid characters",
		}
	case 500:
		return message, []string{
			"Server error occurred",
			"Try again in a few seconds",
			"Use simpler code to test",
		}
	default:
		return message, []string{
			"Check if compiler service is running",
			"Verify your internet connection",
			"Try again",
		}
	}
}
