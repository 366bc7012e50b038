package editor

import "fmt"

// SwitchDecision is the outcome of selecting a new language.
//
// The language always changes. When the buffer is blank its boilerplate
// is loaded at once (Replaced); otherwise the user is asked whether to
// replace the existing code (NeedsConfirmation).
type SwitchDecision struct {
	Language          string
	Name              string
	Replaced          bool
	NeedsConfirmation bool
	Code              string // new buffer content when Replaced
}

// DecideSwitch chooses what selecting target does to currentCode.
func DecideSwitch(currentCode, target string) SwitchDecision {
	d := SwitchDecision{Language: target, Name: DisplayName(target)}
	if IsBlank(currentCode) {
		d.Replaced = true
		d.Code = Boilerplate(target)
		return d
	}
	d.NeedsConfirmation = true
	return d
}

// ConfirmPrompt is the question shown while a switch awaits confirmation.
func (d SwitchDecision) ConfirmPrompt() string {
	return fmt.Sprintf("Replace with %s boilerplate?", d.Name)
}

// ReplacedMessage confirms a switch that loaded the boilerplate.
func ReplacedMessage(name string) string {
	return fmt.Sprintf("Switched to %s with boilerplate code!", name)
}

// KeptMessage confirms a switch that preserved the user's code.
func KeptMessage(name string) string {
	return fmt.Sprintf("Language changed to %s, code preserved", name)
}
