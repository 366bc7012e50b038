package studio

import (
	"slices"
	"time"

	"github.com/sakif/code-studio/internal/editor"
	"github.com/sakif/code-studio/internal/executor"
	"github.com/sakif/code-studio/internal/model"
)

// Flow is the chat/code-modification state machine:
//
//	idle → user_submitted → awaiting_backend → {unchanged, modified, failed}
//	unchanged, failed → idle
//	modified → animating → idle
type Flow string

const (
	FlowIdle            Flow = "idle"
	FlowUserSubmitted   Flow = "user_submitted"
	FlowAwaitingBackend Flow = "awaiting_backend"
	FlowUnchanged       Flow = "unchanged"
	FlowModified        Flow = "modified"
	FlowFailed          Flow = "failed"
	FlowAnimating       Flow = "animating"
)

// Panel selects what the assistant sidebar shows.
type Panel string

const (
	PanelExplanation Panel = "explanation"
	PanelSuggestions Panel = "suggestions"
)

// CodeSuggestion is one entry of the suggestions panel.
type CodeSuggestion struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// PendingSwitch is a language change waiting for the user to decide
// whether the boilerplate replaces their code.
type PendingSwitch struct {
	Language string `json:"language"`
	Name     string `json:"name"`
	Prompt   string `json:"prompt"`
}

// State is a snapshot of one studio session. The UI renders it and nothing
// else; every change arrives as a new snapshot.
type State struct {
	Theme             string `json:"theme"`
	SidebarOpen       bool   `json:"sidebarOpen"`
	OutputSidebarOpen bool   `json:"outputSidebarOpen"`
	AssistantEnabled  bool   `json:"aiAssistantEnabled"`

	Code          string         `json:"code"`
	Language      string         `json:"language"`
	PendingSwitch *PendingSwitch `json:"pendingSwitch,omitempty"`

	Explanation  string           `json:"explanation"`
	IsExplaining bool             `json:"isExplaining"`
	Suggestions  []CodeSuggestion `json:"suggestions"`
	IsSuggesting bool             `json:"isSuggesting"`
	ActivePanel  Panel            `json:"activePanel"`

	Chat        []model.ChatMessage `json:"chatMessages"`
	IsTyping    bool                `json:"isTyping"`
	Flow        Flow                `json:"flow"`
	LastOutcome Flow                `json:"lastOutcome,omitempty"`
	IsModifying bool                `json:"isModifying"`
	Animating   bool                `json:"animating"`

	InlineEnabled    bool               `json:"inlineCompletionsEnabled"`
	InlineSuggestion *editor.Suggestion `json:"inlineSuggestion,omitempty"`

	Output    *executor.OutputView `json:"output,omitempty"`
	IsRunning bool                 `json:"isRunning"`
	IsSaving  bool                 `json:"isSaving"`

	Notifications []Notification `json:"notifications"`
	User          *model.User    `json:"user,omitempty"`
}

// clone returns a copy that shares nothing mutable with s.
func (s *State) clone() State {
	c := *s
	c.Suggestions = slices.Clone(s.Suggestions)
	c.Chat = slices.Clone(s.Chat)
	c.Notifications = slices.Clone(s.Notifications)
	for i := range c.Notifications {
		c.Notifications[i].Actions = slices.Clone(c.Notifications[i].Actions)
	}
	if s.PendingSwitch != nil {
		p := *s.PendingSwitch
		c.PendingSwitch = &p
	}
	if s.InlineSuggestion != nil {
		sg := *s.InlineSuggestion
		c.InlineSuggestion = &sg
	}
	if s.Output != nil {
		o := *s.Output
		c.Output = &o
	}
	if s.User != nil {
		u := *s.User
		c.User = &u
	}
	return c
}

func (s *State) preferences() model.Preferences {
	return model.Preferences{
		Theme:  s.Theme,
		Editor: model.EditorState{Code: s.Code, Language: s.Language},
	}
}

func defaultState() State {
	return State{
		Theme:            model.ThemeDark,
		SidebarOpen:      true,
		AssistantEnabled: true,
		Code:             editor.DefaultCode,
		Language:         editor.DefaultLanguage,
		ActivePanel:      PanelExplanation,
		Suggestions:      []CodeSuggestion{},
		Chat:             []model.ChatMessage{},
		Flow:             FlowIdle,
		Notifications:    []Notification{},
	}
}

// restore applies persisted preferences over the defaults. An empty stored
// buffer falls back to the sample program.
func (s *State) restore(p *model.Preferences) {
	if p == nil {
		return
	}
	if p.Theme == model.ThemeDark || p.Theme == model.ThemeLight {
		s.Theme = p.Theme
	}
	if p.Editor.Code != "" {
		s.Code = p.Editor.Code
	}
	if p.Editor.Language != "" && editor.IsCatalogLanguage(p.Editor.Language) {
		s.Language = p.Editor.Language
	}
}

// Level is the severity of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// MaxNotifications bounds the notification list; older entries drop off.
const MaxNotifications = 20

// Action is a button attached to a notification. Command names what the
// client should invoke when it is pressed.
type Action struct {
	Label   string `json:"label"`
	Command string `json:"command"`
}

// Commands carried by notification actions.
const (
	CommandSignIn      = "auth.sign_in"
	CommandReplaceCode = "language.replace"
	CommandKeepCode    = "language.keep"
)

// Notification is a transient user-visible message.
type Notification struct {
	ID          string    `json:"id"`
	Level       Level     `json:"level"`
	Message     string    `json:"message"`
	Description string    `json:"description,omitempty"`
	Actions     []Action  `json:"actions,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// EventType discriminates Event payloads.
type EventType string

const (
	EventState        EventType = "state"
	EventFrame        EventType = "frame"
	EventNotification EventType = "notification"
)

// Event is pushed to subscribers. State events carry a full snapshot,
// frame events the partially typed buffer of a running animation.
type Event struct {
	Type         EventType     `json:"type"`
	State        *State        `json:"state,omitempty"`
	Frame        *string       `json:"frame,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
}
