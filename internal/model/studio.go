package model

import "time"

// MessageType distinguishes the two authors of a chat transcript.
type MessageType string

const (
	MessageUser MessageType = "user"
	MessageAI   MessageType = "ai"
)

// ChatMessage is one entry of the assistant conversation. Messages are
// append-only and ordered by insertion.
type ChatMessage struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// Theme values.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// EditorState is the persisted part of the editor surface.
type EditorState struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

// Preferences is everything restored when a studio session starts.
type Preferences struct {
	Theme  string      `json:"theme"`
	Editor EditorState `json:"editor"`
}

// Position is a 1-based cursor location in the editor buffer.
type Position struct {
	LineNumber int `json:"lineNumber"`
	Column     int `json:"column"`
}

// APIKeyStatus describes whether a user relies on their own assistant key.
type APIKeyStatus struct {
	HasAPIKey      bool   `json:"hasApiKey"`
	MaskedKey      string `json:"maskedKey,omitempty"`
	UsingSharedKey bool   `json:"usingSharedKey"`
}
