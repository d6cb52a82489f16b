package internal

import (
	"encoding/json"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleFunction  Role = "function"
)

// Message represents a single turn in a conversation. Messages are
// constructed once and never mutated; a session only appends them.
type Message struct {
	Role         Role            `json:"role" yaml:"role"`
	Content      string          `json:"content" yaml:"content"`
	Name         string          `json:"name,omitempty" yaml:"name,omitempty"`
	FunctionCall json.RawMessage `json:"function_call,omitempty" yaml:"function_call,omitempty"`
	ReceivedAt   time.Time       `json:"received_at" yaml:"received_at"`
	FinishReason string          `json:"finish_reason,omitempty" yaml:"finish_reason,omitempty"`

	// Token accounting. Zero means the provider did not report usage
	// (streamed and tool-selection messages never carry counts).
	PromptLength     int `json:"prompt_length,omitempty" yaml:"prompt_length,omitempty"`
	CompletionLength int `json:"completion_length,omitempty" yaml:"completion_length,omitempty"`
	TotalLength      int `json:"total_length,omitempty" yaml:"total_length,omitempty"`
}

// NewMessage creates a message stamped with the current UTC time.
func NewMessage(role Role, content string) Message {
	return Message{
		Role:       role,
		Content:    content,
		ReceivedAt: time.Now().UTC(),
	}
}

// Project returns the wire representation of the message restricted to the
// given field whitelist. Optional fields that are empty are dropped even
// when whitelisted, so the payload never carries null placeholders.
func (m Message) Project(fields map[string]bool) map[string]any {
	out := make(map[string]any, len(fields))
	if fields["role"] {
		out["role"] = string(m.Role)
	}
	if fields["content"] {
		out["content"] = m.Content
	}
	if fields["name"] && m.Name != "" {
		out["name"] = m.Name
	}
	if fields["function_call"] && len(m.FunctionCall) > 0 {
		out["function_call"] = m.FunctionCall
	}
	if fields["finish_reason"] && m.FinishReason != "" {
		out["finish_reason"] = m.FinishReason
	}
	return out
}
