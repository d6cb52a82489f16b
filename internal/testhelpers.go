package internal

import (
	"time"
)

// CreateTestDump creates a session dump with sample data
func CreateTestDump(id string) *SessionDump {
	created := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	return &SessionDump{
		ID:        id,
		CreatedAt: created,
		Model:     "gpt-3.5-turbo",
		System:    "You are a helpful assistant.",
		Title:     "Test Conversation",
		Messages: []Message{
			{
				Role:       RoleUser,
				Content:    "Hello, how are you?",
				ReceivedAt: created.Add(time.Second),
			},
			{
				Role:             RoleAssistant,
				Content:          "I'm doing well, thank you!",
				ReceivedAt:       created.Add(2 * time.Second),
				FinishReason:     "stop",
				PromptLength:     10,
				CompletionLength: 8,
				TotalLength:      18,
			},
		},
		TotalPromptLength:     10,
		TotalCompletionLength: 8,
		TotalLength:           18,
	}
}

// CreateTestDumpWithMessages creates a session dump with custom messages
func CreateTestDumpWithMessages(id string, messages []Message) *SessionDump {
	return &SessionDump{
		ID:        id,
		CreatedAt: time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC),
		Model:     "gpt-3.5-turbo",
		System:    "You are a helpful assistant.",
		Messages:  messages,
	}
}

// CreateTestSession creates an unkeyed session for tests that never touch
// the network
func CreateTestSession(id string) *Session {
	sess := &Session{
		ID:             id,
		CreatedAt:      time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC),
		Model:          "gpt-3.5-turbo",
		System:         "You are a helpful assistant.",
		InputFields:    map[string]bool{"role": true, "content": true, "name": true},
		SaveMessages:   true,
		RecentMessages: 0,
		auth:           map[string]string{"api_key": "test-key"},
		apiURL:         "http://localhost/v1/chat/completions",
	}
	return sess
}
