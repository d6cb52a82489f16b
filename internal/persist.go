package internal

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// csvTimeLayout is the spreadsheet-friendly timestamp format of CSV dumps.
// Saving converts the stored UTC instant to the local timezone; sub-second
// precision and the UTC offset are lost on the round trip.
const csvTimeLayout = "2006-01-02 15:04:05"

var csvColumns = []string{
	"role",
	"content",
	"received_at",
	"prompt_length",
	"completion_length",
	"total_length",
	"finish_reason",
}

// SessionDump is the serializable view of a session. Credentials, the API
// URL and the input-field whitelist are deliberately absent.
type SessionDump struct {
	ID                    string         `json:"id" yaml:"id"`
	CreatedAt             time.Time      `json:"created_at" yaml:"created_at"`
	Model                 string         `json:"model" yaml:"model"`
	System                string         `json:"system" yaml:"system"`
	Params                map[string]any `json:"params" yaml:"params"`
	Messages              []Message      `json:"messages" yaml:"messages"`
	RecentMessages        int            `json:"recent_messages,omitempty" yaml:"recent_messages,omitempty"`
	SaveMessages          bool           `json:"save_messages" yaml:"save_messages"`
	TotalPromptLength     int            `json:"total_prompt_length" yaml:"total_prompt_length"`
	TotalCompletionLength int            `json:"total_completion_length" yaml:"total_completion_length"`
	TotalLength           int            `json:"total_length" yaml:"total_length"`
	Title                 string         `json:"title,omitempty" yaml:"title,omitempty"`
}

// Dump returns the serializable view of the session.
func (s *Session) Dump() SessionDump {
	messages := make([]Message, len(s.Messages))
	copy(messages, s.Messages)
	params := make(map[string]any, len(s.Params))
	for k, v := range s.Params {
		params[k] = v
	}
	return SessionDump{
		ID:                    s.ID,
		CreatedAt:             s.CreatedAt,
		Model:                 s.Model,
		System:                s.System,
		Params:                params,
		Messages:              messages,
		RecentMessages:        s.RecentMessages,
		SaveMessages:          s.SaveMessages,
		TotalPromptLength:     s.TotalPromptLength,
		TotalCompletionLength: s.TotalCompletionLength,
		TotalLength:           s.TotalLength,
		Title:                 s.Title,
	}
}

// SaveSession writes a session dump to path. Format is "csv" (messages
// only, fixed column order) or "json" (full dump; minify drops the
// indentation). An empty path defaults to chat_session.<format>.
func (m *AIChat) SaveSession(path, id, format string, minify bool) error {
	sess, err := m.GetSession(id)
	if err != nil {
		return err
	}
	if path == "" {
		path = "chat_session." + format
	}

	switch format {
	case "csv":
		return saveCSV(path, sess)
	case "json":
		return saveJSON(path, sess, minify)
	default:
		return &PersistError{Format: format, Path: path, Err: errors.New("only csv and json are supported")}
	}
}

func saveCSV(path string, sess *Session) error {
	f, err := os.Create(path)
	if err != nil {
		return &PersistError{Format: "csv", Path: path, Err: err}
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvColumns); err != nil {
		return &PersistError{Format: "csv", Path: path, Err: err}
	}
	for _, msg := range sess.Messages {
		row := []string{
			string(msg.Role),
			msg.Content,
			msg.ReceivedAt.In(time.Local).Format(csvTimeLayout),
			csvInt(msg.PromptLength),
			csvInt(msg.CompletionLength),
			csvInt(msg.TotalLength),
			msg.FinishReason,
		}
		if err := w.Write(row); err != nil {
			return &PersistError{Format: "csv", Path: path, Err: err}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &PersistError{Format: "csv", Path: path, Err: err}
	}
	return nil
}

func saveJSON(path string, sess *Session, minify bool) error {
	dump := sess.Dump()

	var data []byte
	var err error
	if minify {
		data, err = json.Marshal(dump)
	} else {
		data, err = json.MarshalIndent(dump, "", "  ")
	}
	if err != nil {
		return &PersistError{Format: "json", Path: path, Err: err}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &PersistError{Format: "json", Path: path, Err: err}
	}
	return nil
}

// LoadSession reconstructs a session from a CSV or JSON dump, registers it
// and returns it. Credentials are never persisted, so cfg must carry a
// fresh API key (or the environment must provide one). For JSON dumps any
// non-zero cfg field overrides the persisted value.
func (m *AIChat) LoadSession(path, id string, cfg SessionConfig) (*Session, error) {
	switch {
	case strings.HasSuffix(path, ".csv"):
		return m.loadCSV(path, id, cfg)
	case strings.HasSuffix(path, ".json"):
		return m.loadJSON(path, id, cfg)
	default:
		return nil, &PersistError{Path: path, Err: errors.New("only csv and json imports are accepted")}
	}
}

func (m *AIChat) loadCSV(path, id string, cfg SessionConfig) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &PersistError{Format: "csv", Path: path, Err: err}
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, &PersistError{Format: "csv", Path: path, Err: err}
	}
	if len(rows) == 0 {
		return nil, &PersistError{Format: "csv", Path: path, Err: errors.New("missing header row")}
	}

	messages := make([]Message, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) != len(csvColumns) {
			return nil, &PersistError{Format: "csv", Path: path, Err: fmt.Errorf("got %d columns, want %d", len(row), len(csvColumns))}
		}
		// The dump stored local time; reinterpret it as local and
		// convert back to UTC.
		received, err := time.ParseInLocation(csvTimeLayout, row[2], time.Local)
		if err != nil {
			return nil, &PersistError{Format: "csv", Path: path, Err: err}
		}
		msg := Message{
			Role:         Role(row[0]),
			Content:      row[1],
			ReceivedAt:   received.UTC(),
			FinishReason: row[6],
		}
		if msg.PromptLength, err = csvIntValue(row[3]); err != nil {
			return nil, &PersistError{Format: "csv", Path: path, Err: err}
		}
		if msg.CompletionLength, err = csvIntValue(row[4]); err != nil {
			return nil, &PersistError{Format: "csv", Path: path, Err: err}
		}
		if msg.TotalLength, err = csvIntValue(row[5]); err != nil {
			return nil, &PersistError{Format: "csv", Path: path, Err: err}
		}
		messages = append(messages, msg)
	}

	if id != "" {
		cfg.ID = id
	}
	sess, err := m.NewSession(cfg)
	if err != nil {
		return nil, err
	}
	sess.Messages = messages
	return sess, nil
}

func (m *AIChat) loadJSON(path, id string, cfg SessionConfig) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &PersistError{Format: "json", Path: path, Err: err}
	}
	var dump SessionDump
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, &PersistError{Format: "json", Path: path, Err: err}
	}

	sc := SessionConfig{
		ID:             dump.ID,
		APIKey:         cfg.APIKey,
		APIURL:         cfg.APIURL,
		Model:          dump.Model,
		System:         dump.System,
		Params:         dump.Params,
		InputFields:    cfg.InputFields,
		RecentMessages: dump.RecentMessages,
		SaveMessages:   &dump.SaveMessages,
		Title:          dump.Title,
	}
	if id != "" {
		sc.ID = id
	}
	if cfg.Model != "" {
		sc.Model = cfg.Model
	}
	if cfg.System != "" {
		sc.System = cfg.System
	}
	if cfg.Params != nil {
		sc.Params = cfg.Params
	}
	if cfg.Title != "" {
		sc.Title = cfg.Title
	}

	sess, err := m.NewSession(sc)
	if err != nil {
		return nil, err
	}
	if !dump.CreatedAt.IsZero() {
		sess.CreatedAt = dump.CreatedAt
	}
	sess.Messages = dump.Messages
	sess.TotalPromptLength = dump.TotalPromptLength
	sess.TotalCompletionLength = dump.TotalCompletionLength
	sess.TotalLength = dump.TotalLength
	return sess, nil
}

func csvInt(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func csvIntValue(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
