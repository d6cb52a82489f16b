package internal

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const openAIDefaultURL = "https://api.openai.com/v1/chat/completions"

const toolSelectionPrompt = `From the list of tools below:
- Reply ONLY with the number of the tool appropriate in response to the user's last message.
- If no tool is appropriate, ONLY reply with "0".

%s`

const contextInstruction = "You MUST use information from the context in your response."

const (
	// digitTokenOffset is the tokenizer id of the "0" token; the ids for
	// "0" through "9" are contiguous in the cl100k vocabulary, which is
	// what makes single-digit constrained selection possible.
	digitTokenOffset = 15
	logitBiasWeight  = 100
)

// OpenAIAdapter implements Adapter against the OpenAI-compatible
// chat-completion wire contract.
type OpenAIAdapter struct {
	client *http.Client
}

// NewOpenAIAdapter creates an adapter on the given transport client. A nil
// client gets a default one with no request deadline, since generations are
// bounded by the caller's context instead.
func NewOpenAIAdapter(client *http.Client) *OpenAIAdapter {
	if client == nil {
		client = &http.Client{}
	}
	return &OpenAIAdapter{client: client}
}

// prepareRequest builds the headers, JSON body and user message for one
// generation. Per-call params shadow the session params entirely, and both
// are copied into the body so later mutation by the caller cannot change
// the request.
func (a *OpenAIAdapter) prepareRequest(sess *Session, prompt string, opts GenOptions, stream bool) (map[string]string, map[string]any, Message, error) {
	headers := map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + sess.credential("api_key"),
	}

	systemText := opts.System
	if systemText == "" {
		systemText = sess.System
	}
	system := NewMessage(RoleSystem, systemText)

	var user Message
	if opts.InputSchema != nil {
		user = NewMessage(RoleFunction, prompt)
		user.Name = opts.InputSchema.Name
	} else {
		user = NewMessage(RoleUser, prompt)
	}

	params := opts.Params
	if params == nil {
		params = sess.Params
	}

	body := map[string]any{
		"model":    sess.Model,
		"messages": sess.FormatInputMessages(system, user),
		"stream":   stream,
	}
	for k, v := range params {
		body[k] = v
	}

	if opts.InputSchema != nil || opts.OutputSchema != nil {
		var functions []map[string]any
		for _, schema := range []*Schema{opts.InputSchema, opts.OutputSchema} {
			if schema == nil {
				continue
			}
			if schema.Description == "" {
				return nil, nil, Message{}, &ConfigurationError{
					Reason: fmt.Sprintf("schema %q is missing a description", schema.Name),
				}
			}
			fn := schema.function()
			if !containsFunction(functions, fn) {
				functions = append(functions, fn)
			}
		}
		body["functions"] = functions
		if opts.OutputSchema != nil && !opts.FunctionCallOptional {
			body["function_call"] = map[string]any{"name": opts.OutputSchema.Name}
		}
	}

	return headers, body, user, nil
}

// containsFunction reports whether an identical function entry is already
// listed, so a schema used for both input and output is sent once.
func containsFunction(functions []map[string]any, fn map[string]any) bool {
	want, _ := json.Marshal(fn)
	for _, f := range functions {
		got, _ := json.Marshal(f)
		if bytes.Equal(got, want) {
			return true
		}
	}
	return false
}

// post sends the request body and returns the raw response. Transport
// failures and non-2xx statuses propagate to the caller unchanged; there is
// no retry.
func (a *OpenAIAdapter) post(ctx context.Context, url string, headers map[string]string, body map[string]any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("completion request failed: %s: %s", resp.Status, raw)
	}
	return resp, nil
}

// Gen performs one blocking completion round trip.
func (a *OpenAIAdapter) Gen(ctx context.Context, sess *Session, prompt string, opts GenOptions) (*GenResult, error) {
	headers, body, user, err := a.prepareRequest(sess, prompt, opts, false)
	if err != nil {
		return nil, err
	}

	resp, err := a.post(ctx, sess.apiURL, headers, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read completion response: %w", err)
	}

	var cr completionResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return nil, fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return nil, &MissingCompletionError{Raw: raw}
	}
	// Non-streaming responses always bill; a response without usage is as
	// malformed as one without choices.
	if cr.Usage == nil {
		return nil, &MissingCompletionError{Raw: raw}
	}
	choice := cr.Choices[0]

	// Totals grow on every billed generation, independent of whether the
	// turn is saved.
	sess.addUsage(cr.Usage.PromptTokens, cr.Usage.CompletionTokens, cr.Usage.TotalTokens)

	if opts.OutputSchema != nil {
		if choice.Message.FunctionCall == nil || choice.Message.FunctionCall.Arguments == "" {
			return nil, &MissingCompletionError{Raw: raw}
		}
		// Structured results are returned directly; they are not a chat
		// turn and never enter history.
		return &GenResult{Structured: json.RawMessage(choice.Message.FunctionCall.Arguments)}, nil
	}

	role := Role(choice.Message.Role)
	if role == "" {
		role = RoleAssistant
	}
	assistant := Message{
		Role:         role,
		Content:      choice.Message.Content,
		ReceivedAt:   time.Now().UTC(),
		FinishReason: choice.FinishReason,
	}
	assistant.PromptLength = cr.Usage.PromptTokens
	assistant.CompletionLength = cr.Usage.CompletionTokens
	assistant.TotalLength = cr.Usage.TotalTokens
	sess.AddMessages(user, assistant, opts.SaveMessages)

	return &GenResult{Content: choice.Message.Content}, nil
}

// Stream opens a streaming completion and emits one event per delta, in
// arrival order. Cancelling the context closes the connection and discards
// the partial turn; the assistant message is only committed after the
// stream ends cleanly.
func (a *OpenAIAdapter) Stream(ctx context.Context, sess *Session, prompt string, opts GenOptions) (<-chan StreamEvent, error) {
	headers, body, user, err := a.prepareRequest(sess, prompt, opts, true)
	if err != nil {
		return nil, err
	}

	resp, err := a.post(ctx, sess.apiURL, headers, body)
	if err != nil {
		return nil, err
	}

	events := make(chan StreamEvent)
	go func() {
		defer close(events)
		defer resp.Body.Close()

		var response strings.Builder
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			data, ok := strings.CutPrefix(line, "data: ")
			if !ok {
				continue
			}
			if data == "[DONE]" {
				break
			}

			var chunk streamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				events <- StreamEvent{Err: fmt.Errorf("failed to decode stream event: %w", err)}
				return
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}

			response.WriteString(delta)
			select {
			case events <- StreamEvent{Delta: delta, Response: response.String()}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case events <- StreamEvent{Err: err}:
			case <-ctx.Done():
			}
			return
		}

		// Streamed responses never carry usage counters.
		assistant := Message{
			Role:       RoleAssistant,
			Content:    response.String(),
			ReceivedAt: time.Now().UTC(),
		}
		sess.AddMessages(user, assistant, opts.SaveMessages)
	}()

	return events, nil
}

// GenWithTools routes a turn through the two-phase tool-selection protocol.
func (a *OpenAIAdapter) GenWithTools(ctx context.Context, sess *Session, prompt string, tools []Tool, opts GenOptions) (map[string]any, error) {
	if len(tools) > MaxTools {
		return nil, &TooManyToolsError{Count: len(tools)}
	}
	for _, t := range tools {
		if t.Description == "" {
			return nil, &MissingToolDescriptionError{Tool: t.Name}
		}
	}

	// Phase 1: a deterministic single-token selection, biased so the model can
	// only answer with a digit in [0, len(tools)]. Never persisted.
	var list strings.Builder
	for i, t := range tools {
		if i > 0 {
			list.WriteByte('\n')
		}
		fmt.Fprintf(&list, "%d: %s", i+1, t.Description)
	}
	bias := make(map[string]int, len(tools)+1)
	for k := digitTokenOffset; k <= digitTokenOffset+len(tools); k++ {
		bias[strconv.Itoa(k)] = logitBiasWeight
	}

	noSave := false
	selection, err := a.Gen(ctx, sess, prompt, GenOptions{
		System:       fmt.Sprintf(toolSelectionPrompt, list.String()),
		SaveMessages: &noSave,
		Params: map[string]any{
			"temperature": 0.0,
			"max_tokens":  1,
			"logit_bias":  bias,
		},
	})
	if err != nil {
		return nil, err
	}

	idx, err := strconv.Atoi(strings.TrimSpace(selection.Content))
	if err != nil || idx < 0 || idx > len(tools) {
		return nil, fmt.Errorf("tool selection returned %q, want a digit in 0-%d", selection.Content, len(tools))
	}

	// No tool applies: an ordinary generation, persisted normally.
	if idx == 0 {
		result, err := a.Gen(ctx, sess, prompt, GenOptions{
			System:       opts.System,
			SaveMessages: opts.SaveMessages,
			Params:       opts.Params,
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{"response": result.Content, "tool": nil}, nil
	}

	tool := tools[idx-1]
	LogDebug("selected tool %q for prompt", tool.Name)

	out, err := tool.Run(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("tool %q failed: %w", tool.Name, err)
	}

	var result map[string]any
	switch v := out.(type) {
	case string:
		result = map[string]any{"context": v}
	case map[string]any:
		result = make(map[string]any, len(v)+2)
		for k, val := range v {
			result[k] = val
		}
	default:
		return nil, fmt.Errorf("tool %q returned %T, want string or map[string]any", tool.Name, out)
	}
	contextText, ok := result["context"].(string)
	if !ok {
		return nil, fmt.Errorf("tool %q returned no context", tool.Name)
	}
	result["tool"] = tool.Name

	// Phase 2: generate from the tool's context, again unpersisted; only
	// the original prompt and the final response enter history, so the
	// tool mechanics stay invisible there.
	baseSystem := opts.System
	if baseSystem == "" {
		baseSystem = sess.System
	}
	generated, err := a.Gen(ctx, sess, fmt.Sprintf("Context: %s\n\nUser: %s", contextText, prompt), GenOptions{
		System:       baseSystem + "\n\n" + contextInstruction,
		SaveMessages: &noSave,
		Params:       opts.Params,
	})
	if err != nil {
		return nil, err
	}
	result["response"] = generated.Content

	sess.AddMessages(NewMessage(RoleUser, prompt), NewMessage(RoleAssistant, generated.Content), opts.SaveMessages)
	return result, nil
}
