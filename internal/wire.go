package internal

// Wire types for the chat-completion contract. Only the fields the engine
// reads are declared; unknown response fields are ignored.

// wireUsage reports token consumption for one completion.
type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// wireFunctionCall is a structured-output invocation. Arguments is a JSON
// document serialized as a string, per the provider contract.
type wireFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// wireMessage is a completion message as returned by the provider.
type wireMessage struct {
	Role         string            `json:"role"`
	Content      string            `json:"content"`
	FunctionCall *wireFunctionCall `json:"function_call,omitempty"`
}

// wireChoice is one completion candidate.
type wireChoice struct {
	Index        int         `json:"index"`
	Message      wireMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// completionResponse is the non-streaming response envelope.
type completionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []wireChoice `json:"choices"`
	Usage   *wireUsage   `json:"usage"`
}

// streamChunk is one decoded server-sent event of a streaming response.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}
