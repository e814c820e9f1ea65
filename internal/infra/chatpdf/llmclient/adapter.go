// Package llmclient adapts the ChatGPT-compatible chat completion API
// to the chatpdf domain's LLM port, including tool-calling support for
// the semantic_search tool.
package llmclient

import (
	"context"
	"log/slog"
	"strings"

	domain "github.com/tejasgodse/chatpdf/internal/domain/chatpdf"
	"github.com/tejasgodse/chatpdf/internal/infra/llm/chatgpt"
	apperrors "github.com/tejasgodse/chatpdf/pkg/errors"
)

// ChatGPTLLM adapts the ChatGPT client to the chatpdf domain.
type ChatGPTLLM struct {
	client      *chatgpt.Client
	model       string
	temperature float32
	logger      *slog.Logger
}

// NewChatGPTLLM constructs the adapter.
func NewChatGPTLLM(client *chatgpt.Client, model string, temperature float32, logger *slog.Logger) *ChatGPTLLM {
	return &ChatGPTLLM{client: client, model: model, temperature: temperature, logger: logger.With("component", "llmclient")}
}

// Complete sends a plain chat completion request, no tools offered.
func (l *ChatGPTLLM) Complete(ctx context.Context, messages []domain.LLMMessage) (domain.CompletionResult, error) {
	return l.complete(ctx, messages, nil)
}

// CompleteWithTools sends a chat completion request offering the given
// tools, surfacing any tool calls the model requests back to the caller.
func (l *ChatGPTLLM) CompleteWithTools(ctx context.Context, messages []domain.LLMMessage, tools []domain.ToolSpec) (domain.CompletionResult, error) {
	return l.complete(ctx, messages, tools)
}

func (l *ChatGPTLLM) complete(ctx context.Context, messages []domain.LLMMessage, tools []domain.ToolSpec) (domain.CompletionResult, error) {
	req := chatgpt.ChatCompletionRequest{
		Model:       l.model,
		Temperature: l.temperature,
		Messages:    make([]chatgpt.Message, 0, len(messages)),
	}
	for _, msg := range messages {
		req.Messages = append(req.Messages, chatgpt.Message{
			Role:       msg.Role,
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		})
	}
	for _, tool := range tools {
		req.Tools = append(req.Tools, chatgpt.Tool{
			Type: "function",
			Function: chatgpt.ToolFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}

	resp, err := l.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return domain.CompletionResult{}, apperrors.Wrap(domain.CodeLLMFailure, "create chat completion", err)
	}
	usage := resp.TokenUsage()
	if !usage.IsZero() {
		l.logger.Debug("chat completion token usage", "prompt_tokens", usage.PromptTokens, "completion_tokens", usage.CompletionTokens, "total_tokens", usage.TotalTokens)
	}
	if len(resp.Choices) == 0 {
		return domain.CompletionResult{}, nil
	}

	msg := resp.Choices[0].Message
	result := domain.CompletionResult{Text: strings.TrimSpace(msg.Content)}
	for _, tc := range msg.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, domain.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return result, nil
}

var _ domain.LLM = (*ChatGPTLLM)(nil)

// EchoLLM is a lightweight fallback that never calls an external API,
// used when no LLM API key is configured.
type EchoLLM struct{}

// Complete returns a canned response echoing the latest user message.
func (EchoLLM) Complete(_ context.Context, messages []domain.LLMMessage) (domain.CompletionResult, error) {
	return domain.CompletionResult{Text: lastUserEcho(messages)}, nil
}

// CompleteWithTools never elects to call a tool; it answers directly.
func (EchoLLM) CompleteWithTools(_ context.Context, messages []domain.LLMMessage, _ []domain.ToolSpec) (domain.CompletionResult, error) {
	return domain.CompletionResult{Text: lastUserEcho(messages)}, nil
}

func lastUserEcho(messages []domain.LLMMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return "Answer: " + messages[i].Content
		}
	}
	return ""
}

var _ domain.LLM = (*EchoLLM)(nil)
