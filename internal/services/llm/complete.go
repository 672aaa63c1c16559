package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"reelsmith/internal/services"
)

type emptyContentError struct {
	Op           string
	FinishReason string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("%s: empty content (finish_reason=%q)", e.Op, e.FinishReason)
}

// CompleteJSON issues a JSON-only chat completion request with the supplied
// prompts and returns the raw JSON payload produced by the model.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.complete(ctx, "llm complete", systemPrompt, userPrompt, &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	})
}

// CompleteStructured requests a reply matching the JSON schema of target and
// decodes it into target. name identifies the schema to the provider.
func (c *Client) CompleteStructured(ctx context.Context, name, systemPrompt, userPrompt string, target any) error {
	schema := SchemaFor(target)
	content, err := c.complete(ctx, "llm structured "+name, systemPrompt, userPrompt, &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:   name,
			Schema: schema,
			Strict: true,
		},
	})
	if err != nil {
		return err
	}
	if err := DecodeLLMJSON(content, target); err != nil {
		return services.Wrap(services.ErrInvalidResponse, "llm", "decode "+name, "reply does not match schema", err)
	}
	return nil
}

func (c *Client) complete(ctx context.Context, op, systemPrompt, userPrompt string, format *openai.ChatCompletionResponseFormat) (string, error) {
	systemPrompt = strings.TrimSpace(systemPrompt)
	userPrompt = strings.TrimSpace(userPrompt)
	if systemPrompt == "" {
		return "", fmt.Errorf("%s: %w: system prompt required", op, services.ErrValidation)
	}
	if userPrompt == "" {
		return "", fmt.Errorf("%s: %w: user prompt required", op, services.ErrValidation)
	}
	if !c.Configured() {
		return "", errMissingKey(op)
	}
	req := openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature:    float32(c.cfg.Temperature),
		ResponseFormat: format,
	}
	return c.completionContentWithRetry(ctx, req, op)
}

func (c *Client) completionContentWithRetry(ctx context.Context, req openai.ChatCompletionRequest, op string) (string, error) {
	attempts := c.retryAttempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err == nil {
			content, finishReason := extractCompletionPayload(resp)
			switch {
			case finishReason == openai.FinishReasonContentFilter:
				return "", services.Wrap(services.ErrTerminal, "llm", op, "reply blocked by content filter", nil)
			case content != "":
				return content, nil
			case len(resp.Choices) == 0:
				err = &emptyContentError{Op: op}
			default:
				err = &emptyContentError{Op: op, FinishReason: string(finishReason)}
			}
		}

		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			var empty *emptyContentError
			if errors.As(err, &empty) {
				return "", services.Wrap(services.ErrInvalidResponse, "llm", op, "", err)
			}
			return "", classify(op, err)
		}
		if err := c.sleep(ctx, delay); err != nil {
			return "", classify(op, err)
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return "", classify(op, fmt.Errorf("failed after %d attempts: %w", attempts, lastErr))
}

func extractCompletionPayload(resp openai.ChatCompletionResponse) (string, openai.FinishReason) {
	var finishReason openai.FinishReason
	for _, choice := range resp.Choices {
		if finishReason == "" {
			finishReason = choice.FinishReason
		}
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, finishReason
		}
		for _, call := range choice.Message.ToolCalls {
			if args := strings.TrimSpace(call.Function.Arguments); args != "" {
				return args, finishReason
			}
		}
	}
	return "", finishReason
}
