package translate

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// LocalTranslator talks to a self-hosted OpenAI-API-compatible endpoint
// (e.g. an in-cluster vLLM or Ollama gateway), standing in for the "local"
// slot in the default remote→remote→local fallback chain.
type LocalTranslator struct {
	client openai.Client
	model  openai.ChatModel
}

// NewLocalTranslator builds a Translator against baseURL. Self-hosted
// gateways commonly accept any non-empty bearer token; apiKey may be empty
// only when the gateway is configured without auth.
func NewLocalTranslator(baseURL, apiKey, model string) (*LocalTranslator, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("local translator: no base URL configured")
	}
	if model == "" {
		model = "local-model"
	}
	opts := []option.RequestOption{option.WithBaseURL(baseURL)}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := openai.NewClient(opts...)
	return &LocalTranslator{client: client, model: openai.ChatModel(model)}, nil
}

func (l *LocalTranslator) Name() string { return "local" }

func (l *LocalTranslator) Translate(ctx context.Context, sourceTexts []string, sourceLang, targetLang string) ([]string, error) {
	prompt := BuildTranslationPrompt(sourceTexts, sourceLang, targetLang)

	resp, err := l.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: l.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return nil, fmt.Errorf("local translation request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("local translation: empty response")
	}

	content := resp.Choices[0].Message.Content
	return RepairJSONArray(ctx, content, len(sourceTexts), l.repairJSON)
}

func (l *LocalTranslator) repairJSON(ctx context.Context, broken string) (string, error) {
	return l.Raw(ctx, "The following is supposed to be a JSON array of strings but failed to parse. Return ONLY the corrected JSON array, nothing else:\n\n"+broken)
}

// Raw sends prompt verbatim, used for refine-round and repair prompts that
// are already fully formed.
func (l *LocalTranslator) Raw(ctx context.Context, prompt string) (string, error) {
	resp, err := l.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: l.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return "", fmt.Errorf("local request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("local: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
