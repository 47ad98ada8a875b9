package translate

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicTranslator translates chunks via an Anthropic Claude model.
type AnthropicTranslator struct {
	client anthropic.Client
	model  string
}

// NewAnthropicTranslator builds an Anthropic-backed Translator.
func NewAnthropicTranslator(apiKey, model string) (*AnthropicTranslator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic translator: no API key configured")
	}
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicTranslator{client: client, model: model}, nil
}

func (a *AnthropicTranslator) Name() string { return "anthropic" }

func (a *AnthropicTranslator) Translate(ctx context.Context, sourceTexts []string, sourceLang, targetLang string) ([]string, error) {
	prompt := BuildTranslationPrompt(sourceTexts, sourceLang, targetLang)

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 4000,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic translation request failed: %w", err)
	}

	content := extractText(message)
	if content == "" {
		return nil, fmt.Errorf("anthropic translation: empty response")
	}

	return RepairJSONArray(ctx, content, len(sourceTexts), a.repairJSON)
}

func (a *AnthropicTranslator) repairJSON(ctx context.Context, broken string) (string, error) {
	return a.Raw(ctx, "The following is supposed to be a JSON array of strings but failed to parse. Return ONLY the corrected JSON array, nothing else:\n\n"+broken)
}

// Raw sends prompt verbatim, used for refine-round and repair prompts that
// are already fully formed.
func (a *AnthropicTranslator) Raw(ctx context.Context, prompt string) (string, error) {
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 4000,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}
	content := extractText(message)
	if content == "" {
		return "", fmt.Errorf("anthropic: empty response")
	}
	return content, nil
}

func extractText(message *anthropic.Message) string {
	var out string
	for _, block := range message.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	return out
}
