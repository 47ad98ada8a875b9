package translate

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAITranslator translates chunks via an OpenAI chat model.
type OpenAITranslator struct {
	client openai.Client
	model  openai.ChatModel
}

// NewOpenAITranslator builds an OpenAI-backed Translator.
func NewOpenAITranslator(apiKey, model string) (*OpenAITranslator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai translator: no API key configured")
	}
	if model == "" {
		model = openai.ChatModelGPT4o
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAITranslator{client: client, model: openai.ChatModel(model)}, nil
}

func (o *OpenAITranslator) Name() string { return "openai" }

func (o *OpenAITranslator) Translate(ctx context.Context, sourceTexts []string, sourceLang, targetLang string) ([]string, error) {
	prompt := BuildTranslationPrompt(sourceTexts, sourceLang, targetLang)

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return nil, fmt.Errorf("openai translation request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai translation: empty response")
	}

	content := resp.Choices[0].Message.Content
	return RepairJSONArray(ctx, content, len(sourceTexts), o.repairJSON)
}

// Raw sends prompt verbatim, used for refine-round and repair prompts that
// are already fully formed.
func (o *OpenAITranslator) Raw(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// repairJSON asks the same model to fix its own malformed output, the
// single repair-prompt tier of the JSON repair ladder.
func (o *OpenAITranslator) repairJSON(ctx context.Context, broken string) (string, error) {
	return o.Raw(ctx, "The following is supposed to be a JSON array of strings but failed to parse. Return ONLY the corrected JSON array, nothing else:\n\n"+broken)
}
