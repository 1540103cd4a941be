package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/srgchrksv/blogpodcaster/models"
)

const openAIModel = openai.ChatModelGPT4o

// OpenAISummarizer runs the summarization agent on OpenAI chat completions,
// giving the model a scrape_url tool.
type OpenAISummarizer struct {
	client openai.Client
	tool   scrapeTool
	log    *slog.Logger
}

// NewOpenAISummarizer builds a summarizer with an explicit API key. Extra
// request options are applied after the key.
func NewOpenAISummarizer(
	apiKey string,
	scraper Scraper,
	log *slog.Logger,
	opts ...option.RequestOption,
) *OpenAISummarizer {
	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)

	return &OpenAISummarizer{
		client: openai.NewClient(opts...),
		tool:   scrapeTool{scraper: scraper, log: log},
		log:    log,
	}
}

func (s *OpenAISummarizer) Summarize(ctx context.Context, url string) (models.Reply, error) {
	params := openai.ChatCompletionNewParams{
		Model: openAIModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt()),
			openai.UserMessage(userPrompt(url)),
		},
		Tools: []openai.ChatCompletionToolUnionParam{
			openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
				Name:        scrapeToolName,
				Description: openai.String(scrapeToolDescription),
				Parameters: openai.FunctionParameters{
					"type": "object",
					"properties": map[string]any{
						scrapeToolURLParam: map[string]any{
							"type":        "string",
							"description": "Absolute URL of the page to scrape.",
						},
					},
					"required": []string{scrapeToolURLParam},
				},
			}),
		},
	}

	for round := 0; ; round++ {
		completion, err := s.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return models.Reply{}, fmt.Errorf("do request: %w", err)
		}
		if len(completion.Choices) == 0 {
			return models.Reply{}, errors.New("response has no choices")
		}

		message := completion.Choices[0].Message
		if len(message.ToolCalls) == 0 {
			return openAIReply(message), nil
		}

		if round >= maxToolRounds {
			return models.Reply{}, fmt.Errorf("model kept calling tools after %d rounds", maxToolRounds)
		}

		params.Messages = append(params.Messages, message.ToParam())
		for _, call := range message.ToolCalls {
			result := fmt.Sprintf("error: unknown tool %q", call.Function.Name)
			if call.Function.Name == scrapeToolName {
				result = s.tool.callJSON(ctx, call.Function.Arguments)
			}
			params.Messages = append(params.Messages, openai.ToolMessage(result, call.ID))
		}

		s.log.InfoContext(ctx, "Tool calls are answered",
			"round", round+1,
			"toolCalls", len(message.ToolCalls))
	}
}

func openAIReply(message openai.ChatCompletionMessage) models.Reply {
	if content := strings.TrimSpace(message.Content); content != "" {
		return models.ContentReply(content)
	}

	return models.OpaqueReply(strings.TrimSpace(message.Refusal))
}
