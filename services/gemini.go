package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/srgchrksv/blogpodcaster/models"
)

const geminiModel = "gemini-1.5-flash"

// chatSession is the part of *genai.ChatSession the agent loop talks to.
type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiSummarizer runs the summarization agent on Gemini with function calling.
// Gemini answers carry text parts only, so every reply is a content reply.
type GeminiSummarizer struct {
	client    *genai.Client
	startChat func() chatSession
	tool      scrapeTool
	log       *slog.Logger
}

func NewGeminiSummarizer(
	ctx context.Context,
	apiKey string,
	scraper Scraper,
	log *slog.Logger,
) (*GeminiSummarizer, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := client.GenerativeModel(geminiModel)
	model.SetTemperature(1)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt())},
	}
	model.Tools = []*genai.Tool{{
		FunctionDeclarations: []*genai.FunctionDeclaration{{
			Name:        scrapeToolName,
			Description: scrapeToolDescription,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					scrapeToolURLParam: {
						Type:        genai.TypeString,
						Description: "Absolute URL of the page to scrape.",
					},
				},
				Required: []string{scrapeToolURLParam},
			},
		}},
	}}

	s := newGeminiSummarizer(func() chatSession { return model.StartChat() }, scraper, log)
	s.client = client

	return s, nil
}

func newGeminiSummarizer(startChat func() chatSession, scraper Scraper, log *slog.Logger) *GeminiSummarizer {
	return &GeminiSummarizer{
		startChat: startChat,
		tool:      scrapeTool{scraper: scraper, log: log},
		log:       log,
	}
}

func (s *GeminiSummarizer) Summarize(ctx context.Context, url string) (models.Reply, error) {
	session := s.startChat()

	resp, err := session.SendMessage(ctx, genai.Text(userPrompt(url)))
	if err != nil {
		return models.Reply{}, fmt.Errorf("send message: %w", err)
	}

	for round := 0; ; round++ {
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return models.Reply{}, errors.New("response has no candidates")
		}

		var calls []genai.FunctionCall
		var text strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			switch p := part.(type) {
			case genai.FunctionCall:
				calls = append(calls, p)
			case genai.Text:
				text.WriteString(string(p))
			}
		}

		if len(calls) == 0 {
			summary := strings.TrimSpace(text.String())
			if summary == "" {
				return models.Reply{}, fmt.Errorf("%w (finish reason = %v)",
					models.ErrEmptySummary, resp.Candidates[0].FinishReason)
			}

			return models.ContentReply(summary), nil
		}

		if round >= maxToolRounds {
			return models.Reply{}, fmt.Errorf("model kept calling tools after %d rounds", maxToolRounds)
		}

		responses := make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			result := fmt.Sprintf("error: unknown tool %q", call.Name)
			if call.Name == scrapeToolName {
				result = s.tool.callArgs(ctx, call.Args)
			}
			responses = append(responses, genai.FunctionResponse{
				Name:     call.Name,
				Response: map[string]any{"content": result},
			})
		}

		s.log.InfoContext(ctx, "Tool calls are answered",
			"round", round+1,
			"toolCalls", len(calls))

		resp, err = session.SendMessage(ctx, responses...)
		if err != nil {
			return models.Reply{}, fmt.Errorf("send tool responses: %w", err)
		}
	}
}

func (s *GeminiSummarizer) Close() error {
	if s.client == nil {
		return nil
	}

	return s.client.Close()
}
