package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/srgchrksv/blogpodcaster/models"
)

const (
	agentName = "Blog Summarizer"

	scrapeToolName        = "scrape_url"
	scrapeToolDescription = "Scrape a web page and return its main content as markdown."
	scrapeToolURLParam    = "url"

	// maxToolRounds bounds how many times the model may call tools in one run.
	maxToolRounds = 4
)

var agentInstructions = []string{
	"Scrape the blog URL and create a concise, engaging summary (max 2000 characters) suitable for a podcast.",
	"The summary should be conversational and capture the main points.",
}

// Summarizer turns a blog URL into a podcast-ready summary.
type Summarizer interface {
	Summarize(ctx context.Context, url string) (models.Reply, error)
}

func systemPrompt() string {
	return "You are " + agentName + ".\n" + strings.Join(agentInstructions, "\n")
}

func userPrompt(url string) string {
	return "Scrape and summarize this blog for a podcast: " + url
}

// scrapeTool executes a scrape_url call. Failures are reported to the model as
// text so it can answer instead of the run aborting mid-conversation.
type scrapeTool struct {
	scraper Scraper
	log     *slog.Logger
}

func (t scrapeTool) call(ctx context.Context, url string) string {
	url = strings.TrimSpace(url)
	if url == "" {
		return "error: url argument is required"
	}

	page, err := t.scraper.Scrape(ctx, url)
	if err != nil {
		t.log.WarnContext(ctx, "Scrape tool call failed",
			"error", err,
			"url", url)

		return fmt.Sprintf("error: %v", err)
	}

	t.log.InfoContext(ctx, "Scrape tool call succeeded",
		"url", page.URL,
		"chars", len(page.Markdown))

	return page.toolResult()
}

// callJSON executes a scrape_url call whose arguments are a JSON object.
func (t scrapeTool) callJSON(ctx context.Context, arguments string) string {
	var args map[string]any
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return fmt.Sprintf("error: invalid arguments: %v", err)
	}

	return t.callArgs(ctx, args)
}

func (t scrapeTool) callArgs(ctx context.Context, args map[string]any) string {
	url, _ := args[scrapeToolURLParam].(string)

	return t.call(ctx, url)
}
