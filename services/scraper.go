package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	firecrawlBaseURL = "https://api.firecrawl.dev"
	maxScrapedChars  = 60000
)

// Page is the scraped content of a URL.
type Page struct {
	URL      string
	Title    string
	Markdown string
}

// Scraper fetches a web page on behalf of the summarization agent.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Page, error)
}

// FirecrawlScraper calls the Firecrawl scrape endpoint.
type FirecrawlScraper struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewFirecrawlScraper(apiKey string, opts ...FirecrawlOption) *FirecrawlScraper {
	s := &FirecrawlScraper{
		apiKey:  apiKey,
		baseURL: firecrawlBaseURL,
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

type FirecrawlOption func(*FirecrawlScraper)

func WithFirecrawlBaseURL(baseURL string) FirecrawlOption {
	return func(s *FirecrawlScraper) {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
}

type firecrawlScrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

type firecrawlScrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Markdown string `json:"markdown"`
		Metadata struct {
			Title     string `json:"title"`
			SourceURL string `json:"sourceURL"`
		} `json:"metadata"`
	} `json:"data"`
}

func (s *FirecrawlScraper) Scrape(ctx context.Context, url string) (*Page, error) {
	body, err := json.Marshal(firecrawlScrapeRequest{
		URL:             url,
		Formats:         []string{"markdown"},
		OnlyMainContent: true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/scrape", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		drain(resp.Body)

		return nil, fmt.Errorf("firecrawl scrape failed (status = %d): %s",
			resp.StatusCode, firecrawlErrorDetail(resp.StatusCode, detail))
	}

	var out firecrawlScrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !out.Success {
		msg := strings.TrimSpace(out.Error)
		if msg == "" {
			msg = "unsuccessful response"
		}
		return nil, fmt.Errorf("firecrawl scrape failed: %s", msg)
	}

	markdown := strings.TrimSpace(out.Data.Markdown)
	if markdown == "" {
		return nil, errors.New("firecrawl returned no content")
	}

	page := &Page{
		URL:      url,
		Title:    out.Data.Metadata.Title,
		Markdown: markdown,
	}
	if out.Data.Metadata.SourceURL != "" {
		page.URL = out.Data.Metadata.SourceURL
	}

	return page, nil
}

// toolResult renders a page as the text handed back to the model.
func (p *Page) toolResult() string {
	b := strings.Builder{}
	if p.Title != "" {
		b.WriteString("Title: ")
		b.WriteString(p.Title)
		b.WriteString("\n")
	}
	b.WriteString("Source: ")
	b.WriteString(p.URL)
	b.WriteString("\n\n")

	markdown := p.Markdown
	if len(markdown) > maxScrapedChars {
		markdown = strings.ToValidUTF8(markdown[:maxScrapedChars], "")
	}
	b.WriteString(markdown)

	return b.String()
}

// firecrawlErrorDetail prefers the JSON error field and falls back to the status text.
func firecrawlErrorDetail(status int, body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && strings.TrimSpace(e.Error) != "" {
		return e.Error
	}
	if msg := strings.TrimSpace(string(body)); msg != "" && !json.Valid(body) && !strings.HasPrefix(msg, "<") {
		return msg
	}
	if text := http.StatusText(status); text != "" {
		return text
	}

	return "no details"
}

// drain discards the rest of a body so the connection can be reused.
func drain(r io.Reader) {
	_, _ = io.Copy(io.Discard, r)
}
