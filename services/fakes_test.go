package services

import (
	"context"
	"io"
	"iter"
	"log/slog"

	"github.com/srgchrksv/blogpodcaster/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSummarizer struct {
	reply models.Reply
	err   error
	calls []string
}

func (f *fakeSummarizer) Summarize(_ context.Context, url string) (models.Reply, error) {
	f.calls = append(f.calls, url)
	return f.reply, f.err
}

type fakeSynthesizer struct {
	chunks [][]byte
	err    error
	texts  []string
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, text string) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		f.texts = append(f.texts, text)
		for _, chunk := range f.chunks {
			if !yield(chunk, nil) {
				return
			}
		}
		if f.err != nil {
			yield(nil, f.err)
		}
	}
}

type fakeScraper struct {
	page *Page
	err  error
	urls []string
}

func (f *fakeScraper) Scrape(_ context.Context, url string) (*Page, error) {
	f.urls = append(f.urls, url)
	return f.page, f.err
}
