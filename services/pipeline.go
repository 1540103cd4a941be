package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/srgchrksv/blogpodcaster/models"
)

// Pipeline runs one blog URL through summarization and synthesis.
type Pipeline struct {
	summarizer  Summarizer
	synthesizer Synthesizer
	log         *slog.Logger
	now         func() time.Time
}

func NewPipeline(summarizer Summarizer, synthesizer Synthesizer, log *slog.Logger) *Pipeline {
	return &Pipeline{
		summarizer:  summarizer,
		synthesizer: synthesizer,
		log:         log,
		now:         time.Now,
	}
}

// Run executes one run. observe, when not nil, is called on every stage
// transition. Every returned error is a *models.RunError and no partial
// episode is returned with it.
func (p *Pipeline) Run(
	ctx context.Context,
	rawURL string,
	observe func(models.Stage),
) (*models.Episode, error) {
	if observe == nil {
		observe = func(models.Stage) {}
	}
	fail := func(kind models.Kind, err error) (*models.Episode, error) {
		observe(models.StageFailed)
		p.log.WarnContext(ctx, "Run failed",
			"kind", kind,
			"error", err,
			"url", rawURL)

		return nil, models.NewRunError(kind, err)
	}

	start := time.Now()

	observe(models.StageValidating)
	url := strings.TrimSpace(rawURL)
	if url == "" {
		return fail(models.KindInput, models.ErrEmptyURL)
	}

	observe(models.StageSummarizing)
	reply, err := p.summarizer.Summarize(ctx, url)
	if err != nil {
		return fail(models.KindSummarization, err)
	}

	summary := strings.TrimSpace(reply.Text())
	if summary == "" {
		return fail(models.KindSummarization, models.ErrEmptySummary)
	}
	if n := len([]rune(summary)); n > models.SummaryCharLimit {
		p.log.WarnContext(ctx, "Summary is longer than requested",
			"chars", n,
			"limit", models.SummaryCharLimit,
			"url", url)
	}
	p.log.InfoContext(ctx, "Summary is generated",
		"chars", len(summary),
		"structured", reply.HasContent(),
		"url", url)

	observe(models.StageSynthesizing)
	audio, err := JoinChunks(p.synthesizer.Synthesize(ctx, summary))
	if err != nil {
		return fail(models.KindSynthesis, err)
	}
	if len(audio) == 0 {
		return fail(models.KindSynthesis, models.ErrEmptyAudio)
	}

	episode := &models.Episode{
		ID:        uuid.NewString(),
		SourceURL: url,
		Summary:   summary,
		Audio:     audio,
		CreatedAt: p.now(),
	}

	observe(models.StagePresenting)
	p.log.InfoContext(ctx, "Podcast is generated",
		"episodeID", episode.ID,
		"audioBytes", len(audio),
		"url", url,
		"durationSeconds", time.Since(start).Seconds())

	return episode, nil
}
