package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/srgchrksv/blogpodcaster/config"
	"github.com/srgchrksv/blogpodcaster/handlers"
	"github.com/srgchrksv/blogpodcaster/routes"
	"github.com/srgchrksv/blogpodcaster/services"
	"github.com/srgchrksv/blogpodcaster/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.ErrorContext(ctx, "Failed to load config",
			"error", err)

		return
	}

	// A misconfigured server still starts so the page can name what is missing.
	var pipeline handlers.Runner
	configErr := cfg.Validate()
	if configErr != nil {
		log.ErrorContext(ctx, "Config is invalid, podcast generation is disabled",
			"error", configErr)
	} else {
		p, closers, buildErr := buildPipeline(ctx, cfg, log)
		if buildErr != nil {
			log.ErrorContext(ctx, "Failed to initialize collaborators",
				"error", buildErr,
				"summarizer", cfg.SummarizerProvider,
				"synthesizer", cfg.SynthesizerProvider)

			return
		}
		defer func() {
			for _, c := range closers {
				if err := c.Close(); err != nil {
					log.ErrorContext(ctx, "Failed to close client",
						"error", err)
				}
			}
		}()
		pipeline = p
		log.InfoContext(ctx, "API keys loaded",
			"summarizer", cfg.SummarizerProvider,
			"synthesizer", cfg.SynthesizerProvider)
	}

	h := handlers.New(pipeline, storage.NewStorage(), configErr, cfg.AllowedOrigins, log)

	r := gin.Default()
	if err := routes.RegisterRoutes(r, h, routes.Options{
		SessionSecret:  cfg.SessionSecret,
		AllowedOrigins: cfg.AllowedOrigins,
	}); err != nil {
		log.ErrorContext(ctx, "Failed to register routes",
			"error", err)

		return
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.ErrorContext(ctx, "Server stopped",
				"error", err,
				"addr", cfg.Addr)
			stop()
		}
	}()
	log.InfoContext(ctx, "Server is started",
		"addr", cfg.Addr)

	<-ctx.Done()
	log.InfoContext(ctx, "Shutdown signal is received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.ErrorContext(shutdownCtx, "Failed to shut down server",
			"error", err)
	}
	log.InfoContext(shutdownCtx, "Server is stopped")
}

func buildPipeline(
	ctx context.Context,
	cfg config.Config,
	log *slog.Logger,
) (*services.Pipeline, []io.Closer, error) {
	var closers []io.Closer
	scraper := services.NewFirecrawlScraper(cfg.FirecrawlAPIKey)

	var summarizer services.Summarizer
	switch cfg.SummarizerProvider {
	case config.ProviderGemini:
		gemini, err := services.NewGeminiSummarizer(ctx, cfg.GeminiAPIKey, scraper, log)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, gemini)
		summarizer = gemini
	default:
		summarizer = services.NewOpenAISummarizer(cfg.OpenAIAPIKey, scraper, log)
	}

	var synthesizer services.Synthesizer
	switch cfg.SynthesizerProvider {
	case config.ProviderGoogle:
		google, err := services.NewGoogleSynthesizer(ctx, cfg.GoogleTTSAPIKey)
		if err != nil {
			for _, c := range closers {
				_ = c.Close()
			}
			return nil, nil, err
		}
		closers = append(closers, google)
		synthesizer = google
	default:
		synthesizer = services.NewElevenLabsSynthesizer(cfg.ElevenLabsAPIKey)
	}

	return services.NewPipeline(summarizer, synthesizer, log), closers, nil
}
