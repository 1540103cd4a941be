package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/srgchrksv/blogpodcaster/models"
	"github.com/srgchrksv/blogpodcaster/storage"
)

const (
	// SessionIDKey is the gin context key holding the caller's session ID.
	SessionIDKey = "sessionID"

	pageTemplate     = "index.html"
	downloadFilename = "podcast.mp3"
	audioMIMEType    = "audio/mp3"
	successMessage   = "🎧 Podcast generated successfully!"
)

// Runner executes one run of the podcast pipeline.
type Runner interface {
	Run(ctx context.Context, url string, observe func(models.Stage)) (*models.Episode, error)
}

type Handlers struct {
	runner    Runner
	storage   *storage.Storage
	configErr *models.RunError
	upgrader  websocket.Upgrader
	log       *slog.Logger
}

// New builds the handlers. When configErr is not nil every page shows it and
// no run can start.
func New(
	runner Runner,
	storage *storage.Storage,
	configErr error,
	allowedOrigins []string,
	log *slog.Logger,
) *Handlers {
	h := &Handlers{
		runner:  runner,
		storage: storage,
		log:     log,
	}
	if configErr != nil {
		h.configErr = models.AsRunError(configErr, models.KindConfiguration)
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return checkOrigin(r, allowedOrigins)
		},
	}

	return h
}

type banner struct {
	Level string
	Text  string
}

type page struct {
	ConfigError string
	Banner      *banner
	URL         string
	Episode     *models.Episode
}

func (h *Handlers) render(c *gin.Context, status int, p page) {
	if h.configErr != nil {
		p = page{ConfigError: h.configErr.Message()}
	}
	c.HTML(status, pageTemplate, p)
}

func sessionID(c *gin.Context) string {
	return c.GetString(SessionIDKey)
}

// Index shows the form and the session's latest episode.
func (h *Handlers) Index(c *gin.Context) {
	if h.configErr != nil {
		h.render(c, http.StatusServiceUnavailable, page{})
		return
	}

	p := page{}
	if episode, ok := h.storage.Latest(sessionID(c)); ok {
		p.Episode = episode
		p.URL = episode.SourceURL
	}
	h.render(c, http.StatusOK, p)
}

// Generate runs the pipeline for the submitted form and renders the outcome.
func (h *Handlers) Generate(c *gin.Context) {
	rawURL := c.PostForm("url")

	episode, runErr := h.run(c.Request.Context(), sessionID(c), rawURL, nil)
	if runErr != nil {
		h.render(c, statusFor(runErr), page{
			URL:    rawURL,
			Banner: bannerFor(runErr),
		})
		return
	}

	h.render(c, http.StatusOK, page{
		URL:     episode.SourceURL,
		Banner:  &banner{Level: "success", Text: successMessage},
		Episode: episode,
	})
}

// Episode renders a finished episode of the caller's session.
func (h *Handlers) Episode(c *gin.Context) {
	episode, ok := h.episode(c)
	if !ok {
		return
	}

	h.render(c, http.StatusOK, page{
		URL:     episode.SourceURL,
		Banner:  &banner{Level: "success", Text: successMessage},
		Episode: episode,
	})
}

// Audio serves the episode audio for the inline player.
func (h *Handlers) Audio(c *gin.Context) {
	episode, ok := h.episode(c)
	if !ok {
		return
	}

	c.Data(http.StatusOK, audioMIMEType, episode.Audio)
}

// Download serves the same bytes as Audio as a file attachment.
func (h *Handlers) Download(c *gin.Context) {
	episode, ok := h.episode(c)
	if !ok {
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+downloadFilename+`"`)
	c.Data(http.StatusOK, audioMIMEType, episode.Audio)
}

func (h *Handlers) episode(c *gin.Context) (*models.Episode, bool) {
	if h.configErr != nil {
		h.render(c, http.StatusServiceUnavailable, page{})
		return nil, false
	}

	episode, ok := h.storage.Episode(sessionID(c), c.Param("id"))
	if !ok {
		c.String(http.StatusNotFound, "episode not found")
		return nil, false
	}

	return episode, true
}

// run serializes runs per session and tags every failure with its kind.
func (h *Handlers) run(
	ctx context.Context,
	sessionID string,
	rawURL string,
	observe func(models.Stage),
) (*models.Episode, *models.RunError) {
	if h.configErr != nil {
		return nil, h.configErr
	}

	if err := h.storage.Begin(sessionID); err != nil {
		return nil, models.NewRunError(models.KindInput, err)
	}

	episode, err := h.runner.Run(ctx, rawURL, observe)
	h.storage.Finish(sessionID, episode)
	if err != nil {
		return nil, models.AsRunError(err, models.KindSummarization)
	}

	return episode, nil
}

func bannerFor(err *models.RunError) *banner {
	if err.Warning() {
		return &banner{Level: "warning", Text: err.Message()}
	}

	return &banner{Level: "error", Text: err.Message()}
}

func statusFor(err *models.RunError) int {
	switch err.Kind {
	case models.KindConfiguration:
		return http.StatusServiceUnavailable
	case models.KindInput:
		if errors.Is(err, models.ErrBusy) {
			return http.StatusConflict
		}
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func checkOrigin(r *http.Request, allowedOrigins []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Host == r.Host {
		return true
	}

	return slices.Contains(allowedOrigins, origin)
}
