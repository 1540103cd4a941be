package handlers_test

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srgchrksv/blogpodcaster/config"
	"github.com/srgchrksv/blogpodcaster/handlers"
	"github.com/srgchrksv/blogpodcaster/models"
	"github.com/srgchrksv/blogpodcaster/routes"
	"github.com/srgchrksv/blogpodcaster/services"
	"github.com/srgchrksv/blogpodcaster/storage"
)

type fakeSummarizer struct {
	mu    sync.Mutex
	reply models.Reply
	err   error
	calls int

	// When hold is set, Summarize waits for ctx and reports ctx.Err() on canceled.
	hold     bool
	canceled chan error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, _ string) (models.Reply, error) {
	f.mu.Lock()
	f.calls++
	hold, canceled := f.hold, f.canceled
	reply, err := f.reply, f.err
	f.mu.Unlock()

	if hold {
		<-ctx.Done()
		canceled <- ctx.Err()
		return models.Reply{}, ctx.Err()
	}

	return reply, err
}

func (f *fakeSummarizer) Hold(hold bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hold = hold
}

func (f *fakeSummarizer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSynthesizer struct {
	mu     sync.Mutex
	chunks [][]byte
	calls  int
}

func (f *fakeSynthesizer) Synthesize(context.Context, string) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		f.mu.Lock()
		f.calls++
		chunks := f.chunks
		f.mu.Unlock()
		for _, chunk := range chunks {
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

func (f *fakeSynthesizer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type app struct {
	server      *httptest.Server
	client      *http.Client
	summarizer  *fakeSummarizer
	synthesizer *fakeSynthesizer
}

func newApp(t *testing.T, configErr error) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	summarizer := &fakeSummarizer{
		reply:    models.ContentReply("This is a test summary."),
		canceled: make(chan error, 1),
	}
	synthesizer := &fakeSynthesizer{chunks: [][]byte{[]byte("RIFF..."), []byte("...DATA")}}

	var runner handlers.Runner
	if configErr == nil {
		runner = services.NewPipeline(summarizer, synthesizer, log)
	}

	r := gin.New()
	h := handlers.New(runner, storage.NewStorage(), configErr, nil, log)
	require.NoError(t, routes.RegisterRoutes(r, h, routes.Options{SessionSecret: "test-secret"}))

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &app{
		server:      server,
		client:      &http.Client{Jar: jar},
		summarizer:  summarizer,
		synthesizer: synthesizer,
	}
}

func (a *app) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()

	resp, err := a.client.Get(a.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, string(body)
}

func (a *app) generate(t *testing.T, rawURL string) (*http.Response, string) {
	t.Helper()

	resp, err := a.client.PostForm(a.server.URL+"/generate", url.Values{"url": {rawURL}})
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, string(body)
}

func episodeID(t *testing.T, body string) string {
	t.Helper()

	const marker = `/episodes/`
	i := strings.Index(body, marker)
	require.NotEqual(t, -1, i, "no episode link in page")
	rest := body[i+len(marker):]

	return rest[:strings.Index(rest, "/")]
}

func TestIndexShowsForm(t *testing.T) {
	a := newApp(t, nil)

	resp, body := a.get(t, "/")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "API keys loaded from .env")
	assert.Contains(t, body, "Enter Blog URL")
	assert.Contains(t, body, `placeholder="https://example.com/blog-post"`)
	assert.Contains(t, body, "Generate Podcast")
	assert.NotContains(t, body, `data-testid="episode"`)
}

func TestGenerateEndToEnd(t *testing.T) {
	a := newApp(t, nil)

	resp, body := a.generate(t, "https://example.com/post")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Podcast generated successfully!")
	assert.Contains(t, body, `<source src="/episodes/`)
	assert.Contains(t, body, `type="audio/mp3"`)
	assert.NotContains(t, body, `<audio controls src=`)
	assert.Contains(t, body, `download="podcast.mp3"`)
	assert.Contains(t, body, "<details>")
	assert.Contains(t, body, "This is a test summary.")

	id := episodeID(t, body)

	audioResp, audio := a.get(t, "/episodes/"+id+"/audio")
	assert.Equal(t, http.StatusOK, audioResp.StatusCode)
	assert.Equal(t, "audio/mp3", audioResp.Header.Get("Content-Type"))
	assert.Equal(t, "RIFF......DATA", audio)

	downloadResp, download := a.get(t, "/episodes/"+id+"/download")
	assert.Equal(t, http.StatusOK, downloadResp.StatusCode)
	assert.Equal(t, "audio/mp3", downloadResp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="podcast.mp3"`, downloadResp.Header.Get("Content-Disposition"))
	assert.Equal(t, audio, download)

	// The session keeps its last rendered output.
	_, index := a.get(t, "/")
	assert.Contains(t, index, "/episodes/"+id+"/audio")
}

func TestGenerateBlankURLWarns(t *testing.T) {
	a := newApp(t, nil)

	for _, rawURL := range []string{"", "   "} {
		resp, body := a.generate(t, rawURL)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body, `class="banner warning"`)
		assert.Contains(t, body, "Please enter a blog URL")
		assert.Contains(t, body, `action="/generate"`, "form stays usable")
	}
	assert.Zero(t, a.summarizer.Calls())
	assert.Zero(t, a.synthesizer.Calls())
}

func TestGenerateSummarizationFailure(t *testing.T) {
	a := newApp(t, nil)
	a.summarizer.err = errors.New("dial tcp: connection refused")

	resp, body := a.generate(t, "https://example.com/post")

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, 1, strings.Count(body, `class="banner error"`))
	assert.Contains(t, body, "Error: dial tcp: connection refused")
	assert.NotContains(t, body, "<audio")
	assert.NotContains(t, body, "Download Podcast")
	assert.Zero(t, a.synthesizer.Calls())
}

func TestGenerateEmptySummaryStopsBeforeSynthesis(t *testing.T) {
	a := newApp(t, nil)
	a.summarizer.reply = models.OpaqueReply("")

	resp, body := a.generate(t, "https://example.com/post")

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body, "Error: failed to generate summary")
	assert.Zero(t, a.synthesizer.Calls())
}

func TestMissingConfigDisablesGeneration(t *testing.T) {
	a := newApp(t, &config.MissingKeysError{Names: []string{"OPENAI_API_KEY", "FIRECRAWL_API_KEY"}})

	resp, body := a.get(t, "/")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, "Missing API keys in .env: OPENAI_API_KEY, FIRECRAWL_API_KEY.")
	assert.NotContains(t, body, "ELEVENLABS_API_KEY")
	assert.NotContains(t, body, "<form")

	resp, body = a.generate(t, "https://example.com/post")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, "Missing API keys in .env")
	assert.NotContains(t, body, "<audio")
}

func TestEpisodesAreScopedToSession(t *testing.T) {
	a := newApp(t, nil)

	_, body := a.generate(t, "https://example.com/post")
	id := episodeID(t, body)

	resp, err := http.Get(a.server.URL + "/episodes/" + id + "/audio")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func dialProgress(t *testing.T, a *app) *websocket.Conn {
	t.Helper()

	// Obtain the session cookie first.
	a.get(t, "/")

	serverURL, err := url.Parse(a.server.URL)
	require.NoError(t, err)

	header := http.Header{}
	for _, c := range a.client.Jar.Cookies(serverURL) {
		header.Add("Cookie", c.String())
	}

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(a.server.URL, "http")+"/ws", header)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })

	return conn
}

func readProgress(t *testing.T, conn *websocket.Conn) []models.Progress {
	t.Helper()

	var events []models.Progress
	for {
		var p models.Progress
		if err := conn.ReadJSON(&p); err != nil {
			return events
		}
		events = append(events, p)
		if p.Stage == models.StagePresenting || p.Stage == models.StageFailed {
			return events
		}
	}
}

func TestProgressStreamsStages(t *testing.T) {
	a := newApp(t, nil)
	conn := dialProgress(t, a)

	require.NoError(t, conn.WriteJSON(models.GenerateRequest{URL: "https://example.com/post"}))
	events := readProgress(t, conn)

	require.Len(t, events, 4)
	assert.Equal(t, models.StageValidating, events[0].Stage)
	assert.Equal(t, models.StageSummarizing, events[1].Stage)
	assert.Equal(t, models.StageSynthesizing, events[2].Stage)
	assert.Equal(t, models.StagePresenting, events[3].Stage)
	require.NotEmpty(t, events[3].EpisodeID)

	resp, body := a.get(t, "/episodes/"+events[3].EpisodeID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "This is a test summary.")
}

func TestProgressReportsInputWarning(t *testing.T) {
	a := newApp(t, nil)
	conn := dialProgress(t, a)

	require.NoError(t, conn.WriteJSON(models.GenerateRequest{URL: "  "}))
	events := readProgress(t, conn)

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, models.StageFailed, last.Stage)
	assert.Equal(t, models.KindInput, last.Kind)
	assert.Equal(t, "Please enter a blog URL", last.Message)
	assert.Zero(t, a.summarizer.Calls())
}

func TestProgressClosedConnectionCancelsRun(t *testing.T) {
	a := newApp(t, nil)
	a.summarizer.Hold(true)
	conn := dialProgress(t, a)

	require.NoError(t, conn.WriteJSON(models.GenerateRequest{URL: "https://example.com/post"}))
	for {
		var p models.Progress
		require.NoError(t, conn.ReadJSON(&p))
		if p.Stage == models.StageSummarizing {
			break
		}
	}
	require.NoError(t, conn.Close())

	select {
	case err := <-a.summarizer.canceled:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("run was not cancelled after the connection closed")
	}
	assert.Zero(t, a.synthesizer.Calls())

	// The session is released once the cancelled run returns.
	a.summarizer.Hold(false)
	assert.Eventually(t, func() bool {
		resp, err := a.client.PostForm(a.server.URL+"/generate", url.Values{"url": {"https://example.com/post"}})
		if err != nil {
			return false
		}
		resp.Body.Close()

		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)
}
