package models

import "time"

// SummaryCharLimit is the length the summarization agent is asked to stay under.
// It is not enforced.
const SummaryCharLimit = 2000

// Episode is the outcome of a successful run.
type Episode struct {
	ID        string    `json:"id"`
	SourceURL string    `json:"source_url"`
	Summary   string    `json:"summary"`
	Audio     []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Stage is a step of a run.
type Stage string

const (
	StageIdle         Stage = "idle"
	StageValidating   Stage = "validating"
	StageSummarizing  Stage = "summarizing"
	StageSynthesizing Stage = "synthesizing"
	StagePresenting   Stage = "presenting"
	StageFailed       Stage = "failed"
)

// Progress is one message of the websocket progress stream.
type Progress struct {
	Stage     Stage  `json:"stage"`
	EpisodeID string `json:"episode_id,omitempty"`
	Kind      Kind   `json:"kind,omitempty"`
	Message   string `json:"message,omitempty"`
}

// GenerateRequest is what the browser sends to start a run over the websocket.
type GenerateRequest struct {
	URL string `json:"url"`
}

// PodcastSession is what one browser session keeps between requests.
type PodcastSession struct {
	Busy    bool
	Episode *Episode
}
