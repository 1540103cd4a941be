package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/srgchrksv/blogpodcaster/models"
)

// Progress runs the pipeline over a websocket, streaming stage changes so the
// page can show a busy indicator for the whole run.
func (h *Handlers) Progress(c *gin.Context) {
	// The request context outlives a hijacked connection, so the run is
	// cancelled from the read loop instead.
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WarnContext(ctx, "Failed to upgrade websocket",
			"error", err)

		return
	}
	defer conn.Close()

	send := func(p models.Progress) {
		if err := conn.WriteJSON(p); err != nil {
			h.log.WarnContext(ctx, "Failed to write progress",
				"error", err,
				"stage", p.Stage)
		}
	}

	var req models.GenerateRequest
	if err := conn.ReadJSON(&req); err != nil {
		h.log.WarnContext(ctx, "Failed to read generate request",
			"error", err)

		return
	}

	// Any read error means the peer closed or broke the connection.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	episode, runErr := h.run(ctx, sessionID(c), req.URL, func(stage models.Stage) {
		switch stage {
		case models.StagePresenting, models.StageFailed:
			// Terminal stages are sent below with their payload.
		default:
			send(models.Progress{Stage: stage})
		}
	})
	if runErr != nil {
		send(models.Progress{
			Stage:   models.StageFailed,
			Kind:    runErr.Kind,
			Message: runErr.Message(),
		})
		return
	}

	send(models.Progress{Stage: models.StagePresenting, EpisodeID: episode.ID})
}
