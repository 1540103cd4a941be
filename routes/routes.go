package routes

import (
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/srgchrksv/blogpodcaster/handlers"
	"github.com/srgchrksv/blogpodcaster/web"
)

const sessionName = "podcastsession"

type Options struct {
	SessionSecret  string
	AllowedOrigins []string
}

func RegisterRoutes(r *gin.Engine, h *handlers.Handlers, opts Options) error {
	tmpl, err := web.Templates()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)

	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	if len(opts.AllowedOrigins) > 0 {
		config := cors.DefaultConfig()
		config.AllowOrigins = opts.AllowedOrigins
		config.AllowMethods = []string{"GET", "POST"}
		config.AllowHeaders = []string{"Content-Type"}
		config.AllowCredentials = true
		r.Use(cors.New(config))
	}

	r.Use(ensureSession)

	r.GET("/", h.Index)
	r.POST("/generate", h.Generate)
	r.GET("/ws", h.Progress)
	r.GET("/episodes/:id", h.Episode)
	r.GET("/episodes/:id/audio", h.Audio)
	r.GET("/episodes/:id/download", h.Download)

	return nil
}

// ensureSession gives every browser a session ID and exposes it to handlers.
func ensureSession(c *gin.Context) {
	session := sessions.Default(c)

	id, _ := session.Get(handlers.SessionIDKey).(string)
	if id == "" {
		id = uuid.NewString()
		session.Set(handlers.SessionIDKey, id)
		if err := session.Save(); err != nil {
			_ = c.Error(err)
		}
	}

	c.Set(handlers.SessionIDKey, id)
	c.Next()
}
