// Package server exposes the web surface of the tutor.
//
// Endpoints:
//   - POST /api/lessons                 - start a lesson, returns the opening message
//   - GET  /api/lessons                 - recent lessons
//   - POST /api/lessons/:id/messages    - one chat turn
//   - GET  /api/lessons/:id/messages    - session transcript
//   - GET  /api/mistakes                - recent logged mistakes
//   - GET  /api/feedback                - aggregated mistake summary
//   - GET  /api/feedback/advice         - LLM practice suggestions
//   - GET  /api/options                 - proficiency/scenario pickers
//   - GET  /healthz                     - health check
//   - GET  /                            - embedded chat page
package server

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"

	"tutorbot/internal/config"
	"tutorbot/internal/domain"
	"tutorbot/internal/session"
	"tutorbot/internal/tutor"
)

//go:embed static
var staticFS embed.FS

// LLM is the part of the tutor the handlers depend on.
type LLM interface {
	Opening(ctx context.Context, lesson domain.Lesson) (tutor.Reply, error)
	Respond(ctx context.Context, lesson domain.Lesson, history []session.Message, userText string) (tutor.Reply, error)
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, tutor.Usage, error)
}

type Server struct {
	cfg      config.Config
	db       *sql.DB
	sessions *session.Store
	llm      LLM
	engine   *gin.Engine
}

func New(cfg config.Config, db *sql.DB, sessions *session.Store, llm LLM) *Server {
	s := &Server{
		cfg:      cfg,
		db:       db,
		sessions: sessions,
		llm:      llm,
	}
	s.engine = s.buildEngine()
	return s
}

func (s *Server) buildEngine() *gin.Engine {
	router := gin.Default()

	api := router.Group("/api")
	{
		api.POST("/lessons", s.startLesson)
		api.GET("/lessons", s.listLessons)
		api.POST("/lessons/:id/messages", s.postMessage)
		api.GET("/lessons/:id/messages", s.getTranscript)
		api.GET("/mistakes", s.listMistakes)
		api.GET("/feedback", s.getFeedback)
		api.GET("/feedback/advice", s.getAdvice)
		api.GET("/options", s.getOptions)
	}

	router.GET("/healthz", s.health)

	static, _ := fs.Sub(staticFS, "static")
	router.StaticFileFS("/", "index.html", http.FS(static))

	return router
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Run() error {
	return s.engine.Run(s.cfg.ListenAddr)
}

func (s *Server) health(c *gin.Context) {
	if err := s.db.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
