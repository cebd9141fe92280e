package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tutorbot/internal/domain"
	"tutorbot/internal/feedback"
	"tutorbot/internal/session"
	"tutorbot/internal/storage/sqlite"
	"tutorbot/internal/tutor"
)

const defaultMistakeLimit = 10
const maxMistakeLimit = 100
const defaultFeedbackDays = 30
const maxFeedbackDays = 365

type startLessonRequest struct {
	NativeLanguage string `json:"native_language"`
	TargetLanguage string `json:"target_language"`
	Proficiency    string `json:"proficiency"`
	Scenario       string `json:"scenario"`
}

type lessonResponse struct {
	LessonID       string `json:"lesson_id"`
	NativeLanguage string `json:"native_language"`
	TargetLanguage string `json:"target_language"`
	Proficiency    string `json:"proficiency"`
	Scenario       string `json:"scenario"`
	StartedAt      string `json:"started_at"`
}

type mistakeResponse struct {
	ID                int64  `json:"id"`
	LessonID          string `json:"lesson_id"`
	NativeLanguage    string `json:"native_language"`
	TargetLanguage    string `json:"target_language"`
	ErrorSentence     string `json:"error_sentence"`
	CorrectedSentence string `json:"corrected_sentence"`
	ErrorType         string `json:"error_type"`
	CreatedAt         string `json:"created_at"`
}

func toLessonResponse(l domain.Lesson) lessonResponse {
	return lessonResponse{
		LessonID:       l.ID,
		NativeLanguage: l.NativeLanguage,
		TargetLanguage: l.TargetLanguage,
		Proficiency:    l.Proficiency,
		Scenario:       l.Scenario,
		StartedAt:      l.StartedAt.UTC().Format(time.RFC3339),
	}
}

func toMistakeResponses(ms []domain.Mistake) []mistakeResponse {
	out := make([]mistakeResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, mistakeResponse{
			ID:                m.ID,
			LessonID:          m.SessionID,
			NativeLanguage:    m.NativeLanguage,
			TargetLanguage:    m.TargetLanguage,
			ErrorSentence:     m.ErrorSentence,
			CorrectedSentence: m.CorrectedSentence,
			ErrorType:         m.ErrorType,
			CreatedAt:         m.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

func (s *Server) startLesson(c *gin.Context) {
	var req startLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	lesson := domain.Lesson{
		ID:             session.NewSessionID(),
		NativeLanguage: req.NativeLanguage,
		TargetLanguage: req.TargetLanguage,
		Proficiency:    domain.NormalizeProficiency(req.Proficiency),
		Scenario:       req.Scenario,
		StartedAt:      time.Now().In(s.cfg.Location),
	}
	if err := lesson.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := sqlite.InsertLesson(s.db, lesson); err != nil {
		log.Printf("server insert lesson error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store lesson"})
		return
	}

	reply, err := s.llm.Opening(c.Request.Context(), lesson)
	if err != nil {
		log.Printf("server opening error lesson=%s: %v", lesson.ID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "tutor is unavailable, try again"})
		return
	}

	// The opening input counts as the first user turn: the upstream Messages
	// API rejects histories that do not start with a user message.
	s.sessions.Append(lesson.ID,
		session.Message{Role: session.RoleUser, Content: tutor.OpeningInput(lesson)},
		session.Message{Role: session.RoleAssistant, Content: reply.Text},
	)
	log.Printf("server lesson started id=%s target=%s scenario=%s", lesson.ID, lesson.TargetLanguage, lesson.Scenario)

	c.JSON(http.StatusCreated, gin.H{
		"lesson": toLessonResponse(lesson),
		"reply":  reply.Text,
	})
}

func (s *Server) listLessons(c *gin.Context) {
	lessons, err := sqlite.ListRecentLessons(s.db, 20)
	if err != nil {
		log.Printf("server list lessons error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load lessons"})
		return
	}
	out := make([]lessonResponse, 0, len(lessons))
	for _, l := range lessons {
		out = append(out, toLessonResponse(l))
	}
	c.JSON(http.StatusOK, gin.H{"lessons": out})
}

type postMessageRequest struct {
	Text string `json:"text"`
}

func (s *Server) postMessage(c *gin.Context) {
	lessonID := c.Param("id")
	lesson, err := sqlite.GetLesson(s.db, lessonID)
	if err != nil {
		if errors.Is(err, domain.ErrLessonNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "lesson not found"})
			return
		}
		log.Printf("server get lesson error id=%s: %v", lessonID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load lesson"})
		return
	}

	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	history := s.sessions.History(lesson.ID)
	reply, err := s.llm.Respond(c.Request.Context(), lesson, history, req.Text)
	if err != nil {
		log.Printf("server respond error lesson=%s: %v", lesson.ID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "tutor is unavailable, try again"})
		return
	}

	if len(reply.Mistakes) > 0 {
		inserted, err := sqlite.InsertMistakes(s.db, reply.Mistakes)
		if err != nil {
			log.Printf("server insert mistakes error lesson=%s inserted=%d: %v", lesson.ID, inserted, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store mistakes"})
			return
		}
		log.Printf("server logged mistakes lesson=%s count=%d", lesson.ID, inserted)
	}

	s.sessions.Append(lesson.ID,
		session.Message{Role: session.RoleUser, Content: req.Text},
		session.Message{Role: session.RoleAssistant, Content: reply.Text},
	)

	c.JSON(http.StatusOK, gin.H{
		"reply":    reply.Text,
		"mistakes": toMistakeResponses(reply.Mistakes),
	})
}

func (s *Server) getTranscript(c *gin.Context) {
	lessonID := c.Param("id")
	if _, err := sqlite.GetLesson(s.db, lessonID); err != nil {
		if errors.Is(err, domain.ErrLessonNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "lesson not found"})
			return
		}
		log.Printf("server get lesson error id=%s: %v", lessonID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load lesson"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": s.sessions.History(lessonID)})
}

func (s *Server) listMistakes(c *gin.Context) {
	limit := parseIntQuery(c, "limit", defaultMistakeLimit, 1, maxMistakeLimit)

	var (
		mistakes []domain.Mistake
		err      error
	)
	if lessonID := c.Query("lesson_id"); lessonID != "" {
		mistakes, err = sqlite.GetMistakesBySession(s.db, lessonID, limit)
	} else {
		mistakes, err = sqlite.GetRecentMistakes(s.db, limit)
	}
	if err != nil {
		log.Printf("server list mistakes error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load mistakes"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"mistakes": toMistakeResponses(mistakes)})
}

func (s *Server) getFeedback(c *gin.Context) {
	since := s.feedbackSince(c)
	summary, err := feedback.BuildSummary(s.db, since)
	if err != nil {
		log.Printf("server feedback error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build feedback"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) getAdvice(c *gin.Context) {
	since := s.feedbackSince(c)
	summary, err := feedback.BuildSummary(s.db, since)
	if err != nil {
		log.Printf("server advice summary error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build feedback"})
		return
	}

	suggestions, usage, err := feedback.Advise(c.Request.Context(), s.llm, summary)
	if err != nil {
		log.Printf("server advice error tokens=%d: %v", usage.TotalTokens(), err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "advice is unavailable, try again"})
		return
	}
	if suggestions == nil {
		suggestions = []feedback.PracticeSuggestion{}
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

func (s *Server) getOptions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"proficiencies": domain.Proficiencies,
		"scenarios":     domain.Scenarios,
		"error_types":   domain.ErrorTypes,
	})
}

func (s *Server) feedbackSince(c *gin.Context) time.Time {
	days := parseIntQuery(c, "days", defaultFeedbackDays, 1, maxFeedbackDays)
	return time.Now().In(s.cfg.Location).AddDate(0, 0, -days)
}

func parseIntQuery(c *gin.Context, key string, def, min, max int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < min {
		return def
	}
	if val > max {
		return max
	}
	return val
}
