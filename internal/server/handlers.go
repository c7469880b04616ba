package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/julianstephens/sprout/internal/constants"
	"github.com/julianstephens/sprout/internal/export"
	"github.com/julianstephens/sprout/internal/journal"
	"github.com/julianstephens/sprout/internal/models"
	"github.com/julianstephens/sprout/internal/validation"
)

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// sessionRequest leaves blank fields to VerifyCredentials, so every failed
// login gets the same 401.
type sessionRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type entryRequest struct {
	Date          string `json:"date"`
	Mood          string `json:"mood"`
	Achievements  string `json:"achievements" binding:"required"`
	Lessons       string `json:"lessons" binding:"required"`
	Challenges    string `json:"challenges"`
	TomorrowGoals string `json:"tomorrow_goals"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": constants.Version})
}

func (s *Server) createAccount(c *gin.Context) {
	var body credentialsRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, bindError(err))
		return
	}

	user, err := s.deps.Accounts.CreateAccount(body.Username, body.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"username": user.Username, "created_at": user.CreatedAt})
}

func (s *Server) createSession(c *gin.Context) {
	var body sessionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, bindError(err))
		return
	}

	user, err := s.deps.Accounts.VerifyCredentials(body.Username, body.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, sess, err := s.deps.Sessions.Issue(user.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "username": sess.Username, "expires_at": sess.ExpiresAt})
}

func (s *Server) me(c *gin.Context) {
	c.JSON(http.StatusOK, sessionFrom(c))
}

func (s *Server) listEntries(c *gin.Context) {
	entries, err := s.deps.Journal.List(sessionFrom(c), journal.Query{
		Date:   c.Query("date"),
		Search: c.Query("q"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) addEntry(c *gin.Context) {
	var body entryRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, bindError(err))
		return
	}

	entry, summary, err := s.deps.Journal.Add(sessionFrom(c), validation.EntryInput(body))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": entry.ID, "entry": entry, "summary": summary})
}

func (s *Server) exportEntries(c *gin.Context) {
	entries, err := s.deps.Journal.Entries(sessionFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+constants.ExportFileName+`"`)
	c.Status(http.StatusOK)
	if err := export.WriteCSV(c.Writer, entries); err != nil {
		// Headers are already out; all we can do is log
		_ = c.Error(err)
	}
}

func (s *Server) metrics(c *gin.Context) {
	sess := sessionFrom(c)

	var (
		summary models.Summary
		err     error
	)
	switch c.Query("refresh") {
	case "1", "true":
		summary, err = s.deps.Journal.Refresh(sess)
	default:
		summary, err = s.deps.Journal.Summary(sess)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) challenge(c *gin.Context) {
	s.mu.Lock()
	challenge := s.picker.Challenge()
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"challenge": challenge})
}

func (s *Server) quote(c *gin.Context) {
	s.mu.Lock()
	quote := s.picker.Quote()
	s.mu.Unlock()
	c.JSON(http.StatusOK, quote)
}
