package server

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/julianstephens/sprout/internal/auth"
	"github.com/julianstephens/sprout/internal/errors"
	"github.com/julianstephens/sprout/internal/logger"
)

const sessionKey = "session"

// requestLogger writes one line per request to the application log
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		reqLog := logger.With("method", c.Request.Method, "path", c.Request.URL.Path)
		if reqLog == nil {
			return
		}
		if len(c.Errors) > 0 {
			reqLog = reqLog.With("errors", c.Errors.String())
		}
		reqLog.Info("Request", "status", c.Writer.Status(), "duration", time.Since(start))
	}
}

// requireSession parses the bearer token and stores the session on the
// request context. Requests without a valid token stop here with 401.
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			respondError(c, errors.Auth("missing bearer token"))
			c.Abort()
			return
		}

		sess, err := s.deps.Sessions.Parse(token)
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}

		c.Set(sessionKey, sess)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) auth.Session {
	v, _ := c.Get(sessionKey)
	sess, _ := v.(auth.Session)
	return sess
}
