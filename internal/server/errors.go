package server

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/julianstephens/sprout/internal/errors"
	"github.com/julianstephens/sprout/internal/logger"
	"github.com/julianstephens/sprout/internal/storage"
	"github.com/julianstephens/sprout/internal/validation"
)

// statusFor maps an error's kind to an HTTP status
func statusFor(err error) int {
	switch errors.KindOf(err) {
	case errors.KindValidation:
		return http.StatusBadRequest
	case errors.KindConflict:
		return http.StatusConflict
	case errors.KindAuth:
		return http.StatusUnauthorized
	}
	if stderrors.Is(err, storage.ErrUserNotFound) {
		// A valid token for an account that no longer exists
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
		msg = "internal server error"
	}
	if ae, ok := err.(*errors.Error); ok && ae.Kind == errors.KindAuth {
		msg = ae.Msg
	}
	c.JSON(status, gin.H{"error": msg})
}

// bindError turns a gin binding failure into a validation error
func bindError(err error) error {
	var fieldErrs validator.ValidationErrors
	if stderrors.As(err, &fieldErrs) {
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, validation.Message(fe.Field(), fe.Tag(), fe.Param()))
		}
		return errors.Validation(strings.Join(msgs, "; "))
	}
	return errors.Validation("invalid request body")
}
