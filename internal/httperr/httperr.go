package httperr

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type HTTPError struct {
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

func Write(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, HTTPError{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, code, message string) {
	Write(c, http.StatusBadRequest, code, message)
}

func NotFound(c *gin.Context, code, message string) {
	Write(c, http.StatusNotFound, code, message)
}

func Internal(c *gin.Context, code, message string) {
	Write(c, http.StatusInternalServerError, code, message)
}

func Unauthorized(c *gin.Context, code, message string) {
	Write(c, http.StatusUnauthorized, code, message)
}

func Forbidden(c *gin.Context) {
	Write(c, http.StatusForbidden, "forbidden", "You are not allowed to perform this action.")
}

func Conflict(c *gin.Context, code, message string) {
	Write(c, http.StatusConflict, code, message)
}

func TooManyRequests(c *gin.Context) {
	Write(c, http.StatusTooManyRequests, "too_many_requests", "Too many attempts, try again later.")
}

// business codes that are not plain validation failures
var businessStatus = map[string]int{
	"email_already_registered": http.StatusConflict,
	"payment_already_applied":  http.StatusConflict,
	"checkout_in_progress":     http.StatusConflict,
	"invoice_exists":           http.StatusConflict,
	"payments_disabled":        http.StatusServiceUnavailable,
}

// From maps an error returned by a use case or repository to its HTTP
// answer. Anything unrecognised is logged and answered with a generic 500.
func From(c *gin.Context, log zerolog.Logger, err error) {
	var be BusinessError
	var nf NotFoundError

	switch {
	case errors.Is(err, ErrForbidden):
		Forbidden(c)
	case errors.As(err, &nf):
		NotFound(c, nf.Error(), "Record not found.")
	case errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c, "not_found", "Record not found.")
	case errors.As(err, &be):
		status, ok := businessStatus[be.Code]
		if !ok {
			status = http.StatusBadRequest
		}
		msg := be.Message
		if msg == "" {
			msg = strings.ReplaceAll(be.Code, "_", " ")
		}
		Write(c, status, be.Code, msg)
	default:
		log.Error().
			Err(err).
			Str("request_id", c.GetString("request_id")).
			Str("path", c.FullPath()).
			Msg("request failed")
		Internal(c, "internal_error", "Unexpected error, try again later.")
	}
}

// IsUniqueViolation detects a unique constraint failure on Postgres
// (SQLSTATE 23505) or on any dialect with error translation enabled.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
