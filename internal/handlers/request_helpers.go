package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/BruksfildServices01/clinic-api/internal/httperr"
)

var errFutureDate = errors.New("date is in the future")

// bindJSON decodes the body and answers 400 with field detail on failure.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httperr.BadRequest(c, "invalid_request", describeBindError(err))
		return false
	}
	return true
}

func describeBindError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msg := fe.Field() + " failed on '" + fe.Tag() + "'"
			if fe.Param() != "" {
				msg += " (" + fe.Param() + ")"
			}
			parts = append(parts, msg)
		}
		return "Invalid fields: " + strings.Join(parts, "; ")
	}
	return "Malformed request body."
}

// paramID parses a uuid path parameter, answering 400 when malformed.
func paramID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httperr.BadRequest(c, "invalid_id", "Invalid "+name+".")
		return uuid.Nil, false
	}
	return id, true
}

// queryID parses an optional uuid query parameter.
func queryID(c *gin.Context, name string) (uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return uuid.Nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		httperr.BadRequest(c, "invalid_"+name, "Invalid "+name+".")
		return uuid.Nil, false
	}
	return id, true
}

// bodyID parses a required uuid taken from a request body.
func bodyID(raw string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(raw))
}
