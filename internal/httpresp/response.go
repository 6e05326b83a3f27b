package httpresp

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListResponse wraps collection endpoints.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func List[T any](c *gin.Context, data []T) {
	if data == nil {
		data = []T{}
	}
	c.JSON(http.StatusOK, ListResponse[T]{
		Data:  data,
		Total: len(data),
	})
}

// Attachment sends body as a file download.
func Attachment(c *gin.Context, filename, contentType string, body []byte) {
	c.Header("Content-Disposition", disposition(filename))
	c.Data(http.StatusOK, contentType, body)
}

// StreamAttachment copies r to the client as a file download. Headers are
// committed before the copy starts, so a failed copy cannot change the status.
func StreamAttachment(c *gin.Context, filename, contentType string, r io.Reader) error {
	c.Header("Content-Disposition", disposition(filename))
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	_, err := io.Copy(c.Writer, r)
	return err
}

func disposition(filename string) string {
	return fmt.Sprintf("attachment; filename=%q", filename)
}
