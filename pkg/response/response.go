package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/farmlink/marketplace/pkg/errors"
)

// ErrorBody is the payload written for every failed request.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Meta describes pagination metadata.
type Meta struct {
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
	Total  int64 `json:"total"`
}

// Page wraps a list payload with its pagination metadata.
type Page struct {
	Items any   `json:"items"`
	Meta  *Meta `json:"meta,omitempty"`
}

// Success writes the payload as-is. The API does not wrap successful bodies in an envelope so
// clients can bind directly to the documented shapes.
func Success(c *gin.Context, statusCode int, data any) {
	if data == nil {
		c.Status(statusCode)
		return
	}
	c.JSON(statusCode, data)
}

// SuccessWithMeta writes a paged list payload.
func SuccessWithMeta(c *gin.Context, statusCode int, items any, meta *Meta) {
	c.JSON(statusCode, Page{Items: items, Meta: meta})
}

// Error writes a JSON error response derived from an AppError. Internal causes are never rendered.
func Error(c *gin.Context, err error) {
	if err == nil {
		err = appErrors.ErrInternalServer
	}

	appErr := appErrors.FromError(err)
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	c.JSON(status, ErrorBody{
		Error: appErr.Message,
		Code:  appErr.Code,
	})
}
