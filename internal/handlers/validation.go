package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/farmlink/marketplace/internal/i18n"
	"github.com/farmlink/marketplace/internal/services"
	appErrors "github.com/farmlink/marketplace/pkg/errors"
	"github.com/farmlink/marketplace/pkg/response"
	appValidator "github.com/farmlink/marketplace/pkg/validator"
)

// bindAndValidate binds the JSON payload into dest and runs struct validation rules.
// When validation fails, an error response is automatically written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest(formatValidationError(err)))
		return false
	}

	return true
}

func formatValidationError(err error) string {
	ve, ok := err.(appValidator.ValidationErrors)
	if !ok || len(ve) == 0 {
		return "invalid request payload"
	}

	messages := make([]string, 0, len(ve))
	for _, failure := range ve {
		field := prettifyFieldName(failure.Field)
		switch failure.Tag {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", field))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s characters", field, failure.Param))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters", field, failure.Param))
		case "gt", "gte":
			messages = append(messages, fmt.Sprintf("%s is out of range", field))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of: %s", field, failure.Param))
		case "locale":
			messages = append(messages, fmt.Sprintf("%s must be one of: %s", field, supportedLocales()))
		case "role":
			messages = append(messages, fmt.Sprintf("%s must be one of: customer farmer admin", field))
		case "notification_type":
			messages = append(messages, fmt.Sprintf("%s is not a known notification type", field))
		case "url":
			messages = append(messages, fmt.Sprintf("%s must be a valid URL", field))
		default:
			if failure.Param != "" {
				messages = append(messages, fmt.Sprintf("%s failed validation: %s=%s", field, failure.Tag, failure.Param))
			} else {
				messages = append(messages, fmt.Sprintf("%s failed validation: %s", field, failure.Tag))
			}
		}
	}
	return strings.Join(messages, "; ")
}

func supportedLocales() string {
	codes := make([]string, 0, 3)
	for _, locale := range i18n.Supported() {
		codes = append(codes, locale.String())
	}
	return strings.Join(codes, " ")
}

func prettifyFieldName(name string) string {
	if name == "" {
		return "field"
	}
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ToLower(name)
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func pageFromQuery(c *gin.Context) services.Page {
	return services.Page{
		Limit:  parseIntQuery(c, "limit", 0),
		Offset: parseIntQuery(c, "offset", 0),
	}.Normalised()
}

func pageMeta(page services.Page, total int64) *response.Meta {
	return &response.Meta{Limit: page.Limit, Offset: page.Offset, Total: total}
}
