package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/farmlink/marketplace/internal/i18n"
	"github.com/farmlink/marketplace/internal/middleware"
	"github.com/farmlink/marketplace/pkg/logger"
	"github.com/farmlink/marketplace/pkg/response"
)

// I18nHandler serves message bundles and switches the visitor's locale.
type I18nHandler struct {
	resolver     *i18n.Resolver
	secureCookie bool
}

type setLocaleRequest struct {
	Locale string `json:"locale" form:"locale"`
}

// NewI18nHandler constructs the handler. secureCookie marks the locale cookie Secure.
func NewI18nHandler(resolver *i18n.Resolver, secureCookie bool) *I18nHandler {
	return &I18nHandler{resolver: resolver, secureCookie: secureCookie}
}

// Messages returns the resolved locale and its bundle.
func (h *I18nHandler) Messages(c *gin.Context) {
	if value, ok := c.Get(middleware.CtxLocaleKey); ok {
		if resolution, ok := value.(i18n.Resolution); ok {
			response.Success(c, http.StatusOK, resolution)
			return
		}
	}
	response.Success(c, http.StatusOK, h.resolver.Resolve(i18n.CookieValue(c.Request)))
}

// SetLocale stores the chosen locale in the cookie and sends the browser back to the page it came
// from with 303 See Other so the next render picks up the new locale. Unsupported values store the
// default locale.
func (h *I18nHandler) SetLocale(c *gin.Context) {
	var payload setLocaleRequest
	if err := c.ShouldBind(&payload); err != nil {
		logger.WithModule("i18n").Debug("locale payload ignored", zap.Error(err))
	}
	if payload.Locale == "" {
		payload.Locale = c.Query("locale")
	}

	i18n.SetLocaleCookie(c.Writer, strings.TrimSpace(payload.Locale), h.secureCookie)
	c.Redirect(http.StatusSeeOther, sameSiteReturnPath(c.Request))
}

// sameSiteReturnPath turns the Referer into a local path. Foreign or malformed referers yield "/".
func sameSiteReturnPath(r *http.Request) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" || !strings.HasPrefix(ref.Path, "/") || strings.HasPrefix(ref.Path, "//") {
		return "/"
	}
	if ref.Host != "" && !strings.EqualFold(ref.Host, r.Host) {
		return "/"
	}

	target := url.URL{Path: ref.Path, RawQuery: ref.RawQuery}
	return target.String()
}
