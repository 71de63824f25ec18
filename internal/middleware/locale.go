package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/farmlink/marketplace/internal/i18n"
)

// CtxLocaleKey holds the i18n.Resolution of the request.
const CtxLocaleKey = "locale"

// Locale resolves the NEXT_LOCALE cookie for every request and advertises the result.
func Locale(resolver *i18n.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		resolution := resolver.Resolve(i18n.CookieValue(c.Request))
		c.Set(CtxLocaleKey, resolution)
		c.Header("Content-Language", resolution.Locale.String())
		c.Next()
	}
}

// LocaleFrom returns the resolved locale of the request, defaulting when Locale did not run.
func LocaleFrom(c *gin.Context) i18n.Locale {
	if value, ok := c.Get(CtxLocaleKey); ok {
		if resolution, ok := value.(i18n.Resolution); ok {
			return resolution.Locale
		}
	}
	return i18n.Default
}
