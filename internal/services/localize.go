package services

import "github.com/farmlink/marketplace/internal/i18n"

// Localizer renders message templates for a locale.
type Localizer interface {
	Localize(locale i18n.Locale, id string, data map[string]any) string
}

func localeOf(raw string) i18n.Locale {
	locale, _ := i18n.Parse(raw)
	return locale
}
