package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/farmlink/marketplace/pkg/logger"
	"github.com/farmlink/marketplace/pkg/metrics"
)

//go:embed locales/*.json
var localeFS embed.FS

// Messages is a flat bundle of message id to translated text.
type Messages map[string]string

// Resolution is the outcome of resolving a raw locale value.
type Resolution struct {
	Locale   Locale   `json:"locale"`
	Messages Messages `json:"messages"`
	Fallback bool     `json:"-"`
}

// Resolver holds the parsed bundles for every supported locale.
type Resolver struct {
	bundle   *i18n.Bundle
	messages map[Locale]Messages
}

// NewResolver loads and parses every embedded bundle.
func NewResolver() (*Resolver, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	r := &Resolver{
		bundle:   bundle,
		messages: make(map[Locale]Messages, len(bundleFiles)),
	}

	for locale, path := range bundleFiles {
		raw, err := localeFS.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("i18n: read %s bundle: %w", locale, err)
		}
		if _, err := bundle.ParseMessageFileBytes(raw, path); err != nil {
			return nil, fmt.Errorf("i18n: parse %s bundle: %w", locale, err)
		}

		var messages Messages
		if err := json.Unmarshal(raw, &messages); err != nil {
			return nil, fmt.Errorf("i18n: decode %s bundle: %w", locale, err)
		}
		r.messages[locale] = messages
	}

	return r, nil
}

// Resolve picks the locale for raw, falling back to Default, and returns its bundle.
// Invalid input never produces an error.
func (r *Resolver) Resolve(raw string) Resolution {
	locale, ok := Parse(raw)
	metrics.LocaleResolutions.WithLabelValues(locale.String(), strconv.FormatBool(!ok)).Inc()

	return Resolution{
		Locale:   locale,
		Messages: r.messages[locale],
		Fallback: !ok,
	}
}

// Messages returns the bundle of a supported locale, or the default bundle.
func (r *Resolver) Messages(locale Locale) Messages {
	if msgs, ok := r.messages[locale]; ok {
		return msgs
	}
	return r.messages[Default]
}

// Localize renders message id in locale with the given template data. Missing translations
// fall back to the default locale and finally to the id itself.
func (r *Resolver) Localize(locale Locale, id string, data map[string]any) string {
	if !IsSupported(string(locale)) {
		locale = Default
	}

	localizer := i18n.NewLocalizer(r.bundle, locale.String(), Default.String())
	text, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: data,
	})
	if err != nil {
		logger.WithModule("i18n").Debug("localize fallback",
			zap.String("locale", locale.String()),
			zap.String("message_id", id),
			zap.Error(err),
		)
		if text == "" {
			return id
		}
	}
	return text
}
