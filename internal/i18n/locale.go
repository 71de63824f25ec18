// Package i18n resolves the request locale and serves the per-locale message bundles.
package i18n

// Locale is a supported language code.
type Locale string

const (
	English Locale = "en"
	Hindi   Locale = "hi"
	Tamil   Locale = "ta"

	// Default is used whenever the requested locale is missing or unsupported.
	Default = English
)

var supported = []Locale{English, Hindi, Tamil}

// bundleFiles statically maps each locale to its embedded bundle.
var bundleFiles = map[Locale]string{
	English: "locales/en.json",
	Hindi:   "locales/hi.json",
	Tamil:   "locales/ta.json",
}

// Supported lists the supported locales with the default first.
func Supported() []Locale {
	out := make([]Locale, len(supported))
	copy(out, supported)
	return out
}

// IsSupported reports whether raw is exactly one of the supported codes.
func IsSupported(raw string) bool {
	_, ok := bundleFiles[Locale(raw)]
	return ok
}

// Parse returns the supported locale for raw and whether it was recognised. Matching is exact.
func Parse(raw string) (Locale, bool) {
	if IsSupported(raw) {
		return Locale(raw), true
	}
	return Default, false
}

func (l Locale) String() string {
	return string(l)
}
