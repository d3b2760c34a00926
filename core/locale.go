package core

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

const DefaultLocale = "en"

// Format replaces indexed placeholders ({0}, {1}, ...) with args.
func Format(template string, args ...string) string {
	if len(args) == 0 || !strings.Contains(template, "{") {
		return template
	}
	pairs := make([]string, 0, len(args)*2)
	for index, arg := range args {
		pairs = append(pairs, "{"+strconv.Itoa(index)+"}", arg)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// SupportedLocale maps a client locale onto one of supported. An exact match
// wins, then the base language ("en-US" becomes "en"); anything else becomes
// fallback.
func SupportedLocale(locale string, supported []string, fallback string) string {
	locale = strings.TrimSpace(locale)
	if fallback = strings.TrimSpace(fallback); fallback == "" {
		fallback = DefaultLocale
	}
	if locale == "" {
		return fallback
	}
	for _, candidate := range supported {
		if strings.EqualFold(strings.TrimSpace(candidate), locale) {
			return strings.TrimSpace(candidate)
		}
	}
	base := baseLanguage(locale)
	if base == "" {
		return fallback
	}
	for _, candidate := range supported {
		if strings.EqualFold(strings.TrimSpace(candidate), base) {
			return strings.TrimSpace(candidate)
		}
	}
	return fallback
}

// Localize picks the value for locale from localizations, trying the exact
// locale and then its base language before returning fallback.
func Localize(localizations map[string]string, locale string, fallback string) string {
	locale = strings.TrimSpace(locale)
	if len(localizations) == 0 || locale == "" {
		return fallback
	}
	if value, ok := localizations[locale]; ok && strings.TrimSpace(value) != "" {
		return value
	}
	if base := baseLanguage(locale); base != "" {
		if value, ok := localizations[base]; ok && strings.TrimSpace(value) != "" {
			return value
		}
	}
	return fallback
}

func baseLanguage(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return ""
	}
	return base.String()
}

// Catalog holds the generic user-facing strings the dispatcher sends when a
// command cannot answer on its own.
type Catalog struct {
	DefaultLocale string
	Messages      map[string]map[string]string
}

const (
	MessageRoutingFailed = "routing_failed"
	MessageHandlerFailed = "handler_failed"
	MessageFallback      = "fallback"
)

func DefaultCatalog() Catalog {
	return Catalog{
		DefaultLocale: DefaultLocale,
		Messages: map[string]map[string]string{
			DefaultLocale: {
				MessageRoutingFailed: "Something went wrong. Please try again later.",
				MessageHandlerFailed: "Something went wrong while running this command.",
				MessageFallback:      "hi",
			},
			"ja": {
				MessageRoutingFailed: "問題が発生しました。しばらくしてから再度お試しください。",
				MessageHandlerFailed: "コマンドの実行中に問題が発生しました。",
			},
		},
	}
}

// Locales lists the locales the catalog carries messages for.
func (c Catalog) Locales() []string {
	out := make([]string, 0, len(c.Messages))
	for locale := range c.Messages {
		out = append(out, locale)
	}
	return out
}

// Message resolves key for locale, falling back to the default locale and
// then to fallback.
func (c Catalog) Message(locale string, key string, fallback string) string {
	defaultLocale := strings.TrimSpace(c.DefaultLocale)
	if defaultLocale == "" {
		defaultLocale = DefaultLocale
	}
	resolved := SupportedLocale(locale, c.Locales(), defaultLocale)
	if value := strings.TrimSpace(c.Messages[resolved][key]); value != "" {
		return c.Messages[resolved][key]
	}
	if value := strings.TrimSpace(c.Messages[defaultLocale][key]); value != "" {
		return c.Messages[defaultLocale][key]
	}
	return fallback
}

// ErrorMessageFor renders the failure template of a command for locale.
func (s CommandSpec) ErrorMessageFor(locale string, fallback string, detail string) string {
	template := Localize(s.ErrorLocalizations, locale, s.ErrorMessage)
	if strings.TrimSpace(template) == "" {
		return fallback
	}
	return Format(template, detail)
}
