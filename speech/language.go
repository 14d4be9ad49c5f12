package speech

import (
	"os"
	"strings"

	"golang.org/x/text/language"
)

// FallbackLanguage is used when neither the voice nor the host names one.
const FallbackLanguage = "en-US"

// HostLanguage returns the BCP 47 tag of the user's locale, read from
// LC_ALL, LC_MESSAGES and LANG in that order. It returns "" if none is set
// to a real language.
func HostLanguage() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if tag := parseLocale(os.Getenv(key)); tag != "" {
			return tag
		}
	}
	return ""
}

// parseLocale converts a POSIX locale such as "de_DE.UTF-8@euro" into a
// language tag.
func parseLocale(locale string) string {
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	if locale == "" || locale == "C" || locale == "POSIX" {
		return ""
	}
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil || tag == language.Und {
		return ""
	}
	return tag.String()
}

// resolveLanguage picks the utterance language: the voice's, else the
// host's, else FallbackLanguage.
func resolveLanguage(voice *Voice, host string) string {
	if voice != nil && voice.Lang != "" {
		return voice.Lang
	}
	if host != "" {
		return host
	}
	return FallbackLanguage
}
