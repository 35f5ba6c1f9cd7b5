package translation

import "strings"

// DefaultLanguage is used when a language name is not recognized
const DefaultLanguage = "ko"

var languageCodes = map[string]string{
	"한국어":      "ko",
	"영어":       "en",
	"일본어":      "ja",
	"korean":   "ko",
	"english":  "en",
	"japanese": "ja",
	"ko":       "ko",
	"en":       "en",
	"ja":       "ja",
}

var languageNames = map[string]string{
	"ko": "Korean",
	"en": "English",
	"ja": "Japanese",
}

// LanguageCode maps a display name (한국어, English, ...) or code to an
// ISO code. Unknown names map to DefaultLanguage.
func LanguageCode(name string) string {
	if code, ok := languageCodes[strings.ToLower(strings.TrimSpace(name))]; ok {
		return code
	}
	return DefaultLanguage
}

// LanguageName returns the English name for a code, or the code itself.
func LanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}
