package tts

import (
	"sort"
	"strings"
)

// languageNames maps locale tags to the language name given to providers
// that take a spoken-language hint in natural language.
var languageNames = map[string]string{
	"ru-RU": "Russian",
	"en-US": "English",
	"zh-TW": "Traditional Chinese",
	"zh-CN": "Simplified Chinese",
	"ja-JP": "Japanese",
	"ko-KR": "Korean",
	"es-ES": "Spanish",
	"fr-FR": "French",
	"de-DE": "German",
}

// LanguageName returns the human-readable name for tag. Unmapped tags are
// returned verbatim.
func LanguageName(tag string) string {
	if name, ok := languageNames[tag]; ok {
		return name
	}
	return tag
}

// Language is one row of the language table.
type Language struct {
	Tag  string `json:"tag"`
	Name string `json:"name"`
}

// Languages returns the language table sorted by tag.
func Languages() []Language {
	out := make([]Language, 0, len(languageNames))
	for tag, name := range languageNames {
		out = append(out, Language{Tag: tag, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}

// BaseLanguage returns the lower-case primary subtag ("ru-RU" -> "ru").
func BaseLanguage(tag string) string {
	tag = strings.ReplaceAll(tag, "_", "-")
	if i := strings.IndexByte(tag, '-'); i >= 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}
