package rag

import (
	"strings"

	wl "github.com/abadojack/whatlanggo"
)

var languageNames = map[string]string{
	"pt": "Brazilian Portuguese",
	"en": "English",
	"es": "Spanish",
}

// languageDirective turns the ANSWER_LANGUAGE setting into a line appended to the system
// instruction. "" disables it, "auto" detects the language of the query.
func languageDirective(setting, query string) string {
	setting = strings.ToLower(strings.TrimSpace(setting))

	var name string
	switch setting {
	case "":
		return ""
	case "auto":
		name = detectLang(query)
	default:
		name = languageNames[setting]
		if name == "" {
			name = setting
		}
	}
	if name == "" {
		return ""
	}
	return name + " is the target language for all responses."
}

func detectLang(s string) string {
	info := wl.Detect(s)
	if !info.IsReliable() {
		return ""
	}
	if name, ok := languageNames[info.Lang.Iso6391()]; ok {
		return name
	}
	return info.Lang.String()
}
