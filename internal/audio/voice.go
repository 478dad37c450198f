package audio

import "strings"

// Voice is one entry of the voice catalog
type Voice struct {
	Name string `json:"name"`
	Lang string `json:"lang"`
}

// VoicesFromTags builds a catalog from locale tags such as "en-GB"
func VoicesFromTags(tags []string) []Voice {
	voices := make([]Voice, 0, len(tags))
	for _, tag := range tags {
		tag = canonicalTag(tag)
		if tag == "" {
			continue
		}
		voices = append(voices, Voice{Name: "google-" + strings.ToLower(tag), Lang: tag})
	}
	return voices
}

// SelectVoice picks the voice for an accent preference: an exact locale
// match, then a language-prefix match, then any English voice, then def.
func SelectVoice(voices []Voice, accent string, def Voice) Voice {
	want := canonicalTag(accent)
	if want != "" {
		for _, v := range voices {
			if strings.EqualFold(canonicalTag(v.Lang), want) {
				return v
			}
		}
		for _, v := range voices {
			lang := canonicalTag(v.Lang)
			if hasTagPrefix(lang, want) || hasTagPrefix(want, lang) {
				return v
			}
		}
	}
	for _, v := range voices {
		if hasTagPrefix(canonicalTag(v.Lang), "en") {
			return v
		}
	}
	return def
}

// hasTagPrefix reports whether tag starts with prefix on a subtag boundary,
// so "en-GB" has prefix "en" but "eng" does not
func hasTagPrefix(tag, prefix string) bool {
	if prefix == "" || len(tag) < len(prefix) {
		return false
	}
	if !strings.EqualFold(tag[:len(prefix)], prefix) {
		return false
	}
	return len(tag) == len(prefix) || tag[len(prefix)] == '-'
}

// canonicalTag trims a locale tag and normalizes "en_GB" to "en-GB"
func canonicalTag(tag string) string {
	return strings.ReplaceAll(strings.TrimSpace(tag), "_", "-")
}
