package common

import "strings"

// Near-duplicate content type labels get folded into one canonical key
// before any comparison. Substring matching is deliberately avoided here
// ("video" would match "music video").
var contentTypeKeys = map[string]string{
	"story":       "story",
	"stories":     "story",
	"сторис":      "story",
	"история":     "story",
	"reel":        "reel",
	"reels":       "reel",
	"рилс":        "reel",
	"video":       "video",
	"видео":       "video",
	"post":        "post",
	"пост":        "post",
	"integration": "integration",
	"интеграция":  "integration",
	"stream":      "stream",
	"live":        "stream",
	"стрим":       "stream",
}

// ContentTypeKey maps a free-form label to its canonical key. Unknown
// labels pass through lowercased so two identical custom labels still
// match each other.
func ContentTypeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if key, ok := contentTypeKeys[s]; ok {
		return key
	}
	return s
}

func CanonicalContentTypes(types []string) []string {
	out := make([]string, 0, len(types))
	seen := make(map[string]bool, len(types))
	for _, t := range types {
		key := ContentTypeKey(t)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}

// ContentTypesIntersect reports whether the two label lists share at least
// one canonical key. An empty wanted list matches everything.
func ContentTypesIntersect(wanted, offered []string) bool {
	if len(wanted) == 0 {
		return true
	}
	for _, w := range wanted {
		wk := ContentTypeKey(w)
		for _, o := range offered {
			if ContentTypeKey(o) == wk {
				return true
			}
		}
	}
	return false
}

func LowerSlice(s []string) []string {
	for i, v := range s {
		s[i] = strings.ToLower(strings.TrimSpace(v))
	}
	return s
}

func IsInList(hay []string, needle string) bool {
	needle = strings.ToLower(needle)
	for _, s := range hay {
		if strings.ToLower(s) == needle {
			return true
		}
	}
	return false
}
