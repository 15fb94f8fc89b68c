package tasks

import (
	"net/url"
	"strings"
)

// ParseVideoLinks extracts unique video IDs from watch and short links, in input order.
//
// Lines that are not a recognized video link are dropped.
func ParseVideoLinks(lines []string) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, line := range lines {
		id := videoID(strings.TrimSpace(line))
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// SplitLinks breaks pasted text into candidate link lines.
func SplitLinks(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ' ' || r == '\t' || r == ','
	})
}

func videoID(link string) string {
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}

	switch strings.ToLower(u.Hostname()) {
	case "youtu.be":
		id, _, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
		return id
	case "www.youtube.com", "youtube.com", "m.youtube.com":
		return u.Query().Get("v")
	default:
		return ""
	}
}
