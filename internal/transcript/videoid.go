package transcript

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	rawVideoID = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
	pathID     = regexp.MustCompile(`/(shorts|embed|v)/([^/?]+)`)
)

// ExtractVideoID accepts a bare 11-character video id or a youtube.com
// (watch, shorts, embed, v) or youtu.be URL and returns the video id.
// ok is false when no id can be found.
func ExtractVideoID(raw string) (id string, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if rawVideoID.MatchString(raw) {
		return raw, true
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}

	host := u.Hostname()
	switch {
	case strings.Contains(host, "youtube.com"):
		if u.Path == "/watch" {
			id = u.Query().Get("v")
			return id, id != ""
		}
		if m := pathID.FindStringSubmatch(u.Path); m != nil {
			return m[2], true
		}
	case host == "youtu.be":
		id = strings.TrimPrefix(u.Path, "/")
		return id, id != ""
	}
	return "", false
}
