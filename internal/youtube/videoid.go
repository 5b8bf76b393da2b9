// Package youtube selects a YouTube video, turns its audio into transcript
// segments and fact-checks them.
package youtube

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// ErrInvalidURL is returned for URLs that carry no recognizable video id
var ErrInvalidURL = errors.New("invalid YouTube URL")

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// pathPrefixes are the youtube.com paths whose next segment is the video id
var pathPrefixes = []string{"/embed/", "/live/", "/shorts/", "/v/"}

// ExtractVideoID returns the id in a watch, youtu.be, embed, live or shorts URL
func ExtractVideoID(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", ErrInvalidURL
	}
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", ErrInvalidURL
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")

	var id string
	switch host {
	case "youtu.be":
		id = firstSegment(u.Path)
	case "youtube.com", "music.youtube.com", "youtube-nocookie.com":
		if u.Path == "/watch" {
			id = u.Query().Get("v")
			break
		}
		for _, prefix := range pathPrefixes {
			if strings.HasPrefix(u.Path, prefix) {
				id = firstSegment(strings.TrimPrefix(u.Path, prefix))
				break
			}
		}
	}

	if id == "" || !videoIDPattern.MatchString(id) {
		return "", ErrInvalidURL
	}
	return id, nil
}

// WatchURL is the canonical page URL for a video id
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

func firstSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	return path
}
