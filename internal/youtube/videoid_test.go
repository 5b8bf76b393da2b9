package youtube

import (
	"errors"
	"testing"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ", false},
		{"https://youtube.com/watch?feature=share&v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ?autoplay=1", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/live/jfKfPfyJRdk?feature=shared", "jfKfPfyJRdk", false},
		{"https://www.youtube.com/shorts/abc123XYZ_-", "abc123XYZ_-", false},
		{"", "", true},
		{"   ", "", true},
		{"https://vimeo.com/123456", "", true},
		{"https://www.youtube.com/watch", "", true},
		{"https://www.youtube.com/channel/UC123", "", true},
		{"https://youtu.be/", "", true},
		{"not a url at all", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := ExtractVideoID(tt.url)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidURL) {
					t.Errorf("ExtractVideoID(%q) error = %v, want ErrInvalidURL", tt.url, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractVideoID(%q) unexpected error: %v", tt.url, err)
			}
			if got != tt.want {
				t.Errorf("ExtractVideoID(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestWatchURL(t *testing.T) {
	if got := WatchURL("abc"); got != "https://www.youtube.com/watch?v=abc" {
		t.Errorf("WatchURL() = %q", got)
	}
}
