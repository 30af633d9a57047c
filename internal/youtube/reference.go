package youtube

import (
	"fmt"
	"regexp"
	"strings"

	appErr "github.com/xxxsen/clipseek/internal/pkg/errors"
)

type RefKind string

const (
	RefChannel  RefKind = "channel"
	RefPlaylist RefKind = "playlist"
	RefVideo    RefKind = "video"
)

// Reference is a classified content reference. For channels ID carries
// the full channel URL; for playlists and videos it is the extracted id.
type Reference struct {
	Kind RefKind
	ID   string
	Raw  string
}

// Playlist patterns are checked before video patterns: a watch URL with
// a list parameter refers to the playlist, not the single video.
var (
	playlistPatterns = []*regexp.Regexp{
		regexp.MustCompile(`[?&]list=([a-zA-Z0-9_-]+)`),
		regexp.MustCompile(`youtube\.com/playlist\?list=([a-zA-Z0-9_-]+)`),
	}
	videoPatterns = []*regexp.Regexp{
		regexp.MustCompile(`[?&]v=([a-zA-Z0-9_-]{11})`),
		regexp.MustCompile(`youtu\.be/([a-zA-Z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/embed/([a-zA-Z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/v/([a-zA-Z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/shorts/([a-zA-Z0-9_-]{11})`),
	}
	channelPatterns = []*regexp.Regexp{
		regexp.MustCompile(`youtube\.com/@([a-zA-Z0-9_.-]+)`),
		regexp.MustCompile(`youtube\.com/channel/([a-zA-Z0-9_-]+)`),
		regexp.MustCompile(`youtube\.com/c/([a-zA-Z0-9_-]+)`),
		regexp.MustCompile(`youtube\.com/user/([a-zA-Z0-9_-]+)`),
	}
)

// ParseReference classifies a raw URL into channel, playlist or video.
// Unknown formats fail validation before any upstream work starts.
func ParseReference(raw string) (Reference, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Reference{}, fmt.Errorf("%w: empty content reference", appErr.ErrInvalid)
	}
	for _, p := range playlistPatterns {
		if m := p.FindStringSubmatch(trimmed); m != nil {
			return Reference{Kind: RefPlaylist, ID: m[1], Raw: trimmed}, nil
		}
	}
	for _, p := range videoPatterns {
		if m := p.FindStringSubmatch(trimmed); m != nil {
			return Reference{Kind: RefVideo, ID: m[1], Raw: trimmed}, nil
		}
	}
	for _, p := range channelPatterns {
		if p.MatchString(trimmed) {
			return Reference{Kind: RefChannel, ID: trimmed, Raw: trimmed}, nil
		}
	}
	return Reference{}, fmt.Errorf("%w: unrecognized content reference: %s", appErr.ErrInvalid, trimmed)
}
