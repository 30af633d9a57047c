package ingest

import (
	"strings"

	"github.com/xxxsen/clipseek/internal/model"
	"github.com/xxxsen/clipseek/internal/youtube"
)

// Chunker merges caption micro-segments into fixed-duration clips with
// stable timestamps. Clip ids derive from the video id and sequence
// index, so re-chunking the same transcript regenerates identical clips.
type Chunker struct {
	windowSeconds int
}

func NewChunker(windowSeconds int) *Chunker {
	if windowSeconds <= 0 {
		windowSeconds = 60
	}
	return &Chunker{windowSeconds: windowSeconds}
}

// Chunk accumulates consecutive caption lines until the next line would
// push the clip past the window, then closes the clip at that line's
// start so consecutive clips stay contiguous. A caption line is never
// split across two clips. The final clip may be shorter than the window.
func (c *Chunker) Chunk(videoID string, lines []youtube.CaptionLine) []*model.Clip {
	if len(lines) == 0 {
		return nil
	}
	var clips []*model.Clip
	var texts []string
	curStart := lines[0].Start

	flush := func(end float64) {
		content := strings.TrimSpace(strings.Join(texts, " "))
		if content == "" {
			texts = texts[:0]
			return
		}
		clips = append(clips, &model.Clip{
			ID:           model.ClipID(videoID, len(clips)),
			VideoID:      videoID,
			StartSeconds: int(curStart),
			EndSeconds:   int(end),
			Content:      content,
		})
		texts = texts[:0]
	}

	for _, line := range lines {
		if len(texts) > 0 && line.End-curStart > float64(c.windowSeconds) {
			flush(line.Start)
			curStart = line.Start
		}
		texts = append(texts, line.Text)
	}
	flush(lines[len(lines)-1].End)
	return clips
}
