package youtube

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"strings"

	appErr "github.com/xxxsen/clipseek/internal/pkg/errors"
)

// CaptionLine is one caption micro-segment as published by the track.
type CaptionLine struct {
	Text  string
	Start float64
	End   float64
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

type playerCaptions struct {
	Captions struct {
		Renderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

type timedTextDoc struct {
	XMLName xml.Name        `xml:"transcript"`
	Texts   []timedTextLine `xml:"text"`
}

type timedTextLine struct {
	Start float64 `xml:"start,attr"`
	Dur   float64 `xml:"dur,attr"`
	Body  string  `xml:",chardata"`
}

// Transcript returns the ordered caption lines of a video, including
// auto-generated tracks. A video without captions yields ErrNoTranscript,
// which callers treat as a per-video outcome, not a batch failure.
func (c *Client) Transcript(ctx context.Context, videoID string) ([]CaptionLine, error) {
	page, err := c.get(ctx, c.webBase+"/watch?v="+videoID)
	if err != nil {
		return nil, err
	}
	player, err := extractEmbeddedJSON(page, "ytInitialPlayerResponse")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", appErr.ErrNoTranscript, videoID)
	}
	track, err := pickCaptionTrack(player)
	if err != nil {
		return nil, err
	}
	body, err := c.get(ctx, track.BaseURL)
	if err != nil {
		return nil, err
	}
	lines, err := parseTimedText(body)
	if err != nil {
		return nil, fmt.Errorf("parse captions for %s: %w", videoID, err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: %s", appErr.ErrNoTranscript, videoID)
	}
	return lines, nil
}

// pickCaptionTrack prefers a manually authored track and falls back to
// the auto-generated ("asr") one.
func pickCaptionTrack(player interface{}) (*captionTrack, error) {
	raw, err := json.Marshal(player)
	if err != nil {
		return nil, err
	}
	var pc playerCaptions
	if err := json.Unmarshal(raw, &pc); err != nil {
		return nil, err
	}
	tracks := pc.Captions.Renderer.CaptionTracks
	if len(tracks) == 0 {
		return nil, appErr.ErrNoTranscript
	}
	for i := range tracks {
		if tracks[i].Kind != "asr" && tracks[i].BaseURL != "" {
			return &tracks[i], nil
		}
	}
	if tracks[0].BaseURL == "" {
		return nil, appErr.ErrNoTranscript
	}
	return &tracks[0], nil
}

func parseTimedText(body []byte) ([]CaptionLine, error) {
	var doc timedTextDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	lines := make([]CaptionLine, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		text := strings.TrimSpace(html.UnescapeString(t.Body))
		if text == "" {
			continue
		}
		lines = append(lines, CaptionLine{
			Text:  text,
			Start: t.Start,
			End:   t.Start + t.Dur,
		})
	}
	return lines, nil
}
