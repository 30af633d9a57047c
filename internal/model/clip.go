package model

import "fmt"

// Clip is the atomic retrievable unit: a fixed-duration slice of one
// video's transcript together with its embedding vector.
type Clip struct {
	ID           string    `json:"id"`
	VideoID      string    `json:"video_id"`
	Title        string    `json:"title"`
	ChannelName  string    `json:"channel_name"`
	ThumbnailURL string    `json:"thumbnail_url"`
	StartSeconds int       `json:"start_seconds"`
	EndSeconds   int       `json:"end_seconds"`
	Content      string    `json:"content"`
	Embedding    []float32 `json:"-"`
	IndexedAt    int64     `json:"indexed_at"`
}

// ClipID derives the stable clip identifier for a video position. It is
// a pure function of (video id, sequence index) so re-ingesting a video
// regenerates identical ids and upserts stay idempotent.
func ClipID(videoID string, seq int) string {
	return fmt.Sprintf("%s:%04d", videoID, seq)
}

// ScoredClip is a clip ranked by vector similarity.
type ScoredClip struct {
	Clip
	Score float32 `json:"score"`
}

type SearchResult struct {
	Answer string `json:"answer"`
	Clips  []Clip `json:"relevant_clips"`
}
