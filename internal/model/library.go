package model

// VideoSummary aggregates the clips of one indexed video. IndexedAt is
// nil for records written before the field existed.
type VideoSummary struct {
	VideoID      string `json:"video_id"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url"`
	ClipCount    int    `json:"clip_count"`
	IndexedAt    *int64 `json:"indexed_at"`
}

type ChannelSummary struct {
	Name       string         `json:"name"`
	VideoCount int            `json:"video_count"`
	Videos     []VideoSummary `json:"videos"`
}

// Library is the derived channel/video view. Channels are not stored as
// rows; they are computed by grouping clip metadata.
type Library struct {
	Channels    []ChannelSummary `json:"channels"`
	TotalVideos int              `json:"total_videos"`
	TotalClips  int              `json:"total_clips"`
}
