package service

import (
	"context"

	"github.com/xxxsen/clipseek/internal/model"
	"github.com/xxxsen/clipseek/internal/youtube"
)

// ClipStore is the narrow index-store capability the pipeline consumes.
// Any vector engine can sit behind it; repo.ClipRepo is the Postgres +
// pgvector implementation.
type ClipStore interface {
	UpsertBatch(ctx context.Context, clips []*model.Clip) error
	ListIndexedVideoIDs(ctx context.Context) (map[string]struct{}, error)
	Search(ctx context.Context, embedding []float32, k int) ([]model.ScoredClip, error)
	DeleteByVideo(ctx context.Context, videoID string) (int64, error)
	RenameChannel(ctx context.Context, oldName, newName string) (int64, error)
	ListByVideo(ctx context.Context, videoID string) ([]model.Clip, error)
	CountClips(ctx context.Context) (int64, error)
	ListLibrary(ctx context.Context) (*model.Library, error)
}

// VideoSource covers content discovery plus the caption source; the
// youtube.Client implements it against the public web surface.
type VideoSource interface {
	Resolve(ctx context.Context, ref youtube.Reference) (*youtube.Listing, error)
	Transcript(ctx context.Context, videoID string) ([]youtube.CaptionLine, error)
	VideoMetadata(ctx context.Context, videoID string) (title string, channel string)
}
