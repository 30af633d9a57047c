package service

import (
	"context"
	"errors"
	"sync"

	"github.com/xxxsen/clipseek/internal/model"
	"github.com/xxxsen/clipseek/internal/youtube"
)

// fakeStore is a function-field ClipStore; unset methods return zero
// values so each test only wires the calls it cares about.
type fakeStore struct {
	mu       sync.Mutex
	upserted [][]*model.Clip

	indexedIDs  map[string]struct{}
	searchHits  []model.ScoredClip
	clipCount   int64
	clipsByVid  map[string][]model.Clip
	deleteCount int64
	renameCount int64
	library     *model.Library
}

func (f *fakeStore) UpsertBatch(_ context.Context, clips []*model.Clip) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, clips)
	return nil
}

func (f *fakeStore) upsertCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upserted)
}

func (f *fakeStore) ListIndexedVideoIDs(context.Context) (map[string]struct{}, error) {
	if f.indexedIDs == nil {
		return map[string]struct{}{}, nil
	}
	return f.indexedIDs, nil
}

func (f *fakeStore) Search(context.Context, []float32, int) ([]model.ScoredClip, error) {
	return f.searchHits, nil
}

func (f *fakeStore) DeleteByVideo(context.Context, string) (int64, error) {
	return f.deleteCount, nil
}

func (f *fakeStore) RenameChannel(context.Context, string, string) (int64, error) {
	return f.renameCount, nil
}

func (f *fakeStore) ListByVideo(_ context.Context, videoID string) ([]model.Clip, error) {
	return f.clipsByVid[videoID], nil
}

func (f *fakeStore) CountClips(context.Context) (int64, error) {
	return f.clipCount, nil
}

func (f *fakeStore) ListLibrary(context.Context) (*model.Library, error) {
	if f.library == nil {
		return &model.Library{Channels: []model.ChannelSummary{}}, nil
	}
	return f.library, nil
}

type fakeSource struct {
	listing     *youtube.Listing
	resolveErr  error
	transcripts map[string][]youtube.CaptionLine
	lineErrs    map[string]error
}

func (f *fakeSource) Resolve(context.Context, youtube.Reference) (*youtube.Listing, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return f.listing, nil
}

func (f *fakeSource) Transcript(_ context.Context, videoID string) ([]youtube.CaptionLine, error) {
	if err := f.lineErrs[videoID]; err != nil {
		return nil, err
	}
	lines, ok := f.transcripts[videoID]
	if !ok {
		return nil, errors.New("unexpected video " + videoID)
	}
	return lines, nil
}

func (f *fakeSource) VideoMetadata(_ context.Context, videoID string) (string, string) {
	return "Video " + videoID, "Unknown Channel"
}

type fakeEmbedder struct {
	err    error
	vector []float32
	calls  int
	mu     sync.Mutex
}

func (f *fakeEmbedder) Embed(context.Context, string, string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.vector != nil {
		return f.vector, nil
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) ModelName() string {
	return "fake-embed"
}

type fakeGenerator struct {
	answer string
	err    error
}

func (f *fakeGenerator) Generate(context.Context, string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}
