package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/clipseek/internal/ai"
	"github.com/xxxsen/clipseek/internal/ingest"
	"github.com/xxxsen/clipseek/internal/model"
	appErr "github.com/xxxsen/clipseek/internal/pkg/errors"
	"github.com/xxxsen/clipseek/internal/youtube"
)

func captionLines(totalSeconds int) []youtube.CaptionLine {
	var lines []youtube.CaptionLine
	for start := 0; start < totalSeconds; start += 10 {
		end := start + 10
		if end > totalSeconds {
			end = totalSeconds
		}
		lines = append(lines, youtube.CaptionLine{Text: "words", Start: float64(start), End: float64(end)})
	}
	return lines
}

func drainEvents(t *testing.T, events <-chan model.ProgressEvent) []model.ProgressEvent {
	t.Helper()
	var out []model.ProgressEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("progress channel never closed")
		}
	}
}

func eventMessages(events []model.ProgressEvent) string {
	var sb strings.Builder
	for _, ev := range events {
		sb.WriteString(ev.Message)
		sb.WriteString("\n")
	}
	return sb.String()
}

func TestIngest_InvalidReferenceFailsSynchronously(t *testing.T) {
	svc := NewIngestService(&fakeSource{}, &fakeStore{}, &fakeEmbedder{}, ingest.NewChunker(60), nil, 0)
	_, err := svc.Ingest(context.Background(), "not a url")
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestIngest_SkipsAlreadyIndexedVideos(t *testing.T) {
	source := &fakeSource{
		listing: &youtube.Listing{
			ChannelName: "Some Channel",
			Videos: []youtube.VideoStub{
				{ID: "aaaaaaaaaaa", Title: "Old"},
				{ID: "bbbbbbbbbbb", Title: "New"},
			},
		},
		transcripts: map[string][]youtube.CaptionLine{
			"bbbbbbbbbbb": captionLines(90),
		},
	}
	store := &fakeStore{indexedIDs: map[string]struct{}{"aaaaaaaaaaa": {}}}
	svc := NewIngestService(source, store, &fakeEmbedder{}, ingest.NewChunker(60), nil, 0)

	events, err := svc.Ingest(context.Background(), "https://www.youtube.com/@somecreator")
	require.NoError(t, err)
	log := eventMessages(drainEvents(t, events))

	require.Contains(t, log, "Skipped aaaaaaaaaaa - already indexed")
	require.Contains(t, log, "Indexed 2 clips from bbbbbbbbbbb")
	require.Contains(t, log, "Complete! Indexed 1 videos (1 skipped, 0 without transcript, 0 failed)")
	require.Equal(t, 1, store.upsertCalls())
}

func TestIngest_TruncatedListingEmitsWarning(t *testing.T) {
	source := &fakeSource{
		listing: &youtube.Listing{
			ChannelName: "Some Channel",
			Videos:      []youtube.VideoStub{{ID: "aaaaaaaaaaa", Title: "Only"}},
			Truncated:   true,
		},
		transcripts: map[string][]youtube.CaptionLine{
			"aaaaaaaaaaa": captionLines(30),
		},
	}
	svc := NewIngestService(source, &fakeStore{}, &fakeEmbedder{}, ingest.NewChunker(60), nil, 0)

	events, err := svc.Ingest(context.Background(), "https://www.youtube.com/@somecreator")
	require.NoError(t, err)
	log := eventMessages(drainEvents(t, events))

	require.Contains(t, log, "Warning: listing is partial")
	require.Contains(t, log, "Complete! Indexed 1 videos (0 skipped, 0 without transcript, 0 failed)")
}

func TestIngest_NoTranscriptContinuesBatch(t *testing.T) {
	source := &fakeSource{
		listing: &youtube.Listing{
			ChannelName: "Some Channel",
			Videos: []youtube.VideoStub{
				{ID: "aaaaaaaaaaa", Title: "Silent"},
				{ID: "bbbbbbbbbbb", Title: "Spoken"},
			},
		},
		transcripts: map[string][]youtube.CaptionLine{
			"bbbbbbbbbbb": captionLines(30),
		},
		lineErrs: map[string]error{"aaaaaaaaaaa": appErr.ErrNoTranscript},
	}
	store := &fakeStore{}
	svc := NewIngestService(source, store, &fakeEmbedder{}, ingest.NewChunker(60), nil, 0)

	events, err := svc.Ingest(context.Background(), "https://www.youtube.com/@somecreator")
	require.NoError(t, err)
	log := eventMessages(drainEvents(t, events))

	require.Contains(t, log, "No transcript for aaaaaaaaaaa")
	require.Contains(t, log, "Complete! Indexed 1 videos (0 skipped, 1 without transcript, 0 failed)")
	require.Equal(t, 1, store.upsertCalls())
}

func TestIngest_MissingCredentialAbortsBatch(t *testing.T) {
	source := &fakeSource{
		listing: &youtube.Listing{
			ChannelName: "Some Channel",
			Videos: []youtube.VideoStub{
				{ID: "aaaaaaaaaaa", Title: "First"},
				{ID: "bbbbbbbbbbb", Title: "Second"},
			},
		},
		transcripts: map[string][]youtube.CaptionLine{
			"aaaaaaaaaaa": captionLines(30),
			"bbbbbbbbbbb": captionLines(30),
		},
	}
	store := &fakeStore{}
	svc := NewIngestService(source, store, &fakeEmbedder{err: ai.ErrUnavailable}, ingest.NewChunker(60), nil, 0)

	events, err := svc.Ingest(context.Background(), "https://www.youtube.com/@somecreator")
	require.NoError(t, err)
	out := drainEvents(t, events)
	log := eventMessages(out)

	require.Contains(t, log, "batch aborted")
	// The abort line must carry the credential cause so the caller can
	// prompt for a key instead of retrying blindly.
	require.Contains(t, log, appErr.ErrCredential.Error())
	require.NotContains(t, log, "<nil>")
	require.NotContains(t, log, "Complete!")
	require.True(t, out[len(out)-1].Failed)
	require.Equal(t, 0, store.upsertCalls())
}

func TestIngest_PerVideoFailureIsCounted(t *testing.T) {
	source := &fakeSource{
		listing: &youtube.Listing{
			ChannelName: "Some Channel",
			Videos: []youtube.VideoStub{
				{ID: "aaaaaaaaaaa", Title: "Broken"},
				{ID: "bbbbbbbbbbb", Title: "Fine"},
			},
		},
		transcripts: map[string][]youtube.CaptionLine{
			"bbbbbbbbbbb": captionLines(30),
		},
		lineErrs: map[string]error{"aaaaaaaaaaa": appErr.ErrRateLimited},
	}
	svc := NewIngestService(source, &fakeStore{}, &fakeEmbedder{}, ingest.NewChunker(60), nil, 0)

	events, err := svc.Ingest(context.Background(), "https://www.youtube.com/@somecreator")
	require.NoError(t, err)
	log := eventMessages(drainEvents(t, events))

	require.Contains(t, log, "Error indexing aaaaaaaaaaa")
	require.Contains(t, log, "Warning: upstream throttled")
	require.Contains(t, log, "Complete! Indexed 1 videos (0 skipped, 0 without transcript, 1 failed)")
}

func TestIngest_ClipsCarryVideoMetadata(t *testing.T) {
	source := &fakeSource{
		listing: &youtube.Listing{
			ChannelName: "Some Channel",
			Videos:      []youtube.VideoStub{{ID: "aaaaaaaaaaa", Title: "A Title"}},
		},
		transcripts: map[string][]youtube.CaptionLine{
			"aaaaaaaaaaa": captionLines(30),
		},
	}
	store := &fakeStore{}
	svc := NewIngestService(source, store, &fakeEmbedder{}, ingest.NewChunker(60), nil, 0)

	events, err := svc.Ingest(context.Background(), "https://youtu.be/aaaaaaaaaaa")
	require.NoError(t, err)
	drainEvents(t, events)

	require.Equal(t, 1, store.upsertCalls())
	clips := store.upserted[0]
	require.NotEmpty(t, clips)
	for _, clip := range clips {
		require.Equal(t, "A Title", clip.Title)
		require.Equal(t, "Some Channel", clip.ChannelName)
		require.Equal(t, "aaaaaaaaaaa", clip.VideoID)
		require.NotEmpty(t, clip.Embedding)
		require.NotZero(t, clip.IndexedAt)
		require.Contains(t, clip.ThumbnailURL, "aaaaaaaaaaa")
	}
}
