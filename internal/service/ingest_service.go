package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxxsen/clipseek/internal/ai"
	"github.com/xxxsen/clipseek/internal/filestore"
	"github.com/xxxsen/clipseek/internal/ingest"
	"github.com/xxxsen/clipseek/internal/model"
	appErr "github.com/xxxsen/clipseek/internal/pkg/errors"
	"github.com/xxxsen/clipseek/internal/youtube"
)

const (
	// progressBuffer bounds the status channel so a slow consumer
	// applies backpressure instead of growing memory.
	progressBuffer = 64

	// embedWorkers bounds concurrent embedding calls for the clips of a
	// single video. Videos themselves are processed strictly one at a
	// time to respect the upstream source.
	embedWorkers = 4
)

// batchAbortError wraps conditions that stop the whole batch, as opposed
// to per-video failures that only produce a status line. The cause stays
// reachable for both errors.Is checks and the caller-visible message.
type batchAbortError struct {
	cause error
}

func (e *batchAbortError) Error() string {
	return "ingestion batch aborted: " + e.cause.Error()
}

func (e *batchAbortError) Unwrap() error {
	return e.cause
}

type IngestService struct {
	source   VideoSource
	store    ClipStore
	embedder ai.IEmbedder
	chunker  *ingest.Chunker
	archive  filestore.Store
	delay    time.Duration
}

func NewIngestService(source VideoSource, store ClipStore, embedder ai.IEmbedder, chunker *ingest.Chunker, archive filestore.Store, videoDelay time.Duration) *IngestService {
	return &IngestService{
		source:   source,
		store:    store,
		embedder: embedder,
		chunker:  chunker,
		archive:  archive,
		delay:    videoDelay,
	}
}

// Ingest validates the content reference and starts the batch producer.
// Validation failures are returned synchronously before any upstream
// work; afterwards all outcomes flow through the returned channel, which
// is closed once the batch finishes (the success-completion sentinel).
func (s *IngestService) Ingest(ctx context.Context, rawURL string) (<-chan model.ProgressEvent, error) {
	ref, err := youtube.ParseReference(rawURL)
	if err != nil {
		return nil, err
	}
	events := make(chan model.ProgressEvent, progressBuffer)
	go s.run(ctx, ref, events)
	return events, nil
}

func (s *IngestService) run(ctx context.Context, ref youtube.Reference, events chan<- model.ProgressEvent) {
	defer close(events)
	logger := logutil.GetLogger(ctx).With(zap.String("kind", string(ref.Kind)), zap.String("ref", ref.Raw))

	emit := func(ev model.ProgressEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	emit(model.Progress(fmt.Sprintf("Detected reference type: %s", ref.Kind)))
	emit(model.Progress("Scanning for videos..."))

	listing, err := s.source.Resolve(ctx, ref)
	if err != nil {
		logger.Error("discovery failed", zap.Error(err))
		emit(model.ProgressFailure(fmt.Sprintf("failed to scan %s: %v", ref.Kind, err)))
		return
	}
	emit(model.Progress(fmt.Sprintf("Found %d videos", len(listing.Videos))))
	if listing.Truncated {
		emit(model.Progress(fmt.Sprintf("Warning: listing is partial, stopped after %d videos; re-run ingest to pick up the rest", len(listing.Videos))))
	}
	emit(model.Progress(fmt.Sprintf("Channel: %s", listing.ChannelName)))

	indexed, err := s.store.ListIndexedVideoIDs(ctx)
	if err != nil {
		logger.Error("load indexed video ids failed", zap.Error(err))
		emit(model.ProgressFailure(fmt.Sprintf("failed to read index: %v", err)))
		return
	}
	emit(model.Progress(fmt.Sprintf("Library contains %d previously indexed videos", len(indexed))))

	var indexedCount, skippedCount, noTranscript, failed, rateLimited int
	total := len(listing.Videos)
	for i, stub := range listing.Videos {
		// Cancellation is cooperative: checked between videos, never
		// mid-video, so a committed video is always complete.
		select {
		case <-ctx.Done():
			logger.Info("ingestion cancelled", zap.Int("processed", i))
			return
		default:
		}

		if _, ok := indexed[stub.ID]; ok {
			skippedCount++
			emit(model.Progress(fmt.Sprintf("[%d/%d] Skipped %s - already indexed", i+1, total, stub.ID)))
			continue
		}

		clipCount, err := s.indexVideo(ctx, stub, listing.ChannelName, total, i+1, emit)
		var abort *batchAbortError
		switch {
		case err == nil:
			indexedCount++
			emit(model.Progress(fmt.Sprintf("[%d/%d] Indexed %d clips from %s", i+1, total, clipCount, stub.ID)))
		case appErr.IsNoTranscript(err):
			noTranscript++
			emit(model.Progress(fmt.Sprintf("[%d/%d] No transcript for %s", i+1, total, stub.ID)))
		case errors.As(err, &abort):
			logger.Error("batch aborted", zap.Error(err))
			emit(model.ProgressFailure(fmt.Sprintf("batch aborted: %v", abort.cause)))
			return
		default:
			failed++
			if appErr.IsRateLimited(err) {
				rateLimited++
			}
			logger.Warn("video failed", zap.String("video_id", stub.ID), zap.Error(err))
			emit(model.ProgressFailure(fmt.Sprintf("[%d/%d] Error indexing %s: %v", i+1, total, stub.ID, err)))
		}

		if i+1 < total && !s.pause(ctx) {
			return
		}
	}

	if rateLimited > 0 {
		emit(model.Progress(fmt.Sprintf("Warning: upstream throttled %d requests; consider a longer video delay", rateLimited)))
	}
	emit(model.Progress(fmt.Sprintf("Complete! Indexed %d videos (%d skipped, %d without transcript, %d failed)",
		indexedCount, skippedCount, noTranscript, failed)))
	logger.Info("ingestion finished",
		zap.Int("indexed", indexedCount),
		zap.Int("skipped", skippedCount),
		zap.Int("no_transcript", noTranscript),
		zap.Int("failed", failed),
	)
}

// pause applies the fixed inter-video delay; it is a rate policy, not a
// backoff. Returns false when the batch got cancelled while waiting.
func (s *IngestService) pause(ctx context.Context) bool {
	if s.delay <= 0 {
		return true
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// indexVideo runs the per-video pipeline: captions → chunks → embeddings
// → one transactional upsert. It returns the number of committed clips.
func (s *IngestService) indexVideo(ctx context.Context, stub youtube.VideoStub, channelName string, total, pos int, emit func(model.ProgressEvent) bool) (int, error) {
	title := stub.Title
	if title == "" {
		title, _ = s.source.VideoMetadata(ctx, stub.ID)
	}
	emit(model.Progress(fmt.Sprintf("[%d/%d] Processing: %s", pos, total, truncateTitle(title))))

	lines, err := s.source.Transcript(ctx, stub.ID)
	if err != nil {
		return 0, err
	}
	clips := s.chunker.Chunk(stub.ID, lines)
	if len(clips) == 0 {
		return 0, fmt.Errorf("%w: %s", appErr.ErrNoTranscript, stub.ID)
	}

	indexedAt := time.Now().Unix()
	for _, clip := range clips {
		clip.Title = title
		clip.ChannelName = channelName
		clip.ThumbnailURL = youtube.ThumbnailURL(stub.ID)
		clip.IndexedAt = indexedAt
	}

	// Embeddings for one video's clips are independent and may run
	// concurrently; the video itself is not committed until all are in.
	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(embedWorkers)
	for _, clip := range clips {
		grp.Go(func() error {
			vec, err := s.embedder.Embed(grpCtx, clip.Content, "RETRIEVAL_DOCUMENT")
			if err != nil {
				return err
			}
			clip.Embedding = vec
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		if errors.Is(err, ai.ErrUnavailable) {
			// No credential means every remaining video would fail the
			// same way; stop the batch instead of spamming failures.
			return 0, &batchAbortError{cause: appErr.ErrCredential}
		}
		return 0, fmt.Errorf("embed clips: %w", err)
	}

	if err := s.store.UpsertBatch(ctx, clips); err != nil {
		return 0, fmt.Errorf("store clips: %w", err)
	}
	s.archiveCaptions(ctx, stub.ID, lines)
	return len(clips), nil
}

// archiveCaptions keeps the raw caption lines next to the index so a
// future re-chunk does not need to re-scrape. Failures only log.
func (s *IngestService) archiveCaptions(ctx context.Context, videoID string, lines []youtube.CaptionLine) {
	if s.archive == nil {
		return
	}
	payload, err := json.Marshal(lines)
	if err != nil {
		return
	}
	key := videoID + ".captions.json"
	if err := s.archive.Save(ctx, key, bytes.NewReader(payload), int64(len(payload))); err != nil {
		logutil.GetLogger(ctx).Warn("caption archive write failed",
			zap.String("video_id", videoID), zap.Error(err))
	}
}

func truncateTitle(title string) string {
	const maxLen = 50
	runes := []rune(title)
	if len(runes) <= maxLen {
		return title
	}
	return string(runes[:maxLen]) + "..."
}
