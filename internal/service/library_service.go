package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/clipseek/internal/model"
	appErr "github.com/xxxsen/clipseek/internal/pkg/errors"
)

type LibraryService struct {
	store ClipStore
}

func NewLibraryService(store ClipStore) *LibraryService {
	return &LibraryService{store: store}
}

func (s *LibraryService) Library(ctx context.Context) (*model.Library, error) {
	return s.store.ListLibrary(ctx)
}

// DeleteVideo removes every clip of a video. Deleting a video with no
// clips is a successful no-op returning zero.
func (s *LibraryService) DeleteVideo(ctx context.Context, videoID string) (int64, error) {
	if strings.TrimSpace(videoID) == "" {
		return 0, fmt.Errorf("%w: video id is required", appErr.ErrInvalid)
	}
	count, err := s.store.DeleteByVideo(ctx, videoID)
	if err != nil {
		return 0, err
	}
	logutil.GetLogger(ctx).Info("video deleted", zap.String("video_id", videoID), zap.Int64("clips", count))
	return count, nil
}

// RenameChannel retags every clip under oldName and reports how many
// clips changed. Renaming a channel nobody is tagged with is not found.
func (s *LibraryService) RenameChannel(ctx context.Context, oldName, newName string) (int64, error) {
	oldName = strings.TrimSpace(oldName)
	newName = strings.TrimSpace(newName)
	if oldName == "" || newName == "" {
		return 0, fmt.Errorf("%w: old and new channel names are required", appErr.ErrInvalid)
	}
	if oldName == newName {
		return 0, fmt.Errorf("%w: names are identical", appErr.ErrInvalid)
	}
	count, err := s.store.RenameChannel(ctx, oldName, newName)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, fmt.Errorf("%w: channel %q", appErr.ErrNotFound, oldName)
	}
	logutil.GetLogger(ctx).Info("channel renamed",
		zap.String("old", oldName), zap.String("new", newName), zap.Int64("clips", count))
	return count, nil
}

// TranscriptSRT reprojects a video's stored clips as a subtitle file.
// It reads only the index; it never goes back to the caption source.
func (s *LibraryService) TranscriptSRT(ctx context.Context, videoID string) (string, string, error) {
	if strings.TrimSpace(videoID) == "" {
		return "", "", fmt.Errorf("%w: video id is required", appErr.ErrInvalid)
	}
	clips, err := s.store.ListByVideo(ctx, videoID)
	if err != nil {
		return "", "", err
	}
	if len(clips) == 0 {
		return "", "", fmt.Errorf("%w: video %q", appErr.ErrNotFound, videoID)
	}

	var sb strings.Builder
	for i, clip := range clips {
		sb.WriteString(fmt.Sprintf("%d\n", i+1))
		sb.WriteString(srtTimestamp(clip.StartSeconds))
		sb.WriteString(" --> ")
		sb.WriteString(srtTimestamp(clip.EndSeconds))
		sb.WriteString("\n")
		sb.WriteString(strings.TrimSpace(clip.Content))
		sb.WriteString("\n\n")
	}
	filename := fmt.Sprintf("%s_%s.srt", sanitizeFilename(clips[0].Title), videoID)
	return filename, sb.String(), nil
}

func srtTimestamp(seconds int) string {
	return fmt.Sprintf("%02d:%02d:%02d,000", seconds/3600, (seconds%3600)/60, seconds%60)
}

func sanitizeFilename(title string) string {
	var sb strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			sb.WriteRune(r)
		}
	}
	name := strings.TrimSpace(sb.String())
	if len(name) > 50 {
		name = name[:50]
	}
	if name == "" {
		name = "transcript"
	}
	return name
}
