package repo

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/clipseek/internal/config"
	"github.com/xxxsen/clipseek/internal/db"
	"github.com/xxxsen/clipseek/internal/model"
)

// Repo tests need a Postgres instance with the pgvector extension.
// Set TEST_DB_HOST (plus optional TEST_DB_PORT/USER/PASSWORD/NAME)
// to run them.
func newTestRepo(t *testing.T) *ClipRepo {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set")
	}
	port := 5432
	if v := os.Getenv("TEST_DB_PORT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			port = parsed
		}
	}
	cfg := config.DatabaseConfig{
		Host:     host,
		Port:     port,
		User:     envOr("TEST_DB_USER", "postgres"),
		Password: envOr("TEST_DB_PASSWORD", "postgres"),
		DBName:   envOr("TEST_DB_NAME", "clipseek_test"),
	}
	conn, err := db.Open(cfg)
	require.NoError(t, err)
	require.NoError(t, db.ApplyMigrations(conn))
	_, err = conn.Exec("TRUNCATE clips")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewClipRepo(conn)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func testVector(seed float32) []float32 {
	vec := make([]float32, 768)
	vec[0] = 1
	vec[1] = seed
	return vec
}

func testClips(videoID, channel string, n int) []*model.Clip {
	clips := make([]*model.Clip, 0, n)
	for i := 0; i < n; i++ {
		clips = append(clips, &model.Clip{
			ID:           model.ClipID(videoID, i),
			VideoID:      videoID,
			Title:        "Title " + videoID,
			ChannelName:  channel,
			ThumbnailURL: fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", videoID),
			StartSeconds: i * 60,
			EndSeconds:   (i + 1) * 60,
			Content:      fmt.Sprintf("clip %d of %s", i, videoID),
			Embedding:    testVector(float32(i) * 0.1),
			IndexedAt:    1700000000 + int64(i),
		})
	}
	return clips
}

func TestClipRepo_UpsertIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertBatch(ctx, testClips("aaaaaaaaaaa", "Chan", 3)))
	require.NoError(t, repo.UpsertBatch(ctx, testClips("aaaaaaaaaaa", "Chan", 3)))

	count, err := repo.CountClips(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), count)
}

func TestClipRepo_ListIndexedVideoIDs(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertBatch(ctx, testClips("aaaaaaaaaaa", "Chan", 2)))
	require.NoError(t, repo.UpsertBatch(ctx, testClips("bbbbbbbbbbb", "Chan", 2)))

	ids, err := repo.ListIndexedVideoIDs(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	require.Contains(t, ids, "aaaaaaaaaaa")
	require.Contains(t, ids, "bbbbbbbbbbb")
}

func TestClipRepo_SearchOrdersBySimilarity(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	clips := testClips("aaaaaaaaaaa", "Chan", 3)
	clips[0].Embedding = testVector(0)
	clips[1].Embedding = testVector(0.5)
	clips[2].Embedding = testVector(2)
	require.NoError(t, repo.UpsertBatch(ctx, clips))

	results, err := repo.Search(ctx, testVector(0), 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, clips[0].ID, results[0].ID)
	require.Equal(t, clips[1].ID, results[1].ID)
	require.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestClipRepo_DeleteByVideo(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertBatch(ctx, testClips("aaaaaaaaaaa", "Chan", 3)))
	require.NoError(t, repo.UpsertBatch(ctx, testClips("bbbbbbbbbbb", "Chan", 2)))

	deleted, err := repo.DeleteByVideo(ctx, "aaaaaaaaaaa")
	require.NoError(t, err)
	require.Equal(t, int64(3), deleted)

	deleted, err = repo.DeleteByVideo(ctx, "aaaaaaaaaaa")
	require.NoError(t, err)
	require.Zero(t, deleted)

	count, err := repo.CountClips(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}

func TestClipRepo_RenameChannel(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertBatch(ctx, testClips("aaaaaaaaaaa", "Old Name", 2)))
	require.NoError(t, repo.UpsertBatch(ctx, testClips("bbbbbbbbbbb", "Other", 1)))

	updated, err := repo.RenameChannel(ctx, "Old Name", "New Name")
	require.NoError(t, err)
	require.Equal(t, int64(2), updated)

	library, err := repo.ListLibrary(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(library.Channels))
	for _, ch := range library.Channels {
		names = append(names, ch.Name)
	}
	require.ElementsMatch(t, []string{"New Name", "Other"}, names)
}

func TestClipRepo_ListByVideoOrdered(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertBatch(ctx, testClips("aaaaaaaaaaa", "Chan", 4)))

	clips, err := repo.ListByVideo(ctx, "aaaaaaaaaaa")
	require.NoError(t, err)
	require.Len(t, clips, 4)
	for i := 1; i < len(clips); i++ {
		require.Less(t, clips[i-1].StartSeconds, clips[i].StartSeconds)
	}
}

func TestClipRepo_ListLibraryAggregates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertBatch(ctx, testClips("aaaaaaaaaaa", "Chan A", 3)))
	require.NoError(t, repo.UpsertBatch(ctx, testClips("bbbbbbbbbbb", "Chan A", 2)))
	require.NoError(t, repo.UpsertBatch(ctx, testClips("ccccccccccc", "Chan B", 1)))

	library, err := repo.ListLibrary(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, library.TotalVideos)
	require.Equal(t, 6, library.TotalClips)
	require.Len(t, library.Channels, 2)
	for _, ch := range library.Channels {
		if ch.Name == "Chan A" {
			require.Equal(t, 2, ch.VideoCount)
		}
		for _, video := range ch.Videos {
			require.NotNil(t, video.IndexedAt)
			require.Positive(t, video.ClipCount)
		}
	}
}
