package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/didi/gendry/builder"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/clipseek/internal/model"
	"github.com/xxxsen/clipseek/internal/pkg/dbutil"
)

type ClipRepo struct {
	db *sql.DB
}

func NewClipRepo(db *sql.DB) *ClipRepo {
	return &ClipRepo{db: db}
}

// UpsertBatch writes every clip of one video inside a single
// transaction: either all of a video's clips become visible or none.
// Clip ids are deterministic, so replays resolve through the conflict
// clause instead of duplicating rows.
func (r *ClipRepo) UpsertBatch(ctx context.Context, clips []*model.Clip) error {
	if len(clips) == 0 {
		return nil
	}
	const query = `
		INSERT INTO clips (id, video_id, title, channel_name, thumbnail_url, start_seconds, end_seconds, content, embedding, indexed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			channel_name = EXCLUDED.channel_name,
			thumbnail_url = EXCLUDED.thumbnail_url,
			start_seconds = EXCLUDED.start_seconds,
			end_seconds = EXCLUDED.end_seconds,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			indexed_at = EXCLUDED.indexed_at
	`
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, clip := range clips {
		if _, err := tx.ExecContext(ctx, query,
			clip.ID,
			clip.VideoID,
			clip.Title,
			clip.ChannelName,
			clip.ThumbnailURL,
			clip.StartSeconds,
			clip.EndSeconds,
			clip.Content,
			pgvector.NewVector(clip.Embedding),
			clip.IndexedAt,
		); err != nil {
			return fmt.Errorf("upsert clip %s: %w", clip.ID, err)
		}
	}
	return tx.Commit()
}

// ListIndexedVideoIDs returns the set of video ids holding at least one
// clip; ingestion uses it for the skip rule.
func (r *ClipRepo) ListIndexedVideoIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT video_id FROM clips`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// Search returns the k nearest clips by cosine similarity, higher score
// first, ties broken by smaller start offset for determinism.
func (r *ClipRepo) Search(ctx context.Context, embedding []float32, k int) ([]model.ScoredClip, error) {
	const query = `
		SELECT id, video_id, title, channel_name, thumbnail_url, start_seconds, end_seconds, content, indexed_at,
			1 - (embedding <=> $1) AS score
		FROM clips
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1 ASC, start_seconds ASC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.ScoredClip
	for rows.Next() {
		var item model.ScoredClip
		var indexedAt sql.NullInt64
		if err := rows.Scan(
			&item.ID,
			&item.VideoID,
			&item.Title,
			&item.ChannelName,
			&item.ThumbnailURL,
			&item.StartSeconds,
			&item.EndSeconds,
			&item.Content,
			&indexedAt,
			&item.Score,
		); err != nil {
			return nil, err
		}
		item.IndexedAt = indexedAt.Int64
		results = append(results, item)
	}
	return results, rows.Err()
}

// DeleteByVideo removes every clip of a video and reports how many rows
// went away; deleting an unknown video is a zero-count success.
func (r *ClipRepo) DeleteByVideo(ctx context.Context, videoID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM clips WHERE video_id = $1`, videoID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RenameChannel retags every clip of a channel in one statement, so
// concurrent readers observe all-old or all-new names.
func (r *ClipRepo) RenameChannel(ctx context.Context, oldName, newName string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE clips SET channel_name = $1 WHERE channel_name = $2`, newName, oldName)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListByVideo returns a video's clips ordered by start offset.
func (r *ClipRepo) ListByVideo(ctx context.Context, videoID string) ([]model.Clip, error) {
	where := map[string]interface{}{
		"video_id": videoID,
		"_orderby": "start_seconds asc",
	}
	fields := []string{"id", "video_id", "title", "channel_name", "thumbnail_url", "start_seconds", "end_seconds", "content", "indexed_at"}
	sqlStr, args, err := builder.BuildSelect("clips", where, fields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var clips []model.Clip
	for rows.Next() {
		var clip model.Clip
		var indexedAt sql.NullInt64
		if err := rows.Scan(
			&clip.ID,
			&clip.VideoID,
			&clip.Title,
			&clip.ChannelName,
			&clip.ThumbnailURL,
			&clip.StartSeconds,
			&clip.EndSeconds,
			&clip.Content,
			&indexedAt,
		); err != nil {
			return nil, err
		}
		clip.IndexedAt = indexedAt.Int64
		clips = append(clips, clip)
	}
	return clips, rows.Err()
}

// CountClips reports the total number of indexed clips.
func (r *ClipRepo) CountClips(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clips`).Scan(&count)
	return count, err
}

// ListLibrary folds clip metadata into the channel → video aggregate
// view. Channels are derived purely by grouping, never stored.
func (r *ClipRepo) ListLibrary(ctx context.Context) (*model.Library, error) {
	const query = `
		SELECT channel_name, video_id, MAX(title), MAX(thumbnail_url), COUNT(*), MAX(indexed_at)
		FROM clips
		GROUP BY channel_name, video_id
		ORDER BY channel_name ASC, MAX(indexed_at) DESC NULLS LAST, video_id ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	library := &model.Library{Channels: []model.ChannelSummary{}}
	var current *model.ChannelSummary
	for rows.Next() {
		var channelName string
		var video model.VideoSummary
		var indexedAt sql.NullInt64
		if err := rows.Scan(&channelName, &video.VideoID, &video.Title, &video.ThumbnailURL, &video.ClipCount, &indexedAt); err != nil {
			return nil, err
		}
		if indexedAt.Valid {
			ts := indexedAt.Int64
			video.IndexedAt = &ts
		}
		if current == nil || current.Name != channelName {
			library.Channels = append(library.Channels, model.ChannelSummary{Name: channelName})
			current = &library.Channels[len(library.Channels)-1]
		}
		current.Videos = append(current.Videos, video)
		current.VideoCount = len(current.Videos)
		library.TotalVideos++
		library.TotalClips += video.ClipCount
	}
	return library, rows.Err()
}
