package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	appErr "github.com/xxxsen/clipseek/internal/pkg/errors"
)

const (
	defaultWebBase   = "https://www.youtube.com"
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	webClientVersion = "2.20240101.00.00"

	// Pagination hard cap so a malformed continuation loop cannot spin
	// the scraper forever.
	maxListingPages = 200
)

type VideoStub struct {
	ID    string
	Title string
}

// Listing is an ordered discovery result. Order is whatever the source
// tab/playlist returns, which is stable across repeated calls. Truncated
// is set when pagination stopped at the page cap with more results still
// pending upstream; the listing is valid but incomplete.
type Listing struct {
	Videos      []VideoStub
	ChannelName string
	Truncated   bool
}

// Client scrapes discovery listings and caption tracks from the public
// web surface. All requests go through a shared rate limiter so large
// channels do not trip upstream throttling.
type Client struct {
	hc      *http.Client
	limiter *rate.Limiter
	webBase string
}

func NewClient(hc *http.Client, requestInterval time.Duration) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	if requestInterval <= 0 {
		requestInterval = time.Second
	}
	return &Client{
		hc:      hc,
		limiter: rate.NewLimiter(rate.Every(requestInterval), 1),
		webBase: defaultWebBase,
	}
}

// Resolve expands a classified reference into the ordered video listing
// plus the channel name when discoverable. The channel name falls back
// to "Unknown Channel" rather than failing the listing.
func (c *Client) Resolve(ctx context.Context, ref Reference) (*Listing, error) {
	switch ref.Kind {
	case RefVideo:
		title, channel := c.VideoMetadata(ctx, ref.ID)
		return &Listing{
			Videos:      []VideoStub{{ID: ref.ID, Title: title}},
			ChannelName: channel,
		}, nil
	case RefPlaylist:
		videos, truncated, err := c.listPlaylist(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return c.withChannelName(ctx, videos, truncated), nil
	case RefChannel:
		videos, truncated, err := c.listChannel(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return c.withChannelName(ctx, videos, truncated), nil
	default:
		return nil, fmt.Errorf("%w: unknown reference kind: %s", appErr.ErrInvalid, ref.Kind)
	}
}

// withChannelName resolves the channel name from the first video via
// oEmbed; listing metadata is unreliable for author names.
func (c *Client) withChannelName(ctx context.Context, videos []VideoStub, truncated bool) *Listing {
	listing := &Listing{Videos: videos, ChannelName: UnknownChannel, Truncated: truncated}
	if len(videos) > 0 {
		_, listing.ChannelName = c.VideoMetadata(ctx, videos[0].ID)
	}
	return listing
}

// UnknownChannel is the placeholder for unresolved channel names.
const UnknownChannel = "Unknown Channel"

// VideoMetadata fetches title and channel name through the oEmbed
// endpoint. Failures degrade to placeholders instead of erroring: a
// missing title never blocks ingestion.
func (c *Client) VideoMetadata(ctx context.Context, videoID string) (string, string) {
	endpoint := fmt.Sprintf("%s/oembed?url=%s&format=json",
		c.webBase, url.QueryEscape(WatchURL(videoID)))
	body, err := c.get(ctx, endpoint)
	if err != nil {
		logutil.GetLogger(ctx).Warn("oembed lookup failed", zap.String("video_id", videoID), zap.Error(err))
		return "Video " + videoID, UnknownChannel
	}
	var meta struct {
		Title      string `json:"title"`
		AuthorName string `json:"author_name"`
	}
	if err := json.Unmarshal(body, &meta); err != nil {
		return "Video " + videoID, UnknownChannel
	}
	if meta.Title == "" {
		meta.Title = "Video " + videoID
	}
	if meta.AuthorName == "" {
		meta.AuthorName = UnknownChannel
	}
	return meta.Title, meta.AuthorName
}

// ThumbnailURL returns the canonical medium-quality thumbnail.
func ThumbnailURL(videoID string) string {
	return "https://img.youtube.com/vi/" + videoID + "/mqdefault.jpg"
}

// WatchURL returns the canonical watch link for a video.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

func (c *Client) listChannel(ctx context.Context, channelURL string) ([]VideoStub, bool, error) {
	body, err := c.get(ctx, channelURL+"/videos")
	if err != nil {
		return nil, false, err
	}
	data, err := extractEmbeddedJSON(body, "ytInitialData")
	if err != nil {
		return nil, false, fmt.Errorf("parse channel listing: %w", err)
	}
	return c.collectListing(ctx, data, "videoRenderer")
}

func (c *Client) listPlaylist(ctx context.Context, playlistID string) ([]VideoStub, bool, error) {
	body, err := c.get(ctx, c.webBase+"/playlist?list="+url.QueryEscape(playlistID))
	if err != nil {
		return nil, false, err
	}
	data, err := extractEmbeddedJSON(body, "ytInitialData")
	if err != nil {
		return nil, false, fmt.Errorf("parse playlist listing: %w", err)
	}
	return c.collectListing(ctx, data, "playlistVideoRenderer")
}

// collectListing walks the initial page payload and follows browse
// continuations until the listing is exhausted. Hitting the page cap
// while a continuation token is still pending reports the listing as
// truncated; it is never passed off as complete.
func (c *Client) collectListing(ctx context.Context, page interface{}, rendererKey string) ([]VideoStub, bool, error) {
	logger := logutil.GetLogger(ctx)
	var videos []VideoStub
	seen := map[string]struct{}{}
	token := ""
	for pages := 0; pages < maxListingPages; pages++ {
		stubs := parseVideoStubs(page, rendererKey)
		for _, stub := range stubs {
			if _, ok := seen[stub.ID]; ok {
				continue
			}
			seen[stub.ID] = struct{}{}
			videos = append(videos, stub)
		}
		token = findContinuationToken(page)
		if token == "" || pages+1 == maxListingPages {
			break
		}
		logger.Debug("following listing continuation", zap.Int("collected", len(videos)))
		next, err := c.browseContinuation(ctx, token)
		if err != nil {
			return nil, false, err
		}
		page = next
	}
	if len(videos) == 0 {
		return nil, false, fmt.Errorf("%w: listing returned no videos", appErr.ErrNotFound)
	}
	truncated := token != ""
	if truncated {
		logger.Warn("listing truncated at page cap",
			zap.Int("pages", maxListingPages), zap.Int("collected", len(videos)))
	}
	return videos, truncated, nil
}

func (c *Client) browseContinuation(ctx context.Context, token string) (interface{}, error) {
	payload := map[string]interface{}{
		"context": map[string]interface{}{
			"client": map[string]interface{}{
				"clientName":    "WEB",
				"clientVersion": webClientVersion,
			},
		},
		"continuation": token,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	body, err := c.post(ctx, c.webBase+"/youtubei/v1/browse?prettyPrint=false", data)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode continuation response: %w", err)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: %s", appErr.ErrRateLimited, req.URL.Host)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream request failed: %s: %s", req.URL.Path, resp.Status)
	}
	return io.ReadAll(resp.Body)
}
