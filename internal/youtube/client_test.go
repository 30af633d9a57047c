package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func listingPage(videoID, token string) map[string]interface{} {
	page := map[string]interface{}{
		"contents": []interface{}{
			map[string]interface{}{
				"videoRenderer": map[string]interface{}{
					"videoId": videoID,
					"title":   map[string]interface{}{"simpleText": "Video " + videoID},
				},
			},
		},
	}
	if token != "" {
		page["continuations"] = map[string]interface{}{
			"continuationCommand": map[string]interface{}{"token": token},
		}
	}
	return page
}

func TestCollectListing_ExhaustedListingIsComplete(t *testing.T) {
	c := &Client{limiter: rate.NewLimiter(rate.Inf, 1)}
	videos, truncated, err := c.collectListing(context.Background(), listingPage("aaaaaaaaaaa", ""), "videoRenderer")
	require.NoError(t, err)
	require.False(t, truncated)
	require.Len(t, videos, 1)
	require.Equal(t, "aaaaaaaaaaa", videos[0].ID)
}

func TestCollectListing_PageCapSignalsTruncation(t *testing.T) {
	pageNo := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/youtubei/v1/browse" {
			http.NotFound(w, r)
			return
		}
		pageNo++
		fmt.Fprintf(w, `{"contents":[{"videoRenderer":{"videoId":"vid%08d","title":{"simpleText":"t"}}}],`+
			`"continuations":{"continuationCommand":{"token":"page%d"}}}`, pageNo, pageNo)
	}))
	defer srv.Close()

	c := &Client{
		hc:      srv.Client(),
		limiter: rate.NewLimiter(rate.Inf, 1),
		webBase: srv.URL,
	}
	videos, truncated, err := c.collectListing(context.Background(), listingPage("aaaaaaaaaaa", "page0"), "videoRenderer")
	require.NoError(t, err)
	require.True(t, truncated)
	// The upstream never runs out of pages, so the crawl must stop at
	// the cap with everything collected so far intact.
	require.Len(t, videos, maxListingPages)
	require.Equal(t, maxListingPages-1, pageNo)
}
