package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Koolhand111/eva-finance/internal/domain"
	"github.com/Koolhand111/eva-finance/internal/httpclient"
)

// RedditFeed fetches recent posts from one community's public JSON
// listing. Named for the platform spec.md's worked examples assume; any
// other community-forum API implements the same Feed interface.
type RedditFeed struct {
	community string
	baseURL   string
	client    *http.Client
	breaker   *httpclient.Breaker
}

// NewRedditFeed constructs a feed for one community, named without the
// "r/" prefix (e.g. "running", fetched from /r/running).
func NewRedditFeed(community, baseURL string) *RedditFeed {
	return &RedditFeed{
		community: community,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		breaker:   httpclient.NewBreaker("feed:" + community),
	}
}

func (f *RedditFeed) Name() string { return f.community }

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				ID        string  `json:"id"`
				Selftext  string  `json:"selftext"`
				Title     string  `json:"title"`
				CreatedAt float64 `json:"created_utc"`
				Permalink string  `json:"permalink"`
				Author    string  `json:"author"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Fetch retrieves up to limit recent posts from the community's "new"
// listing, converting each into a PostEnvelope.
func (f *RedditFeed) Fetch(ctx context.Context, limit int) ([]PostEnvelope, error) {
	raw, err := f.breaker.Execute(func() (any, error) {
		url := fmt.Sprintf("%s/r/%s/new.json?limit=%d", f.baseURL, f.community, limit)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "eva-finance-ingest/1.0")

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return nil, fmt.Errorf("feed %s returned %d: %s", f.community, resp.StatusCode, string(body))
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return nil, domain.NewTransientExternal("ingest", "feed fetch failed: "+f.community, 0, err)
	}

	var listing redditListing
	if err := json.Unmarshal(raw.([]byte), &listing); err != nil {
		return nil, domain.NewPermanentExternal("ingest", "feed response unparseable: "+f.community, err)
	}

	envelopes := make([]PostEnvelope, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		d := child.Data
		text := d.Selftext
		if text == "" {
			text = d.Title
		}
		envelopes = append(envelopes, PostEnvelope{
			Source:     "reddit",
			PlatformID: d.ID,
			Timestamp:  time.Unix(int64(d.CreatedAt), 0).UTC(),
			Text:       text,
			URL:        f.baseURL + d.Permalink,
			Meta: map[string]string{
				"community":   f.community,
				"author_hash": hashAuthor(d.Author),
				"original_id": d.ID,
			},
		})
	}
	return envelopes, nil
}

// hashAuthor avoids persisting raw usernames in Meta (spec.md §7 "never
// contain PII"); a stable non-reversible tag is enough for dedup/debugging.
func hashAuthor(author string) string {
	if author == "" {
		return ""
	}
	var h uint32 = 2166136261
	for i := 0; i < len(author); i++ {
		h ^= uint32(author[i])
		h *= 16777619
	}
	return "a" + strconv.FormatUint(uint64(h), 36)
}
