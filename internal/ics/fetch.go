package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	appLog "coursecal/internal/log"
)

// Source is a holiday feed subscription.
type Source struct {
	// ID is used in logs only.
	ID  string
	URL string
}

// FetchResult contains the outcome of fetching a single feed.
type FetchResult struct {
	Source    Source
	Body      []byte
	FromCache bool // body was served from cache (304 or upstream failure)
}

// Fetcher downloads holiday feeds with conditional requests
// (ETag / Last-Modified) and falls back to the last cached body when the
// upstream is unreachable.
type Fetcher struct {
	client *http.Client
	cache  FeedCache
}

// NewFetcher creates a Fetcher. A nil cache disables caching.
func NewFetcher(cache FeedCache, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		cache:  cache,
	}
}

// FetchOne fetches a single feed, honoring ETag and Last-Modified.
func (f *Fetcher) FetchOne(ctx context.Context, src Source) (FetchResult, error) {
	if src.URL == "" {
		return FetchResult{}, errors.New("source URL is empty")
	}

	cached := f.loadCache(ctx, src)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return FetchResult{}, err
	}
	if cached.ETag != "" {
		req.Header.Set("If-None-Match", cached.ETag)
	}
	if cached.LastModified != "" {
		req.Header.Set("If-Modified-Since", cached.LastModified)
	}

	appLog.Info("holiday feed fetch start", "id", src.ID, "url", redactURL(src.URL))

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cached.Body) > 0 {
			appLog.Error("holiday feed network error, using cached body", err, "id", src.ID, "url", redactURL(src.URL))
			return FetchResult{Source: src, Body: cached.Body, FromCache: true}, nil
		}
		return FetchResult{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return FetchResult{}, err
		}

		entry := CacheEntry{
			URL:          src.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			UpdatedAt:    time.Now().UTC(),
			Body:         body,
		}
		if f.cache != nil {
			if err := f.cache.Store(ctx, entry); err != nil {
				// The fresh body is still good.
				appLog.Error("holiday feed cache save failed", err, "id", src.ID, "url", redactURL(src.URL))
			}
		}

		appLog.Info("holiday feed fetch success", "id", src.ID, "url", redactURL(src.URL), "status", resp.StatusCode, "bytes", len(body))
		return FetchResult{Source: src, Body: body}, nil

	case http.StatusNotModified:
		if len(cached.Body) == 0 {
			return FetchResult{}, errors.New("received 304 Not Modified but no cached body available")
		}
		appLog.Info("holiday feed not modified; using cache", "id", src.ID, "url", redactURL(src.URL))
		return FetchResult{Source: src, Body: cached.Body, FromCache: true}, nil

	default:
		if len(cached.Body) > 0 {
			appLog.Error("holiday feed non-OK, using cached body", errors.New(resp.Status), "id", src.ID, "url", redactURL(src.URL), "status", resp.StatusCode)
			return FetchResult{Source: src, Body: cached.Body, FromCache: true}, nil
		}
		return FetchResult{}, fmt.Errorf("fetch %s: %s", redactURL(src.URL), resp.Status)
	}
}

func (f *Fetcher) loadCache(ctx context.Context, src Source) CacheEntry {
	if f.cache == nil {
		return CacheEntry{}
	}
	entry, err := f.cache.Load(ctx, src.URL)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			appLog.Warn("holiday feed cache unreadable", "id", src.ID, "error", err)
		}
		return CacheEntry{}
	}
	return entry
}

// redactURL keeps only scheme and host; feed URLs may carry tokens.
func redactURL(u string) string {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return "ics://...(redacted)"
	}
	return parsed.Scheme + "://" + parsed.Host + "/...(redacted)"
}
