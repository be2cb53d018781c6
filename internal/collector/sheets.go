package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// maxSheetBytes caps a single fetched stylesheet
const maxSheetBytes = 4 << 20

// SheetCache holds stylesheet bodies by URL across targets. Sheets the
// page could not expose through CSSOM (cross-origin) are fetched over HTTP.
type SheetCache struct {
	cache  *gocache.Cache
	client *http.Client
}

// NewSheetCache creates a cache whose entries live for ttl
func NewSheetCache(ttl time.Duration, client *http.Client) *SheetCache {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &SheetCache{
		cache:  gocache.New(ttl, 2*ttl),
		client: client,
	}
}

// Put stores a body read from the page
func (c *SheetCache) Put(url, text string) {
	if url == "" {
		return
	}
	c.cache.SetDefault(url, text)
}

// Get returns the body for url, fetching it when not cached
func (c *SheetCache) Get(ctx context.Context, url string) (string, error) {
	if v, ok := c.cache.Get(url); ok {
		return v.(string), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("stylesheet %s: %w", url, err)
	}
	req.Header.Set("Accept", "text/css,*/*;q=0.1")
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("stylesheet %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("stylesheet %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSheetBytes))
	if err != nil {
		return "", fmt.Errorf("stylesheet %s: %w", url, err)
	}

	text := string(body)
	c.cache.SetDefault(url, text)
	return text, nil
}

// Len returns the number of cached sheets
func (c *SheetCache) Len() int {
	return c.cache.ItemCount()
}
