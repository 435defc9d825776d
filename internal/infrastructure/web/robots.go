package web

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

type robotsCache struct {
	mu    sync.Mutex
	hosts map[string]*robotstxt.RobotsData
}

func newRobotsCache() *robotsCache {
	return &robotsCache{hosts: map[string]*robotstxt.RobotsData{}}
}

// allowed treats an unreachable robots.txt as permissive.
func (c *robotsCache) allowed(ctx context.Context, f *Fetcher, pageURL string) (bool, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	key := u.Scheme + "://" + u.Host

	c.mu.Lock()
	data, cached := c.hosts[key]
	c.mu.Unlock()

	if !cached {
		data = c.load(ctx, f, key)
		c.mu.Lock()
		c.hosts[key] = data
		c.mu.Unlock()
	}

	if data == nil {
		return true, nil
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return data.TestAgent(path, f.userAgent), nil
}

func (c *robotsCache) load(ctx context.Context, f *Fetcher, origin string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}
	return data
}
