// Package pokeapi is a small cached client for the public PokeAPI.
package pokeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"pokebattle/pkg/logging"
)

// ErrNotFound is returned when PokeAPI answers 404.
var ErrNotFound = errors.New("pokeapi: not found")

type entry struct {
	body    []byte
	expires time.Time
}

type Client struct {
	baseURL string
	http    *http.Client
	ttl     time.Duration

	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]entry
	now   func() time.Time
}

// New returns a client for baseURL. A zero ttl disables caching.
func New(baseURL string, timeout, ttl time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		ttl:     ttl,
		cache:   make(map[string]entry),
		now:     time.Now,
	}
}

func (c *Client) List(ctx context.Context, limit, offset int) (ListResponse, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	var out ListResponse
	err := c.get(ctx, "/pokemon?"+q.Encode(), &out)
	return out, err
}

// Pokemon fetches by name or id; names are lowercased.
func (c *Client) Pokemon(ctx context.Context, name string) (Pokemon, error) {
	var out Pokemon
	err := c.get(ctx, "/pokemon/"+url.PathEscape(strings.ToLower(strings.TrimSpace(name))), &out)
	return out, err
}

func (c *Client) Species(ctx context.Context, id int) (Species, error) {
	var out Species
	err := c.get(ctx, "/pokemon-species/"+strconv.Itoa(id), &out)
	return out, err
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	body, err := c.fetch(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) cached(path string) ([]byte, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.cache[path]
	if !ok || c.now().After(e.expires) {
		return nil, false
	}
	return e.body, true
}

func (c *Client) store(path string, body []byte) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.cache[path] = entry{body: body, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// fetch returns the raw body for path, joining any identical request
// already in flight.
func (c *Client) fetch(ctx context.Context, path string) ([]byte, error) {
	if body, ok := c.cached(path); ok {
		return body, nil
	}
	// the shared call must not die with whichever caller started it
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(path, func() (interface{}, error) {
		if body, ok := c.cached(path); ok {
			return body, nil
		}
		body, err := c.request(shared, path)
		if err != nil {
			return nil, err
		}
		c.store(path, body)
		return body, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (c *Client) request(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if resp.StatusCode != http.StatusOK {
		logging.Warn("pokeapi error status", logging.Fields{"path": path, "status": resp.StatusCode})
		return nil, fmt.Errorf("get %s: bad status: %s", path, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return body, nil
}
