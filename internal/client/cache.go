package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrNotCached is returned by offline reads that were never made online
var ErrNotCached = errors.New("offline: nothing cached for this view yet")

type cacheEntry struct {
	FetchedAt time.Time       `json:"fetched_at"`
	Body      json.RawMessage `json:"body"`
}

// Cache keeps the last successful response of each read, keyed by API path.
// It is only ever written from server responses.
type Cache struct {
	path string
	mu   sync.Mutex
}

// NewCache returns a cache stored at path
func NewCache(path string) *Cache {
	return &Cache{path: path}
}

func (c *Cache) load() (map[string]cacheEntry, error) {
	entries := map[string]cacheEntry{}
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse cache: %w", err)
	}
	return entries, nil
}

// Put stores v as the response for key
func (c *Cache) Put(key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	entries, err := c.load()
	if err != nil {
		// A corrupt cache is rebuilt from scratch
		entries = map[string]cacheEntry{}
	}
	entries[key] = cacheEntry{FetchedAt: time.Now().UTC(), Body: body}

	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0600)
}

// Get decodes the cached response for key into v
func (c *Cache) Get(key string, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries, err := c.load()
	if err != nil {
		return err
	}
	entry, ok := entries[key]
	if !ok {
		return ErrNotCached
	}
	return json.Unmarshal(entry.Body, v)
}

// FetchedAt reports when key was last refreshed
func (c *Cache) FetchedAt(key string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries, err := c.load()
	if err != nil {
		return time.Time{}, false
	}
	entry, ok := entries[key]
	return entry.FetchedAt, ok
}

// Clear removes every cached response
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
