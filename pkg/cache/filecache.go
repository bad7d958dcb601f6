// Package cache persists the token list and resolved icon URLs between runs.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"zionix-swap/pkg/types"
)

const (
	DefaultFileName = ".zionix-cache.json"
)

// FileCache is a JSON file holding the last token list and icon URLs.
// Entries never expire; Clear empties the file.
type FileCache struct {
	filePath string
	mu       sync.RWMutex
	data     fileData
}

type fileData struct {
	Tokens    []*types.TokenDescriptor `json:"tokens"`
	Images    map[string]string        `json:"images"`
	UpdatedAt time.Time                `json:"updatedAt"`
}

// Open loads the cache at filePath, or at ~/.zionix-cache.json when empty.
// A missing file is an empty cache.
func Open(filePath string) (*FileCache, error) {
	if filePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(home, DefaultFileName)
	}

	c := &FileCache{
		filePath: filePath,
		data:     fileData{Images: make(map[string]string)},
	}

	if err := c.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load cache: %w", err)
	}
	return c, nil
}

func (c *FileCache) load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := os.ReadFile(c.filePath)
	if err != nil {
		return err
	}

	var data fileData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to unmarshal cache: %w", err)
	}
	if data.Images == nil {
		data.Images = make(map[string]string)
	}
	c.data = data
	return nil
}

// saveLocked writes the cache atomically; the caller holds the lock
func (c *FileCache) saveLocked() error {
	c.data.UpdatedAt = time.Now().UTC()

	raw, err := json.MarshalIndent(c.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempFile := c.filePath + ".tmp"
	if err := os.WriteFile(tempFile, raw, 0600); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := os.Rename(tempFile, c.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Tokens returns the cached token list
func (c *FileCache) Tokens() []*types.TokenDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*types.TokenDescriptor, len(c.data.Tokens))
	copy(out, c.data.Tokens)
	return out
}

// SaveTokens replaces the cached token list
func (c *FileCache) SaveTokens(tokens []*types.TokenDescriptor) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data.Tokens = tokens
	return c.saveLocked()
}

// Image returns the cached icon URL for a token address
func (c *FileCache) Image(address string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	url, ok := c.data.Images[address]
	return url, ok
}

// SetImage records the icon URL for a token address
func (c *FileCache) SetImage(address, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.data.Images[address] == url {
		return nil
	}
	c.data.Images[address] = url
	return c.saveLocked()
}

// Clear drops every entry
func (c *FileCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = fileData{Images: make(map[string]string)}
	return c.saveLocked()
}

// UpdatedAt returns when the cache was last written
func (c *FileCache) UpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.UpdatedAt
}

// Path returns the cache file path
func (c *FileCache) Path() string {
	return c.filePath
}
