package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tropicaldog17/replyqueue/internal/models"
)

const vectorFileVersion = 1

type vectorFile struct {
	Version int                   `json:"version"`
	Items   []models.CachedVector `json:"items"`
}

// fileVectorCache keeps the embedding cache in a single JSON document.
type fileVectorCache struct {
	path string
	mu   sync.Mutex
}

// NewFileVectorCache stores embeddings in a JSON file at path.
func NewFileVectorCache(path string) VectorCacheRepository {
	return &fileVectorCache{path: path}
}

// LoadAll treats a missing or malformed file as an empty cache.
func (c *fileVectorCache) LoadAll(ctx context.Context) ([]models.CachedVector, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read(), nil
}

func (c *fileVectorCache) Append(ctx context.Context, vectors []models.CachedVector) error {
	if len(vectors) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	items := c.read()
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		seen[it.Text] = true
	}
	for _, v := range vectors {
		if seen[v.Text] {
			continue
		}
		seen[v.Text] = true
		items = append(items, v)
	}

	raw, err := json.Marshal(vectorFile{Version: vectorFileVersion, Items: items})
	if err != nil {
		return fmt.Errorf("failed to encode vector cache: %w", err)
	}
	if dir := filepath.Dir(c.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create vector cache dir: %w", err)
		}
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write vector cache: %w", err)
	}
	return os.Rename(tmp, c.path)
}

func (c *fileVectorCache) read() []models.CachedVector {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return nil
	}
	var f vectorFile
	if err := json.Unmarshal(raw, &f); err != nil || f.Items == nil {
		return nil
	}
	return f.Items
}
