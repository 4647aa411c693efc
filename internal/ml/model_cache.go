package ml

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wetland-guardian/cienaga-classifier/internal/cache"
	"github.com/wetland-guardian/cienaga-classifier/internal/forest"
	"github.com/wetland-guardian/cienaga-classifier/internal/log"
	"go.uber.org/zap"
)

var ErrModelNotFound = errors.New("model not found")

// ModelCache lazily loads the persisted ensemble once and serves it to every caller.
//
// The cached model is not tied to the artifact: a retrain that overwrites the file is not seen
// until Invalidate or Reload is called.
type ModelCache struct {
	store cache.ArtifactStore[forest.Forest]

	mu       sync.RWMutex
	model    *forest.Forest
	loadedAt time.Time
}

func NewModelCache(store cache.ArtifactStore[forest.Forest]) *ModelCache {
	return &ModelCache{store: store}
}

// NewFileModelCache caches the model persisted at path.
func NewFileModelCache(path string) *ModelCache {
	return NewModelCache(cache.NewFileCache[forest.Forest](path))
}

func (c *ModelCache) Path() string {
	return c.store.Path()
}

// Get returns the cached model, loading it on first use. A failed load is not cached.
func (c *ModelCache) Get() (*forest.Forest, error) {
	c.mu.RLock()
	m := c.model
	c.mu.RUnlock()
	if m != nil {
		return m, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.model != nil {
		return c.model, nil
	}
	return c.loadLocked()
}

// Invalidate drops the cached model; the next Get reads the artifact again.
func (c *ModelCache) Invalidate() {
	c.mu.Lock()
	c.model = nil
	c.loadedAt = time.Time{}
	c.mu.Unlock()
}

// Reload reads the artifact now and replaces the cached model. On failure the previous model
// stays cached.
func (c *ModelCache) Reload() (*forest.Forest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked()
}

func (c *ModelCache) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

func (c *ModelCache) loadLocked() (*forest.Forest, error) {
	log.Info("loading model", zap.String("path", c.store.Path()))
	f, createdAt, err := c.store.Load()
	if errors.Is(err, cache.ErrNotFound) {
		return nil, fmt.Errorf("%w at %s", ErrModelNotFound, c.store.Path())
	}
	if err != nil {
		return nil, err
	}
	c.model = &f
	c.loadedAt = time.Now()
	log.Info("model loaded",
		zap.String("path", c.store.Path()),
		zap.Int("trees", len(f.Trees)),
		zap.Time("trainedAt", createdAt))
	return c.model, nil
}
