package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound         = errors.New("artifact not found")
	ErrChecksumMismatch = errors.New("artifact checksum mismatch")
)

type CacheEntry struct {
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
	Checksum  string          `json:"checksum"`
}

type ArtifactStore[T any] interface {
	Path() string
	Exists() bool
	Load() (T, time.Time, error)
	Save(data T) error
}

// FileCache keeps one JSON artifact at a fixed path. Writes go through a temp file and a
// rename so readers never observe a partial artifact.
type FileCache[T any] struct {
	path string
}

func NewFileCache[T any](path string) *FileCache[T] {
	return &FileCache[T]{path: path}
}

func (fc *FileCache[T]) Path() string {
	return fc.path
}

func (fc *FileCache[T]) Exists() bool {
	_, err := os.Stat(fc.path)
	return err == nil
}

func (fc *FileCache[T]) Load() (T, time.Time, error) {
	var zero T
	data, err := os.ReadFile(fc.path)
	if errors.Is(err, os.ErrNotExist) {
		return zero, time.Time{}, fmt.Errorf("%w at %s", ErrNotFound, fc.path)
	}
	if err != nil {
		return zero, time.Time{}, fmt.Errorf("failed to read artifact %s: %w", fc.path, err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return zero, time.Time{}, fmt.Errorf("failed to decode artifact %s: %w", fc.path, err)
	}
	if entry.Checksum != checksum(entry.Data) {
		return zero, time.Time{}, fmt.Errorf("%w: %s", ErrChecksumMismatch, fc.path)
	}

	var value T
	if err := json.Unmarshal(entry.Data, &value); err != nil {
		return zero, time.Time{}, fmt.Errorf("failed to decode artifact data %s: %w", fc.path, err)
	}
	return value, entry.CreatedAt, nil
}

func (fc *FileCache[T]) Save(data T) error {
	if err := os.MkdirAll(filepath.Dir(fc.path), 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %v", err)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %v", err)
	}
	entry := CacheEntry{
		Data:      raw,
		CreatedAt: time.Now(),
		Checksum:  checksum(raw),
	}
	jsonData, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact entry: %v", err)
	}

	tmpFile := filepath.Join(filepath.Dir(fc.path), "."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmpFile, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write temp artifact file: %v", err)
	}
	if err := os.Rename(tmpFile, fc.path); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename temp artifact file: %v", err)
	}
	return nil
}

func checksum(data []byte) string {
	hash := md5.Sum(data)
	return hex.EncodeToString(hash[:])
}
