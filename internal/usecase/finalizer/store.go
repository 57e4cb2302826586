package finalizer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/futig/formchat-backend/internal/entity"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const maxCleanupInterval = 10 * time.Minute

// Store indexes finalized artifacts by handle. Expired or deleted entries
// take their file with them.
type Store struct {
	cache  *cache.Cache
	logger *zap.Logger
}

func NewStore(ttl time.Duration, logger *zap.Logger) *Store {
	c := cache.New(ttl, min(ttl, maxCleanupInterval))
	c.OnEvicted(func(handle string, v any) {
		artifact, ok := v.(*entity.Artifact)
		if !ok {
			return
		}
		if err := os.Remove(artifact.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("failed to remove evicted artifact", zap.String("handle", handle), zap.Error(err))
			return
		}
		logger.Debug("artifact evicted", zap.String("handle", handle))
	})

	return &Store{
		cache:  c,
		logger: logger,
	}
}

func (s *Store) Put(artifact *entity.Artifact) {
	s.cache.Set(artifact.Handle, artifact, cache.DefaultExpiration)
}

// Open returns the artifact registered under handle together with its bytes.
// Handles are bare file names, anything path-like is rejected.
func (s *Store) Open(handle string) (*entity.Artifact, []byte, error) {
	if handle == "" || handle == "." || handle == ".." || filepath.Base(handle) != handle {
		return nil, nil, entity.ErrArtifactNotFound
	}

	x, found := s.cache.Get(handle)
	if !found {
		return nil, nil, entity.ErrArtifactNotFound
	}
	artifact := x.(*entity.Artifact)

	data, err := os.ReadFile(artifact.Path)
	if errors.Is(err, fs.ErrNotExist) {
		s.cache.Delete(handle)
		return nil, nil, entity.ErrArtifactNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read artifact: %w", err)
	}

	return artifact, data, nil
}
