package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"
)

// favoritesDocument is the persisted shape under the fixed storage key.
type favoritesDocument struct {
	Key string  `json:"key"`
	IDs []int64 `json:"ids"`
}

const favoritesStorageKey = "noclense_favorites"

// FavoritesRepository persists the favorited entry id set. The file is loaded
// once at startup and rewritten on every change.
type FavoritesRepository struct {
	path   string
	logger *zap.Logger
}

func NewFavoritesRepository(path string, logger *zap.Logger) *FavoritesRepository {
	return &FavoritesRepository{path: path, logger: logger}
}

// Load returns the persisted set. A missing file is a normal first run; any
// other failure is logged and an empty set returned, never an error.
func (r *FavoritesRepository) Load() map[int64]bool {
	favorites := make(map[int64]bool)
	data, err := os.ReadFile(r.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			r.logger.Warn("Failed to load persisted favorites", zap.Error(err))
		}
		return favorites
	}
	var doc favoritesDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		r.logger.Warn("Failed to decode persisted favorites", zap.Error(err))
		return favorites
	}
	for _, id := range doc.IDs {
		favorites[id] = true
	}
	return favorites
}

func (r *FavoritesRepository) Save(favorites map[int64]bool) error {
	ids := make([]int64, 0, len(favorites))
	for id, on := range favorites {
		if on {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	data, err := json.Marshal(favoritesDocument{Key: favoritesStorageKey, IDs: ids})
	if err != nil {
		return fmt.Errorf("failed to encode favorites: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write favorites to %s: %w", r.path, err)
	}
	return nil
}

// Clear removes the persisted set entirely.
func (r *FavoritesRepository) Clear() error {
	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear favorites at %s: %w", r.path, err)
	}
	return nil
}
