package server

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/oklog/ulid/v2"

	"github.com/kiesman99/tilex/internal/api"
	"github.com/kiesman99/tilex/internal/extractor"
)

// Entry is a stored extraction result
type Entry struct {
	ID        string
	Result    *extractor.Result
	CreatedAt time.Time
}

// Extraction returns the API representation of the entry
func (e *Entry) Extraction() api.Extraction {
	return api.Extraction{
		Id:         e.ID,
		NumTiles:   len(e.Result.Tiles),
		NumCols:    e.Result.Grid.Cols,
		NumRows:    e.Result.Grid.Rows,
		TileWidth:  e.Result.TileWidth,
		TileHeight: e.Result.TileHeight,
		ElapsedMs:  e.Result.ElapsedMs(),
		CreatedAt:  e.CreatedAt,
		Map:        e.Result.Map,
	}
}

// Store keeps the most recent extraction results in memory.
// The least recently used entry is evicted once the store is full.
type Store struct {
	cache *lru.Cache[string, *Entry]
}

// NewStore creates a store holding up to size results
func NewStore(size int) (*Store, error) {
	cache, err := lru.New[string, *Entry](size)
	if err != nil {
		return nil, err
	}
	return &Store{cache: cache}, nil
}

// Add stores res under a new id
func (s *Store) Add(res *extractor.Result) *Entry {
	entry := &Entry{
		ID:        ulid.Make().String(),
		Result:    res,
		CreatedAt: time.Now().UTC(),
	}
	s.cache.Add(entry.ID, entry)
	return entry
}

// Get returns the entry stored under id
func (s *Store) Get(id string) (*Entry, bool) {
	return s.cache.Get(id)
}

// Len returns the number of stored entries
func (s *Store) Len() int {
	return s.cache.Len()
}
