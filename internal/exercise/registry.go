package exercise

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/felixgeelhaar/pencil/internal/domain"
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 128

// Registry provides access to exercises and packs. Pack manifests are
// loaded eagerly; exercises are parsed on first use and kept in a bounded
// cache.
type Registry struct {
	loader    *Loader
	mu        sync.RWMutex
	packs     map[string]*domain.ExercisePack
	exercises *lru.Cache[string, *domain.Exercise]
}

// NewRegistry creates a new exercise registry
func NewRegistry(loader *Loader, cacheSize int) (*Registry, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, *domain.Exercise](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create exercise cache: %w", err)
	}
	return &Registry{
		loader:    loader,
		packs:     make(map[string]*domain.ExercisePack),
		exercises: cache,
	}, nil
}

// Load loads all pack manifests into memory
func (r *Registry) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	packs, err := r.loader.LoadAllPacks()
	if err != nil {
		return fmt.Errorf("load packs: %w", err)
	}

	for _, pack := range packs {
		r.packs[pack.ID] = pack
	}

	return nil
}

// GetPack returns a pack by ID
func (r *Registry) GetPack(id string) (*domain.ExercisePack, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pack, ok := r.packs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrExercisePackNotFound, id)
	}
	return pack, nil
}

// GetExercise returns an exercise by its full ID (pack/category/name)
func (r *Registry) GetExercise(id string) (*domain.Exercise, error) {
	if ex, ok := r.exercises.Get(id); ok {
		return ex, nil
	}

	packID, slug, ok := strings.Cut(id, "/")
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrExerciseNotFound, id)
	}

	ex, err := r.loader.LoadExercise(packID, slug)
	if err != nil {
		return nil, err
	}
	r.exercises.Add(id, ex)
	return ex, nil
}

// ListPacks returns all packs sorted by ID
func (r *Registry) ListPacks() []*domain.ExercisePack {
	r.mu.RLock()
	defer r.mu.RUnlock()

	packs := make([]*domain.ExercisePack, 0, len(r.packs))
	for _, pack := range r.packs {
		packs = append(packs, pack)
	}
	sort.Slice(packs, func(i, j int) bool { return packs[i].ID < packs[j].ID })
	return packs
}

// ListPackExercises returns all exercises for a pack in pack order
func (r *Registry) ListPackExercises(packID string) ([]*domain.Exercise, error) {
	pack, err := r.GetPack(packID)
	if err != nil {
		return nil, err
	}

	exercises := make([]*domain.Exercise, 0, len(pack.ExerciseIDs))
	for _, exID := range pack.ExerciseIDs {
		ex, err := r.GetExercise(exID)
		if err != nil {
			return nil, fmt.Errorf("load exercise %s: %w", exID, err)
		}
		exercises = append(exercises, ex)
	}
	return exercises, nil
}

// Resolve returns the exercises to play for id: every exercise of a pack
// when id names a pack, else the single exercise.
func (r *Registry) Resolve(id string) ([]*domain.Exercise, error) {
	if _, err := r.GetPack(id); err == nil {
		return r.ListPackExercises(id)
	}
	ex, err := r.GetExercise(id)
	if err != nil {
		return nil, err
	}
	return []*domain.Exercise{ex}, nil
}

// GetNextExercise returns the exercise following id in its pack, or nil
// when id is the last one.
func (r *Registry) GetNextExercise(id string) (*domain.Exercise, error) {
	packID, _, _ := strings.Cut(id, "/")
	pack, err := r.GetPack(packID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not in any pack", domain.ErrExerciseNotFound, id)
	}

	for i, exID := range pack.ExerciseIDs {
		if exID != id {
			continue
		}
		if i+1 == len(pack.ExerciseIDs) {
			return nil, nil
		}
		return r.GetExercise(pack.ExerciseIDs[i+1])
	}
	return nil, fmt.Errorf("%w: %s not in pack %s", domain.ErrExerciseNotFound, id, packID)
}

// Stats returns statistics about loaded packs
func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := RegistryStats{
		PackCount:      len(r.packs),
		CachedExercise: r.exercises.Len(),
	}
	for _, p := range r.packs {
		stats.ExerciseCount += len(p.ExerciseIDs)
	}
	return stats
}

// RegistryStats holds statistics about the registry
type RegistryStats struct {
	PackCount      int
	ExerciseCount  int
	CachedExercise int
}
