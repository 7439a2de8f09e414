// internal/store/memory.go
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"changelog-relay/internal/model"
)

// MemoryStore is an in-memory implementation of ConfigStore and ContentStore
// for local development and tests. Safe for concurrent use.
type MemoryStore struct {
	mu            sync.RWMutex
	repositories  map[string]model.RepositoryConfig
	organizations map[string]model.OrganizationConfig
	content       map[string]model.GeneratedContent
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		repositories:  make(map[string]model.RepositoryConfig),
		organizations: make(map[string]model.OrganizationConfig),
		content:       make(map[string]model.GeneratedContent),
	}
}

func (s *MemoryStore) GetRepository(_ context.Context, fullName string) (*model.RepositoryConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.repositories[fullName]
	if !ok {
		return nil, ErrNotFound
	}
	return &cfg, nil
}

func (s *MemoryStore) PutRepository(_ context.Context, cfg *model.RepositoryConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repositories[cfg.FullName()] = *cfg
	return nil
}

func (s *MemoryStore) DeleteRepository(_ context.Context, fullName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.repositories, fullName)
	return nil
}

func (s *MemoryStore) ListRepositories(_ context.Context) ([]model.RepositoryConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.RepositoryConfig, 0, len(s.repositories))
	for _, cfg := range s.repositories {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName() < out[j].FullName() })
	return out, nil
}

func (s *MemoryStore) GetOrganization(_ context.Context, name string) (*model.OrganizationConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.organizations[name]
	if !ok {
		return nil, ErrNotFound
	}
	return &cfg, nil
}

func (s *MemoryStore) PutOrganization(_ context.Context, cfg *model.OrganizationConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.organizations[cfg.Name] = *cfg
	return nil
}

func (s *MemoryStore) DeleteOrganization(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.organizations, name)
	return nil
}

func (s *MemoryStore) ListOrganizations(_ context.Context) ([]model.OrganizationConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.OrganizationConfig, 0, len(s.organizations))
	for _, cfg := range s.organizations {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) Create(_ context.Context, c *model.GeneratedContent) (*model.GeneratedContent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := *c
	created.ID = uuid.NewString()
	now := time.Now().UTC()
	if created.GenerationTimestamp.IsZero() {
		created.GenerationTimestamp = now
	}
	created.CreatedAt = now
	created.UpdatedAt = now
	s.content[created.ID] = created
	return &created, nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*model.GeneratedContent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.content[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *MemoryStore) GetByRepositoryAndCommit(_ context.Context, repository, commitSHA string) (*model.GeneratedContent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *model.GeneratedContent
	for id := range s.content {
		c := s.content[id]
		if c.RepositoryFullName != repository || c.CommitSHA != commitSHA {
			continue
		}
		if best == nil || c.GenerationTimestamp.After(best.GenerationTimestamp) {
			best = &c
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	out := *best
	return &out, nil
}

func (s *MemoryStore) List(_ context.Context, f ContentFilter) ([]model.GeneratedContent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.GeneratedContent
	for _, c := range s.content {
		if f.Repository != "" && c.RepositoryFullName != f.Repository {
			continue
		}
		out = append(out, c)
	}
	sortNewestFirst(out)

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) GetRecentByRepository(ctx context.Context, repository string, limit int) ([]model.GeneratedContent, error) {
	if limit <= 0 {
		limit = 5
	}
	return s.List(ctx, ContentFilter{Repository: repository, Limit: limit})
}

func (s *MemoryStore) Update(_ context.Context, c *model.GeneratedContent) (*model.GeneratedContent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.content[c.ID]
	if !ok {
		return nil, ErrNotFound
	}
	existing.BlogTitle = c.BlogTitle
	existing.BlogDescription = c.BlogDescription
	existing.BlogBody = c.BlogBody
	existing.BlogTags = c.BlogTags
	existing.TwitterContent = c.TwitterContent
	existing.LinkedInContent = c.LinkedInContent
	existing.FacebookContent = c.FacebookContent
	existing.TelegramSummary = c.TelegramSummary
	existing.UpdatedAt = time.Now().UTC()
	s.content[existing.ID] = existing
	return &existing, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.content[id]; !ok {
		return ErrNotFound
	}
	delete(s.content, id)
	return nil
}

func (s *MemoryStore) Stats(_ context.Context) (model.ContentStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	repos := make(map[string]struct{})
	cutoff := time.Now().UTC().AddDate(0, 0, -7)
	var stats model.ContentStats
	for _, c := range s.content {
		stats.Total++
		repos[c.RepositoryFullName] = struct{}{}
		if !c.GenerationTimestamp.Before(cutoff) {
			stats.Recent++
		}
	}
	stats.Repositories = int64(len(repos))
	return stats, nil
}

func sortNewestFirst(content []model.GeneratedContent) {
	sort.SliceStable(content, func(i, j int) bool {
		return content[i].GenerationTimestamp.After(content[j].GenerationTimestamp)
	})
}
