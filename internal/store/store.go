// internal/store/store.go
package store

import (
	"context"
	"errors"

	"changelog-relay/internal/model"
)

// ErrNotFound is returned when a requested record does not exist. Postgres
// implementations map pgx.ErrNoRows to it so callers never depend on the
// backing driver.
var ErrNotFound = errors.New("store: not found")

// ConfigStore is the key-value persistence for repository and organization
// monitoring configuration. Repositories are keyed by "owner/repo",
// organizations by name. Put semantics are create-or-overwrite.
type ConfigStore interface {
	GetRepository(ctx context.Context, fullName string) (*model.RepositoryConfig, error)
	PutRepository(ctx context.Context, cfg *model.RepositoryConfig) error
	DeleteRepository(ctx context.Context, fullName string) error
	ListRepositories(ctx context.Context) ([]model.RepositoryConfig, error)

	GetOrganization(ctx context.Context, name string) (*model.OrganizationConfig, error)
	PutOrganization(ctx context.Context, cfg *model.OrganizationConfig) error
	DeleteOrganization(ctx context.Context, name string) error
	ListOrganizations(ctx context.Context) ([]model.OrganizationConfig, error)
}

// ContentFilter narrows a content listing. A zero Limit means no limit.
type ContentFilter struct {
	Repository string
	Limit      int
	Offset     int
}

// ContentStore persists generated content records. The store enforces no
// uniqueness on (repository, commit); callers that require exactly one record
// per commit must check via GetByRepositoryAndCommit first.
type ContentStore interface {
	Create(ctx context.Context, c *model.GeneratedContent) (*model.GeneratedContent, error)
	GetByID(ctx context.Context, id string) (*model.GeneratedContent, error)
	GetByRepositoryAndCommit(ctx context.Context, repository, commitSHA string) (*model.GeneratedContent, error)
	List(ctx context.Context, f ContentFilter) ([]model.GeneratedContent, error)
	GetRecentByRepository(ctx context.Context, repository string, limit int) ([]model.GeneratedContent, error)
	Update(ctx context.Context, c *model.GeneratedContent) (*model.GeneratedContent, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (model.ContentStats, error)
}
