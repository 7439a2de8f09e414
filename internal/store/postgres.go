// internal/store/postgres.go
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"changelog-relay/internal/model"
)

// PostgresStore implements ConfigStore and ContentStore on a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) GetRepository(ctx context.Context, fullName string) (*model.RepositoryConfig, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT owner, repo, enabled, COALESCE(last_commit_sha, ''), from_org
		FROM monitored_repositories
		WHERE full_name = $1`, fullName)

	var cfg model.RepositoryConfig
	err := row.Scan(&cfg.Owner, &cfg.Repo, &cfg.Enabled, &cfg.LastCommitSHA, &cfg.FromOrg)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get repository config: %w", err)
	}
	return &cfg, nil
}

func (s *PostgresStore) PutRepository(ctx context.Context, cfg *model.RepositoryConfig) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO monitored_repositories (full_name, owner, repo, enabled, last_commit_sha, from_org, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, now())
		ON CONFLICT (full_name) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			last_commit_sha = EXCLUDED.last_commit_sha,
			from_org = EXCLUDED.from_org,
			updated_at = now()`,
		cfg.FullName(), cfg.Owner, cfg.Repo, cfg.Enabled, cfg.LastCommitSHA, cfg.FromOrg)
	if err != nil {
		return fmt.Errorf("put repository config: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteRepository(ctx context.Context, fullName string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM monitored_repositories WHERE full_name = $1`, fullName)
	if err != nil {
		return fmt.Errorf("delete repository config: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRepositories(ctx context.Context) ([]model.RepositoryConfig, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT owner, repo, enabled, COALESCE(last_commit_sha, ''), from_org
		FROM monitored_repositories
		ORDER BY full_name`)
	if err != nil {
		return nil, fmt.Errorf("list repository configs: %w", err)
	}
	defer rows.Close()

	var configs []model.RepositoryConfig
	for rows.Next() {
		var cfg model.RepositoryConfig
		if err := rows.Scan(&cfg.Owner, &cfg.Repo, &cfg.Enabled, &cfg.LastCommitSHA, &cfg.FromOrg); err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

func (s *PostgresStore) GetOrganization(ctx context.Context, name string) (*model.OrganizationConfig, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT name, enabled, include_private, exclude_repos, last_sync_time
		FROM monitored_organizations
		WHERE name = $1`, name)

	var cfg model.OrganizationConfig
	err := row.Scan(&cfg.Name, &cfg.Enabled, &cfg.IncludePrivate, &cfg.ExcludeRepos, &cfg.LastSyncTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get organization config: %w", err)
	}
	return &cfg, nil
}

func (s *PostgresStore) PutOrganization(ctx context.Context, cfg *model.OrganizationConfig) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO monitored_organizations (name, enabled, include_private, exclude_repos, last_sync_time, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (name) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			include_private = EXCLUDED.include_private,
			exclude_repos = EXCLUDED.exclude_repos,
			last_sync_time = EXCLUDED.last_sync_time,
			updated_at = now()`,
		cfg.Name, cfg.Enabled, cfg.IncludePrivate, cfg.ExcludeRepos, cfg.LastSyncTime)
	if err != nil {
		return fmt.Errorf("put organization config: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteOrganization(ctx context.Context, name string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM monitored_organizations WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete organization config: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListOrganizations(ctx context.Context) ([]model.OrganizationConfig, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT name, enabled, include_private, exclude_repos, last_sync_time
		FROM monitored_organizations
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list organization configs: %w", err)
	}
	defer rows.Close()

	var configs []model.OrganizationConfig
	for rows.Next() {
		var cfg model.OrganizationConfig
		if err := rows.Scan(&cfg.Name, &cfg.Enabled, &cfg.IncludePrivate, &cfg.ExcludeRepos, &cfg.LastSyncTime); err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

const contentColumns = `
	id, repository_full_name, COALESCE(commit_sha, ''), COALESCE(commit_message, ''),
	blog_title, blog_description, blog_body, blog_tags,
	twitter_content, linkedin_content, facebook_content, telegram_summary,
	COALESCE(source_diff, ''), COALESCE(generation_model, ''),
	generation_timestamp, created_at, updated_at`

func scanContent(row pgx.Row) (*model.GeneratedContent, error) {
	var c model.GeneratedContent
	err := row.Scan(
		&c.ID, &c.RepositoryFullName, &c.CommitSHA, &c.CommitMessage,
		&c.BlogTitle, &c.BlogDescription, &c.BlogBody, &c.BlogTags,
		&c.TwitterContent, &c.LinkedInContent, &c.FacebookContent, &c.TelegramSummary,
		&c.SourceDiff, &c.GenerationModel,
		&c.GenerationTimestamp, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) Create(ctx context.Context, c *model.GeneratedContent) (*model.GeneratedContent, error) {
	ts := c.GenerationTimestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO generated_content (
			repository_full_name, commit_sha, commit_message,
			blog_title, blog_description, blog_body, blog_tags,
			twitter_content, linkedin_content, facebook_content, telegram_summary,
			source_diff, generation_model, generation_timestamp
		) VALUES (
			$1, NULLIF($2, ''), NULLIF($3, ''),
			$4, $5, $6, $7,
			$8, $9, $10, $11,
			NULLIF($12, ''), NULLIF($13, ''), $14
		)
		RETURNING `+contentColumns,
		c.RepositoryFullName, c.CommitSHA, c.CommitMessage,
		c.BlogTitle, c.BlogDescription, c.BlogBody, c.BlogTags,
		c.TwitterContent, c.LinkedInContent, c.FacebookContent, c.TelegramSummary,
		c.SourceDiff, c.GenerationModel, ts)

	created, err := scanContent(row)
	if err != nil {
		return nil, fmt.Errorf("create generated content: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*model.GeneratedContent, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+contentColumns+` FROM generated_content WHERE id = $1`, id)
	return scanContent(row)
}

func (s *PostgresStore) GetByRepositoryAndCommit(ctx context.Context, repository, commitSHA string) (*model.GeneratedContent, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+contentColumns+`
		FROM generated_content
		WHERE repository_full_name = $1 AND commit_sha = $2
		ORDER BY generation_timestamp DESC
		LIMIT 1`, repository, commitSHA)
	return scanContent(row)
}

func (s *PostgresStore) List(ctx context.Context, f ContentFilter) ([]model.GeneratedContent, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+contentColumns+`
		FROM generated_content
		WHERE ($1 = '' OR repository_full_name = $1)
		ORDER BY generation_timestamp DESC
		LIMIT $2 OFFSET $3`, f.Repository, limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("list generated content: %w", err)
	}
	defer rows.Close()
	return collectContent(rows)
}

func (s *PostgresStore) GetRecentByRepository(ctx context.Context, repository string, limit int) ([]model.GeneratedContent, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+contentColumns+`
		FROM generated_content
		WHERE repository_full_name = $1
		ORDER BY generation_timestamp DESC
		LIMIT $2`, repository, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent generated content: %w", err)
	}
	defer rows.Close()
	return collectContent(rows)
}

func (s *PostgresStore) Update(ctx context.Context, c *model.GeneratedContent) (*model.GeneratedContent, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE generated_content SET
			blog_title = $2, blog_description = $3, blog_body = $4, blog_tags = $5,
			twitter_content = $6, linkedin_content = $7, facebook_content = $8,
			telegram_summary = $9,
			updated_at = now()
		WHERE id = $1
		RETURNING `+contentColumns,
		c.ID,
		c.BlogTitle, c.BlogDescription, c.BlogBody, c.BlogTags,
		c.TwitterContent, c.LinkedInContent, c.FacebookContent,
		c.TelegramSummary)
	return scanContent(row)
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM generated_content WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete generated content: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Stats(ctx context.Context) (model.ContentStats, error) {
	var stats model.ContentStats
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(DISTINCT repository_full_name),
			COUNT(*) FILTER (WHERE generation_timestamp >= now() - interval '7 days')
		FROM generated_content`).
		Scan(&stats.Total, &stats.Repositories, &stats.Recent)
	if err != nil {
		return model.ContentStats{}, fmt.Errorf("content stats: %w", err)
	}
	return stats, nil
}

func collectContent(rows pgx.Rows) ([]model.GeneratedContent, error) {
	var out []model.GeneratedContent
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
