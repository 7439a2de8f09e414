// internal/syncer/syncer.go
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"changelog-relay/internal/model"
	"changelog-relay/internal/store"
)

const (
	// Number of organizations to sync in parallel
	concurrency = 3
)

// RepoLister fetches all repositories under an organization.
type RepoLister interface {
	ListOrganizationRepositories(ctx context.Context, org string) ([]model.WebhookRepository, error)
}

// Notifier announces sync results to the configured chat.
type Notifier interface {
	Send(ctx context.Context, text string)
}

// Syncer enrolls eligible organization repositories into monitoring. It can
// run once per organization, across all enabled organizations, or on an
// interval in the background.
type Syncer struct {
	configs  store.ConfigStore
	github   RepoLister
	notifier Notifier
	logger   *slog.Logger
	interval time.Duration
}

// NewSyncer creates a new Syncer instance. A zero interval disables the
// background loop; SyncAll and SyncOrganization still work on demand.
func NewSyncer(configs store.ConfigStore, github RepoLister, notifier Notifier, logger *slog.Logger, interval time.Duration) *Syncer {
	return &Syncer{
		configs:  configs,
		github:   github,
		notifier: notifier,
		logger:   logger,
		interval: interval,
	}
}

// Start begins the periodic synchronization loop. It blocks until ctx is
// cancelled.
func (s *Syncer) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("Organization sync loop disabled")
		return
	}

	s.logger.Info("Starting organization sync loop", "interval", s.interval.String(), "concurrency", concurrency)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.SyncAll(ctx) // Initial sync

	for {
		select {
		case <-ticker.C:
			s.SyncAll(ctx)
		case <-ctx.Done():
			s.logger.Info("Organization sync loop shutting down", "reason", ctx.Err())
			return
		}
	}
}

// SyncAll synchronizes every enabled organization concurrently. Per-org
// failures are logged, never propagated.
func (s *Syncer) SyncAll(ctx context.Context) {
	orgs, err := s.configs.ListOrganizations(ctx)
	if err != nil {
		s.logger.Error("Failed to list organizations for sync", "error", err)
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, org := range orgs {
		if !org.Enabled {
			continue
		}
		name := org.Name
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if err := s.SyncOrganization(gctx, name); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("Failed to sync organization", "org", name, "error", err)
			}
			return nil
		})
	}

	_ = g.Wait()
	s.logger.Info("Organization sync cycle finished", "organizations", len(orgs))
}

// SyncOrganization enrolls all eligible repositories of one organization that
// are not yet monitored, records the sync time and announces new enrollments.
func (s *Syncer) SyncOrganization(ctx context.Context, orgName string) error {
	logger := s.logger.With("org", orgName)
	logger.Info("Syncing organization")

	orgCfg, err := s.configs.GetOrganization(ctx, orgName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logger.Warn("Organization not configured, skipping sync")
			return nil
		}
		return err
	}
	if !orgCfg.Enabled {
		logger.Info("Organization disabled, skipping sync")
		return nil
	}

	repos, err := s.github.ListOrganizationRepositories(ctx, orgName)
	if err != nil {
		return fmt.Errorf("list repositories for %s: %w", orgName, err)
	}
	logger.Info("Fetched organization repositories", "count", len(repos))

	added := 0
	for _, repo := range repos {
		if !orgCfg.ShouldEnroll(repo.Name, repo.Private) {
			logger.Debug("Skipping ineligible repository", "repo", repo.FullName)
			continue
		}

		_, err := s.configs.GetRepository(ctx, repo.FullName)
		if err == nil {
			continue // already monitored
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		logger.Info("Enrolling repository from organization", "repo", repo.FullName)
		err = s.configs.PutRepository(ctx, &model.RepositoryConfig{
			Owner:   repo.Owner.Login,
			Repo:    repo.Name,
			Enabled: true,
			FromOrg: true,
		})
		if err != nil {
			return err
		}
		added++
	}

	now := time.Now().UTC()
	orgCfg.LastSyncTime = &now
	if err := s.configs.PutOrganization(ctx, orgCfg); err != nil {
		return err
	}

	if added > 0 {
		s.notifier.Send(ctx, fmt.Sprintf(
			"🔄 Organization sync completed for %s: %d new repositories added to monitoring",
			orgName, added))
	}
	logger.Info("Organization sync finished", "added", added)
	return nil
}
