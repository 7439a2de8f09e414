// internal/dispatch/dispatcher.go
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"changelog-relay/internal/generator"
	"changelog-relay/internal/model"
	"changelog-relay/internal/store"
)

// Event type and reason constants used by the decision tree.
const (
	eventPush       = "push"
	eventRepository = "repository"

	ReasonUnsupportedEvent = "unsupported-event"
	ReasonNoRelevantChange = "no-relevant-change"
	ReasonEnrollmentSkip   = "enrollment-skipped"
)

// OutcomeKind is the terminal state of one webhook delivery.
type OutcomeKind string

const (
	OutcomeIgnored         OutcomeKind = "ignored"
	OutcomeNotMonitored    OutcomeKind = "not-monitored"
	OutcomeAutoEnrolled    OutcomeKind = "auto-enrolled"
	OutcomeProcessed       OutcomeKind = "processed"
	OutcomeProcessedNoDiff OutcomeKind = "processed-no-diff"
	OutcomeError           OutcomeKind = "error"
)

// Outcome is the result of dispatching one inbound event.
type Outcome struct {
	Kind      OutcomeKind
	Reason    string // set for OutcomeIgnored
	ContentID string // set for OutcomeProcessed
	Step      string // set for OutcomeError
	Err       error  // set for OutcomeError
}

func ignored(reason string) Outcome { return Outcome{Kind: OutcomeIgnored, Reason: reason} }

func failed(step string, err error) Outcome {
	return Outcome{Kind: OutcomeError, Step: step, Err: err}
}

// DiffFetcher retrieves the unified diff of one file in one commit.
type DiffFetcher interface {
	CommitFilePatch(ctx context.Context, owner, repo, sha, filename string) (string, error)
}

// Notifier is the chat transport the dispatcher pushes results to.
type Notifier interface {
	Send(ctx context.Context, text string)
	SendGeneration(ctx context.Context, content *model.ContentGeneration)
}

// Dispatcher classifies inbound provider events and drives the
// diff -> generate -> notify/persist pipeline to a terminal outcome.
type Dispatcher struct {
	configs     store.ConfigStore
	contents    store.ContentStore
	diffs       DiffFetcher
	generator   generator.ContentGenerator
	notifier    Notifier
	watchedFile string
	logger      *slog.Logger
}

// NewDispatcher wires a Dispatcher. watchedFile is the single filename whose
// modification triggers content generation.
func NewDispatcher(
	configs store.ConfigStore,
	contents store.ContentStore,
	diffs DiffFetcher,
	gen generator.ContentGenerator,
	notifier Notifier,
	watchedFile string,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		configs:     configs,
		contents:    contents,
		diffs:       diffs,
		generator:   gen,
		notifier:    notifier,
		watchedFile: watchedFile,
		logger:      logger,
	}
}

// Dispatch runs the decision tree for one delivery and logs the terminal
// outcome with the elapsed processing time.
func (d *Dispatcher) Dispatch(ctx context.Context, eventType string, payload *model.WebhookPayload) Outcome {
	start := time.Now()
	outcome := d.dispatch(ctx, eventType, payload)
	elapsed := time.Since(start)

	logger := d.logger.With(
		"event", eventType,
		"repository", payload.Repository.FullName,
		"outcome", string(outcome.Kind),
		"duration", elapsed.String(),
	)
	switch outcome.Kind {
	case OutcomeError:
		logger.Error("Webhook processing failed", "step", outcome.Step, "error", outcome.Err)
	case OutcomeIgnored:
		logger.Info("Webhook ignored", "reason", outcome.Reason)
	case OutcomeProcessed:
		logger.Info("Webhook processed", "content_id", outcome.ContentID)
	default:
		logger.Info("Webhook handled")
	}
	return outcome
}

// dispatch evaluates the decision tree in its fixed order. The numbered steps
// must not be reordered.
func (d *Dispatcher) dispatch(ctx context.Context, eventType string, payload *model.WebhookPayload) Outcome {
	// Step 1: repository-created events go through the enrollment check only.
	if eventType == eventRepository && payload.Action == "created" {
		return d.handleNewRepository(ctx, payload.Repository)
	}

	// Step 2: everything except push is out of scope.
	if eventType != eventPush {
		return ignored(ReasonUnsupportedEvent)
	}

	fullName := payload.Repository.FullName
	owner := payload.Repository.Owner.Login

	// Step 3: resolve the repository config, auto-adding it when the owning
	// organization is monitored.
	repoCfg, err := d.configs.GetRepository(ctx, fullName)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return failed("resolve-repository-config", err)
	}
	if repoCfg == nil {
		orgCfg, err := d.configs.GetOrganization(ctx, owner)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return failed("resolve-organization-config", err)
		}
		if orgCfg == nil || !orgCfg.Enabled {
			return Outcome{Kind: OutcomeNotMonitored}
		}

		newCfg := &model.RepositoryConfig{
			Owner:   owner,
			Repo:    payload.Repository.Name,
			Enabled: true,
			FromOrg: true,
		}
		if err := d.configs.PutRepository(ctx, newCfg); err != nil {
			return failed("enroll-repository", err)
		}
		d.notifier.Send(ctx, fmt.Sprintf(
			"🆕 New repository detected and added to monitoring: %s", fullName))
	}

	// Step 4: re-resolve to cover the just-created case; the enabled flag
	// gates all processing.
	repoCfg, err = d.configs.GetRepository(ctx, fullName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Outcome{Kind: OutcomeNotMonitored}
		}
		return failed("resolve-repository-config", err)
	}
	if !repoCfg.Enabled {
		return Outcome{Kind: OutcomeNotMonitored}
	}

	// Step 5: at least one commit must touch the watched file.
	commits := payload.CommitList()
	touched := false
	for i := range commits {
		if commits[i].Touches(d.watchedFile) {
			touched = true
			break
		}
	}
	if !touched {
		return ignored(ReasonNoRelevantChange)
	}

	// Step 6: the last commit in the list is the reference commit. List order
	// as provided by the transport is authoritative.
	ref := commits[len(commits)-1]

	// Step 7: fetch the diff. A fetch failure is soft and equivalent to "no
	// relevant change".
	patch, err := d.diffs.CommitFilePatch(ctx, repoCfg.Owner, repoCfg.Repo, ref.ID, d.watchedFile)
	if err != nil {
		d.logger.Warn("Diff fetch failed, treating as no diff",
			"repository", fullName, "sha", ref.ID, "error", err)
		patch = ""
	}
	if patch == "" {
		return Outcome{Kind: OutcomeProcessedNoDiff}
	}

	// Step 8: generate content. The generator never fails; it substitutes
	// fallback content on model errors.
	content := d.generator.Generate(ctx, generator.Request{
		Diff:          patch,
		Repository:    fullName,
		CommitSHA:     ref.ID,
		CommitMessage: ref.Message,
	})

	// Steps 9+10: notify and persist independently. A failure of one never
	// suppresses the other.
	var contentID string
	var g errgroup.Group
	g.Go(func() error {
		d.notifier.SendGeneration(ctx, content)
		return nil
	})
	g.Go(func() error {
		id, err := d.persistContent(ctx, fullName, ref, patch, content)
		if err != nil {
			d.logger.Error("Failed to persist generated content",
				"repository", fullName, "sha", ref.ID, "error", err)
			return err
		}
		contentID = id
		return nil
	})
	if err := g.Wait(); err != nil {
		return failed("persist-content", err)
	}

	// Step 11: record the reference commit on the repository config.
	repoCfg.LastCommitSHA = ref.ID
	if err := d.configs.PutRepository(ctx, repoCfg); err != nil {
		return failed("update-repository-config", err)
	}

	// Step 12: done.
	return Outcome{Kind: OutcomeProcessed, ContentID: contentID}
}

// persistContent writes one GeneratedContent record, reusing an existing
// record for the same (repository, commit) pair instead of inserting a
// duplicate. The store itself enforces no uniqueness.
func (d *Dispatcher) persistContent(ctx context.Context, fullName string, ref model.WebhookCommit, patch string, content *model.ContentGeneration) (string, error) {
	existing, err := d.contents.GetByRepositoryAndCommit(ctx, fullName, ref.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", err
	}
	if existing != nil {
		d.logger.Info("Content already exists for commit, skipping duplicate",
			"repository", fullName, "sha", ref.ID, "content_id", existing.ID)
		return existing.ID, nil
	}

	created, err := d.contents.Create(ctx, &model.GeneratedContent{
		RepositoryFullName:  fullName,
		CommitSHA:           ref.ID,
		CommitMessage:       ref.Message,
		BlogTitle:           content.BlogPost.Title,
		BlogDescription:     content.BlogPost.Description,
		BlogBody:            content.BlogPost.Body,
		BlogTags:            content.BlogPost.Tags,
		TwitterContent:      content.SocialMedia.Twitter,
		LinkedInContent:     content.SocialMedia.LinkedIn,
		FacebookContent:     content.SocialMedia.Facebook,
		TelegramSummary:     content.TelegramSummary,
		SourceDiff:          patch,
		GenerationModel:     d.generator.Model(),
		GenerationTimestamp: time.Now().UTC(),
	})
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

// handleNewRepository runs the enrollment check for a repository-created
// event: skip silently unless the owning organization is monitored and the
// repository passes the exclusion and visibility rules.
func (d *Dispatcher) handleNewRepository(ctx context.Context, repo model.WebhookRepository) Outcome {
	orgCfg, err := d.configs.GetOrganization(ctx, repo.Owner.Login)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ignored(ReasonEnrollmentSkip)
		}
		return failed("resolve-organization-config", err)
	}

	if !orgCfg.ShouldEnroll(repo.Name, repo.Private) {
		return ignored(ReasonEnrollmentSkip)
	}

	cfg := &model.RepositoryConfig{
		Owner:   repo.Owner.Login,
		Repo:    repo.Name,
		Enabled: true,
		FromOrg: true,
	}
	if err := d.configs.PutRepository(ctx, cfg); err != nil {
		return failed("enroll-repository", err)
	}
	return Outcome{Kind: OutcomeAutoEnrolled}
}
