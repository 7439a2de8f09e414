// internal/github/client.go
package github

import (
	"context"
	"log/slog"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"changelog-relay/internal/model"
)

// Client is a wrapper around the go-github client.
type Client struct {
	gh     *github.Client
	logger *slog.Logger
}

// NewClient creates and configures a new Client instance.
// The provided token is used to create an authenticated http.Client.
func NewClient(token string, logger *slog.Logger) *Client {
	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)

	return &Client{
		gh:     github.NewClient(tc),
		logger: logger,
	}
}

// CommitFilePatch fetches the single-commit detail and returns the patch text
// for the one file matching filename. It returns an empty string when the
// commit touched no such file or the file carries no patch.
func (c *Client) CommitFilePatch(ctx context.Context, owner, repo, sha, filename string) (string, error) {
	c.logger.Debug("Fetching commit detail", "owner", owner, "repo", repo, "sha", sha)

	commit, _, err := c.gh.Repositories.GetCommit(ctx, owner, repo, sha, nil)
	if err != nil {
		return "", err
	}

	for _, file := range commit.Files {
		if file.GetFilename() == filename {
			return file.GetPatch(), nil
		}
	}
	return "", nil
}

// ListOrganizationRepositories fetches all repositories under an organization
// and translates them to the internal webhook-repository shape. It handles
// API pagination transparently.
func (c *Client) ListOrganizationRepositories(ctx context.Context, org string) ([]model.WebhookRepository, error) {
	var all []model.WebhookRepository

	opts := &github.RepositoryListByOrgOptions{
		Sort: "updated",
		ListOptions: github.ListOptions{
			PerPage: 100, // Max per page
		},
	}

	for {
		c.logger.Debug("Fetching organization repositories page", "org", org, "page", opts.Page)

		repos, resp, err := c.gh.Repositories.ListByOrg(ctx, org, opts)
		if err != nil {
			return nil, err
		}

		for _, repo := range repos {
			all = append(all, toInternalRepository(repo))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// toInternalRepository translates a github.Repository object to the internal
// repository shape shared with webhook payloads.
func toInternalRepository(r *github.Repository) model.WebhookRepository {
	repo := model.WebhookRepository{
		ID:       r.GetID(),
		Name:     r.GetName(),
		FullName: r.GetFullName(),
		Private:  r.GetPrivate(),
	}
	repo.Owner.Login = r.GetOwner().GetLogin()
	return repo
}
