// internal/model/models.go
package model

import "time"

// RepositoryConfig describes a single monitored repository. It is keyed by
// "owner/repo" in the config store.
type RepositoryConfig struct {
	Owner         string `json:"owner"`
	Repo          string `json:"repo"`
	Enabled       bool   `json:"enabled"`
	LastCommitSHA string `json:"lastCommitSha,omitempty"`
	FromOrg       bool   `json:"fromOrg,omitempty"`
}

// FullName returns the "owner/repo" identifier used as the store key.
func (r *RepositoryConfig) FullName() string {
	return r.Owner + "/" + r.Repo
}

// OrganizationConfig governs auto-enrollment of repositories under one owner.
type OrganizationConfig struct {
	Name           string     `json:"name"`
	Enabled        bool       `json:"enabled"`
	IncludePrivate bool       `json:"includePrivate"`
	ExcludeRepos   []string   `json:"excludeRepos"`
	LastSyncTime   *time.Time `json:"lastSyncTime,omitempty"`
}

// ShouldEnroll reports whether a repository observed under this organization
// qualifies for automatic monitoring. The same rules apply to webhook-driven
// enrollment and to the periodic organization sync.
func (o *OrganizationConfig) ShouldEnroll(repoName string, private bool) bool {
	if o == nil || !o.Enabled {
		return false
	}
	for _, excluded := range o.ExcludeRepos {
		if excluded == repoName {
			return false
		}
	}
	if private && !o.IncludePrivate {
		return false
	}
	return true
}

// BlogPost is the long-form part of a content generation.
type BlogPost struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Body        string   `json:"body"`
	Tags        []string `json:"tags"`
}

// SocialMedia holds the per-platform short-form posts.
type SocialMedia struct {
	Twitter  string `json:"twitter"`
	LinkedIn string `json:"linkedin"`
	Facebook string `json:"facebook"`
}

// ContentGeneration is the output of one generator run. TelegramSummary is
// assembled deterministically from a fixed template, never by the model.
type ContentGeneration struct {
	BlogPost        BlogPost    `json:"blogPost"`
	SocialMedia     SocialMedia `json:"socialMedia"`
	TelegramSummary string      `json:"telegramSummary"`
}

// GeneratedContent is one persisted content record. The repository is
// identified by its full name string only; there is no foreign key to
// RepositoryConfig and the two may diverge.
type GeneratedContent struct {
	ID                  string    `json:"id"`
	RepositoryFullName  string    `json:"repository_full_name"`
	CommitSHA           string    `json:"commit_sha,omitempty"`
	CommitMessage       string    `json:"commit_message,omitempty"`
	BlogTitle           string    `json:"blog_title"`
	BlogDescription     string    `json:"blog_description"`
	BlogBody            string    `json:"blog_body"`
	BlogTags            []string  `json:"blog_tags"`
	TwitterContent      string    `json:"twitter_content"`
	LinkedInContent     string    `json:"linkedin_content"`
	FacebookContent     string    `json:"facebook_content"`
	TelegramSummary     string    `json:"telegram_summary"`
	SourceDiff          string    `json:"source_diff,omitempty"`
	GenerationModel     string    `json:"generation_model,omitempty"`
	GenerationTimestamp time.Time `json:"generation_timestamp"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// ContentStats are the aggregate counters exposed by the content store.
type ContentStats struct {
	Total        int64 `json:"total"`
	Repositories int64 `json:"repositories"`
	Recent       int64 `json:"recent"`
}

// WebhookCommit is one commit entry from a push payload.
type WebhookCommit struct {
	ID       string   `json:"id"`
	Message  string   `json:"message"`
	Added    []string `json:"added"`
	Removed  []string `json:"removed"`
	Modified []string `json:"modified"`
}

// Touches reports whether the commit added or modified the given file.
func (c *WebhookCommit) Touches(filename string) bool {
	for _, f := range c.Added {
		if f == filename {
			return true
		}
	}
	for _, f := range c.Modified {
		if f == filename {
			return true
		}
	}
	return false
}

// WebhookRepository is the repository block common to push and repository
// events.
type WebhookRepository struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Private  bool   `json:"private"`
	Owner    struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// WebhookPayload is the minimal shape this service reads from inbound GitHub
// webhook deliveries.
type WebhookPayload struct {
	Action     string            `json:"action"`
	Repository WebhookRepository `json:"repository"`
	Commits    []WebhookCommit   `json:"commits"`
	HeadCommit *WebhookCommit    `json:"head_commit"`
}

// CommitList returns the payload's commits, falling back to the head commit
// when the explicit list is empty.
func (p *WebhookPayload) CommitList() []WebhookCommit {
	if len(p.Commits) > 0 {
		return p.Commits
	}
	if p.HeadCommit != nil {
		return []WebhookCommit{*p.HeadCommit}
	}
	return nil
}

// TelegramMessage is the message block of a Telegram Bot API update.
type TelegramMessage struct {
	MessageID int64 `json:"message_id"`
	From      struct {
		ID        int64  `json:"id"`
		IsBot     bool   `json:"is_bot"`
		FirstName string `json:"first_name"`
		Username  string `json:"username"`
	} `json:"from"`
	Chat struct {
		ID   int64  `json:"id"`
		Type string `json:"type"`
	} `json:"chat"`
	Date int64  `json:"date"`
	Text string `json:"text"`
}

// TelegramUpdate is the subset of the Telegram Bot API update object the
// command handler reads.
type TelegramUpdate struct {
	UpdateID int64            `json:"update_id"`
	Message  *TelegramMessage `json:"message"`
}
