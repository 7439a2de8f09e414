// internal/generator/generator.go
package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"changelog-relay/internal/model"
)

// Request carries the inputs for one content generation.
type Request struct {
	Diff          string
	Repository    string // "owner/repo"
	CommitSHA     string
	CommitMessage string
}

// ContentGenerator produces multi-platform content for a changelog diff.
// Implementations never fail: any model or parse error is substituted with
// deterministic fallback content so the pipeline always has something to
// notify and store.
type ContentGenerator interface {
	Generate(ctx context.Context, req Request) *model.ContentGeneration
	Model() string
}

// completer is the minimal language-model contract the generators need.
type completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

func repoURL(repository string) string {
	return "https://github.com/" + repository
}

func changelogURL(repository string) string {
	return repoURL(repository) + "/blob/main/CHANGELOG.md"
}

func projectName(repository string) string {
	if _, name, ok := strings.Cut(repository, "/"); ok && name != "" {
		return name
	}
	return repository
}

// fallbackContent builds the deterministic, non-AI content for a repository.
// The title pattern is fixed and asserted by callers that detect fallback.
func fallbackContent(repository string) (model.BlogPost, model.SocialMedia) {
	url := repoURL(repository)
	project := projectName(repository)

	post := model.BlogPost{
		Title: fmt.Sprintf("%s Update: Latest Changes and Improvements", project),
		Description: fmt.Sprintf(
			"Discover the latest updates, bug fixes, and new features in %s. Stay up-to-date with our development progress.",
			project),
		Body: fmt.Sprintf(
			"# %[1]s Update: Latest Changes and Improvements\n\n"+
				"We've just released new updates to %[1]s! Our development team has been working hard to bring you improvements and new features.\n\n"+
				"## What's New\n\n"+
				"Our latest changelog includes various updates that enhance the user experience and improve functionality. "+
				"Check out the [full changelog](%[2]s/blob/main/CHANGELOG.md) for detailed information.\n\n"+
				"## Stay Updated\n\n"+
				"We're committed to continuous improvement and regularly update our projects. "+
				"Follow our [GitHub repository](%[2]s) to stay informed about the latest developments.\n\n"+
				"---\n\n"+
				"*Want to contribute? Check out our repository and join our growing community of developers!*",
			project, url),
		Tags: []string{"development", "update", "changelog", "software", "github"},
	}

	social := model.SocialMedia{
		Twitter: fmt.Sprintf(
			"🚀 Just pushed new updates to %s! Check out the latest improvements and features. #development #coding #opensource %s",
			project, url),
		LinkedIn: fmt.Sprintf(
			"Exciting news! We've just released new updates to %s. Our team has been working diligently to enhance functionality and user experience. "+
				"These updates represent our commitment to continuous improvement and innovation. "+
				"Check out the full details in our changelog and see how these improvements can benefit your projects. %s",
			project, url),
		Facebook: fmt.Sprintf(
			"🎉 New updates are live for %s! Our development team has implemented several improvements and new features. "+
				"Visit our GitHub repository to explore the changes and see how they can enhance your experience. "+
				"We're always working to make our tools better for our community! %s",
			project, url),
	}

	return post, social
}

// telegramSummary assembles the fixed chat summary template. The commit and
// message lines are omitted when absent.
func telegramSummary(req Request, post model.BlogPost, now time.Time) string {
	url := repoURL(req.Repository)
	fileURL := changelogURL(req.Repository)
	timestamp := now.UTC().Format("Jan 2, 2006, 15:04 MST")

	var b strings.Builder
	b.WriteString("🔄 *CHANGELOG Update*\n\n")
	fmt.Fprintf(&b, "📁 *Repository:* [%s](%s)\n", req.Repository, url)
	fmt.Fprintf(&b, "📄 *File:* [CHANGELOG.md](%s)\n", fileURL)
	fmt.Fprintf(&b, "⏰ *Updated:* %s\n", timestamp)

	if req.CommitSHA != "" {
		sha := req.CommitSHA
		if len(sha) > 7 {
			sha = sha[:7]
		}
		fmt.Fprintf(&b, "🔗 *Commit:* [%s](%s/commit/%s)\n", sha, url, req.CommitSHA)
	}
	if req.CommitMessage != "" {
		fmt.Fprintf(&b, "💬 *Message:* %s\n", req.CommitMessage)
	}

	fmt.Fprintf(&b, "\n📝 *Blog Post Generated:* %s\n", post.Title)
	b.WriteString("🔗 *Social Media Posts:* Ready for Twitter, LinkedIn & Facebook\n\n")
	fmt.Fprintf(&b, "📊 *Content Summary:*\n%s\n\n", post.Description)
	fmt.Fprintf(&b, "🏷️ *Tags:* %s\n\n", strings.Join(post.Tags, ", "))
	fmt.Fprintf(&b, "🔍 [View Changelog](%s) | [View Repository](%s)", fileURL, url)

	return b.String()
}

// failureSummary is the chat message used when the model call itself failed:
// it points a human at the source file instead of announcing generated posts.
func failureSummary(repository string) string {
	url := repoURL(repository)
	fileURL := changelogURL(repository)
	return fmt.Sprintf(
		"🔄 *CHANGELOG Update*\n\n📁 *Repository:* [%s](%s)\n📄 *File:* [CHANGELOG.md](%s)\n\n"+
			"❌ Could not generate content. Please check the repository for details.\n\n🔍 [View Changelog](%s)",
		repository, url, fileURL, fileURL)
}
