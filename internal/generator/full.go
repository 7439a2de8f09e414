// internal/generator/full.go
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"changelog-relay/internal/model"
)

// FullGenerator asks the model for complete multi-platform content in a fixed
// JSON shape and falls back to templated content when the call fails or the
// reply does not parse.
type FullGenerator struct {
	llm    completer
	model  string
	logger *slog.Logger
	now    func() time.Time
}

// NewFullGenerator wires a FullGenerator around a completer.
func NewFullGenerator(llm completer, modelName string, logger *slog.Logger) *FullGenerator {
	return &FullGenerator{
		llm:    llm,
		model:  modelName,
		logger: logger,
		now:    time.Now,
	}
}

func (g *FullGenerator) Model() string { return g.model }

// generatedShape is the exact JSON object the prompt requests.
type generatedShape struct {
	BlogPost    model.BlogPost    `json:"blogPost"`
	SocialMedia model.SocialMedia `json:"socialMedia"`
}

func (g *FullGenerator) Generate(ctx context.Context, req Request) *model.ContentGeneration {
	text, err := g.llm.Complete(ctx, buildFullPrompt(req))
	if err != nil {
		g.logger.Error("Content generation call failed, using fallback content",
			"repository", req.Repository, "error", err)
		post, social := fallbackContent(req.Repository)
		return &model.ContentGeneration{
			BlogPost:        post,
			SocialMedia:     social,
			TelegramSummary: failureSummary(req.Repository),
		}
	}

	var parsed generatedShape
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &parsed); err != nil {
		g.logger.Warn("Model reply did not parse as the expected JSON shape, using fallback content",
			"repository", req.Repository, "error", err)
		parsed.BlogPost, parsed.SocialMedia = fallbackContent(req.Repository)
	}

	return &model.ContentGeneration{
		BlogPost:        parsed.BlogPost,
		SocialMedia:     parsed.SocialMedia,
		TelegramSummary: telegramSummary(req, parsed.BlogPost, g.now()),
	}
}

func buildFullPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b,
		"Analyze the following CHANGELOG.md diff from the repository %q and generate comprehensive content for multiple platforms.\n\n",
		req.Repository)
	b.WriteString("Create content that includes:\n")
	b.WriteString("1. A blog post with engaging title, SEO description, detailed body, and relevant tags\n")
	b.WriteString("2. Social media posts optimized for Twitter/X, LinkedIn, and Facebook\n\n")
	b.WriteString("Focus on:\n")
	b.WriteString("- New features added\n")
	b.WriteString("- Bug fixes and improvements\n")
	b.WriteString("- Breaking changes (if any)\n")
	b.WriteString("- Version updates\n")
	b.WriteString("- Developer impact and benefits\n\n")
	fmt.Fprintf(&b, "Repository context: %s\n", req.Repository)
	if req.CommitMessage != "" {
		fmt.Fprintf(&b, "Commit message: %s\n", req.CommitMessage)
	}
	b.WriteString("\nPlease respond in this exact JSON format:\n")
	b.WriteString(`{
  "blogPost": {
    "title": "Engaging blog post title (60-70 characters)",
    "description": "SEO-friendly meta description (150-160 characters)",
    "body": "Detailed blog post body in markdown format (300-500 words)",
    "tags": ["tag1", "tag2", "tag3", "tag4", "tag5"]
  },
  "socialMedia": {
    "twitter": "Twitter/X post with hashtags (under 280 characters)",
    "linkedin": "Professional LinkedIn post (under 1300 characters)",
    "facebook": "Engaging Facebook business page post (under 500 characters)"
  }
}`)
	b.WriteString("\n\nDiff:\n")
	b.WriteString(req.Diff)
	return b.String()
}
