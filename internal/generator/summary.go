// internal/generator/summary.go
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"changelog-relay/internal/model"
)

// SummaryGenerator is the lightweight variant: the model produces only a
// short plain-text summary and everything else comes from the deterministic
// templates. Selected with GENERATOR_MODE=summary.
type SummaryGenerator struct {
	llm    completer
	model  string
	logger *slog.Logger
	now    func() time.Time
}

// NewSummaryGenerator wires a SummaryGenerator around a completer.
func NewSummaryGenerator(llm completer, modelName string, logger *slog.Logger) *SummaryGenerator {
	return &SummaryGenerator{
		llm:    llm,
		model:  modelName,
		logger: logger,
		now:    time.Now,
	}
}

func (g *SummaryGenerator) Model() string { return g.model }

func (g *SummaryGenerator) Generate(ctx context.Context, req Request) *model.ContentGeneration {
	post, social := fallbackContent(req.Repository)

	text, err := g.llm.Complete(ctx, buildSummaryPrompt(req))
	if err != nil {
		g.logger.Error("Summary generation call failed, using fallback content",
			"repository", req.Repository, "error", err)
		return &model.ContentGeneration{
			BlogPost:        post,
			SocialMedia:     social,
			TelegramSummary: failureSummary(req.Repository),
		}
	}

	if summary := strings.TrimSpace(text); summary != "" {
		post.Description = summary
	}

	return &model.ContentGeneration{
		BlogPost:        post,
		SocialMedia:     social,
		TelegramSummary: telegramSummary(req, post, g.now()),
	}
}

func buildSummaryPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b,
		"Summarize the following CHANGELOG.md diff from the repository %q in two to three plain sentences.\n",
		req.Repository)
	b.WriteString("Mention new features, fixes and breaking changes. Reply with the summary text only, no markup.\n")
	if req.CommitMessage != "" {
		fmt.Fprintf(&b, "Commit message: %s\n", req.CommitMessage)
	}
	b.WriteString("\nDiff:\n")
	b.WriteString(req.Diff)
	return b.String()
}
