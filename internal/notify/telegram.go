// internal/notify/telegram.go
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"changelog-relay/internal/model"
)

const defaultTelegramBaseURL = "https://api.telegram.org"

var (
	boldMarkers = regexp.MustCompile(`\*([^*]+)\*`)
	linkSyntax  = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
)

// Notifier delivers messages to a Telegram chat. Delivery is fire-and-forget:
// failures are logged, never returned to the caller.
type Notifier struct {
	httpClient    *http.Client
	baseURL       string
	token         string
	defaultChatID string
	logger        *slog.Logger
}

// NewNotifier creates a Notifier for the given bot token and default chat.
func NewNotifier(token, defaultChatID string, logger *slog.Logger) *Notifier {
	return &Notifier{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		baseURL:       defaultTelegramBaseURL,
		token:         token,
		defaultChatID: defaultChatID,
		logger:        logger,
	}
}

// SetBaseURL overrides the Bot API endpoint. Used by tests.
func (n *Notifier) SetBaseURL(url string) {
	n.baseURL = url
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// Send delivers one Markdown-flavored message to the default chat.
func (n *Notifier) Send(ctx context.Context, text string) {
	n.SendTo(ctx, n.defaultChatID, text)
}

// SendTo delivers one Markdown-flavored message to the given chat. On a
// non-2xx response it retries exactly once with the markdown emphasis and
// link syntax stripped. Both attempts' failures are logged.
func (n *Notifier) SendTo(ctx context.Context, chatID, text string) {
	status, body, err := n.post(ctx, sendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "Markdown",
	})
	if err != nil {
		n.logger.Error("Failed to send Telegram message", "chat_id", chatID, "error", err)
		return
	}
	if status < 300 {
		n.logger.Debug("Telegram message sent", "chat_id", chatID)
		return
	}

	n.logger.Warn("Telegram API rejected message, retrying as plain text",
		"chat_id", chatID, "status", status, "response", body)

	status, body, err = n.post(ctx, sendMessageRequest{
		ChatID: chatID,
		Text:   StripMarkdown(text),
	})
	if err != nil {
		n.logger.Error("Failed to send Telegram fallback message", "chat_id", chatID, "error", err)
		return
	}
	if status >= 300 {
		n.logger.Error("Telegram API rejected fallback message",
			"chat_id", chatID, "status", status, "response", body)
		return
	}
	n.logger.Debug("Telegram fallback message sent", "chat_id", chatID)
}

// SendGeneration pushes the summary and the comprehensive content as two
// independent messages.
func (n *Notifier) SendGeneration(ctx context.Context, content *model.ContentGeneration) {
	n.Send(ctx, content.TelegramSummary)
	n.Send(ctx, FormatComprehensive(content))
}

func (n *Notifier) post(ctx context.Context, msg sendMessageRequest) (int, string, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return 0, "", fmt.Errorf("marshal telegram message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, "", fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("telegram request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body), nil
}

// StripMarkdown removes emphasis markers and link syntax so a message can be
// retried as plain text: *bold* -> bold, [text](url) -> text.
func StripMarkdown(text string) string {
	text = boldMarkers.ReplaceAllString(text, "$1")
	text = linkSyntax.ReplaceAllString(text, "$1")
	return text
}

// FormatComprehensive renders the blog post and all social posts into one
// message. Bodies are truncated to a 500-character preview.
func FormatComprehensive(content *model.ContentGeneration) string {
	body := content.BlogPost.Body
	ellipsis := ""
	if len(body) > 500 {
		body = body[:500]
		ellipsis = "..."
	}

	var b strings.Builder
	b.WriteString("📝 *COMPREHENSIVE CONTENT GENERATED*\n\n")
	b.WriteString("🌐 *BLOG POST*\n")
	fmt.Fprintf(&b, "📰 *Title:* %s\n", content.BlogPost.Title)
	fmt.Fprintf(&b, "📋 *Description:* %s\n", content.BlogPost.Description)
	fmt.Fprintf(&b, "🏷️ *Tags:* %s\n\n", strings.Join(content.BlogPost.Tags, ", "))
	fmt.Fprintf(&b, "📄 *Body:*\n```\n%s%s\n```\n\n", body, ellipsis)
	b.WriteString("📱 *SOCIAL MEDIA POSTS*\n\n")
	fmt.Fprintf(&b, "🐦 *Twitter/X:*\n```\n%s\n```\n\n", content.SocialMedia.Twitter)
	fmt.Fprintf(&b, "💼 *LinkedIn:*\n```\n%s\n```\n\n", content.SocialMedia.LinkedIn)
	fmt.Fprintf(&b, "📘 *Facebook:*\n```\n%s\n```\n\n", content.SocialMedia.Facebook)
	b.WriteString("✨ *Ready to copy and paste!*")

	return b.String()
}
