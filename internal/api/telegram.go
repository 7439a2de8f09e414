// internal/api/telegram.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"changelog-relay/internal/model"
)

// telegramWebhook accepts one Telegram Bot API update and answers the small
// command set. Non-text updates are acknowledged and skipped.
// POST /webhook/telegram
func (h *Handler) telegramWebhook(w http.ResponseWriter, r *http.Request) {
	var update model.TelegramUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid update format")
		return
	}

	if update.Message == nil || update.Message.Text == "" {
		h.logger.Debug("Skipping non-text Telegram update", "update_id", update.UpdateID)
		respondWithJSON(w, http.StatusOK, map[string]string{"message": "OK"})
		return
	}

	msg := update.Message
	h.logger.Info("Processing Telegram command",
		"text", msg.Text, "from", msg.From.FirstName, "chat_id", msg.Chat.ID)

	reply := h.commandReply(r.Context(), msg)
	h.notifier.SendTo(r.Context(), strconv.FormatInt(msg.Chat.ID, 10), reply)

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "OK"})
}

func (h *Handler) commandReply(ctx context.Context, msg *model.TelegramMessage) string {
	switch {
	case msg.Text == "/start":
		return fmt.Sprintf(
			"Hello %s! 👋\n\nWelcome to the GitHub Repository Monitor!\n\n"+
				"Commands:\n/start - Show this message\n/repos - List monitored repositories\n"+
				"/orgs - List monitored organizations\n/sync - Sync organization repositories\n/help - Get help",
			msg.From.FirstName)

	case msg.Text == "/help":
		return "🤖 GitHub Repository Monitor Help\n\n" +
			"This bot monitors GitHub repositories and organizations for CHANGELOG.md changes.\n\n" +
			"Commands:\n• /start - Welcome message\n• /repos - List monitored repositories\n" +
			"• /orgs - List monitored organizations\n• /sync - Sync organization repositories\n" +
			"• /help - This help message"

	case msg.Text == "/repos":
		repos, err := h.configs.ListRepositories(ctx)
		if err != nil {
			h.logger.Error("Failed to list repositories for bot reply", "error", err)
			return "Could not list repositories right now, please try again."
		}
		if len(repos) == 0 {
			return "No repositories are currently being monitored."
		}
		var b strings.Builder
		b.WriteString("📋 Monitored Repositories:\n")
		for _, repo := range repos {
			mark := "❌"
			if repo.Enabled {
				mark = "✅"
			}
			fmt.Fprintf(&b, "\n• %s %s", repo.FullName(), mark)
			if repo.FromOrg {
				b.WriteString(" (from org)")
			}
		}
		return b.String()

	case msg.Text == "/orgs":
		orgs, err := h.configs.ListOrganizations(ctx)
		if err != nil {
			h.logger.Error("Failed to list organizations for bot reply", "error", err)
			return "Could not list organizations right now, please try again."
		}
		if len(orgs) == 0 {
			return "No organizations are currently being monitored."
		}
		var b strings.Builder
		b.WriteString("🏢 Monitored Organizations:\n")
		for _, org := range orgs {
			mark := "❌"
			if org.Enabled {
				mark = "✅"
			}
			visibility := "(public only)"
			if org.IncludePrivate {
				visibility = "(incl. private)"
			}
			fmt.Fprintf(&b, "\n• %s %s %s", org.Name, mark, visibility)
		}
		return b.String()

	case msg.Text == "/sync":
		// Sync in the background so the slow GitHub pagination does not hold
		// the webhook response open.
		go h.syncer.SyncAll(context.WithoutCancel(ctx))
		return "🔄 Organization repositories sync initiated. Check logs for details."

	case strings.HasPrefix(msg.Text, "/"):
		return fmt.Sprintf("Unknown command: %s\n\nType /help to see available commands.", msg.Text)

	default:
		return "I monitor GitHub repositories and organizations for CHANGELOG.md changes. Type /help for more info."
	}
}
