// internal/api/handler.go
package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"changelog-relay/internal/dispatch"
	"changelog-relay/internal/model"
	"changelog-relay/internal/store"
)

// Dispatcher drives one inbound webhook delivery to a terminal outcome.
type Dispatcher interface {
	Dispatch(ctx context.Context, eventType string, payload *model.WebhookPayload) dispatch.Outcome
}

// OrgSyncer runs organization repository synchronization.
type OrgSyncer interface {
	SyncAll(ctx context.Context)
	SyncOrganization(ctx context.Context, name string) error
}

// Notifier replies to arbitrary chats; used by the Telegram command handler.
type Notifier interface {
	SendTo(ctx context.Context, chatID, text string)
}

// Handler is the container for API dependencies.
type Handler struct {
	dispatcher Dispatcher
	configs    store.ConfigStore
	contents   store.ContentStore
	syncer     OrgSyncer
	notifier   Notifier
	logger     *slog.Logger
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(
	dispatcher Dispatcher,
	configs store.ConfigStore,
	contents store.ContentStore,
	syncer OrgSyncer,
	notifier Notifier,
	logger *slog.Logger,
) http.Handler {
	h := &Handler{
		dispatcher: dispatcher,
		configs:    configs,
		contents:   contents,
		syncer:     syncer,
		notifier:   notifier,
		logger:     logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger) // Chi's default logger
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// API Routes
	r.Get("/health", h.healthCheck)
	r.Post("/webhook/github", h.githubWebhook)
	r.Post("/webhook/telegram", h.telegramWebhook)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/repos", h.listRepositories)
		r.Post("/repos", h.manageRepository)
		r.Get("/orgs", h.listOrganizations)
		r.Post("/orgs", h.manageOrganization)
		r.Post("/sync", h.syncOrganizations)

		r.Route("/content", func(r chi.Router) {
			r.Get("/", h.listContent)
			r.Get("/stats", h.contentStats)
			r.Get("/repository/{owner}/{name}", h.recentContentByRepository)
			r.Get("/{id}", h.getContent)
			r.Put("/{id}", h.updateContent)
			r.Delete("/{id}", h.deleteContent)
		})
	})

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// githubWebhook accepts one GitHub webhook delivery and runs the dispatcher.
// POST /webhook/github
func (h *Handler) githubWebhook(w http.ResponseWriter, r *http.Request) {
	eventType := r.Header.Get("X-GitHub-Event")

	payload, err := decodeWebhookPayload(r)
	if err != nil {
		h.logger.Warn("Failed to decode webhook payload", "event", eventType, "error", err)
		respondWithError(w, http.StatusBadRequest, "Invalid payload format")
		return
	}

	outcome := h.dispatcher.Dispatch(r.Context(), eventType, payload)

	switch outcome.Kind {
	case dispatch.OutcomeError:
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
	case dispatch.OutcomeAutoEnrolled:
		respondWithJSON(w, http.StatusOK, webhookAck{
			Message: "Repository created, added to monitoring",
			Outcome: string(outcome.Kind),
		})
	case dispatch.OutcomeNotMonitored:
		respondWithJSON(w, http.StatusOK, webhookAck{
			Message: "Repository not monitored",
			Outcome: string(outcome.Kind),
		})
	default:
		respondWithJSON(w, http.StatusOK, webhookAck{
			Message:   "OK",
			Outcome:   string(outcome.Kind),
			Reason:    outcome.Reason,
			ContentID: outcome.ContentID,
		})
	}
}

type webhookAck struct {
	Message   string `json:"message"`
	Outcome   string `json:"outcome,omitempty"`
	Reason    string `json:"reason,omitempty"`
	ContentID string `json:"contentId,omitempty"`
}

// decodeWebhookPayload accepts both application/json bodies and form-encoded
// bodies carrying the JSON in a "payload" field, as GitHub sends either
// depending on the hook's content type setting.
func decodeWebhookPayload(r *http.Request) (*model.WebhookPayload, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	raw := body
	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/x-www-form-urlencoded") {
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, err
		}
		raw = []byte(values.Get("payload"))
	}

	var payload model.WebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
