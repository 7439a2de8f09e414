// internal/api/handler_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"changelog-relay/internal/dispatch"
	"changelog-relay/internal/model"
	"changelog-relay/internal/store"
)

// MockDispatcher is a mock of the Dispatcher interface.
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, eventType string, payload *model.WebhookPayload) dispatch.Outcome {
	args := m.Called(ctx, eventType, payload)
	return args.Get(0).(dispatch.Outcome)
}

// MockOrgSyncer is a mock of the OrgSyncer interface.
type MockOrgSyncer struct {
	mock.Mock
}

func (m *MockOrgSyncer) SyncAll(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockOrgSyncer) SyncOrganization(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

// MockNotifier is a mock of the Notifier interface.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendTo(ctx context.Context, chatID, text string) {
	m.Called(ctx, chatID, text)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type apiFixture struct {
	dispatcher *MockDispatcher
	stores     *store.MemoryStore
	syncer     *MockOrgSyncer
	notifier   *MockNotifier
	router     http.Handler
}

func newAPIFixture() *apiFixture {
	f := &apiFixture{
		dispatcher: new(MockDispatcher),
		stores:     store.NewMemoryStore(),
		syncer:     new(MockOrgSyncer),
		notifier:   new(MockNotifier),
	}
	f.router = NewRouter(f.dispatcher, f.stores, f.stores, f.syncer, f.notifier, testLogger())
	return f
}

func (f *apiFixture) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func TestHealthCheck(t *testing.T) {
	f := newAPIFixture()
	rr := f.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestGithubWebhook(t *testing.T) {
	pushBody := map[string]any{
		"repository": map[string]any{
			"full_name": "acme/widgets",
			"name":      "widgets",
			"owner":     map[string]any{"login": "acme"},
		},
		"commits": []map[string]any{
			{"id": "abc123", "modified": []string{"CHANGELOG.md"}},
		},
	}

	t.Run("dispatches the decoded payload with the event header", func(t *testing.T) {
		f := newAPIFixture()
		f.dispatcher.On("Dispatch", mock.Anything, "push", mock.MatchedBy(func(p *model.WebhookPayload) bool {
			return p.Repository.FullName == "acme/widgets" && len(p.Commits) == 1
		})).Return(dispatch.Outcome{Kind: dispatch.OutcomeProcessed, ContentID: "id-1"}).Once()

		raw, err := json.Marshal(pushBody)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/webhook/github", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-GitHub-Event", "push")
		rr := httptest.NewRecorder()
		f.router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var ack webhookAck
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ack))
		assert.Equal(t, "OK", ack.Message)
		assert.Equal(t, "processed", ack.Outcome)
		assert.Equal(t, "id-1", ack.ContentID)
		f.dispatcher.AssertExpectations(t)
	})

	t.Run("accepts form-encoded payloads", func(t *testing.T) {
		f := newAPIFixture()
		f.dispatcher.On("Dispatch", mock.Anything, "push", mock.MatchedBy(func(p *model.WebhookPayload) bool {
			return p.Repository.FullName == "acme/widgets"
		})).Return(dispatch.Outcome{Kind: dispatch.OutcomeIgnored, Reason: "no-relevant-change"}).Once()

		raw, err := json.Marshal(pushBody)
		require.NoError(t, err)
		form := url.Values{"payload": {string(raw)}}
		req := httptest.NewRequest(http.MethodPost, "/webhook/github", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-GitHub-Event", "push")
		rr := httptest.NewRecorder()
		f.router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		f.dispatcher.AssertExpectations(t)
	})

	t.Run("maps outcomes to acknowledgements", func(t *testing.T) {
		cases := []struct {
			outcome     dispatch.Outcome
			wantCode    int
			wantMessage string
		}{
			{dispatch.Outcome{Kind: dispatch.OutcomeNotMonitored}, http.StatusOK, "Repository not monitored"},
			{dispatch.Outcome{Kind: dispatch.OutcomeAutoEnrolled}, http.StatusOK, "Repository created, added to monitoring"},
			{dispatch.Outcome{Kind: dispatch.OutcomeError, Step: "persist-content", Err: fmt.Errorf("boom")}, http.StatusInternalServerError, "Internal Server Error"},
			{dispatch.Outcome{Kind: dispatch.OutcomeProcessedNoDiff}, http.StatusOK, "OK"},
		}
		for _, tc := range cases {
			t.Run(string(tc.outcome.Kind), func(t *testing.T) {
				f := newAPIFixture()
				f.dispatcher.On("Dispatch", mock.Anything, "push", mock.Anything).Return(tc.outcome).Once()

				raw, err := json.Marshal(pushBody)
				require.NoError(t, err)
				req := httptest.NewRequest(http.MethodPost, "/webhook/github", bytes.NewReader(raw))
				req.Header.Set("Content-Type", "application/json")
				req.Header.Set("X-GitHub-Event", "push")
				rr := httptest.NewRecorder()
				f.router.ServeHTTP(rr, req)

				assert.Equal(t, tc.wantCode, rr.Code)
				assert.Contains(t, rr.Body.String(), tc.wantMessage)
			})
		}
	})

	t.Run("rejects malformed payloads", func(t *testing.T) {
		f := newAPIFixture()
		req := httptest.NewRequest(http.MethodPost, "/webhook/github", strings.NewReader("{not json"))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-GitHub-Event", "push")
		rr := httptest.NewRecorder()
		f.router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		f.dispatcher.AssertNotCalled(t, "Dispatch")
	})
}

func TestManageRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("add creates an enabled config", func(t *testing.T) {
		f := newAPIFixture()
		rr := f.do(t, http.MethodPost, "/v1/repos", map[string]string{
			"action": "add", "owner": "acme", "repo": "widgets",
		})

		assert.Equal(t, http.StatusOK, rr.Code)
		cfg, err := f.stores.GetRepository(ctx, "acme/widgets")
		require.NoError(t, err)
		assert.True(t, cfg.Enabled)
		assert.False(t, cfg.FromOrg)
	})

	t.Run("disable flips the flag", func(t *testing.T) {
		f := newAPIFixture()
		require.NoError(t, f.stores.PutRepository(ctx, &model.RepositoryConfig{
			Owner: "acme", Repo: "widgets", Enabled: true,
		}))

		rr := f.do(t, http.MethodPost, "/v1/repos", map[string]string{
			"action": "disable", "owner": "acme", "repo": "widgets",
		})

		assert.Equal(t, http.StatusOK, rr.Code)
		cfg, err := f.stores.GetRepository(ctx, "acme/widgets")
		require.NoError(t, err)
		assert.False(t, cfg.Enabled)
	})

	t.Run("enable on unknown repository is 404", func(t *testing.T) {
		f := newAPIFixture()
		rr := f.do(t, http.MethodPost, "/v1/repos", map[string]string{
			"action": "enable", "owner": "acme", "repo": "missing",
		})
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("missing fields are rejected", func(t *testing.T) {
		f := newAPIFixture()
		rr := f.do(t, http.MethodPost, "/v1/repos", map[string]string{"action": "add", "owner": "acme"})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown action is rejected", func(t *testing.T) {
		f := newAPIFixture()
		rr := f.do(t, http.MethodPost, "/v1/repos", map[string]string{
			"action": "explode", "owner": "acme", "repo": "widgets",
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "unknown management action")
	})

	t.Run("slashes in owner or repo are rejected", func(t *testing.T) {
		f := newAPIFixture()
		rr := f.do(t, http.MethodPost, "/v1/repos", map[string]string{
			"action": "add", "owner": "acme/extra", "repo": "widgets",
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "invalid repository format")
	})

	t.Run("list returns stored configs", func(t *testing.T) {
		f := newAPIFixture()
		require.NoError(t, f.stores.PutRepository(ctx, &model.RepositoryConfig{
			Owner: "acme", Repo: "widgets", Enabled: true,
		}))

		rr := f.do(t, http.MethodGet, "/v1/repos", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"owner":"acme"`)
	})
}

func TestManageOrganization(t *testing.T) {
	ctx := context.Background()

	t.Run("add stores the config and triggers a sync", func(t *testing.T) {
		f := newAPIFixture()
		f.syncer.On("SyncOrganization", mock.Anything, "acme").Return(nil).Once()

		rr := f.do(t, http.MethodPost, "/v1/orgs", map[string]any{
			"action": "add", "name": "acme", "includePrivate": true, "excludeRepos": []string{"sandbox"},
		})

		assert.Equal(t, http.StatusOK, rr.Code)
		cfg, err := f.stores.GetOrganization(ctx, "acme")
		require.NoError(t, err)
		assert.True(t, cfg.IncludePrivate)
		assert.Equal(t, []string{"sandbox"}, cfg.ExcludeRepos)
		f.syncer.AssertExpectations(t)
	})

	t.Run("add succeeds even when the initial sync fails", func(t *testing.T) {
		f := newAPIFixture()
		f.syncer.On("SyncOrganization", mock.Anything, "acme").Return(fmt.Errorf("rate limited")).Once()

		rr := f.do(t, http.MethodPost, "/v1/orgs", map[string]any{"action": "add", "name": "acme"})
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("remove drops the org and its auto-enrolled repositories", func(t *testing.T) {
		f := newAPIFixture()
		require.NoError(t, f.stores.PutOrganization(ctx, &model.OrganizationConfig{Name: "acme", Enabled: true}))
		require.NoError(t, f.stores.PutRepository(ctx, &model.RepositoryConfig{
			Owner: "acme", Repo: "auto", Enabled: true, FromOrg: true,
		}))
		require.NoError(t, f.stores.PutRepository(ctx, &model.RepositoryConfig{
			Owner: "acme", Repo: "manual", Enabled: true,
		}))

		rr := f.do(t, http.MethodPost, "/v1/orgs", map[string]any{"action": "remove", "name": "acme"})
		assert.Equal(t, http.StatusOK, rr.Code)

		_, err := f.stores.GetOrganization(ctx, "acme")
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = f.stores.GetRepository(ctx, "acme/auto")
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = f.stores.GetRepository(ctx, "acme/manual")
		assert.NoError(t, err)
	})
}

func TestSyncEndpoint(t *testing.T) {
	t.Run("named organization", func(t *testing.T) {
		f := newAPIFixture()
		f.syncer.On("SyncOrganization", mock.Anything, "acme").Return(nil).Once()

		rr := f.do(t, http.MethodPost, "/v1/sync", map[string]string{"orgName": "acme"})
		assert.Equal(t, http.StatusOK, rr.Code)
		f.syncer.AssertExpectations(t)
	})

	t.Run("named organization failure is 500", func(t *testing.T) {
		f := newAPIFixture()
		f.syncer.On("SyncOrganization", mock.Anything, "acme").Return(fmt.Errorf("boom")).Once()

		rr := f.do(t, http.MethodPost, "/v1/sync", map[string]string{"orgName": "acme"})
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})

	t.Run("empty body syncs everything", func(t *testing.T) {
		f := newAPIFixture()
		f.syncer.On("SyncAll", mock.Anything).Once()

		rr := f.do(t, http.MethodPost, "/v1/sync", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		f.syncer.AssertExpectations(t)
	})
}

func TestContentEndpoints(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, f *apiFixture, repo, sha string) *model.GeneratedContent {
		t.Helper()
		created, err := f.stores.Create(ctx, &model.GeneratedContent{
			RepositoryFullName: repo,
			CommitSHA:          sha,
			BlogTitle:          "title",
			BlogDescription:    "desc",
			BlogBody:           "body",
			BlogTags:           []string{"tag"},
		})
		require.NoError(t, err)
		return created
	}

	t.Run("list with repository filter", func(t *testing.T) {
		f := newAPIFixture()
		seed(t, f, "acme/widgets", "a")
		seed(t, f, "acme/gears", "b")

		rr := f.do(t, http.MethodGet, "/v1/content?repository=acme/widgets", nil)
		assert.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Content []model.GeneratedContent `json:"content"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.Len(t, resp.Content, 1)
		assert.Equal(t, "acme/widgets", resp.Content[0].RepositoryFullName)
	})

	t.Run("list rejects an out-of-range limit", func(t *testing.T) {
		f := newAPIFixture()
		rr := f.do(t, http.MethodGet, "/v1/content?limit=500", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("get by id and 404", func(t *testing.T) {
		f := newAPIFixture()
		created := seed(t, f, "acme/widgets", "a")

		rr := f.do(t, http.MethodGet, "/v1/content/"+created.ID, nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), created.ID)

		rr = f.do(t, http.MethodGet, "/v1/content/missing-id", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("recent content by repository", func(t *testing.T) {
		f := newAPIFixture()
		seed(t, f, "acme/widgets", "a")

		rr := f.do(t, http.MethodGet, "/v1/content/repository/acme/widgets", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "acme/widgets")
	})

	t.Run("update and delete", func(t *testing.T) {
		f := newAPIFixture()
		created := seed(t, f, "acme/widgets", "a")

		created.BlogTitle = "edited"
		rr := f.do(t, http.MethodPut, "/v1/content/"+created.ID, created)
		assert.Equal(t, http.StatusOK, rr.Code)

		got, err := f.stores.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "edited", got.BlogTitle)

		rr = f.do(t, http.MethodDelete, "/v1/content/"+created.ID, nil)
		assert.Equal(t, http.StatusOK, rr.Code)

		rr = f.do(t, http.MethodDelete, "/v1/content/"+created.ID, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("stats", func(t *testing.T) {
		f := newAPIFixture()
		seed(t, f, "acme/widgets", "a")
		seed(t, f, "acme/gears", "b")

		rr := f.do(t, http.MethodGet, "/v1/content/stats", nil)
		assert.Equal(t, http.StatusOK, rr.Code)

		var stats model.ContentStats
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
		assert.Equal(t, int64(2), stats.Total)
		assert.Equal(t, int64(2), stats.Repositories)
	})
}

func TestTelegramWebhook(t *testing.T) {
	ctx := context.Background()

	update := func(text string) map[string]any {
		return map[string]any{
			"update_id": 1,
			"message": map[string]any{
				"message_id": 2,
				"from":       map[string]any{"id": 7, "first_name": "Pat"},
				"chat":       map[string]any{"id": 12345, "type": "private"},
				"text":       text,
			},
		}
	}

	t.Run("/start greets the sender", func(t *testing.T) {
		f := newAPIFixture()
		f.notifier.On("SendTo", mock.Anything, "12345", mock.MatchedBy(func(text string) bool {
			return strings.Contains(text, "Hello Pat!")
		})).Once()

		rr := f.do(t, http.MethodPost, "/webhook/telegram", update("/start"))
		assert.Equal(t, http.StatusOK, rr.Code)
		f.notifier.AssertExpectations(t)
	})

	t.Run("/repos lists the monitored repositories", func(t *testing.T) {
		f := newAPIFixture()
		require.NoError(t, f.stores.PutRepository(ctx, &model.RepositoryConfig{
			Owner: "acme", Repo: "widgets", Enabled: true, FromOrg: true,
		}))
		f.notifier.On("SendTo", mock.Anything, "12345", mock.MatchedBy(func(text string) bool {
			return strings.Contains(text, "acme/widgets ✅ (from org)")
		})).Once()

		rr := f.do(t, http.MethodPost, "/webhook/telegram", update("/repos"))
		assert.Equal(t, http.StatusOK, rr.Code)
		f.notifier.AssertExpectations(t)
	})

	t.Run("unknown command gets a hint", func(t *testing.T) {
		f := newAPIFixture()
		f.notifier.On("SendTo", mock.Anything, "12345", mock.MatchedBy(func(text string) bool {
			return strings.Contains(text, "Unknown command: /frobnicate")
		})).Once()

		rr := f.do(t, http.MethodPost, "/webhook/telegram", update("/frobnicate"))
		assert.Equal(t, http.StatusOK, rr.Code)
		f.notifier.AssertExpectations(t)
	})

	t.Run("non-text updates are acknowledged and skipped", func(t *testing.T) {
		f := newAPIFixture()
		rr := f.do(t, http.MethodPost, "/webhook/telegram", map[string]any{"update_id": 1})
		assert.Equal(t, http.StatusOK, rr.Code)
		f.notifier.AssertNotCalled(t, "SendTo")
	})
}
