// internal/api/manage.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	apperrors "changelog-relay/internal/errors"
	"changelog-relay/internal/model"
	"changelog-relay/internal/store"
)

// listRepositories returns all monitored repository configs.
// GET /v1/repos
func (h *Handler) listRepositories(w http.ResponseWriter, r *http.Request) {
	repos, err := h.configs.ListRepositories(r.Context())
	if err != nil {
		h.logger.Error("Failed to list repositories", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"repositories": repos})
}

type manageRepositoryRequest struct {
	Action string `json:"action"`
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
}

// manageRepository adds, removes, enables or disables one repository.
// POST /v1/repos
func (h *Handler) manageRepository(w http.ResponseWriter, r *http.Request) {
	var body manageRepositoryRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Owner == "" || body.Repo == "" {
		respondWithError(w, http.StatusBadRequest, "Both 'owner' and 'repo' are required")
		return
	}
	if strings.Contains(body.Owner, "/") || strings.Contains(body.Repo, "/") {
		err := &apperrors.ErrInvalidRepoFormat{Repo: body.Owner + "/" + body.Repo}
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	fullName := body.Owner + "/" + body.Repo

	switch body.Action {
	case "add":
		err := h.configs.PutRepository(ctx, &model.RepositoryConfig{
			Owner:   body.Owner,
			Repo:    body.Repo,
			Enabled: true,
		})
		if err != nil {
			h.logger.Error("Failed to add repository", "repository", fullName, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]string{
			"message": fmt.Sprintf("Repository %s added successfully", fullName),
		})

	case "remove":
		if err := h.configs.DeleteRepository(ctx, fullName); err != nil {
			h.logger.Error("Failed to remove repository", "repository", fullName, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]string{
			"message": fmt.Sprintf("Repository %s removed successfully", fullName),
		})

	case "enable", "disable":
		cfg, err := h.configs.GetRepository(ctx, fullName)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondWithError(w, http.StatusNotFound, "Repository not found")
				return
			}
			h.logger.Error("Failed to get repository", "repository", fullName, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		cfg.Enabled = body.Action == "enable"
		if err := h.configs.PutRepository(ctx, cfg); err != nil {
			h.logger.Error("Failed to update repository", "repository", fullName, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]string{
			"message": fmt.Sprintf("Repository %s %sd successfully", fullName, body.Action),
		})

	default:
		err := &apperrors.ErrUnknownAction{Action: body.Action}
		respondWithError(w, http.StatusBadRequest, err.Error())
	}
}

// listOrganizations returns all monitored organization configs.
// GET /v1/orgs
func (h *Handler) listOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.configs.ListOrganizations(r.Context())
	if err != nil {
		h.logger.Error("Failed to list organizations", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"organizations": orgs})
}

type manageOrganizationRequest struct {
	Action         string   `json:"action"`
	Name           string   `json:"name"`
	IncludePrivate bool     `json:"includePrivate"`
	ExcludeRepos   []string `json:"excludeRepos"`
}

// manageOrganization adds, removes, enables or disables one organization.
// Adding triggers an immediate repository sync; removing also drops the
// organization's auto-enrolled repositories.
// POST /v1/orgs
func (h *Handler) manageOrganization(w http.ResponseWriter, r *http.Request) {
	var body manageOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Name == "" {
		respondWithError(w, http.StatusBadRequest, "'name' is required")
		return
	}

	ctx := r.Context()

	switch body.Action {
	case "add":
		err := h.configs.PutOrganization(ctx, &model.OrganizationConfig{
			Name:           body.Name,
			Enabled:        true,
			IncludePrivate: body.IncludePrivate,
			ExcludeRepos:   body.ExcludeRepos,
		})
		if err != nil {
			h.logger.Error("Failed to add organization", "org", body.Name, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if err := h.syncer.SyncOrganization(ctx, body.Name); err != nil {
			h.logger.Error("Initial organization sync failed", "org", body.Name, "error", err)
		}
		respondWithJSON(w, http.StatusOK, map[string]string{
			"message": fmt.Sprintf("Organization %s added and synced successfully", body.Name),
		})

	case "remove":
		if err := h.configs.DeleteOrganization(ctx, body.Name); err != nil {
			h.logger.Error("Failed to remove organization", "org", body.Name, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if err := h.removeOrgRepositories(r, body.Name); err != nil {
			h.logger.Error("Failed to remove organization repositories", "org", body.Name, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]string{
			"message": fmt.Sprintf("Organization %s and its repositories removed successfully", body.Name),
		})

	case "enable", "disable":
		cfg, err := h.configs.GetOrganization(ctx, body.Name)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondWithError(w, http.StatusNotFound, "Organization not found")
				return
			}
			h.logger.Error("Failed to get organization", "org", body.Name, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		cfg.Enabled = body.Action == "enable"
		if err := h.configs.PutOrganization(ctx, cfg); err != nil {
			h.logger.Error("Failed to update organization", "org", body.Name, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]string{
			"message": fmt.Sprintf("Organization %s %sd successfully", body.Name, body.Action),
		})

	default:
		err := &apperrors.ErrUnknownAction{Action: body.Action}
		respondWithError(w, http.StatusBadRequest, err.Error())
	}
}

// removeOrgRepositories deletes every auto-enrolled repository belonging to
// the given organization. Explicitly added repositories are kept.
func (h *Handler) removeOrgRepositories(r *http.Request, orgName string) error {
	repos, err := h.configs.ListRepositories(r.Context())
	if err != nil {
		return err
	}
	for _, repo := range repos {
		if repo.Owner == orgName && repo.FromOrg {
			if err := h.configs.DeleteRepository(r.Context(), repo.FullName()); err != nil {
				return err
			}
		}
	}
	return nil
}

type syncRequest struct {
	OrgName string `json:"orgName"`
}

// syncOrganizations synchronizes one named organization or all of them.
// POST /v1/sync
func (h *Handler) syncOrganizations(w http.ResponseWriter, r *http.Request) {
	var body syncRequest
	if r.Body != nil {
		// An empty body means "sync everything".
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	if body.OrgName != "" {
		if err := h.syncer.SyncOrganization(r.Context(), body.OrgName); err != nil {
			h.logger.Error("Organization sync failed", "org", body.OrgName, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]string{
			"message": fmt.Sprintf("Organization %s synced successfully", body.OrgName),
		})
		return
	}

	h.syncer.SyncAll(r.Context())
	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "All organizations synced successfully",
	})
}
